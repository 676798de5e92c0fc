package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/meteorite-playback/internal/domain"
	"github.com/couchcryptid/meteorite-playback/internal/playback"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testFrame() playback.Frame {
	records := []domain.LandingRecord{
		{ID: "1", Name: "Aachen", Year: 1880, Mass: 21},
		{ID: "2", Name: "Abee", Year: 1952, Mass: 107000},
	}
	regions := domain.SummarizeRegions(nil)
	return playback.Frame{
		Kind:     playback.FrameStep,
		Year:     1952,
		State:    playback.Playing,
		Snapshot: domain.Classify(records, 1952),
		Regions:  &regions,
	}
}

// --- tests ---

func TestSerializeFrame(t *testing.T) {
	now := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)

	msg, err := serializeFrame("stream-1", testFrame(), now)
	require.NoError(t, err)

	assert.Equal(t, []byte("stream-1"), msg.Key)
	require.Len(t, msg.Headers, 4)
	assert.Equal(t, "frame_kind", msg.Headers[0].Key)
	assert.Equal(t, []byte("step"), msg.Headers[0].Value)
	assert.Equal(t, []byte("1952"), msg.Headers[1].Value)
	assert.Equal(t, []byte("playing"), msg.Headers[2].Value)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[3].Value)

	var payload playback.Payload
	require.NoError(t, json.Unmarshal(msg.Value, &payload))
	assert.Equal(t, playback.FrameStep, payload.Kind)
	assert.Equal(t, []string{"2"}, payload.CurrentIDs)
	assert.Equal(t, "2", payload.Largest.ID)
	assert.Equal(t, "1", payload.Smallest.ID)
}

func TestFrameSink_Render(t *testing.T) {
	w := &mockWriter{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	sink := newFrameSink(w, "stream-1", clock, slog.Default())

	require.NoError(t, sink.Render(testFrame()))
	require.NoError(t, sink.Render(testFrame()))

	assert.Len(t, w.msgs, 2, "duplicate pushes are published as-is")
	assert.Equal(t, []byte("2024-01-01T00:00:00Z"), w.msgs[0].Headers[3].Value)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}

func TestFrameSink_RenderError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker down")}
	sink := newFrameSink(w, "stream-1", clockwork.NewFakeClock(), slog.Default())

	require.Error(t, sink.Render(testFrame()))
}
