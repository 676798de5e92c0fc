package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/couchcryptid/meteorite-playback/internal/config"
	"github.com/couchcryptid/meteorite-playback/internal/playback"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
)

// messageWriter is the subset of *kafkago.Writer the sink uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// FrameSink mirrors playback frames to a Kafka topic.
// It implements playback.Renderer.
type FrameSink struct {
	writer   messageWriter
	streamID string
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewFrameSink creates an asynchronous Kafka producer for the configured
// frames topic. All frames share streamID as their key, so they land on one
// partition in push order.
func NewFrameSink(cfg *config.Config, streamID string, logger *slog.Logger) *FrameSink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFramesTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchFlushInterval,
		// Render runs under the controller lock; never wait on the broker there.
		Async: true,
		Completion: func(msgs []kafkago.Message, err error) {
			if err != nil {
				logger.Warn("publish frames failed", "topic", cfg.KafkaFramesTopic, "frames", len(msgs), "error", err)
			}
		},
	}
	return newFrameSink(w, streamID, clockwork.NewRealClock(), logger)
}

func newFrameSink(w messageWriter, streamID string, clock clockwork.Clock, logger *slog.Logger) *FrameSink {
	return &FrameSink{writer: w, streamID: streamID, clock: clock, logger: logger}
}

// Render serializes frame and hands it to the producer.
func (s *FrameSink) Render(frame playback.Frame) error {
	msg, err := serializeFrame(s.streamID, frame, s.clock.Now())
	if err != nil {
		return err
	}
	return s.writer.WriteMessages(context.Background(), msg)
}

// Close flushes pending frames and closes the producer.
func (s *FrameSink) Close() error {
	return s.writer.Close()
}

// serializeFrame marshals a frame's payload into a Kafka message.
func serializeFrame(streamID string, frame playback.Frame, renderedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(playback.NewPayload(frame))
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s frame: %w", frame.Kind, err)
	}
	return kafkago.Message{
		Key:   []byte(streamID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "frame_kind", Value: []byte(frame.Kind)},
			{Key: "year", Value: []byte(strconv.Itoa(frame.Year))},
			{Key: "state", Value: []byte(frame.State.String())},
			{Key: "rendered_at", Value: []byte(renderedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
