package playback

import "github.com/couchcryptid/meteorite-playback/internal/domain"

// FrameKind says which controller operation produced a frame.
type FrameKind string

const (
	FrameStart   FrameKind = "start"
	FrameStep    FrameKind = "step"
	FrameResume  FrameKind = "resume"
	FrameSeek    FrameKind = "seek"
	FrameRelease FrameKind = "release"
	FrameFocus   FrameKind = "focus"
)

// Frame is one push from the controller to its renderers. Regions is nil on
// seek frames, where the region aggregate is deferred until release. Focus is
// nil unless a region is highlighted.
type Frame struct {
	Kind     FrameKind
	Year     int
	State    State
	Snapshot domain.Snapshot
	Regions  *domain.RegionSummary
	Focus    *domain.RegionFocus
}

// LandingSummary is the tooltip-sized view of a record.
type LandingSummary struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Year           int     `json:"year"`
	Mass           float64 `json:"mass"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	Classification string  `json:"classification"`
}

// Payload is the compact wire form of a Frame.
type Payload struct {
	Kind           FrameKind             `json:"kind"`
	Year           int                   `json:"year"`
	State          State                 `json:"state"`
	VisibleCount   int                   `json:"visible_count"`
	CurrentCount   int                   `json:"current_count"`
	InvisibleCount int                   `json:"invisible_count"`
	CurrentIDs     []string              `json:"current_ids"`
	VisibleIDs     []string              `json:"visible_ids,omitempty"`
	Largest        *LandingSummary       `json:"largest,omitempty"`
	Smallest       *LandingSummary       `json:"smallest,omitempty"`
	Regions        *domain.RegionSummary `json:"regions,omitempty"`
	Focus          *domain.RegionFocus   `json:"focus,omitempty"`
}

// NewPayload builds the wire form of frame. Step frames only carry the IDs
// that just appeared; every other kind may move the year arbitrarily, so it
// also lists every visible ID and a renderer redraws from scratch.
func NewPayload(frame Frame) Payload {
	snap := frame.Snapshot
	p := Payload{
		Kind:           frame.Kind,
		Year:           frame.Year,
		State:          frame.State,
		VisibleCount:   len(snap.Visible),
		CurrentCount:   len(snap.Current),
		InvisibleCount: len(snap.Invisible),
		CurrentIDs:     recordIDs(snap.Current),
		Largest:        summarize(snap.Largest),
		Smallest:       summarize(snap.Smallest),
		Regions:        frame.Regions,
		Focus:          frame.Focus,
	}
	if frame.Kind != FrameStep {
		p.VisibleIDs = recordIDs(snap.Visible)
	}
	return p
}

// NewFullPayload is NewPayload with visible IDs regardless of kind, for
// renderers joining mid-playback.
func NewFullPayload(frame Frame) Payload {
	p := NewPayload(frame)
	if p.VisibleIDs == nil {
		p.VisibleIDs = recordIDs(frame.Snapshot.Visible)
	}
	return p
}

func recordIDs(records []domain.LandingRecord) []string {
	ids := make([]string, len(records))
	for i := range records {
		ids[i] = records[i].ID
	}
	return ids
}

func summarize(r *domain.LandingRecord) *LandingSummary {
	if r == nil {
		return nil
	}
	return &LandingSummary{
		ID:             r.ID,
		Name:           r.Name,
		Year:           r.Year,
		Mass:           r.Mass,
		Lat:            r.Lat,
		Lon:            r.Lon,
		Classification: r.Classification,
	}
}
