package playback

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownIntent is returned by Dispatch for intent types it does not route.
var ErrUnknownIntent = errors.New("unknown playback intent")

// IntentType names a user gesture raised by the presentation layer.
type IntentType string

const (
	IntentStart      IntentType = "start"
	IntentPause      IntentType = "pause"
	IntentResume     IntentType = "resume"
	IntentToggle     IntentType = "toggle"
	IntentSeek       IntentType = "seek"
	IntentRelease    IntentType = "release"
	IntentFocus      IntentType = "focus"
	IntentClearFocus IntentType = "clear_focus"
)

// Intent is an explicit message from the presentation layer to the controller.
// A nil Year means the span minimum for start and the current year for seek
// and release.
type Intent struct {
	Type   IntentType `json:"type"`
	Year   *int       `json:"year,omitempty"`
	Region string     `json:"region,omitempty"`
}

// Dispatch routes an intent to the matching controller operation.
func (c *Controller) Dispatch(in Intent) error {
	switch in.Type {
	case IntentStart:
		year := c.span.Min
		if in.Year != nil {
			year = *in.Year
		}
		c.Start(year)
	case IntentPause:
		c.Pause()
	case IntentResume:
		c.Resume()
	case IntentToggle:
		c.Toggle()
	case IntentSeek:
		c.seekAt(in.Year)
	case IntentRelease:
		c.releaseAt(in.Year)
	case IntentFocus:
		if strings.TrimSpace(in.Region) == "" {
			return fmt.Errorf("%s intent: region is required", in.Type)
		}
		c.Focus(in.Region)
	case IntentClearFocus:
		c.ClearFocus()
	default:
		return fmt.Errorf("%w: %q", ErrUnknownIntent, in.Type)
	}
	return nil
}
