package playback

import "fmt"

// State is the playback controller's lifecycle state.
type State int

const (
	Stopped State = iota
	Playing
	Paused
	Finished
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText encodes the state by name so JSON payloads stay readable.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name produced by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "stopped":
		*s = Stopped
	case "playing":
		*s = Playing
	case "paused":
		*s = Paused
	case "finished":
		*s = Finished
	default:
		return fmt.Errorf("unknown playback state %q", text)
	}
	return nil
}
