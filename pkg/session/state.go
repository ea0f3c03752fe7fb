package session

import (
	"fmt"

	"github.com/matzehuels/gradlab/pkg/brush"
	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
	"github.com/matzehuels/gradlab/pkg/viewport"
)

// State is the lifecycle state of an edit session.
type State int

const (
	StateEmpty          State = iota // no image loaded
	StateLoaded                      // image and both derivative channels known
	StateEditing                     // a stroke is in progress
	StateReconstructing              // a reconstruct request is outstanding
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StateReconstructing:
		return "reconstructing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseState parses a state name as produced by [State.String].
func ParseState(name string) (State, error) {
	for _, st := range []State{StateEmpty, StateLoaded, StateEditing, StateReconstructing} {
		if st.String() == name {
			return st, nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown session state %q", name)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	v, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Sentinel errors for session operations.
var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New(errors.ErrCodeInvalidState, "no image loaded")

	// ErrBusy is returned by mutating operations while a reconstruction is
	// outstanding.
	ErrBusy = errors.New(errors.ErrCodeSessionBusy, "session is reconstructing")

	// ErrInFlight is returned by Reconstruct while another request is
	// outstanding.
	ErrInFlight = errors.New(errors.ErrCodeReconstructInFlight, "a reconstruction is already in flight")

	// ErrStrokeActive is returned when an operation needs the pointer released.
	ErrStrokeActive = errors.New(errors.ErrCodeInvalidState, "a stroke is in progress")
)

// Result references a finished reconstruction.
type Result struct {
	ImageID string `json:"imageId"`
	URL     string `json:"reconstructedUrl"`
}

// Snapshot is a read-only view of a session, safe to serialise.
type Snapshot struct {
	State     State         `json:"state"`
	ImageID   string        `json:"imageId,omitempty"`
	Width     int           `json:"width,omitempty"`
	Height    int           `json:"height,omitempty"`
	Tab       layer.Channel `json:"tab"`
	Tool      brush.Tool    `json:"tool"`
	Radius    int           `json:"radius"`
	Strength  float64       `json:"strength"`
	Display   viewport.Rect `json:"display"`
	EditedDx  bool          `json:"editedDx"`
	EditedDy  bool          `json:"editedDy"`
	Result    *Result       `json:"result,omitempty"`
	LastError string        `json:"lastError,omitempty"`
}
