package brush

import (
	"fmt"

	"github.com/matzehuels/gradlab/pkg/errors"
	"github.com/matzehuels/gradlab/pkg/layer"
)

// Tool is the active edit tool.
type Tool int

const (
	ToolDX      Tool = iota // additive edit of the dx channel
	ToolDY                  // additive edit of the dy channel
	ToolErase               // reset to neutral
	ToolSharpen             // low-opacity brighten, a contrast approximation
	ToolSmooth              // local blur of the delta field
)

// Tools lists every tool in display order.
var Tools = []Tool{ToolDX, ToolDY, ToolErase, ToolSharpen, ToolSmooth}

func (t Tool) String() string {
	switch t {
	case ToolDX:
		return "dx"
	case ToolDY:
		return "dy"
	case ToolErase:
		return "erase"
	case ToolSharpen:
		return "sharpen"
	case ToolSmooth:
		return "smooth"
	default:
		return fmt.Sprintf("Tool(%d)", int(t))
	}
}

// ParseTool converts a tool name to a Tool.
func ParseTool(s string) (Tool, error) {
	for _, t := range Tools {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, errors.New(errors.ErrCodeUnsupportedTool, "unknown tool %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (t Tool) MarshalText() ([]byte, error) {
	if t < ToolDX || t > ToolSmooth {
		return nil, errors.New(errors.ErrCodeUnsupportedTool, "unknown tool %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tool) UnmarshalText(b []byte) error {
	v, err := ParseTool(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Channel returns the channel a channel-bound tool edits. ok is false for
// channel-agnostic tools.
func (t Tool) Channel() (c layer.Channel, ok bool) {
	switch t {
	case ToolDX:
		return layer.DX, true
	case ToolDY:
		return layer.DY, true
	default:
		return 0, false
	}
}

// CanEdit reports whether tool may paint while tab is the active view.
//
// Only editable channels accept strokes. A channel-bound tool must match the
// tab; erase, sharpen and smooth work on whichever channel is shown. This keeps
// a dx stroke from landing on the dy layer.
func CanEdit(tab layer.Channel, tool Tool) bool {
	if !tab.Editable() {
		return false
	}
	switch tool {
	case ToolDX, ToolDY:
		c, _ := tool.Channel()
		return c == tab
	case ToolErase, ToolSharpen, ToolSmooth:
		return true
	default:
		return false
	}
}
