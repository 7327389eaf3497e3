package display

import (
	"time"

	"go.viam.com/dronechase/components/input"
)

// WindowConfig configures how a Window interprets key events.
type WindowConfig struct {
	// KeyHold is how long a key stays pressed after its last event.
	KeyHold time.Duration
	// KeyCodes is the convention WaitKey reports keys in.
	KeyCodes input.KeyCodes
}

// DefaultWindowConfig returns the configuration used when none is given.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{KeyHold: input.DefaultKeyHold, KeyCodes: input.FullKeyCodes}
}
