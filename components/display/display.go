// Package display shows composited game frames and reports the keyboard state of the window
// showing them.
package display

import (
	"context"
	"image"

	"go.viam.com/dronechase/components/input"
)

// A Display renders frames and is the source of player input.
type Display interface {
	input.Controller

	// Show presents img until the next call.
	Show(ctx context.Context, img image.Image) error

	Close() error
}
