package rimage

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Screenshot prefixes.
const (
	// ScreenshotRaw names the camera frame as received from the drone.
	ScreenshotRaw = "Tello"
	// ScreenshotComposited names the frame with the target and HUD drawn on it.
	ScreenshotComposited = "Game"
)

// ScreenshotName returns the file name of a screenshot taken at t, e.g. Game-14-05.jpg.
func ScreenshotName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s-%02d-%02d.jpg", prefix, t.Hour(), t.Minute())
}

// SaveScreenshot writes img as a JPEG into dir, creating dir when needed. It returns the path
// written to. A screenshot taken in the same minute replaces the previous one.
func SaveScreenshot(dir, prefix string, img image.Image, t time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrapf(err, "cannot create screenshot directory %q", dir)
	}
	path := filepath.Join(dir, ScreenshotName(prefix, t))
	if err := imaging.Save(img, path, imaging.JPEGQuality(90)); err != nil {
		return "", errors.Wrapf(err, "cannot save screenshot %q", path)
	}
	return path, nil
}
