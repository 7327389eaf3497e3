package camera_test

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/dronechase/components/camera"
	"go.viam.com/dronechase/components/camera/fake"
	"go.viam.com/dronechase/rimage"
)

func TestFrameBuffer(t *testing.T) {
	ctx := context.Background()
	fb := camera.NewFrameBuffer()

	first := image.NewGray(image.Rect(0, 0, 1, 1))
	second := image.NewGray(image.Rect(0, 0, 2, 2))
	fb.Put(first)
	fb.Put(second)

	// only the latest frame is handed out
	img, err := fb.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img, test.ShouldEqual, second)

	// nothing new yet
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = fb.Next(shortCtx)
	test.That(t, errors.Is(err, context.DeadlineExceeded), test.ShouldBeTrue)

	go func() {
		time.Sleep(10 * time.Millisecond)
		fb.Put(first)
	}()
	img, err = fb.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img, test.ShouldEqual, first)

	fb.Put(second)
	fb.Fail(nil)
	// a frame put before the failure is still delivered
	img, err = fb.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img, test.ShouldEqual, second)
	_, err = fb.Next(ctx)
	test.That(t, err, test.ShouldEqual, camera.ErrEndOfStream)

	// later frames and failures are ignored
	fb.Put(first)
	fb.Fail(errors.New("late"))
	_, err = fb.Next(ctx)
	test.That(t, err, test.ShouldEqual, camera.ErrEndOfStream)
}

func TestOrientedCamera(t *testing.T) {
	ctx := context.Background()
	frame := imaging.New(720, 960, color.Black)
	frame.Set(0, 0, color.White)

	cam, err := camera.NewOriented(fake.NewCamera(frame), rimage.Orientation{Rotate: 90}, 960, 720)
	test.That(t, err, test.ShouldBeNil)
	img, err := cam.Next(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 960, 720))
	r, _, _, _ := img.At(959, 0).RGBA()
	test.That(t, r, test.ShouldEqual, uint32(0xffff))

	_, err = cam.Next(ctx)
	test.That(t, err, test.ShouldEqual, camera.ErrEndOfStream)
	test.That(t, cam.Close(ctx), test.ShouldBeNil)

	_, err = camera.NewOriented(fake.NewCamera(), rimage.Orientation{Rotate: 30}, 960, 720)
	test.That(t, err, test.ShouldNotBeNil)
}
