// Package main serves a page showing the displacement estimated between two frames, with a
// line from every kept keypoint of the first frame to its match in the second.
package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/color"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/dronechase/logging"
	"go.viam.com/dronechase/rimage"
	"go.viam.com/dronechase/vision/keypoints"
	"go.viam.com/dronechase/vision/keypoints/cvorb"
	"go.viam.com/dronechase/vision/odometry"
)

const defaultPort = 8080

var (
	logger        = logging.NewLogger("estimate-motion")
	imageTemplate = template.Must(template.New("image").Parse(`<!DOCTYPE html>
<html lang="en"><head></head>
<body>
<p>{{.Summary}}</p>
<img src="data:image/jpg;base64,{{.Image}}">
</body>
`))
	matchColor = color.RGBA{255, 200, 0, 255}
)

// Arguments for the command.
type Arguments struct {
	Previous    string            `flag:"0,required,usage=previous frame"`
	Current     string            `flag:"1,required,usage=current frame"`
	Port        utils.NetPortFlag `flag:"port,usage=port to listen on"`
	KeepPercent int               `flag:"keep,default=10,usage=percentage of best matches to average"`
	CrossCheck  bool              `flag:"cross-check,usage=only keep mutual best matches"`
}

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

func mainWithArgs(ctx context.Context, args []string, logger logging.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	if argsParsed.Port == 0 {
		argsParsed.Port = utils.NetPortFlag(defaultPort)
	}
	keepFraction := float64(argsParsed.KeepPercent) / 100

	mux := http.NewServeMux()
	mux.HandleFunc("/orb/", func(w http.ResponseWriter, r *http.Request) {
		est, img, err := RunMotionEstimation(argsParsed.Previous, argsParsed.Current, keepFraction,
			argsParsed.CrossCheck, logger)
		if err != nil {
			logger.Errorw("motion estimation failed", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeImageWithTemplate(w, img, summary(est))
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", int(argsParsed.Port)),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	utils.PanicCapturingGo(func() {
		<-ctx.Done()
		utils.UncheckedError(server.Shutdown(context.Background()))
	})
	logger.Infof("Images can be visualized at http://localhost:%d/orb/", int(argsParsed.Port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func summary(est odometry.Estimate) string {
	if !est.OK {
		return "no reliable estimate"
	}
	return fmt.Sprintf("dx %.2fpx, dy %.2fpx, dsize %.2fpx over %d matches", est.DX, est.DY, est.DSize, est.Kept)
}

// writeImageWithTemplate encodes img in jpeg format and writes it into w using a template.
func writeImageWithTemplate(w http.ResponseWriter, img image.Image, text string) {
	buffer := new(bytes.Buffer)
	if err := imaging.Encode(buffer, img, imaging.JPEG); err != nil {
		http.Error(w, "unable to encode image", http.StatusInternalServerError)
		return
	}
	data := map[string]interface{}{
		"Summary": text,
		"Image":   base64.StdEncoding.EncodeToString(buffer.Bytes()),
	}
	if err := imageTemplate.Execute(w, data); err != nil {
		logger.Errorw("unable to execute template", "error", err)
	}
}

// RunMotionEstimation estimates the displacement from the frame at prevPath to the frame at
// currPath. The returned image is the current frame with every detected keypoint and the kept
// matches drawn over it.
func RunMotionEstimation(
	prevPath, currPath string,
	keepFraction float64,
	crossCheck bool,
	logger logging.Logger,
) (odometry.Estimate, image.Image, error) {
	prev, err := imaging.Open(prevPath)
	if err != nil {
		return odometry.Estimate{}, nil, err
	}
	curr, err := imaging.Open(currPath)
	if err != nil {
		return odometry.Estimate{}, nil, err
	}

	if keepFraction <= 0 || keepFraction > 1 {
		keepFraction = odometry.DefaultKeepFraction
	}

	detector := cvorb.NewDetector(cvorb.ORBConfig{})
	defer func() {
		utils.UncheckedError(detector.Close())
	}()
	prevFeatures, err := detector.Detect(rimage.MakeGray(prev))
	if err != nil {
		return odometry.Estimate{}, nil, err
	}
	currFeatures, err := detector.Detect(rimage.MakeGray(curr))
	if err != nil {
		return odometry.Estimate{}, nil, err
	}

	matcher := keypoints.NewBruteForceMatcher(keypoints.MatchingConfig{DoCrossCheck: crossCheck})
	est, err := odometry.EstimateDisplacement(prevFeatures, currFeatures, matcher, keepFraction)
	if err != nil {
		return odometry.Estimate{}, nil, err
	}
	logger.Infow("estimated displacement",
		"dx", est.DX, "dy", est.DY, "dsize", est.DSize,
		"kept", est.Kept, "detected", currFeatures.Len())

	out := keypoints.PlotKeypoints(curr, currFeatures.KeyPoints)
	return est, keypoints.PlotMatchedLines(out, est.Prev, est.Curr, matchColor), nil
}
