// Command capture runs the screenshot pipeline against a PNG file: it plays
// the role of the privileged capture surface so the crop and upload stages can
// be exercised end to end from the command line.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/harlley/mekane-share/internal/capture"
	"github.com/harlley/mekane-share/internal/clientconfig"
	"github.com/harlley/mekane-share/internal/crop"
	"github.com/harlley/mekane-share/internal/logger"
	"github.com/harlley/mekane-share/internal/types"
	"github.com/harlley/mekane-share/internal/uploadclient"
)

func main() {
	logger.Init("capture")

	var (
		configPath = flag.String("config", "capture.yaml", "path to the client configuration file")
		input      = flag.String("input", "", "PNG file standing in for the captured viewport")
		x          = flag.Float64("x", 0, "selection origin x in CSS pixels")
		y          = flag.Float64("y", 0, "selection origin y in CSS pixels")
		width      = flag.Float64("width", 0, "selection width in CSS pixels")
		height     = flag.Float64("height", 0, "selection height in CSS pixels")
		dpr        = flag.Float64("dpr", 1, "device pixel ratio of the capture")
		server     = flag.String("server", "", "override the configured server base URL")
	)
	flag.Parse()

	ctx := context.Background()

	if *input == "" {
		fatalf("an -input PNG file is required")
	}

	cfg, err := clientconfig.Load(*configPath)
	if err != nil {
		fatalf("loading configuration: %v", err)
	}
	baseURL := cfg.Server.BaseURL
	if *server != "" {
		baseURL = types.NormalizeBaseURL(*server)
	}

	orch, err := capture.New(capture.Options{
		Screen:   &fileScreen{path: *input},
		Page:     &staticPage{dpr: *dpr},
		Uploader: uploadclient.New(baseURL, cfg.Timeout()),
		Metadata: types.UploadMetadata{
			Source:    cfg.Capture.Source,
			Retention: cfg.Capture.RetentionDays,
		},
		SettleDelay: cfg.SettleDelay(),
	})
	if err != nil {
		fatalf("building pipeline: %v", err)
	}

	// Requests enter through the same wire format a remote caller would use.
	raw, err := capture.EncodeMessage(capture.CaptureRequested{
		Area: crop.Area{X: *x, Y: *y, Width: *width, Height: *height},
	})
	if err != nil {
		fatalf("encoding request: %v", err)
	}
	req, err := capture.ParseMessage(raw)
	if err != nil {
		fatalf("invalid capture request: %v", err)
	}

	result, err := orch.Handle(ctx, req)
	if err != nil {
		fatalf("capture failed: %v", err)
	}
	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if !result.Success {
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// fileScreen satisfies the viewport capture interface by reading a PNG from
// disk.
type fileScreen struct {
	path string
}

func (f *fileScreen) CaptureViewport(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, capture.NewTabError("reading capture source", err)
	}
	return data, nil
}

// staticPage is a page context with a fixed device pixel ratio and no visible
// selection UI to hide.
type staticPage struct {
	dpr float64
}

func (p *staticPage) HideSelectionUI(_ context.Context) (capture.OverlayHandle, error) {
	return capture.NewOverlayHandle("cli"), nil
}

func (p *staticPage) ShowSelectionUI(_ context.Context, _ capture.OverlayHandle) error {
	return nil
}

func (p *staticPage) DevicePixelRatio(_ context.Context) (float64, error) {
	return p.dpr, nil
}
