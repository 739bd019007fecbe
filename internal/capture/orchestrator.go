// Package capture sequences the screenshot pipeline: hide the selection UI,
// capture the viewport, restore the UI, crop to the selection and upload.
package capture

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/harlley/mekane-share/internal/crop"
	"github.com/harlley/mekane-share/internal/logger"
	"github.com/harlley/mekane-share/internal/types"
	"github.com/harlley/mekane-share/internal/uploadclient"
)

// defaultSettleDelay gives the page a beat to repaint after the selection UI
// is hidden; the capture call itself is asynchronous but the hide is not
// guaranteed to have painted yet.
const defaultSettleDelay = 100 * time.Millisecond

// ErrCaptureInFlight rejects a second capture while one is still running.
var ErrCaptureInFlight = errors.New("a capture is already in flight")

// Uploader sends a finished image to the storage server.
type Uploader interface {
	Upload(ctx context.Context, image []byte, meta types.UploadMetadata) uploadclient.Result
}

// Options configure an Orchestrator.
type Options struct {
	Screen   Screen
	Page     Page
	Uploader Uploader
	// Metadata is the template attached to every upload; the timestamp is
	// stamped per capture.
	Metadata types.UploadMetadata
	// SettleDelay overrides the post-hide repaint delay.
	SettleDelay time.Duration
	// Clock and Sleeper are injectable for tests.
	Clock   func() time.Time
	Sleeper func(context.Context, time.Duration) error
}

// Orchestrator runs one capture pipeline at a time.
type Orchestrator struct {
	screen      Screen
	page        Page
	uploader    Uploader
	metadata    types.UploadMetadata
	settleDelay time.Duration
	clock       func() time.Time
	sleep       func(context.Context, time.Duration) error

	inFlight atomic.Bool
}

// New validates the wiring and returns an orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Screen == nil {
		return nil, errors.New("screen capturer must be provided")
	}
	if opts.Page == nil {
		return nil, errors.New("page context must be provided")
	}
	if opts.Uploader == nil {
		return nil, errors.New("uploader must be provided")
	}
	settle := opts.SettleDelay
	if settle <= 0 {
		settle = defaultSettleDelay
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = defaultSleeper
	}
	return &Orchestrator{
		screen:      opts.Screen,
		page:        opts.Page,
		uploader:    opts.Uploader,
		metadata:    opts.Metadata,
		settleDelay: settle,
		clock:       clock,
		sleep:       sleeper,
	}, nil
}

// Handle runs the full pipeline for one validated capture request.
//
// Stage failures before upload return a typed *PipelineError alongside a
// failed result. Upload failures do not error; the result's Success flag and
// failure code carry the outcome, mirroring the upload client's contract.
func (o *Orchestrator) Handle(ctx context.Context, req *CaptureRequested) (CaptureResult, error) {
	if !o.inFlight.CompareAndSwap(false, true) {
		return CaptureResult{Success: false, FailureCode: CodeBusy}, ErrCaptureInFlight
	}
	defer o.inFlight.Store(false)

	raw, err := o.captureWithHiddenUI(ctx)
	if err != nil {
		return CaptureResult{Success: false, FailureCode: CodeCaptureError}, err
	}

	dpr := o.devicePixelRatio(ctx)

	payload, fallback := o.cropPayload(ctx, raw, req.Area, dpr)

	meta := o.metadata
	meta.Timestamp = o.clock().UnixMilli()
	res := o.uploader.Upload(ctx, payload, meta)
	if !res.Success {
		return CaptureResult{Success: false, FailureCode: CodeUploadError}, nil
	}

	if fallback {
		logger.Warn(ctx, "uploaded full-page fallback", logger.Fields{"url": res.URL})
	}
	return CaptureResult{
		Success:          true,
		URL:              res.URL,
		ID:               res.ID,
		FullPageFallback: fallback,
	}, nil
}

// captureWithHiddenUI hides the selection UI, waits for the hide to paint,
// captures the viewport and restores the UI. The restore runs on the failure
// path too; hiding and restoring are both best-effort.
func (o *Orchestrator) captureWithHiddenUI(ctx context.Context) ([]byte, error) {
	handle, err := o.page.HideSelectionUI(ctx)
	if err != nil {
		logger.Warn(ctx, "hiding selection UI failed", logger.Fields{"error": err.Error()})
	} else if err := o.sleep(ctx, o.settleDelay); err != nil {
		return nil, NewCaptureError("cancelled while waiting for repaint", err)
	}

	raw, captureErr := o.screen.CaptureViewport(ctx)

	if handle.Valid() {
		if err := o.page.ShowSelectionUI(ctx, handle); err != nil {
			logger.Warn(ctx, "restoring selection UI failed", logger.Fields{"error": err.Error()})
		}
	}

	if captureErr != nil {
		return nil, NewCaptureError("viewport capture failed", captureErr)
	}
	return raw, nil
}

// devicePixelRatio queries the page, falling back to 1 on any failure.
func (o *Orchestrator) devicePixelRatio(ctx context.Context) float64 {
	dpr, err := o.page.DevicePixelRatio(ctx)
	if err != nil || dpr <= 0 {
		logger.Warn(ctx, "device pixel ratio unavailable, assuming 1", nil)
		return 1
	}
	return dpr
}

// cropPayload crops the raw capture to the selection. When any crop step
// fails the uncropped capture is uploaded instead, reported distinctly as a
// full-page fallback rather than failing the whole pipeline.
func (o *Orchestrator) cropPayload(ctx context.Context, raw []byte, area crop.Area, dpr float64) (payload []byte, fallback bool) {
	src, err := crop.DecodePNG(raw)
	if err != nil {
		logger.Error(ctx, "crop failed, falling back to full capture", NewCropError("decoding capture", err))
		return raw, true
	}
	cropped, err := crop.Crop(src, area, dpr)
	if err != nil {
		logger.Error(ctx, "crop failed, falling back to full capture", NewCropError("cropping capture", err))
		return raw, true
	}
	encoded, err := crop.EncodePNG(cropped)
	if err != nil {
		logger.Error(ctx, "crop failed, falling back to full capture", NewCropError("encoding crop", err))
		return raw, true
	}
	return encoded, false
}

func defaultSleeper(ctx context.Context, wait time.Duration) error {
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
