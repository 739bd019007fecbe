package capture

import "context"

// Screen is the privileged viewport capture operation. Implementations return
// a PNG of the full visible viewport at device-pixel resolution.
type Screen interface {
	CaptureViewport(ctx context.Context) ([]byte, error)
}

// OverlayHandle identifies one hidden overlay so the exact element that was
// hidden is the one restored, with no shared singleton in between.
type OverlayHandle struct {
	id string
}

// Valid reports whether the handle refers to a hidden overlay.
func (h OverlayHandle) Valid() bool {
	return h.id != ""
}

// NewOverlayHandle tags a hidden overlay. Exported for Page implementations.
func NewOverlayHandle(id string) OverlayHandle {
	return OverlayHandle{id: id}
}

// ID returns the implementation-specific overlay identifier.
func (h OverlayHandle) ID() string {
	return h.id
}

// Page is the scripted page context the pipeline runs against: hiding and
// restoring the selection UI around the capture, and reading the display's
// device pixel ratio.
type Page interface {
	HideSelectionUI(ctx context.Context) (OverlayHandle, error)
	ShowSelectionUI(ctx context.Context, handle OverlayHandle) error
	DevicePixelRatio(ctx context.Context) (float64, error)
}
