package capture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/harlley/mekane-share/internal/crop"
)

// MessageTypeCaptureScreenshot is the wire tag of a capture request. The
// format must round-trip unchanged: {"type":"CAPTURE_SCREENSHOT","area":{...}}.
const MessageTypeCaptureScreenshot = "CAPTURE_SCREENSHOT"

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidArea    = errors.New("selection area must have positive width and height")
)

// CaptureRequested is the validated event an incoming capture message becomes.
// The orchestrator only ever sees well-typed events, never raw payloads.
type CaptureRequested struct {
	Area crop.Area
}

// CaptureResult reports the outcome back to the requester. FullPageFallback
// marks an upload that carries the uncropped capture because cropping failed.
type CaptureResult struct {
	Success          bool   `json:"success"`
	URL              string `json:"url,omitempty"`
	ID               string `json:"id,omitempty"`
	FullPageFallback bool   `json:"fullPageFallback,omitempty"`
	FailureCode      string `json:"failureCode,omitempty"`
}

// wireMessage is the raw cross-context envelope.
type wireMessage struct {
	Type string    `json:"type"`
	Area crop.Area `json:"area"`
}

// ParseMessage validates a raw message at the boundary and returns the typed
// event.
func ParseMessage(data []byte) (*CaptureRequested, error) {
	var msg wireMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}
	if msg.Type != MessageTypeCaptureScreenshot {
		return nil, fmt.Errorf("%q: %w", msg.Type, ErrUnknownMessage)
	}
	if !msg.Area.Valid() {
		return nil, ErrInvalidArea
	}
	return &CaptureRequested{Area: msg.Area}, nil
}

// EncodeMessage renders a capture request back into its wire form.
func EncodeMessage(req CaptureRequested) ([]byte, error) {
	return json.Marshal(wireMessage{
		Type: MessageTypeCaptureScreenshot,
		Area: req.Area,
	})
}
