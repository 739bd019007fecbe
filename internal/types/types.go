// Package types holds the wire-level types and constants shared between the
// capture client and the storage server.
package types

import (
	"encoding/json"
	"errors"
	"strings"
)

const (
	// MaxFileSize is the largest screenshot payload accepted by the server.
	MaxFileSize = 5 * 1024 * 1024

	// DefaultRetentionDays applies when an upload carries no retention value.
	DefaultRetentionDays = 7

	// MinRetentionDays and MaxRetentionDays bound the accepted retention range.
	MinRetentionDays = 1
	MaxRetentionDays = 30
)

// AllowedMIMETypes lists the content types the server stores.
var AllowedMIMETypes = []string{"image/png"}

// Error codes returned in the `code` field of error responses.
const (
	CodeMissingFile    = "MISSING_FILE"
	CodeFileTooLarge   = "FILE_TOO_LARGE"
	CodeInvalidFormat  = "INVALID_FORMAT"
	CodeStorageError   = "STORAGE_ERROR"
	CodeUploadError    = "UPLOAD_ERROR"
	CodeNotFound       = "NOT_FOUND"
	CodeRetrievalError = "RETRIEVAL_ERROR"
	CodeMissingID      = "MISSING_ID"
	CodeInternalError  = "INTERNAL_ERROR"
)

// Validation errors raised by the storage service and mapped to 400 responses.
var (
	ErrFileTooLarge  = errors.New("file exceeds maximum allowed size")
	ErrInvalidFormat = errors.New("file format is not allowed")
)

// AllowedMIMEType reports whether a declared content type is in the allow-list.
// An empty declaration is accepted; the stored object then defaults to PNG.
func AllowedMIMEType(contentType string) bool {
	if contentType == "" {
		return true
	}
	for _, t := range AllowedMIMETypes {
		if contentType == t {
			return true
		}
	}
	return false
}

// UploadMetadata is the client-supplied metadata attached to an upload.
// Unknown keys are preserved in Extra and round-trip through JSON untouched.
type UploadMetadata struct {
	Timestamp int64
	Source    string
	Retention int
	Extra     map[string]any
}

// IsZero reports whether no metadata was supplied at all.
func (m UploadMetadata) IsZero() bool {
	return m.Timestamp == 0 && m.Source == "" && m.Retention == 0 && len(m.Extra) == 0
}

// MarshalJSON merges the known fields with the passthrough keys.
func (m UploadMetadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+3)
	for k, v := range m.Extra {
		out[k] = v
	}
	if m.Timestamp != 0 {
		out["timestamp"] = m.Timestamp
	}
	if m.Source != "" {
		out["source"] = m.Source
	}
	if m.Retention != 0 {
		out["retention"] = m.Retention
	}
	return json.Marshal(out)
}

// UnmarshalJSON pulls out the known fields and keeps everything else in Extra.
func (m *UploadMetadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = UploadMetadata{}
	for k, v := range raw {
		switch k {
		case "timestamp":
			n, ok := v.(float64)
			if !ok {
				return errors.New("timestamp must be a number")
			}
			m.Timestamp = int64(n)
		case "source":
			s, ok := v.(string)
			if !ok {
				return errors.New("source must be a string")
			}
			m.Source = s
		case "retention":
			n, ok := v.(float64)
			if !ok {
				return errors.New("retention must be a number")
			}
			m.Retention = int(n)
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

// ParseUploadMetadata decodes the metadata form field defensively. Invalid
// JSON, a wrong-typed field, or an out-of-range retention all degrade to empty
// metadata rather than failing the upload.
func ParseUploadMetadata(field string) UploadMetadata {
	if strings.TrimSpace(field) == "" {
		return UploadMetadata{}
	}
	var meta UploadMetadata
	if err := json.Unmarshal([]byte(field), &meta); err != nil {
		return UploadMetadata{}
	}
	if meta.Retention != 0 && (meta.Retention < MinRetentionDays || meta.Retention > MaxRetentionDays) {
		return UploadMetadata{}
	}
	return meta
}

// UploadResponse is the JSON body returned on a successful upload.
type UploadResponse struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	ID        string `json:"id"`
	ExpiresAt string `json:"expiresAt"`
}

// APIError is the JSON body returned on any failed request.
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// NormalizeBaseURL strips trailing slashes and a trailing /upload suffix so
// that a pasted upload endpoint and a bare server URL configure identically.
func NormalizeBaseURL(raw string) string {
	url := strings.TrimSpace(raw)
	for strings.HasSuffix(url, "/") {
		url = strings.TrimSuffix(url, "/")
	}
	if strings.HasSuffix(url, "/upload") {
		url = strings.TrimSuffix(url, "/upload")
	}
	return url
}
