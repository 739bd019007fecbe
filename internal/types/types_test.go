package types

import (
	"encoding/json"
	"testing"
)

func TestNormalizeBaseURL(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"http://example.com", "http://example.com"},
		{"http://example.com/", "http://example.com"},
		{"http://example.com///", "http://example.com"},
		{"http://example.com/upload", "http://example.com"},
		{"http://example.com/upload/", "http://example.com"},
		{"  http://example.com/upload  ", "http://example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeBaseURL(tc.in); got != tc.want {
			t.Errorf("NormalizeBaseURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAllowedMIMEType(t *testing.T) {
	if !AllowedMIMEType("image/png") {
		t.Error("image/png should be allowed")
	}
	if !AllowedMIMEType("") {
		t.Error("empty declaration should be allowed")
	}
	if AllowedMIMEType("image/jpeg") {
		t.Error("image/jpeg should be rejected")
	}
	if AllowedMIMEType("text/html") {
		t.Error("text/html should be rejected")
	}
}

func TestParseUploadMetadata(t *testing.T) {
	meta := ParseUploadMetadata(`{"timestamp":1700000000000,"source":"ext","retention":14,"session":"abc"}`)
	if meta.Timestamp != 1700000000000 {
		t.Errorf("timestamp = %d", meta.Timestamp)
	}
	if meta.Source != "ext" {
		t.Errorf("source = %q", meta.Source)
	}
	if meta.Retention != 14 {
		t.Errorf("retention = %d", meta.Retention)
	}
	if meta.Extra["session"] != "abc" {
		t.Errorf("extra = %v", meta.Extra)
	}
}

func TestParseUploadMetadataDegradesToEmpty(t *testing.T) {
	cases := map[string]string{
		"invalid json":         `{not json`,
		"wrong typed source":   `{"source":42}`,
		"wrong typed retention": `{"retention":"week"}`,
		"retention too low":    `{"retention":0.5}`,
		"retention too high":   `{"retention":31}`,
		"empty field":          "",
		"whitespace":           "   ",
	}
	for name, field := range cases {
		if meta := ParseUploadMetadata(field); !meta.IsZero() {
			t.Errorf("%s: expected empty metadata, got %+v", name, meta)
		}
	}
}

func TestParseUploadMetadataRetentionBounds(t *testing.T) {
	if meta := ParseUploadMetadata(`{"retention":1}`); meta.Retention != 1 {
		t.Errorf("retention 1 should pass, got %+v", meta)
	}
	if meta := ParseUploadMetadata(`{"retention":30}`); meta.Retention != 30 {
		t.Errorf("retention 30 should pass, got %+v", meta)
	}
}

func TestUploadMetadataRoundTrip(t *testing.T) {
	in := UploadMetadata{
		Timestamp: 42,
		Source:    "cli",
		Retention: 7,
		Extra:     map[string]any{"tab": "news", "pinned": true},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out UploadMetadata
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Timestamp != in.Timestamp || out.Source != in.Source || out.Retention != in.Retention {
		t.Errorf("known fields did not round-trip: %+v", out)
	}
	if out.Extra["tab"] != "news" || out.Extra["pinned"] != true {
		t.Errorf("passthrough keys did not round-trip: %v", out.Extra)
	}
}
