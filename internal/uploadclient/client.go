// Package uploadclient posts cropped screenshots to the storage server and
// normalizes the response into a share result.
package uploadclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"time"

	"github.com/harlley/mekane-share/internal/logger"
	"github.com/harlley/mekane-share/internal/types"
)

// Multipart field names expected by the server.
const (
	fieldScreenshot = "screenshot"
	fieldMetadata   = "metadata"
)

// Result is the normalized outcome of an upload attempt. Success is false on
// any network, protocol or parse failure; the caller decides what to surface.
type Result struct {
	Success   bool
	URL       string
	ID        string
	ExpiresAt string
}

// Client uploads screenshots to a configured server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New builds a client for the given base URL. A pasted upload endpoint or a
// trailing slash both normalize to the bare server URL.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    types.NormalizeBaseURL(baseURL),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the normalized server URL the client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Upload posts one image with its metadata. Single attempt, no retry, and no
// error escapes: every failure path returns Result{Success: false}.
func (c *Client) Upload(ctx context.Context, image []byte, meta types.UploadMetadata) Result {
	body, contentType, err := buildMultipartBody(image, meta)
	if err != nil {
		logger.Error(ctx, "building upload body failed", err)
		return Result{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", body)
	if err != nil {
		logger.Error(ctx, "creating upload request failed", err)
		return Result{}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error(ctx, "upload request failed", err)
		return Result{}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr types.APIError
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)
		logger.Warn(ctx, "server rejected upload", logger.Fields{
			"status": resp.StatusCode,
			"code":   apiErr.Code,
		})
		return Result{}
	}

	var parsed types.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		logger.Error(ctx, "decoding upload response failed", err)
		return Result{}
	}
	if !parsed.Success || parsed.ID == "" {
		logger.Warn(ctx, "upload response missing id")
		return Result{}
	}

	shareURL := parsed.URL
	// A server left on its default configuration hands back loopback links;
	// rebuild those against the URL the client was actually configured with.
	if isLoopbackURL(shareURL) && !isLoopbackURL(c.baseURL) {
		shareURL = c.baseURL + "/" + parsed.ID
	}

	return Result{
		Success:   true,
		URL:       shareURL,
		ID:        parsed.ID,
		ExpiresAt: parsed.ExpiresAt,
	}
}

func buildMultipartBody(image []byte, meta types.UploadMetadata) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="screenshot.png"`, fieldScreenshot))
	header.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(image); err != nil {
		return nil, "", err
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, "", err
	}
	if err := writer.WriteField(fieldMetadata, string(metaJSON)); err != nil {
		return nil, "", err
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return body, writer.FormDataContentType(), nil
}

func isLoopbackURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
