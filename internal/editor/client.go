package editor

import (
	"alcyxob/composer/internal/domain"
	"alcyxob/composer/internal/service"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const defaultClientTimeout = 60 * time.Second

// API is the part of the composition HTTP surface the session talks to.
type API interface {
	GetComposition(ctx context.Context, id string) (*domain.Composition, error)
	UpdateComposition(ctx context.Context, id string, state SaveRequest) (*domain.Composition, error)
	AttachMedia(ctx context.Context, id string, upload MediaUpload) (*domain.Composition, error)
}

// SaveRequest is the full desired state sent on save.
type SaveRequest struct {
	Title           *string            `json:"title,omitempty"`
	CompositionType string             `json:"compositionType"`
	BackgroundColor string             `json:"backgroundColor"`
	Elements        []domain.Element   `json:"elements"`
	MediaFiles      []domain.MediaFile `json:"mediaFiles"`
}

// MediaUpload is one file to attach through the add-media endpoint.
type MediaUpload struct {
	Filename     string
	Content      io.Reader
	FileType     domain.MediaType // optional; the server detects the kind otherwise
	IsBackground *bool
}

// APIError is a non-2xx response. It unwraps to the matching service error so
// callers can test it with errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Reason     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("api error %d (%s/%s): %s", e.StatusCode, e.Code, e.Reason, e.Message)
	}
	return fmt.Sprintf("api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "not_found":
		return service.ErrCompositionNotFound
	case "validation_error":
		return service.ErrValidation
	case "unsupported_media":
		return &service.UnsupportedMediaError{Reason: service.UnsupportedMediaReason(e.Reason), Detail: e.Message}
	}
	if e.StatusCode == http.StatusNotFound {
		return service.ErrCompositionNotFound
	}
	return service.ErrStorage
}

// HTTPClient implements API against a running server.
type HTTPClient struct {
	baseURL *url.URL
	token   string
	http    *http.Client
}

type ClientOption func(*HTTPClient)

// WithToken sends the bearer token on every request.
func WithToken(token string) ClientOption {
	return func(c *HTTPClient) { c.token = token }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// NewHTTPClient builds a client for the server at baseURL, e.g. "http://localhost:5000".
func NewHTTPClient(baseURL string, opts ...ClientOption) (*HTTPClient, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}
	c := &HTTPClient{baseURL: u, http: &http.Client{Timeout: defaultClientTimeout}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *HTTPClient) GetComposition(ctx context.Context, id string) (*domain.Composition, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.mediaPath(id), nil)
	if err != nil {
		return nil, err
	}
	return c.doComposition(req)
}

func (c *HTTPClient) UpdateComposition(ctx context.Context, id string, state SaveRequest) (*domain.Composition, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("encode save request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPut, c.mediaPath(id), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doComposition(req)
}

func (c *HTTPClient) AttachMedia(ctx context.Context, id string, upload MediaUpload) (*domain.Composition, error) {
	if upload.Content == nil {
		return nil, fmt.Errorf("%w: no file supplied", service.ErrValidation)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if upload.FileType != "" {
		if err := w.WriteField("fileType", string(upload.FileType)); err != nil {
			return nil, err
		}
	}
	if upload.IsBackground != nil {
		if err := w.WriteField("isBackground", strconv.FormatBool(*upload.IsBackground)); err != nil {
			return nil, err
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="media"; filename=%q`, filepath.Base(upload.Filename)))
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(upload.Filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, upload.Content); err != nil {
		return nil, fmt.Errorf("read upload %s: %w", upload.Filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.mediaPath(id, "add-media"), &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return c.doComposition(req)
}

func (c *HTTPClient) mediaPath(id string, rest ...string) string {
	parts := append([]string{"api", "media", id}, rest...)
	return c.baseURL.JoinPath(parts...).String()
}

func (c *HTTPClient) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *HTTPClient) doComposition(req *http.Request) (*domain.Composition, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, decodeAPIError(resp)
	}
	var composition domain.Composition
	if err := json.NewDecoder(resp.Body).Decode(&composition); err != nil {
		return nil, fmt.Errorf("decode composition: %w", err)
	}
	return &composition, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	var body struct {
		Error  string `json:"error"`
		Code   string `json:"code"`
		Reason string `json:"reason"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
		return apiErr
	}
	apiErr.Code, apiErr.Reason, apiErr.Message = body.Code, body.Reason, body.Error
	return apiErr
}

var _ API = (*HTTPClient)(nil)
