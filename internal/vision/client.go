// Package vision talks to the biometric inference sidecar. It implements the
// collaborator ports of the verification pipeline over HTTP.
package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kycgate/internal/verification/models"
	"kycgate/internal/verification/ports"
)

var (
	_ ports.EmbeddingExtractor = (*Client)(nil)
	_ ports.FrameExtractor     = (*Client)(nil)
	_ ports.LivenessScorer     = (*Client)(nil)
	_ ports.SpoofScorer        = (*Client)(nil)
)

const (
	maxResponseBytes = 32 << 20
	jpegQuality      = 90
)

type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New returns a client for the sidecar at baseURL. timeout bounds each call.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid vision url %q", baseURL)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c, nil
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// ExtractEmbedding returns nil when the sidecar finds no face.
func (c *Client) ExtractEmbedding(ctx context.Context, img image.Image) ([]float64, error) {
	const op = "embedding"
	body, err := encodeJPEG(img)
	if err != nil {
		return nil, newError(ErrorBadData, op, "encode image", err)
	}
	var resp embeddingResponse
	if err := c.post(ctx, op, "/v1/embedding", "image/jpeg", body, &resp); err != nil {
		return nil, err
	}
	return resp.Embedding, nil
}

type framesResponse struct {
	Frames []string `json:"frames"`
}

func (c *Client) ExtractFrames(ctx context.Context, video []byte, max int) ([]image.Image, error) {
	const op = "frames"
	var resp framesResponse
	path := "/v1/frames?max=" + strconv.Itoa(max)
	if err := c.post(ctx, op, path, "application/octet-stream", video, &resp); err != nil {
		return nil, err
	}
	if len(resp.Frames) > max {
		resp.Frames = resp.Frames[:max]
	}
	frames := make([]image.Image, 0, len(resp.Frames))
	for i, enc := range resp.Frames {
		raw, err := base64.StdEncoding.DecodeString(enc)
		if err != nil {
			return nil, newError(ErrorBadData, op, fmt.Sprintf("frame %d is not base64", i), err)
		}
		img, err := jpeg.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, newError(ErrorBadData, op, fmt.Sprintf("frame %d is not a jpeg", i), err)
		}
		frames = append(frames, img)
	}
	return frames, nil
}

// ScoreLiveness returns an error wrapping ports.ErrLivenessUnavailable when
// the sidecar is down.
func (c *Client) ScoreLiveness(ctx context.Context, video []byte) (models.LivenessSignal, error) {
	var sig models.LivenessSignal
	err := c.post(ctx, "liveness", "/v1/liveness", "application/octet-stream", video, &sig)
	if CategoryOf(err) == ErrorOutage {
		return models.LivenessSignal{}, fmt.Errorf("%w: %w", ports.ErrLivenessUnavailable, err)
	}
	if err != nil {
		return models.LivenessSignal{}, err
	}
	return sig, nil
}

type spoofResponse struct {
	Risk *float64 `json:"risk"`
}

func (c *Client) SpoofRisk(ctx context.Context, frames []image.Image) (float64, error) {
	const op = "spoof_risk"
	encoded := make([]string, len(frames))
	for i, f := range frames {
		b, err := encodeJPEG(f)
		if err != nil {
			return 0, newError(ErrorBadData, op, fmt.Sprintf("encode frame %d", i), err)
		}
		encoded[i] = base64.StdEncoding.EncodeToString(b)
	}
	body, err := json.Marshal(encoded)
	if err != nil {
		return 0, newError(ErrorInternal, op, "encode request", err)
	}
	var resp spoofResponse
	if err := c.post(ctx, op, "/v1/spoof-risk", "application/json", body, &resp); err != nil {
		return 0, err
	}
	if resp.Risk == nil {
		return 0, newError(ErrorBadData, op, "response has no risk", nil)
	}
	return *resp.Risk, nil
}

// Health reports whether the sidecar answers its health endpoint.
func (c *Client) Health(ctx context.Context) error {
	const op = "health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return newError(ErrorInternal, op, "create request", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(op, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(op, resp.StatusCode, nil)
	}
	return nil
}

func (c *Client) post(ctx context.Context, op, path, contentType string, body []byte, out any) error {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return newError(ErrorInternal, op, "create request", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		verr := classifyTransport(op, err)
		c.logger.WarnContext(ctx, "vision call failed",
			"operation", op,
			"category", verr.Category,
			"error", err,
		)
		return verr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return classifyTransport(op, err)
	}
	c.logger.DebugContext(ctx, "vision call",
		"operation", op,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if resp.StatusCode != http.StatusOK {
		return classifyStatus(op, resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return newError(ErrorBadData, op, "decode response", err)
	}
	return nil
}

func classifyTransport(op string, err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return newError(ErrorTimeout, op, "deadline exceeded", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return newError(ErrorTimeout, op, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return newError(ErrorInternal, op, "request canceled", err)
	default:
		return newError(ErrorOutage, op, "sidecar unreachable", err)
	}
}

func classifyStatus(op string, status int, body []byte) *Error {
	msg := fmt.Sprintf("unexpected status %d", status)
	if len(body) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, truncate(string(body), 200))
	}
	switch {
	case status == http.StatusGatewayTimeout:
		return newError(ErrorTimeout, op, msg, nil)
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway:
		return newError(ErrorOutage, op, msg, nil)
	case status == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, op, msg, nil)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return newError(ErrorAuthentication, op, msg, nil)
	case status == http.StatusNotFound, status == http.StatusMethodNotAllowed:
		return newError(ErrorContractMismatch, op, msg, nil)
	case status >= 400 && status < 500:
		return newError(ErrorBadData, op, msg, nil)
	default:
		return newError(ErrorInternal, op, msg, nil)
	}
}

func encodeJPEG(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
