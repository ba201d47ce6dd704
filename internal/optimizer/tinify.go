package optimizer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/assetvault/service/internal/apperr"
	"github.com/assetvault/service/internal/httpclient"
	"github.com/assetvault/service/internal/media"
)

const (
	defaultTinifyEndpoint = "https://api.tinify.com"
	defaultTinifyTimeout  = 60 * time.Second
	maxOutputBytes        = 64 << 20
)

// TinifyConfig configures the TinyPNG API client.
type TinifyConfig struct {
	APIKey   string
	Endpoint string
	Timeout  time.Duration
	// RPS caps outgoing calls per second; zero or less disables the cap.
	RPS float64
}

func (c TinifyConfig) endpoint() string {
	if c.Endpoint == "" {
		return defaultTinifyEndpoint
	}
	return strings.TrimRight(c.Endpoint, "/")
}

// Tinify optimizes images through the TinyPNG REST API: the input is
// shrunk first, then the stored output is fetched with optional resize and
// convert instructions.
type Tinify struct {
	cfg     TinifyConfig
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewTinify builds a client for cfg.
func NewTinify(cfg TinifyConfig, log *slog.Logger) *Tinify {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTinifyTimeout
	}
	limit, burst := rate.Inf, 1
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
		if b := int(cfg.RPS); b > 1 {
			burst = b
		}
	}
	return &Tinify{
		cfg:     cfg,
		client:  httpclient.New(timeout),
		limiter: rate.NewLimiter(limit, burst),
		log:     log,
	}
}

type shrinkResponse struct {
	Output struct {
		Size   int64  `json:"size"`
		Type   string `json:"type"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	} `json:"output"`
}

type outputRequest struct {
	Resize    *resizeOptions    `json:"resize,omitempty"`
	Convert   *convertOptions   `json:"convert,omitempty"`
	Transform *transformOptions `json:"transform,omitempty"`
}

type resizeOptions struct {
	Method string `json:"method"`
	Width  *int   `json:"width,omitempty"`
	Height *int   `json:"height,omitempty"`
}

type convertOptions struct {
	Type string `json:"type"`
}

type transformOptions struct {
	Background string `json:"background"`
}

// apiError is the JSON error body the API answers with.
type apiError struct {
	status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("tinify %d %s: %s", e.status, e.Code, e.Message)
}

// undecodable reports whether the API refused the input as not being an
// image it can read.
func (e *apiError) undecodable() bool {
	return e.status == http.StatusBadRequest || e.status == http.StatusUnsupportedMediaType
}

// Optimize implements Optimizer.
func (t *Tinify) Optimize(ctx context.Context, data []byte, opts Options) (Result, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("wait for optimizer rate limit: %w", err)
	}

	location, shrunk, err := t.shrink(ctx, data)
	if err != nil {
		var apiErr *apiError
		if errors.As(err, &apiErr) && apiErr.undecodable() {
			t.log.Debug("optimizer rejected input, passing through", "code", apiErr.Code, "message", apiErr.Message)
			return passthrough(data), nil
		}
		return Result{}, upstream(err)
	}

	req := outputRequest{}
	if method, ok := resizeMethod(opts.Width, opts.Height); ok {
		req.Resize = &resizeOptions{Method: method, Width: opts.Width, Height: opts.Height}
	}
	var converted media.Format
	if f, ok := media.Normalize(string(opts.Format)); ok {
		req.Convert = &convertOptions{Type: f.MIME()}
		if f == media.JPG {
			req.Transform = &transformOptions{Background: "white"}
		}
		converted = f
	}

	out, width, height, err := t.output(ctx, location, req)
	if err != nil {
		return Result{}, upstream(err)
	}

	// Without resize the output keeps the shrink dimensions, which the API
	// reports even when the result headers do not.
	if req.Resize == nil {
		if width == nil && shrunk.Output.Width > 0 {
			width = &shrunk.Output.Width
		}
		if height == nil && shrunk.Output.Height > 0 {
			height = &shrunk.Output.Height
		}
	}

	return Result{
		Data:        out,
		Width:       width,
		Height:      height,
		Format:      converted,
		Transformed: true,
	}, nil
}

func (t *Tinify) shrink(ctx context.Context, data []byte) (string, *shrinkResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.endpoint()+"/shrink", bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("build shrink request: %w", err)
	}
	req.SetBasicAuth("api", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("shrink: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", nil, decodeAPIError(resp)
	}

	var body shrinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", nil, fmt.Errorf("decode shrink response: %w", err)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", nil, fmt.Errorf("shrink response has no output location")
	}
	return location, &body, nil
}

func (t *Tinify) output(ctx context.Context, location string, body outputRequest) ([]byte, *int, *int, error) {
	var req *http.Request
	var err error
	if body.Resize == nil && body.Convert == nil {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	} else {
		payload, merr := json.Marshal(body)
		if merr != nil {
			return nil, nil, nil, fmt.Errorf("encode output request: %w", merr)
		}
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, location, bytes.NewReader(payload))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	}
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build output request: %w", err)
	}
	req.SetBasicAuth("api", t.cfg.APIKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("fetch output: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, nil, decodeAPIError(resp)
	}

	data, err := httpclient.ReadAllWithLimit(resp.Body, maxOutputBytes)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("read output: %w", err)
	}
	return data, headerInt(resp.Header, "Image-Width"), headerInt(resp.Header, "Image-Height"), nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &apiError{status: resp.StatusCode}
	raw, _ := httpclient.ReadAllWithLimit(resp.Body, 64<<10)
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = strconv.Itoa(resp.StatusCode)
		apiErr.Message = strings.TrimSpace(string(raw))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}
	return apiErr
}

func upstream(err error) *apperr.Upstream {
	var apiErr *apiError
	if errors.As(err, &apiErr) {
		return &apperr.Upstream{Service: "optimizer", Code: apiErr.Code, Message: apiErr.Message, Err: err}
	}
	return &apperr.Upstream{Service: "optimizer", Message: err.Error(), Err: err}
}

func headerInt(h http.Header, key string) *int {
	v, err := strconv.Atoi(h.Get(key))
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}
