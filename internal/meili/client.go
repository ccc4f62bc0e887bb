package meili

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Doer performs one HTTP exchange. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the Meilisearch HTTP API.
type Client struct {
	baseURL    *url.URL
	http       Doer
	apiKey     string
	userAgent  string
	requestIDs bool
	logger     *zap.Logger
}

// Options configure NewClient. Only Endpoint is required.
type Options struct {
	Endpoint       string
	APIKey         string
	HTTPClient     Doer
	RequestTimeout time.Duration
	UserAgent      string
	RequestIDs     bool
	Logger         *zap.Logger
}

const (
	defaultEndpoint  = "127.0.0.1:7700"
	defaultUserAgent = "sift/0.1"
	requestTimeout   = 10 * time.Second
	requestIDHeader  = "X-Request-Id"
)

// NewClient builds a Client from opts.
func NewClient(opts Options) (*Client, error) {
	base, err := parseBaseURL(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	doer := opts.HTTPClient
	if doer == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = requestTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    base,
		http:       doer,
		apiKey:     strings.TrimSpace(opts.APIKey),
		userAgent:  userAgent,
		requestIDs: opts.RequestIDs,
		logger:     logger,
	}, nil
}

// Endpoint returns the normalized base URL.
func (c *Client) Endpoint() string {
	return c.baseURL.String()
}

// Request describes one call relative to the configured endpoint.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Body is sent as-is when it is []byte or json.RawMessage and
	// JSON-encoded otherwise.
	Body   any
	Header http.Header
}

// Decoder turns a successful response body into a T.
type Decoder[T any] func(body []byte) (T, error)

// JSON returns a Decoder that unmarshals into T.
func JSON[T any]() Decoder[T] {
	return func(body []byte) (T, error) {
		var out T
		err := json.Unmarshal(body, &out)
		return out, err
	}
}

// Do executes req and decodes a 2xx body with decode. Non-2xx responses
// come back as *ServiceError, transport failures as *TransportError and
// undecodable bodies as *DecodeError. Nothing is retried.
func Do[T any](ctx context.Context, c *Client, req Request, decode Decoder[T]) (T, error) {
	var zero T
	if c == nil {
		return zero, fmt.Errorf("client is nil")
	}
	body, err := c.send(ctx, req)
	if err != nil {
		return zero, err
	}
	out, err := decode(body)
	if err != nil {
		return zero, &DecodeError{Method: req.Method, Path: req.Path, Body: body, Err: err}
	}
	return out, nil
}

func (c *Client) send(ctx context.Context, req Request) ([]byte, error) {
	payload, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: encode request: %w", req.Method, req.Path, err)
	}

	rel := &url.URL{Path: req.Path}
	if len(req.Query) > 0 {
		rel.RawQuery = req.Query.Encode()
	}
	reqURL := c.baseURL.ResolveReference(rel)

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, reqURL.String(), payload)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	requestID := ""
	if c.requestIDs {
		requestID = uuid.NewString()
		httpReq.Header.Set(requestIDHeader, requestID)
	}
	for key, values := range req.Header {
		httpReq.Header.Del(key)
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Method: req.Method, Path: req.Path, Err: fmt.Errorf("read body: %w", err)}
	}

	c.logger.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		svcErr := Classify(resp.StatusCode, body)
		svcErr.Method = req.Method
		svcErr.Path = req.Path
		return nil, svcErr
	}
	return body, nil
}

func encodeBody(body any) (io.Reader, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return bytes.NewReader(b), "application/json", nil
	case []byte:
		return bytes.NewReader(b), "application/json", nil
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(encoded), "application/json", nil
	}
}

func parseBaseURL(endpoint string) (*url.URL, error) {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = defaultEndpoint
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint %q: %w", endpoint, err)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}
