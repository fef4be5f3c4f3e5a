package chat

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

	"github.com/liliang-cn/askstream/internal/domain"
)

// Mode selects the public widget route or the direct integration route
type Mode string

const (
	ModeWidget      Mode = "widget"
	ModeIntegration Mode = "c"
)

// maxErrorBody bounds how much of a failed response is read
const maxErrorBody = 64 << 10

// Transport opens the response stream for one chat request
type Transport interface {
	Stream(ctx context.Context, req domain.ChatRequest) (io.ReadCloser, error)
}

// RequestError is a non-2xx answer from the stream endpoint
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return e.Message
}

// StreamError is a failure reported by the server through an error frame
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return e.Message
}

// Endpoint builds {apiBase}/api/v1/{mode}/{token}/chat/stream
func Endpoint(apiBase string, mode Mode, token string) string {
	if mode == "" {
		mode = ModeWidget
	}
	return fmt.Sprintf("%s/api/v1/%s/%s/chat/stream",
		strings.TrimRight(apiBase, "/"), mode, url.PathEscape(token))
}

// HTTPTransport posts chat requests to the stream endpoint
type HTTPTransport struct {
	endpoint   string
	httpClient *http.Client
}

// NewHTTPTransport creates a transport for endpoint. A nil client uses a
// client without an overall timeout, since streams are long-lived and
// bounded by the request context instead.
func NewHTTPTransport(endpoint string, httpClient *http.Client) *HTTPTransport {
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 60 * time.Second,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}
	return &HTTPTransport{endpoint: endpoint, httpClient: httpClient}
}

// Stream sends req and returns the response body of a 2xx answer
func (t *HTTPTransport) Stream(ctx context.Context, req domain.ChatRequest) (io.ReadCloser, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readRequestError(resp)
	}

	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, domain.ErrNoResponseBody
	}

	return resp.Body, nil
}

func readRequestError(resp *http.Response) error {
	reqErr := &RequestError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("Request failed: %d", resp.StatusCode),
	}
	if resp.Body == nil {
		return reqErr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return reqErr
	}

	var body domain.ErrorBody
	if json.Unmarshal(data, &body) == nil && body.Message != "" {
		reqErr.Message = body.Message
	}
	return reqErr
}
