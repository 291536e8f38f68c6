package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"syscall"

	"github.com/newthinker/signaldeck/internal/core"
)

// maxBodySize caps how much of a response is read.
const maxBodySize = 8 << 20

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
}

func (e *APIError) Error() string {
	if detail := e.detail(); detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, detail)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// detail extracts the {"detail": "..."} message the backend sends with errors.
func (e *APIError) detail() string {
	var body struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(e.Body, &body) != nil {
		return ""
	}
	return body.Detail
}

// doRequest performs a GET against path and returns the body of a 2xx response.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
	}

	return body, nil
}

// get performs a GET request and decodes the JSON body into result. Errors
// come back classified.
func (c *Client) get(ctx context.Context, path string, query url.Values, result any) error {
	body, err := c.doRequest(ctx, path, query)
	if err != nil {
		return classify(path, err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return classify(path, fmt.Errorf("decode response: %w", err))
	}

	return nil
}

// classify maps a request failure to ErrNetworkUnreachable or ErrUnexpected.
func classify(path string, err error) error {
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	err = fmt.Errorf("%s: %w", path, err)
	if isNetworkError(err) {
		return core.WrapError(core.ErrNetworkUnreachable, err)
	}
	return core.WrapError(core.ErrUnexpected, err)
}

// isNetworkError reports transport-level failures: refused or reset
// connections, DNS failures and timeouts.
func isNetworkError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
