package httpClient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody caps how much of a failed response body ends up in an error message.
const maxErrorBody = 512

// HTTPError is a non-2xx response from the Plex server.
type HTTPError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *HTTPError) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Endpoint, e.Message)
}

// Is matches any HTTPError with the same status code.
func (e *HTTPError) Is(target error) bool {
	var httpErr *HTTPError
	if errors.As(target, &httpErr) {
		return e.StatusCode == httpErr.StatusCode
	}
	return false
}

func IsHTTPError(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr)
}

// GetHTTPStatusCode returns the status code carried by err, or 0.
func GetHTTPStatusCode(err error) int {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode
	}
	return 0
}

func IsHTTPStatus(err error, code int) bool {
	return GetHTTPStatusCode(err) == code
}

// CheckResponse returns an *HTTPError for any status outside 2xx. The body of a
// failed response is drained and its leading bytes become the message.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	io.Copy(io.Discard, resp.Body)

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	endpoint := ""
	if resp.Request != nil && resp.Request.URL != nil {
		endpoint = resp.Request.Method + " " + resp.Request.URL.Path
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		Message:    message,
		Endpoint:   endpoint,
	}
}
