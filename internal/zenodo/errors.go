package zenodo

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnexpectedResponse marks a 2xx response whose body is missing the
// fields a call depends on.
var ErrUnexpectedResponse = errors.New("zenodo: unexpected response shape")

// filesPresentHint is what the archive says when a new version is requested
// while the previous draft still carries files.
const filesPresentHint = "remove all files"

// APIError is a response with a status the call did not expect.
type APIError struct {
	Method     string
	Path       string
	StatusCode int

	// Message is the structured "message" field of the error body, if any.
	Message string

	Body []byte
}

type errorBody struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func newAPIError(method, path string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       body,
	}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		apiErr.Message = parsed.Message
	}
	return apiErr
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("zenodo: %s %s: HTTP %d: %s", e.Method, e.Path, e.StatusCode, msg)
}

// IsFilesPresent reports whether err is the 400 the archive returns when a
// new version cannot be created until the existing draft files are removed.
// The structured message is checked first, then the raw body, since the error
// schema is not guaranteed stable.
func IsFilesPresent(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	if strings.Contains(strings.ToLower(apiErr.Message), filesPresentHint) {
		return true
	}
	return strings.Contains(strings.ToLower(string(apiErr.Body)), filesPresentHint)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
