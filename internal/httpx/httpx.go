// Package httpx builds the resty clients shared by the venue adapters and
// decodes venue error bodies into a common shape.
package httpx

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds every venue request. There is no operation-level
// timeout above this layer; the transport timeout is the only bound.
const DefaultTimeout = 30 * time.Second

// New returns a resty client configured for a venue base URL.
func New(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(DefaultTimeout).
		SetHeader("Accept", "application/json")
}

// apiErrorBody matches the {error: …} / {message: …} shapes both venues use.
type apiErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// APIError is a non-2xx venue response.
type APIError struct {
	Venue   string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d): %s", e.Venue, e.Status, e.Message)
}

// CheckResponse converts a non-2xx resty response into an *APIError.
// Returns nil for successful responses.
func CheckResponse(venue string, resp *resty.Response) error {
	if !resp.IsError() {
		return nil
	}
	msg := "unknown API error"
	var body apiErrorBody
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if body.Error != "" {
			msg = body.Error
		} else if body.Message != "" {
			msg = body.Message
		}
	}
	return &APIError{Venue: venue, Status: resp.StatusCode(), Message: msg}
}
