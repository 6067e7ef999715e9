package contentapi

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("contentapi: not found")
	ErrNoTerms     = errors.New("contentapi: taxonomy returned no terms")
	ErrCredentials = errors.New("contentapi: username and password are required")
	ErrMalformed   = errors.New("contentapi: malformed record")
)

// spuriousFailureMarker appears in 5xx bodies the site returns after it has
// already persisted the node.
const spuriousFailureMarker = "leaked metadata"

// SpuriousFailureWarning is returned in place of an error when the site
// reports a failure that is known to follow a successful write.
const SpuriousFailureWarning = "API returned error but report likely created"

// APIError is a non-2xx answer from the docent site.
type APIError struct {
	Method string
	URL    string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("contentapi: %s %s: status %d: %s", e.Method, e.URL, e.Status, body)
}
