package response

// SuccessResponse is a plain acknowledgement.
type SuccessResponse struct {
	Message string `json:"message" example:"Done"`
}

// ErrorResponse is returned by every failing endpoint.
type ErrorResponse struct {
	// Machine readable code
	// example: VALIDATION_ERROR
	Code string `json:"code"`

	// Human readable message
	// example: Invalid request body
	Message string `json:"message"`

	// Optional details
	// example: day must be YYYYMMDD
	Details string `json:"details,omitempty"`
}

// TokenResponse carries a fresh token pair.
type TokenResponse struct {
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`
}

// WhoAtResponse is a who's at answer for one day.
type WhoAtResponse struct {
	// example: 20240711:all
	Key string `json:"key"`
	// Whether the answer came from the cache
	Cached bool `json:"cached"`
	// Title to entries, in display order
	Result any `json:"result" swaggertype:"object"`
}
