package lootdto

// ErrorResponse is the body of every 4xx/5xx JSON reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
