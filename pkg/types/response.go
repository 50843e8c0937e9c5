package types

// APIResponse is the envelope returned by every endpoint, success or failure.
// Data is null on errors; Message carries "Success" or the public error text.
type APIResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}
