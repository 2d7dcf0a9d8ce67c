package server

// OpenAI API compatible types for the model listing

// ModelInfo represents model information for /v1/models
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
	// Version is the tag model family
	Version string `json:"version"`
	Backend string `json:"backend,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// ModelListResponse represents the models list response
type ModelListResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// OpenAIError represents an error response
type OpenAIError struct {
	Error OpenAIErrorDetail `json:"error"`
}

// OpenAIErrorDetail represents the error details
type OpenAIErrorDetail struct {
	Message string  `json:"message"`
	Type    string  `json:"type"`
	Param   *string `json:"param"`
	Code    *string `json:"code"`
}
