package models

// PredictURLRequest is the body of a URL-based prediction request
type PredictURLRequest struct {
	ImageURL string `json:"image_url"`
}

// PredictionResponse is the payload returned by both prediction endpoints
type PredictionResponse struct {
	Success    bool     `json:"success"`
	Letter     string   `json:"letter,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
	Error      string   `json:"error,omitempty"`
}

// ModelInfo describes the model loaded by the prediction service
type ModelInfo struct {
	Loaded          bool     `json:"loaded"`
	ModelPath       string   `json:"model_path,omitempty"`
	InputShape      string   `json:"input_shape,omitempty"`
	OutputShape     string   `json:"output_shape,omitempty"`
	NumClasses      int      `json:"num_classes,omitempty"`
	Labels          []string `json:"labels,omitempty"`
	TotalParameters int64    `json:"total_parameters,omitempty"`
	Error           string   `json:"error,omitempty"`
}

// LoadURLRequest is the body of a "load from URL" action
type LoadURLRequest struct {
	ImageURL string `json:"image_url"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
