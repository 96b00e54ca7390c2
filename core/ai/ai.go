// Package ai defines the abstraction over the external generative
// capabilities used by the content pipeline. Implementations live in
// services/ai; tests use MockCapability.
package ai

import "context"

// Capability is a single request/response generative capability.
// Complete returns free-form text that is expected, but not guaranteed,
// to contain one JSON object; callers extract and validate it themselves.
type Capability interface {
	Complete(ctx context.Context, req Request) (Response, error)

	// ModelID returns the model identifier this capability is configured to use.
	ModelID() string
}

// Request describes what to send to the capability.
type Request struct {
	// System sets the capability's role and output contract.
	System string

	// User is the user prompt for this single-turn exchange.
	User string

	// Images are optional inline image attachments (stage 1 only).
	Images []ImageInput

	// MaxTokens bounds the response length. 0 means provider default.
	MaxTokens int

	// Temperature controls randomness. Default 0 (deterministic).
	Temperature float64
}

// ImageInput is an inline image payload with its declared media type.
type ImageInput struct {
	Data      []byte
	MediaType string // e.g. "image/jpeg"
}

// Response holds the capability's raw output.
type Response struct {
	// Text is the raw response text, JSON payload and any surrounding
	// prose included.
	Text string

	// Model is the actual model that served the request.
	Model string
}
