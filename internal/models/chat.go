package models

// DefaultPrompt replaces a missing or empty prompt before it is sent upstream.
const DefaultPrompt = "Hello there"

// GenerationErrorMessage is the only failure text a client ever sees.
const GenerationErrorMessage = "Error while generating content."

// ChatRequest is the payload sent to the text generation endpoint.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// EffectivePrompt returns the prompt that is actually sent to the model.
func (r ChatRequest) EffectivePrompt() string {
	if r.Prompt == "" {
		return DefaultPrompt
	}
	return r.Prompt
}

// ChatResponse carries the generated text on success.
type ChatResponse struct {
	Result string `json:"result"`
}

// ErrorResponse carries a generic, client-safe failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}
