package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"calm-stress-backend/internal/middleware"
	"calm-stress-backend/internal/models"
)

//go:generate mockgen -destination=mocks/mock_text_generator.go -package=mocks calm-stress-backend/internal/handlers TextGenerator

// TextGenerator produces text for a prompt from the upstream model.
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

var errNullBody = errors.New("request body is null")

type GeminiHandler struct {
	generator TextGenerator
	logger    *zerolog.Logger
}

func NewGeminiHandler(generator TextGenerator, logger *zerolog.Logger) *GeminiHandler {
	return &GeminiHandler{
		generator: generator,
		logger:    logger,
	}
}

// POST /api/gemini/textGenerate
// Body: ChatRequest
// Returns: ChatResponse, or 401 ErrorResponse on any failure
func (h *GeminiHandler) TextGenerate(w http.ResponseWriter, r *http.Request) {
	log := middleware.LoggerFrom(r.Context(), h.logger)

	// A JSON null body decodes without error and leaves req nil
	var req *models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		if err == nil {
			err = errNullBody
		}
		log.Error().Err(err).Msg("Failed to parse request body")
		writeGenerationError(w)
		return
	}

	prompt := req.EffectivePrompt()

	result, err := h.generator.GenerateText(r.Context(), prompt)
	if err != nil {
		log.Error().Err(err).Int("prompt_length", len(prompt)).Msg("Text generation failed")
		writeGenerationError(w)
		return
	}

	log.Info().
		Int("prompt_length", len(prompt)).
		Int("result_length", len(result)).
		Msg("Text generated")

	writeJSON(w, http.StatusOK, models.ChatResponse{Result: result})
}

func writeGenerationError(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: models.GenerationErrorMessage})
}
