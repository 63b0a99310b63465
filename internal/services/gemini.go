package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// PersonaInstruction is attached to every generation as the system instruction.
const PersonaInstruction = "You are a motivational speaker and mind coach whose work is to help people " +
	"who are going through a hard time feel good. Chat politely and warmly, as if they were family, " +
	"and answer the question in a short way. Always structure the response using markdown."

var (
	// ErrEmptyGeneration is returned when the model answered without any text.
	ErrEmptyGeneration = errors.New("gemini returned no text")
	// ErrServiceClosed is returned by GenerateText after Close.
	ErrServiceClosed = errors.New("gemini service closed")
)

// GeminiService owns the single process-wide Gemini client. The client is
// created on first use and reused by every request until Close.
type GeminiService struct {
	apiKey    string
	modelName string
	logger    *zerolog.Logger

	clientOpts []option.ClientOption

	once    sync.Once
	client  *genai.Client
	model   *genai.GenerativeModel
	initErr error
	closed  atomic.Bool

	rateChan chan struct{} // Token bucket
}

// NewGeminiService configures the service. Extra client options are appended
// after the API key when the client is first created.
func NewGeminiService(apiKey, modelName string, concurrentReqs int, logger *zerolog.Logger, opts ...option.ClientOption) *GeminiService {
	if concurrentReqs < 1 {
		concurrentReqs = 1
	}

	// Token bucket bounding upstream calls in flight
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &GeminiService{
		apiKey:     apiKey,
		modelName:  modelName,
		logger:     logger,
		clientOpts: opts,
		rateChan:   rateChan,
	}
}

// Close releases the client. It waits for an initialization in progress and
// prevents any later one, so calls made after Close fail with ErrServiceClosed.
// Call it only once in-flight requests have drained.
func (s *GeminiService) Close() {
	s.closed.Store(true)
	s.once.Do(func() {
		s.initErr = ErrServiceClosed
	})
	if s.client == nil {
		return
	}
	if err := s.client.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close Gemini client")
	}
}

// GenerateText sends the prompt with the persona instruction and returns the
// model's text unmodified.
func (s *GeminiService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if s.closed.Load() {
		return "", ErrServiceClosed
	}
	if err := s.acquireRate(ctx); err != nil {
		return "", err
	}
	defer s.releaseRate()

	model, err := s.generativeModel()
	if err != nil {
		return "", err
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != genai.FinishReasonStop {
		cand := resp.Candidates[0]
		s.logger.Warn().
			Str("finish_reason", fmt.Sprint(cand.FinishReason)).
			Int("token_count", int(cand.TokenCount)).
			Msg("Gemini stopped early")
	}

	text := extractText(resp)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

// generativeModel lazily creates the client. A creation failure is kept and
// returned on every later call.
func (s *GeminiService) generativeModel() (*genai.GenerativeModel, error) {
	s.once.Do(func() {
		opts := append([]option.ClientOption{option.WithAPIKey(s.apiKey)}, s.clientOpts...)
		client, err := genai.NewClient(context.Background(), opts...)
		if err != nil {
			s.initErr = fmt.Errorf("failed to create Gemini client: %w", err)
			return
		}
		s.client = client
		s.model = configureModel(client.GenerativeModel(s.modelName))
		s.logger.Info().Str("model", s.modelName).Msg("Gemini client initialized")
	})
	return s.model, s.initErr
}

func configureModel(model *genai.GenerativeModel) *genai.GenerativeModel {
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(PersonaInstruction)},
	}
	return model
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// extractText returns the text parts of the first candidate.
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	return text.String()
}
