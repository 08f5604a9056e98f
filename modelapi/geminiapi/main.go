package geminiapi

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"compassdev/logger"
	"compassdev/modelapi"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"google.golang.org/genai"
)

const (
	GEMINI_MODEL_NAME = "gemini-2.5-flash"
)

const (
	maxRetries     = 3
	baseDelay      = 1 * time.Second
	requestTimeout = 90 * time.Second
)

// ErrUpstreamUnavailable is returned once every retry has been exhausted or the
// bounded wait expired.
var ErrUpstreamUnavailable = errors.New("completion service unavailable")

type GeminiConnectProps struct {
	Logger *logger.LogMiddleware
}

type Gemini struct {
	logger    *logger.LogMiddleware
	client    *genai.Client
	semaphore *semaphore.Weighted
}

func exponentialBackoff(attempt int) time.Duration {
	return baseDelay * time.Duration(1<<uint(attempt))
}

func Connect(ctx context.Context, args GeminiConnectProps) *Gemini {
	tracer := otel.Tracer("geminiapi/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()
	args.Logger.Logger(ctx).Info("[GeminiAPI] Connecting Gemini API client")

	maxWorkers := 10
	sem := semaphore.NewWeighted(int64(maxWorkers))

	span.SetAttributes(attribute.Int("maxWorkers", maxWorkers))

	GEMINI_KEY := os.Getenv("GEMINI_SECRET_KEY")

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  GEMINI_KEY,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		args.Logger.Logger(ctx).Error("[GeminiAPI] Could not create Gemini client")
		os.Exit(21)
	}

	return &Gemini{logger: args.Logger, client: client, semaphore: sem}
}

// ChatMessage is one role-tagged turn of an ordered conversation.
type ChatMessage struct {
	Role    string
	Content string
}

func (g *Gemini) generateContentWithRetry(ctx context.Context, contents []*genai.Content, systemPrompt string) (string, error) {
	tracer := otel.Tracer("geminiapi/generateContentWithRetry")
	ctx, span := tracer.Start(ctx, "generateContentWithRetry")
	defer span.End()

	if err := g.semaphore.Acquire(ctx, 1); err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to acquire semaphore")
	}
	defer g.semaphore.Release(1)

	var resp *genai.GenerateContentResponse
	var err error

	thinkingBudget := int32(0)

	safetySettings := []*genai.SafetySetting{
		{
			Category:  genai.HarmCategoryHarassment,
			Threshold: genai.HarmBlockThresholdBlockNone,
		},
		{
			Category:  genai.HarmCategoryHateSpeech,
			Threshold: genai.HarmBlockThresholdBlockNone,
		},
		{
			Category:  genai.HarmCategorySexuallyExplicit,
			Threshold: genai.HarmBlockThresholdBlockNone,
		},
		{
			Category:  genai.HarmCategoryDangerousContent,
			Threshold: genai.HarmBlockThresholdBlockNone,
		},
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		span.AddEvent("Attempt", trace.WithAttributes(attribute.Int("attemptNumber", attempt+1)))
		g.logger.Logger(ctx).Info("[GeminiAPI] LLM generation attempt", zap.Int("attempt", attempt+1))

		callCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		resp, err = g.client.Models.GenerateContent(callCtx, GEMINI_MODEL_NAME, contents, &genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			SafetySettings:    safetySettings,
			ThinkingConfig: &genai.ThinkingConfig{
				IncludeThoughts: false,
				ThinkingBudget:  &thinkingBudget,
			},
		})
		cancel()

		if err != nil || resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
			if err != nil {
				span.RecordError(err)
				g.logger.Logger(ctx).Warn("[GeminiAPI] Error generating LLM content, retrying...",
					zap.Error(err),
					zap.Int("attempt", attempt+1),
					zap.Int("maxRetries", maxRetries))
			} else {
				g.logger.Logger(ctx).Warn("[GeminiAPI] Received empty or invalid response, retrying...",
					zap.Int("attempt", attempt+1),
					zap.Int("maxRetries", maxRetries))
				span.AddEvent("EmptyResponse")
			}

			if attempt < maxRetries-1 {
				delay := exponentialBackoff(attempt)
				span.AddEvent("Backoff", trace.WithAttributes(attribute.Int64("delayMs", delay.Milliseconds())))
				select {
				case <-ctx.Done():
					return "", ctx.Err()
				case <-time.After(delay):
				}
			}
			continue
		}

		span.AddEvent("LLM generation successful")
		return resp.Candidates[0].Content.Parts[0].Text, nil
	}

	if err != nil {
		g.logger.Logger(ctx).Error("[GeminiAPI] Final error generating LLM content after retries:", zap.Error(err))
	}
	return "", fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
}

// GetPersonaResponse runs one interview turn: the persona's behavior directive
// as system instruction, the persona's isolated history, then the user's
// utterance as the final turn.
func (g *Gemini) GetPersonaResponse(ctx context.Context, personaDirective string, history []ChatMessage, userMessage string) (string, error) {
	tracer := otel.Tracer("geminiapi/GetPersonaResponse")
	ctx, span := tracer.Start(ctx, "GetPersonaResponse")
	defer span.End()

	span.SetAttributes(
		attribute.Int("history.length", len(history)),
		attribute.Int("message.length", len(userMessage)),
	)

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.RoleUser
		if m.Role == modelapi.ASSISTANT {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: userMessage}},
	})

	return g.generateContentWithRetry(ctx, contents, personaDirective)
}

// GetStructuredResponse runs one report-generation call: a fixed JSON-only
// system instruction with the built prompt as the sole user turn. The reply is
// usually a JSON object but may carry fences or prose; callers extract.
func (g *Gemini) GetStructuredResponse(ctx context.Context, prompt string) (string, error) {
	tracer := otel.Tracer("geminiapi/GetStructuredResponse")
	ctx, span := tracer.Start(ctx, "GetStructuredResponse")
	defer span.End()

	span.SetAttributes(attribute.Int("prompt.length", len(prompt)))

	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{{Text: prompt}},
	}}

	return g.generateContentWithRetry(ctx, contents, modelapi.JSON_ONLY_INSTRUCTION)
}
