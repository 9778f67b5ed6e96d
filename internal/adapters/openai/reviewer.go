package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mikey/listserv-triage/internal/core"
	"github.com/mikey/listserv-triage/internal/utils"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Reviewer asks an OpenAI model for an advisory category suggestion on
// messages the rule engine could not place.
type Reviewer struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
	topP          float32
	maxBodySize   int
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
	promptFormat  string
}

// reviewResponse is the structured response expected from the model.
type reviewResponse struct {
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// NewReviewer creates a new OpenAI reviewer.
func NewReviewer(
	client *openai.Client,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	maxBodySize int,
	logger *zap.Logger,
	textProcessor *utils.TextProcessor,
) *Reviewer {
	return &Reviewer{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		topP:          topP,
		maxBodySize:   maxBodySize,
		logger:        logger,
		textProcessor: textProcessor,
		promptFormat: `You are triaging a film-production listserv email that keyword rules could not categorize.
Pick the single best category from: GRANT, CREW_CALL, EVENT, RESOURCE, ADMIN, OTHER, DO_NOT_CARE.
Respond with a JSON object containing:
- category: one of the category strings above
- confidence: number between 0 and 1
- rationale: string (one sentence)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// Review implements core.Reviewer.
func (r *Reviewer) Review(ctx context.Context, rec *core.Record) (*core.ReviewResult, error) {
	body := r.textProcessor.TruncateText(rec.BodyText, r.maxBodySize)
	prompt := fmt.Sprintf(r.promptFormat, rec.FromEmail, rec.Subject, body)

	req := openai.ChatCompletionRequest{
		Model: r.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are an email triage assistant. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   r.maxTokens,
		Temperature: r.temperature,
		TopP:        r.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := r.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content

	var parsed reviewResponse
	if err := json.Unmarshal([]byte(responseText), &parsed); err != nil {
		jsonStr, ok := extractJSON(responseText)
		if !ok {
			return nil, fmt.Errorf("failed to extract JSON from model response: %w", err)
		}
		if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
			return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
		}
	}

	category := core.Category(parsed.Category)
	if !validCategory(category) {
		return nil, fmt.Errorf("model returned unknown category %q", parsed.Category)
	}

	return &core.ReviewResult{
		Category:   category,
		Confidence: parsed.Confidence,
		Rationale:  parsed.Rationale,
		ModelUsed:  r.modelName,
	}, nil
}

// extractJSON pulls the first {...} span out of text the model wrapped
// around its JSON answer.
func extractJSON(s string) (string, bool) {
	start := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '{' {
			start = i
			break
		}
	}
	end := -1
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '}' {
			end = i + 1
			break
		}
	}
	if start == -1 || end <= start {
		return "", false
	}
	return s[start:end], true
}

func validCategory(c core.Category) bool {
	for _, known := range core.Categories {
		if c == known {
			return true
		}
	}
	return false
}
