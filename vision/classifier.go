package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"restager/prompt"
)

// classifyPrompt asks for exactly one of the known categories as JSON so the
// response parses without heuristics.
const classifyPrompt = `Classify the product in this photo into exactly one category.
Answer with JSON: {"category": "<value>"} where <value> is one of:
alcohol, beauty, electronics, food, generic.
Use "generic" when unsure.`

// Classifier resolves a product category for scene selection. When no model
// client is configured it falls back to keyword inference over the listing
// text.
type Classifier struct {
	client *openai.Client
	model  string
}

// NewClassifier builds a classifier against an OpenAI-compatible endpoint.
// Empty apiKey or baseURL yields a fallback-only classifier.
func NewClassifier(apiKey, baseURL, model string) *Classifier {
	if apiKey == "" || baseURL == "" {
		return &Classifier{model: model}
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &Classifier{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Configured reports whether a model client is available.
func (c *Classifier) Configured() bool {
	return c.client != nil
}

// Classify returns the product category for the listing. The image, when
// provided, is sent alongside the text; on any model failure the keyword
// fallback answers instead, so classification never fails a run.
func (c *Classifier) Classify(ctx context.Context, title string, bullets []string, imageBytes []byte) prompt.Category {
	fallback := prompt.InferCategory(title, bullets)
	if c.client == nil {
		return fallback
	}

	category, err := c.classifyWithModel(ctx, title, bullets, imageBytes)
	if err != nil {
		return fallback
	}
	return category
}

func (c *Classifier) classifyWithModel(ctx context.Context, title string, bullets []string, imageBytes []byte) (prompt.Category, error) {
	parts := []openai.ChatMessagePart{
		{
			Type: openai.ChatMessagePartTypeText,
			Text: classifyPrompt + "\n\nListing title: " + title + "\nBullets: " + strings.Join(bullets, "; "),
		},
	}
	if len(imageBytes) > 0 {
		prepared, err := PrepareImage(imageBytes)
		if err != nil {
			return "", err
		}
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(prepared),
			},
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision: classify: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision: classify: empty response")
	}

	var answer struct {
		Category string `json:"category"`
	}
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &answer); err != nil {
		return "", fmt.Errorf("vision: parse classification: %w", err)
	}
	return parseCategory(answer.Category)
}

func parseCategory(s string) (prompt.Category, error) {
	switch prompt.Category(strings.ToLower(strings.TrimSpace(s))) {
	case prompt.CategoryAlcohol:
		return prompt.CategoryAlcohol, nil
	case prompt.CategoryBeauty:
		return prompt.CategoryBeauty, nil
	case prompt.CategoryElectronics:
		return prompt.CategoryElectronics, nil
	case prompt.CategoryFood:
		return prompt.CategoryFood, nil
	case prompt.CategoryGeneric:
		return prompt.CategoryGeneric, nil
	default:
		return "", fmt.Errorf("vision: unknown category %q", s)
	}
}
