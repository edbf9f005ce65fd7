// Package vision extracts facility data with a vision-capable model: a
// screenshot of the facility's home page goes to the model, which returns
// one consolidated document covering every topic.
package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"oasara-facility-enrichment/internal/config"
	"oasara-facility-enrichment/internal/models"
)

// ExtractionMethod tags rows produced by this pass.
const ExtractionMethod = "gpt-4-vision"

// Client wraps the OpenAI vision API for facility extraction.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
	maxTokens   int
	log         zerolog.Logger
}

// NewClient builds a vision client from configuration.
func NewClient(ai config.OpenAIConfig, tuning config.VisionConfig, log zerolog.Logger) *Client {
	return &Client{
		api:         openai.NewClient(ai.APIKey),
		model:       ai.Model,
		temperature: tuning.Temperature,
		maxTokens:   tuning.MaxTokens,
		log:         log,
	}
}

// Extract sends one JPEG screenshot to the model and parses the
// consolidated payload out of its reply.
func (c *Client) Extract(ctx context.Context, f models.Facility, screenshot []byte) (models.AIPayload, error) {
	imageURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(screenshot)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: buildPrompt(f)},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return models.AIPayload{}, fmt.Errorf("vision: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return models.AIPayload{}, fmt.Errorf("vision: empty response")
	}
	return ParsePayload(resp.Choices[0].Message.Content)
}

// buildPrompt asks for every topic in one pass, pinned to an exact JSON
// shape so the reply parses without negotiation.
func buildPrompt(f models.Facility) string {
	return fmt.Sprintf(`Extract the following information from this medical facility website for %s:

1. Doctor names and specialties (list each doctor with their specialty)
2. Procedure prices (specific numbers in USD, format as: procedure_name: price_usd)
3. Contact email for international patients
4. Languages spoken by staff
5. Popular procedures offered
6. Package deals (name, price, what's included)
7. Success metrics (e.g., "5000+ successful surgeries", "95%% success rate")
8. Patient testimonials (extract 3-5 key testimonials with ratings if available)

Return as JSON with these exact keys:
{
  "doctors": [{"name": "string", "specialty": "string", "qualifications": ["string"]}],
  "pricing": [{"procedure": "string", "price_usd": number, "price_range": "string"}],
  "email": "string",
  "languages": ["string"],
  "procedures": ["string"],
  "packages": [{"name": "string", "price_usd": number, "includes": ["string"]}],
  "metrics": {"metric_type": "metric_value"},
  "testimonials": [{"text": "string", "rating": number}]
}

Be accurate and only extract information that is clearly visible on the page.`, f.Name)
}

// fencedJSONPattern pulls a JSON object out of a markdown code fence.
var fencedJSONPattern = regexp.MustCompile("```(?:json)?\\s*(\\{[\\s\\S]*\\})\\s*```")

// ParsePayload parses the model's reply. Models often wrap JSON in a
// markdown fence, so that is tried first, then the raw content. A reply
// with no parseable JSON fails with a short preview for the log.
func ParsePayload(content string) (models.AIPayload, error) {
	raw := strings.TrimSpace(content)
	if m := fencedJSONPattern.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}

	var payload models.AIPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return models.AIPayload{}, fmt.Errorf("vision: parse response (%q...): %w", preview(content, 200), err)
	}
	return payload, nil
}

func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := s[:n]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
