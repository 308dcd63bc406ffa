package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	OpenRouterAPIURL = "https://openrouter.ai/api/v1/chat/completions"

	// Marketing emails can be huge; cap what we send to the model
	maxBodyChars = 3000
	maxTags      = 5
)

var allowedSentiments = map[string]bool{
	"positive": true,
	"neutral":  true,
	"negative": true,
}

// Client calls OpenRouter for best-effort email analysis. Every failure path
// returns nil instead of an error: enrichment never decides an ingestion
// outcome.
type Client struct {
	apiKey     string
	model      string // empty means the OpenRouter account default
	apiURL     string
	httpClient *http.Client
	log        zerolog.Logger
}

func NewClient(apiKey, model string, log zerolog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		model:  model,
		apiURL: OpenRouterAPIURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether a provider credential is configured
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

// AnalysisInput is the email content plus org context sent to the model
type AnalysisInput struct {
	Subject        string
	BodyText       string
	SenderAddress  string
	CompetitorName string
	CategoryNames  []string
}

// Analysis is the structured result extracted from the model response
type Analysis struct {
	Summary   string   `json:"summary"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	Sentiment string   `json:"sentiment"`
}

// Analyze summarizes and categorizes one email. It returns nil when the
// provider is not configured, the call fails, or the response does not
// validate.
func (c *Client) Analyze(ctx context.Context, input AnalysisInput) *Analysis {
	if !c.Enabled() {
		return nil
	}

	prompt := c.buildPrompt(input)

	reqBody := map[string]interface{}{
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}
	if c.model != "" {
		reqBody["model"] = c.model
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		c.log.Warn().Err(err).Msg("ai: failed to marshal request")
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.apiURL, bytes.NewBuffer(jsonData))
	if err != nil {
		c.log.Warn().Err(err).Msg("ai: failed to create request")
		return nil
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Msg("ai: request failed")
		return nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.log.Warn().Err(err).Msg("ai: failed to read response")
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn().Int("status", resp.StatusCode).Msg("ai: provider returned non-200")
		return nil
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		c.log.Warn().Err(err).Msg("ai: failed to parse provider response")
		return nil
	}
	if len(apiResp.Choices) == 0 {
		c.log.Warn().Msg("ai: empty choices in provider response")
		return nil
	}

	cleaned := cleanJSONResponse(apiResp.Choices[0].Message.Content)

	var analysis Analysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		c.log.Warn().Err(err).Msg("ai: model did not return valid JSON")
		return nil
	}

	if !isValidAnalysis(analysis) {
		c.log.Warn().Str("sentiment", analysis.Sentiment).Msg("ai: model response failed validation")
		return nil
	}

	if len(analysis.Tags) > maxTags {
		analysis.Tags = analysis.Tags[:maxTags]
	}

	return &analysis
}

// cleanJSONResponse strips markdown fences and surrounding prose from the
// model output, keeping just the JSON object
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")

	if startIdx == -1 || endIdx == -1 || startIdx > endIdx {
		// No JSON object found; let the JSON parser produce the error
		return content
	}

	return strings.TrimSpace(content[startIdx : endIdx+1])
}

// isValidAnalysis checks the soft-fail contract: all four fields present and
// sentiment inside the allowed enum
func isValidAnalysis(a Analysis) bool {
	if a.Summary == "" {
		return false
	}
	if a.Category == "" {
		return false
	}
	if len(a.Tags) == 0 {
		return false
	}
	return allowedSentiments[a.Sentiment]
}

// buildPrompt builds the analysis prompt from email data and org context
func (c *Client) buildPrompt(input AnalysisInput) string {
	body := input.BodyText
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	categories := strings.Join(input.CategoryNames, ", ")
	if categories == "" {
		categories = "promotion, product_update, newsletter, announcement, other"
	}

	return fmt.Sprintf(`You are an AI that analyzes competitor marketing emails for a competitive-intelligence dashboard.

Analyze the email below and return a STRICT JSON object.

### OUTPUT FORMAT (STRICT JSON ONLY)
{
  "summary": "",
  "category": "",
  "tags": [],
  "sentiment": ""
}

### FIELD DEFINITIONS

summary
- One or two sentences describing what the competitor is promoting.

category
- Exactly one of: %s

tags
- 1 to 5 short lowercase keywords (e.g., "discount", "launch", "webinar").

sentiment
- One of: "positive", "neutral", "negative" — the tone of the email.

### CRITICAL RULES
- Output ONLY the JSON object, no explanations.
- All fields must be present and non-empty.
- Never invent facts not supported by the email text.

### Now analyze this email:

Competitor: %s
From: %s
Subject: %s

%s`, categories, input.CompetitorName, input.SenderAddress, input.Subject, body)
}
