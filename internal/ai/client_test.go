package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain JSON",
			input:    `{"summary": "Spring sale"}`,
			expected: `{"summary": "Spring sale"}`,
		},
		{
			name:     "JSON with markdown code blocks",
			input:    "```json\n{\"summary\": \"Spring sale\"}\n```",
			expected: `{"summary": "Spring sale"}`,
		},
		{
			name:     "JSON with plain code blocks",
			input:    "```\n{\"summary\": \"Spring sale\"}\n```",
			expected: `{"summary": "Spring sale"}`,
		},
		{
			name:     "JSON with explanatory text before",
			input:    "Here is the analysis:\n{\"summary\": \"Spring sale\"}",
			expected: `{"summary": "Spring sale"}`,
		},
		{
			name:     "JSON with explanatory text after",
			input:    "{\"summary\": \"Spring sale\"}\nLet me know if you need more.",
			expected: `{"summary": "Spring sale"}`,
		},
		{
			name:     "JSON with whitespace",
			input:    "  \n  {\"summary\": \"Spring sale\"}  \n  ",
			expected: `{"summary": "Spring sale"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cleanJSONResponse(tt.input)
			if result != tt.expected {
				t.Errorf("Expected:\n%s\n\nGot:\n%s", tt.expected, result)
			}
		})
	}
}

func TestIsValidAnalysis(t *testing.T) {
	tests := []struct {
		name     string
		analysis Analysis
		expected bool
	}{
		{
			name: "valid analysis",
			analysis: Analysis{
				Summary:   "Acme is running a spring sale",
				Category:  "promotion",
				Tags:      []string{"discount", "sale"},
				Sentiment: "positive",
			},
			expected: true,
		},
		{
			name: "missing summary",
			analysis: Analysis{
				Category:  "promotion",
				Tags:      []string{"discount"},
				Sentiment: "positive",
			},
			expected: false,
		},
		{
			name: "missing category",
			analysis: Analysis{
				Summary:   "Acme is running a spring sale",
				Tags:      []string{"discount"},
				Sentiment: "positive",
			},
			expected: false,
		},
		{
			name: "empty tags",
			analysis: Analysis{
				Summary:   "Acme is running a spring sale",
				Category:  "promotion",
				Tags:      []string{},
				Sentiment: "positive",
			},
			expected: false,
		},
		{
			name: "invalid sentiment",
			analysis: Analysis{
				Summary:   "Acme is running a spring sale",
				Category:  "promotion",
				Tags:      []string{"discount"},
				Sentiment: "ecstatic",
			},
			expected: false,
		},
		{
			name: "missing sentiment",
			analysis: Analysis{
				Summary:  "Acme is running a spring sale",
				Category: "promotion",
				Tags:     []string{"discount"},
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isValidAnalysis(tt.analysis)
			if result != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestAnalyze_DisabledWithoutAPIKey(t *testing.T) {
	client := NewClient("", "", zerolog.Nop())

	if client.Enabled() {
		t.Fatal("expected client without API key to be disabled")
	}

	result := client.Analyze(context.Background(), AnalysisInput{Subject: "Big Sale"})
	if result != nil {
		t.Fatalf("expected nil from disabled client, got %+v", result)
	}
}

func openRouterStub(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": content}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestAnalyze_Success(t *testing.T) {
	server := openRouterStub(t, "```json\n{\"summary\": \"Acme spring sale\", \"category\": \"promotion\", \"tags\": [\"discount\", \"spring\"], \"sentiment\": \"positive\"}\n```")
	defer server.Close()

	client := NewClient("test-key", "", zerolog.Nop())
	client.apiURL = server.URL

	result := client.Analyze(context.Background(), AnalysisInput{
		Subject:        "Big Sale",
		BodyText:       "50% off everything",
		SenderAddress:  "promo@acme.com",
		CompetitorName: "Acme",
		CategoryNames:  []string{"promotion", "newsletter"},
	})

	if result == nil {
		t.Fatal("expected analysis, got nil")
	}
	if result.Summary != "Acme spring sale" {
		t.Errorf("unexpected summary: %s", result.Summary)
	}
	if result.Category != "promotion" {
		t.Errorf("unexpected category: %s", result.Category)
	}
	if result.Sentiment != "positive" {
		t.Errorf("unexpected sentiment: %s", result.Sentiment)
	}
}

func TestAnalyze_MalformedJSONReturnsNil(t *testing.T) {
	server := openRouterStub(t, "I could not analyze this email, sorry.")
	defer server.Close()

	client := NewClient("test-key", "", zerolog.Nop())
	client.apiURL = server.URL

	if result := client.Analyze(context.Background(), AnalysisInput{Subject: "x"}); result != nil {
		t.Fatalf("expected nil for malformed response, got %+v", result)
	}
}

func TestAnalyze_InvalidSentimentReturnsNil(t *testing.T) {
	server := openRouterStub(t, `{"summary": "s", "category": "promotion", "tags": ["a"], "sentiment": "thrilled"}`)
	defer server.Close()

	client := NewClient("test-key", "", zerolog.Nop())
	client.apiURL = server.URL

	if result := client.Analyze(context.Background(), AnalysisInput{Subject: "x"}); result != nil {
		t.Fatalf("expected nil for invalid sentiment, got %+v", result)
	}
}

func TestAnalyze_ProviderErrorReturnsNil(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient("test-key", "", zerolog.Nop())
	client.apiURL = server.URL

	if result := client.Analyze(context.Background(), AnalysisInput{Subject: "x"}); result != nil {
		t.Fatalf("expected nil for provider error, got %+v", result)
	}
}

func TestAnalyze_TagsCappedAtFive(t *testing.T) {
	server := openRouterStub(t, `{"summary": "s", "category": "promotion", "tags": ["a","b","c","d","e","f","g"], "sentiment": "neutral"}`)
	defer server.Close()

	client := NewClient("test-key", "", zerolog.Nop())
	client.apiURL = server.URL

	result := client.Analyze(context.Background(), AnalysisInput{Subject: "x"})
	if result == nil {
		t.Fatal("expected analysis, got nil")
	}
	if len(result.Tags) != 5 {
		t.Errorf("expected tags capped at 5, got %d", len(result.Tags))
	}
}
