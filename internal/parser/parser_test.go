package parser

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	gmailapi "google.golang.org/api/gmail/v1"
)

func encodeBody(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func promoMessage() *gmailapi.Message {
	return &gmailapi.Message{
		Id:      "msg-123",
		Snippet: "50% off everything",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: `"Acme Promotions" <promo@acme.com>`},
				{Name: "Subject", Value: "Big Sale"},
				{Name: "Date", Value: "Mon, 2 Jun 2025 10:30:00 +0000"},
			},
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "text/plain",
					Body:     &gmailapi.MessagePartBody{Data: encodeBody("50% off everything")},
				},
				{
					MimeType: "text/html",
					Body:     &gmailapi.MessagePartBody{Data: encodeBody("<p>50% off everything</p>")},
				},
			},
		},
	}
}

func TestParse_FullMessage(t *testing.T) {
	parsed := Parse(promoMessage())
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}

	if parsed.MessageID != "msg-123" {
		t.Errorf("expected message ID msg-123, got %s", parsed.MessageID)
	}
	if parsed.Subject != "Big Sale" {
		t.Errorf("expected subject 'Big Sale', got %s", parsed.Subject)
	}
	if parsed.SenderAddress != "promo@acme.com" {
		t.Errorf("expected sender promo@acme.com, got %s", parsed.SenderAddress)
	}
	if parsed.SenderName == nil || *parsed.SenderName != "Acme Promotions" {
		t.Errorf("expected sender name 'Acme Promotions', got %v", parsed.SenderName)
	}
	if parsed.BodyText == nil || *parsed.BodyText != "50% off everything" {
		t.Errorf("unexpected body text: %v", parsed.BodyText)
	}
	if parsed.BodyHTML == nil || *parsed.BodyHTML != "<p>50% off everything</p>" {
		t.Errorf("unexpected body html: %v", parsed.BodyHTML)
	}
	if parsed.Snippet != "50% off everything" {
		t.Errorf("unexpected snippet: %s", parsed.Snippet)
	}

	want := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	if !parsed.ReceivedAt.Equal(want) {
		t.Errorf("expected received at %s, got %s", want, parsed.ReceivedAt)
	}
}

func TestParse_MissingFromIsRejected(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-1",
		Payload: &gmailapi.MessagePart{
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "Subject", Value: "No sender"},
			},
		},
	}

	if parsed := Parse(msg); parsed != nil {
		t.Fatalf("expected nil for message without From header, got %+v", parsed)
	}
}

func TestParse_BareSenderAddress(t *testing.T) {
	msg := promoMessage()
	msg.Payload.Headers[0].Value = "promo@acme.com"

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}
	if parsed.SenderAddress != "promo@acme.com" {
		t.Errorf("expected bare address to parse, got %s", parsed.SenderAddress)
	}
	if parsed.SenderName != nil {
		t.Errorf("expected nil sender name for bare address, got %v", *parsed.SenderName)
	}
}

func TestParse_UnquotedDisplayName(t *testing.T) {
	msg := promoMessage()
	msg.Payload.Headers[0].Value = "Acme Promotions <promo@acme.com>"

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}
	if parsed.SenderName == nil || *parsed.SenderName != "Acme Promotions" {
		t.Errorf("expected unquoted display name to parse, got %v", parsed.SenderName)
	}
}

func TestParse_MissingSubjectUsesPlaceholder(t *testing.T) {
	msg := promoMessage()
	msg.Payload.Headers = []*gmailapi.MessagePartHeader{
		{Name: "From", Value: "promo@acme.com"},
	}

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}
	if parsed.Subject != "(no subject)" {
		t.Errorf("expected placeholder subject, got %s", parsed.Subject)
	}
}

func TestParse_DateFallsBackToInternalDate(t *testing.T) {
	msg := promoMessage()
	msg.Payload.Headers[2].Value = "not a date"
	msg.InternalDate = time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC).UnixMilli()

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}

	want := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	if !parsed.ReceivedAt.Equal(want) {
		t.Errorf("expected internal date fallback %s, got %s", want, parsed.ReceivedAt)
	}
}

func TestParse_DateWithZoneNameSuffix(t *testing.T) {
	msg := promoMessage()
	msg.Payload.Headers[2].Value = "Mon, 2 Jun 2025 10:30:00 +0000 (UTC)"

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}

	want := time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC)
	if !parsed.ReceivedAt.Equal(want) {
		t.Errorf("expected zone suffix to be stripped, got %s", parsed.ReceivedAt)
	}
}

func TestParse_SnippetBuiltFromBody(t *testing.T) {
	longBody := strings.Repeat("word    and\nmore ", 50)
	msg := &gmailapi.Message{
		Id: "msg-2",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "promo@acme.com"},
				{Name: "Subject", Value: "Long one"},
			},
			Body: &gmailapi.MessagePartBody{Data: encodeBody(longBody)},
		},
	}

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}
	if len(parsed.Snippet) > 200 {
		t.Errorf("expected snippet capped at 200 chars, got %d", len(parsed.Snippet))
	}
	if strings.Contains(parsed.Snippet, "\n") || strings.Contains(parsed.Snippet, "  ") {
		t.Errorf("expected whitespace-collapsed snippet, got %q", parsed.Snippet)
	}
}

func TestParse_SnippetTruncatesOnRuneBoundary(t *testing.T) {
	// three-byte runes guarantee a rune straddles the byte cap
	longBody := strings.Repeat("ステキなセール", 20)
	msg := &gmailapi.Message{
		Id: "msg-2b",
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "promo@acme.jp"},
				{Name: "Subject", Value: "Long one"},
			},
			Body: &gmailapi.MessagePartBody{Data: encodeBody(longBody)},
		},
	}

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}
	if len(parsed.Snippet) > 200 {
		t.Errorf("expected snippet capped at 200 bytes, got %d", len(parsed.Snippet))
	}
	if !utf8.ValidString(parsed.Snippet) {
		t.Errorf("expected valid UTF-8 snippet, got %q", parsed.Snippet)
	}
}

func TestParse_NestedParts(t *testing.T) {
	msg := &gmailapi.Message{
		Id: "msg-3",
		Payload: &gmailapi.MessagePart{
			MimeType: "multipart/mixed",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: "promo@acme.com"},
			},
			Parts: []*gmailapi.MessagePart{
				{
					MimeType: "multipart/alternative",
					Parts: []*gmailapi.MessagePart{
						{
							MimeType: "text/plain",
							Body:     &gmailapi.MessagePartBody{Data: encodeBody("nested plain")},
						},
					},
				},
			},
		},
	}

	parsed := Parse(msg)
	if parsed == nil {
		t.Fatal("expected parsed message, got nil")
	}
	if parsed.BodyText == nil || *parsed.BodyText != "nested plain" {
		t.Errorf("expected nested text/plain part to be found, got %v", parsed.BodyText)
	}
	if parsed.BodyHTML != nil {
		t.Errorf("expected nil html body, got %v", *parsed.BodyHTML)
	}
}
