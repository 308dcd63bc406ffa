package parser

import (
	"encoding/base64"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/vipul43/scout-worker/internal/models"
	gmailapi "google.golang.org/api/gmail/v1"
)

const (
	noSubjectPlaceholder = "(no subject)"
	snippetMaxLen        = 200
)

// Matches `"Display Name" <addr@example.com>` and unquoted variants
var senderPattern = regexp.MustCompile(`^\s*"?([^"<]*?)"?\s*<([^>]+)>\s*$`)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Parse normalizes a full Gmail message. It returns nil only when the
// message carries no From header; every other missing field degrades to a
// placeholder or a nil pointer.
func Parse(msg *gmailapi.Message) *models.ParsedMessage {
	if msg == nil || msg.Payload == nil {
		return nil
	}

	var from, subject, dateHeader string
	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			from = header.Value
		case "Subject":
			subject = header.Value
		case "Date":
			dateHeader = header.Value
		}
	}

	if from == "" {
		return nil
	}

	senderName, senderAddress := splitSender(from)

	if subject == "" {
		subject = noSubjectPlaceholder
	}

	receivedAt := parseReceivedAt(dateHeader, msg.InternalDate)

	bodyText, bodyHTML := extractBodies(msg.Payload)

	snippet := strings.TrimSpace(msg.Snippet)
	if snippet == "" {
		snippet = buildSnippet(bodyText)
	}

	parsed := &models.ParsedMessage{
		MessageID:     msg.Id,
		Subject:       subject,
		SenderAddress: senderAddress,
		SenderName:    senderName,
		ReceivedAt:    receivedAt,
		Snippet:       snippet,
	}
	if bodyText != "" {
		parsed.BodyText = &bodyText
	}
	if bodyHTML != "" {
		parsed.BodyHTML = &bodyHTML
	}

	return parsed
}

// splitSender splits a From header into display name and address, tolerating
// both `"Name" <addr>` and bare addr forms
func splitSender(from string) (*string, string) {
	if m := senderPattern.FindStringSubmatch(from); m != nil {
		name := strings.TrimSpace(m[1])
		address := strings.TrimSpace(m[2])
		if name == "" {
			return nil, address
		}
		return &name, address
	}
	return nil, strings.TrimSpace(from)
}

// parseReceivedAt prefers the Date header, falling back to Gmail's internal
// delivery timestamp
func parseReceivedAt(dateHeader string, internalDate int64) time.Time {
	if dateHeader != "" {
		if t, err := parseEmailDate(dateHeader); err == nil {
			return t
		}
	}
	if internalDate > 0 {
		return time.UnixMilli(internalDate)
	}
	return time.Now()
}

// parseEmailDate parses various email date formats
func parseEmailDate(dateStr string) (time.Time, error) {
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC3339,
	}

	dateStr = strings.TrimSpace(dateStr)

	// Gmail sometimes appends a timezone name after the numeric offset,
	// e.g. "(UTC)"
	if idx := strings.Index(dateStr, " ("); idx != -1 {
		dateStr = dateStr[:idx]
	}

	var lastErr error
	for _, format := range formats {
		t, err := time.Parse(format, dateStr)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, lastErr
}

// extractBodies walks the MIME tree for the first text/plain and first
// text/html leaf parts
func extractBodies(payload *gmailapi.MessagePart) (string, string) {
	var textPlain, textHTML string

	if payload.Body != nil && payload.Body.Data != "" {
		if decoded, ok := decodeBody(payload.Body.Data); ok {
			switch payload.MimeType {
			case "text/plain":
				textPlain = decoded
			case "text/html":
				textHTML = decoded
			}
		}
	}

	extractBodiesFromParts(payload.Parts, &textPlain, &textHTML)

	return textPlain, textHTML
}

func extractBodiesFromParts(parts []*gmailapi.MessagePart, textPlain, textHTML *string) {
	for _, part := range parts {
		if part.Body != nil && part.Body.Data != "" {
			if decoded, ok := decodeBody(part.Body.Data); ok {
				if part.MimeType == "text/plain" && *textPlain == "" {
					*textPlain = decoded
				} else if part.MimeType == "text/html" && *textHTML == "" {
					*textHTML = decoded
				}
			}
		}

		if len(part.Parts) > 0 {
			extractBodiesFromParts(part.Parts, textPlain, textHTML)
		}
	}
}

// decodeBody decodes base64url part data. Gmail emits unpadded data but
// padded variants show up in fixtures and proxies.
func decodeBody(data string) (string, bool) {
	if decoded, err := base64.RawURLEncoding.DecodeString(data); err == nil {
		return string(decoded), true
	}
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		return string(decoded), true
	}
	return "", false
}

// buildSnippet truncates the plain-text body into a whitespace-collapsed
// preview, cutting on a rune boundary
func buildSnippet(bodyText string) string {
	collapsed := strings.TrimSpace(whitespacePattern.ReplaceAllString(bodyText, " "))
	if len(collapsed) <= snippetMaxLen {
		return collapsed
	}
	cut := snippetMaxLen
	for cut > 0 && !utf8.RuneStart(collapsed[cut]) {
		cut--
	}
	return collapsed[:cut]
}
