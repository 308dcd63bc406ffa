package gmail

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// requestTimeout bounds every Gmail API call so one hung request cannot
// stall an ingestion run
const requestTimeout = 30 * time.Second

// MessagePage is one page of message IDs from a search
type MessagePage struct {
	MessageIDs    []string
	NextPageToken string
}

// Client wraps the Gmail API using the process-wide OAuth refresh credential.
// The token source transparently refreshes expired access tokens.
type Client struct {
	clientID     string
	clientSecret string
	refreshToken string

	mu         sync.Mutex
	svc        *gmailapi.Service
	httpClient *http.Client
}

func NewClient(clientID, clientSecret, refreshToken string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		refreshToken: refreshToken,
	}
}

// service lazily builds the Gmail service backed by a self-refreshing token
// source
func (c *Client) service(ctx context.Context) (*gmailapi.Service, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.svc != nil {
		return c.svc, nil
	}

	if c.clientID == "" || c.clientSecret == "" || c.refreshToken == "" {
		return nil, fmt.Errorf("gmail credentials not configured")
	}

	config := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	tokenSource := config.TokenSource(context.Background(), &oauth2.Token{
		RefreshToken: c.refreshToken,
	})

	c.httpClient = oauth2.NewClient(context.Background(), tokenSource)
	c.httpClient.Timeout = requestTimeout

	svc, err := gmailapi.NewService(ctx, option.WithHTTPClient(c.httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	c.svc = svc
	return c.svc, nil
}

// ListMessageIDs fetches one page of message IDs matching the query
// (lightweight, no full message fetch)
func (c *Client) ListMessageIDs(ctx context.Context, query string, maxResults int, pageToken string) (*MessagePage, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	listCall := svc.Users.Messages.List("me").Q(query).MaxResults(int64(maxResults)).Context(ctx)
	if pageToken != "" {
		listCall = listCall.PageToken(pageToken)
	}

	listResp, err := listCall.Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	messageIDs := make([]string, 0, len(listResp.Messages))
	for _, msg := range listResp.Messages {
		messageIDs = append(messageIDs, msg.Id)
	}

	return &MessagePage{
		MessageIDs:    messageIDs,
		NextPageToken: listResp.NextPageToken,
	}, nil
}

// GetMessage fetches one full message by its Gmail message ID
func (c *Client) GetMessage(ctx context.Context, messageID string) (*gmailapi.Message, error) {
	svc, err := c.service(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := svc.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get message %s: %w", messageID, err)
	}

	return msg, nil
}
