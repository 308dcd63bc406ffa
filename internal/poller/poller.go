package poller

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/vipul43/scout-worker/internal/gmail"
	"github.com/vipul43/scout-worker/internal/models"
	"golang.org/x/sync/errgroup"
	gmailapi "google.golang.org/api/gmail/v1"
)

const (
	DefaultWindowDays     = 7
	DefaultFetchBatchSize = 50

	listPageSize = 100
)

// GmailClient is the provider surface the poller needs
type GmailClient interface {
	ListMessageIDs(ctx context.Context, query string, maxResults int, pageToken string) (*gmail.MessagePage, error)
	GetMessage(ctx context.Context, messageID string) (*gmailapi.Message, error)
}

// DomainSource yields the registry's current competitor domain snapshot
type DomainSource interface {
	Get(ctx context.Context) ([]models.CompetitorDomain, error)
}

// SyncStateStore tracks per-mailbox poll bookkeeping
type SyncStateStore interface {
	GetOrCreate(ctx context.Context, email, orgID string) (*models.SyncState, error)
	Touch(ctx context.Context, id string) error
}

// Poller searches the mailbox for competitor messages inside the rolling
// window. There is no incremental cursor on purpose: every run rescans the
// window and the orchestrator's dedup step drops what was already ingested,
// so a missed update can never lose messages permanently.
type Poller struct {
	client     GmailClient
	domains    DomainSource
	syncStates SyncStateStore
	windowDays int
	batchSize  int
	log        zerolog.Logger
}

func New(client GmailClient, domains DomainSource, syncStates SyncStateStore, windowDays, batchSize int, log zerolog.Logger) *Poller {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	if batchSize <= 0 {
		batchSize = DefaultFetchBatchSize
	}
	return &Poller{
		client:     client,
		domains:    domains,
		syncStates: syncStates,
		windowDays: windowDays,
		batchSize:  batchSize,
		log:        log,
	}
}

// PollNewMessages returns the full messages matching known competitor
// domains within the rolling window. Provider errors propagate to the
// caller, which treats them as run-fatal.
func (p *Poller) PollNewMessages(ctx context.Context, mailbox, orgID string) ([]*gmailapi.Message, error) {
	domains, err := p.domains.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitor domains: %w", err)
	}
	if len(domains) == 0 {
		p.log.Info().Str("mailbox", mailbox).Msg("no competitor domains registered, skipping poll")
		return nil, nil
	}

	state, err := p.syncStates.GetOrCreate(ctx, mailbox, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sync state: %w", err)
	}

	query := p.buildQuery(domains)
	p.log.Debug().Str("mailbox", mailbox).Str("query", query).Msg("polling mailbox")

	messageIDs, err := p.listAllMessageIDs(ctx, query)
	if err != nil {
		return nil, err
	}

	messages, err := p.fetchMessages(ctx, messageIDs)
	if err != nil {
		return nil, err
	}

	// Touch even on an empty result so operators can tell "checked, found
	// nothing" from "never ran"
	if err := p.syncStates.Touch(ctx, state.ID); err != nil {
		return nil, fmt.Errorf("failed to update sync state: %w", err)
	}

	p.log.Info().
		Str("mailbox", mailbox).
		Int("messages", len(messages)).
		Msg("mailbox poll complete")

	return messages, nil
}

// buildQuery combines every registered domain into one OR search restricted
// to the rolling window
func (p *Poller) buildQuery(domains []models.CompetitorDomain) string {
	seen := make(map[string]bool, len(domains))
	parts := make([]string, 0, len(domains))
	for _, d := range domains {
		if seen[d.Domain] {
			continue
		}
		seen[d.Domain] = true
		parts = append(parts, d.Domain)
	}
	return fmt.Sprintf("from:(%s) newer_than:%dd", strings.Join(parts, " OR "), p.windowDays)
}

// listAllMessageIDs follows pagination cursors until exhausted
func (p *Poller) listAllMessageIDs(ctx context.Context, query string) ([]string, error) {
	var messageIDs []string
	pageToken := ""

	for {
		page, err := p.client.ListMessageIDs(ctx, query, listPageSize, pageToken)
		if err != nil {
			return nil, fmt.Errorf("failed to list messages: %w", err)
		}
		messageIDs = append(messageIDs, page.MessageIDs...)
		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	return messageIDs, nil
}

// fetchMessages loads full message bodies with bounded concurrency
func (p *Poller) fetchMessages(ctx context.Context, messageIDs []string) ([]*gmailapi.Message, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}

	messages := make([]*gmailapi.Message, len(messageIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.batchSize)

	for i, id := range messageIDs {
		i, id := i, id
		g.Go(func() error {
			msg, err := p.client.GetMessage(gctx, id)
			if err != nil {
				return err
			}
			messages[i] = msg
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	return messages, nil
}
