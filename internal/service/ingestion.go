package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vipul43/scout-worker/internal/ai"
	"github.com/vipul43/scout-worker/internal/classifier"
	"github.com/vipul43/scout-worker/internal/models"
	"github.com/vipul43/scout-worker/internal/parser"
	gmailapi "google.golang.org/api/gmail/v1"
)

// ErrNoMailboxConfigured is returned before any CronRun row exists when
// there is no mailbox to poll. Callers surface it as a configuration error.
var ErrNoMailboxConfigured = errors.New("no mailbox configured for ingestion")

const parseFailureMessage = "Could not parse email message"

// MailboxPoller fetches candidate messages for one mailbox
type MailboxPoller interface {
	PollNewMessages(ctx context.Context, mailbox, orgID string) ([]*gmailapi.Message, error)
}

// DomainSource yields the registry's domain -> competitorID snapshot
type DomainSource interface {
	DomainSet(ctx context.Context) (map[string]string, error)
}

// CompetitorStore resolves competitor context for enrichment
type CompetitorStore interface {
	GetByID(ctx context.Context, competitorID string) (*models.Competitor, error)
}

// EmailStore persists ingested emails
type EmailStore interface {
	ExistsByMessageID(ctx context.Context, orgID, messageID string) (bool, error)
	Create(ctx context.Context, email *models.Email) error
	UpdateAnalysis(ctx context.Context, emailID string, summary, category, sentiment string, tags []string) error
}

// SyncStateLister enumerates the configured mailboxes
type SyncStateLister interface {
	ListAll(ctx context.Context) ([]models.SyncState, error)
}

// CronRunStore is the run-level ledger
type CronRunStore interface {
	Create(ctx context.Context, run models.CronRun) error
	MarkSuccess(ctx context.Context, runID string, processed, duplicates, failed int, durationMs int64) error
	MarkFailed(ctx context.Context, runID string, errorMessage string, durationMs int64) error
}

// IngestionLogStore is the message-level ledger
type IngestionLogStore interface {
	Create(ctx context.Context, entry models.IngestionLog) error
}

// Analyzer is the soft-fail enrichment provider; nil results are normal
type Analyzer interface {
	Analyze(ctx context.Context, input ai.AnalysisInput) *ai.Analysis
}

// RunResult aggregates one orchestrator invocation. Skipped messages are
// logged but excluded from the three CronRun counters.
type RunResult struct {
	Processed  int
	Duplicates int
	Failed     int
	Skipped    int
}

// messageOutcome is the immutable per-message result the run loop folds over
type messageOutcome struct {
	status    string
	messageID *string
	errMsg    *string
}

// Orchestrator drives one ingestion run: poll, parse, dedup, classify,
// persist, enrich, and write both ledgers
type Orchestrator struct {
	poller      MailboxPoller
	domains     DomainSource
	competitors CompetitorStore
	emails      EmailStore
	syncStates  SyncStateLister
	cronRuns    CronRunStore
	logs        IngestionLogStore
	analyzer    Analyzer
	log         zerolog.Logger
}

func NewOrchestrator(
	poller MailboxPoller,
	domains DomainSource,
	competitors CompetitorStore,
	emails EmailStore,
	syncStates SyncStateLister,
	cronRuns CronRunStore,
	logs IngestionLogStore,
	analyzer Analyzer,
	log zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		poller:      poller,
		domains:     domains,
		competitors: competitors,
		emails:      emails,
		syncStates:  syncStates,
		cronRuns:    cronRuns,
		logs:        logs,
		analyzer:    analyzer,
		log:         log,
	}
}

// Run executes one ingestion pass over every configured mailbox. The CronRun
// row is created in the running state before any work and finished exactly
// once. A provider failure marks the run failed; a single bad message never
// does.
func (o *Orchestrator) Run(ctx context.Context, trigger, orgID string) (*RunResult, error) {
	states, err := o.syncStates.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list mailboxes: %w", err)
	}
	if len(states) == 0 {
		return nil, ErrNoMailboxConfigured
	}

	if orgID == "" {
		orgID = states[0].OrgID
	}

	run := models.CronRun{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Status:    models.RunStatusRunning,
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	if err := o.cronRuns.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to create cron run: %w", err)
	}

	o.log.Info().
		Str("run_id", run.ID).
		Str("trigger", trigger).
		Int("mailboxes", len(states)).
		Msg("ingestion run started")

	result := &RunResult{}
	var runErr error

	for _, state := range states {
		messages, err := o.poller.PollNewMessages(ctx, state.Email, state.OrgID)
		if err != nil {
			// Provider errors are run-fatal, but the remaining mailboxes
			// still get their pass
			o.log.Error().Err(err).Str("mailbox", state.Email).Msg("mailbox poll failed")
			if runErr == nil {
				runErr = err
			}
			continue
		}

		for _, msg := range messages {
			outcome := o.processMessage(ctx, state.OrgID, msg)
			o.writeLog(ctx, state.OrgID, outcome)

			switch outcome.status {
			case models.LogStatusSuccess:
				result.Processed++
			case models.LogStatusDuplicate:
				result.Duplicates++
			case models.LogStatusSkipped:
				result.Skipped++
			case models.LogStatusFailed:
				result.Failed++
			}
		}
	}

	durationMs := time.Since(run.StartedAt).Milliseconds()

	if runErr != nil {
		if err := o.cronRuns.MarkFailed(ctx, run.ID, runErr.Error(), durationMs); err != nil {
			o.log.Error().Err(err).Str("run_id", run.ID).Msg("failed to finish cron run")
		}
		return result, fmt.Errorf("ingestion run failed: %w", runErr)
	}

	if err := o.cronRuns.MarkSuccess(ctx, run.ID, result.Processed, result.Duplicates, result.Failed, durationMs); err != nil {
		o.log.Error().Err(err).Str("run_id", run.ID).Msg("failed to finish cron run")
	}

	o.log.Info().
		Str("run_id", run.ID).
		Int("processed", result.Processed).
		Int("duplicates", result.Duplicates).
		Int("skipped", result.Skipped).
		Int("failed", result.Failed).
		Int64("duration_ms", durationMs).
		Msg("ingestion run complete")

	return result, nil
}

// processMessage runs the per-message pipeline and converts every failure,
// panics included, into a failed outcome so the run continues
func (o *Orchestrator) processMessage(ctx context.Context, orgID string, msg *gmailapi.Message) (outcome messageOutcome) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error().Interface("panic", r).Msg("panic while processing message")
			outcome = failedOutcome(nil, fmt.Sprintf("panic: %v", r))
		}
	}()

	parsed := parser.Parse(msg)
	if parsed == nil {
		return failedOutcome(nil, parseFailureMessage)
	}

	messageID := parsed.MessageID

	exists, err := o.emails.ExistsByMessageID(ctx, orgID, messageID)
	if err != nil {
		return failedOutcome(&messageID, err.Error())
	}
	if exists {
		return messageOutcome{status: models.LogStatusDuplicate, messageID: &messageID}
	}

	domains, err := o.domains.DomainSet(ctx)
	if err != nil {
		return failedOutcome(&messageID, err.Error())
	}

	competitorID, ok := classifier.Detect(parsed.SenderAddress, domains)
	if !ok {
		detail := fmt.Sprintf("No competitor match for sender: %s", parsed.SenderAddress)
		return messageOutcome{status: models.LogStatusSkipped, messageID: &messageID, errMsg: &detail}
	}

	email := &models.Email{
		ID:            uuid.New().String(),
		OrgID:         orgID,
		MessageID:     messageID,
		Subject:       parsed.Subject,
		SenderAddress: parsed.SenderAddress,
		SenderName:    parsed.SenderName,
		ReceivedAt:    parsed.ReceivedAt,
		BodyText:      parsed.BodyText,
		BodyHTML:      parsed.BodyHTML,
		Snippet:       parsed.Snippet,
		CompetitorID:  competitorID,
	}
	if err := o.emails.Create(ctx, email); err != nil {
		return failedOutcome(&messageID, err.Error())
	}

	o.enrich(ctx, email, competitorID)

	return messageOutcome{status: models.LogStatusSuccess, messageID: &messageID}
}

// enrich runs best-effort AI analysis on a persisted email. Failures land in
// the operational log only and never change the ingestion outcome.
func (o *Orchestrator) enrich(ctx context.Context, email *models.Email, competitorID string) {
	if o.analyzer == nil {
		return
	}

	input := ai.AnalysisInput{
		Subject:       email.Subject,
		SenderAddress: email.SenderAddress,
	}
	if email.BodyText != nil {
		input.BodyText = *email.BodyText
	}

	competitor, err := o.competitors.GetByID(ctx, competitorID)
	if err != nil {
		o.log.Warn().Err(err).Str("email_id", email.ID).Msg("enrichment skipped: competitor lookup failed")
		return
	}
	input.CompetitorName = competitor.Name
	input.CategoryNames = competitor.CategoryNames

	analysis := o.analyzer.Analyze(ctx, input)
	if analysis == nil {
		o.log.Debug().Str("email_id", email.ID).Msg("enrichment unavailable for email")
		return
	}

	if err := o.emails.UpdateAnalysis(ctx, email.ID, analysis.Summary, analysis.Category, analysis.Sentiment, analysis.Tags); err != nil {
		o.log.Warn().Err(err).Str("email_id", email.ID).Msg("failed to store enrichment result")
	}
}

// writeLog appends the ledger entry for one outcome. A ledger write failure
// is operational noise, not a reason to abort the run.
func (o *Orchestrator) writeLog(ctx context.Context, orgID string, outcome messageOutcome) {
	entry := models.IngestionLog{
		ID:           uuid.New().String(),
		OrgID:        orgID,
		MessageID:    outcome.messageID,
		Status:       outcome.status,
		ErrorMessage: outcome.errMsg,
		ProcessedAt:  time.Now(),
	}
	if err := o.logs.Create(ctx, entry); err != nil {
		o.log.Error().Err(err).Str("status", outcome.status).Msg("failed to write ingestion log entry")
	}
}

func failedOutcome(messageID *string, errMsg string) messageOutcome {
	return messageOutcome{status: models.LogStatusFailed, messageID: messageID, errMsg: &errMsg}
}
