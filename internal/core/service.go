package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// UnsubscribeService is the core service driving batch unsubscription runs
type UnsubscribeService struct {
	mailbox      Mailbox
	locator      LinkLocator
	executor     UnsubscribeExecutor
	stats        StatsStore
	activities   ActivityStore
	logger       *zap.Logger
	labelName    string
	messageDelay time.Duration

	mu       sync.Mutex
	userRuns map[string]*sync.Mutex
}

// NewUnsubscribeService creates a new unsubscribe service
func NewUnsubscribeService(
	mailbox Mailbox,
	locator LinkLocator,
	executor UnsubscribeExecutor,
	stats StatsStore,
	activities ActivityStore,
	logger *zap.Logger,
	labelName string,
	messageDelay time.Duration,
) *UnsubscribeService {
	if labelName == "" {
		labelName = DefaultLabelName
	}
	return &UnsubscribeService{
		mailbox:      mailbox,
		locator:      locator,
		executor:     executor,
		stats:        stats,
		activities:   activities,
		logger:       logger,
		labelName:    labelName,
		messageDelay: messageDelay,
		userRuns:     make(map[string]*sync.Mutex),
	}
}

// userLock returns the per-user run lock. Concurrent RunBatch calls for
// the same user serialize; naive concurrent increments would race.
func (s *UnsubscribeService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.userRuns[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userRuns[userID] = lock
	}
	return lock
}

// RunBatch performs one complete unsubscription run for a user: search,
// per-message extract/locate/execute, stats and label mutation, activity
// emission, incremental persistence. A failing message never aborts the
// batch; only authentication-class errors do.
func (s *UnsubscribeService) RunBatch(ctx context.Context, userID, query string, maxResults int) (*BatchSummary, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if query == "" {
		query = DefaultSearchQuery
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxEmails
	}

	stats, err := s.stats.LoadStats(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load user stats, starting from empty",
			zap.String("user_id", userID),
			zap.Error(err))
		stats = NewUserStats()
	}

	// Label creation failure is non-fatal; the run proceeds without labeling
	labelID, err := s.mailbox.EnsureLabel(ctx, s.labelName)
	if err != nil {
		s.logger.Warn("Could not ensure label, continuing without labeling",
			zap.String("label", s.labelName),
			zap.Error(err))
		labelID = ""
	}

	s.record(ctx, userID, NewActivity(ActivityInfo, "🔍 Searching for subscription emails..."))

	ids, err := s.mailbox.Search(ctx, query, maxResults)
	if err != nil {
		s.record(ctx, userID, NewActivity(ActivityError, fmt.Sprintf("❌ Error searching mailbox: %v", err)))
		return nil, fmt.Errorf("search mailbox: %w", err)
	}

	if len(ids) == 0 {
		s.record(ctx, userID, NewActivity(ActivityWarning, "⚠️ No subscription emails found matching the search criteria"))
		return &BatchSummary{}, nil
	}

	s.record(ctx, userID, NewActivity(ActivityInfo,
		fmt.Sprintf("📧 Found %d subscription emails - starting unsubscription process", len(ids))))

	summary := &BatchSummary{}
	for i, id := range ids {
		// Cooperative cancellation, checked between messages only
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if i == 0 {
			s.record(ctx, userID, NewActivity(ActivityInfo,
				fmt.Sprintf("🔄 Starting to process %d emails...", len(ids))))
		} else if (i+1)%10 == 0 || i == len(ids)-1 {
			pct := (i + 1) * 100 / len(ids)
			s.record(ctx, userID, NewActivity(ActivityInfo,
				fmt.Sprintf("📊 Progress: %d/%d emails processed (%d%% complete)", i+1, len(ids), pct)))
		}

		s.logger.Info("Processing email",
			zap.String("user_id", userID),
			zap.String("message_id", id),
			zap.Int("position", i+1),
			zap.Int("total", len(ids)))

		outcome, procErr := s.processMessage(ctx, id, labelID, stats)
		summary.Scanned++

		if procErr != nil && errors.Is(procErr, ErrAuthExpired) {
			// Systemic failure: abort the remaining loop
			s.record(ctx, userID, NewActivity(ActivityError,
				"❌ Mailbox authentication expired - stopping the run"))
			s.persist(ctx, userID, stats)
			return summary, procErr
		}

		display := displayName(outcome.Metadata)
		switch outcome.Kind {
		case OutcomeUnsubscribed:
			summary.Unsubscribed++
			s.record(ctx, userID, NewActivity(ActivitySuccess,
				fmt.Sprintf("✅ Successfully unsubscribed from %s", display)))
		case OutcomeNoContentFound:
			summary.Failed++
			s.record(ctx, userID, NewActivity(ActivityWarning,
				fmt.Sprintf("⚠️ No readable content in email from %s", display)))
		case OutcomeNoLinksFound:
			summary.Failed++
			s.record(ctx, userID, NewActivity(ActivityWarning,
				fmt.Sprintf("⚠️ No unsubscribe links found in email from %s", display)))
		case OutcomeExecutionFailed:
			summary.Failed++
			s.record(ctx, userID, NewActivity(ActivityError,
				fmt.Sprintf("❌ Failed to unsubscribe from %s - no working unsubscribe link found", display)))
		default:
			summary.Failed++
			s.logger.Error("Error processing email",
				zap.String("message_id", id),
				zap.Error(procErr))
			s.record(ctx, userID, NewActivity(ActivityError,
				fmt.Sprintf("❌ Error processing email: %v", procErr)))
		}

		// A crash mid-batch loses at most the in-flight message
		s.persist(ctx, userID, stats)

		// Fixed inter-message delay to respect third-party rate limits
		if s.messageDelay > 0 && i < len(ids)-1 {
			select {
			case <-ctx.Done():
				return summary, ctx.Err()
			case <-time.After(s.messageDelay):
			}
		}
	}

	summary.TimeSaved = stats.TimeSaved

	msg := fmt.Sprintf("🎉 Unsubscription process completed! Scanned %d emails, successfully unsubscribed from %d services",
		summary.Scanned, summary.Unsubscribed)
	if summary.Failed > 0 {
		msg += fmt.Sprintf(" (%d failed)", summary.Failed)
	}
	msg += fmt.Sprintf(", saving you %d minutes of future email management time.", stats.TimeSaved)
	s.record(ctx, userID, NewActivity(ActivitySuccess, msg))

	s.logger.Info("Completed unsubscription run",
		zap.String("user_id", userID),
		zap.Int("scanned", summary.Scanned),
		zap.Int("unsubscribed", summary.Unsubscribed),
		zap.Int("failed", summary.Failed))

	return summary, nil
}

// processMessage runs extract -> locate -> execute for one message and
// mutates stats accordingly. The returned error is non-nil only for the
// unexpected-error outcome; the caller decides whether it is systemic.
// Scanned is counted for every attempted message, including failed
// fetches.
func (s *UnsubscribeService) processMessage(ctx context.Context, id, labelID string, stats *UserStats) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			outcome = Outcome{Kind: OutcomeUnexpectedError}
			err = fmt.Errorf("panic processing message %s: %v", id, r)
		}
	}()

	stats.ApplyScan()

	msg, err := s.mailbox.GetMessage(ctx, id)
	if err != nil {
		return Outcome{Kind: OutcomeUnexpectedError}, fmt.Errorf("get message %s: %w", id, err)
	}

	content := ExtractContent(msg)
	outcome.Metadata = content.Metadata

	if content.Body == "" {
		outcome.Kind = OutcomeNoContentFound
		return outcome, nil
	}

	links := s.locator.Find(content.Body)
	if len(links) == 0 {
		outcome.Kind = OutcomeNoLinksFound
		return outcome, nil
	}

	s.logger.Debug("Found unsubscribe candidates",
		zap.String("message_id", id),
		zap.Int("count", len(links)))

	// Visit candidates in document order, stop at the first success
	unsubscribed := false
	for _, link := range links {
		if s.executor.Execute(ctx, link) {
			unsubscribed = true
			break
		}
	}

	if !unsubscribed {
		outcome.Kind = OutcomeExecutionFailed
		return outcome, nil
	}

	stats.ApplySuccess(content.Metadata.Domain, content.Metadata.SenderName, content.Metadata.SenderEmail)

	// Best-effort label mutation; failure never affects the outcome
	if labelID != "" {
		if lerr := s.mailbox.ModifyLabels(ctx, id, []string{labelID}, []string{"INBOX"}); lerr != nil {
			s.logger.Warn("Failed to label message",
				zap.String("message_id", id),
				zap.Error(lerr))
		}
	}

	outcome.Kind = OutcomeUnsubscribed
	return outcome, nil
}

// record appends an activity, logging and swallowing store failures
func (s *UnsubscribeService) record(ctx context.Context, userID string, record ActivityRecord) {
	if err := s.activities.Append(ctx, userID, record); err != nil {
		s.logger.Error("Failed to append activity",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	s.logger.Info("Activity",
		zap.String("user_id", userID),
		zap.String("type", string(record.Type)),
		zap.String("message", record.Message))
}

// persist saves stats, logging and swallowing store failures
func (s *UnsubscribeService) persist(ctx context.Context, userID string, stats *UserStats) {
	if err := s.stats.SaveStats(ctx, userID, stats); err != nil {
		s.logger.Error("Failed to persist stats",
			zap.String("user_id", userID),
			zap.Error(err))
	}
}

func displayName(md SenderMetadata) string {
	name := md.SenderName
	if name == "" {
		name = "Unknown sender"
	}
	if md.SenderEmail != "" && md.SenderEmail != name {
		return fmt.Sprintf("%s (%s)", name, md.SenderEmail)
	}
	return name
}
