package leads

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AymanAAASWa/facebook-monitor/internal/domain"
)

// DefaultAlertThreshold is the score above which a newly created customer
// triggers an alert.
const DefaultAlertThreshold = 20

// Ledger maintains the running customer record per distinct author. One
// customer exists per author id; records are upserted, never deleted, and
// their score only accumulates.
type Ledger struct {
	store    domain.CustomerStore
	notifier domain.Notifier
	score    func(*domain.Post) int

	threshold int
	logger    *slog.Logger
	now       func() time.Time
}

// NewLedger creates a ledger. threshold of 0 selects DefaultAlertThreshold.
func NewLedger(store domain.CustomerStore, notifier domain.Notifier, score func(*domain.Post) int, threshold int, logger *slog.Logger) *Ledger {
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	return &Ledger{
		store:     store,
		notifier:  notifier,
		score:     score,
		threshold: threshold,
		logger:    logger,
		now:       time.Now,
	}
}

// Upsert attributes the post to its author's customer record, creating the
// record on first sight. Posts without an author identity are a no-op. The
// returned id is the customer's author id, empty for the no-op case.
//
// An existing customer gains the post id and its score; the stored contact
// is only filled in when still empty, never overwritten. A new customer
// starts interested; when its initial score exceeds the alert threshold the
// notifier is invoked with the customer's name and score.
func (l *Ledger) Upsert(ctx context.Context, post *domain.Post, contact domain.Contact) (string, error) {
	if post.AuthorID == "" {
		return "", nil
	}

	score := l.score(post)

	existing, err := l.store.Customer(ctx, post.AuthorID)
	if err != nil {
		return "", fmt.Errorf("load customer: %w", err)
	}

	if existing != nil {
		existing.PostIDs = append(existing.PostIDs, post.ID)
		existing.Score += score
		if existing.Phone == "" && contact.Found {
			existing.Phone = contact.Value
		}
		if err := l.store.SaveCustomer(ctx, existing); err != nil {
			return "", fmt.Errorf("update customer: %w", err)
		}
		return existing.ID, nil
	}

	customer := &domain.Customer{
		ID:            post.AuthorID,
		Name:          post.AuthorName,
		Status:        domain.StatusInterested,
		PostIDs:       []string{post.ID},
		Score:         score,
		LastContactAt: l.now(),
	}
	if contact.Found {
		customer.Phone = contact.Value
	}
	if err := l.store.SaveCustomer(ctx, customer); err != nil {
		return "", fmt.Errorf("create customer: %w", err)
	}

	if score > l.threshold {
		title := "high-value lead"
		msg := fmt.Sprintf("%s - score: %d", customer.Name, score)
		if err := l.notifier.Notify(ctx, title, msg); err != nil {
			l.logger.Warn("lead alert delivery failed", "customer_id", customer.ID, "error", err)
		}
	}

	return customer.ID, nil
}
