// Package features derives the per-request feature set: velocity and
// novelty signals from the transaction history, merchant metadata, and
// the assembled, encoder-ready feature vector.
package features

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/falcon-fin/falcon/internal/domain"
)

// History answers velocity and novelty questions against the
// append-only transaction log. Reads may be slightly stale under
// concurrent writers; each append is a single atomic insert.
type History struct {
	repo domain.Repository
}

// NewHistory creates a history feature service over a repository.
func NewHistory(repo domain.Repository) *History {
	return &History{repo: repo}
}

// TimeSinceLastTxn returns the minutes between now and the sender's
// most recent prior record across all beneficiaries, 0.0 without history.
func (h *History) TimeSinceLastTxn(ctx context.Context, sender string, now time.Time) (float64, error) {
	if sender == "" {
		return 0, fmt.Errorf("sender is required")
	}

	last, err := h.repo.LastTransactionTime(ctx, sender)
	if err != nil {
		return 0, fmt.Errorf("failed to read sender history: %w", err)
	}
	if last == nil {
		return 0.0, nil
	}
	return roundMinutes(now.Sub(*last)), nil
}

// TimeSincePair returns the minutes since the most recent prior record
// for the exact sender/beneficiary pair, 0.0 if none.
func (h *History) TimeSincePair(ctx context.Context, sender, beneficiary string, now time.Time) (float64, error) {
	if sender == "" || beneficiary == "" {
		return 0, fmt.Errorf("sender and beneficiary are required")
	}

	last, err := h.repo.LastPairTime(ctx, sender, beneficiary)
	if err != nil {
		return 0, fmt.Errorf("failed to read pair history: %w", err)
	}
	if last == nil {
		return 0.0, nil
	}
	return roundMinutes(now.Sub(*last)), nil
}

// IsNewBeneficiary reports whether no prior record exists for the pair.
func (h *History) IsNewBeneficiary(ctx context.Context, sender, beneficiary string) (bool, error) {
	exists, err := h.repo.PairExists(ctx, sender, beneficiary)
	if err != nil {
		return false, fmt.Errorf("failed to check beneficiary novelty: %w", err)
	}
	return !exists, nil
}

// IsRapidRepeat reports whether at least threshold prior records for
// the pair fall within the trailing window of the decision time.
func (h *History) IsRapidRepeat(ctx context.Context, sender, beneficiary string, now time.Time, threshold int, window time.Duration) (bool, error) {
	if threshold <= 0 {
		return false, nil
	}

	count, err := h.repo.CountPairSince(ctx, sender, beneficiary, now.Add(-window))
	if err != nil {
		return false, fmt.Errorf("failed to count pair records: %w", err)
	}
	return count >= int64(threshold), nil
}

// Append adds the evaluated transaction to the history log.
func (h *History) Append(ctx context.Context, rec *domain.HistoryRecord) error {
	if err := h.repo.SaveHistoryRecord(ctx, rec); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// roundMinutes converts a duration to minutes rounded to 2 decimals,
// matching the precision the models were trained with.
func roundMinutes(d time.Duration) float64 {
	mins := d.Minutes()
	if mins < 0 {
		mins = 0
	}
	return math.Round(mins*100) / 100
}
