package features

import (
	"context"
	"testing"
	"time"

	"github.com/falcon-fin/falcon/internal/domain"
)

// stubRepo implements the history read methods used by the feature
// layer. Unused Repository methods panic via the embedded nil interface.
type stubRepo struct {
	domain.Repository

	lastTxn   *time.Time
	lastPair  *time.Time
	pairSeen  bool
	pairCount int64
	saved     []*domain.HistoryRecord
}

func (s *stubRepo) LastTransactionTime(ctx context.Context, sender string) (*time.Time, error) {
	return s.lastTxn, nil
}

func (s *stubRepo) LastPairTime(ctx context.Context, sender, beneficiary string) (*time.Time, error) {
	return s.lastPair, nil
}

func (s *stubRepo) PairExists(ctx context.Context, sender, beneficiary string) (bool, error) {
	return s.pairSeen, nil
}

func (s *stubRepo) CountPairSince(ctx context.Context, sender, beneficiary string, since time.Time) (int64, error) {
	return s.pairCount, nil
}

func (s *stubRepo) SaveHistoryRecord(ctx context.Context, rec *domain.HistoryRecord) error {
	s.saved = append(s.saved, rec)
	return nil
}

func TestTimeSinceLastTxnNoHistory(t *testing.T) {
	h := NewHistory(&stubRepo{})

	got, err := h.TimeSinceLastTxn(context.Background(), "ACC001", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.0 {
		t.Errorf("expected 0.0 for empty history, got %f", got)
	}
}

func TestTimeSinceLastTxnRounded(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	last := now.Add(-90*time.Second - 400*time.Millisecond)
	h := NewHistory(&stubRepo{lastTxn: &last})

	got, err := h.TimeSinceLastTxn(context.Background(), "ACC001", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1.51 {
		t.Errorf("expected 1.51 minutes, got %f", got)
	}
}

func TestTimeSincePairClampsNegative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	future := now.Add(30 * time.Second)
	h := NewHistory(&stubRepo{lastPair: &future})

	got, err := h.TimeSincePair(context.Background(), "ACC001", "ACC002", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.0 {
		t.Errorf("expected clamp to 0.0 for future record, got %f", got)
	}
}

func TestIsNewBeneficiary(t *testing.T) {
	h := NewHistory(&stubRepo{pairSeen: false})
	isNew, err := h.IsNewBeneficiary(context.Background(), "ACC001", "ACC002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNew {
		t.Error("expected unseen pair to be new")
	}

	h = NewHistory(&stubRepo{pairSeen: true})
	isNew, err = h.IsNewBeneficiary(context.Background(), "ACC001", "ACC002")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if isNew {
		t.Error("expected seen pair not to be new")
	}
}

func TestIsRapidRepeat(t *testing.T) {
	cases := []struct {
		name      string
		count     int64
		threshold int
		want      bool
	}{
		{"below threshold", 2, 3, false},
		{"at threshold", 3, 3, true},
		{"above threshold", 5, 3, true},
		{"disabled", 100, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHistory(&stubRepo{pairCount: tc.count})
			got, err := h.IsRapidRepeat(context.Background(), "ACC001", "ACC002", time.Now(), tc.threshold, time.Hour)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Errorf("count=%d threshold=%d: expected %v, got %v", tc.count, tc.threshold, tc.want, got)
			}
		})
	}
}

func TestAppend(t *testing.T) {
	repo := &stubRepo{}
	h := NewHistory(repo)

	rec := &domain.HistoryRecord{ID: "txn-1", SenderAccount: "ACC001", BeneficiaryAccount: "ACC002"}
	if err := h.Append(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.saved) != 1 || repo.saved[0].ID != "txn-1" {
		t.Error("expected record to reach the repository")
	}
}
