package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/falcon-fin/falcon/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "falcon-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetHistoryRecord", func(t *testing.T) {
		rec := &domain.HistoryRecord{
			ID:                 "txn-001",
			SenderAccount:      "ACC001",
			BeneficiaryAccount: "ACC002",
			Timestamp:          time.Now().UTC(),
			SenderName:         "Asha",
		}

		if err := repo.SaveHistoryRecord(ctx, rec); err != nil {
			t.Fatalf("SaveHistoryRecord failed: %v", err)
		}

		retrieved, err := repo.GetHistoryRecord(ctx, rec.ID)
		if err != nil {
			t.Fatalf("GetHistoryRecord failed: %v", err)
		}
		if retrieved.SenderAccount != rec.SenderAccount {
			t.Errorf("expected sender %s, got %s", rec.SenderAccount, retrieved.SenderAccount)
		}
		if retrieved.SenderName != rec.SenderName {
			t.Errorf("expected sender name %s, got %s", rec.SenderName, retrieved.SenderName)
		}
	})

	t.Run("HistoryRecordNotFound", func(t *testing.T) {
		_, err := repo.GetHistoryRecord(ctx, "no-such-id")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestVelocityQueries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	records := []*domain.HistoryRecord{
		{ID: "h1", SenderAccount: "ACC001", BeneficiaryAccount: "ACC002", Timestamp: base.Add(-90 * time.Minute)},
		{ID: "h2", SenderAccount: "ACC001", BeneficiaryAccount: "ACC002", Timestamp: base.Add(-30 * time.Minute)},
		{ID: "h3", SenderAccount: "ACC001", BeneficiaryAccount: "ACC003", Timestamp: base.Add(-10 * time.Minute)},
		{ID: "h4", SenderAccount: "ACC001", BeneficiaryAccount: "ACC002", Timestamp: base.Add(-5 * time.Minute)},
	}
	for _, rec := range records {
		if err := repo.SaveHistoryRecord(ctx, rec); err != nil {
			t.Fatalf("SaveHistoryRecord failed: %v", err)
		}
	}

	t.Run("LastTransactionTime", func(t *testing.T) {
		ts, err := repo.LastTransactionTime(ctx, "ACC001")
		if err != nil {
			t.Fatalf("LastTransactionTime failed: %v", err)
		}
		if ts == nil || !ts.Equal(base.Add(-5*time.Minute)) {
			t.Errorf("expected latest record time, got %v", ts)
		}

		ts, err = repo.LastTransactionTime(ctx, "ACC999")
		if err != nil {
			t.Fatalf("LastTransactionTime failed: %v", err)
		}
		if ts != nil {
			t.Errorf("expected nil for unknown sender, got %v", ts)
		}
	})

	t.Run("LastPairTime", func(t *testing.T) {
		ts, err := repo.LastPairTime(ctx, "ACC001", "ACC003")
		if err != nil {
			t.Fatalf("LastPairTime failed: %v", err)
		}
		if ts == nil || !ts.Equal(base.Add(-10*time.Minute)) {
			t.Errorf("expected pair record time, got %v", ts)
		}
	})

	t.Run("PairExists", func(t *testing.T) {
		exists, err := repo.PairExists(ctx, "ACC001", "ACC002")
		if err != nil {
			t.Fatalf("PairExists failed: %v", err)
		}
		if !exists {
			t.Error("expected known pair to exist")
		}

		exists, err = repo.PairExists(ctx, "ACC001", "ACC999")
		if err != nil {
			t.Fatalf("PairExists failed: %v", err)
		}
		if exists {
			t.Error("expected unknown pair not to exist")
		}
	})

	t.Run("CountPairSince", func(t *testing.T) {
		count, err := repo.CountPairSince(ctx, "ACC001", "ACC002", base.Add(-time.Hour))
		if err != nil {
			t.Fatalf("CountPairSince failed: %v", err)
		}
		if count != 2 {
			t.Errorf("expected 2 records in window, got %d", count)
		}
	})
}

func TestDecisionLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	dec := &domain.Decision{
		ID:                 "dec-001",
		TxID:               "txn-001",
		SenderAccount:      "ACC001",
		BeneficiaryAccount: "ACC002",
		Amount:             250000,
		Channel:            "NEFT",
		RFPrediction:       1,
		AnomalyScore:       -0.225,
		RiskScore:          85.0,
		RiskLevel:          domain.RiskHigh,
		FinalDecision:      domain.DispositionReview,
		GeoAnomaly:         true,
		ReviewStatus:       domain.ReviewPending,
		CreatedAt:          time.Now().UTC(),
	}

	if err := repo.SaveDecision(ctx, dec); err != nil {
		t.Fatalf("SaveDecision failed: %v", err)
	}

	t.Run("GetDecision", func(t *testing.T) {
		retrieved, err := repo.GetDecision(ctx, dec.ID)
		if err != nil {
			t.Fatalf("GetDecision failed: %v", err)
		}
		if retrieved.FinalDecision != domain.DispositionReview {
			t.Errorf("expected %s, got %s", domain.DispositionReview, retrieved.FinalDecision)
		}
		if !retrieved.GeoAnomaly {
			t.Error("expected geo anomaly flag to round-trip")
		}
		if retrieved.RiskLevel != domain.RiskHigh {
			t.Errorf("expected High, got %s", retrieved.RiskLevel)
		}
	})

	t.Run("ListPendingReviews", func(t *testing.T) {
		pending, err := repo.ListPendingReviews(ctx, 10)
		if err != nil {
			t.Fatalf("ListPendingReviews failed: %v", err)
		}
		if len(pending) != 1 || pending[0].ID != dec.ID {
			t.Errorf("expected one pending decision, got %d", len(pending))
		}
	})

	t.Run("SetReviewVerdict", func(t *testing.T) {
		if err := repo.SetReviewVerdict(ctx, dec.ID, domain.ReviewApproved); err != nil {
			t.Fatalf("SetReviewVerdict failed: %v", err)
		}

		retrieved, err := repo.GetDecision(ctx, dec.ID)
		if err != nil {
			t.Fatalf("GetDecision failed: %v", err)
		}
		if retrieved.ReviewStatus != domain.ReviewApproved {
			t.Errorf("expected approved, got %s", retrieved.ReviewStatus)
		}

		// Second verdict on the same decision should fail.
		if err := repo.SetReviewVerdict(ctx, dec.ID, domain.ReviewRejected); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for settled decision, got %v", err)
		}
	})

	t.Run("SetReviewVerdictRejectsBadVerdict", func(t *testing.T) {
		if err := repo.SetReviewVerdict(ctx, dec.ID, "maybe"); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestMerchantMetadata(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	meta := &domain.MerchantMetadata{
		BeneficiaryAccount: "MERCH01",
		MerchantName:       "Spice Bazaar",
		MerchantCategory:   "Grocery",
		DeviceType:         "POS",
		Lat:                28.6139,
		Lon:                77.2090,
	}

	if err := repo.UpsertMerchantMetadata(ctx, meta); err != nil {
		t.Fatalf("UpsertMerchantMetadata failed: %v", err)
	}

	retrieved, err := repo.GetMerchantMetadata(ctx, meta.BeneficiaryAccount)
	if err != nil {
		t.Fatalf("GetMerchantMetadata failed: %v", err)
	}
	if retrieved.MerchantCategory != "Grocery" {
		t.Errorf("expected Grocery, got %s", retrieved.MerchantCategory)
	}

	// Upsert replaces the existing row.
	meta.MerchantCategory = "Food"
	if err := repo.UpsertMerchantMetadata(ctx, meta); err != nil {
		t.Fatalf("UpsertMerchantMetadata failed: %v", err)
	}
	retrieved, err = repo.GetMerchantMetadata(ctx, meta.BeneficiaryAccount)
	if err != nil {
		t.Fatalf("GetMerchantMetadata failed: %v", err)
	}
	if retrieved.MerchantCategory != "Food" {
		t.Errorf("expected Food after upsert, got %s", retrieved.MerchantCategory)
	}

	if _, err := repo.GetMerchantMetadata(ctx, "NOPE"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDecisionStats(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	now := time.Now().UTC()
	decisions := []*domain.Decision{
		{ID: "d1", TxID: "t1", SenderAccount: "A", BeneficiaryAccount: "B", Amount: 100, Channel: "UPI",
			RiskScore: 20, RiskLevel: domain.RiskLow, FinalDecision: domain.DispositionApprove, CreatedAt: now},
		{ID: "d2", TxID: "t2", SenderAccount: "A", BeneficiaryAccount: "B", Amount: 150000, Channel: "UPI",
			RiskScore: 100, RiskLevel: domain.RiskHigh, FinalDecision: domain.DispositionBlock,
			ViolationReason: "UPI above maximum", CreatedAt: now},
		{ID: "d3", TxID: "t3", SenderAccount: "A", BeneficiaryAccount: "C", Amount: 6000000, Channel: "NEFT",
			RiskScore: 60, RiskLevel: domain.RiskMedium, FinalDecision: domain.DispositionReview,
			ReviewStatus: domain.ReviewPending, CreatedAt: now},
	}
	for _, dec := range decisions {
		if err := repo.SaveDecision(ctx, dec); err != nil {
			t.Fatalf("SaveDecision failed: %v", err)
		}
	}

	stats, err := repo.DecisionStats(ctx)
	if err != nil {
		t.Fatalf("DecisionStats failed: %v", err)
	}

	if stats.TotalDecisions != 3 {
		t.Errorf("expected 3 decisions, got %d", stats.TotalDecisions)
	}
	if stats.ByDisposition[string(domain.DispositionBlock)] != 1 {
		t.Errorf("expected 1 block, got %d", stats.ByDisposition[string(domain.DispositionBlock)])
	}
	if stats.ByRiskLevel[string(domain.RiskMedium)] != 1 {
		t.Errorf("expected 1 medium, got %d", stats.ByRiskLevel[string(domain.RiskMedium)])
	}
	if stats.PendingReviews != 1 {
		t.Errorf("expected 1 pending review, got %d", stats.PendingReviews)
	}
	if stats.Violations != 1 {
		t.Errorf("expected 1 violation, got %d", stats.Violations)
	}
	want := (20.0 + 100.0 + 60.0) / 3.0
	if stats.AverageRisk < want-0.01 || stats.AverageRisk > want+0.01 {
		t.Errorf("expected average risk %.2f, got %.2f", want, stats.AverageRisk)
	}
}
