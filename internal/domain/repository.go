package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
//
// Consistency contract for the history log: SaveHistoryRecord is a
// single atomic insert; the read methods used for feature derivation
// may observe a history that is slightly stale under concurrent
// writers. Callers must not assume a record appended by a concurrent
// request is visible.
type Repository interface {
	// History log (append-only).
	SaveHistoryRecord(ctx context.Context, rec *HistoryRecord) error
	GetHistoryRecord(ctx context.Context, id string) (*HistoryRecord, error)
	LastTransactionTime(ctx context.Context, sender string) (*time.Time, error)
	LastPairTime(ctx context.Context, sender, beneficiary string) (*time.Time, error)
	PairExists(ctx context.Context, sender, beneficiary string) (bool, error)
	CountPairSince(ctx context.Context, sender, beneficiary string, since time.Time) (int64, error)

	// Decisions and admin review feedback.
	SaveDecision(ctx context.Context, dec *Decision) error
	GetDecision(ctx context.Context, id string) (*Decision, error)
	ListPendingReviews(ctx context.Context, limit int) ([]*Decision, error)
	SetReviewVerdict(ctx context.Context, id string, verdict string) error

	// Merchant metadata table.
	GetMerchantMetadata(ctx context.Context, account string) (*MerchantMetadata, error)
	UpsertMerchantMetadata(ctx context.Context, meta *MerchantMetadata) error

	// Analytics.
	DecisionStats(ctx context.Context) (*AnalyticsSummary, error)

	// Health check.
	Ping(ctx context.Context) error

	// Lifecycle.
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
