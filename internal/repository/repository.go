// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/falcon-fin/falcon/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveHistoryRecord appends one row to the transaction log.
func (r *SQLRepository) SaveHistoryRecord(ctx context.Context, rec *domain.HistoryRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO history_records (
			id, sender_account, beneficiary_account, timestamp,
			beneficiary_name, beneficiary_branch, beneficiary_bank_name, sender_name
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rec.ID, rec.SenderAccount, rec.BeneficiaryAccount, rec.Timestamp,
		rec.BeneficiaryName, rec.BeneficiaryBranch, rec.BeneficiaryBankName, rec.SenderName,
	)
	return err
}

// GetHistoryRecord retrieves a history record by ID.
func (r *SQLRepository) GetHistoryRecord(ctx context.Context, id string) (*domain.HistoryRecord, error) {
	query := `
		SELECT id, sender_account, beneficiary_account, timestamp,
			   beneficiary_name, beneficiary_branch, beneficiary_bank_name, sender_name
		FROM history_records
		WHERE id = ?
	`

	var rec domain.HistoryRecord
	err := r.db.QueryRowContext(ctx, r.rebind(query), id).Scan(
		&rec.ID, &rec.SenderAccount, &rec.BeneficiaryAccount, &rec.Timestamp,
		&rec.BeneficiaryName, &rec.BeneficiaryBranch, &rec.BeneficiaryBankName, &rec.SenderName,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &rec, nil
}

// LastTransactionTime returns the most recent record timestamp for a
// sender across all beneficiaries, nil if the sender has no history.
func (r *SQLRepository) LastTransactionTime(ctx context.Context, sender string) (*time.Time, error) {
	query := `
		SELECT timestamp FROM history_records
		WHERE sender_account = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var ts time.Time
	err := r.db.QueryRowContext(ctx, r.rebind(query), sender).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// LastPairTime returns the most recent record timestamp for an exact
// sender/beneficiary pair, nil if the pair has no history.
func (r *SQLRepository) LastPairTime(ctx context.Context, sender, beneficiary string) (*time.Time, error) {
	query := `
		SELECT timestamp FROM history_records
		WHERE sender_account = ? AND beneficiary_account = ?
		ORDER BY timestamp DESC
		LIMIT 1
	`

	var ts time.Time
	err := r.db.QueryRowContext(ctx, r.rebind(query), sender, beneficiary).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ts, nil
}

// PairExists reports whether any record exists for the pair.
func (r *SQLRepository) PairExists(ctx context.Context, sender, beneficiary string) (bool, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT 1 FROM history_records
			WHERE sender_account = ? AND beneficiary_account = ?
			LIMIT 1
		) t
	`

	var count int64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), sender, beneficiary).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountPairSince counts records for the pair at or after a cutoff time.
func (r *SQLRepository) CountPairSince(ctx context.Context, sender, beneficiary string, since time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM history_records
		WHERE sender_account = ? AND beneficiary_account = ? AND timestamp >= ?
	`

	var count int64
	if err := r.db.QueryRowContext(ctx, r.rebind(query), sender, beneficiary, since).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// SaveDecision stores a completed decision.
func (r *SQLRepository) SaveDecision(ctx context.Context, dec *domain.Decision) error {
	if dec == nil || dec.ID == "" {
		return fmt.Errorf("%w: decision id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO decisions (
			id, tx_id, sender_account, beneficiary_account, amount, channel,
			rf_prediction, anomaly_score, risk_score, risk_level,
			final_decision, violation_reason,
			geo_anomaly, rapid_repeat, new_beneficiary,
			review_status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		dec.ID, dec.TxID, dec.SenderAccount, dec.BeneficiaryAccount, dec.Amount, dec.Channel,
		dec.RFPrediction, dec.AnomalyScore, dec.RiskScore, string(dec.RiskLevel),
		string(dec.FinalDecision), dec.ViolationReason,
		boolToInt(dec.GeoAnomaly), boolToInt(dec.RapidRepeat), boolToInt(dec.NewBeneficiary),
		dec.ReviewStatus, dec.CreatedAt,
	)
	return err
}

// GetDecision retrieves a decision by ID.
func (r *SQLRepository) GetDecision(ctx context.Context, id string) (*domain.Decision, error) {
	query := `
		SELECT id, tx_id, sender_account, beneficiary_account, amount, channel,
			   rf_prediction, anomaly_score, risk_score, risk_level,
			   final_decision, violation_reason,
			   geo_anomaly, rapid_repeat, new_beneficiary,
			   review_status, created_at
		FROM decisions
		WHERE id = ?
	`

	return r.scanDecision(r.db.QueryRowContext(ctx, r.rebind(query), id))
}

// ListPendingReviews returns decisions awaiting admin review, oldest
// first.
func (r *SQLRepository) ListPendingReviews(ctx context.Context, limit int) ([]*domain.Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tx_id, sender_account, beneficiary_account, amount, channel,
			   rf_prediction, anomaly_score, risk_score, risk_level,
			   final_decision, violation_reason,
			   geo_anomaly, rapid_repeat, new_beneficiary,
			   review_status, created_at
		FROM decisions
		WHERE review_status = ?
		ORDER BY created_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), domain.ReviewPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var decisions []*domain.Decision
	for rows.Next() {
		dec, err := r.scanDecision(rows)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, dec)
	}

	return decisions, rows.Err()
}

// SetReviewVerdict records the admin verdict for a pending decision.
func (r *SQLRepository) SetReviewVerdict(ctx context.Context, id string, verdict string) error {
	if verdict != domain.ReviewApproved && verdict != domain.ReviewRejected {
		return fmt.Errorf("%w: verdict must be %q or %q", ErrInvalidInput, domain.ReviewApproved, domain.ReviewRejected)
	}

	query := `
		UPDATE decisions
		SET review_status = ?
		WHERE id = ? AND review_status = ?
	`

	result, err := r.db.ExecContext(ctx, r.rebind(query), verdict, id, domain.ReviewPending)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// GetMerchantMetadata retrieves metadata for a beneficiary account.
func (r *SQLRepository) GetMerchantMetadata(ctx context.Context, account string) (*domain.MerchantMetadata, error) {
	query := `
		SELECT beneficiary_account, merchant_name, merchant_category, device_type, lat, lon
		FROM merchant_metadata
		WHERE beneficiary_account = ?
	`

	var meta domain.MerchantMetadata
	err := r.db.QueryRowContext(ctx, r.rebind(query), account).Scan(
		&meta.BeneficiaryAccount, &meta.MerchantName, &meta.MerchantCategory,
		&meta.DeviceType, &meta.Lat, &meta.Lon,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &meta, nil
}

// UpsertMerchantMetadata creates or replaces metadata for a beneficiary
// account.
func (r *SQLRepository) UpsertMerchantMetadata(ctx context.Context, meta *domain.MerchantMetadata) error {
	if meta == nil || meta.BeneficiaryAccount == "" {
		return fmt.Errorf("%w: beneficiary account is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO merchant_metadata (
			beneficiary_account, merchant_name, merchant_category, device_type, lat, lon
		) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(beneficiary_account) DO UPDATE SET
			merchant_name = excluded.merchant_name,
			merchant_category = excluded.merchant_category,
			device_type = excluded.device_type,
			lat = excluded.lat,
			lon = excluded.lon
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		meta.BeneficiaryAccount, meta.MerchantName, meta.MerchantCategory,
		meta.DeviceType, meta.Lat, meta.Lon,
	)
	return err
}

// DecisionStats aggregates persisted decisions for the analytics
// endpoint.
func (r *SQLRepository) DecisionStats(ctx context.Context) (*domain.AnalyticsSummary, error) {
	summary := &domain.AnalyticsSummary{
		ByDisposition: make(map[string]int64),
		ByRiskLevel:   make(map[string]int64),
	}

	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*), AVG(risk_score) FROM decisions`,
	).Scan(&summary.TotalDecisions, &avg)
	if err != nil {
		return nil, err
	}
	if avg.Valid {
		summary.AverageRisk = avg.Float64
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT final_decision, COUNT(*) FROM decisions GROUP BY final_decision`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var disposition string
		var count int64
		if err := rows.Scan(&disposition, &count); err != nil {
			return nil, err
		}
		summary.ByDisposition[disposition] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	levelRows, err := r.db.QueryContext(ctx,
		`SELECT risk_level, COUNT(*) FROM decisions GROUP BY risk_level`,
	)
	if err != nil {
		return nil, err
	}
	defer levelRows.Close()
	for levelRows.Next() {
		var level string
		var count int64
		if err := levelRows.Scan(&level, &count); err != nil {
			return nil, err
		}
		summary.ByRiskLevel[level] = count
	}
	if err := levelRows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, r.rebind(
		`SELECT COUNT(*) FROM decisions WHERE review_status = ?`,
	), domain.ReviewPending).Scan(&summary.PendingReviews)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM decisions WHERE violation_reason IS NOT NULL AND violation_reason != ''`,
	).Scan(&summary.Violations)
	if err != nil {
		return nil, err
	}

	return summary, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanDecision(row rowScanner) (*domain.Decision, error) {
	var dec domain.Decision
	var riskLevel, finalDecision string
	var geoAnomaly, rapidRepeat, newBeneficiary int

	err := row.Scan(
		&dec.ID, &dec.TxID, &dec.SenderAccount, &dec.BeneficiaryAccount, &dec.Amount, &dec.Channel,
		&dec.RFPrediction, &dec.AnomalyScore, &dec.RiskScore, &riskLevel,
		&finalDecision, &dec.ViolationReason,
		&geoAnomaly, &rapidRepeat, &newBeneficiary,
		&dec.ReviewStatus, &dec.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	dec.RiskLevel = domain.RiskLevel(riskLevel)
	dec.FinalDecision = domain.Disposition(finalDecision)
	dec.GeoAnomaly = geoAnomaly == 1
	dec.RapidRepeat = rapidRepeat == 1
	dec.NewBeneficiary = newBeneficiary == 1

	return &dec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
