package repository

// Schema definitions for the Falcon database.
// Compatible with both SQLite and PostgreSQL.

const schemaHistoryRecords = `
CREATE TABLE IF NOT EXISTS history_records (
    id TEXT PRIMARY KEY,
    sender_account TEXT NOT NULL,
    beneficiary_account TEXT NOT NULL,
    timestamp TIMESTAMP NOT NULL,
    beneficiary_name TEXT,
    beneficiary_branch TEXT,
    beneficiary_bank_name TEXT,
    sender_name TEXT
);

CREATE INDEX IF NOT EXISTS idx_history_sender ON history_records(sender_account, timestamp);
CREATE INDEX IF NOT EXISTS idx_history_pair ON history_records(sender_account, beneficiary_account, timestamp);
`

const schemaDecisions = `
CREATE TABLE IF NOT EXISTS decisions (
    id TEXT PRIMARY KEY,
    tx_id TEXT NOT NULL,
    sender_account TEXT NOT NULL,
    beneficiary_account TEXT NOT NULL,
    amount REAL NOT NULL,
    channel TEXT NOT NULL,
    rf_prediction INTEGER NOT NULL,
    anomaly_score REAL NOT NULL,
    risk_score REAL NOT NULL,
    risk_level TEXT NOT NULL,
    final_decision TEXT NOT NULL,
    violation_reason TEXT,
    geo_anomaly INTEGER NOT NULL DEFAULT 0,
    rapid_repeat INTEGER NOT NULL DEFAULT 0,
    new_beneficiary INTEGER NOT NULL DEFAULT 0,
    review_status TEXT,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_tx ON decisions(tx_id);
CREATE INDEX IF NOT EXISTS idx_decisions_review ON decisions(review_status, created_at);
CREATE INDEX IF NOT EXISTS idx_decisions_created ON decisions(created_at);
`

const schemaMerchantMetadata = `
CREATE TABLE IF NOT EXISTS merchant_metadata (
    beneficiary_account TEXT PRIMARY KEY,
    merchant_name TEXT,
    merchant_category TEXT NOT NULL,
    device_type TEXT NOT NULL,
    lat REAL NOT NULL,
    lon REAL NOT NULL
);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaHistoryRecords,
		schemaDecisions,
		schemaMerchantMetadata,
	}
}
