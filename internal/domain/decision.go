package domain

import (
	"time"
)

// RiskLevel is the coarse three-tier bucket derived from the risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Disposition is the three-way outcome of the decision rule engine.
type Disposition string

const (
	DispositionApprove Disposition = "Auto-approved"
	DispositionReview  Disposition = "Send to Admin"
	DispositionBlock   Disposition = "Block & Review"
)

// Review statuses for decisions routed to the admin queue.
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// DecisionResult is the output of a single pipeline run.
type DecisionResult struct {
	ID              string      `json:"id"`
	TxID            string      `json:"tx_id"`
	RFPrediction    int         `json:"rf_prediction"`
	AnomalyScore    float64     `json:"anomaly_score"`
	RiskScore       float64     `json:"risk_score"`
	RiskLevel       RiskLevel   `json:"risk_level"`
	FinalDecision   Disposition `json:"final_decision"`
	ViolationReason string      `json:"violation_reason,omitempty"`

	// Derived flags, kept for audit and analytics.
	GeoAnomaly     bool      `json:"geo_anomaly"`
	RapidRepeat    bool      `json:"rapid_repeat"`
	NewBeneficiary bool      `json:"new_beneficiary"`
	Timestamp      time.Time `json:"timestamp"`
}

// Decision is the persisted form of a DecisionResult.
type Decision struct {
	ID                 string      `json:"id"`
	TxID               string      `json:"tx_id"`
	SenderAccount      string      `json:"sender_account"`
	BeneficiaryAccount string      `json:"beneficiary_account"`
	Amount             float64     `json:"amount"`
	Channel            string      `json:"channel"`
	RFPrediction       int         `json:"rf_prediction"`
	AnomalyScore       float64     `json:"anomaly_score"`
	RiskScore          float64     `json:"risk_score"`
	RiskLevel          RiskLevel   `json:"risk_level"`
	FinalDecision      Disposition `json:"final_decision"`
	ViolationReason    string      `json:"violation_reason,omitempty"`
	GeoAnomaly         bool        `json:"geo_anomaly"`
	RapidRepeat        bool        `json:"rapid_repeat"`
	NewBeneficiary     bool        `json:"new_beneficiary"`

	// Admin review feedback. ReviewStatus is empty unless the decision
	// was routed to the admin queue.
	ReviewStatus string `json:"review_status,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// AnalyticsSummary aggregates persisted decisions for the dashboard.
type AnalyticsSummary struct {
	TotalDecisions int64 `json:"total_decisions"`

	ByDisposition map[string]int64 `json:"by_disposition"`
	ByRiskLevel   map[string]int64 `json:"by_risk_level"`

	PendingReviews int64   `json:"pending_reviews"`
	Violations     int64   `json:"violations"`
	AverageRisk    float64 `json:"average_risk_score"`
}
