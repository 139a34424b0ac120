package rules

import (
	"github.com/falcon-fin/falcon/internal/domain"
)

// escalationAmountThreshold forces manual review of very large
// transfers regardless of the rule table outcome.
const escalationAmountThreshold = 5_000_000.0

// AssignRiskLevel buckets a risk score using the configured thresholds.
func AssignRiskLevel(score float64, cfg domain.DecisionConfig) domain.RiskLevel {
	switch {
	case score >= cfg.BlockThreshold:
		return domain.RiskHigh
	case score >= cfg.ReviewThreshold:
		return domain.RiskMedium
	default:
		return domain.RiskLow
	}
}

// DecisionInput carries everything the disposition table consumes.
type DecisionInput struct {
	RFPrediction int
	RiskLevel    domain.RiskLevel
	RiskScore    float64
	Amount       float64
	GeoAnomaly   bool
	RapidRepeat  bool
}

// FinalDecision maps model outputs and derived flags to a disposition.
// The table is ordered; the first matching rule wins.
func FinalDecision(in DecisionInput) domain.Disposition {
	highRisk := in.RiskLevel == domain.RiskHigh

	// Small high-risk transfers with a moderate score go to a human
	// rather than being blocked outright.
	if highRisk && in.Amount < 200 && in.RiskScore < 80 {
		return domain.DispositionReview
	}

	// Clean classifier verdict on a small, non-high-risk transfer.
	if in.RFPrediction == 0 && !highRisk && in.Amount < 1000 {
		return domain.DispositionApprove
	}

	if highRisk && in.Amount >= 200 {
		return domain.DispositionBlock
	}

	// Classifier flagged fraud: block when a corroborating signal is
	// present, otherwise route to the admin queue.
	if in.RFPrediction == 1 {
		if in.GeoAnomaly || in.RapidRepeat || in.Amount > 100000 {
			return domain.DispositionBlock
		}
		return domain.DispositionReview
	}

	if in.GeoAnomaly && in.Amount > 100000 {
		return domain.DispositionReview
	}

	return domain.DispositionApprove
}

// ApplyEscalation overrides the disposition for very large transfers:
// anything at or above the escalation threshold goes to the admin
// queue, with the risk level restated as at least Medium. The override
// can downgrade a Block.
func ApplyEscalation(amount float64, disposition domain.Disposition, riskScore float64, cfg domain.DecisionConfig) (domain.Disposition, domain.RiskLevel, bool) {
	if amount < escalationAmountThreshold {
		return disposition, "", false
	}

	level := domain.RiskMedium
	if riskScore >= cfg.BlockThreshold {
		level = domain.RiskHigh
	}
	return domain.DispositionReview, level, true
}
