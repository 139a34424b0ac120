// Package pipeline orchestrates one transaction decision end to end:
// regulatory pre-check, feature derivation, model scoring, risk
// mapping, the disposition rule table and persistence.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/falcon-fin/falcon/internal/domain"
	"github.com/falcon-fin/falcon/internal/features"
	"github.com/falcon-fin/falcon/internal/geo"
	"github.com/falcon-fin/falcon/internal/rules"
	"github.com/falcon-fin/falcon/internal/scoring"
)

// Pipeline evaluates transactions. Safe for concurrent use: every
// evaluation derives its features from the repository and shares only
// the immutable model bundle and compiled rules.
type Pipeline struct {
	cfg       *domain.Config
	repo      domain.Repository
	eventBus  domain.EventBus
	scorer    *scoring.Scorer
	checker   *rules.RegulatoryChecker
	history   *features.History
	merchants *features.MerchantResolver
	assembler *features.Assembler
	tracer    trace.Tracer
}

// New wires a pipeline from its dependencies. The cache is optional
// and only accelerates merchant lookups.
func New(cfg *domain.Config, repo domain.Repository, cache domain.Cache, eventBus domain.EventBus, scorer *scoring.Scorer) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}

	checker, err := rules.NewRegulatoryChecker(rules.DefaultRegulatoryRules())
	if err != nil {
		return nil, fmt.Errorf("failed to build regulatory checker: %w", err)
	}

	return &Pipeline{
		cfg:       cfg,
		repo:      repo,
		eventBus:  eventBus,
		scorer:    scorer,
		checker:   checker,
		history:   features.NewHistory(repo),
		merchants: features.NewMerchantResolver(repo, cache),
		assembler: features.NewAssembler(cfg.Features, scorer.Encoders()),
		tracer:    otel.Tracer("falcon/pipeline"),
	}, nil
}

// Evaluate runs the full decision pipeline for one request. The
// request must be normalized and validated by the caller.
func (p *Pipeline) Evaluate(ctx context.Context, req *domain.TransactionRequest) (*domain.DecisionResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.evaluate")
	defer span.End()

	txID := uuid.New().String()
	now := time.Now().UTC()
	amount := req.AmountValue()

	span.SetAttributes(
		attribute.String("tx.id", txID),
		attribute.String("tx.channel", req.Channel),
		attribute.Float64("tx.amount", amount),
	)

	// Hard channel limits run before any scoring.
	reason, err := p.checker.Check(req.Channel, amount)
	if err != nil {
		return nil, fmt.Errorf("regulatory check: %w", err)
	}
	if reason != "" {
		result := rules.ViolationResult(txID, reason)
		result.ID = uuid.New().String()
		result.Timestamp = now

		// A violating transaction never enters the history log.
		if err := p.persistAndPublish(ctx, req, result); err != nil {
			return nil, err
		}

		slog.Info("transaction blocked by channel limit",
			"tx_id", txID,
			"channel", req.Channel,
			"amount", amount,
			"reason", reason,
		)
		return result, nil
	}

	fs, err := p.deriveFeatures(ctx, req, now)
	if err != nil {
		return nil, err
	}

	vec, err := p.assembler.Vector(fs.numeric, fs.categorical)
	if err != nil {
		return nil, fmt.Errorf("feature assembly: %w", err)
	}

	score, err := p.scorer.Score(vec)
	if err != nil {
		return nil, fmt.Errorf("model scoring: %w", err)
	}

	riskLevel := rules.AssignRiskLevel(score.RiskScore, p.cfg.Decision)
	disposition := rules.FinalDecision(rules.DecisionInput{
		RFPrediction: score.RFPrediction,
		RiskLevel:    riskLevel,
		RiskScore:    score.RiskScore,
		Amount:       amount,
		GeoAnomaly:   fs.geoAnomaly,
		RapidRepeat:  fs.rapidRepeat,
	})

	if d, level, ok := rules.ApplyEscalation(amount, disposition, score.RiskScore, p.cfg.Decision); ok {
		disposition = d
		riskLevel = level
	}

	result := &domain.DecisionResult{
		ID:             uuid.New().String(),
		TxID:           txID,
		RFPrediction:   score.RFPrediction,
		AnomalyScore:   score.AnomalyScore,
		RiskScore:      score.RiskScore,
		RiskLevel:      riskLevel,
		FinalDecision:  disposition,
		GeoAnomaly:     fs.geoAnomaly,
		RapidRepeat:    fs.rapidRepeat,
		NewBeneficiary: fs.newBeneficiary,
		Timestamp:      now,
	}

	if !req.TestMode {
		if err := p.history.Append(ctx, req.ToHistoryRecord(txID, now)); err != nil {
			return nil, err
		}
	}

	if err := p.persistAndPublish(ctx, req, result); err != nil {
		return nil, err
	}

	slog.Info("transaction decided",
		"tx_id", txID,
		"decision", disposition,
		"risk_level", riskLevel,
		"risk_score", score.RiskScore,
		"rf_prediction", score.RFPrediction,
	)

	return result, nil
}

type derivedFeatures struct {
	numeric        map[string]float64
	categorical    map[string]string
	geoAnomaly     bool
	rapidRepeat    bool
	newBeneficiary bool
}

// deriveFeatures builds the velocity, geo and novelty signals. All
// history reads use the state before this transaction is appended.
func (p *Pipeline) deriveFeatures(ctx context.Context, req *domain.TransactionRequest, now time.Time) (*derivedFeatures, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.derive_features")
	defer span.End()

	timeSinceLast, err := p.history.TimeSinceLastTxn(ctx, req.SenderAccount, now)
	if err != nil {
		return nil, err
	}

	timeDiff, err := p.history.TimeSincePair(ctx, req.SenderAccount, req.BeneficiaryAccount, now)
	if err != nil {
		return nil, err
	}

	newBeneficiary, err := p.history.IsNewBeneficiary(ctx, req.SenderAccount, req.BeneficiaryAccount)
	if err != nil {
		return nil, err
	}

	window := time.Duration(p.cfg.Features.RapidRepeatWindowMins) * time.Minute
	rapidRepeat, err := p.history.IsRapidRepeat(ctx, req.SenderAccount, req.BeneficiaryAccount, now, p.cfg.Features.RapidRepeatCount, window)
	if err != nil {
		return nil, err
	}

	merchant := p.merchants.Resolve(ctx, req.BeneficiaryAccount)

	deviceLat, deviceLon := *req.DeviceLat, *req.DeviceLon

	// The beneficiary's registered location is the merchant location;
	// the sender's location is the reporting device.
	distanceKm := geo.Distance(merchant.Lat, merchant.Lon, merchant.Lat, merchant.Lon)
	distanceKmMD := geo.Distance(merchant.Lat, merchant.Lon, deviceLat, deviceLon)
	geoDistanceKm := geo.Distance(deviceLat, deviceLon, deviceLat, deviceLon)

	geoAnomaly := distanceKmMD > p.cfg.Features.GeoAnomalyKm

	numeric := map[string]float64{
		"amount":              req.AmountValue(),
		"hour":                float64(geo.HourOfDay(now)),
		"time_since_last_txn": timeSinceLast,
		"time_diff_mins":      timeDiff,
		"distance_km":         distanceKm,
		"distance_km_md":      distanceKmMD,
		"geo_distance_km":     geoDistanceKm,
		"is_new_beneficiary":  boolToFloat(newBeneficiary),
	}
	categorical := map[string]string{
		"transaction_type":  req.TransactionType,
		"merchant_category": merchant.MerchantCategory,
		"device_type":       merchant.DeviceType,
	}

	return &derivedFeatures{
		numeric:        numeric,
		categorical:    categorical,
		geoAnomaly:     geoAnomaly,
		rapidRepeat:    rapidRepeat,
		newBeneficiary: newBeneficiary,
	}, nil
}

// persistAndPublish stores the decision and emits the decision event,
// plus an alert for anything that is not auto-approved. Test-mode
// requests are neither stored nor published.
func (p *Pipeline) persistAndPublish(ctx context.Context, req *domain.TransactionRequest, result *domain.DecisionResult) error {
	if req.TestMode {
		return nil
	}

	dec := toDecision(req, result)
	if err := p.repo.SaveDecision(ctx, dec); err != nil {
		return fmt.Errorf("failed to save decision: %w", err)
	}

	if p.eventBus == nil {
		return nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal decision event: %w", err)
	}

	if err := p.eventBus.Publish(ctx, domain.TopicDecision, payload); err != nil {
		slog.Warn("failed to publish decision event", "tx_id", result.TxID, "error", err)
	}

	if result.FinalDecision != domain.DispositionApprove {
		if err := p.eventBus.Publish(ctx, domain.TopicAlert, payload); err != nil {
			slog.Warn("failed to publish alert event", "tx_id", result.TxID, "error", err)
		}
	}

	return nil
}

func toDecision(req *domain.TransactionRequest, result *domain.DecisionResult) *domain.Decision {
	reviewStatus := ""
	if result.FinalDecision == domain.DispositionReview {
		reviewStatus = domain.ReviewPending
	}

	return &domain.Decision{
		ID:                 result.ID,
		TxID:               result.TxID,
		SenderAccount:      req.SenderAccount,
		BeneficiaryAccount: req.BeneficiaryAccount,
		Amount:             req.AmountValue(),
		Channel:            req.Channel,
		RFPrediction:       result.RFPrediction,
		AnomalyScore:       result.AnomalyScore,
		RiskScore:          result.RiskScore,
		RiskLevel:          result.RiskLevel,
		FinalDecision:      result.FinalDecision,
		ViolationReason:    result.ViolationReason,
		GeoAnomaly:         result.GeoAnomaly,
		RapidRepeat:        result.RapidRepeat,
		NewBeneficiary:     result.NewBeneficiary,
		ReviewStatus:       reviewStatus,
		CreatedAt:          result.Timestamp,
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}
