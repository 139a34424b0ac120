// Package domain defines the core types and interfaces for Falcon.
package domain

import (
	"time"
)

// Payment channels recognised by the regulatory pre-check.
const (
	ChannelUPI  = "UPI"
	ChannelIMPS = "IMPS"
	ChannelRTGS = "RTGS"
	ChannelNEFT = "NEFT"
)

// Fallback device coordinate (Mumbai) used when a request carries no
// device location.
const (
	FallbackLat = 19.076
	FallbackLon = 72.8777
)

// TransactionRequest is the API request payload for POST /predict.
// `channel` is an accepted alias for `transaction_type`; descriptive
// fields do not affect scoring.
type TransactionRequest struct {
	SenderAccount      string   `json:"sender_account" validate:"required"`
	BeneficiaryAccount string   `json:"beneficiary_account" validate:"required"`
	Amount             *float64 `json:"amount" validate:"required"`
	TransactionType    string   `json:"transaction_type" validate:"required"`
	Channel            string   `json:"channel,omitempty"`

	DeviceLat *float64 `json:"device_lat,omitempty"`
	DeviceLon *float64 `json:"device_lon,omitempty"`

	// Descriptive fields, kept for audit only.
	BeneficiaryName     string `json:"beneficiary_name,omitempty"`
	BeneficiaryBranch   string `json:"beneficiary_branch,omitempty"`
	BeneficiaryBankName string `json:"beneficiary_bank_name,omitempty"`
	SenderName          string `json:"sender_name,omitempty"`
	SenderAddress       string `json:"sender_address,omitempty"`

	// TestMode suppresses history and decision persistence.
	TestMode bool `json:"test_mode,omitempty"`
}

// Normalize resolves the channel alias and fills defaulted fields.
// Must be called before validation and before the pipeline runs.
func (r *TransactionRequest) Normalize() {
	if r.TransactionType == "" && r.Channel != "" {
		r.TransactionType = r.Channel
	}
	if r.Channel == "" {
		r.Channel = r.TransactionType
	}
	if r.DeviceLat == nil {
		lat := FallbackLat
		r.DeviceLat = &lat
	}
	if r.DeviceLon == nil {
		lon := FallbackLon
		r.DeviceLon = &lon
	}
}

// AmountValue returns the request amount, 0 when absent.
func (r *TransactionRequest) AmountValue() float64 {
	if r.Amount == nil {
		return 0
	}
	return *r.Amount
}

// HistoryRecord is one row of the append-only transaction log.
// Records are created at the end of a successful non-violating,
// non-test-mode decision and are never mutated afterwards; every
// subsequent request reads them for velocity and novelty features.
type HistoryRecord struct {
	ID                 string    `json:"id"`
	SenderAccount      string    `json:"sender_account"`
	BeneficiaryAccount string    `json:"beneficiary_account"`
	Timestamp          time.Time `json:"timestamp"`

	// Denormalized descriptive fields for audit.
	BeneficiaryName     string `json:"beneficiary_name,omitempty"`
	BeneficiaryBranch   string `json:"beneficiary_branch,omitempty"`
	BeneficiaryBankName string `json:"beneficiary_bank_name,omitempty"`
	SenderName          string `json:"sender_name,omitempty"`
}

// ToHistoryRecord builds the history row for a decided request.
func (r *TransactionRequest) ToHistoryRecord(id string, ts time.Time) *HistoryRecord {
	return &HistoryRecord{
		ID:                  id,
		SenderAccount:       r.SenderAccount,
		BeneficiaryAccount:  r.BeneficiaryAccount,
		Timestamp:           ts.UTC(),
		BeneficiaryName:     r.BeneficiaryName,
		BeneficiaryBranch:   r.BeneficiaryBranch,
		BeneficiaryBankName: r.BeneficiaryBankName,
		SenderName:          r.SenderName,
	}
}
