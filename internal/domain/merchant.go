package domain

// MerchantMetadata maps a beneficiary account to the static attributes
// used for feature derivation.
type MerchantMetadata struct {
	BeneficiaryAccount string  `json:"beneficiary_account"`
	MerchantName       string  `json:"merchant_name,omitempty"`
	MerchantCategory   string  `json:"merchant_category"`
	DeviceType         string  `json:"device_type"`
	Lat                float64 `json:"lat"`
	Lon                float64 `json:"lon"`
}

// DefaultMerchantMetadata is returned for beneficiaries absent from the
// metadata table.
func DefaultMerchantMetadata(account string) *MerchantMetadata {
	return &MerchantMetadata{
		BeneficiaryAccount: account,
		MerchantCategory:   "P2P",
		DeviceType:         "Mobile",
		Lat:                FallbackLat,
		Lon:                FallbackLon,
	}
}
