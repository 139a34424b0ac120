package features

import (
	"context"
	"testing"
	"time"

	"github.com/falcon-fin/falcon/internal/domain"
)

type stubMerchantRepo struct {
	domain.Repository
	meta map[string]*domain.MerchantMetadata
}

func (s *stubMerchantRepo) GetMerchantMetadata(ctx context.Context, account string) (*domain.MerchantMetadata, error) {
	if m, ok := s.meta[account]; ok {
		return m, nil
	}
	return nil, nil
}

type stubCache struct {
	domain.Cache
	merchants map[string]*domain.MerchantMetadata
	sets      int
}

func (s *stubCache) GetMerchant(ctx context.Context, account string) (*domain.MerchantMetadata, error) {
	return s.merchants[account], nil
}

func (s *stubCache) SetMerchant(ctx context.Context, account string, meta *domain.MerchantMetadata, ttl time.Duration) error {
	if s.merchants == nil {
		s.merchants = make(map[string]*domain.MerchantMetadata)
	}
	s.merchants[account] = meta
	s.sets++
	return nil
}

func TestResolveUnknownBeneficiaryDefaults(t *testing.T) {
	r := NewMerchantResolver(&stubMerchantRepo{}, nil)

	meta := r.Resolve(context.Background(), "ACC999")
	if meta.MerchantCategory != "P2P" {
		t.Errorf("expected default category P2P, got %s", meta.MerchantCategory)
	}
	if meta.DeviceType != "Mobile" {
		t.Errorf("expected default device Mobile, got %s", meta.DeviceType)
	}
	if meta.Lat != domain.FallbackLat || meta.Lon != domain.FallbackLon {
		t.Errorf("expected fallback coordinates, got %f,%f", meta.Lat, meta.Lon)
	}
}

func TestResolveRepoHitPopulatesCache(t *testing.T) {
	repo := &stubMerchantRepo{meta: map[string]*domain.MerchantMetadata{
		"MERCH01": {BeneficiaryAccount: "MERCH01", MerchantCategory: "Electronics", DeviceType: "POS", Lat: 28.61, Lon: 77.20},
	}}
	cache := &stubCache{}
	r := NewMerchantResolver(repo, cache)

	meta := r.Resolve(context.Background(), "MERCH01")
	if meta.MerchantCategory != "Electronics" {
		t.Errorf("expected repository metadata, got %s", meta.MerchantCategory)
	}
	if cache.sets != 1 {
		t.Errorf("expected cache to be populated once, got %d sets", cache.sets)
	}
}

func TestResolveCacheHitSkipsRepo(t *testing.T) {
	cache := &stubCache{merchants: map[string]*domain.MerchantMetadata{
		"MERCH01": {BeneficiaryAccount: "MERCH01", MerchantCategory: "Travel", DeviceType: "Desktop"},
	}}
	r := NewMerchantResolver(nil, cache)

	meta := r.Resolve(context.Background(), "MERCH01")
	if meta.MerchantCategory != "Travel" {
		t.Errorf("expected cached metadata, got %s", meta.MerchantCategory)
	}
}
