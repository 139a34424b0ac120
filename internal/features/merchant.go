package features

import (
	"context"
	"log/slog"
	"time"

	"github.com/falcon-fin/falcon/internal/domain"
)

// merchantCacheTTL bounds staleness of cached metadata after an upsert.
const merchantCacheTTL = 10 * time.Minute

// MerchantResolver maps a beneficiary account to its merchant category,
// device type and coordinate. Lookups hit the cache first, then the
// repository; unknown beneficiaries resolve to the fixed default tuple.
type MerchantResolver struct {
	repo  domain.Repository
	cache domain.Cache
}

// NewMerchantResolver creates a resolver. The cache is optional.
func NewMerchantResolver(repo domain.Repository, cache domain.Cache) *MerchantResolver {
	return &MerchantResolver{repo: repo, cache: cache}
}

// Resolve returns the metadata tuple for a beneficiary account. A
// lookup failure degrades to the default tuple rather than failing the
// request.
func (r *MerchantResolver) Resolve(ctx context.Context, account string) *domain.MerchantMetadata {
	if account == "" {
		return domain.DefaultMerchantMetadata(account)
	}

	if r.cache != nil {
		meta, err := r.cache.GetMerchant(ctx, account)
		if err != nil {
			slog.Warn("merchant cache read failed", "account", account, "error", err)
		} else if meta != nil {
			return meta
		}
	}

	if r.repo != nil {
		meta, err := r.repo.GetMerchantMetadata(ctx, account)
		if err == nil && meta != nil {
			if r.cache != nil {
				if err := r.cache.SetMerchant(ctx, account, meta, merchantCacheTTL); err != nil {
					slog.Warn("merchant cache write failed", "account", account, "error", err)
				}
			}
			return meta
		}
	}

	return domain.DefaultMerchantMetadata(account)
}
