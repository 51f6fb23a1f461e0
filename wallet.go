package agentx

import (
	"context"
	"fmt"
	"time"

	redlock "github.com/MRT0B13/AgentX/internal/lock"
	"github.com/MRT0B13/AgentX/model"
)

const (
	walletCacheTTL     = 24 * time.Hour
	walletLockTimeout  = 30 * time.Second
	walletLockWaitTime = 10 * time.Second
)

func walletCacheKey(launchPackID string) string {
	return fmt.Sprintf("wallet:%s", launchPackID)
}

// getOrProvisionWallet returns the signing wallet for a LaunchPack,
// provisioning one from the issuance endpoint on first use. A Redis lock
// makes first-time provisioning single-flight across replicas; if the lock
// cannot be taken the call proceeds anyway, since a duplicate wallet is
// wasteful but harmless.
func (a *AgentX) getOrProvisionWallet(ctx context.Context, launchPackID string) (*Wallet, error) {
	key := walletCacheKey(launchPackID)

	var wallet Wallet
	if err := a.cache.Get(ctx, key, &wallet); err == nil && wallet.SecretKey != "" {
		return &wallet, nil
	}

	if a.redis != nil {
		locker := redlock.NewLocker(a.redis, "lock:"+key, model.GenerateUUIDWithSuffix("lock"))
		if err := locker.WaitLock(ctx, walletLockTimeout, walletLockWaitTime); err == nil {
			defer func() {
				_ = locker.Unlock(ctx)
			}()
			// another caller may have provisioned while we waited
			if err := a.cache.Get(ctx, key, &wallet); err == nil && wallet.SecretKey != "" {
				return &wallet, nil
			}
		}
	}

	provisioned, err := a.portal.CreateWallet(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Set(ctx, key, provisioned, walletCacheTTL); err != nil {
		return nil, err
	}
	return provisioned, nil
}
