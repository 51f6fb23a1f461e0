/*
Copyright 2024 AgentX Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package agentx

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/database"
	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/internal/notification"
	"github.com/MRT0B13/AgentX/model"
)

// LaunchToken drives the token launch for a LaunchPack end to end:
// precondition checks, the atomic launch claim, wallet provisioning, asset
// upload, and the create-and-buy trade. Exactly one concurrent caller wins
// the claim; every failure after the claim resolves the record to failed,
// never leaving it mid-flight.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - id string: The LaunchPack to launch.
// - force bool: Bypass the failed-retry cooldown.
//
// Returns:
// - *model.LaunchPack: The updated LaunchPack on success or idempotent no-op.
// - error: A typed error when the launch is refused or fails.
func (a *AgentX) LaunchToken(ctx context.Context, id string, force bool) (*model.LaunchPack, error) {
	lp, err := a.datasource.GetLaunchPack(ctx, id)
	if err != nil {
		return nil, err
	}
	if lp.Launched() {
		return lp, nil // idempotent no-op
	}

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	if err := validateLaunchPreconditions(conf, lp, force); err != nil {
		return nil, err
	}

	slippage, err := resolveSlippage(conf)
	if err != nil {
		return nil, err
	}

	if lp.Assets.LogoURL == "" {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "assets.logo_url is required for launch", nil)
	}

	claimed, err := a.datasource.ClaimLaunch(ctx, id, time.Now(), model.LaunchStatusReady)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, apierror.NewAPIError(apierror.ErrLaunchInProgress, "a launch for this pack is already in flight", nil)
	}

	launched, err := a.executeLaunch(ctx, conf, claimed, slippage)
	if err != nil {
		a.failLaunch(ctx, claimed, err)
		return nil, err
	}
	return launched, nil
}

// validateLaunchPreconditions checks the feature flag, current launch
// state, the retry cooldown and the configured caps. It never mutates
// stored state.
func validateLaunchPreconditions(conf *config.Configuration, lp *model.LaunchPack, force bool) error {
	if !conf.Launch.Enabled {
		return apierror.NewAPIError(apierror.ErrLaunchDisabled, "token launches are disabled", nil)
	}
	if lp.Launched() {
		return apierror.NewAPIError(apierror.ErrAlreadyLaunched, "this pack has already launched", nil)
	}
	if lp.Launch.RequestedAt != nil && lp.Launch.Status != model.LaunchStatusFailed {
		return apierror.NewAPIError(apierror.ErrLaunchInProgress, "a launch for this pack is already in flight", nil)
	}
	// A failed record carrying a trade signature means a prior attempt
	// submitted a real trade but could not record the outcome. Retrying
	// would buy the token twice; forcing does not override this.
	if lp.Launch.Status == model.LaunchStatusFailed && lp.Launch.TxSignature != "" {
		return apierror.NewAPIError(apierror.ErrConflict,
			fmt.Sprintf("a prior attempt submitted trade %s without recording its outcome; reconcile manually before retrying", lp.Launch.TxSignature), nil)
	}
	if lp.Launch.Status == model.LaunchStatusFailed && !force {
		if lp.Launch.FailedAt != nil && time.Since(*lp.Launch.FailedAt) < database.PublishRetryCooldown {
			return apierror.NewAPIError(apierror.ErrLaunchFailedRetryBlocked,
				fmt.Sprintf("last launch failed %s ago, retry blocked for %s unless forced",
					time.Since(*lp.Launch.FailedAt).Round(time.Second), database.PublishRetryCooldown), nil)
		}
	}

	if conf.Launch.MaxDevBuySol > 0 && lp.Launch.DevBuySol > conf.Launch.MaxDevBuySol {
		return apierror.NewAPIError(apierror.ErrCapExceeded, "requested dev buy exceeds the configured cap",
			apierror.CapDetail{Field: "dev_buy_sol", Requested: lp.Launch.DevBuySol, Max: conf.Launch.MaxDevBuySol})
	}
	if conf.Launch.MaxPriorityFeeSol > 0 && lp.Launch.PriorityFeeSol > conf.Launch.MaxPriorityFeeSol {
		return apierror.NewAPIError(apierror.ErrCapExceeded, "requested priority fee exceeds the configured cap",
			apierror.CapDetail{Field: "priority_fee_sol", Requested: lp.Launch.PriorityFeeSol, Max: conf.Launch.MaxPriorityFeeSol})
	}
	return nil
}

// resolveSlippage floors the configured slippage percentage to an integer
// and checks it against [0,100] and the optional configured ceiling.
func resolveSlippage(conf *config.Configuration) (int, error) {
	pct := float64(config.DefaultSlippagePercent)
	if conf.Launch.SlippagePercent != nil {
		pct = *conf.Launch.SlippagePercent
	}
	slippage := int(math.Floor(pct))
	if slippage < 0 || slippage > 100 {
		return 0, apierror.NewAPIError(apierror.ErrSlippageInvalid, fmt.Sprintf("slippage %d%% outside [0,100]", slippage), nil)
	}
	if conf.Launch.MaxSlippagePercent != nil && slippage > *conf.Launch.MaxSlippagePercent {
		return 0, apierror.NewAPIError(apierror.ErrSlippageInvalid,
			fmt.Sprintf("slippage %d%% exceeds configured maximum %d%%", slippage, *conf.Launch.MaxSlippagePercent), nil)
	}
	return slippage, nil
}

// executeLaunch runs the external sequence after the claim has been won.
func (a *AgentX) executeLaunch(ctx context.Context, conf *config.Configuration, lp *model.LaunchPack, slippage int) (*model.LaunchPack, error) {
	wallet, err := a.getOrProvisionWallet(ctx, lp.LaunchPackID)
	if err != nil {
		return nil, err
	}

	logo, _, err := a.portal.FetchLogo(ctx, lp.Assets.LogoURL)
	if err != nil {
		return nil, err
	}

	metadataURI, err := a.portal.UploadMetadata(ctx, TokenMetadata{
		Name:        lp.Brand.Name,
		Symbol:      lp.Brand.Ticker,
		Description: lp.Brand.Description,
		Website:     lp.Links.Website,
		Telegram:    lp.Links.Telegram,
		Twitter:     lp.Links.X,
	}, logo)
	if err != nil {
		return nil, err
	}

	mint, mintSecret, err := NewMintKeypair()
	if err != nil {
		return nil, err
	}

	result, err := a.portal.SubmitCreateAndBuy(ctx, wallet.APIKey, TradeRequest{
		Name:        lp.Brand.Name,
		Symbol:      lp.Brand.Ticker,
		MetadataURI: metadataURI,
		MintSecret:  mintSecret,
		DevBuySol:   lp.Launch.DevBuySol,
		Slippage:    slippage,
		PriorityFee: lp.Launch.PriorityFeeSol,
	})
	if err != nil {
		return nil, err
	}
	if err := ValidateMint(mint, result.Mint); err != nil {
		return nil, err
	}

	// From here the trade exists on chain. Stash its identifiers on the
	// claimed record so a failed commit still persists them.
	lp.Launch.Mint = mint
	lp.Launch.TxSignature = result.Signature

	now := time.Now()
	patch := map[string]interface{}{
		"launch": map[string]interface{}{
			"status":        model.LaunchStatusLaunched,
			"completed_at":  now,
			"mint":          mint,
			"tx_signature":  result.Signature,
			"pump_url":      pumpURLForMint(mint),
			"error_code":    nil,
			"error_message": nil,
		},
	}
	updated, err := a.datasource.UpdateLaunchPack(ctx, lp.LaunchPackID, patch)
	if err != nil {
		return nil, err
	}
	logrus.Infof("launched %s: mint=%s signature=%s", lp.LaunchPackID, mint, result.Signature)
	if audited, err := a.recordAudit(ctx, lp.LaunchPackID, fmt.Sprintf("token launched, mint %s", mint), "launcher"); err == nil {
		return audited, nil
	}
	return updated, nil
}

// failLaunch resolves a claimed launch to its failed terminal state. The
// claim must never be left mid-flight once the orchestration call returns.
func (a *AgentX) failLaunch(ctx context.Context, lp *model.LaunchPack, opErr error) {
	code := errorCode(opErr, apierror.ErrExternalCallFailed)
	now := time.Now()
	launchPatch := map[string]interface{}{
		"status":        model.LaunchStatusFailed,
		"failed_at":     now,
		"error_code":    string(code),
		"error_message": opErr.Error(),
	}
	// A recorded signature means the trade was submitted; keep it so a
	// retry can refuse to submit a second one.
	if lp.Launch.TxSignature != "" {
		launchPatch["mint"] = lp.Launch.Mint
		launchPatch["tx_signature"] = lp.Launch.TxSignature
	}
	if _, err := a.datasource.UpdateLaunchPack(ctx, lp.LaunchPackID, map[string]interface{}{"launch": launchPatch}); err != nil {
		logrus.Errorf("could not persist failed launch for %s: %v", lp.LaunchPackID, err)
	}
	_, _ = a.recordAudit(ctx, lp.LaunchPackID, fmt.Sprintf("launch failed: %s", code), "launcher")
	notification.NotifyError(fmt.Errorf("launch failed for %s: %w", lp.LaunchPackID, opErr))
}

// errorCode extracts the stable code from a typed error, falling back when
// the error came from outside the taxonomy.
func errorCode(err error, fallback apierror.ErrorCode) apierror.ErrorCode {
	var apiErr apierror.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return fallback
}
