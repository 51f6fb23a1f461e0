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
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/database"
	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/internal/notification"
	"github.com/MRT0B13/AgentX/model"
)

// PublishTelegram sends and pins the pack's pin messages to the configured
// chat. Exactly one concurrent caller wins the publish claim; a publish
// that already succeeded is an idempotent no-op returning the stored ids.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - id string: The LaunchPack to publish.
// - force bool: Bypass the failed-retry cooldown.
//
// Returns:
// - *model.LaunchPack: The updated LaunchPack.
// - error: A typed error when the publish is refused or fails.
func (a *AgentX) PublishTelegram(ctx context.Context, id string, force bool) (*model.LaunchPack, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if !conf.Telegram.Enabled {
		return nil, apierror.NewAPIError(apierror.ErrTelegramDisabled, "telegram publishing is disabled", nil)
	}
	if missing := missingTelegramKeys(conf); len(missing) > 0 {
		return nil, apierror.NewAPIError(apierror.ErrTelegramConfigMissing, "telegram configuration is incomplete",
			apierror.MissingKeysDetail{MissingKeys: missing})
	}

	lp, err := a.datasource.GetLaunchPack(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lp.Ops.Checklist[model.ChecklistTelegramReady] {
		return nil, apierror.NewAPIError(apierror.ErrTelegramNotReady, "telegram checklist flag is not set", nil)
	}
	if lp.Ops.Telegram.Status == model.PublishStatusPublished && !force {
		return lp, nil // idempotent no-op
	}
	if err := checkRetryCooldown(&lp.Ops.Telegram, force, apierror.ErrTelegramRetryBlocked); err != nil {
		return nil, err
	}

	claimed, err := a.datasource.ClaimTelegramPublish(ctx, id, time.Now(), force)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, apierror.NewAPIError(apierror.ErrTelegramPublishInProgress, "a telegram publish for this pack is already in flight", nil)
	}

	messageIDs, err := a.sendPins(ctx, claimed)
	if err != nil {
		a.failPublish(ctx, claimed, "telegram", err)
		return nil, err
	}

	now := time.Now()
	patch := map[string]interface{}{
		"ops": map[string]interface{}{
			"telegram": map[string]interface{}{
				"status":          model.PublishStatusPublished,
				"published_at":    now,
				"message_ids":     messageIDs,
				"schedule_intent": scheduleDocs(model.NormalizeSchedule(claimed.TG.Schedule)),
				"error_code":      nil,
				"error_message":   nil,
			},
		},
	}
	updated, err := a.datasource.UpdateLaunchPack(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	logrus.Infof("telegram published %s: %d pins", id, len(messageIDs))
	if audited, err := a.recordAudit(ctx, id, fmt.Sprintf("telegram published, %d pins", len(messageIDs)), "publisher"); err == nil {
		return audited, nil
	}
	return updated, nil
}

// sendPins sends and pins each non-empty pin message in order, collecting
// message ids in send order. Any failed send or pin aborts the whole
// publish; a retry re-runs the full sequence.
func (a *AgentX) sendPins(ctx context.Context, lp *model.LaunchPack) ([]int64, error) {
	pins := []string{lp.TG.PinWelcome, lp.TG.PinHowToBuy, lp.TG.PinMemeKit}
	var messageIDs []int64
	for _, text := range pins {
		if text == "" {
			continue
		}
		messageID, err := a.tg.SendMessage(ctx, text)
		if err != nil {
			return nil, err
		}
		if err := a.tg.PinMessage(ctx, messageID); err != nil {
			return nil, err
		}
		messageIDs = append(messageIDs, messageID)
	}
	return messageIDs, nil
}

func missingTelegramKeys(conf *config.Configuration) []string {
	var missing []string
	if conf.Telegram.BotToken == "" {
		missing = append(missing, "telegram.bot_token")
	}
	if conf.Telegram.ChatID == "" {
		missing = append(missing, "telegram.chat_id")
	}
	return missing
}

// checkRetryCooldown refuses a retry of a failed publish inside the
// cooldown window unless forced.
func checkRetryCooldown(state *model.PublishState, force bool, code apierror.ErrorCode) error {
	if state.Status != model.PublishStatusFailed || force {
		return nil
	}
	if state.FailedAt != nil && time.Since(*state.FailedAt) < database.PublishRetryCooldown {
		return apierror.NewAPIError(code,
			fmt.Sprintf("last publish failed %s ago, retry blocked for %s unless forced",
				time.Since(*state.FailedAt).Round(time.Second), database.PublishRetryCooldown), nil)
	}
	return nil
}

// failPublish resolves a claimed channel publish to failed. The claim is
// never left mid-flight once the orchestration call returns.
func (a *AgentX) failPublish(ctx context.Context, lp *model.LaunchPack, channel string, opErr error) {
	code := errorCode(opErr, apierror.ErrExternalCallFailed)
	now := time.Now()
	patch := map[string]interface{}{
		"ops": map[string]interface{}{
			channel: map[string]interface{}{
				"status":        model.PublishStatusFailed,
				"failed_at":     now,
				"error_code":    string(code),
				"error_message": opErr.Error(),
			},
		},
	}
	if _, err := a.datasource.UpdateLaunchPack(ctx, lp.LaunchPackID, patch); err != nil {
		logrus.Errorf("could not persist failed %s publish for %s: %v", channel, lp.LaunchPackID, err)
	}
	_, _ = a.recordAudit(ctx, lp.LaunchPackID, fmt.Sprintf("%s publish failed: %s", channel, code), "publisher")
	notification.NotifyError(fmt.Errorf("%s publish failed for %s: %w", channel, lp.LaunchPackID, opErr))
}

// scheduleDocs converts normalized schedule entries to the generic tree
// accepted by the patch-update path.
func scheduleDocs(entries []model.ScheduleEntry) []interface{} {
	out := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		doc, err := model.ToDocument(e)
		if err != nil {
			continue
		}
		out = append(out, doc)
	}
	return out
}
