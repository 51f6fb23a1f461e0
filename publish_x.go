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
	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/model"
)

// PublishX posts the pack's main announcement and its thread to X, each
// thread entry chained as a reply to the previous post. Exactly one
// concurrent caller wins the publish claim; a publish that already
// succeeded is an idempotent no-op returning the stored ids.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - id string: The LaunchPack to publish.
// - force bool: Bypass the failed-retry cooldown.
//
// Returns:
// - *model.LaunchPack: The updated LaunchPack.
// - error: A typed error when the publish is refused or fails.
func (a *AgentX) PublishX(ctx context.Context, id string, force bool) (*model.LaunchPack, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if !conf.X.Enabled {
		return nil, apierror.NewAPIError(apierror.ErrXDisabled, "x publishing is disabled", nil)
	}
	if conf.X.BearerToken == "" {
		return nil, apierror.NewAPIError(apierror.ErrXConfigMissing, "x configuration is incomplete",
			apierror.MissingKeysDetail{MissingKeys: []string{"x.bearer_token"}})
	}

	lp, err := a.datasource.GetLaunchPack(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lp.Ops.Checklist[model.ChecklistXReady] {
		return nil, apierror.NewAPIError(apierror.ErrXNotReady, "x checklist flag is not set", nil)
	}
	if lp.Ops.X.Status == model.PublishStatusPublished && !force {
		return lp, nil // idempotent no-op
	}
	if err := checkRetryCooldown(&lp.Ops.X, force, apierror.ErrXRetryBlocked); err != nil {
		return nil, err
	}

	claimed, err := a.datasource.ClaimXPublish(ctx, id, time.Now(), force)
	if err != nil {
		return nil, err
	}
	if claimed == nil {
		return nil, apierror.NewAPIError(apierror.ErrXPublishInProgress, "an x publish for this pack is already in flight", nil)
	}

	postIDs, err := a.postThread(ctx, claimed)
	if err != nil {
		a.failPublish(ctx, claimed, "x", err)
		return nil, err
	}

	now := time.Now()
	patch := map[string]interface{}{
		"ops": map[string]interface{}{
			"x": map[string]interface{}{
				"status":          model.PublishStatusPublished,
				"published_at":    now,
				"post_ids":        postIDs,
				"schedule_intent": scheduleDocs(model.NormalizeSchedule(claimed.X.Schedule)),
				"error_code":      nil,
				"error_message":   nil,
			},
		},
	}
	updated, err := a.datasource.UpdateLaunchPack(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	logrus.Infof("x published %s: %d posts", id, len(postIDs))
	if audited, err := a.recordAudit(ctx, id, fmt.Sprintf("x published, %d posts", len(postIDs)), "publisher"); err == nil {
		return audited, nil
	}
	return updated, nil
}

// postThread posts the main announcement first, then each thread entry as a
// reply chained to the previous post. Strict in-order execution is what
// makes the chaining correct; post ids are collected in post order.
func (a *AgentX) postThread(ctx context.Context, lp *model.LaunchPack) ([]string, error) {
	var postIDs []string
	var replyTo string

	if lp.X.MainPost != "" {
		postID, err := a.x.Post(ctx, lp.X.MainPost, "")
		if err != nil {
			return nil, err
		}
		postIDs = append(postIDs, postID)
		replyTo = postID
	}

	for _, entry := range lp.X.Thread {
		if entry == "" {
			continue
		}
		postID, err := a.x.Post(ctx, entry, replyTo)
		if err != nil {
			return nil, err
		}
		postIDs = append(postIDs, postID)
		replyTo = postID
	}

	return postIDs, nil
}
