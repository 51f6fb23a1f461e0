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

	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/model"
)

// CreateLaunchPack validates and persists a new LaunchPack. Creation is
// idempotent under the record's idempotency key: a repeated create with a
// key that was seen before returns the originally stored record.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - lp *model.LaunchPack: The LaunchPack payload to persist.
//
// Returns:
// - *model.LaunchPack: The stored LaunchPack.
// - error: An error if validation or persistence fails.
func (a *AgentX) CreateLaunchPack(ctx context.Context, lp *model.LaunchPack) (*model.LaunchPack, error) {
	lp.Normalize()
	if err := lp.ValidateLaunchPack(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, err.Error(), nil)
	}

	now := time.Now()
	lp.LaunchPackID = model.GenerateUUIDWithSuffix("lp")
	lp.Version = 1
	lp.CreatedAt = now
	lp.UpdatedAt = now
	lp.Launch.Status = model.LaunchStatusDraft
	lp.Ops.Telegram.Status = model.PublishStatusIdle
	lp.Ops.X.Status = model.PublishStatusIdle
	if lp.Ops.Checklist == nil {
		lp.Ops.Checklist = map[string]bool{}
	}
	lp.Ops.Audit = append(lp.Ops.Audit, model.AuditEntry{At: now, Message: "launchpack created", Actor: "system"})

	a.ensureContent(ctx, lp)

	created, err := a.datasource.CreateLaunchPack(ctx, lp)
	if err != nil {
		return nil, err
	}
	logrus.Infof("created launchpack %s (%s)", created.LaunchPackID, created.Brand.Ticker)
	return created, nil
}

// GetLaunchPack retrieves a LaunchPack by its id.
func (a *AgentX) GetLaunchPack(ctx context.Context, id string) (*model.LaunchPack, error) {
	return a.datasource.GetLaunchPack(ctx, id)
}

// UpdateLaunchPack deep-merges a patch into the stored record. Identity and
// bookkeeping fields are stripped from the patch before it is applied; the
// state machines are only reachable through their claim flows.
func (a *AgentX) UpdateLaunchPack(ctx context.Context, id string, patch map[string]interface{}) (*model.LaunchPack, error) {
	for _, field := range []string{"launchpack_id", "idempotency_key", "version", "created_at", "updated_at"} {
		delete(patch, field)
	}
	// The audit log only grows through AppendAudit; a patched array would
	// replace it wholesale.
	if ops, ok := patch["ops"].(map[string]interface{}); ok {
		delete(ops, "audit")
		if len(ops) == 0 {
			delete(patch, "ops")
		}
	}
	if len(patch) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrBadRequest, "empty patch", nil)
	}
	return a.datasource.UpdateLaunchPack(ctx, id, patch)
}

// ExportLaunchPack returns the full stored document for a LaunchPack, the
// shape persisted at rest, for download by operators.
func (a *AgentX) ExportLaunchPack(ctx context.Context, id string) (map[string]interface{}, error) {
	lp, err := a.datasource.GetLaunchPack(ctx, id)
	if err != nil {
		return nil, err
	}
	return model.ToDocument(lp)
}

// auditEntry builds a single audit record. Entries go to the store through
// AppendAudit one at a time; a patch update must never carry the array, or
// the wholesale array replacement in the merge would drop entries written
// by a concurrent orchestration.
func auditEntry(message, actor string) model.AuditEntry {
	return model.AuditEntry{At: time.Now(), Message: message, Actor: actor}
}

// recordAudit appends one audit entry, returning the refreshed record. An
// append failure never fails the operation that produced the entry.
func (a *AgentX) recordAudit(ctx context.Context, id, message, actor string) (*model.LaunchPack, error) {
	lp, err := a.datasource.AppendAudit(ctx, id, auditEntry(message, actor))
	if err != nil {
		logrus.Errorf("could not append audit entry for %s: %v", id, err)
	}
	return lp, err
}

// pumpURLForMint returns the public coin page for a launched mint.
func pumpURLForMint(mint string) string {
	return fmt.Sprintf("https://pump.fun/coin/%s", mint)
}
