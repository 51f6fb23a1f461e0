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

package database

import (
	"context"
	"time"

	"github.com/MRT0B13/AgentX/model"
)

// IDataSource defines the interface for data source operations.
type IDataSource interface {
	launchpack
}

// PublishRetryCooldown is the window after a failed attempt during which a
// new claim is refused unless forced. It matches the INTERVAL baked into the
// postgres claim predicates.
const PublishRetryCooldown = 10 * time.Minute

// launchpack defines methods for handling LaunchPacks. The Claim* methods
// are atomic conditional transitions: they succeed for exactly one of any
// set of concurrent callers and return (nil, nil) for the rest.
type launchpack interface {
	// CreateLaunchPack persists a new LaunchPack. When the record carries an
	// idempotency key that has been seen before, the existing record is
	// returned unchanged and no new row is written.
	CreateLaunchPack(ctx context.Context, lp *model.LaunchPack) (*model.LaunchPack, error)

	// GetLaunchPack retrieves a LaunchPack by ID.
	GetLaunchPack(ctx context.Context, id string) (*model.LaunchPack, error)

	// UpdateLaunchPack deep-merges patch into the stored document, bumps the
	// version and stamps updated_at. It always succeeds for an existing id;
	// it carries no win/lose contract and must not be used as a claim.
	UpdateLaunchPack(ctx context.Context, id string, patch map[string]interface{}) (*model.LaunchPack, error)

	// AppendAudit atomically appends one entry to the record's audit log.
	// The log is append-only: concurrent appends from different
	// orchestrations must all survive, so callers send single entries and
	// never a rebuilt array.
	AppendAudit(ctx context.Context, id string, entry model.AuditEntry) (*model.LaunchPack, error)

	// ClaimLaunch grants the launch slot: it succeeds only while the record
	// has never been claimed or its last attempt failed, and never after a
	// successful launch.
	ClaimLaunch(ctx context.Context, id string, requestedAt time.Time, status string) (*model.LaunchPack, error)

	// ClaimTelegramPublish and ClaimXPublish grant a channel's publish slot:
	// from idle always, from failed only when forced or after the retry
	// cooldown, never from in_progress or published.
	ClaimTelegramPublish(ctx context.Context, id string, requestedAt time.Time, force bool) (*model.LaunchPack, error)
	ClaimXPublish(ctx context.Context, id string, requestedAt time.Time, force bool) (*model.LaunchPack, error)

	// FindDueTelegramPublishes and FindDueXPublishes scan for records whose
	// recorded schedule intent has at least one entry due at or before now
	// and whose channel is neither mid-flight nor published, oldest-updated
	// first, bounded by limit.
	FindDueTelegramPublishes(ctx context.Context, now time.Time, limit int) ([]*model.LaunchPack, error)
	FindDueXPublishes(ctx context.Context, now time.Time, limit int) ([]*model.LaunchPack, error)
}
