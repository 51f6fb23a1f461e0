package database

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/model"
)

// MemoryDatasource is an in-process IDataSource backed by a single
// mutex-guarded map. It reproduces the postgres implementation's claim
// atomicity: every conditional transition runs check-and-set under the same
// lock, so concurrent claims still have exactly one winner.
type MemoryDatasource struct {
	mu       sync.Mutex
	packs    map[string]*model.LaunchPack
	byIdemKey map[string]string
}

func NewMemoryDatasource() *MemoryDatasource {
	return &MemoryDatasource{
		packs:     make(map[string]*model.LaunchPack),
		byIdemKey: make(map[string]string),
	}
}

// clone round-trips through JSON so callers never share memory with the
// stored record, matching the isolation a real database provides.
func clone(lp *model.LaunchPack) *model.LaunchPack {
	raw, _ := json.Marshal(lp)
	out := &model.LaunchPack{}
	_ = json.Unmarshal(raw, out)
	return out
}

func (m *MemoryDatasource) CreateLaunchPack(_ context.Context, lp *model.LaunchPack) (*model.LaunchPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if lp.IdempotencyKey != "" {
		if existingID, ok := m.byIdemKey[lp.IdempotencyKey]; ok {
			return clone(m.packs[existingID]), nil
		}
	}

	stored := clone(lp)
	stored.Version = 1
	m.packs[stored.LaunchPackID] = stored
	if stored.IdempotencyKey != "" {
		m.byIdemKey[stored.IdempotencyKey] = stored.LaunchPackID
	}
	return clone(stored), nil
}

func (m *MemoryDatasource) GetLaunchPack(_ context.Context, id string) (*model.LaunchPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lp, ok := m.packs[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("LaunchPack with ID '%s' not found", id), nil)
	}
	return clone(lp), nil
}

func (m *MemoryDatasource) UpdateLaunchPack(_ context.Context, id string, patch map[string]interface{}) (*model.LaunchPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.packs[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("LaunchPack with ID '%s' not found", id), nil)
	}

	document, err := model.ToDocument(current)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to convert launchpack to document", err)
	}
	merged, err := model.FromDocument(model.DeepMerge(document, patch))
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to decode merged document", err)
	}

	merged.Version = current.Version + 1
	merged.CreatedAt = current.CreatedAt
	merged.UpdatedAt = time.Now()
	m.packs[id] = merged
	return clone(merged), nil
}

// AppendAudit appends one entry under the store lock, so entries written by
// concurrent orchestrations all survive.
func (m *MemoryDatasource) AppendAudit(_ context.Context, id string, entry model.AuditEntry) (*model.LaunchPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lp, ok := m.packs[id]
	if !ok {
		return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("LaunchPack with ID '%s' not found", id), nil)
	}
	lp.Ops.Audit = append(lp.Ops.Audit, entry)
	lp.Version++
	lp.UpdatedAt = time.Now()
	return clone(lp), nil
}

func (m *MemoryDatasource) ClaimLaunch(_ context.Context, id string, requestedAt time.Time, status string) (*model.LaunchPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lp, ok := m.packs[id]
	if !ok {
		return nil, nil
	}
	if lp.Launch.Status == model.LaunchStatusLaunched {
		return nil, nil
	}
	if lp.Launch.RequestedAt != nil && lp.Launch.Status != model.LaunchStatusFailed {
		return nil, nil
	}

	at := requestedAt
	lp.Launch.RequestedAt = &at
	lp.Launch.Status = status
	lp.Version++
	lp.UpdatedAt = time.Now()
	return clone(lp), nil
}

func (m *MemoryDatasource) ClaimTelegramPublish(_ context.Context, id string, requestedAt time.Time, force bool) (*model.LaunchPack, error) {
	return m.claimChannelPublish(id, "telegram", requestedAt, force)
}

func (m *MemoryDatasource) ClaimXPublish(_ context.Context, id string, requestedAt time.Time, force bool) (*model.LaunchPack, error) {
	return m.claimChannelPublish(id, "x", requestedAt, force)
}

func (m *MemoryDatasource) claimChannelPublish(id, channel string, requestedAt time.Time, force bool) (*model.LaunchPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	lp, ok := m.packs[id]
	if !ok {
		return nil, nil
	}

	state := lp.PublishStateFor(channel)
	claimable := state.Status == model.PublishStatusIdle
	if state.Status == model.PublishStatusFailed {
		cooledDown := state.FailedAt == nil || !state.FailedAt.After(requestedAt.Add(-PublishRetryCooldown))
		claimable = force || cooledDown
	}
	if !claimable {
		return nil, nil
	}

	at := requestedAt
	state.Status = model.PublishStatusInProgress
	state.AttemptedAt = &at
	state.ErrorCode = ""
	state.ErrorMessage = ""
	lp.Version++
	lp.UpdatedAt = time.Now()
	return clone(lp), nil
}

func (m *MemoryDatasource) FindDueTelegramPublishes(_ context.Context, now time.Time, limit int) ([]*model.LaunchPack, error) {
	return m.findDuePublishes("telegram", now, limit)
}

func (m *MemoryDatasource) FindDueXPublishes(_ context.Context, now time.Time, limit int) ([]*model.LaunchPack, error) {
	return m.findDuePublishes("x", now, limit)
}

func (m *MemoryDatasource) findDuePublishes(channel string, now time.Time, limit int) ([]*model.LaunchPack, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []*model.LaunchPack
	for _, lp := range m.packs {
		state := lp.PublishStateFor(channel)
		if state.Status == model.PublishStatusInProgress || state.Status == model.PublishStatusPublished {
			continue
		}
		for _, entry := range state.ScheduleIntent {
			if !entry.When.After(now) {
				due = append(due, clone(lp))
				break
			}
		}
	}

	// Oldest-stale-first, same order the SQL scan produces.
	sort.Slice(due, func(i, j int) bool { return due[i].UpdatedAt.Before(due[j].UpdatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}
