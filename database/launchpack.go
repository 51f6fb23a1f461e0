package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/model"

	_ "github.com/lib/pq"
)

// scanLaunchPack decodes a document row into a LaunchPack. The version and
// timestamp columns are authoritative and override whatever the document
// carries.
func scanLaunchPack(documentJSON []byte, version int64, createdAt, updatedAt time.Time) (*model.LaunchPack, error) {
	lp := &model.LaunchPack{}
	if err := json.Unmarshal(documentJSON, lp); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal launchpack document", err)
	}
	lp.Version = version
	lp.CreatedAt = createdAt
	lp.UpdatedAt = updatedAt
	return lp, nil
}

// CreateLaunchPack persists a new LaunchPack. Idempotency-key deduplication
// rides on the column's unique constraint: the insert is attempted with
// ON CONFLICT DO NOTHING and, when no row lands, the prior record is
// returned unchanged.
func (d Datasource) CreateLaunchPack(ctx context.Context, lp *model.LaunchPack) (*model.LaunchPack, error) {
	documentJSON, err := json.Marshal(lp)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal launchpack", err)
	}

	var idempotencyKey sql.NullString
	if lp.IdempotencyKey != "" {
		idempotencyKey = sql.NullString{String: lp.IdempotencyKey, Valid: true}
	}

	result, err := d.Conn.ExecContext(ctx, `
		INSERT INTO launchpacks (launchpack_id, idempotency_key, version, launch_status, tg_status, x_status, created_at, updated_at, document)
		VALUES ($1, $2, 1, $3, $4, $5, $6, $6, $7)
		ON CONFLICT (idempotency_key) DO NOTHING
	`, lp.LaunchPackID, idempotencyKey, lp.Launch.Status, lp.Ops.Telegram.Status, lp.Ops.X.Status, lp.CreatedAt, documentJSON)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to record launchpack", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		// A prior create already used this idempotency key.
		return d.getLaunchPackByIdempotencyKey(ctx, lp.IdempotencyKey)
	}

	return lp, nil
}

func (d Datasource) getLaunchPackByIdempotencyKey(ctx context.Context, key string) (*model.LaunchPack, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT document, version, created_at, updated_at
		FROM launchpacks
		WHERE idempotency_key = $1
	`, key)

	var documentJSON []byte
	var version int64
	var createdAt, updatedAt time.Time
	if err := row.Scan(&documentJSON, &version, &createdAt, &updatedAt); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve launchpack by idempotency key", err)
	}
	return scanLaunchPack(documentJSON, version, createdAt, updatedAt)
}

func (d Datasource) GetLaunchPack(ctx context.Context, id string) (*model.LaunchPack, error) {
	row := d.Conn.QueryRowContext(ctx, `
		SELECT document, version, created_at, updated_at
		FROM launchpacks
		WHERE launchpack_id = $1
	`, id)

	var documentJSON []byte
	var version int64
	var createdAt, updatedAt time.Time
	err := row.Scan(&documentJSON, &version, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("LaunchPack with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve launchpack", err)
	}
	return scanLaunchPack(documentJSON, version, createdAt, updatedAt)
}

// UpdateLaunchPack deep-merges patch into the stored document under a row
// lock, bumps the version and refreshes the denormalized claim columns from
// the merged document. It always succeeds for an existing id.
func (d Datasource) UpdateLaunchPack(ctx context.Context, id string, patch map[string]interface{}) (*model.LaunchPack, error) {
	tx, err := d.Conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to begin transaction", err)
	}

	row := tx.QueryRowContext(ctx, `
		SELECT document, version, created_at
		FROM launchpacks
		WHERE launchpack_id = $1
		FOR UPDATE
	`, id)

	var documentJSON []byte
	var version int64
	var createdAt time.Time
	if err := row.Scan(&documentJSON, &version, &createdAt); err != nil {
		_ = tx.Rollback()
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("LaunchPack with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to retrieve launchpack", err)
	}

	var document map[string]interface{}
	if err := json.Unmarshal(documentJSON, &document); err != nil {
		_ = tx.Rollback()
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to unmarshal launchpack document", err)
	}

	merged := model.DeepMerge(document, patch)
	lp, err := model.FromDocument(merged)
	if err != nil {
		_ = tx.Rollback()
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to decode merged document", err)
	}

	now := time.Now()
	lp.Version = version + 1
	lp.UpdatedAt = now
	lp.CreatedAt = createdAt

	mergedJSON, err := json.Marshal(lp)
	if err != nil {
		_ = tx.Rollback()
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal merged document", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE launchpacks
		SET document = $2,
		    version = version + 1,
		    launch_status = $3,
		    launch_requested_at = $4,
		    tg_status = $5,
		    tg_failed_at = $6,
		    x_status = $7,
		    x_failed_at = $8,
		    updated_at = $9
		WHERE launchpack_id = $1
	`, id, mergedJSON, lp.Launch.Status, nullableTime(lp.Launch.RequestedAt),
		lp.Ops.Telegram.Status, nullableTime(lp.Ops.Telegram.FailedAt),
		lp.Ops.X.Status, nullableTime(lp.Ops.X.FailedAt), now)
	if err != nil {
		_ = tx.Rollback()
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to update launchpack", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to commit transaction", err)
	}
	return lp, nil
}

// AppendAudit concatenates one entry onto the document's audit array in a
// single UPDATE, so an entry appended by a concurrent writer between another
// caller's read and commit is never lost.
func (d Datasource) AppendAudit(ctx context.Context, id string, entry model.AuditEntry) (*model.LaunchPack, error) {
	entryJSON, err := json.Marshal(entry)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to marshal audit entry", err)
	}

	row := d.Conn.QueryRowContext(ctx, `
		UPDATE launchpacks
		SET document = jsonb_set(document, '{ops,audit}',
		        COALESCE(document->'ops'->'audit', '[]'::jsonb) || $2::jsonb),
		    version = version + 1,
		    updated_at = NOW()
		WHERE launchpack_id = $1
		RETURNING document, version, created_at, updated_at
	`, id, entryJSON)

	var documentJSON []byte
	var version int64
	var createdAt, updatedAt time.Time
	if err := row.Scan(&documentJSON, &version, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, apierror.NewAPIError(apierror.ErrNotFound, fmt.Sprintf("LaunchPack with ID '%s' not found", id), err)
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to append audit entry", err)
	}
	return scanLaunchPack(documentJSON, version, createdAt, updatedAt)
}

func nullableTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

// ClaimLaunch is the single-winner transition for the launch slot. The
// predicate and the mutation execute as one conditional UPDATE, so exactly
// one of any set of concurrent callers sees a row come back; the rest get
// (nil, nil) and must treat the slot as taken.
func (d Datasource) ClaimLaunch(ctx context.Context, id string, requestedAt time.Time, status string) (*model.LaunchPack, error) {
	row := d.Conn.QueryRowContext(ctx, `
		UPDATE launchpacks
		SET document = jsonb_set(
		        jsonb_set(document, '{launch,status}', to_jsonb($3::text)),
		        '{launch,requested_at}', to_jsonb($2::timestamptz)),
		    launch_status = $3,
		    launch_requested_at = $2,
		    version = version + 1,
		    updated_at = NOW()
		WHERE launchpack_id = $1
		  AND launch_status <> 'launched'
		  AND (launch_requested_at IS NULL OR launch_status = 'failed')
		RETURNING document, version, created_at, updated_at
	`, id, requestedAt, status)

	return scanClaimRow(row)
}

// ClaimTelegramPublish grants the Telegram publish slot from idle, or from
// failed once the cooldown elapsed or force is set. It never succeeds from
// in_progress or published. On success the status flips to in_progress, the
// attempt is stamped and prior error fields are cleared, all atomically.
func (d Datasource) ClaimTelegramPublish(ctx context.Context, id string, requestedAt time.Time, force bool) (*model.LaunchPack, error) {
	return d.claimChannelPublish(ctx, "telegram", "tg_status", "tg_failed_at", id, requestedAt, force)
}

// ClaimXPublish is the X counterpart of ClaimTelegramPublish.
func (d Datasource) ClaimXPublish(ctx context.Context, id string, requestedAt time.Time, force bool) (*model.LaunchPack, error) {
	return d.claimChannelPublish(ctx, "x", "x_status", "x_failed_at", id, requestedAt, force)
}

func (d Datasource) claimChannelPublish(ctx context.Context, channel, statusCol, failedAtCol, id string, requestedAt time.Time, force bool) (*model.LaunchPack, error) {
	query := fmt.Sprintf(`
		UPDATE launchpacks
		SET document = jsonb_set(
		        jsonb_set(
		            (document #- '{ops,%s,error_code}') #- '{ops,%s,error_message}',
		            '{ops,%s,status}', to_jsonb('in_progress'::text)),
		        '{ops,%s,attempted_at}', to_jsonb($2::timestamptz)),
		    %s = 'in_progress',
		    version = version + 1,
		    updated_at = NOW()
		WHERE launchpack_id = $1
		  AND (%s = 'idle'
		       OR (%s = 'failed' AND ($3 OR %s IS NULL OR %s <= $2::timestamptz - INTERVAL '10 minutes')))
		RETURNING document, version, created_at, updated_at
	`, channel, channel, channel, channel, statusCol, statusCol, statusCol, failedAtCol, failedAtCol)

	row := d.Conn.QueryRowContext(ctx, query, id, requestedAt, force)
	return scanClaimRow(row)
}

// scanClaimRow maps a conditional UPDATE's RETURNING row to a LaunchPack.
// No row means the claim lost; that is not an error.
func scanClaimRow(row *sql.Row) (*model.LaunchPack, error) {
	var documentJSON []byte
	var version int64
	var createdAt, updatedAt time.Time
	err := row.Scan(&documentJSON, &version, &createdAt, &updatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to claim launchpack slot", err)
	}
	return scanLaunchPack(documentJSON, version, createdAt, updatedAt)
}

func (d Datasource) FindDueTelegramPublishes(ctx context.Context, now time.Time, limit int) ([]*model.LaunchPack, error) {
	return d.findDuePublishes(ctx, "telegram", "tg_status", now, limit)
}

func (d Datasource) FindDueXPublishes(ctx context.Context, now time.Time, limit int) ([]*model.LaunchPack, error) {
	return d.findDuePublishes(ctx, "x", "x_status", now, limit)
}

func (d Datasource) findDuePublishes(ctx context.Context, channel, statusCol string, now time.Time, limit int) ([]*model.LaunchPack, error) {
	query := fmt.Sprintf(`
		SELECT document, version, created_at, updated_at
		FROM launchpacks
		WHERE %s NOT IN ('in_progress', 'published')
		  AND EXISTS (
		      SELECT 1
		      FROM jsonb_array_elements(COALESCE(document->'ops'->'%s'->'schedule_intent', '[]'::jsonb)) entry
		      WHERE (entry->>'when')::timestamptz <= $1)
		ORDER BY updated_at ASC
		LIMIT $2
	`, statusCol, channel)

	rows, err := d.Conn.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan due publishes", err)
	}
	defer rows.Close()

	var packs []*model.LaunchPack
	for rows.Next() {
		var documentJSON []byte
		var version int64
		var createdAt, updatedAt time.Time
		if err := rows.Scan(&documentJSON, &version, &createdAt, &updatedAt); err != nil {
			return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to scan due publish row", err)
		}
		lp, err := scanLaunchPack(documentJSON, version, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		packs = append(packs, lp)
	}
	if err := rows.Err(); err != nil {
		return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to iterate due publishes", err)
	}
	return packs, nil
}
