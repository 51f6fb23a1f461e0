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
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/MRT0B13/AgentX/internal/apierror"
	"github.com/MRT0B13/AgentX/model"
	"github.com/stretchr/testify/assert"
)

func testPack(id string) *model.LaunchPack {
	return &model.LaunchPack{
		LaunchPackID: id,
		Brand:        model.Brand{Name: "King Coin", Ticker: "KING"},
		Launch:       model.LaunchState{Status: model.LaunchStatusDraft},
		Ops: model.OpsState{
			Telegram: model.PublishState{Status: model.PublishStatusIdle},
			X:        model.PublishState{Status: model.PublishStatusIdle},
		},
		CreatedAt: time.Now(),
	}
}

func claimRows(t *testing.T, lp *model.LaunchPack, version int64) *sqlmock.Rows {
	t.Helper()
	documentJSON, err := json.Marshal(lp)
	assert.NoError(t, err)
	return sqlmock.NewRows([]string{"document", "version", "created_at", "updated_at"}).
		AddRow(documentJSON, version, lp.CreatedAt, time.Now())
}

func TestCreateLaunchPack_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	lp := testPack("lp_1")

	mock.ExpectExec("INSERT INTO launchpacks").
		WithArgs(lp.LaunchPackID, sqlmock.AnyArg(), lp.Launch.Status, lp.Ops.Telegram.Status, lp.Ops.X.Status, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	created, err := ds.CreateLaunchPack(context.Background(), lp)
	assert.NoError(t, err)
	assert.Equal(t, "lp_1", created.LaunchPackID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateLaunchPack_IdempotencyKeyReturnsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	lp := testPack("lp_new")
	lp.IdempotencyKey = "idem-1"

	existing := testPack("lp_existing")
	existing.IdempotencyKey = "idem-1"
	existingJSON, err := json.Marshal(existing)
	assert.NoError(t, err)

	// Conflict on the unique idempotency key: zero rows inserted.
	mock.ExpectExec("INSERT INTO launchpacks").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT document, version, created_at, updated_at FROM launchpacks WHERE idempotency_key").
		WithArgs("idem-1").
		WillReturnRows(sqlmock.NewRows([]string{"document", "version", "created_at", "updated_at"}).
			AddRow(existingJSON, int64(1), existing.CreatedAt, existing.CreatedAt))

	created, err := ds.CreateLaunchPack(context.Background(), lp)
	assert.NoError(t, err)
	assert.Equal(t, "lp_existing", created.LaunchPackID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLaunchPack_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("SELECT document, version, created_at, updated_at FROM launchpacks").
		WithArgs("lp_missing").
		WillReturnError(sql.ErrNoRows)

	_, err = ds.GetLaunchPack(context.Background(), "lp_missing")
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestClaimLaunch_Winner(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	claimed := testPack("lp_1")
	now := time.Now()
	claimed.Launch.Status = model.LaunchStatusReady
	claimed.Launch.RequestedAt = &now

	mock.ExpectQuery("UPDATE launchpacks").
		WithArgs("lp_1", sqlmock.AnyArg(), model.LaunchStatusReady).
		WillReturnRows(claimRows(t, claimed, 2))

	got, err := ds.ClaimLaunch(context.Background(), "lp_1", now, model.LaunchStatusReady)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, model.LaunchStatusReady, got.Launch.Status)
	assert.Equal(t, int64(2), got.Version)
}

func TestClaimLaunch_LostReturnsNil(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	// Predicate matched no row: the slot is already held.
	mock.ExpectQuery("UPDATE launchpacks").
		WithArgs("lp_1", sqlmock.AnyArg(), model.LaunchStatusReady).
		WillReturnError(sql.ErrNoRows)

	got, err := ds.ClaimLaunch(context.Background(), "lp_1", time.Now(), model.LaunchStatusReady)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestClaimTelegramPublish_Winner(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	claimed := testPack("lp_1")
	now := time.Now()
	claimed.Ops.Telegram.Status = model.PublishStatusInProgress
	claimed.Ops.Telegram.AttemptedAt = &now

	mock.ExpectQuery("UPDATE launchpacks").
		WithArgs("lp_1", sqlmock.AnyArg(), false).
		WillReturnRows(claimRows(t, claimed, 2))

	got, err := ds.ClaimTelegramPublish(context.Background(), "lp_1", now, false)
	assert.NoError(t, err)
	assert.NotNil(t, got)
	assert.Equal(t, model.PublishStatusInProgress, got.Ops.Telegram.Status)
}

func TestUpdateLaunchPack_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT document, version, created_at FROM launchpacks").
		WithArgs("lp_missing").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err = ds.UpdateLaunchPack(context.Background(), "lp_missing", map[string]interface{}{"brand": map[string]interface{}{"name": "x"}})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestUpdateLaunchPack_MergesAndBumpsVersion(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	current := testPack("lp_1")
	currentJSON, err := json.Marshal(current)
	assert.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT document, version, created_at FROM launchpacks").
		WithArgs("lp_1").
		WillReturnRows(sqlmock.NewRows([]string{"document", "version", "created_at"}).
			AddRow(currentJSON, int64(3), current.CreatedAt))
	mock.ExpectExec("UPDATE launchpacks").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := ds.UpdateLaunchPack(context.Background(), "lp_1", map[string]interface{}{
		"brand": map[string]interface{}{"description": "to the moon"},
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(4), updated.Version)
	assert.Equal(t, "to the moon", updated.Brand.Description)
	assert.Equal(t, "KING", updated.Brand.Ticker, "unpatched sibling survives the merge")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAudit_ConcatenatesSingleEntry(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	stored := testPack("lp_1")
	stored.Ops.Audit = []model.AuditEntry{
		{At: time.Now(), Message: "launchpack created", Actor: "system"},
		{At: time.Now(), Message: "telegram published, 3 pins", Actor: "publisher"},
	}
	entry := model.AuditEntry{At: time.Now(), Message: "x published, 3 posts", Actor: "publisher"}
	entryJSON, err := json.Marshal(entry)
	assert.NoError(t, err)
	stored.Ops.Audit = append(stored.Ops.Audit, entry)

	mock.ExpectQuery(`UPDATE launchpacks\s+SET document = jsonb_set\(document, '\{ops,audit\}'`).
		WithArgs("lp_1", entryJSON).
		WillReturnRows(claimRows(t, stored, 4))

	updated, err := ds.AppendAudit(context.Background(), "lp_1", entry)
	assert.NoError(t, err)
	assert.Len(t, updated.Ops.Audit, 3)
	assert.Equal(t, "telegram published, 3 pins", updated.Ops.Audit[1].Message)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAudit_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}

	mock.ExpectQuery("UPDATE launchpacks").
		WillReturnError(sql.ErrNoRows)

	_, err = ds.AppendAudit(context.Background(), "lp_missing", model.AuditEntry{Message: "launched"})
	assert.Error(t, err)
	apiErr, ok := err.(apierror.APIError)
	assert.True(t, ok)
	assert.Equal(t, apierror.ErrNotFound, apiErr.Code)
}

func TestFindDueTelegramPublishes_OrderedOldestFirstWithLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	ds := Datasource{Conn: db}
	now := time.Now()

	oldest := testPack("lp_oldest")
	older := testPack("lp_older")
	oldestJSON, err := json.Marshal(oldest)
	assert.NoError(t, err)
	olderJSON, err := json.Marshal(older)
	assert.NoError(t, err)

	rows := sqlmock.NewRows([]string{"document", "version", "created_at", "updated_at"}).
		AddRow(oldestJSON, int64(2), oldest.CreatedAt, now.Add(-2*time.Hour)).
		AddRow(olderJSON, int64(2), older.CreatedAt, now.Add(-time.Hour))

	mock.ExpectQuery(`(?s)tg_status NOT IN \('in_progress', 'published'\).*ORDER BY updated_at ASC\s+LIMIT \$2`).
		WithArgs(now, 2).
		WillReturnRows(rows)

	due, err := ds.FindDueTelegramPublishes(context.Background(), now, 2)
	assert.NoError(t, err)
	assert.Len(t, due, 2)
	assert.Equal(t, "lp_oldest", due[0].LaunchPackID)
	assert.Equal(t, "lp_older", due[1].LaunchPackID)
	assert.True(t, due[0].UpdatedAt.Before(due[1].UpdatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}
