package agentx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/database"
	"github.com/MRT0B13/AgentX/model"
)

func TestSweepDuePublishes(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("an error '%s' occurred when starting miniredis", err)
	}
	defer mr.Close()

	cnf := testConfig()
	cnf.Redis.Dns = mr.Addr()
	config.MockConfig(cnf)

	ds := database.NewMemoryDatasource()
	a := &AgentX{datasource: ds, queue: NewQueue(cnf)}
	ctx := context.Background()

	lp := &model.LaunchPack{
		Brand: model.Brand{Name: "King Coin", Ticker: "KING"},
		Ops: model.OpsState{
			Telegram: model.PublishState{Status: model.PublishStatusIdle},
			X:        model.PublishState{Status: model.PublishStatusIdle},
		},
		CreatedAt: time.Now(),
	}
	created, err := ds.CreateLaunchPack(ctx, lp)
	assert.NoError(t, err)

	_, err = ds.UpdateLaunchPack(ctx, created.LaunchPackID, map[string]interface{}{
		"ops": map[string]interface{}{
			"telegram": map[string]interface{}{
				"schedule_intent": []interface{}{
					map[string]interface{}{"when": time.Now().Add(-time.Hour).UTC().Format(time.RFC3339), "text": "gm"},
				},
			},
		},
	})
	assert.NoError(t, err)

	err = a.SweepDuePublishes(ctx)
	assert.NoError(t, err)

	// Verify that a publish task was enqueued
	assert.NotEmpty(t, mr.Keys())
}
