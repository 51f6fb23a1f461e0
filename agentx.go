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
	"embed"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/database"
	"github.com/MRT0B13/AgentX/internal/cache"
	redis_db "github.com/MRT0B13/AgentX/internal/redis-db"
)

// AgentX represents the main struct for the AgentX application. It owns the
// orchestration flow for launches and channel publishes; the datasource is
// the sole writer of record for LaunchPack state.
type AgentX struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	cache      cache.Cache
	portal     *PortalClient
	tg         *BotClient
	x          *XClient
	prompts    PromptRunner
}

//go:embed sql/*.sql
var SQLFiles embed.FS

// NewAgentX initializes a new instance of AgentX with the provided database
// datasource. It fetches the configuration and wires the Redis client, task
// queue, secrets cache and external clients.
//
// Parameters:
// - db database.IDataSource: The datasource for database operations.
//
// Returns:
// - *AgentX: A pointer to the newly created AgentX instance.
// - error: An error if any of the initialization steps fail.
func NewAgentX(db database.IDataSource) (*AgentX, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient([]string{fmt.Sprintf("redis://%s", configuration.Redis.Dns)})
	if err != nil {
		return nil, err
	}
	newCache, err := cache.NewCache()
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	newAgentX := &AgentX{
		datasource: db,
		queue:      newQueue,
		redis:      redisClient.Client(),
		cache:      newCache,
		portal:     NewPortalClient(configuration.Portal),
		tg:         NewBotClient(configuration.Telegram),
		x:          NewXClient(configuration.X),
	}
	return newAgentX, nil
}

// SetPromptRunner installs the text-generation collaborator used to fill
// missing campaign copy. A nil runner means deterministic fallback copy only.
func (a *AgentX) SetPromptRunner(runner PromptRunner) {
	a.prompts = runner
}
