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
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/MRT0B13/AgentX/config"
	redis_db "github.com/MRT0B13/AgentX/internal/redis-db"
)

// Queue represents a queue for handling publish tasks raised by the
// due-publish sweep.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// PublishTaskPayload is the body of a queued publish task.
type PublishTaskPayload struct {
	LaunchPackID string `json:"launchpack_id"`
	Channel      string `json:"channel"`
}

// NewQueue initializes a new Queue instance with the provided configuration.
//
// Parameters:
// - conf *config.Configuration: The configuration for the queue.
//
// Returns:
// - *Queue: A pointer to the newly created Queue instance.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(fmt.Sprintf("redis://%s", conf.Redis.Dns))
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// EnqueuePublish enqueues a publish task for one LaunchPack channel. The
// task id is derived from the pack id and channel so a pack already queued
// for a channel is not queued twice before the worker drains it.
//
// Parameters:
// - ctx context.Context: The context for the operation.
// - launchPackID string: The LaunchPack to publish.
// - channel string: The channel to publish, "telegram" or "x".
//
// Returns:
// - error: An error if the task could not be enqueued.
func (q *Queue) EnqueuePublish(ctx context.Context, launchPackID, channel string) error {
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}

	payload, err := json.Marshal(PublishTaskPayload{LaunchPackID: launchPackID, Channel: channel})
	if err != nil {
		return err
	}

	taskOptions := []asynq.Option{
		asynq.TaskID(fmt.Sprintf("%s:%s", launchPackID, channel)),
		asynq.Queue(cfg.Queue.PublishQueue),
		asynq.MaxRetry(5),
	}
	task := asynq.NewTask(cfg.Queue.PublishQueue, payload, taskOptions...)
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil // already queued for this channel
		}
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued publish: %s %s", launchPackID, channel)
	return nil
}
