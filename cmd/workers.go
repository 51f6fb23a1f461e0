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

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	agentx "github.com/MRT0B13/AgentX"
	"github.com/MRT0B13/AgentX/config"
	"github.com/MRT0B13/AgentX/internal/apierror"
	redis_db "github.com/MRT0B13/AgentX/internal/redis-db"
)

const sweepTaskName = "sweep:due-publishes"

// processPublish executes one queued publish task. Outcomes that reflect a
// stable decision (slot held elsewhere, cooldown, channel disabled or not
// ready, already published) are terminal for the task, not retried.
func (b *agentxInstance) processPublish(ctx context.Context, t *asynq.Task) error {
	var payload agentx.PublishTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.Error(err)
		return err
	}

	var err error
	switch payload.Channel {
	case "x":
		_, err = b.agentx.PublishX(ctx, payload.LaunchPackID, false)
	default:
		_, err = b.agentx.PublishTelegram(ctx, payload.LaunchPackID, false)
	}
	if err != nil {
		var apiErr apierror.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.Code {
			case apierror.ErrTelegramPublishInProgress, apierror.ErrXPublishInProgress,
				apierror.ErrTelegramRetryBlocked, apierror.ErrXRetryBlocked,
				apierror.ErrTelegramDisabled, apierror.ErrXDisabled,
				apierror.ErrTelegramNotReady, apierror.ErrXNotReady:
				logrus.Infof("skipping publish %s %s: %s", payload.LaunchPackID, payload.Channel, apiErr.Code)
				return nil
			}
		}
		logrus.Infof("publish %s %s pushed back for retry: %v", payload.LaunchPackID, payload.Channel, err)
		return err
	}

	log.Println(" [*] Publish Processed", payload.LaunchPackID, payload.Channel)
	return nil
}

// processSweep scans for due schedule intents and enqueues publish tasks.
func (b *agentxInstance) processSweep(ctx context.Context, _ *asynq.Task) error {
	return b.agentx.SweepDuePublishes(ctx)
}

func initializeQueues() map[string]int {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return nil
	}

	queues := make(map[string]int)
	queues[cfg.Queue.PublishQueue] = 3
	queues[sweepTaskName] = 1
	return queues
}

func workerRedisOpt(conf *config.Configuration) (asynq.RedisClientOpt, error) {
	redisOption, err := redis_db.ParseRedisURL(fmt.Sprintf("redis://%s", conf.Redis.Dns))
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	return asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB}, nil
}

func initializeWorkerServer(conf *config.Configuration, queues map[string]int) (*asynq.Server, error) {
	opt, err := workerRedisOpt(conf)
	if err != nil {
		return nil, err
	}

	return asynq.NewServer(opt, asynq.Config{
		Concurrency: 1,
		Queues:      queues,
	}), nil
}

// initializeScheduler registers the periodic due-publish sweep on the
// configured cron expression.
func initializeScheduler(conf *config.Configuration) (*asynq.Scheduler, error) {
	opt, err := workerRedisOpt(conf)
	if err != nil {
		return nil, err
	}

	scheduler := asynq.NewScheduler(opt, nil)
	task := asynq.NewTask(sweepTaskName, nil, asynq.Queue(sweepTaskName))
	if _, err := scheduler.Register(conf.Queue.SweepCron, task); err != nil {
		return nil, err
	}
	return scheduler, nil
}

func initializeTaskHandlers(b *agentxInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	mux.HandleFunc(cfg.Queue.PublishQueue, b.processPublish)
	mux.HandleFunc(sweepTaskName, b.processSweep)
}

// workerCommands defines the "workers" command to start the publish worker
// and the sweep scheduler.
func workerCommands(b *agentxInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start agentx workers",
		Run: func(cmd *cobra.Command, args []string) {
			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			queues := initializeQueues()

			srv, err := initializeWorkerServer(conf, queues)
			if err != nil {
				log.Fatal(err)
			}

			scheduler, err := initializeScheduler(conf)
			if err != nil {
				log.Fatal(err)
			}
			go func() {
				if err := scheduler.Run(); err != nil {
					log.Fatal("Error running scheduler:", err)
				}
			}()

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			if err := srv.Run(mux); err != nil {
				log.Fatal("Error running worker server:", err)
			}
		},
	}

	return cmd
}
