package agentx

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/MRT0B13/AgentX/config"
)

// SweepDuePublishes scans for LaunchPacks whose recorded schedule intent
// has entries due now and enqueues a publish task per pack and channel.
// The workers drain the queue; claim semantics make a duplicate enqueue
// harmless.
func (a *AgentX) SweepDuePublishes(ctx context.Context) error {
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	now := time.Now()

	due, err := a.datasource.FindDueTelegramPublishes(ctx, now, conf.Queue.SweepLimit)
	if err != nil {
		return err
	}
	for _, lp := range due {
		if err := a.queue.EnqueuePublish(ctx, lp.LaunchPackID, "telegram"); err != nil {
			logrus.Errorf("could not enqueue telegram publish for %s: %v", lp.LaunchPackID, err)
		}
	}

	due, err = a.datasource.FindDueXPublishes(ctx, now, conf.Queue.SweepLimit)
	if err != nil {
		return err
	}
	for _, lp := range due {
		if err := a.queue.EnqueuePublish(ctx, lp.LaunchPackID, "x"); err != nil {
			logrus.Errorf("could not enqueue x publish for %s: %v", lp.LaunchPackID, err)
		}
	}

	return nil
}
