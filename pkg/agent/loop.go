package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"draftflow/pkg/bus"
	"draftflow/pkg/workflow"
)

// ChannelGmailPoll names triggers raised by PollGmail.
const ChannelGmailPoll = "gmail_poll"

// Run consumes queued triggers until ctx is done or the bus closes, executing
// up to the configured number of runs concurrently. It waits for in-flight
// runs before returning.
func (i *Instance) Run(ctx context.Context) error {
	if i.bus == nil {
		return errors.New("no trigger queue configured")
	}

	i.looping.Store(true)
	defer i.looping.Store(false)

	slots := make(chan struct{}, i.maxConcurrent)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		trigger, ok := i.bus.ConsumeTrigger(ctx)
		if !ok {
			return nil
		}

		select {
		case slots <- struct{}{}:
		case <-ctx.Done():
			i.deliver(trigger.ID, runResult{err: ctx.Err()})
			return nil
		}

		wg.Go(func() {
			defer func() { <-slots }()
			run, err := i.Execute(ctx, trigger)
			i.deliver(trigger.ID, runResult{run: run, err: err})
		})
	}
}

// Running reports whether the worker loop is consuming triggers.
func (i *Instance) Running() bool {
	return i.looping.Load()
}

// PollGmail checks the mailbox immediately and then every interval until ctx
// is done. Each check waits for its run, so checks never overlap. Failed
// checks are logged and polling continues.
func (i *Instance) PollGmail(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return errors.New("poll interval must be greater than zero")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := i.log.With("interval", interval.String())
	log.Info("Gmail polling started")

	for {
		log.Debug("Checking Gmail")
		if _, err := i.Submit(ctx, bus.Trigger{Mode: string(workflow.ModeGmail), Channel: ChannelGmailPoll}); err != nil && ctx.Err() == nil {
			log.Warn("Gmail check failed", "error", err)
		}

		select {
		case <-ctx.Done():
			log.Info("Gmail polling stopped")
			return nil
		case <-ticker.C:
		}
	}
}
