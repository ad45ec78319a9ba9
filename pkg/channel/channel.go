// Package channel defines the operator channels that start workflow runs.
package channel

import (
	"context"
	"errors"

	"draftflow/pkg/bus"
)

// ErrStopRequested is returned by an adapter whose operator asked the daemon
// to shut down.
var ErrStopRequested = errors.New("stop requested by operator")

// Handler runs the workflow for one operator trigger and returns the reply
// to send back.
type Handler func(context.Context, bus.Trigger) (bus.Reply, error)

// Adapter bridges one operator transport (stdin, Telegram) to the runner.
type Adapter interface {
	Name() string
	Run(context.Context, Handler) error
}
