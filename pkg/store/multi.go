package store

import (
	"context"
	"errors"
	"time"

	"draftflow/pkg/workflow"
)

// Multi saves each result to every sink and joins their errors.
type Multi []workflow.Sink

func (m Multi) Save(ctx context.Context, result workflow.Result, at time.Time) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.Save(ctx, result, at); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
