// Package report fans an attempt record out to several sinks.
package report

import (
	"context"
	"errors"

	"github.com/example/spinbook/internal/domain/booking"
)

// Multi records to every reporter, even after one fails.
type Multi []booking.Reporter

func (m Multi) Record(ctx context.Context, rec booking.AttemptRecord) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
