package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/example/spinbook/internal/domain/booking"
)

type reporterFunc func(context.Context, booking.AttemptRecord) error

func (f reporterFunc) Record(ctx context.Context, rec booking.AttemptRecord) error { return f(ctx, rec) }

func TestMultiRecordsEverywhere(t *testing.T) {
	var calls []string
	diskFull := errors.New("disk full")
	m := Multi{
		reporterFunc(func(_ context.Context, rec booking.AttemptRecord) error {
			calls = append(calls, "file:"+rec.ID)
			return diskFull
		}),
		nil,
		reporterFunc(func(_ context.Context, rec booking.AttemptRecord) error {
			calls = append(calls, "db:"+rec.ID)
			return nil
		}),
	}

	err := m.Record(context.Background(), booking.AttemptRecord{ID: "r1"})
	assert.ErrorIs(t, err, diskFull)
	assert.Equal(t, []string{"file:r1", "db:r1"}, calls)

	assert.NoError(t, Multi{}.Record(context.Background(), booking.AttemptRecord{}))
}
