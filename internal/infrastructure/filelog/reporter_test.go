package filelog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/spinbook/internal/domain/booking"
)

func sample() booking.AttemptRecord {
	return booking.AttemptRecord{
		ID:        "3f2a",
		Timestamp: time.Date(2026, 10, 12, 13, 0, 1, 0, time.FixedZone("BST", 3600)),
		Location:  "Downtown",
		Session:   "18:00 Spin",
		Seat:      "Bike 5",
		Outcome:   booking.OutcomeSuccess,
		Detail:    "booked Bike 5",
		Duration:  2 * time.Second,
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "20261012T120001Z_bike-5_success.json", FileName(sample()))

	rec := sample()
	rec.Seat = "  Row A / Seat #12 "
	rec.Outcome = booking.OutcomeSeatUnavailable
	assert.Equal(t, "20261012T120001Z_row-a-seat-12_seat_unavailable.json", FileName(rec))

	rec.Seat = ""
	assert.Contains(t, FileName(rec), "_none_")
}

func TestRecordWritesOnce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "attempts")
	r := New(dir)
	rec := sample()

	require.NoError(t, r.Record(context.Background(), rec))
	data, err := os.ReadFile(filepath.Join(dir, FileName(rec)))
	require.NoError(t, err)
	var got booking.AttemptRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, rec.Seat, got.Seat)
	assert.Equal(t, rec.Outcome, got.Outcome)
	assert.True(t, rec.Timestamp.Equal(got.Timestamp))

	// Same second, different run: the first file is left alone.
	second := rec
	second.ID = "9c1d"
	second.Detail = "second run"
	require.NoError(t, r.Record(context.Background(), second))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	again, err := os.ReadFile(filepath.Join(dir, FileName(rec)))
	require.NoError(t, err)
	assert.Equal(t, data, again)
	_, err = os.Stat(filepath.Join(dir, "20261012T120001Z_bike-5_success_9c1d.json"))
	assert.NoError(t, err)
}

func TestRecordCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New(t.TempDir()).Record(ctx, sample()), context.Canceled)
}

func TestListNewestFirst(t *testing.T) {
	r := New(t.TempDir())
	base := sample()
	for i, seat := range []string{"Bike 1", "Bike 2", "Bike 3"} {
		rec := base
		rec.ID = seat
		rec.Seat = seat
		rec.Timestamp = base.Timestamp.Add(time.Duration(i) * time.Minute)
		require.NoError(t, r.Record(context.Background(), rec))
	}

	got, err := r.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Bike 3", got[0].Seat)
	assert.Equal(t, "Bike 2", got[1].Seat)

	empty, err := New(filepath.Join(t.TempDir(), "nothing")).List(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
