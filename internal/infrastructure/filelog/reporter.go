// Package filelog writes one JSON file per booking attempt.
package filelog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/example/spinbook/internal/domain/booking"
)

// TimestampLayout is ISO-8601 basic format, which sorts lexically.
const TimestampLayout = "20060102T150405Z"

type Reporter struct {
	Dir string
}

var _ booking.Reporter = (*Reporter)(nil)

func New(dir string) *Reporter { return &Reporter{Dir: dir} }

// FileName is <timestamp>_<seat>_<outcome>.json.
func FileName(rec booking.AttemptRecord) string {
	return fmt.Sprintf("%s_%s_%s.json", rec.Timestamp.UTC().Format(TimestampLayout), slug(rec.Seat), rec.Outcome)
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "none"
	}
	return out
}

// Record never overwrites an existing file. Two runs in the same second get
// the run id appended to the second name.
func (r *Reporter) Record(ctx context.Context, rec booking.AttemptRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode attempt: %w", err)
	}
	data = append(data, '\n')

	name := FileName(rec)
	err = writeOnce(filepath.Join(r.Dir, name), data)
	if errors.Is(err, fs.ErrExist) && rec.ID != "" {
		name = strings.TrimSuffix(name, ".json") + "_" + slug(rec.ID) + ".json"
		err = writeOnce(filepath.Join(r.Dir, name), data)
	}
	if err != nil {
		return fmt.Errorf("write attempt %s: %w", name, err)
	}
	return nil
}

func writeOnce(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List reads back the newest limit records. File names sort by time, so no
// file needs decoding beyond the ones returned.
func (r *Reporter) List(ctx context.Context, limit int) ([]booking.AttemptRecord, error) {
	names, err := filepath.Glob(filepath.Join(r.Dir, "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}

	out := make([]booking.AttemptRecord, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		var rec booking.AttemptRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode %s: %w", filepath.Base(name), err)
		}
		out = append(out, rec)
	}
	return out, nil
}
