package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/spinbook/internal/domain/booking"
	"github.com/example/spinbook/internal/infrastructure/filelog"
	"github.com/example/spinbook/internal/observability"
)

type testEnv struct {
	dir       string
	reportDir string
	cfgFile   string
}

// newTestEnv writes a config whose window opens on day. Credentials come
// from TEST_SPINBOOK_* so the developer's own environment never leaks in.
func newTestEnv(t *testing.T, day time.Weekday) *testEnv {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	dir := t.TempDir()
	env := &testEnv{dir: dir, reportDir: filepath.Join(dir, "attempts"), cfgFile: filepath.Join(dir, "config.yaml")}
	doc := fmt.Sprintf(`
booking:
  day: %s
  start: "00:00"
  end: "23:59"
  timezone: UTC
  location: Downtown
  session:
    id: "18:00 Spin"
  seats: ["Bike 3", "Bike 5"]
site:
  login_url: https://studio.test/login
logger:
  level: error
  log_file: ""
report:
  dir: %s
credentials:
  email_env: TEST_SPINBOOK_EMAIL
  password_env: TEST_SPINBOOK_PASSWORD
  env_file: %s
`, strings.ToLower(day.String()), env.reportDir, filepath.Join(dir, "absent.env"))
	require.NoError(t, os.WriteFile(env.cfgFile, []byte(doc), 0o600))
	return env
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return booking.ExitSuccess
	}
	var exit *ExitError
	require.ErrorAs(t, err, &exit)
	return exit.Code
}

func TestVersionCmd(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "spinbook dev (commit=none, built=unknown)\n", out)
}

func TestWindowCmd(t *testing.T) {
	env := newTestEnv(t, time.Monday)

	out, err := execute(t, "window", "-c", env.cfgFile, "--at", "2026-10-12T08:30:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Window: Monday 00:00-23:59 UTC")
	assert.Contains(t, out, "Open:   yes")

	out, err = execute(t, "window", "-c", env.cfgFile, "--at", "2026-10-14T08:30:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "Open:   no")
	assert.Contains(t, out, "Next:   2026-10-19T00:00:00Z")

	_, err = execute(t, "window", "-c", env.cfgFile, "--at", "yesterday")
	assert.Equal(t, booking.ExitUsage, exitCode(t, err))
}

func TestMissingConfigFileIsUsageError(t *testing.T) {
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	_, err := execute(t, "window", "-c", filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Equal(t, booking.ExitUsage, exitCode(t, err))
}

func TestRunMissingCredentials(t *testing.T) {
	env := newTestEnv(t, time.Now().UTC().Weekday())
	t.Setenv("TEST_SPINBOOK_EMAIL", "")
	t.Setenv("TEST_SPINBOOK_PASSWORD", "")

	_, err := execute(t, "run", "--no-wait", "-c", env.cfgFile)

	assert.Equal(t, booking.ExitUsage, exitCode(t, err))
	assert.ErrorContains(t, err, "TEST_SPINBOOK_EMAIL and TEST_SPINBOOK_PASSWORD is required")
	assert.NoDirExists(t, env.reportDir)
}

func TestRunNoWaitWindowClosed(t *testing.T) {
	closed := (time.Now().UTC().Weekday() + 3) % 7
	env := newTestEnv(t, closed)
	t.Setenv("TEST_SPINBOOK_EMAIL", "rider@example.com")
	t.Setenv("TEST_SPINBOOK_PASSWORD", "hunter2")

	out, err := execute(t, "run", "--no-wait", "-c", env.cfgFile)

	assert.Equal(t, booking.ExitNotYetOpen, exitCode(t, err))
	assert.Contains(t, out, string(booking.OutcomeNotYetOpen))
	assert.NotContains(t, out, "hunter2")

	recs, err := filelog.New(env.reportDir).List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, booking.OutcomeNotYetOpen, recs[0].Outcome)
	assert.Equal(t, "Downtown", recs[0].Location)
	assert.Equal(t, "Bike 3", recs[0].Seat)
}

func TestRunInvalidConfig(t *testing.T) {
	env := newTestEnv(t, time.Monday)
	data, err := os.ReadFile(env.cfgFile)
	require.NoError(t, err)
	broken := strings.Replace(string(data), `seats: ["Bike 3", "Bike 5"]`, "seats: []", 1)
	require.NoError(t, os.WriteFile(env.cfgFile, []byte(broken), 0o600))

	_, err = execute(t, "run", "-c", env.cfgFile)
	assert.Equal(t, booking.ExitUsage, exitCode(t, err))
	assert.ErrorContains(t, err, "at least one seat")
}

func TestAttemptsList(t *testing.T) {
	env := newTestEnv(t, time.Monday)
	rep := filelog.New(env.reportDir)
	base := time.Date(2026, 10, 12, 12, 0, 1, 0, time.UTC)
	require.NoError(t, rep.Record(context.Background(), booking.AttemptRecord{
		ID: "a", Timestamp: base, Location: "Downtown", Session: "18:00 Spin", Seat: "Bike 3",
		Outcome: booking.OutcomeSeatUnavailable, Detail: "all taken", Duration: 1500 * time.Millisecond,
	}))
	require.NoError(t, rep.Record(context.Background(), booking.AttemptRecord{
		ID: "b", Timestamp: base.Add(7 * 24 * time.Hour), Location: "Downtown", Session: "18:00 Spin", Seat: "Bike 5",
		Outcome: booking.OutcomeSuccess, Detail: "booked Bike 5", Duration: 2 * time.Second,
	}))

	t.Run("table", func(t *testing.T) {
		out, err := execute(t, "attempts", "list", "-c", env.cfgFile)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "TIME"))
		assert.Contains(t, lines[1], "Bike 5")
		assert.Contains(t, lines[2], "seat_unavailable")
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "attempts", "list", "-c", env.cfgFile, "-o", "json", "-n", "1")
		require.NoError(t, err)
		var recs []booking.AttemptRecord
		require.NoError(t, json.Unmarshal([]byte(out), &recs))
		require.Len(t, recs, 1)
		assert.Equal(t, "b", recs[0].ID)
	})

	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "attempts", "list", "-c", env.cfgFile, "--format", "yaml")
		require.NoError(t, err)
		assert.Contains(t, out, "outcome: success")
		assert.Contains(t, out, "outcome: seat_unavailable")
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := execute(t, "attempts", "list", "-c", env.cfgFile, "-o", "xml")
		assert.Equal(t, booking.ExitUsage, exitCode(t, err))
	})
}

func TestAttemptsListEmpty(t *testing.T) {
	env := newTestEnv(t, time.Monday)
	out, err := execute(t, "attempts", "list", "-c", env.cfgFile)
	require.NoError(t, err)
	assert.Equal(t, "No attempts recorded.\n", out)
}

func TestMigrateRequiresDatabase(t *testing.T) {
	env := newTestEnv(t, time.Monday)
	_, err := execute(t, "migrate", "-c", env.cfgFile)
	assert.Equal(t, booking.ExitUsage, exitCode(t, err))
	assert.ErrorContains(t, err, "database.url is required")
}
