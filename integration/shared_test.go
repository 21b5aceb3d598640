//go:build basic || database

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a backupwatch binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// Fixture window: one late backup and one overfilled pool.
const (
	fixtureStart = "2024-03-01T00:00:00Z"
	fixtureStop  = "2024-03-01T20:00:00Z"
)

var fixtureDDL = []string{
	`CREATE TABLE results (
		uuid VARCHAR(64), saveset VARCHAR(64), task VARCHAR(64), task_uuid VARCHAR(64),
		fdi_type VARCHAR(8), is_backup INTEGER, subtask_flag INTEGER, schedule VARCHAR(64),
		start_time VARCHAR(32), data_size BIGINT
	)`,
	`CREATE TABLE schedules (
		name VARCHAR(64), p_base VARCHAR(8), p_count INTEGER, start_time VARCHAR(8),
		mo INTEGER, tu INTEGER, we INTEGER, th INTEGER, fr INTEGER, sa INTEGER, su INTEGER
	)`,
	`CREATE TABLE task_events (id VARCHAR(64), name VARCHAR(64), object VARCHAR(64), schedule VARCHAR(64))`,
	`CREATE TABLE data_stores (
		name VARCHAR(64), uuid VARCHAR(64), capacity DOUBLE PRECISION,
		high_water_mark DOUBLE PRECISION, filled DOUBLE PRECISION, stored DOUBLE PRECISION
	)`,
}

var fixtureRows = []string{
	`INSERT INTO results VALUES ('db1', 'ss1', 'db', 't1', 'F', 1, 0, 'three-hourly', '2024-03-01 12:00:00', 100000000)`,
	`INSERT INTO results VALUES ('db2', 'ss2', 'db', 't1', 'F', 1, 0, 'three-hourly', '2024-03-01 15:30:00', 110000000)`,
	`INSERT INTO results VALUES ('db3', 'ss3', 'db', 't1', 'F', 1, 0, 'three-hourly', '2024-03-01 18:00:00', 105000000)`,
	`INSERT INTO schedules VALUES ('three-hourly', 'HOU', 3, NULL, 1, 1, 1, 1, 1, 1, 1)`,
	`INSERT INTO task_events VALUES ('e1', 'backup db', 'db', 'three-hourly')`,
	`INSERT INTO data_stores VALUES ('pool-a', 'p1', 100, 80, 95, 90)`,
	`INSERT INTO data_stores VALUES ('pool-b', 'p2', 100, 80, 10, 5)`,
}

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	// Run all tests
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the backupwatch binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "backupwatch-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binPath := filepath.Join(tempDir, "backupwatch")
		buildCmd := exec.Command("go", "build", "-o", binPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build backupwatch: %v", err))
		}

		sharedBinaryPath = binPath
	})

	return sharedBinaryPath
}

// seedMetadata creates the metadata tables and loads the fixture.
func seedMetadata(t *testing.T, db *sql.DB) {
	t.Helper()
	ctx := context.Background()
	for _, stmt := range append(append([]string{}, fixtureDDL...), fixtureRows...) {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
}

// runBackupwatch runs the binary with extra environment and returns stdout.
func runBackupwatch(t *testing.T, env map[string]string, args ...string) ([]byte, error) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = t.TempDir()
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	var stderr []byte
	output, err := cmd.Output()
	if exitErr, ok := err.(*exec.ExitError); ok {
		stderr = exitErr.Stderr
	}
	if err != nil {
		t.Logf("Command failed: %s\nOutput: %s\nStderr: %s", cmd.String(), string(output), string(stderr))
	}
	return output, err
}

// analysisOutput is the subset of the JSON result the tests check.
type analysisOutput struct {
	Analysis string `json:"analysis"`
	Count    int    `json:"count"`
	Alerts   []struct {
		Kind     string `json:"kind"`
		Task     string `json:"task"`
		BackupID string `json:"backupId"`
	} `json:"alerts"`
}

func decodeAnalysis(t *testing.T, data []byte) analysisOutput {
	t.Helper()
	var out analysisOutput
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

// checkFixtureAnalyses runs the schedule and storage analyses in dry-run mode
// and asserts the alerts the fixture produces.
func checkFixtureAnalyses(t *testing.T, env map[string]string) {
	t.Helper()
	out, err := runBackupwatch(t, env, "schedule", "--dry-run", "--output", "json", "--limit", "-1",
		"--start", fixtureStart, "--stop", fixtureStop)
	require.NoError(t, err)
	sched := decodeAnalysis(t, out)
	require.Equal(t, 1, sched.Count)
	require.Equal(t, "CREATION_DATE_ALERT", sched.Alerts[0].Kind)

	out, err = runBackupwatch(t, env, "storage", "--dry-run", "--output", "json")
	require.NoError(t, err)
	storage := decodeAnalysis(t, out)
	require.Equal(t, 1, storage.Count)
	require.Equal(t, "pool-a", storage.Alerts[0].Task)
}
