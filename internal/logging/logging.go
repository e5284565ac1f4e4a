package logging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const logStamp = "20060102_150405"

// LogFilePath returns the per-run log file for appName, named after the
// time the run started.
func LogFilePath(logsDir, appName string, sessionStart time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", appName, sessionStart.Format(logStamp)))
}

// PruneLogs removes all but the newest keep run logs of appName from
// logsDir and returns the removed paths. Files that do not follow the
// LogFilePath naming are left alone. keep <= 0 disables pruning.
func PruneLogs(logsDir, appName string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(logsDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read logs dir: %w", err)
	}

	type runLog struct {
		path    string
		started time.Time
	}
	var logs []runLog
	prefix := appName + "."
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".log")
		started, err := time.Parse(logStamp, stamp)
		if err != nil {
			continue
		}
		logs = append(logs, runLog{path: filepath.Join(logsDir, name), started: started})
	}
	if len(logs) <= keep {
		return nil, nil
	}

	sort.Slice(logs, func(i, j int) bool { return logs[i].started.After(logs[j].started) })
	var removed []string
	var errs []error
	for _, l := range logs[keep:] {
		if err := os.Remove(l.path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, l.path)
	}
	return removed, errors.Join(errs...)
}
