package state

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tgoodwin/scribe/pkg/models"
)

// Run is one persisted orchestration run.
type Run struct {
	ID        string                      `json:"id"`
	Request   string                      `json:"request"`
	Script    string                      `json:"script"`
	Success   bool                        `json:"success"`
	Metrics   models.OrchestrationMetrics `json:"metrics"`
	Errors    []string                    `json:"errors,omitempty"`
	Warnings  []string                    `json:"warnings,omitempty"`
	CreatedAt time.Time                   `json:"created_at"`
}

// SaveRun records one orchestration result.
func (db *DB) SaveRun(result *models.OrchestrationResult) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = db.conn.Exec(`
		INSERT INTO runs (id, request, script, success, subtask_count, commands_found,
			decomposition_ms, search_ms, assembly_ms, total_ms, estimated_cost,
			errors, warnings, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		result.RunID,
		result.Request,
		result.Script,
		boolToInt(result.Success),
		result.Metrics.SubTaskCount,
		result.Metrics.TotalCommandsFound,
		result.Metrics.DecompositionTime.Milliseconds(),
		result.Metrics.SearchTime.Milliseconds(),
		result.Metrics.AssemblyTime.Milliseconds(),
		result.Metrics.TotalTime.Milliseconds(),
		result.Metrics.EstimatedCost,
		string(errorsJSON),
		string(warningsJSON),
		result.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	return nil
}

// GetRun returns the run with the given id, or nil if not found.
func (db *DB) GetRun(id string) (*Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	row := db.conn.QueryRow(`
		SELECT id, request, script, success, subtask_count, commands_found,
			decomposition_ms, search_ms, assembly_ms, total_ms, estimated_cost,
			errors, warnings, created_at
		FROM runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(limit int) ([]*Run, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := db.conn.Query(`
		SELECT id, request, script, success, subtask_count, commands_found,
			decomposition_ms, search_ms, assembly_ms, total_ms, estimated_cost,
			errors, warnings, created_at
		FROM runs ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run          Run
		success      int
		decompMs     int64
		searchMs     int64
		assemblyMs   int64
		totalMs      int64
		errorsJSON   string
		warningsJSON string
		createdAt    string
	)

	if err := s.Scan(
		&run.ID, &run.Request, &run.Script, &success,
		&run.Metrics.SubTaskCount, &run.Metrics.TotalCommandsFound,
		&decompMs, &searchMs, &assemblyMs, &totalMs,
		&run.Metrics.EstimatedCost,
		&errorsJSON, &warningsJSON, &createdAt,
	); err != nil {
		return nil, err
	}

	run.Success = success != 0
	run.Metrics.DecompositionTime = time.Duration(decompMs) * time.Millisecond
	run.Metrics.SearchTime = time.Duration(searchMs) * time.Millisecond
	run.Metrics.AssemblyTime = time.Duration(assemblyMs) * time.Millisecond
	run.Metrics.TotalTime = time.Duration(totalMs) * time.Millisecond

	if errorsJSON != "" {
		if err := json.Unmarshal([]byte(errorsJSON), &run.Errors); err != nil {
			return nil, fmt.Errorf("unmarshal errors: %w", err)
		}
	}
	if warningsJSON != "" {
		if err := json.Unmarshal([]byte(warningsJSON), &run.Warnings); err != nil {
			return nil, fmt.Errorf("unmarshal warnings: %w", err)
		}
	}

	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = t

	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
