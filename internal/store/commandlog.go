package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Command log statuses.
const (
	CommandOK     = "success"
	CommandFailed = "error"
)

// CommandLogEntry is one dispatched command.
type CommandLogEntry struct {
	ID        int64          `json:"id"`
	Command   string         `json:"command"`
	Params    map[string]any `json:"params"`
	Status    string         `json:"status"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// RecordCommand appends a dispatch outcome to the command log.
func (s *Store) RecordCommand(ctx context.Context, entry CommandLogEntry) error {
	params := "{}"
	if len(entry.Params) > 0 {
		raw, err := json.Marshal(entry.Params)
		if err == nil {
			params = string(raw)
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO command_log (command, params, status, error, duration_ms)
		VALUES (?, ?, ?, ?, ?);
	`, entry.Command, params, entry.Status, entry.Error, entry.Duration.Milliseconds())
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// CommandCounts holds aggregate dispatch counters.
type CommandCounts struct {
	Executed int64 `json:"executed"`
	Failed   int64 `json:"failed"`
}

// TotalCommandCounts returns executed/failed totals across the log.
func (s *Store) TotalCommandCounts(ctx context.Context) (CommandCounts, error) {
	var c CommandCounts
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM command_log;
	`, CommandOK, CommandFailed).Scan(&c.Executed, &c.Failed)
	if err != nil {
		return CommandCounts{}, fmt.Errorf("command counts: %w", err)
	}
	return c, nil
}

// CommandBreakdown returns per-command executed/failed counts.
func (s *Store) CommandBreakdown(ctx context.Context) (map[string]CommandCounts, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT command,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		FROM command_log GROUP BY command;
	`, CommandOK, CommandFailed)
	if err != nil {
		return nil, fmt.Errorf("command breakdown: %w", err)
	}
	defer rows.Close()

	out := make(map[string]CommandCounts)
	for rows.Next() {
		var command string
		var c CommandCounts
		if err := rows.Scan(&command, &c.Executed, &c.Failed); err != nil {
			return nil, fmt.Errorf("scan breakdown: %w", err)
		}
		out[command] = c
	}
	return out, rows.Err()
}
