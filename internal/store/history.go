package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Outcome summarizes how a switch attempt ended.
type Outcome string

const (
	OutcomeSwitched  Outcome = "switched"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
)

// historyKeep bounds the switch_history table.
const historyKeep = 1000

// SwitchRecord is one row of switch history.
type SwitchRecord struct {
	ID            int64
	RequestID     string
	Origin        string
	RequestedID   string
	RequestedName string
	PreviousID    string
	ResultID      string
	Outcome       Outcome
	ErrorKind     string
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// RecordSwitch appends a switch attempt and trims the table to the newest rows.
func (s *Store) RecordSwitch(ctx context.Context, rec SwitchRecord) error {
	if rec.RequestedID == "" {
		return fmt.Errorf("record switch: requested id is required")
	}
	if rec.FinishedAt.IsZero() {
		rec.FinishedAt = time.Now()
	}
	if rec.StartedAt.IsZero() {
		rec.StartedAt = rec.FinishedAt
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO switch_history (
            request_id, origin, requested_id, requested_name, previous_id, result_id,
            outcome, error_kind, error_message, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(rec.RequestID),
		nullableString(rec.Origin),
		rec.RequestedID,
		nullableString(rec.RequestedName),
		nullableString(rec.PreviousID),
		nullableString(rec.ResultID),
		string(rec.Outcome),
		nullableString(rec.ErrorKind),
		nullableString(rec.ErrorMessage),
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert switch history: %w", err)
	}
	if _, err := s.execWithRetry(ctx,
		`DELETE FROM switch_history WHERE id NOT IN (SELECT id FROM switch_history ORDER BY id DESC LIMIT ?)`,
		historyKeep,
	); err != nil {
		return fmt.Errorf("trim switch history: %w", err)
	}
	return nil
}

// History returns up to limit switch records, newest first.
func (s *Store) History(ctx context.Context, limit int) ([]SwitchRecord, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 || limit > historyKeep {
		limit = historyKeep
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, request_id, origin, requested_id, requested_name, previous_id, result_id,
                outcome, error_kind, error_message, started_at, finished_at
         FROM switch_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query switch history: %w", err)
	}
	defer rows.Close()

	var records []SwitchRecord
	for rows.Next() {
		var (
			rec                                                    SwitchRecord
			requestID, origin, requestedName, previousID, resultID sql.NullString
			errorKind, errorMessage                                sql.NullString
			outcome, startedAt, finishedAt                         string
		)
		if err := rows.Scan(&rec.ID, &requestID, &origin, &rec.RequestedID, &requestedName, &previousID,
			&resultID, &outcome, &errorKind, &errorMessage, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan switch history: %w", err)
		}
		rec.RequestID = requestID.String
		rec.Origin = origin.String
		rec.RequestedName = requestedName.String
		rec.PreviousID = previousID.String
		rec.ResultID = resultID.String
		rec.Outcome = Outcome(outcome)
		rec.ErrorKind = errorKind.String
		rec.ErrorMessage = errorMessage.String
		rec.StartedAt = parseTime(startedAt)
		rec.FinishedAt = parseTime(finishedAt)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate switch history: %w", err)
	}
	return records, nil
}

// Stats reports row counts for status output.
type Stats struct {
	Exclusions int
	History    int
}

// Stats counts stored preferences and history rows.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	var stats Stats
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM rotation_exclusions`).Scan(&stats.Exclusions); err != nil {
		return Stats{}, fmt.Errorf("count exclusions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM switch_history`).Scan(&stats.History); err != nil {
		return Stats{}, fmt.Errorf("count switch history: %w", err)
	}
	return stats, nil
}
