package store

import (
	"context"
	"fmt"
	"time"
)

// Exclusions returns the ids of devices removed from the cycling rotation.
func (s *Store) Exclusions(ctx context.Context) (map[string]bool, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT device_id FROM rotation_exclusions`)
	if err != nil {
		return nil, fmt.Errorf("query exclusions: %w", err)
	}
	defer rows.Close()

	excluded := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan exclusion: %w", err)
		}
		excluded[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exclusions: %w", err)
	}
	return excluded, nil
}

// SetExcluded adds or removes a device from the exclusion set. The device name
// is stored only so listings stay readable after the device disappears.
func (s *Store) SetExcluded(ctx context.Context, id, name string, excluded bool) error {
	if !excluded {
		if _, err := s.execWithRetry(ctx, `DELETE FROM rotation_exclusions WHERE device_id = ?`, id); err != nil {
			return fmt.Errorf("include device %q: %w", id, err)
		}
		return nil
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO rotation_exclusions (device_id, device_name, updated_at) VALUES (?, ?, ?)
         ON CONFLICT(device_id) DO UPDATE SET device_name = excluded.device_name, updated_at = excluded.updated_at`,
		id, nullableString(name), formatTime(time.Now()),
	)
	if err != nil {
		return fmt.Errorf("exclude device %q: %w", id, err)
	}
	return nil
}
