package store

import "time"

// AppendEvent journals a received stream event.
func (db *DB) AppendEvent(eventType, instance, payload string) error {
	_, err := db.Exec(`
		INSERT INTO event_log (type, instance, payload, received_at)
		VALUES (?, ?, ?, ?)`,
		eventType, instance, payload, time.Now().UnixMilli())
	return err
}

// RecentEvents returns the newest events first.
func (db *DB) RecentEvents(limit int) ([]EventLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`
		SELECT id, type, instance, payload, received_at
		FROM event_log
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []EventLogEntry
	for rows.Next() {
		var e EventLogEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Instance, &e.Payload, &e.ReceivedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEventsByType aggregates the journal, e.g. for the status command.
func (db *DB) CountEventsByType() (map[string]int, error) {
	rows, err := db.Query(`SELECT type, COUNT(*) FROM event_log GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var typ string
		var n int
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, err
		}
		counts[typ] = n
	}
	return counts, rows.Err()
}

// PruneEvents keeps the newest `keep` rows and returns how many were deleted.
func (db *DB) PruneEvents(keep int) (int64, error) {
	res, err := db.Exec(`
		DELETE FROM event_log
		WHERE id NOT IN (SELECT id FROM event_log ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
