package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// InsertInteraction appends a check-in log entry. Interactions are
// immutable: there is no update or delete path through the engine.
func (s *Store) InsertInteraction(i Interaction) error {
	_, err := s.db.Exec(`
		INSERT INTO interactions (id, owner_id, contact_id, summary, occurred_at)
		VALUES (?, ?, ?, ?, ?)`,
		i.ID, i.OwnerID, i.ContactID, i.Summary, i.OccurredAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetInteraction(id, ownerID string) (Interaction, error) {
	var i Interaction
	var occurredAt string
	err := s.db.QueryRow(`
		SELECT id, owner_id, contact_id, summary, occurred_at
		FROM interactions WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&i.ID, &i.OwnerID, &i.ContactID, &i.Summary, &occurredAt)
	if err == sql.ErrNoRows {
		return Interaction{}, ErrNotFound
	}
	if err != nil {
		return Interaction{}, err
	}
	if i.OccurredAt, err = time.Parse(time.RFC3339, occurredAt); err != nil {
		return Interaction{}, fmt.Errorf("parsing occurred_at: %w", err)
	}
	return i, nil
}

// ListInteractions returns an owner's check-in history, most recent first.
// Pass an empty contactID to list across all contacts.
func (s *Store) ListInteractions(ownerID, contactID string, limit int) ([]Interaction, error) {
	query := `
		SELECT id, owner_id, contact_id, summary, occurred_at
		FROM interactions WHERE owner_id = ?`
	args := []any{ownerID}
	if contactID != "" {
		query += ` AND contact_id = ?`
		args = append(args, contactID)
	}
	query += ` ORDER BY occurred_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Interaction
	for rows.Next() {
		var i Interaction
		var occurredAt string
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.ContactID, &i.Summary, &occurredAt); err != nil {
			return nil, err
		}
		if i.OccurredAt, err = time.Parse(time.RFC3339, occurredAt); err != nil {
			return nil, fmt.Errorf("parsing occurred_at: %w", err)
		}
		results = append(results, i)
	}
	return results, rows.Err()
}
