package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/kalambet/tend/internal/schedule"
)

// Calendar dates (next_due, birthday) are stored as YYYY-MM-DD text;
// timestamps as RFC 3339. Lexicographic order matches chronological order
// for both, so SQL comparisons and ORDER BY work on the raw columns.

func formatDate(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(time.DateOnly, s)
}

func (s *Store) InsertContact(c Contact) error {
	var birthday sql.NullString
	if c.Birthday != nil {
		birthday = sql.NullString{String: formatDate(*c.Birthday), Valid: true}
	}
	_, err := s.db.Exec(`
		INSERT INTO contacts (id, owner_id, name, cadence, notes, birthday, next_due, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, string(c.Cadence), c.Notes, birthday,
		formatDate(c.NextDue), c.Version,
		c.CreatedAt.UTC().Format(time.RFC3339), c.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetContact(id, ownerID string) (Contact, error) {
	row := s.db.QueryRow(`
		SELECT id, owner_id, name, cadence, notes, birthday, next_due, version, created_at, updated_at
		FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	return scanContact(row)
}

// UpdateContactProfile writes name, cadence, notes and birthday, guarded by
// the version the caller read. It deliberately leaves next_due untouched:
// editing a contact never moves its schedule.
func (s *Store) UpdateContactProfile(c Contact, expectedVersion int64) error {
	var birthday sql.NullString
	if c.Birthday != nil {
		birthday = sql.NullString{String: formatDate(*c.Birthday), Valid: true}
	}
	res, err := s.db.Exec(`
		UPDATE contacts
		SET name = ?, cadence = ?, notes = ?, birthday = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?`,
		c.Name, string(c.Cadence), c.Notes, birthday,
		time.Now().UTC().Format(time.RFC3339),
		c.ID, c.OwnerID, expectedVersion,
	)
	if err != nil {
		return err
	}
	return s.checkVersionedWrite(res, c.ID, c.OwnerID)
}

// AdvanceContactSchedule sets next_due, guarded by the version the caller
// read. Exactly one of two racing writers with the same expectedVersion
// succeeds; the other gets ErrConflict.
func (s *Store) AdvanceContactSchedule(id, ownerID string, nextDue time.Time, expectedVersion int64) error {
	res, err := s.db.Exec(`
		UPDATE contacts
		SET next_due = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND owner_id = ? AND version = ?`,
		formatDate(nextDue), time.Now().UTC().Format(time.RFC3339),
		id, ownerID, expectedVersion,
	)
	if err != nil {
		return err
	}
	return s.checkVersionedWrite(res, id, ownerID)
}

// checkVersionedWrite distinguishes a missing row from a version mismatch
// after an UPDATE touched zero rows.
func (s *Store) checkVersionedWrite(res sql.Result, id, ownerID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID).Scan(&exists); err != nil {
		return fmt.Errorf("checking contact existence: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (s *Store) DeleteContact(id, ownerID string) error {
	res, err := s.db.Exec(`DELETE FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListContacts(ownerID string, opts ListOptions) ([]Contact, error) {
	query := `
		SELECT id, owner_id, name, cadence, notes, birthday, next_due, version, created_at, updated_at
		FROM contacts WHERE owner_id = ?`
	args := []any{ownerID}

	if !opts.DueOnOrBefore.IsZero() {
		query += ` AND next_due <= ?`
		args = append(args, formatDate(opts.DueOnOrBefore))
	}

	switch opts.Sort {
	case SortByNextDue:
		query += ` ORDER BY next_due ASC, name ASC`
	default:
		query += ` ORDER BY name ASC`
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, c)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContact(row rowScanner) (Contact, error) {
	var c Contact
	var cadence, nextDue, createdAt, updatedAt string
	var birthday sql.NullString
	err := row.Scan(&c.ID, &c.OwnerID, &c.Name, &cadence, &c.Notes, &birthday, &nextDue, &c.Version, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return Contact{}, ErrNotFound
	}
	if err != nil {
		return Contact{}, err
	}

	c.Cadence = schedule.Cadence(cadence)
	if c.NextDue, err = parseDate(nextDue); err != nil {
		return Contact{}, fmt.Errorf("parsing next_due: %w", err)
	}
	if birthday.Valid {
		b, err := parseDate(birthday.String)
		if err != nil {
			return Contact{}, fmt.Errorf("parsing birthday: %w", err)
		}
		c.Birthday = &b
	}
	if c.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return Contact{}, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = time.Parse(time.RFC3339, updatedAt); err != nil {
		return Contact{}, fmt.Errorf("parsing updated_at: %w", err)
	}
	return c, nil
}
