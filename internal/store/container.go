package store

import (
	"database/sql"
	"fmt"

	"github.com/listpal/listpal/internal/model"
)

// ContainerStore holds per-(user, kind) containers and their ListRef
// projections. The bulk methods are the projection-maintenance primitive:
// one batched statement per fan-out, never N single-row writes.
type ContainerStore struct {
	db *sql.DB
}

func NewContainerStore(db *sql.DB) *ContainerStore {
	return &ContainerStore{db: db}
}

func scanContainer(scanner interface{ Scan(...any) error }) (*model.Container, error) {
	var c model.Container
	err := scanner.Scan(&c.ID, &c.OwnerUsername, &c.Kind, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func scanRef(scanner interface{ Scan(...any) error }) (*model.ListRef, error) {
	var r model.ListRef
	err := scanner.Scan(&r.ListID, &r.ListName, &r.Scope, &r.Reference, &r.Order)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

const containerCols = `id, owner_username, kind, created_at`
const refCols = `list_id, list_name, scope, reference, position`

// Create inserts the container for a user and kind, deriving its stable id.
func (s *ContainerStore) Create(username string, kind model.Kind) (*model.Container, error) {
	id := model.ContainerID(username, kind)
	_, err := s.db.Exec(
		`INSERT INTO containers (id, owner_username, kind) VALUES (?, ?, ?)`,
		id, username, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("insert container: %w", err)
	}
	return s.GetByID(id)
}

// GetByID loads a container with its refs in order. Returns (nil, nil) when
// no container matches.
func (s *ContainerStore) GetByID(id string) (*model.Container, error) {
	row := s.db.QueryRow(`SELECT `+containerCols+` FROM containers WHERE id = ?`, id)
	c, err := scanContainer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get container: %w", err)
	}

	rows, err := s.db.Query(`SELECT `+refCols+` FROM container_refs WHERE container_id = ? ORDER BY position ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		r, err := scanRef(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ref: %w", err)
		}
		c.Refs = append(c.Refs, *r)
	}
	return c, rows.Err()
}

func (s *ContainerStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM containers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete container: %w", err)
	}
	return nil
}

// AddRef appends a ref to the container. Adding a ref for a list id the
// container already holds is a no-op (addToSet semantics).
func (s *ContainerStore) AddRef(containerID string, ref model.ListRef) error {
	_, err := s.db.Exec(
		`INSERT OR IGNORE INTO container_refs (container_id, list_id, list_name, scope, reference, position)
		 VALUES (?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM container_refs WHERE container_id = ?))`,
		containerID, ref.ListID, ref.ListName, ref.Scope, ref.Reference, containerID,
	)
	if err != nil {
		return fmt.Errorf("add ref: %w", err)
	}
	return nil
}

// RemoveRefByID drops the ref for a list id regardless of its denormalized
// fields. Removing an absent ref is a no-op.
func (s *ContainerStore) RemoveRefByID(containerID, listID string) error {
	_, err := s.db.Exec(`DELETE FROM container_refs WHERE container_id = ? AND list_id = ?`, containerID, listID)
	if err != nil {
		return fmt.Errorf("remove ref: %w", err)
	}
	return nil
}

// ReorderRefs replaces the container's ref ordering with the given list id
// sequence. Ids the container does not currently hold are rejected before
// anything is written.
func (s *ContainerStore) ReorderRefs(containerID string, listIDs []string) error {
	existing := make(map[string]bool)
	rows, err := s.db.Query(`SELECT list_id FROM container_refs WHERE container_id = ?`, containerID)
	if err != nil {
		return fmt.Errorf("list refs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("scan ref id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range listIDs {
		if !existing[id] {
			return fmt.Errorf("unknown list id in ordering: %s", id)
		}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()
	for i, id := range listIDs {
		if _, err := tx.Exec(`UPDATE container_refs SET position = ? WHERE container_id = ? AND list_id = ?`, i, containerID, id); err != nil {
			return fmt.Errorf("reorder ref: %w", err)
		}
	}
	return tx.Commit()
}

// BulkUpsertRef inserts one ref into every container of the given kind owned
// by one of the usernames, as a single batched write. Containers that already
// hold a ref for the list are untouched.
func (s *ContainerStore) BulkUpsertRef(usernames []string, kind model.Kind, ref model.ListRef) (int64, error) {
	if len(usernames) == 0 {
		return 0, nil
	}
	args := []any{ref.ListID, ref.ListName, ref.Scope, ref.Reference, kind}
	args = append(args, toAnys(usernames)...)
	result, err := s.db.Exec(
		`INSERT OR IGNORE INTO container_refs (container_id, list_id, list_name, scope, reference, position)
		 SELECT c.id, ?, ?, ?, ?,
		        (SELECT COALESCE(MAX(r.position) + 1, 0) FROM container_refs r WHERE r.container_id = c.id)
		 FROM containers c
		 WHERE c.kind = ? AND c.owner_username IN (`+placeholders(len(usernames))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk upsert ref: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// BulkRemoveRef pulls one ref from every container of the given kind owned by
// one of the usernames, matching by structural equality of (list id, name,
// scope) as they were read. A concurrent rename between the read and this
// write can strand a ref; callers tolerate refs that 404 on dereference.
func (s *ContainerStore) BulkRemoveRef(usernames []string, kind model.Kind, ref model.ListRef) (int64, error) {
	if len(usernames) == 0 {
		return 0, nil
	}
	args := []any{ref.ListID, ref.ListName, ref.Scope, kind}
	args = append(args, toAnys(usernames)...)
	result, err := s.db.Exec(
		`DELETE FROM container_refs
		 WHERE list_id = ? AND list_name = ? AND scope = ?
		   AND container_id IN (
		       SELECT id FROM containers WHERE kind = ? AND owner_username IN (`+placeholders(len(usernames))+`))`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("bulk remove ref: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}
