package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/listpal/listpal/internal/model"
)

// ListStore is the canonical list collection. Writes here never share a
// transaction with ContainerStore writes; cross-collection consistency is the
// sync engine's job, not the database's.
type ListStore struct {
	db *sql.DB
}

func NewListStore(db *sql.DB) *ListStore {
	return &ListStore{db: db}
}

func scanList(scanner interface{ Scan(...any) error }) (*model.List, error) {
	var l model.List
	err := scanner.Scan(&l.ID, &l.Kind, &l.Name, &l.Scope, &l.ContainerID, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	var checked int
	err := scanner.Scan(
		&item.ID, &item.ListID, &item.Name, &item.Category, &item.Quantity,
		&checked, &item.Priority, &item.AddedBy, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Checked = checked != 0
	return &item, nil
}

const listCols = `id, kind, name, scope, container_id, created_at`
const itemCols = `id, list_id, name, category, quantity, checked, priority, added_by, created_at`

// placeholders returns "?, ?, ..." for n parameters.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toAnys(ss []string) []any {
	args := make([]any, len(ss))
	for i, s := range ss {
		args[i] = s
	}
	return args
}

// Create inserts a new list with its members and items.
func (s *ListStore) Create(list *model.List) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO lists (id, kind, name, scope, container_id) VALUES (?, ?, ?, ?, ?)`,
		list.ID, list.Kind, list.Name, list.Scope, list.ContainerID,
	)
	if err != nil {
		return fmt.Errorf("insert list: %w", err)
	}
	for _, username := range list.Members {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO list_members (list_id, username) VALUES (?, ?)`, list.ID, username); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	for i, item := range list.Items {
		if err := insertItem(tx, &item, i); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetByID loads a list with its member set and ordered items. Returns
// (nil, nil) when no list matches.
func (s *ListStore) GetByID(id string) (*model.List, error) {
	row := s.db.QueryRow(`SELECT `+listCols+` FROM lists WHERE id = ?`, id)
	l, err := scanList(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get list: %w", err)
	}

	l.Members, err = s.GetMembers(id)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT `+itemCols+` FROM list_items WHERE list_id = ? ORDER BY position ASC, created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		l.Items = append(l.Items, *item)
	}
	return l, rows.Err()
}

// Delete removes the list; members and items cascade.
func (s *ListStore) Delete(id string) error {
	_, err := s.db.Exec(`DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete list: %w", err)
	}
	return nil
}

func (s *ListStore) SetName(id, name string) error {
	_, err := s.db.Exec(`UPDATE lists SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("set list name: %w", err)
	}
	return nil
}

func (s *ListStore) SetScope(id string, scope model.Scope) error {
	_, err := s.db.Exec(`UPDATE lists SET scope = ? WHERE id = ?`, scope, id)
	if err != nil {
		return fmt.Errorf("set list scope: %w", err)
	}
	return nil
}

// --- Member methods ---

func (s *ListStore) GetMembers(listID string) ([]string, error) {
	rows, err := s.db.Query(`SELECT username FROM list_members WHERE list_id = ? ORDER BY username ASC`, listID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var username string
		if err := rows.Scan(&username); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, username)
	}
	return members, rows.Err()
}

// AddMembers unions usernames into the member set. Re-adding an existing
// member is a no-op.
func (s *ListStore) AddMembers(listID string, usernames []string) error {
	for _, username := range usernames {
		if _, err := s.db.Exec(`INSERT OR IGNORE INTO list_members (list_id, username) VALUES (?, ?)`, listID, username); err != nil {
			return fmt.Errorf("add member: %w", err)
		}
	}
	return nil
}

func (s *ListStore) RemoveMembers(listID string, usernames []string) error {
	if len(usernames) == 0 {
		return nil
	}
	args := append([]any{listID}, toAnys(usernames)...)
	_, err := s.db.Exec(
		`DELETE FROM list_members WHERE list_id = ? AND username IN (`+placeholders(len(usernames))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("remove members: %w", err)
	}
	return nil
}

// SetMembers replaces the member set wholesale.
func (s *ListStore) SetMembers(listID string, usernames []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM list_members WHERE list_id = ?`, listID); err != nil {
		return fmt.Errorf("clear members: %w", err)
	}
	for _, username := range usernames {
		if _, err := tx.Exec(`INSERT OR IGNORE INTO list_members (list_id, username) VALUES (?, ?)`, listID, username); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}
	return tx.Commit()
}

// --- Item methods ---

func insertItem(tx *sql.Tx, item *model.Item, position int) error {
	checked := 0
	if item.Checked {
		checked = 1
	}
	_, err := tx.Exec(
		`INSERT INTO list_items (id, list_id, name, category, quantity, checked, priority, added_by, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.ListID, item.Name, item.Category, item.Quantity, checked, item.Priority, item.AddedBy, position,
	)
	if err != nil {
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

// AddItem appends an item at the end of the list's ordering.
func (s *ListStore) AddItem(item *model.Item) error {
	checked := 0
	if item.Checked {
		checked = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO list_items (id, list_id, name, category, quantity, checked, priority, added_by, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM list_items WHERE list_id = ?))`,
		item.ID, item.ListID, item.Name, item.Category, item.Quantity, checked, item.Priority, item.AddedBy, item.ListID,
	)
	if err != nil {
		return fmt.Errorf("add item: %w", err)
	}
	return nil
}

func (s *ListStore) GetItemByID(listID, itemID string) (*model.Item, error) {
	row := s.db.QueryRow(`SELECT `+itemCols+` FROM list_items WHERE list_id = ? AND id = ?`, listID, itemID)
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ListStore) DeleteItemByID(listID, itemID string) error {
	_, err := s.db.Exec(`DELETE FROM list_items WHERE list_id = ? AND id = ?`, listID, itemID)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// SetItemsChecked flips the checked flag of every listed item, so one bulk
// action serves both check and uncheck. An empty id set is a no-op.
func (s *ListStore) SetItemsChecked(listID string, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	args := append([]any{listID}, toAnys(itemIDs)...)
	result, err := s.db.Exec(
		`UPDATE list_items SET checked = 1 - checked WHERE list_id = ? AND id IN (`+placeholders(len(itemIDs))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("check items: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return count, nil
}

// ResetItems clears every item from the list.
func (s *ListStore) ResetItems(listID string) error {
	_, err := s.db.Exec(`DELETE FROM list_items WHERE list_id = ?`, listID)
	if err != nil {
		return fmt.Errorf("reset items: %w", err)
	}
	return nil
}
