package store

import (
	"database/sql"
	"fmt"

	"github.com/listpal/listpal/internal/model"
)

// maxRelevantContacts bounds the people-suggestion deque per user.
const maxRelevantContacts = 10

type UserStore struct {
	db *sql.DB
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

func scanUser(scanner interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := scanner.Scan(&u.Username, &u.Name, &u.Email, &u.Phone, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

const userCols = `username, name, email, phone, created_at`

func (s *UserStore) Create(username, name, email, phone string) (*model.User, error) {
	_, err := s.db.Exec(
		`INSERT INTO users (username, name, email, phone) VALUES (?, ?, ?, ?)`,
		username, name, email, phone,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return s.GetByUsername(username)
}

func (s *UserStore) GetByUsername(username string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE username = ?`, username)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByPhone(phone string) (*model.User, error) {
	row := s.db.QueryRow(`SELECT `+userCols+` FROM users WHERE phone = ?`, phone)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return u, nil
}

// RecordContact pushes a contact to the front of the user's suggestion deque.
// A repeated contact moves to the front; the deque holds at most ten entries
// and the oldest falls off.
func (s *UserStore) RecordContact(username, contact string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM user_contacts WHERE username = ? AND contact = ?`, username, contact); err != nil {
		return fmt.Errorf("drop contact: %w", err)
	}
	if _, err := tx.Exec(`UPDATE user_contacts SET position = position + 1 WHERE username = ?`, username); err != nil {
		return fmt.Errorf("shift contacts: %w", err)
	}
	if _, err := tx.Exec(`INSERT INTO user_contacts (username, contact, position) VALUES (?, ?, 0)`, username, contact); err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM user_contacts WHERE username = ? AND position >= ?`, username, maxRelevantContacts); err != nil {
		return fmt.Errorf("trim contacts: %w", err)
	}
	return tx.Commit()
}

// SuggestedPeople returns the user's recent contacts, most recent first.
func (s *UserStore) SuggestedPeople(username string) ([]string, error) {
	rows, err := s.db.Query(`SELECT contact FROM user_contacts WHERE username = ? ORDER BY position ASC`, username)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []string
	for rows.Next() {
		var contact string
		if err := rows.Scan(&contact); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	return contacts, rows.Err()
}
