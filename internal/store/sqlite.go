package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	username TEXT PRIMARY KEY,
	password TEXT NOT NULL,
	score    INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS questions_asked (
	username    TEXT NOT NULL,
	question_id TEXT NOT NULL,
	UNIQUE (username, question_id)
);`

// SqliteUserStore keeps the user table in a SQLite database: one row per user
// plus a child table for asked-question ids. It implements the same
// total-replace Save semantics as the JSON file store.
type SqliteUserStore struct {
	db *sql.DB
}

func OpenSqliteUserStore(path string) (*SqliteUserStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening user database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating user tables: %w", err)
	}
	return &SqliteUserStore{db: db}, nil
}

func (s *SqliteUserStore) Close() error {
	return s.db.Close()
}

func (s *SqliteUserStore) Load() (map[string]*User, error) {
	byName := make(map[string]*User)

	rows, err := s.db.Query(`SELECT username, password, score FROM users`)
	if err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		user := &User{QuestionsAsked: []string{}}
		if err := rows.Scan(&user.Username, &user.Password, &user.Score); err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		byName[user.Username] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loading users: %w", err)
	}

	// rowid order preserves the order ids were recorded in.
	asked, err := s.db.Query(`SELECT username, question_id FROM questions_asked ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("loading asked questions: %w", err)
	}
	defer asked.Close()
	for asked.Next() {
		var username, questionId string
		if err := asked.Scan(&username, &questionId); err != nil {
			return nil, fmt.Errorf("scanning asked-question row: %w", err)
		}
		if user, has := byName[username]; has {
			user.QuestionsAsked = append(user.QuestionsAsked, questionId)
		}
	}
	if err := asked.Err(); err != nil {
		return nil, fmt.Errorf("loading asked questions: %w", err)
	}

	return byName, nil
}

func (s *SqliteUserStore) Save(users map[string]*User) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting save transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM questions_asked`); err != nil {
		return fmt.Errorf("clearing asked questions: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM users`); err != nil {
		return fmt.Errorf("clearing users: %w", err)
	}

	for _, user := range users {
		if _, err := tx.Exec(
			`INSERT INTO users (username, password, score) VALUES (?, ?, ?)`,
			user.Username, user.Password, user.Score,
		); err != nil {
			return fmt.Errorf("saving user %s: %w", user.Username, err)
		}
		for _, questionId := range user.QuestionsAsked {
			if _, err := tx.Exec(
				`INSERT INTO questions_asked (username, question_id) VALUES (?, ?)`,
				user.Username, questionId,
			); err != nil {
				return fmt.Errorf("saving asked question for %s: %w", user.Username, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing save transaction: %w", err)
	}
	return nil
}
