package store

import (
	"encoding/json"
	"fmt"
	"os"
)

// JsonUserStore keeps the user table in a single JSON file keyed by username,
// the same shape the game has always used:
//
//	{"test": {"password": "test", "score": 0, "questions_asked": []}}
type JsonUserStore struct {
	Path string
}

func (s *JsonUserStore) Load() (map[string]*User, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading user table: %w", err)
	}

	byName := make(map[string]*User)
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("decoding user table: %w", err)
	}
	for name, user := range byName {
		user.Username = name
		if user.QuestionsAsked == nil {
			user.QuestionsAsked = []string{}
		}
	}
	return byName, nil
}

func (s *JsonUserStore) Save(users map[string]*User) error {
	raw, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding user table: %w", err)
	}
	if err := os.WriteFile(s.Path, raw, 0o644); err != nil {
		return fmt.Errorf("writing user table: %w", err)
	}
	return nil
}
