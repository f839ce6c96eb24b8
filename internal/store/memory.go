package store

// MemoryUserStore is an in-process UserStore, used by tests and by servers
// that do not need durability. Save replaces the snapshot wholesale, matching
// the file-backed stores.
type MemoryUserStore struct {
	Users map[string]*User

	// SaveCount counts write-through persistence calls.
	SaveCount int
}

func NewMemoryUserStore(users ...*User) *MemoryUserStore {
	byName := make(map[string]*User, len(users))
	for _, u := range users {
		if u.QuestionsAsked == nil {
			u.QuestionsAsked = []string{}
		}
		byName[u.Username] = u
	}
	return &MemoryUserStore{Users: byName}
}

func (s *MemoryUserStore) Load() (map[string]*User, error) {
	return s.Users, nil
}

func (s *MemoryUserStore) Save(users map[string]*User) error {
	s.Users = users
	s.SaveCount++
	return nil
}
