package store

// User is one record of the user table. QuestionsAsked holds ids of every
// question the user has already been served, correct or not.
type User struct {
	Username       string   `json:"-"`
	Password       string   `json:"password"`
	Score          int      `json:"score"`
	QuestionsAsked []string `json:"questions_asked"`
}

func (u *User) HasAsked(questionId string) bool {
	for _, id := range u.QuestionsAsked {
		if id == questionId {
			return true
		}
	}
	return false
}

// MarkAsked records a question id in the asked set. Idempotent: submitting the
// same id twice leaves a single entry.
func (u *User) MarkAsked(questionId string) {
	if !u.HasAsked(questionId) {
		u.QuestionsAsked = append(u.QuestionsAsked, questionId)
	}
}

// UserStore is the persistence collaborator for the user table: a total
// read/replace of the backing store. The caller is single-threaded, so no
// partial-write guarantees are made.
type UserStore interface {
	Load() (map[string]*User, error)
	Save(users map[string]*User) error
}
