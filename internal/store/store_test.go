package store

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBank() *Bank {
	return NewBank(
		&Question{Id: "q1", Text: "What is 2+2?", CorrectAnswer: "4", IncorrectAnswers: []string{"3", "2", "1"}},
		&Question{Id: "q2", Text: "Capital of France?", CorrectAnswer: "Paris", IncorrectAnswers: []string{"Lyon", "Nice", "Lille"}},
		&Question{Id: "q3", Text: "Largest planet?", CorrectAnswer: "Jupiter", IncorrectAnswers: []string{"Mars", "Venus", "Saturn"}},
	)
}

func TestMarkAskedIsIdempotent(t *testing.T) {
	user := &User{Username: "test"}

	user.MarkAsked("q1")
	user.MarkAsked("q1")
	user.MarkAsked("q2")

	assert.Equal(t, []string{"q1", "q2"}, user.QuestionsAsked)
	assert.True(t, user.HasAsked("q1"))
	assert.False(t, user.HasAsked("q3"))
}

func TestPickUnaskedNeverRepeats(t *testing.T) {
	bank := testBank()
	user := &User{Username: "test"}
	rng := rand.New(rand.NewSource(1))

	seen := map[string]bool{}
	for i := 0; i < bank.Len(); i++ {
		q := bank.PickUnasked(user, rng)
		require.NotNil(t, q)
		assert.False(t, seen[q.Id], "question %s served twice", q.Id)
		seen[q.Id] = true
		user.MarkAsked(q.Id)
	}

	assert.Nil(t, bank.PickUnasked(user, rng))
}

func TestAnswersShuffledContainAllFour(t *testing.T) {
	q, _ := testBank().Get("q1")
	rng := rand.New(rand.NewSource(7))

	answers := q.Answers(rng)
	assert.Len(t, answers, 4)
	assert.ElementsMatch(t, []string{"4", "3", "2", "1"}, answers)
}

func TestTopScoresOrderingAndTies(t *testing.T) {
	users := map[string]*User{
		"carol": {Username: "carol", Score: 30},
		"bob":   {Username: "bob", Score: 15},
		"erin":  {Username: "erin", Score: 15},
		"alice": {Username: "alice", Score: 15},
		"dave":  {Username: "dave", Score: 5},
		"frank": {Username: "frank", Score: 0},
	}

	top := TopScores(users, 5)
	require.Len(t, top, 5)
	assert.Equal(t, []ScoreEntry{
		{"carol", 30},
		{"alice", 15},
		{"bob", 15},
		{"erin", 15},
		{"dave", 5},
	}, top)

	assert.Len(t, TopScores(map[string]*User{"solo": {Username: "solo"}}, 5), 1)
}

func TestJsonUserStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"test": {"password": "test", "score": 10, "questions_asked": ["q1"]},
		"master": {"password": "master", "score": 200, "questions_asked": []}
	}`), 0o644))

	s := &JsonUserStore{Path: path}
	users, err := s.Load()
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "test", users["test"].Username)
	assert.Equal(t, 10, users["test"].Score)
	assert.Equal(t, []string{"q1"}, users["test"].QuestionsAsked)

	users["test"].Score += 5
	users["test"].MarkAsked("q2")
	require.NoError(t, s.Save(users))

	reloaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 15, reloaded["test"].Score)
	assert.Equal(t, []string{"q1", "q2"}, reloaded["test"].QuestionsAsked)
}

func TestJsonUserStoreMissingFile(t *testing.T) {
	s := &JsonUserStore{Path: filepath.Join(t.TempDir(), "absent.json")}
	_, err := s.Load()
	assert.Error(t, err)
}

func TestLoadQuestionsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"1": {"question": "What is 2+2?", "correct_answer": "4", "incorrect_answers": ["3", "2", "1"]}
	}`), 0o644))

	bank, err := LoadQuestionsFile(path)
	require.NoError(t, err)
	require.Equal(t, 1, bank.Len())

	q, has := bank.Get("1")
	require.True(t, has)
	assert.Equal(t, "What is 2+2?", q.Text)
	assert.Equal(t, "4", q.CorrectAnswer)
	assert.Equal(t, []string{"3", "2", "1"}, q.IncorrectAnswers)
}

func TestSqliteUserStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.db")
	s, err := OpenSqliteUserStore(path)
	require.NoError(t, err)
	defer s.Close()

	users := map[string]*User{
		"test": {Username: "test", Password: "test", Score: 5, QuestionsAsked: []string{"q2", "q1"}},
	}
	require.NoError(t, s.Save(users))

	loaded, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 5, loaded["test"].Score)
	assert.Equal(t, "test", loaded["test"].Password)
	assert.Equal(t, []string{"q2", "q1"}, loaded["test"].QuestionsAsked)

	// Save replaces wholesale.
	users["test"].Score = 10
	require.NoError(t, s.Save(users))
	loaded, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, 10, loaded["test"].Score)
}
