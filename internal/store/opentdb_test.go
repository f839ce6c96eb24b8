package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openTdbFixture = `{
	"response_code": 0,
	"results": [
		{
			"question": "What does &quot;CPU&quot; stand for?",
			"correct_answer": "Central Processing Unit",
			"incorrect_answers": ["Central Process Unit", "Computer Personal Unit", "Central Processor Unit"]
		},
		{
			"question": "Which symbol is C&#039;s preprocessor marker: #?",
			"correct_answer": "hash",
			"incorrect_answers": ["pipe", "bang", "tilde"]
		},
		{
			"question": "Is a|b a valid shell pipeline?",
			"correct_answer": "yes",
			"incorrect_answers": ["no", "sometimes", "never"]
		}
	]
}`

func TestFetchUnescapesAndFiltersQuestions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "50", r.URL.Query().Get("amount"))
		assert.Equal(t, "multiple", r.URL.Query().Get("type"))
		assert.Equal(t, "18", r.URL.Query().Get("category"))
		w.Write([]byte(openTdbFixture))
	}))
	defer srv.Close()

	f := NewFetcher()
	f.BaseUrl = srv.URL

	bank, err := f.Fetch(context.Background())
	require.NoError(t, err)

	// The second question still contains '#' after unescaping and the third
	// contains '|': both are dropped to protect the wire format.
	require.Equal(t, 1, bank.Len())

	id := questionId(`What does "CPU" stand for?`)
	q, has := bank.Get(id)
	require.True(t, has)
	assert.Equal(t, `What does "CPU" stand for?`, q.Text)
	assert.Equal(t, "Central Processing Unit", q.CorrectAnswer)
}

func TestFetchRejectsServiceErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"response_code": 2, "results": []}`))
	}))
	defer srv.Close()

	f := NewFetcher()
	f.BaseUrl = srv.URL

	_, err := f.Fetch(context.Background())
	assert.Error(t, err)
}

func TestSnapshotRoundTrip(t *testing.T) {
	bank := testBank()
	path := filepath.Join(t.TempDir(), "questions.json.gz")

	require.NoError(t, WriteSnapshot(path, bank))

	reloaded, err := ReadSnapshot(path)
	require.NoError(t, err)
	require.Equal(t, bank.Len(), reloaded.Len())

	q, has := reloaded.Get("q2")
	require.True(t, has)
	assert.Equal(t, "Capital of France?", q.Text)
	assert.Equal(t, "Paris", q.CorrectAnswer)
	assert.Equal(t, []string{"Lyon", "Nice", "Lille"}, q.IncorrectAnswers)
}

func TestQuestionIdIsStable(t *testing.T) {
	assert.Equal(t, questionId("same text"), questionId("same text"))
	assert.NotEqual(t, questionId("one question"), questionId("another question"))
	assert.Len(t, questionId("any"), 8)
}
