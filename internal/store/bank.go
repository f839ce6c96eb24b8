package store

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"
)

// questionRecord is the serialized question shape, shared by the static
// question file, the snapshot cache and the Open Trivia DB response entries.
type questionRecord struct {
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

// Bank is the immutable question bank, keyed by question id.
type Bank struct {
	questions map[string]*Question
}

func NewBank(questions ...*Question) *Bank {
	byId := make(map[string]*Question, len(questions))
	for _, q := range questions {
		byId[q.Id] = q
	}
	return &Bank{questions: byId}
}

// LoadQuestionsFile reads a static question bank: a JSON object mapping
// question id to question record.
func LoadQuestionsFile(path string) (*Bank, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading question bank: %w", err)
	}
	records := make(map[string]questionRecord)
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding question bank: %w", err)
	}

	bank := &Bank{questions: make(map[string]*Question, len(records))}
	for id, rec := range records {
		bank.questions[id] = &Question{
			Id:               id,
			Text:             rec.Question,
			CorrectAnswer:    rec.CorrectAnswer,
			IncorrectAnswers: rec.IncorrectAnswers,
		}
	}
	return bank, nil
}

func (b *Bank) Get(id string) (*Question, bool) {
	q, has := b.questions[id]
	return q, has
}

func (b *Bank) Len() int {
	return len(b.questions)
}

// PickUnasked returns a uniformly random question whose id is not in the
// user's asked set, or nil once the user has seen everything. Candidates are
// sorted by id before the draw so a seeded rng yields a reproducible pick.
func (b *Bank) PickUnasked(user *User, rng *rand.Rand) *Question {
	candidates := make([]string, 0, len(b.questions))
	for id := range b.questions {
		if !user.HasAsked(id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Strings(candidates)
	return b.questions[candidates[rng.Intn(len(candidates))]]
}
