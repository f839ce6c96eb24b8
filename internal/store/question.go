package store

import "math/rand"

// Question is immutable after load. IncorrectAnswers is always three entries
// for the multiple-choice game.
type Question struct {
	Id               string
	Text             string
	CorrectAnswer    string
	IncorrectAnswers []string
}

// Answers returns all four answers in a fresh random order. The order is
// rolled per call, never cached, so repeated asks of the same question do not
// leak the correct position.
func (q *Question) Answers(rng *rand.Rand) []string {
	answers := make([]string, 0, 1+len(q.IncorrectAnswers))
	answers = append(answers, q.CorrectAnswer)
	answers = append(answers, q.IncorrectAnswers...)
	rng.Shuffle(len(answers), func(i, j int) {
		answers[i], answers[j] = answers[j], answers[i]
	})
	return answers
}
