package store

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/blake3"

	"github.com/quizwire/trivia-server/pkg/wire"
)

const DefaultOpenTdbUrl = "https://opentdb.com/api.php"

// Fetcher pulls a fresh question bank from the Open Trivia DB API. Responses
// arrive HTML-entity encoded and unfiltered; the fetcher unescapes every text,
// discards records that would break the wire format, and derives a stable id
// for each surviving question from a content hash.
type Fetcher struct {
	BaseUrl  string
	Amount   int
	Category string // "18" is computer science
	Client   *http.Client
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		BaseUrl:  DefaultOpenTdbUrl,
		Amount:   50,
		Category: "18",
		Client:   &http.Client{Timeout: 15 * time.Second},
	}
}

type openTdbResponse struct {
	ResponseCode int              `json:"response_code"`
	Results      []questionRecord `json:"results"`
}

func (f *Fetcher) Fetch(ctx context.Context) (*Bank, error) {
	params := url.Values{}
	params.Set("amount", fmt.Sprintf("%d", f.Amount))
	params.Set("type", "multiple")
	params.Set("category", f.Category)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseUrl+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building question request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching questions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching questions: unexpected status %s", resp.Status)
	}

	var decoded openTdbResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding question response: %w", err)
	}
	if decoded.ResponseCode != 0 {
		return nil, fmt.Errorf("question service refused the request (code %d)", decoded.ResponseCode)
	}

	bank := &Bank{questions: make(map[string]*Question, len(decoded.Results))}
	for _, rec := range decoded.Results {
		text := html.UnescapeString(rec.Question)
		correct := html.UnescapeString(rec.CorrectAnswer)
		incorrect := make([]string, 0, len(rec.IncorrectAnswers))
		for _, ans := range rec.IncorrectAnswers {
			incorrect = append(incorrect, html.UnescapeString(ans))
		}

		if questionUnsafeForWire(text, correct, incorrect) {
			continue
		}

		bank.questions[questionId(text)] = &Question{
			Id:               questionId(text),
			Text:             text,
			CorrectAnswer:    correct,
			IncorrectAnswers: incorrect,
		}
	}
	return bank, nil
}

// questionUnsafeForWire reports whether any text still contains a protocol
// delimiter after entity decoding. Such questions cannot be framed and are
// dropped rather than mangled.
func questionUnsafeForWire(text, correct string, incorrect []string) bool {
	if wire.ContainsDelimiter(text) || wire.ContainsDelimiter(correct) {
		return true
	}
	for _, ans := range incorrect {
		if wire.ContainsDelimiter(ans) {
			return true
		}
	}
	return false
}

// questionId derives a stable, collision-resistant id from the question text.
func questionId(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])[:8]
}

// WriteSnapshot caches a fetched bank to a gzip-compressed JSON file so the
// next startup does not need the network.
func WriteSnapshot(path string, bank *Bank) error {
	records := make(map[string]questionRecord, len(bank.questions))
	for id, q := range bank.questions {
		records[id] = questionRecord{
			Question:         q.Text,
			CorrectAnswer:    q.CorrectAnswer,
			IncorrectAnswers: q.IncorrectAnswers,
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating question snapshot: %w", err)
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	if err := json.NewEncoder(zw).Encode(records); err != nil {
		zw.Close()
		return fmt.Errorf("encoding question snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing question snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot loads a bank previously written by WriteSnapshot.
func ReadSnapshot(path string) (*Bank, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening question snapshot: %w", err)
	}
	defer file.Close()

	zr, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("reading question snapshot: %w", err)
	}
	defer zr.Close()

	records := make(map[string]questionRecord)
	if err := json.NewDecoder(zr).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding question snapshot: %w", err)
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
