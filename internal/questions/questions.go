package questions

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sort"

	"github.com/samber/lo"
)

//go:embed questions.json
var questionsJSON []byte

var ErrNotFound = errors.New("question not found")

type Question struct {
	ID         int      `json:"id"`
	Paragraphs []string `json:"paragraphs"`
}

type questionFile struct {
	Questions []Question `json:"questions"`
}

// Store is the read-only question bank.
type Store struct {
	list []Question
	byID map[int]Question
}

// Default loads the embedded question bank.
func Default() (*Store, error) {
	return Load(questionsJSON)
}

// Load parses a {"questions": [...]} document. Questions without an id or
// without paragraphs are skipped; duplicate ids are an error.
func Load(data []byte) (*Store, error) {
	var f questionFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decoding question bank: %w", err)
	}

	list := lo.Filter(f.Questions, func(q Question, _ int) bool {
		if q.ID <= 0 || len(q.Paragraphs) == 0 {
			slog.Warn("skipping malformed question", "id", q.ID)
			return false
		}
		return true
	})
	if len(list) == 0 {
		return nil, errors.New("question bank is empty")
	}

	byID := make(map[int]Question, len(list))
	for _, q := range list {
		if _, dup := byID[q.ID]; dup {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		byID[q.ID] = q
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	return &Store{list: list, byID: byID}, nil
}

func (s *Store) Has(id int) bool {
	_, ok := s.byID[id]
	return ok
}

func (s *Store) Get(id int) (Question, error) {
	q, ok := s.byID[id]
	if !ok {
		return Question{}, ErrNotFound
	}
	return q, nil
}

func (s *Store) All() []Question {
	return append([]Question(nil), s.list...)
}

func (s *Store) Len() int {
	return len(s.list)
}

func (s *Store) IDs() []int {
	return lo.Map(s.list, func(q Question, _ int) int { return q.ID })
}

// Random picks a question uniformly. It falls back to the first question
// when ctx is done or the random source fails.
func (s *Store) Random(ctx context.Context) Question {
	select {
	case <-ctx.Done():
		slog.WarnContext(ctx, "random question selection cancelled", "error", ctx.Err())
		return s.list[0]
	default:
	}

	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(s.list))))
	if err != nil {
		slog.WarnContext(ctx, "generating random question index failed, using fallback", "error", err)
		return s.list[0]
	}
	return s.list[n.Int64()]
}
