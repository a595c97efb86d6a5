// Package retrieval stores embedded text chunks and answers nearest
// neighbour queries over them.
package retrieval

import (
	"errors"
	"math"
	"sort"
	"time"
)

// Index names used by the agent.
const (
	ResumeIndex  = "resume"
	ProjectIndex = "project"
)

var (
	ErrIndexNotFound   = errors.New("index not found")
	ErrDimensionChange = errors.New("vector dimensions differ")
)

// Chunk is one embedded passage.
type Chunk struct {
	Text   string    `json:"text"`
	Vector []float32 `json:"vector"`
}

// Index is a named set of chunks embedded with one model.
type Index struct {
	Name      string    `json:"name"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Chunks    []Chunk   `json:"chunks"`
}

// Match is a chunk together with its similarity to the query.
type Match struct {
	Text  string
	Score float64
}

// Search returns up to k chunks ordered by cosine similarity to query.
// Chunks whose dimensions differ from the query are ignored.
func (idx *Index) Search(query []float32, k int) []Match {
	if idx == nil || k <= 0 || len(query) == 0 {
		return nil
	}

	matches := make([]Match, 0, len(idx.Chunks))
	for _, c := range idx.Chunks {
		score, ok := cosine(query, c.Vector)
		if !ok {
			continue
		}
		matches = append(matches, Match{Text: c.Text, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func cosine(a, b []float32) (float64, bool) {
	if len(a) != len(b) || len(a) == 0 {
		return 0, false
	}

	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}
