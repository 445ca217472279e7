package rank

import (
	"math"
	"sort"

	"github.com/teamctx-lab/teamctx/pkg/domain/model"
)

// Ranker orders project-scoped candidates by relevance to a query vector.
// The brute-force cosine implementation below can be replaced by an
// approximate index without touching the orchestrator.
type Ranker interface {
	Rank(query []float32, candidates []*model.ContextRecord, limit int, threshold float64) []*model.ScoredRecord
}

// Cosine is an exact linear-scan ranker using cosine similarity
type Cosine struct{}

// NewCosine creates a new exact cosine ranker
func NewCosine() *Cosine {
	return &Cosine{}
}

// Rank scores every candidate, keeps those at or above threshold, sorts by
// score descending (ties keep insertion order), and truncates to limit.
// A non-positive limit means no truncation.
func (c *Cosine) Rank(query []float32, candidates []*model.ContextRecord, limit int, threshold float64) []*model.ScoredRecord {
	results := make([]*model.ScoredRecord, 0, len(candidates))
	for _, record := range candidates {
		score := CosineSimilarity(query, record.Embedding)
		if score >= threshold {
			results = append(results, &model.ScoredRecord{Record: record, Score: score})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// CosineSimilarity computes dot(a, b) / (‖a‖·‖b‖) in [-1, 1]. When either
// vector has zero norm the score is 0.0 rather than an error; mismatched
// lengths also score 0.0 since no meaningful comparison exists.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		x := float64(a[i])
		y := float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0.0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
