package matching

import (
	"cmp"
	"sync"

	"golang.org/x/exp/slices"
)

// PersonScore is a person's index in the gallery and the score they are ranked by.
type PersonScore struct {
	Person int
	Score  float64
}

// BestMatchSkipper ranks persons by a score that ignores their best few matches: each
// person is represented by their (skip+1)-th best score. Safe for concurrent use.
type BestMatchSkipper struct {
	mu     sync.Mutex
	skip   int
	scores [][]float64
}

// NewBestMatchSkipper tracks persons persons. A negative skip counts as zero.
func NewBestMatchSkipper(persons, skip int) *BestMatchSkipper {
	skip = max(skip, 0)
	return &BestMatchSkipper{skip: skip, scores: make([][]float64, persons)}
}

// AddScore records one score for person, keeping only the top skip+1, descending.
func (s *BestMatchSkipper) AddScore(person int, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keep := s.skip + 1
	kept := s.scores[person]
	pos := slices.IndexFunc(kept, func(v float64) bool { return v < score })
	if pos < 0 {
		pos = len(kept)
	}
	if pos >= keep {
		return
	}
	if kept == nil {
		kept = make([]float64, 0, keep+1)
	}
	kept = slices.Insert(kept, pos, score)
	if len(kept) > keep {
		kept = kept[:keep]
	}
	s.scores[person] = kept
}

// GetSkipScore is the person's (skip+1)-th best score, or the lowest recorded when
// fewer were recorded, or zero without any.
func (s *BestMatchSkipper) GetSkipScore(person int) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipScore(person)
}

func (s *BestMatchSkipper) skipScore(person int) float64 {
	kept := s.scores[person]
	if len(kept) == 0 {
		return 0
	}
	return kept[len(kept)-1]
}

// GetBestScore returns the person with the highest skip score. The lowest index wins
// ties. Person is -1 when no scores were recorded.
func (s *BestMatchSkipper) GetBestScore() (person int, score float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	person = -1
	for i, kept := range s.scores {
		if len(kept) == 0 {
			continue
		}
		if v := s.skipScore(i); person < 0 || v > score {
			person, score = i, v
		}
	}
	return person, score
}

// GetSortedScores ranks every person by skip score, best first. Persons without
// scores rank with 0. Equal scores keep person order.
func (s *BestMatchSkipper) GetSortedScores() []PersonScore {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]PersonScore, len(s.scores))
	for i := range s.scores {
		out[i] = PersonScore{Person: i, Score: s.skipScore(i)}
	}
	slices.SortStableFunc(out, func(a, b PersonScore) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return out
}
