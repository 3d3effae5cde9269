// Package questions adapts the platform's question-generation collaborator.
// A duel draws its full ordered question sequence exactly once, at creation.
package questions

import (
	"context"
	"fmt"

	"github.com/edupulse/arena/internal/domain"
	"github.com/edupulse/arena/internal/errors"
)

// OptionsPerQuestion is fixed by the client UI.
const OptionsPerQuestion = 4

// Source returns an ordered question set for a grade level.
type Source interface {
	Questions(ctx context.Context, gradeLevel int) ([]domain.Question, error)
}

// Validate rejects malformed collaborator output before it can reach a duel.
func Validate(qs []domain.Question) error {
	for i, q := range qs {
		if q.Prompt == "" {
			return fmt.Errorf("question %d: empty prompt", i)
		}
		if len(q.Options) != OptionsPerQuestion {
			return fmt.Errorf("question %d: got %d options, want %d", i, len(q.Options), OptionsPerQuestion)
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("question %d: correct index %d out of range", i, q.CorrectIndex)
		}
	}
	return nil
}

// Draw fetches and validates a sequence of exactly n questions. A short or
// malformed set is a question-source failure, reported as unavailable so the
// matchmaking layer can requeue the players.
func Draw(ctx context.Context, s Source, gradeLevel, n int) ([]domain.Question, error) {
	qs, err := s.Questions(ctx, gradeLevel)
	if err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("question source failed: grade=%d", gradeLevel),
			errors.WithCause(err))
	}

	if err := Validate(qs); err != nil {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("question source returned malformed set: grade=%d", gradeLevel),
			errors.WithCause(err))
	}

	if len(qs) < n {
		return nil, errors.New(errors.CodeUnavailable,
			errors.WithMessagef("question source returned %d questions, need %d", len(qs), n))
	}

	return qs[:n], nil
}
