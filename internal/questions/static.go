package questions

import (
	"context"
	"fmt"

	"github.com/edupulse/arena/internal/domain"
)

// StaticSource serves a generated arithmetic drill set. Used in tests and as
// a built-in fallback when no generator service is configured.
type StaticSource struct {
	count int
}

func NewStaticSource(count int) *StaticSource {
	return &StaticSource{count: count}
}

func (s *StaticSource) Questions(_ context.Context, gradeLevel int) ([]domain.Question, error) {
	qs := make([]domain.Question, 0, s.count)
	for i := 0; i < s.count; i++ {
		a, b := gradeLevel+i, i+2
		qs = append(qs, domain.Question{
			Prompt: fmt.Sprintf("What is %d + %d?", a, b),
			Options: []string{
				fmt.Sprint(a + b - 1),
				fmt.Sprint(a + b),
				fmt.Sprint(a + b + 1),
				fmt.Sprint(a + b + 2),
			},
			CorrectIndex: 1,
		})
	}
	return qs, nil
}
