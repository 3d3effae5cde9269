package questions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/edupulse/arena/internal/domain"
)

const defaultHTTPTimeout = 5 * time.Second

// HTTPSource calls the question-generation service over HTTP. The generation
// mechanism itself is the collaborator's business; this adapter only speaks
// its JSON contract.
type HTTPSource struct {
	base   string
	client *http.Client
}

func NewHTTPSource(baseURL string) *HTTPSource {
	return &HTTPSource{
		base:   baseURL,
		client: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

type wireQuestion struct {
	Prompt       string   `json:"prompt"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

func (s *HTTPSource) Questions(ctx context.Context, gradeLevel int) ([]domain.Question, error) {
	url := fmt.Sprintf("%s/v1/questions?grade=%d", s.base, gradeLevel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("questions: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("questions: call generator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("questions: generator returned status %d", resp.StatusCode)
	}

	var body struct {
		Questions []wireQuestion `json:"questions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("questions: decode response: %w", err)
	}

	qs := make([]domain.Question, 0, len(body.Questions))
	for _, q := range body.Questions {
		qs = append(qs, domain.Question{
			Prompt:       q.Prompt,
			Options:      q.Options,
			CorrectIndex: q.CorrectIndex,
		})
	}

	return qs, nil
}
