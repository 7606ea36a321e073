package letters

import (
	"context"

	domain "github.com/disputehq/creditlens/internal/domain/letters"
)

type Service struct {
	generator domain.Generator
}

func NewService(generator domain.Generator) *Service {
	return &Service{generator: generator}
}

func (s *Service) Generate(ctx context.Context, req domain.LetterRequest) (*domain.DisputeLetter, error) {
	return s.generator.Generate(ctx, req)
}
