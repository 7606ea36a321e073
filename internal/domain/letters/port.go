package letters

import "context"

type Generator interface {
	Generate(ctx context.Context, req LetterRequest) (*DisputeLetter, error)
}
