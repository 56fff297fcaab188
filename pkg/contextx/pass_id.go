package contextx

import (
	"context"
	"fmt"
)

// PassID идентифицирует один проход синхронизации сделок.
type PassID string

type contextKeyPassID struct{}

func (p PassID) String() string {
	return string(p)
}

func WithPassID(ctx context.Context, passID PassID) context.Context {
	return context.WithValue(ctx, contextKeyPassID{}, passID)
}

func PassIDFromContext(ctx context.Context) (PassID, error) {
	passID, ok := ctx.Value(contextKeyPassID{}).(PassID)
	if !ok {
		return "", fmt.Errorf("pass id: %w", ErrNoValue)
	}

	return passID, nil
}
