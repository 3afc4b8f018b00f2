package companion

import (
	"context"
	"strings"

	"github.com/companiondir/backend/internal/domain/companion"
	"github.com/companiondir/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UniquenessVerifier answers whether a login handle is already registered.
// The catalog has no unique index, so this is a read-then-write check: two
// concurrent creations with the same handle can both pass it.
type UniquenessVerifier struct {
	loader *CollectionLoader
	logger *zap.Logger
}

// NewUniquenessVerifier creates a new UniquenessVerifier
func NewUniquenessVerifier(loader *CollectionLoader, logger *zap.Logger) *UniquenessVerifier {
	return &UniquenessVerifier{loader: loader, logger: logger}
}

// Exists reports whether any record in the collection, in any lifecycle
// state, carries handle as its user_name. Comparison is case-insensitive.
// Backend failures surface as ErrUniquenessUnverifiable, never as false.
func (v *UniquenessVerifier) Exists(ctx context.Context, handle string) (bool, error) {
	handle = NormalizeHandle(handle)
	if handle == "" {
		return false, nil
	}

	companions, err := v.loader.Load(ctx, companion.StatusAny)
	if err != nil {
		v.logger.Error("Failed to verify user name uniqueness", zap.Error(err))
		return false, shared.WrapDomainError(shared.CodeUpstreamUnavailable, companion.ErrUniquenessUnverifiable.Message, err)
	}

	for _, c := range companions {
		if strings.EqualFold(strings.TrimSpace(c.Profile.UserName), handle) {
			return true, nil
		}
	}
	return false, nil
}
