package ports

import (
	"context"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

// AccountRepository stores the whole account list as one document. It keeps
// no state between calls.
type AccountRepository interface {
	Load(ctx context.Context) ([]domain.Account, error)
	Replace(ctx context.Context, accounts []domain.Account) error
}
