package ports

import (
	"context"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

// DeviceAuthorizer runs the two halves of a device code login. Both calls may
// block on the network and must be made without holding the registry lock.
type DeviceAuthorizer interface {
	StartDeviceAuthorization(ctx context.Context, provider string) (domain.DeviceLoginSession, error)
	AwaitGrant(ctx context.Context, session domain.DeviceLoginSession) (domain.DeviceGrant, error)
}

// TokenRefresher exchanges the current token of an account for a new one. It
// returns either a complete token or an error, never a partial token.
type TokenRefresher interface {
	Refresh(ctx context.Context, account domain.Account, current domain.Token) (domain.Token, error)
}
