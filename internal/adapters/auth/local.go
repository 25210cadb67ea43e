package auth

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/google/uuid"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
)

const (
	LocalVerificationURI = "https://microsoft.com/devicelogin"

	localSessionExpiresIn uint32 = 600
	localPollInterval     uint32 = 5
	localRefreshExpiresIn uint32 = 900
)

const localRandomCodeDigits = 6

var (
	_ ports.DeviceAuthorizer = LocalDeviceAuthorizer{}
	_ ports.TokenRefresher   = LocalTokenIssuer{}
)

// LocalDeviceAuthorizer fabricates device login sessions without contacting
// an identity provider. Every session is granted as soon as it is awaited.
type LocalDeviceAuthorizer struct{}

func (LocalDeviceAuthorizer) StartDeviceAuthorization(ctx context.Context, provider string) (domain.DeviceLoginSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeviceLoginSession{}, err
	}
	if strings.TrimSpace(provider) == "" {
		return domain.DeviceLoginSession{}, domain.ErrInvalidProvider
	}

	userCode := strings.ToUpper(provider) + "-" + randomCode(localRandomCodeDigits)

	return domain.DeviceLoginSession{
		Provider:        provider,
		UserCode:        userCode,
		VerificationURI: LocalVerificationURI,
		DeviceCode:      uuid.NewString(),
		ExpiresIn:       localSessionExpiresIn,
		Message:         DeviceLoginMessage(userCode, LocalVerificationURI),
		PollInterval:    localPollInterval,
	}, nil
}

func (LocalDeviceAuthorizer) AwaitGrant(ctx context.Context, session domain.DeviceLoginSession) (domain.DeviceGrant, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeviceGrant{}, err
	}
	if session.DeviceCode == "" {
		return domain.DeviceGrant{}, domain.ErrLoginSessionNotFound
	}

	return domain.DeviceGrant{Token: domain.PendingDeviceToken(session.DeviceCode, localSessionExpiresIn)}, nil
}

// LocalTokenIssuer rotates tokens with random codes and a fixed lifetime.
type LocalTokenIssuer struct{}

func (LocalTokenIssuer) Refresh(ctx context.Context, _ domain.Account, _ domain.Token) (domain.Token, error) {
	if err := ctx.Err(); err != nil {
		return domain.Token{}, err
	}

	return domain.Token{
		AccessToken:  "tok-" + randomCode(localRandomCodeDigits),
		RefreshToken: "ref-" + randomCode(localRandomCodeDigits),
		ExpiresIn:    localRefreshExpiresIn,
	}, nil
}

func DeviceLoginMessage(userCode string, verificationURI string) string {
	return fmt.Sprintf("Enter %s at %s to link your account.", userCode, verificationURI)
}

func randomCode(digits int) string {
	var b strings.Builder
	b.Grow(digits)
	for range digits {
		b.WriteByte(byte('0' + rand.IntN(10)))
	}
	return b.String()
}
