package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
	"golang.org/x/oauth2"
)

type RefreshAdapter struct {
	OAuthClient
}

var _ ports.TokenRefresher = RefreshAdapter{}

func NewRefreshAdapter(provider Provider, httpClient *http.Client) (RefreshAdapter, error) {
	if err := provider.validate(); err != nil {
		return RefreshAdapter{}, err
	}

	return RefreshAdapter{OAuthClient: OAuthClient{Provider: provider, HTTPClient: httpClient}}, nil
}

// Refresh redeems the refresh token of current. The returned token keeps the
// old refresh token when the provider only rotates the access token.
func (a RefreshAdapter) Refresh(ctx context.Context, _ domain.Account, current domain.Token) (domain.Token, error) {
	if err := ctx.Err(); err != nil {
		return domain.Token{}, err
	}
	if current.RefreshToken == "" {
		return domain.Token{}, errors.New("refresh token is required")
	}

	requestCtx, cancel := a.requestContext(ctx)
	defer cancel()

	source := a.Provider.oauthConfig().TokenSource(requestCtx, &oauth2.Token{RefreshToken: current.RefreshToken})
	token, err := source.Token()
	if err != nil {
		return domain.Token{}, fmt.Errorf("refresh token: %s", describeOAuthError(err))
	}

	return convertToken(token, current.RefreshToken)
}

// DeviceAuthorizerRouter sends each login to the authorizer registered for
// its provider and falls back to Default.
type DeviceAuthorizerRouter struct {
	Default   ports.DeviceAuthorizer
	Providers map[string]ports.DeviceAuthorizer
}

var _ ports.DeviceAuthorizer = DeviceAuthorizerRouter{}

func (r DeviceAuthorizerRouter) StartDeviceAuthorization(ctx context.Context, provider string) (domain.DeviceLoginSession, error) {
	authorizer, err := r.route(provider)
	if err != nil {
		return domain.DeviceLoginSession{}, err
	}
	return authorizer.StartDeviceAuthorization(ctx, provider)
}

func (r DeviceAuthorizerRouter) AwaitGrant(ctx context.Context, session domain.DeviceLoginSession) (domain.DeviceGrant, error) {
	authorizer, err := r.route(session.Provider)
	if err != nil {
		return domain.DeviceGrant{}, err
	}
	return authorizer.AwaitGrant(ctx, session)
}

func (r DeviceAuthorizerRouter) route(provider string) (ports.DeviceAuthorizer, error) {
	if authorizer, ok := r.Providers[strings.ToLower(provider)]; ok {
		return authorizer, nil
	}
	if r.Default == nil {
		return nil, fmt.Errorf("%w: no authorizer for %q", domain.ErrInvalidProvider, provider)
	}
	return r.Default, nil
}

// RefresherRouter picks the refresher by the provider of the account.
type RefresherRouter struct {
	Default   ports.TokenRefresher
	Providers map[string]ports.TokenRefresher
}

var _ ports.TokenRefresher = RefresherRouter{}

func (r RefresherRouter) Refresh(ctx context.Context, account domain.Account, current domain.Token) (domain.Token, error) {
	if refresher, ok := r.Providers[strings.ToLower(account.Provider)]; ok {
		return refresher.Refresh(ctx, account, current)
	}
	if r.Default == nil {
		return domain.Token{}, fmt.Errorf("%w: no refresher for %q", domain.ErrInvalidProvider, account.Provider)
	}
	return r.Default.Refresh(ctx, account, current)
}
