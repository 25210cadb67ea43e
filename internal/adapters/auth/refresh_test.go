package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
	"github.com/yuuki-launcher/yuuki-core/internal/ports/mocks"
)

func newRefreshServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Provider) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return server, Provider{
		Name:          "microsoft",
		ClientID:      "client-123",
		DeviceAuthURL: server.URL + "/device",
		TokenURL:      server.URL + "/token",
	}
}

func TestRefreshAdapterExchangesRefreshToken(t *testing.T) {
	t.Parallel()

	server, provider := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "refresh-old", r.Form.Get("refresh_token"))
		assert.Equal(t, "client-123", r.Form.Get("client_id"))

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-new",
			"refresh_token": "refresh-new",
			"token_type":    "Bearer",
			"expires_in":    900,
		})
	})

	adapter, err := NewRefreshAdapter(provider, server.Client())
	require.NoError(t, err)

	token, err := adapter.Refresh(context.Background(), domain.Account{ID: "microsoft:1"}, domain.Token{AccessToken: "a", RefreshToken: "refresh-old"})
	require.NoError(t, err)
	assert.Equal(t, domain.Token{AccessToken: "access-new", RefreshToken: "refresh-new", ExpiresIn: 900}, token)
}

func TestRefreshAdapterKeepsRefreshTokenWhenNotRotated(t *testing.T) {
	t.Parallel()

	server, provider := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "access-new", "token_type": "Bearer", "expires_in": 60})
	})

	adapter, err := NewRefreshAdapter(provider, server.Client())
	require.NoError(t, err)

	token, err := adapter.Refresh(context.Background(), domain.Account{}, domain.Token{AccessToken: "a", RefreshToken: "refresh-old"})
	require.NoError(t, err)
	assert.Equal(t, "access-new", token.AccessToken)
	assert.Equal(t, "refresh-old", token.RefreshToken)
}

func TestRefreshAdapterReportsProviderError(t *testing.T) {
	t.Parallel()

	server, provider := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "refresh token revoked"})
	})

	adapter, err := NewRefreshAdapter(provider, server.Client())
	require.NoError(t, err)

	_, err = adapter.Refresh(context.Background(), domain.Account{}, domain.Token{AccessToken: "a", RefreshToken: "refresh-old"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_grant: refresh token revoked")
}

func TestRefreshAdapterNeverReturnsPartialToken(t *testing.T) {
	t.Parallel()

	server, provider := newRefreshServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"token_type": "Bearer"})
	})

	adapter, err := NewRefreshAdapter(provider, server.Client())
	require.NoError(t, err)

	token, err := adapter.Refresh(context.Background(), domain.Account{}, domain.Token{AccessToken: "a", RefreshToken: "refresh-old"})
	require.Error(t, err)
	assert.Equal(t, domain.Token{}, token)
}

func TestRefreshAdapterRequiresRefreshToken(t *testing.T) {
	t.Parallel()

	adapter := RefreshAdapter{}
	_, err := adapter.Refresh(context.Background(), domain.Account{}, domain.Token{AccessToken: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "refresh token is required")
}

func TestRefresherRouterRoutesByAccountProvider(t *testing.T) {
	t.Parallel()

	fallback := mocks.NewMockTokenRefresher(t)
	microsoft := mocks.NewMockTokenRefresher(t)
	router := RefresherRouter{
		Default:   fallback,
		Providers: map[string]ports.TokenRefresher{"microsoft": microsoft},
	}

	msAccount := domain.Account{ID: "microsoft:1", Provider: "Microsoft"}
	offline := domain.Account{ID: "offline-1", Provider: "offline"}
	current := domain.Token{AccessToken: "a", RefreshToken: "r"}

	microsoft.EXPECT().Refresh(context.Background(), msAccount, current).Return(domain.Token{AccessToken: "ms", RefreshToken: "ms-r"}, nil).Once()
	fallback.EXPECT().Refresh(context.Background(), offline, current).Return(domain.Token{AccessToken: "local", RefreshToken: "local-r"}, nil).Once()

	token, err := router.Refresh(context.Background(), msAccount, current)
	require.NoError(t, err)
	assert.Equal(t, "ms", token.AccessToken)

	token, err = router.Refresh(context.Background(), offline, current)
	require.NoError(t, err)
	assert.Equal(t, "local", token.AccessToken)
}

func TestRefresherRouterWithoutDefaultRejectsUnknownProvider(t *testing.T) {
	t.Parallel()

	_, err := RefresherRouter{}.Refresh(context.Background(), domain.Account{Provider: "littleskin"}, domain.Token{})
	require.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestDeviceAuthorizerRouterRoutesStartAndAwait(t *testing.T) {
	t.Parallel()

	fallback := mocks.NewMockDeviceAuthorizer(t)
	littleskin := mocks.NewMockDeviceAuthorizer(t)
	router := DeviceAuthorizerRouter{
		Default:   fallback,
		Providers: map[string]ports.DeviceAuthorizer{"littleskin": littleskin},
	}

	session := domain.DeviceLoginSession{Provider: "littleskin", DeviceCode: "d-1"}
	littleskin.EXPECT().StartDeviceAuthorization(context.Background(), "littleskin").Return(session, nil).Once()
	littleskin.EXPECT().AwaitGrant(context.Background(), session).Return(domain.DeviceGrant{}, errors.New("denied")).Once()
	fallback.EXPECT().StartDeviceAuthorization(context.Background(), "microsoft").Return(domain.DeviceLoginSession{Provider: "microsoft"}, nil).Once()

	got, err := router.StartDeviceAuthorization(context.Background(), "littleskin")
	require.NoError(t, err)
	assert.Equal(t, session, got)

	_, err = router.AwaitGrant(context.Background(), session)
	require.EqualError(t, err, "denied")

	got, err = router.StartDeviceAuthorization(context.Background(), "microsoft")
	require.NoError(t, err)
	assert.Equal(t, "microsoft", got.Provider)
}
