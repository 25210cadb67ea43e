package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
	"golang.org/x/oauth2"
)

const (
	maxOAuthResponseBytes = 1 << 20
	defaultExpiresIn      = 600
	defaultPollInterval   = 5
)

const (
	errCodeExpiredToken = "expired_token"
	errCodeAccessDenied = "access_denied"
)

var ErrDeviceAccessDenied = errors.New("device authorization denied")

// Provider describes one RFC 8628 identity provider.
type Provider struct {
	Name          string
	ClientID      string
	DeviceAuthURL string
	TokenURL      string
	Scopes        []string
	// ProfileURL, when set, is fetched with the granted access token to learn
	// the username. The response must be a JSON object with a "name" field.
	ProfileURL string
}

func (p Provider) validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return domain.ErrInvalidProvider
	}
	if p.ClientID == "" {
		return errors.New("client id is required")
	}
	if err := validateEndpoint("device auth url", p.DeviceAuthURL); err != nil {
		return err
	}
	if err := validateEndpoint("token url", p.TokenURL); err != nil {
		return err
	}
	if p.ProfileURL != "" {
		if err := validateEndpoint("profile url", p.ProfileURL); err != nil {
			return err
		}
	}
	return nil
}

func (p Provider) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID: p.ClientID,
		Scopes:   p.Scopes,
		Endpoint: oauth2.Endpoint{
			DeviceAuthURL: p.DeviceAuthURL,
			TokenURL:      p.TokenURL,
			AuthStyle:     oauth2.AuthStyleInParams,
		},
	}
}

// OAuthClient carries the HTTP plumbing shared by the device authorizer and
// the refresher.
type OAuthClient struct {
	Provider       Provider
	HTTPClient     *http.Client
	RequestTimeout time.Duration
}

type DeviceFlowAdapter struct {
	OAuthClient
}

var _ ports.DeviceAuthorizer = DeviceFlowAdapter{}

func NewDeviceFlowAdapter(provider Provider, httpClient *http.Client) (DeviceFlowAdapter, error) {
	if err := provider.validate(); err != nil {
		return DeviceFlowAdapter{}, err
	}

	return DeviceFlowAdapter{OAuthClient: OAuthClient{Provider: provider, HTTPClient: httpClient}}, nil
}

func (a DeviceFlowAdapter) StartDeviceAuthorization(ctx context.Context, provider string) (domain.DeviceLoginSession, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeviceLoginSession{}, err
	}
	if !strings.EqualFold(provider, a.Provider.Name) {
		return domain.DeviceLoginSession{}, fmt.Errorf("%w: %q is not served by %q", domain.ErrInvalidProvider, provider, a.Provider.Name)
	}

	requestCtx, cancel := a.requestContext(ctx)
	defer cancel()

	response, err := a.Provider.oauthConfig().DeviceAuth(requestCtx)
	if err != nil {
		return domain.DeviceLoginSession{}, fmt.Errorf("request device code: %s", describeOAuthError(err))
	}
	if response.DeviceCode == "" || response.UserCode == "" || response.VerificationURI == "" {
		return domain.DeviceLoginSession{}, errors.New("device code response missing required fields")
	}

	expiresIn := uint32(defaultExpiresIn)
	if !response.Expiry.IsZero() {
		if remaining := time.Until(response.Expiry).Round(time.Second); remaining > 0 {
			expiresIn = uint32(remaining / time.Second)
		}
	}

	interval := uint32(defaultPollInterval)
	if response.Interval > 0 {
		interval = uint32(response.Interval)
	}

	return domain.DeviceLoginSession{
		Provider:        provider,
		UserCode:        response.UserCode,
		VerificationURI: response.VerificationURI,
		DeviceCode:      response.DeviceCode,
		ExpiresIn:       expiresIn,
		Message:         DeviceLoginMessage(response.UserCode, response.VerificationURI),
		PollInterval:    interval,
	}, nil
}

// AwaitGrant polls the token endpoint until the user confirms the login. The
// caller bounds the wait through ctx; slow_down and authorization_pending are
// handled by the oauth2 package.
func (a DeviceFlowAdapter) AwaitGrant(ctx context.Context, session domain.DeviceLoginSession) (domain.DeviceGrant, error) {
	if err := ctx.Err(); err != nil {
		return domain.DeviceGrant{}, err
	}
	if session.DeviceCode == "" {
		return domain.DeviceGrant{}, errors.New("device code is required")
	}

	pollCtx := a.clientContext(ctx)
	token, err := a.Provider.oauthConfig().DeviceAccessToken(pollCtx, &oauth2.DeviceAuthResponse{
		DeviceCode:      session.DeviceCode,
		UserCode:        session.UserCode,
		VerificationURI: session.VerificationURI,
		Interval:        int64(session.PollInterval),
	})
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			switch retrieveErr.ErrorCode {
			case errCodeExpiredToken:
				return domain.DeviceGrant{}, domain.ErrDeviceLoginExpired
			case errCodeAccessDenied:
				return domain.DeviceGrant{}, ErrDeviceAccessDenied
			}
			return domain.DeviceGrant{}, fmt.Errorf("request token: %s", describeOAuthError(err))
		}
		return domain.DeviceGrant{}, err
	}

	converted, err := convertToken(token, "")
	if err != nil {
		return domain.DeviceGrant{}, err
	}

	username := ""
	if a.Provider.ProfileURL != "" {
		username, err = a.fetchUsername(ctx, converted.AccessToken)
		if err != nil {
			return domain.DeviceGrant{}, err
		}
	}

	return domain.DeviceGrant{Token: converted, Username: username}, nil
}

func (a DeviceFlowAdapter) fetchUsername(ctx context.Context, accessToken string) (string, error) {
	requestCtx, cancel := a.requestContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, a.Provider.ProfileURL, nil)
	if err != nil {
		return "", fmt.Errorf("create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("request profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("request profile: status %d", resp.StatusCode)
	}

	var profile struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxOAuthResponseBytes)).Decode(&profile); err != nil {
		return "", fmt.Errorf("decode profile response: %w", err)
	}

	return strings.TrimSpace(profile.Name), nil
}

func (c OAuthClient) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c OAuthClient) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient())
}

func (c OAuthClient) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = c.clientContext(ctx)
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}

	requestTimeout := c.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	return context.WithTimeout(ctx, requestTimeout)
}

// convertToken rejects partial tokens. fallbackRefresh is used when the
// provider rotates only the access token.
func convertToken(token *oauth2.Token, fallbackRefresh string) (domain.Token, error) {
	if token == nil || token.AccessToken == "" {
		return domain.Token{}, errors.New("token response missing access token")
	}

	refresh := token.RefreshToken
	if refresh == "" {
		refresh = fallbackRefresh
	}
	if refresh == "" {
		return domain.Token{}, errors.New("token response missing refresh token")
	}

	var expiresIn uint32
	switch {
	case token.ExpiresIn > 0:
		expiresIn = uint32(token.ExpiresIn)
	case !token.Expiry.IsZero():
		if remaining := time.Until(token.Expiry).Round(time.Second); remaining > 0 {
			expiresIn = uint32(remaining / time.Second)
		}
	}

	return domain.Token{AccessToken: token.AccessToken, RefreshToken: refresh, ExpiresIn: expiresIn}, nil
}

func describeOAuthError(err error) string {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return err.Error()
	}
	if retrieveErr.ErrorCode == "" {
		if retrieveErr.Response != nil {
			return fmt.Sprintf("status %d", retrieveErr.Response.StatusCode)
		}
		return err.Error()
	}
	if retrieveErr.ErrorDescription != "" {
		return retrieveErr.ErrorCode + ": " + retrieveErr.ErrorDescription
	}
	return retrieveErr.ErrorCode
}

func validateEndpoint(name string, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", name)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s host is required", name)
	}
	return nil
}
