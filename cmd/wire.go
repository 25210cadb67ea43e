package cmd

import (
	"fmt"
	"net/http"
	"time"

	authadapter "github.com/yuuki-launcher/yuuki-core/internal/adapters/auth"
	accountsrender "github.com/yuuki-launcher/yuuki-core/internal/adapters/render/accounts"
	tomlrepo "github.com/yuuki-launcher/yuuki-core/internal/adapters/repo/toml"
	chainstore "github.com/yuuki-launcher/yuuki-core/internal/adapters/secrets/chain"
	keyringstore "github.com/yuuki-launcher/yuuki-core/internal/adapters/secrets/keyring"
	passstore "github.com/yuuki-launcher/yuuki-core/internal/adapters/secrets/pass"
	"github.com/yuuki-launcher/yuuki-core/internal/application"
	"github.com/yuuki-launcher/yuuki-core/internal/config"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/logging"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
	"go.uber.org/zap"
)

type app struct {
	cfg            *config.Config
	service        *application.Service
	logger         *zap.Logger
	accountsPath   string
	renderAccounts func([]domain.Account, accountsrender.RenderOptions) (string, error)
	httpClient     *http.Client
	now            func() time.Time
}

func (a *app) wire(configPath string) error {
	v, err := config.NewViper(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Init(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	v.Set("accounts.path", cfg.Accounts.Path)
	repo, err := tomlrepo.NewRepository(v)
	if err != nil {
		return fmt.Errorf("wire account repository: %w", err)
	}

	secrets, err := newSecretStore(cfg.Tokens)
	if err != nil {
		return fmt.Errorf("wire token store: %w", err)
	}

	if a.httpClient == nil {
		a.httpClient = http.DefaultClient
	}
	authorizer, refresher, err := newProviderRouters(cfg.Providers, a.httpClient)
	if err != nil {
		return fmt.Errorf("wire identity providers: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	a.accountsPath = repo.Path()
	a.renderAccounts = accountsrender.Render
	a.now = time.Now
	a.service = application.NewService(repo, application.Options{
		Authorizer: authorizer,
		Refresher:  refresher,
		Secrets:    secrets,
		Logger:     logger,
		Retry: application.RetryPolicy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
		},
	})

	return nil
}

// newSecretStore returns nil for the none store so tokens stay in memory.
func newSecretStore(cfg config.TokensConfig) (ports.SecretStore, error) {
	switch cfg.Store {
	case config.TokenStoreNone:
		return nil, nil
	case config.TokenStoreKeyring:
		return keyringstore.NewStore(cfg.KeyringService), nil
	case config.TokenStorePass:
		return passstore.NewStore(), nil
	case config.TokenStoreChain:
		return chainstore.NewKeyringFirstWithPassFallback(cfg.KeyringService)
	default:
		return nil, fmt.Errorf("unsupported token store %q", cfg.Store)
	}
}

// newProviderRouters registers one OAuth adapter per configured provider.
// Every other provider name is served by the local flow.
func newProviderRouters(providers []config.ProviderConfig, httpClient *http.Client) (authadapter.DeviceAuthorizerRouter, authadapter.RefresherRouter, error) {
	authorizers := authadapter.DeviceAuthorizerRouter{
		Default:   authadapter.LocalDeviceAuthorizer{},
		Providers: make(map[string]ports.DeviceAuthorizer, len(providers)),
	}
	refreshers := authadapter.RefresherRouter{
		Default:   authadapter.LocalTokenIssuer{},
		Providers: make(map[string]ports.TokenRefresher, len(providers)),
	}

	for _, cfg := range providers {
		provider := authadapter.Provider{
			Name:          cfg.Name,
			ClientID:      cfg.ClientID,
			DeviceAuthURL: cfg.DeviceAuthURL,
			TokenURL:      cfg.TokenURL,
			Scopes:        cfg.Scopes,
			ProfileURL:    cfg.ProfileURL,
		}

		deviceFlow, err := authadapter.NewDeviceFlowAdapter(provider, httpClient)
		if err != nil {
			return authadapter.DeviceAuthorizerRouter{}, authadapter.RefresherRouter{}, fmt.Errorf("provider %q: %w", cfg.Name, err)
		}
		refresh, err := authadapter.NewRefreshAdapter(provider, httpClient)
		if err != nil {
			return authadapter.DeviceAuthorizerRouter{}, authadapter.RefresherRouter{}, fmt.Errorf("provider %q: %w", cfg.Name, err)
		}

		authorizers.Providers[cfg.Name] = deviceFlow
		refreshers.Providers[cfg.Name] = refresh
	}

	return authorizers, refreshers, nil
}
