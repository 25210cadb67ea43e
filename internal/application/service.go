package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
	"go.uber.org/zap"
)

var (
	ErrDeviceLoginUnavailable = errors.New("device login is not configured")
	ErrRefreshUnavailable     = errors.New("token refresh is not configured")
)

type Options struct {
	Authorizer ports.DeviceAuthorizer
	Refresher  ports.TokenRefresher
	// Secrets, when set, keeps tokens across restarts.
	Secrets ports.SecretStore
	Clock   ports.Clock
	Logger  *zap.Logger
	Retry   RetryPolicy
}

// Service is the single entry point to the account registry. All registry
// access goes through one mutex; provider calls are made without holding it.
//
// A panic while the mutex is held poisons the Service: that call and every
// later one return domain.ErrRegistryPoisoned.
type Service struct {
	mu       sync.Mutex
	poisoned bool
	registry *Registry

	authorizer ports.DeviceAuthorizer
	refresher  ports.TokenRefresher
	clock      ports.Clock
	logger     *zap.Logger
}

func NewService(repo ports.AccountRepository, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = ports.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Service{
		registry:   NewRegistry(repo, NewTokenVault(opts.Secrets), opts.Clock, opts.Logger, opts.Retry),
		authorizer: opts.Authorizer,
		refresher:  opts.Refresher,
		clock:      opts.Clock,
		logger:     opts.Logger,
	}
}

// Initialize loads the account store. Other calls initialize lazily, so
// calling it is only needed to pay the load cost up front.
func (s *Service) Initialize(ctx context.Context) error {
	return s.withLock(ctx, func(*Registry) error { return nil })
}

func (s *Service) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	var accounts []domain.Account
	err := s.withLock(ctx, func(r *Registry) error {
		accounts = r.ListAccounts(ctx)
		return nil
	})
	return accounts, err
}

func (s *Service) AddOfflineAccount(ctx context.Context, username string) (domain.Account, error) {
	var account domain.Account
	err := s.withLock(ctx, func(r *Registry) error {
		var err error
		account, err = r.AddOfflineAccount(ctx, username)
		return err
	})
	return account, err
}

// StartDeviceLogin opens a device login with the provider and registers a
// pending account for it. A failed account file write is logged and the
// session is still returned.
func (s *Service) StartDeviceLogin(ctx context.Context, provider string) (domain.DeviceLoginSession, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return domain.DeviceLoginSession{}, domain.ErrInvalidProvider
	}
	if s.authorizer == nil {
		return domain.DeviceLoginSession{}, ErrDeviceLoginUnavailable
	}
	if s.isPoisoned() {
		return domain.DeviceLoginSession{}, domain.ErrRegistryPoisoned
	}

	session, err := s.authorizer.StartDeviceAuthorization(ctx, provider)
	if err != nil {
		return domain.DeviceLoginSession{}, fmt.Errorf("start device login: %w", err)
	}

	err = s.withLock(ctx, func(r *Registry) error {
		var persistErr error
		session, persistErr = r.BeginDeviceLogin(ctx, session)
		if persistErr != nil {
			s.logger.Warn("persist device login account failed",
				zap.String("account_id", string(session.AccountID)),
				zap.Error(persistErr),
			)
		}
		return nil
	})
	if err != nil {
		return domain.DeviceLoginSession{}, err
	}

	s.logger.Info("device login started",
		zap.String("provider", provider),
		zap.String("account_id", string(session.AccountID)),
		zap.Uint32("expires_in", session.ExpiresIn),
	)
	return session, nil
}

// CompleteDeviceLogin waits for the provider grant of an open device login
// and promotes its pending account. The wait ends at the login deadline or
// when ctx is done, whichever comes first. An expired login removes the
// pending account and returns domain.ErrDeviceLoginExpired.
func (s *Service) CompleteDeviceLogin(ctx context.Context, deviceCode string) (domain.Account, error) {
	if s.authorizer == nil {
		return domain.Account{}, ErrDeviceLoginUnavailable
	}

	var login DeviceLogin
	err := s.withLock(ctx, func(r *Registry) error {
		var err error
		login, err = r.PendingLogin(ctx, deviceCode)
		return err
	})
	if err != nil {
		return domain.Account{}, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, login.ExpiresAt.Sub(s.clock.Now()))
	defer cancel()

	grant, err := s.authorizer.AwaitGrant(pollCtx, login.Session)
	if err != nil {
		loginExpired := errors.Is(err, domain.ErrDeviceLoginExpired) ||
			(errors.Is(pollCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil)
		if !loginExpired {
			return domain.Account{}, fmt.Errorf("await device login grant: %w", err)
		}

		abandonErr := s.withLock(ctx, func(r *Registry) error {
			return r.AbandonDeviceLogin(ctx, deviceCode)
		})
		if abandonErr != nil && !errors.Is(abandonErr, domain.ErrLoginSessionNotFound) {
			s.logger.Warn("remove expired device login account failed",
				zap.String("account_id", string(login.Session.AccountID)),
				zap.Error(abandonErr),
			)
		}
		return domain.Account{}, domain.ErrDeviceLoginExpired
	}
	if !grant.Token.Valid() {
		return domain.Account{}, errors.New("await device login grant: provider returned an incomplete token")
	}

	var account domain.Account
	err = s.withLock(ctx, func(r *Registry) error {
		var err error
		account, err = r.CompleteDeviceLogin(ctx, deviceCode, grant)
		return err
	})
	if err != nil && !errors.Is(err, domain.ErrPersistence) {
		return domain.Account{}, err
	}

	s.logger.Info("device login completed", zap.String("account_id", string(account.ID)))
	return account, err
}

// RefreshToken rotates the token of id. Unknown ids return
// domain.ErrTokenNotFound and leave the registry untouched.
func (s *Service) RefreshToken(ctx context.Context, id domain.AccountID) (domain.Token, error) {
	if s.refresher == nil {
		return domain.Token{}, ErrRefreshUnavailable
	}

	var account domain.Account
	var current domain.Token
	err := s.withLock(ctx, func(r *Registry) error {
		var err error
		account, current, err = r.TokenFor(id)
		return err
	})
	if err != nil {
		return domain.Token{}, err
	}

	fresh, err := s.refresher.Refresh(ctx, account, current)
	if err != nil {
		return domain.Token{}, fmt.Errorf("refresh token for %q: %w", id, err)
	}
	if !fresh.Valid() {
		return domain.Token{}, fmt.Errorf("refresh token for %q: refresher returned an incomplete token", id)
	}

	err = s.withLock(ctx, func(r *Registry) error {
		return r.CommitToken(ctx, id, fresh)
	})
	if err != nil {
		return domain.Token{}, err
	}
	return fresh, nil
}

func (s *Service) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	return s.withLock(ctx, func(r *Registry) error {
		return r.RemoveAccount(ctx, id)
	})
}

func (s *Service) ExpirePendingLogins(ctx context.Context) ([]domain.AccountID, error) {
	var removed []domain.AccountID
	err := s.withLock(ctx, func(r *Registry) error {
		var err error
		removed, err = r.ExpirePendingLogins(ctx, s.clock.Now())
		return err
	})
	return removed, err
}

// Flush rewrites the account file if an earlier write failed.
func (s *Service) Flush(ctx context.Context) error {
	return s.withLock(ctx, func(r *Registry) error {
		return r.Flush(ctx)
	})
}

func (s *Service) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.registry.Dirty()
}

func (s *Service) isPoisoned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.poisoned
}

func (s *Service) withLock(ctx context.Context, fn func(r *Registry) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.poisoned {
		return domain.ErrRegistryPoisoned
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			s.poisoned = true
			s.logger.Error("account registry panicked, rejecting further calls",
				zap.Any("panic", recovered),
				zap.Stack("stack"),
			)
			err = domain.ErrRegistryPoisoned
		}
	}()

	if !s.registry.Initialized() {
		s.registry.Initialize(ctx)
	}

	return fn(s.registry)
}
