package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
	"go.uber.org/zap"
)

const pendingDeviceUsername = "New Device"

// RetryPolicy bounds how hard the registry tries to write the account file
// after a mutation.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.MaxAttempts == 0 {
		p.MaxAttempts = defaults.MaxAttempts
	}
	if p.InitialInterval <= 0 {
		p.InitialInterval = defaults.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = max(defaults.MaxInterval, p.InitialInterval)
	}
	return p
}

func (p RetryPolicy) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.InitialInterval
	b.MaxInterval = p.MaxInterval
	return b
}

// DeviceLogin is an open device login. It lives in memory only, until it is
// completed or dropped.
type DeviceLogin struct {
	Session   domain.DeviceLoginSession
	ExpiresAt time.Time
}

// Registry is the authoritative in-memory account set and token map. It is not
// safe for concurrent use; Service serializes every call.
//
// Every mutation rewrites the whole account list. When that write keeps
// failing the registry stays ahead of disk and is marked dirty until a later
// write succeeds.
type Registry struct {
	repo   ports.AccountRepository
	vault  *TokenVault
	clock  ports.Clock
	logger *zap.Logger
	retry  RetryPolicy

	initialized bool
	dirty       bool
	accounts    []domain.Account
	tokens      map[domain.AccountID]domain.Token
	logins      map[string]DeviceLogin
}

func NewRegistry(repo ports.AccountRepository, vault *TokenVault, clock ports.Clock, logger *zap.Logger, retry RetryPolicy) *Registry {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Registry{
		repo:   repo,
		vault:  vault,
		clock:  clock,
		logger: logger,
		retry:  retry.withDefaults(),
		tokens: map[domain.AccountID]domain.Token{},
		logins: map[string]DeviceLogin{},
	}
}

// Initialize loads the stored accounts and always writes the list back. A
// store that cannot be read or parsed is logged and treated as empty.
func (r *Registry) Initialize(ctx context.Context) {
	accounts, err := r.repo.Load(ctx)
	if err != nil {
		r.logger.Warn("load accounts failed, starting with an empty account set", zap.Error(err))
		accounts = nil
	}

	r.accounts = slices.Clone(accounts)
	r.tokens = map[domain.AccountID]domain.Token{}
	r.logins = map[string]DeviceLogin{}
	r.restoreTokens(ctx)

	if expired := r.dropExpiredPending(ctx, r.clock.Now()); len(expired) > 0 {
		r.logger.Info("dropped expired device logins", zap.Int("count", len(expired)))
	}
	r.ensureDefault(ctx)

	if err := r.persist(ctx); err != nil {
		r.logger.Warn("persist accounts after initialization failed", zap.Error(err))
	}
	r.initialized = true
}

func (r *Registry) Initialized() bool {
	return r.initialized
}

// Dirty reports whether the last account file write failed.
func (r *Registry) Dirty() bool {
	return r.dirty
}

// ListAccounts returns a copy of the account list, recreating the default
// account first if the list is empty.
func (r *Registry) ListAccounts(ctx context.Context) []domain.Account {
	if r.ensureDefault(ctx) {
		if err := r.persist(ctx); err != nil {
			r.logger.Warn("persist restored default account failed", zap.Error(err))
		}
	}

	return slices.Clone(r.accounts)
}

// AddOfflineAccount returns the created account even when the write fails;
// the error then wraps domain.ErrPersistence and the account stays in memory.
func (r *Registry) AddOfflineAccount(ctx context.Context, username string) (domain.Account, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return domain.Account{}, domain.ErrInvalidUsername
	}

	id := domain.AccountID("offline-" + uuid.NewString())
	account := domain.Account{
		ID:        id,
		Username:  username,
		Type:      domain.AccountTypeOffline,
		Provider:  domain.OfflineProvider,
		Status:    domain.AccountStatusActive,
		CreatedAt: r.now(),
	}

	r.accounts = append(r.accounts, account)
	r.setToken(ctx, id, domain.OfflineToken(id))

	return account, r.persist(ctx)
}

// BeginDeviceLogin binds session to a new pending account and returns the
// session with its account id filled in.
func (r *Registry) BeginDeviceLogin(ctx context.Context, session domain.DeviceLoginSession) (domain.DeviceLoginSession, error) {
	now := r.now()
	session.AccountID = domain.AccountID(session.Provider + ":" + session.DeviceCode)
	expiresAt := session.Expiry(now)

	r.accounts = append(r.accounts, domain.Account{
		ID:           session.AccountID,
		Username:     pendingDeviceUsername,
		Type:         domain.AccountTypeMicrosoft,
		Provider:     session.Provider,
		Status:       domain.AccountStatusPending,
		PendingUntil: expiresAt,
		CreatedAt:    now,
	})
	r.tokens[session.AccountID] = domain.PendingDeviceToken(session.DeviceCode, session.ExpiresIn)
	r.logins[session.DeviceCode] = DeviceLogin{Session: session, ExpiresAt: expiresAt}

	return session, r.persist(ctx)
}

// PendingLogin looks up an open device login. A login past its deadline is
// abandoned and reported as domain.ErrDeviceLoginExpired.
func (r *Registry) PendingLogin(ctx context.Context, deviceCode string) (DeviceLogin, error) {
	login, ok := r.logins[deviceCode]
	if !ok {
		return DeviceLogin{}, fmt.Errorf("%w: %q", domain.ErrLoginSessionNotFound, deviceCode)
	}

	if !r.clock.Now().Before(login.ExpiresAt) {
		if err := r.AbandonDeviceLogin(ctx, deviceCode); err != nil {
			r.logger.Warn("remove expired device login account failed", zap.String("account_id", string(login.Session.AccountID)), zap.Error(err))
		}
		return DeviceLogin{}, domain.ErrDeviceLoginExpired
	}

	return login, nil
}

// CompleteDeviceLogin promotes the pending account of deviceCode to active
// and binds the granted token to it.
func (r *Registry) CompleteDeviceLogin(ctx context.Context, deviceCode string, grant domain.DeviceGrant) (domain.Account, error) {
	login, ok := r.logins[deviceCode]
	if !ok {
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrLoginSessionNotFound, deviceCode)
	}
	delete(r.logins, deviceCode)

	idx := r.indexOf(login.Session.AccountID)
	if idx < 0 {
		return domain.Account{}, fmt.Errorf("%w: %q", domain.ErrAccountNotFound, login.Session.AccountID)
	}

	account := &r.accounts[idx]
	account.Status = domain.AccountStatusActive
	account.PendingUntil = time.Time{}
	if username := strings.TrimSpace(grant.Username); username != "" {
		account.Username = username
	}
	r.setToken(ctx, account.ID, grant.Token)

	return *account, r.persist(ctx)
}

// AbandonDeviceLogin forgets the login and removes its pending account.
func (r *Registry) AbandonDeviceLogin(ctx context.Context, deviceCode string) error {
	login, ok := r.logins[deviceCode]
	if !ok {
		return fmt.Errorf("%w: %q", domain.ErrLoginSessionNotFound, deviceCode)
	}
	delete(r.logins, deviceCode)

	idx := r.indexOf(login.Session.AccountID)
	if idx < 0 || !r.accounts[idx].IsPending() {
		return nil
	}
	r.removeAt(ctx, idx)
	r.ensureDefault(ctx)

	return r.persist(ctx)
}

// TokenFor returns domain.ErrTokenNotFound for ids without a token. It never
// mutates the registry.
func (r *Registry) TokenFor(id domain.AccountID) (domain.Account, domain.Token, error) {
	token, ok := r.tokens[id]
	if !ok {
		return domain.Account{}, domain.Token{}, fmt.Errorf("%w: %q", domain.ErrTokenNotFound, id)
	}

	var account domain.Account
	if idx := r.indexOf(id); idx >= 0 {
		account = r.accounts[idx]
	}
	return account, token, nil
}

// CommitToken replaces the token of id. Tokens are not part of the account
// file, so nothing is written there.
func (r *Registry) CommitToken(ctx context.Context, id domain.AccountID, token domain.Token) error {
	if _, ok := r.tokens[id]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrTokenNotFound, id)
	}

	r.setToken(ctx, id, token)
	return nil
}

// RemoveAccount deletes the account and its token. Removing the last account
// brings back the default one.
func (r *Registry) RemoveAccount(ctx context.Context, id domain.AccountID) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %q", domain.ErrAccountNotFound, id)
	}

	r.removeAt(ctx, idx)
	r.ensureDefault(ctx)

	return r.persist(ctx)
}

// ExpirePendingLogins removes pending accounts whose login deadline is not
// after now and returns their ids.
func (r *Registry) ExpirePendingLogins(ctx context.Context, now time.Time) ([]domain.AccountID, error) {
	removed := r.dropExpiredPending(ctx, now)
	if len(removed) == 0 {
		return nil, nil
	}
	r.ensureDefault(ctx)

	return removed, r.persist(ctx)
}

// Flush retries a write that failed earlier. It is a no-op when memory and
// disk agree.
func (r *Registry) Flush(ctx context.Context) error {
	if !r.dirty {
		return nil
	}
	return r.persist(ctx)
}

func (r *Registry) dropExpiredPending(ctx context.Context, now time.Time) []domain.AccountID {
	var removed []domain.AccountID
	for idx := len(r.accounts) - 1; idx >= 0; idx-- {
		if r.accounts[idx].PendingExpired(now) {
			removed = append(removed, r.accounts[idx].ID)
			r.removeAt(ctx, idx)
		}
	}
	slices.Reverse(removed)
	return removed
}

func (r *Registry) ensureDefault(ctx context.Context) bool {
	if len(r.accounts) > 0 {
		return false
	}

	account := domain.DefaultAccount()
	r.accounts = append(r.accounts, account)
	r.setToken(ctx, account.ID, domain.DefaultAccountToken())
	return true
}

func (r *Registry) removeAt(ctx context.Context, idx int) {
	id := r.accounts[idx].ID
	r.accounts = slices.Delete(r.accounts, idx, idx+1)
	delete(r.tokens, id)

	for deviceCode, login := range r.logins {
		if login.Session.AccountID == id {
			delete(r.logins, deviceCode)
		}
	}

	if r.vault != nil {
		if err := r.vault.Delete(ctx, id); err != nil {
			r.logger.Warn("delete vaulted token failed", zap.String("account_id", string(id)), zap.Error(err))
		}
	}
}

func (r *Registry) setToken(ctx context.Context, id domain.AccountID, token domain.Token) {
	r.tokens[id] = token

	if r.vault != nil {
		if err := r.vault.Save(ctx, id, token); err != nil {
			r.logger.Warn("vault token failed", zap.String("account_id", string(id)), zap.Error(err))
		}
	}
}

func (r *Registry) restoreTokens(ctx context.Context) {
	if r.vault == nil {
		return
	}

	for _, account := range r.accounts {
		token, err := r.vault.Load(ctx, account.ID)
		if err != nil {
			if !errors.Is(err, domain.ErrSecretNotFound) {
				r.logger.Warn("restore vaulted token failed", zap.String("account_id", string(account.ID)), zap.Error(err))
			}
			continue
		}
		r.tokens[account.ID] = token
	}
}

// now is truncated to the precision of the account file.
func (r *Registry) now() time.Time {
	return r.clock.Now().UTC().Truncate(time.Second)
}

func (r *Registry) indexOf(id domain.AccountID) int {
	return slices.IndexFunc(r.accounts, func(account domain.Account) bool {
		return account.ID == id
	})
}

// persist writes a snapshot of the account list, retrying with exponential
// backoff. Context errors are not retried.
func (r *Registry) persist(ctx context.Context) error {
	snapshot := slices.Clone(r.accounts)

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := r.repo.Replace(ctx, snapshot)
		if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(r.retry.backOff()),
		backoff.WithMaxTries(r.retry.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Debug("retrying account file write", zap.Int("attempt", attempt), zap.Duration("next", next), zap.Error(err))
		}),
	)
	if err != nil {
		r.dirty = true
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	r.dirty = false
	return nil
}
