package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yuuki-launcher/yuuki-core/internal/adapters/auth"
	tomlrepo "github.com/yuuki-launcher/yuuki-core/internal/adapters/repo/toml"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
	"github.com/yuuki-launcher/yuuki-core/internal/ports/mocks"
)

var fastRetry = RetryPolicy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}

func newTOMLRepository(t *testing.T, accountsPath string) *tomlrepo.Repository {
	t.Helper()

	cfg := viper.New()
	cfg.Set("accounts.path", accountsPath)

	repo, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)
	return repo
}

func localOptions() Options {
	return Options{
		Authorizer: auth.LocalDeviceAuthorizer{},
		Refresher:  auth.LocalTokenIssuer{},
		Retry:      fastRetry,
	}
}

func newLocalService(t *testing.T) (*Service, string) {
	t.Helper()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	return NewService(newTOMLRepository(t, accountsPath), localOptions()), accountsPath
}

func mockAnyContext() interface{} {
	return mock.Anything
}

// settableClock is a Clock whose time tests move by hand.
type settableClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *settableClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *settableClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type memorySecrets struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemorySecrets() *memorySecrets {
	return &memorySecrets{values: map[string]string{}}
}

func (m *memorySecrets) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	if !ok {
		return "", domain.ErrSecretNotFound
	}
	return value, nil
}

func (m *memorySecrets) Put(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memorySecrets) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

var _ ports.SecretStore = (*memorySecrets)(nil)

func assertTokensCoverAccounts(t *testing.T, s *Service) {
	t.Helper()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, account := range s.registry.accounts {
		_, ok := s.registry.tokens[account.ID]
		assert.True(t, ok, "account %q has no token", account.ID)
	}
}

func TestServiceFreshSystemListsOnlyDefaultAccount(t *testing.T) {
	t.Parallel()

	service, accountsPath := newLocalService(t)

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	account := accounts[0]
	assert.Equal(t, domain.AccountID("local.offline"), account.ID)
	assert.Equal(t, "Offline Player", account.Username)
	assert.Equal(t, domain.AccountTypeOffline, account.Type)
	assert.Equal(t, "offline", account.Provider)

	_, err = os.Stat(accountsPath)
	require.NoError(t, err, "initialization writes the store even when nothing changed")
}

func TestServiceDefaultAccountHasOfflineToken(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	require.NoError(t, service.Initialize(context.Background()))

	service.mu.Lock()
	token := service.registry.tokens[domain.DefaultAccountID]
	service.mu.Unlock()

	assert.Equal(t, domain.Token{AccessToken: "offline-token", RefreshToken: "offline-refresh"}, token)
}

func TestServiceListAccountsIsNeverEmpty(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	ctx := context.Background()

	steps := []func() error{
		func() error { _, err := service.AddOfflineAccount(ctx, "Steve"); return err },
		func() error { return service.RemoveAccount(ctx, domain.DefaultAccountID) },
		func() error {
			accounts, err := service.ListAccounts(ctx)
			if err != nil {
				return err
			}
			return service.RemoveAccount(ctx, accounts[0].ID)
		},
		func() error { _, err := service.StartDeviceLogin(ctx, "microsoft"); return err },
		func() error { _, err := service.ExpirePendingLogins(ctx); return err },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)

		accounts, err := service.ListAccounts(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, accounts, "step %d", i)
	}
}

func TestServiceListAccountsReturnsCopy(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	accounts[0].Username = "tampered"

	again, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Offline Player", again[0].Username)
}

func TestServiceListAccountsRestoresDefaultAfterTampering(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	require.NoError(t, service.Initialize(context.Background()))

	service.mu.Lock()
	service.registry.accounts = nil
	service.mu.Unlock()

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, domain.DefaultAccountID, accounts[0].ID)
}

func TestServiceAddOfflineAccount(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	ctx := context.Background()

	account, err := service.AddOfflineAccount(ctx, "Steve")
	require.NoError(t, err)

	assert.Equal(t, "Steve", account.Username)
	assert.Equal(t, domain.AccountTypeOffline, account.Type)
	assert.Equal(t, "offline", account.Provider)
	assert.NotEqual(t, domain.DefaultAccountID, account.ID)
	assert.True(t, strings.HasPrefix(string(account.ID), "offline-"))

	accounts, err := service.ListAccounts(ctx)
	require.NoError(t, err)
	ids := []domain.AccountID{accounts[0].ID, accounts[1].ID}
	assert.ElementsMatch(t, []domain.AccountID{domain.DefaultAccountID, account.ID}, ids)

	assertTokensCoverAccounts(t, service)

	_, token, err := service.registry.TokenFor(account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfflineToken(account.ID), token)
}

func TestServiceAddOfflineAccountStampsCreatedAtFromClock(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2026, 10, 14, 9, 30, 15, 500, time.UTC)
	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(createdAt)

	opts := localOptions()
	opts.Clock = clock
	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	service := NewService(newTOMLRepository(t, accountsPath), opts)

	account, err := service.AddOfflineAccount(context.Background(), "Alex")
	require.NoError(t, err)
	assert.Equal(t, createdAt.Truncate(time.Second), account.CreatedAt)

	reloaded := NewService(newTOMLRepository(t, accountsPath), localOptions())
	accounts, err := reloaded.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, createdAt.Truncate(time.Second).Equal(accounts[1].CreatedAt))
}

func TestServiceAddOfflineAccountGeneratesDistinctIDs(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)

	first, err := service.AddOfflineAccount(context.Background(), "Alex")
	require.NoError(t, err)
	second, err := service.AddOfflineAccount(context.Background(), "Alex")
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
}

func TestServiceAddOfflineAccountRejectsBlankUsername(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)

	_, err := service.AddOfflineAccount(context.Background(), "   ")
	require.ErrorIs(t, err, domain.ErrInvalidUsername)

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestServiceRefreshTokenUnknownIDIsMissWithoutMutation(t *testing.T) {
	t.Parallel()

	refresher := mocks.NewMockTokenRefresher(t)
	opts := localOptions()
	opts.Refresher = refresher
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	_, err := service.AddOfflineAccount(context.Background(), "Steve")
	require.NoError(t, err)

	service.mu.Lock()
	accountsBefore := append([]domain.Account(nil), service.registry.accounts...)
	tokensBefore := map[domain.AccountID]domain.Token{}
	for id, token := range service.registry.tokens {
		tokensBefore[id] = token
	}
	service.mu.Unlock()

	_, err = service.RefreshToken(context.Background(), "no-such-account")
	require.ErrorIs(t, err, domain.ErrTokenNotFound)

	service.mu.Lock()
	defer service.mu.Unlock()
	assert.Equal(t, accountsBefore, service.registry.accounts)
	assert.Equal(t, tokensBefore, service.registry.tokens)
}

func TestServiceRefreshTokenRotatesBothValues(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	ctx := context.Background()

	account, err := service.AddOfflineAccount(ctx, "Steve")
	require.NoError(t, err)
	_, before, err := service.registry.TokenFor(account.ID)
	require.NoError(t, err)

	refreshed, err := service.RefreshToken(ctx, account.ID)
	require.NoError(t, err)

	assert.NotEqual(t, before.AccessToken, refreshed.AccessToken)
	assert.NotEqual(t, before.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, uint32(900), refreshed.ExpiresIn)
	assert.Regexp(t, `^tok-\d{6}$`, refreshed.AccessToken)
	assert.Regexp(t, `^ref-\d{6}$`, refreshed.RefreshToken)

	_, stored, err := service.registry.TokenFor(account.ID)
	require.NoError(t, err)
	assert.Equal(t, refreshed, stored)
}

func TestServiceRefreshTokenCallsRefresherWithoutHoldingLock(t *testing.T) {
	t.Parallel()

	refresher := mocks.NewMockTokenRefresher(t)
	opts := localOptions()
	opts.Refresher = refresher
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	refresher.EXPECT().
		Refresh(mockAnyContext(), mock.AnythingOfType("domain.Account"), domain.DefaultAccountToken()).
		RunAndReturn(func(ctx context.Context, account domain.Account, current domain.Token) (domain.Token, error) {
			// Reentrant call deadlocks if the registry lock is held here.
			accounts, err := service.ListAccounts(ctx)
			require.NoError(t, err)
			assert.Len(t, accounts, 1)
			assert.Equal(t, domain.DefaultAccountID, account.ID)
			return domain.Token{AccessToken: "new-access", RefreshToken: "new-refresh", ExpiresIn: 3600}, nil
		}).Once()

	token, err := service.RefreshToken(context.Background(), domain.DefaultAccountID)
	require.NoError(t, err)
	assert.Equal(t, "new-access", token.AccessToken)
}

func TestServiceRefreshTokenRejectsPartialToken(t *testing.T) {
	t.Parallel()

	refresher := mocks.NewMockTokenRefresher(t)
	opts := localOptions()
	opts.Refresher = refresher
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	refresher.EXPECT().Refresh(mockAnyContext(), mock.Anything, mock.Anything).
		Return(domain.Token{AccessToken: "only-access"}, nil).Once()

	_, err := service.RefreshToken(context.Background(), domain.DefaultAccountID)
	require.Error(t, err)

	_, stored, err := service.registry.TokenFor(domain.DefaultAccountID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultAccountToken(), stored)
}

func TestServiceRefreshTokenSurfacesProviderError(t *testing.T) {
	t.Parallel()

	refresher := mocks.NewMockTokenRefresher(t)
	opts := localOptions()
	opts.Refresher = refresher
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	refresher.EXPECT().Refresh(mockAnyContext(), mock.Anything, mock.Anything).
		Return(domain.Token{}, errors.New("invalid_grant")).Once()

	_, err := service.RefreshToken(context.Background(), domain.DefaultAccountID)
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid_grant")
	assert.NotErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestServiceStartDeviceLoginScenario(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	ctx := context.Background()

	session, err := service.StartDeviceLogin(ctx, "microsoft")
	require.NoError(t, err)

	assert.Equal(t, uint32(5), session.PollInterval)
	assert.Equal(t, uint32(600), session.ExpiresIn)
	assert.Regexp(t, regexp.MustCompile(`^MICROSOFT-\d{6}$`), session.UserCode)
	assert.Equal(t, "https://microsoft.com/devicelogin", session.VerificationURI)
	assert.Equal(t, "Enter "+session.UserCode+" at https://microsoft.com/devicelogin to link your account.", session.Message)
	assert.Equal(t, domain.AccountID("microsoft:"+session.DeviceCode), session.AccountID)

	accounts, err := service.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	created := accounts[1]
	assert.Equal(t, session.AccountID, created.ID)
	assert.Equal(t, "New Device", created.Username)
	assert.Equal(t, domain.AccountTypeMicrosoft, created.Type)
	assert.Equal(t, "microsoft", created.Provider)
	assert.True(t, created.IsPending())
	assert.Equal(t, created.CreatedAt.Add(10*time.Minute), created.PendingUntil)

	assertTokensCoverAccounts(t, service)
	_, token, err := service.registry.TokenFor(created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Token{AccessToken: "tok-" + session.DeviceCode, RefreshToken: "ref-" + session.DeviceCode, ExpiresIn: 600}, token)
}

func TestServiceStartDeviceLoginRejectsEmptyProvider(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)

	_, err := service.StartDeviceLogin(context.Background(), " ")
	require.ErrorIs(t, err, domain.ErrInvalidProvider)
}

func TestServiceStartDeviceLoginReturnsSessionWhenPersistFails(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().Load(mockAnyContext()).Return(nil, nil).Once()
	repo.EXPECT().Replace(mockAnyContext(), mock.Anything).Return(nil).Once()
	repo.EXPECT().Replace(mockAnyContext(), mock.Anything).Return(errors.New("disk full")).Times(3)

	core, logs := observer.New(zap.WarnLevel)
	opts := localOptions()
	opts.Logger = zap.New(core)
	service := NewService(repo, opts)

	session, err := service.StartDeviceLogin(context.Background(), "microsoft")
	require.NoError(t, err)
	assert.NotEmpty(t, session.DeviceCode)
	assert.True(t, service.Dirty())

	entries := logs.FilterMessage("persist device login account failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, string(session.AccountID), entries[0].ContextMap()["account_id"])
}

func TestServiceCompleteDeviceLoginPromotesPendingAccount(t *testing.T) {
	t.Parallel()

	service, accountsPath := newLocalService(t)
	ctx := context.Background()

	session, err := service.StartDeviceLogin(ctx, "microsoft")
	require.NoError(t, err)

	account, err := service.CompleteDeviceLogin(ctx, session.DeviceCode)
	require.NoError(t, err)
	assert.Equal(t, session.AccountID, account.ID)
	assert.Equal(t, domain.AccountStatusActive, account.Status)
	assert.True(t, account.PendingUntil.IsZero())

	stored, err := newTOMLRepository(t, accountsPath).Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, domain.AccountStatusActive, stored[1].Status)

	_, err = service.CompleteDeviceLogin(ctx, session.DeviceCode)
	require.ErrorIs(t, err, domain.ErrLoginSessionNotFound)
}

func TestServiceCompleteDeviceLoginUsesGrantedUsernameAndToken(t *testing.T) {
	t.Parallel()

	authorizer := mocks.NewMockDeviceAuthorizer(t)
	opts := localOptions()
	opts.Authorizer = authorizer
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	session := domain.DeviceLoginSession{
		Provider:        "microsoft",
		UserCode:        "ABCD-EFGH",
		VerificationURI: "https://example.com/activate",
		DeviceCode:      "device-1",
		ExpiresIn:       900,
		PollInterval:    5,
	}
	grant := domain.DeviceGrant{
		Token:    domain.Token{AccessToken: "access", RefreshToken: "refresh", ExpiresIn: 3600},
		Username: "Notch",
	}

	authorizer.EXPECT().StartDeviceAuthorization(mockAnyContext(), "microsoft").Return(session, nil).Once()
	authorizer.EXPECT().AwaitGrant(mockAnyContext(), mock.MatchedBy(func(s domain.DeviceLoginSession) bool {
		return s.DeviceCode == "device-1" && s.AccountID == "microsoft:device-1"
	})).Return(grant, nil).Once()

	started, err := service.StartDeviceLogin(context.Background(), "microsoft")
	require.NoError(t, err)

	account, err := service.CompleteDeviceLogin(context.Background(), started.DeviceCode)
	require.NoError(t, err)
	assert.Equal(t, "Notch", account.Username)

	_, token, err := service.registry.TokenFor(account.ID)
	require.NoError(t, err)
	assert.Equal(t, grant.Token, token)
}

func TestServiceCompleteDeviceLoginUnknownSession(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)

	_, err := service.CompleteDeviceLogin(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrLoginSessionNotFound)
}

func TestServiceCompleteDeviceLoginAfterDeadlineRemovesPendingAccount(t *testing.T) {
	t.Parallel()

	clock := &settableClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	opts := localOptions()
	opts.Clock = clock
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	session, err := service.StartDeviceLogin(context.Background(), "microsoft")
	require.NoError(t, err)

	clock.Set(clock.Now().Add(10 * time.Minute))

	_, err = service.CompleteDeviceLogin(context.Background(), session.DeviceCode)
	require.ErrorIs(t, err, domain.ErrDeviceLoginExpired)

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, domain.DefaultAccountID, accounts[0].ID)

	_, err = service.RefreshToken(context.Background(), session.AccountID)
	require.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestServiceCompleteDeviceLoginPollingBoundedBySessionExpiry(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	clock := &settableClock{now: start}
	authorizer := mocks.NewMockDeviceAuthorizer(t)
	opts := localOptions()
	opts.Authorizer = authorizer
	opts.Clock = clock
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	authorizer.EXPECT().StartDeviceAuthorization(mockAnyContext(), "microsoft").
		Return(domain.DeviceLoginSession{Provider: "microsoft", DeviceCode: "slow", ExpiresIn: 1, PollInterval: 1}, nil).Once()
	authorizer.EXPECT().AwaitGrant(mockAnyContext(), mock.Anything).
		RunAndReturn(func(ctx context.Context, _ domain.DeviceLoginSession) (domain.DeviceGrant, error) {
			<-ctx.Done()
			return domain.DeviceGrant{}, ctx.Err()
		}).Once()

	_, err := service.StartDeviceLogin(context.Background(), "microsoft")
	require.NoError(t, err)

	clock.Set(start.Add(950 * time.Millisecond))

	_, err = service.CompleteDeviceLogin(context.Background(), "slow")
	require.ErrorIs(t, err, domain.ErrDeviceLoginExpired)

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestServiceCompleteDeviceLoginCallerCancelKeepsPendingAccount(t *testing.T) {
	t.Parallel()

	authorizer := mocks.NewMockDeviceAuthorizer(t)
	opts := localOptions()
	opts.Authorizer = authorizer
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)

	authorizer.EXPECT().StartDeviceAuthorization(mockAnyContext(), "microsoft").
		Return(domain.DeviceLoginSession{Provider: "microsoft", DeviceCode: "wait", ExpiresIn: 600, PollInterval: 5}, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	authorizer.EXPECT().AwaitGrant(mockAnyContext(), mock.Anything).
		RunAndReturn(func(pollCtx context.Context, _ domain.DeviceLoginSession) (domain.DeviceGrant, error) {
			cancel()
			<-pollCtx.Done()
			return domain.DeviceGrant{}, pollCtx.Err()
		}).Once()

	_, err := service.StartDeviceLogin(context.Background(), "microsoft")
	require.NoError(t, err)

	_, err = service.CompleteDeviceLogin(ctx, "wait")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, domain.ErrDeviceLoginExpired)

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.True(t, accounts[1].IsPending())
}

func TestServiceRemoveAccount(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	ctx := context.Background()

	account, err := service.AddOfflineAccount(ctx, "Steve")
	require.NoError(t, err)

	require.NoError(t, service.RemoveAccount(ctx, account.ID))
	_, err = service.RefreshToken(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrTokenNotFound)

	err = service.RemoveAccount(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrAccountNotFound)
}

func TestServiceRemoveLastAccountRecreatesDefault(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	ctx := context.Background()

	require.NoError(t, service.RemoveAccount(ctx, domain.DefaultAccountID))

	accounts, err := service.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, domain.DefaultAccount(), accounts[0])
}

func TestServiceExpirePendingLogins(t *testing.T) {
	t.Parallel()

	clock := &settableClock{now: time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)}
	opts := localOptions()
	opts.Clock = clock
	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), opts)
	ctx := context.Background()

	first, err := service.StartDeviceLogin(ctx, "microsoft")
	require.NoError(t, err)

	clock.Set(clock.Now().Add(5 * time.Minute))
	second, err := service.StartDeviceLogin(ctx, "littleskin")
	require.NoError(t, err)

	removed, err := service.ExpirePendingLogins(ctx)
	require.NoError(t, err)
	assert.Empty(t, removed)

	clock.Set(clock.Now().Add(5 * time.Minute))
	removed, err = service.ExpirePendingLogins(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.AccountID{first.AccountID}, removed)

	accounts, err := service.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, second.AccountID, accounts[1].ID)

	_, err = service.CompleteDeviceLogin(ctx, first.DeviceCode)
	require.ErrorIs(t, err, domain.ErrLoginSessionNotFound)
}

func TestServiceStartDeviceLoginTypesEveryProviderAsMicrosoft(t *testing.T) {
	t.Parallel()

	service, _ := newLocalService(t)
	ctx := context.Background()

	for _, provider := range []string{"littleskin", "ely.by"} {
		session, err := service.StartDeviceLogin(ctx, provider)
		require.NoError(t, err)
		assert.Equal(t, domain.AccountID(provider+":"+session.DeviceCode), session.AccountID)
	}

	accounts, err := service.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 3)
	for _, account := range accounts[1:] {
		assert.Equal(t, domain.AccountTypeMicrosoft, account.Type, account.Provider)
		assert.True(t, account.IsPending())
	}
	assert.Equal(t, "littleskin", accounts[1].Provider)
	assert.Equal(t, "ely.by", accounts[2].Provider)
}

func TestServiceRoundTripIntoFreshRegistry(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	ctx := context.Background()

	first := NewService(newTOMLRepository(t, accountsPath), localOptions())
	_, err := first.AddOfflineAccount(ctx, "Steve")
	require.NoError(t, err)
	_, err = first.StartDeviceLogin(ctx, "microsoft")
	require.NoError(t, err)

	written, err := first.ListAccounts(ctx)
	require.NoError(t, err)

	second := NewService(newTOMLRepository(t, accountsPath), localOptions())
	reloaded, err := second.ListAccounts(ctx)
	require.NoError(t, err)

	assert.Equal(t, written, reloaded)
}

func TestServiceTokensAreLostAcrossRestartWithoutVault(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	ctx := context.Background()

	first := NewService(newTOMLRepository(t, accountsPath), localOptions())
	account, err := first.AddOfflineAccount(ctx, "Steve")
	require.NoError(t, err)

	second := NewService(newTOMLRepository(t, accountsPath), localOptions())
	_, err = second.RefreshToken(ctx, account.ID)
	require.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestServiceVaultRestoresTokensAcrossRestart(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	secrets := newMemorySecrets()
	ctx := context.Background()

	opts := localOptions()
	opts.Secrets = secrets

	first := NewService(newTOMLRepository(t, accountsPath), opts)
	account, err := first.AddOfflineAccount(ctx, "Steve")
	require.NoError(t, err)

	second := NewService(newTOMLRepository(t, accountsPath), opts)
	require.NoError(t, second.Initialize(ctx))

	_, token, err := second.registry.TokenFor(account.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OfflineToken(account.ID), token)

	require.NoError(t, second.RemoveAccount(ctx, account.ID))
	_, err = secrets.Get(ctx, TokenSecretKey(account.ID))
	require.ErrorIs(t, err, domain.ErrSecretNotFound)
}

func TestServiceCorruptStoreStillInitializes(t *testing.T) {
	t.Parallel()

	accountsPath := filepath.Join(t.TempDir(), "accounts.toml")
	require.NoError(t, os.WriteFile(accountsPath, []byte("accounts = [[[ not toml"), 0o600))

	core, logs := observer.New(zap.WarnLevel)
	opts := localOptions()
	opts.Logger = zap.New(core)
	service := NewService(newTOMLRepository(t, accountsPath), opts)

	require.NoError(t, service.Initialize(context.Background()))

	accounts, err := service.ListAccounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, domain.DefaultAccountID, accounts[0].ID)
	assert.Equal(t, 1, logs.FilterMessage("load accounts failed, starting with an empty account set").Len())
}

func TestServicePersistFailureKeepsMemoryAheadUntilFlush(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().Load(mockAnyContext()).Return(nil, nil).Once()
	repo.EXPECT().Replace(mockAnyContext(), mock.Anything).Return(nil).Once()
	repo.EXPECT().Replace(mockAnyContext(), mock.Anything).Return(errors.New("disk full")).Times(3)
	repo.EXPECT().Replace(mockAnyContext(), mock.MatchedBy(func(accounts []domain.Account) bool {
		return len(accounts) == 2 && accounts[1].Username == "Steve"
	})).Return(nil).Once()

	service := NewService(repo, localOptions())
	ctx := context.Background()

	account, err := service.AddOfflineAccount(ctx, "Steve")
	require.ErrorIs(t, err, domain.ErrPersistence)
	assert.Equal(t, "Steve", account.Username)
	assert.True(t, service.Dirty())

	accounts, err := service.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2, "memory stays ahead of disk")

	require.NoError(t, service.Flush(ctx))
	assert.False(t, service.Dirty())
	require.NoError(t, service.Flush(ctx), "clean flush does not write")
}

func TestServiceInitializePersistFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().Load(mockAnyContext()).Return(nil, nil).Once()
	repo.EXPECT().Replace(mockAnyContext(), mock.Anything).Return(errors.New("read-only file system")).Times(3)

	service := NewService(repo, localOptions())

	require.NoError(t, service.Initialize(context.Background()))
	assert.True(t, service.Dirty())
}

func TestServicePanicPoisonsRegistry(t *testing.T) {
	t.Parallel()

	repo := mocks.NewMockAccountRepository(t)
	repo.EXPECT().Load(mockAnyContext()).Return(nil, nil).Once()
	repo.EXPECT().Replace(mockAnyContext(), mock.Anything).Return(nil).Once()
	repo.EXPECT().Replace(mockAnyContext(), mock.Anything).
		RunAndReturn(func(context.Context, []domain.Account) error { panic("disk on fire") }).Once()

	core, logs := observer.New(zap.ErrorLevel)
	opts := localOptions()
	opts.Logger = zap.New(core)
	service := NewService(repo, opts)
	ctx := context.Background()

	_, err := service.AddOfflineAccount(ctx, "Steve")
	require.ErrorIs(t, err, domain.ErrRegistryPoisoned)
	assert.Equal(t, 1, logs.Len())

	_, err = service.ListAccounts(ctx)
	require.ErrorIs(t, err, domain.ErrRegistryPoisoned)

	_, err = service.StartDeviceLogin(ctx, "microsoft")
	require.ErrorIs(t, err, domain.ErrRegistryPoisoned)

	_, err = service.RefreshToken(ctx, domain.DefaultAccountID)
	require.ErrorIs(t, err, domain.ErrRegistryPoisoned)
}

func TestServiceIndependentInstancesDoNotShareState(t *testing.T) {
	t.Parallel()

	serviceA, _ := newLocalService(t)
	serviceB, _ := newLocalService(t)

	_, err := serviceA.AddOfflineAccount(context.Background(), "Steve")
	require.NoError(t, err)

	accounts, err := serviceB.ListAccounts(context.Background())
	require.NoError(t, err)
	assert.Len(t, accounts, 1)
}

func TestServiceConcurrentCallsAreSerialized(t *testing.T) {
	t.Parallel()

	service, accountsPath := newLocalService(t)
	ctx := context.Background()

	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	errCh := make(chan error, workers*perWorker*2)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				account, err := service.AddOfflineAccount(ctx, "player")
				errCh <- err
				if err == nil {
					_, err = service.RefreshToken(ctx, account.ID)
				}
				errCh <- err
				_, _ = service.ListAccounts(ctx)
			}
		}()
	}
	wg.Wait()
	close(errCh)

	for err := range errCh {
		require.NoError(t, err)
	}

	accounts, err := service.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, workers*perWorker+1)
	assertTokensCoverAccounts(t, service)

	stored, err := newTOMLRepository(t, accountsPath).Load(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, workers*perWorker+1)
}

func TestServiceWithoutAuthorizerOrRefresher(t *testing.T) {
	t.Parallel()

	service := NewService(newTOMLRepository(t, filepath.Join(t.TempDir(), "accounts.toml")), Options{Retry: fastRetry})

	_, err := service.StartDeviceLogin(context.Background(), "microsoft")
	require.ErrorIs(t, err, ErrDeviceLoginUnavailable)

	_, err = service.RefreshToken(context.Background(), domain.DefaultAccountID)
	require.ErrorIs(t, err, ErrRefreshUnavailable)
}
