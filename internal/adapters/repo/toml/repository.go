package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
)

const (
	accountsFileMode = 0o600
	accountsDirMode  = 0o700
	tempFilePattern  = ".accounts-*.toml.tmp"
)

type Repository struct {
	accountsPath string
	mu           *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.AccountRepository = (*Repository)(nil)

// NewRepository resolves the store location from accounts.path, falling back
// to <user config dir>/yuuki/accounts.toml.
func NewRepository(cfg *viper.Viper) (*Repository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	accountsPath := strings.TrimSpace(cfg.GetString("accounts.path"))
	if accountsPath == "" {
		defaultPath, err := DefaultAccountsPath()
		if err != nil {
			return nil, err
		}
		accountsPath = defaultPath
	}

	accountsPath, err := normalizeAccountsPath(accountsPath)
	if err != nil {
		return nil, err
	}

	return &Repository{accountsPath: accountsPath, mu: lockForPath(accountsPath)}, nil
}

func (r *Repository) Path() string {
	return r.accountsPath
}

// Load returns the stored accounts in file order. A missing file is an empty
// store, not an error.
func (r *Repository) Load(ctx context.Context) ([]domain.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	file, err := r.readSchema()
	if err != nil {
		return nil, err
	}

	accounts := make([]domain.Account, 0, len(file.Accounts))
	for _, entry := range file.Accounts {
		account, err := fromSchema(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: decode account %q: %w", domain.ErrConfigParse, entry.ID, err)
		}
		accounts = append(accounts, account)
	}

	return accounts, nil
}

func (r *Repository) Replace(ctx context.Context, accounts []domain.Account) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file := fileSchema{Version: currentSchemaVersion, Accounts: make([]accountSchema, 0, len(accounts))}
	for _, account := range accounts {
		file.Accounts = append(file.Accounts, toSchema(account))
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	return r.writeSchema(file)
}

func (r *Repository) readSchema() (fileSchema, error) {
	data, err := os.ReadFile(r.accountsPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fileSchema{}, nil
		}
		return fileSchema{}, fmt.Errorf("%w: read accounts file: %w", domain.ErrConfigIO, err)
	}

	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return fileSchema{}, fmt.Errorf("%w: decode accounts file: %w", domain.ErrConfigParse, err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, fmt.Errorf("%w: %w", domain.ErrConfigParse, err)
	}
	file.applyDefaults()

	return file, nil
}

func DefaultAccountsPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: resolve user config directory: %w", domain.ErrConfigIO, err)
	}

	return filepath.Join(configDir, "yuuki", "accounts.toml"), nil
}

func normalizeAccountsPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve accounts path: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

// writeSchema replaces the accounts file through a temp file in the same
// directory so a failed write never leaves a torn file behind.
func (r *Repository) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(r.accountsPath), accountsDirMode); err != nil {
		return fmt.Errorf("%w: create accounts directory: %w", domain.ErrConfigIO, err)
	}

	data, err := toml.Marshal(file)
	if err != nil {
		return fmt.Errorf("encode accounts file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(r.accountsPath), tempFilePattern)
	if err != nil {
		return fmt.Errorf("%w: create temp accounts file: %w", domain.ErrConfigIO, err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("%w: write temp accounts file: %w", domain.ErrConfigIO, err)
	}

	if err := tempFile.Chmod(accountsFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("%w: chmod temp accounts file: %w", domain.ErrConfigIO, err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("%w: close temp accounts file: %w", domain.ErrConfigIO, err)
	}

	if err := os.Rename(tempName, r.accountsPath); err != nil {
		return fmt.Errorf("%w: replace accounts file: %w", domain.ErrConfigIO, err)
	}

	cleanup = false

	return nil
}

func toSchema(account domain.Account) accountSchema {
	return accountSchema{
		ID:           string(account.ID),
		Username:     account.Username,
		AccountType:  string(account.Type),
		Provider:     account.Provider,
		Status:       string(account.Status),
		PendingUntil: formatTime(account.PendingUntil),
		CreatedAt:    formatTime(account.CreatedAt),
	}
}

func fromSchema(account accountSchema) (domain.Account, error) {
	accountType, err := domain.ParseAccountType(account.AccountType)
	if err != nil {
		return domain.Account{}, err
	}

	status := domain.AccountStatus(account.Status)
	switch status {
	case domain.AccountStatusActive, domain.AccountStatusPending:
	default:
		return domain.Account{}, fmt.Errorf("unsupported account status %q", account.Status)
	}

	return domain.Account{
		ID:           domain.AccountID(account.ID),
		Username:     account.Username,
		Type:         accountType,
		Provider:     account.Provider,
		Status:       status,
		PendingUntil: parseTime(account.PendingUntil),
		CreatedAt:    parseTime(account.CreatedAt),
	}, nil
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}

	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		return ""
	}

	return value.UTC().Format(time.RFC3339)
}
