package toml

import (
	"fmt"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

const currentSchemaVersion = 1

type fileSchema struct {
	Version  int             `toml:"version"`
	Accounts []accountSchema `toml:"accounts"`
}

func (s *fileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
	for i := range s.Accounts {
		s.Accounts[i].applyDefaults()
	}
}

func (s fileSchema) validateVersion() error {
	if s.Version > currentSchemaVersion {
		return fmt.Errorf("unsupported accounts schema version %d (current %d)", s.Version, currentSchemaVersion)
	}

	return nil
}

type accountSchema struct {
	ID           string `toml:"id"`
	Username     string `toml:"username"`
	AccountType  string `toml:"account_type"`
	Provider     string `toml:"provider"`
	Status       string `toml:"status,omitempty"`
	PendingUntil string `toml:"pending_until,omitempty"`
	CreatedAt    string `toml:"created_at,omitempty"`
}

// applyDefaults fills fields that files written before they existed lack.
func (s *accountSchema) applyDefaults() {
	if s.AccountType == "" {
		s.AccountType = string(domain.AccountTypeOffline)
	}
	if s.Provider == "" && s.AccountType == string(domain.AccountTypeOffline) {
		s.Provider = domain.OfflineProvider
	}
	if s.Status == "" {
		s.Status = string(domain.AccountStatusActive)
	}
}
