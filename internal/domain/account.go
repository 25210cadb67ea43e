package domain

import (
	"fmt"
	"strings"
	"time"
)

type AccountID string

type AccountType string

const (
	AccountTypeMicrosoft  AccountType = "Microsoft"
	AccountTypeOffline    AccountType = "Offline"
	AccountTypeLittleSkin AccountType = "LittleSkin"
)

func ParseAccountType(raw string) (AccountType, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "microsoft":
		return AccountTypeMicrosoft, nil
	case "offline":
		return AccountTypeOffline, nil
	case "littleskin":
		return AccountTypeLittleSkin, nil
	default:
		return "", fmt.Errorf("unsupported account type %q", raw)
	}
}

type AccountStatus string

const (
	AccountStatusActive AccountStatus = "active"
	// AccountStatusPending marks an account created by a device login that has
	// not received a token grant yet.
	AccountStatusPending AccountStatus = "pending"
)

const (
	DefaultAccountID       AccountID = "local.offline"
	DefaultAccountUsername           = "Offline Player"
	OfflineProvider                  = "offline"
)

type Account struct {
	ID           AccountID
	Username     string
	Type         AccountType
	Provider     string
	Status       AccountStatus
	PendingUntil time.Time
	CreatedAt    time.Time
}

func DefaultAccount() Account {
	return Account{
		ID:       DefaultAccountID,
		Username: DefaultAccountUsername,
		Type:     AccountTypeOffline,
		Provider: OfflineProvider,
		Status:   AccountStatusActive,
	}
}

func (a Account) IsPending() bool {
	return a.Status == AccountStatusPending
}

// PendingExpired reports whether a pending account outlived its login session.
func (a Account) PendingExpired(now time.Time) bool {
	if !a.IsPending() || a.PendingUntil.IsZero() {
		return false
	}

	return !now.Before(a.PendingUntil)
}
