package domain

import "errors"

var (
	ErrLoggingInit = errors.New("logging initialization failed")
	ErrConfigIO    = errors.New("configuration i/o error")
	ErrConfigParse = errors.New("configuration parse error")
	ErrPersistence = errors.New("account store write failed")

	ErrTokenNotFound        = errors.New("token not found")
	ErrAccountNotFound      = errors.New("account not found")
	ErrSecretNotFound       = errors.New("secret not found")
	ErrLoginSessionNotFound = errors.New("device login session not found")
	ErrDeviceLoginExpired   = errors.New("device login session expired")
	ErrRegistryPoisoned     = errors.New("account registry unavailable after a previous failure")

	ErrInvalidUsername = errors.New("username is required")
	ErrInvalidProvider = errors.New("provider is required")
)
