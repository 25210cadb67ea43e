package domain

import "time"

// Token is the credential pair bound to one account id.
type Token struct {
	AccessToken  string
	RefreshToken string
	// ExpiresIn is the lifetime in seconds; zero means the token never expires.
	ExpiresIn uint32
}

func (t Token) Valid() bool {
	return t.AccessToken != "" && t.RefreshToken != ""
}

type DeviceLoginSession struct {
	Provider        string
	AccountID       AccountID
	UserCode        string
	VerificationURI string
	DeviceCode      string
	ExpiresIn       uint32
	Message         string
	PollInterval    uint32
}

func (s DeviceLoginSession) Expiry(startedAt time.Time) time.Time {
	return startedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// DeviceGrant is what an identity provider hands back once the user has
// confirmed a device login.
type DeviceGrant struct {
	Token    Token
	Username string
}

// PendingDeviceToken is the token bound to an account while its device login
// is still open.
func PendingDeviceToken(deviceCode string, expiresIn uint32) Token {
	return Token{
		AccessToken:  "tok-" + deviceCode,
		RefreshToken: "ref-" + deviceCode,
		ExpiresIn:    expiresIn,
	}
}

// OfflineToken is the never-expiring token of a locally created account.
func OfflineToken(id AccountID) Token {
	return Token{AccessToken: "tok-" + string(id), RefreshToken: "ref-" + string(id)}
}

func DefaultAccountToken() Token {
	return Token{AccessToken: "offline-token", RefreshToken: "offline-refresh"}
}
