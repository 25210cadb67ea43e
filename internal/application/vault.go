package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yuuki-launcher/yuuki-core/internal/domain"
	"github.com/yuuki-launcher/yuuki-core/internal/ports"
)

// TokenVault keeps account tokens in a secret store so they survive
// restarts. Without a vault tokens live only in memory.
type TokenVault struct {
	store ports.SecretStore
}

type vaultedToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    uint32 `json:"expires_in"`
}

func NewTokenVault(store ports.SecretStore) *TokenVault {
	if store == nil {
		return nil
	}
	return &TokenVault{store: store}
}

func TokenSecretKey(id domain.AccountID) string {
	return "yuuki/accounts/" + string(id) + "/tokens"
}

func (v *TokenVault) Save(ctx context.Context, id domain.AccountID, token domain.Token) error {
	payload, err := json.Marshal(vaultedToken{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresIn:    token.ExpiresIn,
	})
	if err != nil {
		return fmt.Errorf("encode token for %q: %w", id, err)
	}

	if err := v.store.Put(ctx, TokenSecretKey(id), string(payload)); err != nil {
		return fmt.Errorf("store token for %q: %w", id, err)
	}
	return nil
}

// Load returns domain.ErrSecretNotFound when no token was vaulted for id.
func (v *TokenVault) Load(ctx context.Context, id domain.AccountID) (domain.Token, error) {
	raw, err := v.store.Get(ctx, TokenSecretKey(id))
	if err != nil {
		return domain.Token{}, fmt.Errorf("load token for %q: %w", id, err)
	}

	var stored vaultedToken
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return domain.Token{}, fmt.Errorf("decode token for %q: %w", id, err)
	}

	token := domain.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		ExpiresIn:    stored.ExpiresIn,
	}
	if !token.Valid() {
		return domain.Token{}, fmt.Errorf("decode token for %q: %w", id, errors.New("incomplete token"))
	}
	return token, nil
}

func (v *TokenVault) Delete(ctx context.Context, id domain.AccountID) error {
	if err := v.store.Delete(ctx, TokenSecretKey(id)); err != nil && !errors.Is(err, domain.ErrSecretNotFound) {
		return fmt.Errorf("delete token for %q: %w", id, err)
	}
	return nil
}
