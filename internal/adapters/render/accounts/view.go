package accounts

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

type RenderOptions struct {
	// Now drives the pending-login countdown; zero prints absolute deadlines.
	Now time.Time
	// Width clips each rendered line; zero leaves lines unclipped.
	Width int
}

func renderView(accounts []domain.Account, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("Yuuki Accounts"),
		s.header.Render(fmt.Sprintf("accounts: %d", len(accounts))),
	}

	if len(accounts) == 0 {
		lines = append(lines, s.empty.Render("No accounts configured."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, account := range accounts {
		lines = append(lines, s.section.Render(renderAccount(account, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func renderAccount(account domain.Account, opts RenderOptions, s styles) string {
	title := s.account.Render(accountTitle(account))
	if account.ID == domain.DefaultAccountID {
		title = lipgloss.JoinHorizontal(lipgloss.Top, title, " ", s.tag.Render("[default]"))
	}

	parts := []string{
		title,
		s.detail.Render(fmt.Sprintf("type: %s  provider: %s", account.Type, providerLabel(account.Provider))),
	}

	if account.IsPending() {
		parts = append(parts, pendingLine(account, opts, s))
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func accountTitle(account domain.Account) string {
	username := strings.TrimSpace(account.Username)
	if username == "" {
		username = "unnamed"
	}

	return fmt.Sprintf("%s (%s)", username, account.ID)
}

func providerLabel(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "none"
	}

	return provider
}

func pendingLine(account domain.Account, opts RenderOptions, s styles) string {
	if account.PendingExpired(opts.Now) && !opts.Now.IsZero() {
		return s.warning.Render("login: expired [prune]")
	}

	return s.pending.Render("login: " + formatPendingUntil(account.PendingUntil, opts.Now))
}

func formatPendingUntil(until, now time.Time) string {
	if until.IsZero() {
		return "waiting for confirmation"
	}
	if now.IsZero() {
		return "waiting until " + until.Format(time.RFC3339)
	}

	minutes := int(math.Ceil(until.Sub(now).Minutes()))
	if minutes < 1 {
		minutes = 1
	}
	suffix := "minutes"
	if minutes == 1 {
		suffix = "minute"
	}

	return fmt.Sprintf("waiting, expires in %d %s (%s)", minutes, suffix, until.Format("15:04"))
}

// RenderDeviceLogin draws the instructions a user follows to confirm a device
// login on another screen.
func RenderDeviceLogin(session domain.DeviceLoginSession) string {
	s := newStyles()

	body := lipgloss.JoinVertical(
		lipgloss.Left,
		s.title.Render(fmt.Sprintf("Device login (%s)", session.Provider)),
		s.detail.Render("Open:  "+session.VerificationURI),
		lipgloss.JoinHorizontal(lipgloss.Top, s.detail.Render("Code:  "), s.code.Render(session.UserCode)),
		s.header.Render(fmt.Sprintf("expires in %s", time.Duration(session.ExpiresIn)*time.Second)),
	)
	if session.Message != "" {
		body = lipgloss.JoinVertical(lipgloss.Left, body, "", s.detail.Render(session.Message))
	}

	return s.loginBox.Render(body)
}
