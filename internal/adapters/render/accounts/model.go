package accounts

import (
	"errors"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuuki-launcher/yuuki-core/internal/domain"
)

var ErrUnexpectedRenderModel = errors.New("unexpected final bubbletea model type")

type renderReadyMsg struct{}

type model struct {
	accounts []domain.Account
	opts     RenderOptions
	styles   styles
	output   string
}

func newModel(accounts []domain.Account, opts RenderOptions) model {
	return model{
		accounts: accounts,
		opts:     opts,
		styles:   newStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return func() tea.Msg {
		return renderReadyMsg{}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if m.opts.Width == 0 {
			m.opts.Width = msg.Width
		}
		return m, nil
	case renderReadyMsg:
		m.output = m.layout()
		return m, tea.Quit
	default:
		return m, nil
	}
}

// layout clips every line to the configured width.
func (m model) layout() string {
	view := renderView(m.accounts, m.opts, m.styles)
	if m.opts.Width <= 0 {
		return view
	}
	return lipgloss.NewStyle().MaxWidth(m.opts.Width).Render(view)
}

func (m model) View() string {
	return m.output
}

// Render lays out the account list for a terminal. It runs a headless
// bubbletea program so the output matches what the interactive views draw.
func Render(accounts []domain.Account, opts RenderOptions) (string, error) {
	p := tea.NewProgram(
		newModel(accounts, opts),
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
	)

	finalModel, err := p.Run()
	if err != nil {
		return "", err
	}

	rendered, ok := finalModel.(model)
	if !ok {
		return "", ErrUnexpectedRenderModel
	}

	return rendered.View(), nil
}
