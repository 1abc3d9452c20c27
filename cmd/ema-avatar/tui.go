package main

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/koscakluka/ema-avatar/core/speechtotext"
	"github.com/muesli/reflow/wordwrap"
)

const avatarWidth = 48

var (
	avatarStyle = lipgloss.NewStyle().Padding(0, 1)
	bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color("#a3342b")).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8a8a"))
	userStyle   = lipgloss.NewStyle().Bold(true)
)

// screen is the surface the pipeline draws on. It is only touched from the
// bubbletea event loop.
type screen struct {
	frame      image.Image
	avatar     string
	transcript strings.Builder

	// interim is what voice input has recognised so far.
	interim string
}

func newScreen() *screen {
	return &screen{}
}

func (s *screen) SetImage(img image.Image) {
	s.frame = img
	s.avatar = ""
}

func (s *screen) AppendText(text string) {
	s.transcript.WriteString(text)
}

func (s *screen) avatarView() string {
	if s.avatar == "" && s.frame != nil {
		s.avatar = renderHalfBlocks(s.frame, avatarWidth)
	}
	return s.avatar
}

type turnDoneMsg struct{ err error }

type transcriptMsg struct {
	text string
	err  error
}

type model struct {
	app    *app
	screen *screen

	input    textinput.Model
	viewport viewport.Model

	status    string
	turns     int
	listening bool
}

func newModel(app *app, screen *screen) model {
	input := textinput.New()
	input.Placeholder = "Frag etwas…"
	input.Focus()

	return model{
		app:      app,
		screen:   screen,
		input:    input,
		viewport: viewport.New(60, 20),
		status:   "Modell: " + app.Model(),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case postedMsg:
		msg()
		m.refreshTranscript()
		return m, nil

	case tea.WindowSizeMsg:
		width := max(msg.Width-avatarWidth-4, 20)
		m.viewport.Width = width
		m.viewport.Height = max(msg.Height-4, 5)
		m.input.Width = width - 3
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			prompt := strings.TrimSpace(m.input.Value())
			m.input.Reset()
			return m, m.send(prompt)
		case "ctrl+r":
			return m, m.listen()
		}

	case transcriptMsg:
		m.listening = false
		m.screen.interim = ""
		if msg.err != nil {
			if errors.Is(msg.err, speechtotext.ErrNoSpeech) {
				m.status = "Nichts verstanden"
			} else {
				m.status = fmt.Sprintf("Spracheingabe fehlgeschlagen: %v", msg.err)
			}
			return m, nil
		}
		return m, m.send(msg.text)

	case turnDoneMsg:
		m.turns--
		m.screen.AppendText("\n\n")
		m.refreshTranscript()
		if msg.err != nil {
			m.status = fmt.Sprintf("Antwort fehlgeschlagen: %v", msg.err)
		} else if m.turns == 0 {
			m.status = "Modell: " + m.app.Model()
		}
		return m, nil
	}

	var inputCmd, viewportCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewportCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewportCmd)
}

// send shows the prompt and runs the turn off the event loop.
func (m *model) send(prompt string) tea.Cmd {
	if prompt == "" {
		return nil
	}
	m.screen.AppendText(userStyle.Render("Du: "+prompt) + "\n")
	m.refreshTranscript()
	m.turns++
	m.status = "Ema denkt nach…"

	app := m.app
	return func() tea.Msg {
		_, err := app.assistant.SendPrompt(app.ctx, prompt)
		return turnDoneMsg{err: err}
	}
}

func (m *model) listen() tea.Cmd {
	if m.app.listener == nil || m.listening {
		return nil
	}
	m.listening = true
	m.status = "Ich höre zu…"

	m.screen.interim = ""

	app, screen := m.app, m.screen
	showInterim := func(text string) {
		app.scheduler.Post(func() { screen.interim = text })
	}
	return func() tea.Msg {
		text, err := app.assistant.Listen(app.ctx, app.listener,
			speechtotext.WithLanguage(app.cfg.Audio.Language),
			speechtotext.WithInterimTranscriptionCallback(showInterim))
		return transcriptMsg{text: text, err: err}
	}
}

func (m *model) refreshTranscript() {
	m.viewport.SetContent(wordwrap.String(m.screen.transcript.String(), m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	var right strings.Builder
	if m.app.banner != "" {
		right.WriteString(bannerStyle.Render(m.app.banner) + "\n")
	}
	right.WriteString(m.viewport.View() + "\n")
	right.WriteString(m.input.View() + "\n")
	status := m.status
	if m.listening && m.screen.interim != "" {
		status += " " + m.screen.interim
	}
	right.WriteString(statusStyle.Render(status))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		avatarStyle.Render(m.screen.avatarView()),
		right.String(),
	)
}
