// Package tui is the interactive terminal front end: ingest a page, then ask
// questions about it.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"rag-web-qa/internal/domain"
	"rag-web-qa/internal/service"
	"rag-web-qa/internal/summarizer"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Ingest(ctx context.Context, url string) (service.IngestResult, error)
	AskWithSources(ctx context.Context, query string) (domain.Answer, error)
	Clear(ctx context.Context) error
}

type ingestDoneMsg struct {
	res service.IngestResult
	err error
}

type answerMsg struct {
	ans domain.Answer
	err error
}

type clearedMsg struct{ err error }

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx      context.Context
	service  RAGPort
	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	pendingURL string
	busy       bool
	ready      bool

	// indexed and chunks mirror the last ingest or clear result so rendering
	// never waits on the service.
	indexed bool
	chunks  int
	title   string
	summary string
	status  string
	answer  domain.Answer
	cursor  int
}

// New creates a new TUI model. A non-empty url is ingested on start.
func New(ctx context.Context, service RAGPort, url string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question, or /ingest <url>, /clear, /quit"
	ti.Focus()
	ti.CharLimit = 0
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:        ctx,
		service:    service,
		input:      ti,
		viewport:   viewport.New(0, 0),
		spinner:    sp,
		pendingURL: strings.TrimSpace(url),
		status:     "Add a page with /ingest <url>.",
	}
}

func (m Model) Init() tea.Cmd {
	if m.pendingURL == "" {
		return textinput.Blink
	}
	return func() tea.Msg { return startIngestMsg(m.pendingURL) }
}

type startIngestMsg string

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header and summary, status, spacer
		vh := msg.Height - reserved
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, vh-rh)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case startIngestMsg:
		return m.startIngest(string(msg))

	case ingestDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Ingest failed: " + msg.err.Error()
			return m, nil
		}
		m.indexed = true
		m.chunks = msg.res.Chunks
		m.title = msg.res.Title
		m.summary = msg.res.Summary
		m.answer = domain.Answer{}
		m.status = fmt.Sprintf("Indexed %s (%d chunks). Ask away.", msg.res.Source, msg.res.Chunks)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.answer = msg.ans
		m.cursor = 0
		m.status = fmt.Sprintf("%d source(s) for %q", len(msg.ans.SourceDocuments), msg.ans.Query)
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case clearedMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Clear failed: " + msg.err.Error()
			return m, nil
		}
		m.indexed = false
		m.chunks = 0
		m.title, m.summary = "", ""
		m.answer = domain.Answer{}
		m.status = "Index cleared."
		m.viewport.SetContent(m.renderAnswer())
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "enter":
			line := strings.TrimSpace(m.input.Value())
			if line == "" || m.busy {
				return m, nil
			}
			m.input.SetValue("")
			return m.handleLine(line)
		case "down":
			if n := len(m.answer.SourceDocuments); n > 0 {
				m.cursor = (m.cursor + 1) % n
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		case "up":
			if n := len(m.answer.SourceDocuments); n > 0 {
				m.cursor = (m.cursor - 1 + n) % n
				m.viewport.SetContent(m.renderAnswer())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleLine(line string) (tea.Model, tea.Cmd) {
	cmd, arg, _ := strings.Cut(line, " ")
	switch cmd {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/ingest":
		if strings.TrimSpace(arg) == "" {
			m.status = "Usage: /ingest <url>"
			return m, nil
		}
		return m.startIngest(arg)
	case "/clear":
		m.busy = true
		m.status = "Clearing index..."
		svc, ctx := m.service, m.ctx
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			return clearedMsg{err: svc.Clear(ctx)}
		})
	}
	m.busy = true
	m.status = "Thinking..."
	svc, ctx := m.service, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		ans, err := svc.AskWithSources(ctx, line)
		return answerMsg{ans: ans, err: err}
	})
}

func (m Model) startIngest(url string) (tea.Model, tea.Cmd) {
	url = strings.TrimSpace(url)
	m.busy = true
	m.status = "Loading " + url + "..."
	svc, ctx := m.service, m.ctx
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := svc.Ingest(ctx, url)
		return ingestDoneMsg{res: res, err: err}
	})
}

func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	heading := "RAG Web QA"
	if m.title != "" {
		heading += " | " + m.title
	}
	if m.indexed {
		heading += fmt.Sprintf(" (%d chunks)", m.chunks)
	}
	header := lipgloss.NewStyle().Bold(true).Render(heading)
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	results := resultBoxStyle.Render(m.viewport.View())
	input := queryBoxStyle.Render(m.input.View())
	st := m.status
	if m.busy {
		st = m.spinner.View() + " " + st
	}
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(st)
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderAnswer() string {
	if m.answer.Result == "" {
		if m.indexed {
			return "Ask a question about the page."
		}
		return service.NoDocumentsMessage
	}
	var b strings.Builder
	b.WriteString(answerStyle.Render(m.answer.Result))
	docs := m.answer.SourceDocuments
	if len(docs) == 0 {
		return b.String()
	}
	r := docs[m.cursor]
	fmt.Fprintf(&b, "\n\nSource %d/%d  score=%.3f", m.cursor+1, len(docs), r.Score)
	if src := r.Chunk.Source(); src != "" {
		b.WriteString("  " + src)
	}
	b.WriteString("\n\n")
	b.WriteString(highlightBestSentence(r.Chunk.Text, m.answer.Query))
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
)

func highlightBestSentence(text, query string) string {
	text = strings.Join(strings.Fields(text), " ")
	sentences := summarizer.Sentences(text)
	best := bestSentence(sentences, query)
	if best < 0 {
		return text
	}
	return strings.Replace(text, sentences[best], highlightStyle.Render(sentences[best]), 1)
}

// bestSentence returns the index of the sentence sharing the most distinct
// tokens with query, or -1 when nothing overlaps.
func bestSentence(sentences []string, query string) int {
	q := make(map[string]struct{})
	for _, t := range summarizer.Tokens(query) {
		q[t] = struct{}{}
	}
	best, bestScore := -1, 0
	for i, s := range sentences {
		seen := make(map[string]struct{})
		score := 0
		for _, t := range summarizer.Tokens(s) {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			if _, ok := q[t]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best
}
