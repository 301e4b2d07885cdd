package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/maya-companion/server/internal/agent/graph/prompts"
	"github.com/maya-companion/server/internal/agent/model"
)

const (
	historyPreviewLen = 120
	historyRows       = 20
)

// Renderer prints the conversation. Styles degrade to plain text when out is
// not a terminal.
type Renderer struct {
	out       io.Writer
	assistant string

	title   lipgloss.Style
	label   lipgloss.Style
	reply   lipgloss.Style
	user    lipgloss.Style
	dim     lipgloss.Style
	warn    lipgloss.Style
	summary lipgloss.Style
}

func NewRenderer(out io.Writer, assistantName string) *Renderer {
	if strings.TrimSpace(assistantName) == "" {
		assistantName = prompts.DefaultAssistantName
	}
	r := lipgloss.NewRenderer(out)
	return &Renderer{
		out:       out,
		assistant: assistantName,
		title:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		label:     r.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		reply:     r.NewStyle().PaddingLeft(2),
		user:      r.NewStyle().Foreground(lipgloss.Color("39")),
		dim:       r.NewStyle().Faint(true),
		warn:      r.NewStyle().Foreground(lipgloss.Color("214")),
		summary:   r.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

// BannerInfo is the configuration summary shown at start-up.
type BannerInfo struct {
	UserName  string
	Session   int
	Provider  string
	Model     string
	Memory    string
	Offline   bool
	DebugMode bool
}

func (r *Renderer) Banner(info BannerInfo) {
	completion := fmt.Sprintf("%s (%s)", info.Provider, info.Model)
	if info.Offline {
		completion = "offline"
	}
	fmt.Fprintln(r.out, r.title.Render(fmt.Sprintf("%s - bilingual STEM companion", r.assistant)))
	fmt.Fprintln(r.out, r.dim.Render(fmt.Sprintf("user: %s | session: %d | completion: %s | memory: %s | debug: %t",
		info.UserName, info.Session, completion, info.Memory, info.DebugMode)))
	fmt.Fprintln(r.out, r.dim.Render("commands: !history  !debug  !clear   (say bye to leave)"))
	fmt.Fprintln(r.out)
}

func (r *Renderer) Prompt(userName string) {
	fmt.Fprint(r.out, r.user.Render(userName+": "))
}

// Reply prints the assistant's answer with its language/intent labels.
func (r *Renderer) Reply(s model.TurnState) {
	fmt.Fprintln(r.out, r.label.Render(fmt.Sprintf("%s [%s/%s]:", r.assistant, s.Language, s.Intent)))
	fmt.Fprintln(r.out, r.reply.Render(s.Response))
	fmt.Fprintln(r.out)
}

func (r *Renderer) Steps(steps []string) {
	for _, s := range steps {
		fmt.Fprintln(r.out, r.dim.Render("  "+s))
	}
	fmt.Fprintln(r.out)
}

// History prints one row per message, long messages cut to 120 characters.
// total is the full history length; rows before the tail are reported as hidden.
func (r *Renderer) History(msgs []model.Message, total int) {
	if len(msgs) == 0 {
		r.Info("No messages yet.")
		return
	}
	offset := total - len(msgs)
	if offset > 0 {
		r.Info(fmt.Sprintf("(%d older message(s) hidden)", offset))
	} else {
		offset = 0
	}
	for i, m := range msgs {
		content := strings.ReplaceAll(m.Content, "\n", " ")
		if len([]rune(content)) > historyPreviewLen {
			content = prompts.Truncate(content, historyPreviewLen) + "..."
		}
		fmt.Fprintf(r.out, "%3d  %-9s  %s\n", offset+i+1, m.Role, content)
	}
	fmt.Fprintln(r.out)
}

func (r *Renderer) Info(msg string) {
	fmt.Fprintln(r.out, r.dim.Render(msg))
}

func (r *Renderer) Warn(msg string) {
	fmt.Fprintln(r.out, r.warn.Render(msg))
}

// Summary closes a chat session. A zero session means memory was unavailable.
func (r *Renderer) Summary(session, turns, messages int) {
	title := "Session summary"
	if session > 0 {
		title = fmt.Sprintf("Session %d summary", session)
	}
	fmt.Fprintln(r.out, r.summary.Render(fmt.Sprintf("%s\nturns: %d\nmessages exchanged: %d", title, turns, messages)))
}

// Profile prints the stored profile and recent topics.
func (r *Renderer) Profile(p model.Profile, topics []string) {
	fmt.Fprintln(r.out, r.title.Render("Profile"))
	fmt.Fprintf(r.out, "  name:          %s\n", p.UserName)
	fmt.Fprintf(r.out, "  sessions:      %d\n", p.SessionCount)
	fmt.Fprintf(r.out, "  total turns:   %d\n", p.TotalTurns)
	fmt.Fprintln(r.out, r.title.Render("Recent topics"))
	if len(topics) == 0 {
		fmt.Fprintln(r.out, r.dim.Render("  (none)"))
		return
	}
	for i, t := range topics {
		fmt.Fprintf(r.out, "  %d. %s\n", i+1, t)
	}
}
