package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RunStats holds the numbers shown in the stats panel
type RunStats struct {
	Mode        string
	Running     bool
	Pass        int
	Tasks       int
	Done        int
	Visits      int
	Ignored     int
	Timeouts    int
	StartTime   time.Time
	Loop        bool
	ShowBrowser bool
	Output      string
	// Progress is a pre-rendered progress bar line
	Progress string
}

// StatsPanel displays run statistics
type StatsPanel struct {
	stats      RunStats
	spinner    spinner.Model
	width      int
	height     int
	now        func() time.Time
	style      lipgloss.Style
	labelStyle lipgloss.Style
	valueStyle lipgloss.Style
}

func NewStatsPanel() *StatsPanel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &StatsPanel{
		spinner: s,
		now:     time.Now,
		style: borderStyle.Copy().
			BorderForeground(lipgloss.Color("99")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
	}
}

func (s *StatsPanel) SetSize(width, height int) {
	s.width = width
	s.height = height
}

// Init starts the activity spinner
func (s *StatsPanel) Init() tea.Cmd {
	return s.spinner.Tick
}

func (s *StatsPanel) Update(msg tea.Msg) tea.Cmd {
	if _, ok := msg.(spinner.TickMsg); !ok {
		return nil
	}
	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

func (s *StatsPanel) View() string {
	state := "idle"
	if s.stats.Running {
		state = s.spinner.View() + " running " + s.stats.Mode
	}

	visited := s.stats.Visits - s.stats.Ignored - s.stats.Timeouts

	stats := []struct {
		label string
		value string
	}{
		{"State", state},
		{"Pass", fmt.Sprintf("%d", s.stats.Pass)},
		{"Tasks", fmt.Sprintf("%d/%d", s.stats.Done, s.stats.Tasks)},
		{"Results", fmt.Sprintf("%d (visited %d, ignored %d, timeouts %d)",
			s.stats.Visits, visited, s.stats.Ignored, s.stats.Timeouts)},
		{"Loop", onOff(s.stats.Loop)},
		{"Browser", visibility(s.stats.ShowBrowser)},
		{"Elapsed Time", s.formatElapsedTime()},
	}
	if s.stats.Output != "" {
		stats = append(stats, struct {
			label string
			value string
		}{"Output", s.stats.Output})
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Run Statistics") + "\n\n")

	labelWidth := 14
	for _, stat := range stats {
		fmt.Fprintf(&content, "%s %s\n",
			s.labelStyle.Width(labelWidth).Render(stat.label+":"),
			s.valueStyle.Render(stat.value),
		)
	}

	if s.stats.Progress != "" {
		content.WriteString("\n" + s.stats.Progress + "\n")
	}

	content.WriteString("\n" + infoStyle.Render("r quick  i interactive  s stop  l loop  b browser  c clear  q quit"))

	return s.style.Width(s.width).Height(s.height).Render(content.String())
}

// UpdateStats updates the statistics
func (s *StatsPanel) UpdateStats(stats RunStats) {
	s.stats = stats
}

// Stats returns the statistics last set
func (s *StatsPanel) Stats() RunStats {
	return s.stats
}

func (s *StatsPanel) formatElapsedTime() string {
	if s.stats.StartTime.IsZero() {
		return "00:00:00"
	}
	elapsed := s.now().Sub(s.stats.StartTime)
	return fmt.Sprintf("%02d:%02d:%02d",
		int(elapsed.Hours()),
		int(elapsed.Minutes())%60,
		int(elapsed.Seconds())%60,
	)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func visibility(visible bool) string {
	if visible {
		return "visible"
	}
	return "hidden"
}
