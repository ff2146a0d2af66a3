package main

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/brensch/snekplan/selfplay"
)

var (
	totalTurns atomic.Int64
	totalGames atomic.Int64
)

// gameUpdate is sent by a worker after each finished game.
type gameUpdate struct {
	Worker int
	Result selfplay.Result
}

type model struct {
	started time.Time
	games   int
	turns   int64
	rows    int
	wins    map[string]int
	recent  []string
	updates <-chan gameUpdate
	quit    func()
}

func newModel(updates <-chan gameUpdate, quit func()) model {
	return model{
		started: time.Now(),
		wins:    make(map[string]int),
		updates: updates,
		quit:    quit,
	}
}

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForUpdate(updates <-chan gameUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return tea.Quit()
		}
		return u
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.updates), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quit()
			return m, tea.Quit
		}
	case tickMsg:
		m.turns = totalTurns.Load()
		return m, tick()
	case gameUpdate:
		m.games++
		m.rows += len(msg.Result.Rows)
		winner := msg.Result.Winner
		if winner == "" {
			winner = "draw"
		}
		m.wins[winner]++
		line := fmt.Sprintf("worker %d: %s in %d turns", msg.Worker, winner, msg.Result.Turns)
		m.recent = append([]string{line}, m.recent...)
		if len(m.recent) > 10 {
			m.recent = m.recent[:10]
		}
		return m, waitForUpdate(m.updates)
	}
	return m, nil
}

func (m model) View() string {
	elapsed := time.Since(m.started)
	var gamesPerSec, turnsPerSec float64
	if secs := elapsed.Seconds(); secs >= 1 {
		gamesPerSec = float64(m.games) / secs
		turnsPerSec = float64(m.turns) / secs
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Games:      %d\n", m.games)
	fmt.Fprintf(&sb, "Turns:      %d\n", m.turns)
	fmt.Fprintf(&sb, "Decisions:  %d\n", m.rows)
	fmt.Fprintf(&sb, "Elapsed:    %s\n", elapsed.Round(time.Second))
	fmt.Fprintf(&sb, "Games/sec:  %.2f\n", gamesPerSec)
	fmt.Fprintf(&sb, "Turns/sec:  %.2f\n\n", turnsPerSec)

	sb.WriteString("Results:\n")
	for _, k := range sortedKeys(m.wins) {
		fmt.Fprintf(&sb, "  %-8s %d\n", k, m.wins[k])
	}
	sb.WriteString("\nRecent games:\n")
	for _, line := range m.recent {
		sb.WriteString(line + "\n")
	}
	sb.WriteString("\nPress q to quit.\n")
	return sb.String()
}
