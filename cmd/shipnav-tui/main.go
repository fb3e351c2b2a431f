/*
Package main
File: cmd/shipnav-tui/main.go
Description:
    Terminal driver for the harbor. Runs the World at the configured tick
    rate inside a bubbletea program and draws the occupancy grid with the
    ships on top.

    A handful of demo ships sail between random map points: whenever one
    arrives it is sent somewhere else, sometimes to a stop part of the way
    along the next leg.

    Keys: q quits, space pauses, d makes the local ship dive or resurface.
*/

package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/everforgeworks/shipnav/internal/game"
)

var (
	waterStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("24"))
	landStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("106"))
	parkedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	shipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	localStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("201")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// headingGlyphs are indexed by octant, counter-clockwise from east.
var headingGlyphs = []rune{'→', '↗', '↑', '↖', '←', '↙', '↓', '↘'}

func headingGlyph(heading float64) rune {
	octant := int(math.Round(heading/(math.Pi/4))) % 8
	if octant < 0 {
		octant += 8
	}
	return headingGlyphs[octant]
}

type frameMsg time.Time

func frameCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// arrivals collects ships that reached their stop during a frame.
type arrivals struct {
	ids []string
}

func (a *arrivals) add(id string) { a.ids = append(a.ids, id) }

func (a *arrivals) drain() []string {
	ids := a.ids
	a.ids = nil
	return ids
}

type model struct {
	world   *game.World
	clock   game.FrameClock
	every   time.Duration
	paused  bool
	arrived *arrivals
	rng     *rand.Rand
	points  []string
	recent  []string
	logger  *log.Logger
}

func newModel(world *game.World, tickRate int, rng *rand.Rand, logger *log.Logger) *model {
	return &model{
		world:   world,
		every:   time.Second / time.Duration(tickRate),
		arrived: &arrivals{},
		rng:     rng,
		points:  world.MapPointIDs(),
		logger:  logger,
	}
}

func (m *model) Init() tea.Cmd {
	return frameCmd(m.every)
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
			m.clock.Reset()
		case "d":
			m.toggleLocal()
		}
	case frameMsg:
		dt := m.clock.Elapsed(time.Time(msg))
		if !m.paused {
			m.world.Tick(dt)
			m.dispatch()
		}
		return m, frameCmd(m.every)
	}
	return m, nil
}

// dispatch sends every ship that arrived somewhere new.
func (m *model) dispatch() {
	for _, id := range m.arrived.drain() {
		if err := m.sendSomewhere(id); err != nil {
			if errors.Is(err, game.ErrParkingExhausted) {
				// Try again next frame.
				m.arrived.add(id)
				continue
			}
			m.logger.Error("dispatch failed", "ship", id, "err", err)
		}
	}
}

// sendSomewhere picks a random map point, and one time in four a stop
// part of the way there from the ship's current point.
func (m *model) sendSomewhere(id string) error {
	if len(m.points) == 0 {
		return nil
	}
	snap, ok := m.world.Ship(id)
	if !ok {
		return game.ErrUnknownShip
	}
	target := m.points[m.rng.Intn(len(m.points))]
	req := game.MoveRequest{
		Target:   target,
		OnArrive: func() { m.arrived.add(id) },
	}
	if snap.MapPoint != "" && snap.MapPoint != target && m.rng.Intn(4) == 0 {
		req.QuartersFrom = 1 + m.rng.Intn(3)
		req.Reference = snap.MapPoint
	}
	if err := m.world.MoveShip(id, req); err != nil {
		return err
	}
	m.note(fmt.Sprintf("%s -> %s", id, describe(req)))
	return nil
}

// toggleLocal dives the local ship, or brings it back where it was going.
func (m *model) toggleLocal() {
	local, ok := m.world.LocalShip()
	if !ok {
		return
	}
	if local.Visible {
		if err := m.world.DepartShip(local.ID); err == nil {
			m.note(local.ID + " dived")
		}
		return
	}
	if err := m.sendSomewhere(local.ID); err != nil {
		m.note(local.ID + " cannot surface: " + err.Error())
	}
}

func (m *model) note(line string) {
	m.recent = append([]string{line}, m.recent...)
	if len(m.recent) > 6 {
		m.recent = m.recent[:6]
	}
}

func describe(req game.MoveRequest) string {
	if req.QuartersFrom > 0 {
		return fmt.Sprintf("%d/4 from %s to %s", req.QuartersFrom, req.Reference, req.Target)
	}
	return req.Target
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(renderChart(m.world.GridRows(), m.world.Ships()))
	b.WriteString("\n")

	for _, s := range m.world.Ships() {
		state := "idle"
		switch {
		case !s.Visible:
			state = "submerged"
		case s.Turning:
			state = "turning"
		case s.Traveling:
			state = "sailing"
		}
		fmt.Fprintf(&b, "%-8s %-10s %-9s surface %.2f\n", s.ID, s.MapPoint, state, s.Surface)
	}
	b.WriteString("\n")
	for _, line := range m.recent {
		b.WriteString(line + "\n")
	}

	status := fmt.Sprintf("frame %d", m.world.Frame())
	if m.paused {
		status += " (paused)"
	}
	b.WriteString(helpStyle.Render(status+" · q quit · space pause · d dive") + "\n")
	return b.String()
}

// renderChart draws the grid rows with visible ships overlaid.
func renderChart(rows []string, ships []game.ShipSnapshot) string {
	type mark struct {
		glyph rune
		local bool
	}
	overlay := make(map[[2]int]mark)
	for _, s := range ships {
		if !s.Visible {
			continue
		}
		overlay[[2]int{s.Cell.X, s.Cell.Y}] = mark{headingGlyph(s.Heading), s.IsLocal}
	}

	var b strings.Builder
	for y, row := range rows {
		for x, c := range row {
			if m, ok := overlay[[2]int{x, y}]; ok {
				style := shipStyle
				if m.local {
					style = localStyle
				}
				b.WriteString(style.Render(string(m.glyph)))
				continue
			}
			switch c {
			case 'x':
				b.WriteString(landStyle.Render("█"))
			case '@':
				b.WriteString(parkedStyle.Render("@"))
			default:
				b.WriteString(waterStyle.Render("·"))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func main() {
	defaultConfig := os.Getenv("SHIPNAV_CONFIG")
	if defaultConfig == "" {
		defaultConfig = "harbor.yaml"
	}
	configPath := flag.String("config", defaultConfig, "Path to harbor.yaml")
	shipCount := flag.Int("ships", 4, "Number of demo ships")
	logPath := flag.String("log", "", "Write logs to this file (the terminal belongs to the chart)")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed for destinations")
	flag.Parse()

	// 1. Logging goes to a file or nowhere
	var out io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "open log: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	cfg, err := game.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := log.NewWithOptions(out, log.Options{ReportTimestamp: true, Prefix: "shipnav-tui"})
	if level, err := log.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	}

	// 2. Build the world and launch the fleet
	world, err := game.NewWorld(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "world: %v\n", err)
		os.Exit(1)
	}
	m := newModel(world, cfg.Engine.TickRate, rand.New(rand.NewSource(*seed)), logger)
	for i := 1; i <= *shipCount; i++ {
		id := fmt.Sprintf("ship-%d", i)
		if err := world.AddShip(id, "", i == 1); err != nil {
			logger.Error("add ship", "ship", id, "err", err)
			continue
		}
		m.arrived.add(id)
	}
	m.dispatch()

	// 3. Run
	if _, err := tea.NewProgram(m, tea.WithAltScreen()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui: %v\n", err)
		os.Exit(1)
	}
}
