package ui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"arkwarden/pkg/sdk"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type model struct {
	table         table.Model
	profiles      []sdk.Profile
	notifications []sdk.Notification
	err           error
	width         int
	height        int
	isLoading     bool
	message       string
	client        *sdk.Client

	// drift holds the profile whose start is waiting for a config decision.
	drift       string
	driftFields []string

	openLogs string
}

type profileDataMsg struct {
	profiles      []sdk.Profile
	notifications []sdk.Notification
}

type actionResultMsg struct {
	profileID string
	message   string
	err       error
}

type clearMessageMsg struct{}

type errMsg error

// RunDashboard returns the id of the profile whose logs were requested, or
// "" when the user quit.
func RunDashboard(client *sdk.Client) string {
	columns := []table.Column{
		{Title: "Sts", Width: 3},
		{Title: "ID", Width: 8},
		{Title: "Name", Width: 20},
		{Title: "Map", Width: 16},
		{Title: "Status", Width: 12},
		{Title: "Players", Width: 8},
		{Title: "RAM", Width: 9},
		{Title: "Uptime", Width: 8},
		{Title: "Build", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := model{
		table:     t,
		isLoading: true,
		client:    client,
	}

	program := tea.NewProgram(m, tea.WithAltScreen(), tea.WithInput(os.Stdin), tea.WithOutput(os.Stdout))
	finalModel, err := program.Run()
	if err != nil {
		fmt.Printf("Error running dashboard: %v", err)
		os.Exit(1)
	}

	if m, ok := finalModel.(model); ok {
		return m.openLogs
	}
	return ""
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		fetchDataCmd(m.client),
		tickCmd(),
	)
}

func (m model) selected() (sdk.Profile, bool) {
	row := m.table.SelectedRow()
	if len(row) < 2 {
		return sdk.Profile{}, false
	}
	for _, p := range m.profiles {
		if shortID(p.ID) == row[1] {
			return p, true
		}
	}
	return sdk.Profile{}, false
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.drift != "" {
			return m.updateDrift(msg)
		}
		p, ok := m.selected()
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if ok {
				m.openLogs = p.ID
				return m, tea.Quit
			}
		case "s":
			if ok {
				m.message = fmt.Sprintf("Starting %s...", p.Name)
				return m, actionCmd(p.ID, fmt.Sprintf("Start requested for %s.", p.Name), func() error { return m.client.StartProfile(p.ID) })
			}
		case "x":
			if ok {
				m.message = fmt.Sprintf("Stopping %s...", p.Name)
				return m, actionCmd(p.ID, fmt.Sprintf("Stop requested for %s.", p.Name), func() error { return m.client.StopProfile(p.ID) })
			}
		case "r":
			if ok {
				m.message = fmt.Sprintf("Restarting %s...", p.Name)
				return m, actionCmd(p.ID, fmt.Sprintf("Restart requested for %s.", p.Name), func() error { return m.client.RestartProfile(p.ID) })
			}
		case "u":
			if ok {
				m.message = fmt.Sprintf("Updating %s...", p.Name)
				return m, actionCmd(p.ID, fmt.Sprintf("Update started for %s.", p.Name), func() error { return m.client.UpdateServerFiles(p.ID) })
			}
		case "c":
			if ok {
				m.message = fmt.Sprintf("Checking %s for updates...", p.Name)
				return m, checkUpdateCmd(m.client, p)
			}
		case "v":
			if ok {
				return m, actionCmd(p.ID, fmt.Sprintf("%s selected for live stats.", p.Name), func() error { return m.client.SelectProfile(p.ID) })
			}
		case "n":
			return m, actionCmd("", "Notifications marked as read.", m.client.MarkNotificationsRead)
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.table.SetWidth(msg.Width - 10)
		m.table.SetHeight(msg.Height - 14)
	case profileDataMsg:
		m.isLoading = false
		m.err = nil
		m.profiles = msg.profiles
		m.notifications = msg.notifications
		m.updateTable()
		return m, nil
	case actionResultMsg:
		var drift *sdk.DriftError
		switch {
		case errors.As(msg.err, &drift):
			m.drift = msg.profileID
			m.driftFields = drift.Fields
			m.message = ""
			return m, nil
		case msg.err != nil:
			m.message = msg.err.Error()
		default:
			m.message = msg.message
		}
		return m, tea.Batch(fetchDataCmd(m.client), clearMessageCmd())
	case clearMessageMsg:
		m.message = ""
		return m, nil
	case tickMsg:
		return m, tea.Batch(fetchDataCmd(m.client), tickCmd())
	case errMsg:
		m.err = msg
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) updateDrift(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	id := m.drift
	choice := ""
	remember := false
	switch msg.String() {
	case "1":
		choice = sdk.ChoiceSaveAppConfig
	case "2":
		choice, remember = sdk.ChoiceSaveAppConfig, true
	case "3":
		choice = sdk.ChoiceLoadDisk
	case "4", "esc", "q":
		choice = sdk.ChoiceCancel
	case "ctrl+c":
		return m, tea.Quit
	default:
		return m, nil
	}
	done := "Start requested."
	if choice == sdk.ChoiceCancel {
		done = "Start cancelled."
	}
	m.drift = ""
	m.driftFields = nil
	return m, actionCmd(id, done, func() error { return m.client.ResolveStart(id, choice, remember) })
}

func (m *model) updateTable() {
	rows := []table.Row{}
	for _, p := range m.profiles {
		icon, _ := statusIcon(string(p.Status))

		players, ram, uptime := "-", "-", "-"
		if p.Status == "RUNNING" {
			players = fmt.Sprintf("%d/%d", p.PlayerCount, p.Config.MaxPlayers)
			ram = formatBytesShort(p.MemoryBytes)
			uptime = formatUptime(p.UptimeSeconds)
		}

		build := p.CurrentBuildID
		if p.UpdateAvailable() {
			build = fmt.Sprintf("%s→%s", p.CurrentBuildID, p.LatestBuildID)
		}
		if build == "" {
			build = "-"
		}

		rows = append(rows, table.Row{
			icon,
			shortID(p.ID),
			p.Name,
			p.Config.Map,
			string(p.Status),
			players,
			ram,
			uptime,
			build,
		})
	}
	m.table.SetRows(rows)
}

func (m model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := headerStyle.Render("ARKWARDEN")
	clock := subHeaderStyle.Render(time.Now().Format("Mon Jan 2 15:04:05"))

	unread := 0
	for _, n := range m.notifications {
		if !n.Read {
			unread++
		}
	}
	hostInfo := fmt.Sprintf("Daemon: %s  |  Profiles: %d  |  Notifications: %d unread", m.client.BaseURL(), len(m.profiles), unread)
	if m.err != nil {
		hostInfo = lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Render(fmt.Sprintf("Daemon unreachable: %v", m.err))
	}
	headerBox := baseStyle.
		Width(m.width-4).
		Align(lipgloss.Center).
		Render(lipgloss.JoinVertical(lipgloss.Center, title, clock, " ", hostInfo))

	body := m.table.View()
	if m.drift != "" {
		body = m.driftView()
	}
	tableContainer := baseStyle.
		Width(m.width - 4).
		Height(m.height - 14).
		Render(body)

	var latest []string
	for _, n := range m.notifications {
		if len(latest) == 2 {
			break
		}
		if !n.Read {
			latest = append(latest, fmt.Sprintf("• %s: %s", n.ProfileName, n.Message))
		}
	}

	footer := lipgloss.NewStyle().MarginLeft(2).Render(helpLine(
		"s", "start", "x", "stop", "r", "restart", "u", "update", "c", "check",
		"v", "live stats", "n", "read", "enter", "logs", "q", "quit",
	))
	if len(latest) > 0 {
		footer = lipgloss.NewStyle().MarginLeft(2).Foreground(lipgloss.Color("220")).Render(strings.Join(latest, "\n")) + "\n" + footer
	}
	if m.message != "" {
		footer = messageStyle.Render(m.message) + "\n" + footer
	}

	return lipgloss.JoinVertical(lipgloss.Center,
		headerBox,
		tableContainer,
		footer,
	)
}

func (m model) driftView() string {
	name := m.drift
	for _, p := range m.profiles {
		if p.ID == m.drift {
			name = p.Name
		}
	}
	lines := []string{
		messageStyle.Render(fmt.Sprintf("The config files of %s were changed outside arkwarden.", name)),
		"",
		"Differing settings: " + strings.Join(m.driftFields, ", "),
		"",
		"1  Save app config to disk and start",
		"2  Save app config and always do this from now on",
		"3  Load config from disk and start",
		"4  Cancel",
	}
	return strings.Join(lines, "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func clearMessageCmd() tea.Cmd {
	return tea.Tick(3*time.Second, func(time.Time) tea.Msg {
		return clearMessageMsg{}
	})
}

func actionCmd(profileID, done string, fn func() error) tea.Cmd {
	return func() tea.Msg {
		return actionResultMsg{profileID: profileID, message: done, err: fn()}
	}
}

func checkUpdateCmd(client *sdk.Client, p sdk.Profile) tea.Cmd {
	return func() tea.Msg {
		check, err := client.CheckServerUpdate(p.ID)
		if err != nil {
			return actionResultMsg{profileID: p.ID, err: err}
		}
		msg := fmt.Sprintf("%s is up to date (build %s).", p.Name, check.CurrentBuildID)
		if check.UpdateAvailable {
			msg = fmt.Sprintf("Update available for %s: %s → %s.", p.Name, check.CurrentBuildID, check.LatestBuildID)
		}
		return actionResultMsg{profileID: p.ID, message: msg}
	}
}

func fetchDataCmd(client *sdk.Client) tea.Cmd {
	return func() tea.Msg {
		profiles, err := client.ListProfiles()
		if err != nil {
			return errMsg(err)
		}

		notifications, err := client.ListNotifications()
		if err != nil {
			notifications = nil
		}

		return profileDataMsg{profiles: profiles, notifications: notifications}
	}
}
