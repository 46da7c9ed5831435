package ui

import (
	"fmt"
	"log"
	"net/http"

	"arkwarden/pkg/sdk"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"
)

var logChannels = []string{sdk.ChannelServer, sdk.ChannelManager, sdk.ChannelUpdate}

type logModel struct {
	sub       chan string
	conn      *websocket.Conn
	viewport  viewport.Model
	textInput textinput.Model
	err       error
	ready     bool
	profileID string
	channel   string
	profile   *sdk.Profile
	timed     *sdk.TimedOperation
	content   string
	quitting  bool
	back      bool
	next      string
	notice    string
	client    *sdk.Client
	width     int
	height    int
}

func initialLogModel(id, channel string, conn *websocket.Conn, sub chan string, client *sdk.Client) logModel {
	ti := textinput.New()
	ti.Placeholder = "Type a command..."
	ti.Focus()
	ti.CharLimit = 156
	ti.Width = 40

	return logModel{
		sub:       sub,
		conn:      conn,
		textInput: ti,
		profileID: id,
		channel:   channel,
		client:    client,
	}
}

func (m logModel) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		waitForLog(m.sub),
		getProfileDetails(m.client, m.profileID),
		tickCmd(),
	)
}

type logMsg string
type profileErrMsg error
type profileDetailsMsg struct {
	profile *sdk.Profile
	timed   *sdk.TimedOperation
}
type commandResultMsg struct {
	entry *sdk.CommandEntry
	err   error
}

func waitForLog(sub chan string) tea.Cmd {
	return func() tea.Msg {
		if sub == nil {
			return nil
		}
		msg, ok := <-sub
		if !ok {
			return nil
		}
		return logMsg(msg)
	}
}

func getProfileDetails(client *sdk.Client, id string) tea.Cmd {
	return func() tea.Msg {
		p, err := client.GetProfile(id)
		if err != nil {
			return profileErrMsg(err)
		}
		details := profileDetailsMsg{profile: p}
		if op, err := client.ActiveTimed(id); err == nil {
			details.timed = op
		}
		return details
	}
}

func sendCommand(client *sdk.Client, id, command string) tea.Cmd {
	return func() tea.Msg {
		entry, err := client.SendCommand(id, command)
		return commandResultMsg{entry: entry, err: err}
	}
}

func nextChannel(current string) string {
	for i, c := range logChannels {
		if c == current {
			return logChannels[(i+1)%len(logChannels)]
		}
	}
	return logChannels[0]
}

func (m logModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			m.quitting = true
			return m, tea.Quit
		case tea.KeyEsc:
			m.back = true
			return m, tea.Quit
		case tea.KeyTab:
			m.next = nextChannel(m.channel)
			return m, tea.Quit
		case tea.KeyEnter:
			if m.textInput.Value() != "" {
				cmd := m.textInput.Value()
				m.textInput.SetValue("")
				if m.channel == sdk.ChannelServer && m.conn != nil {
					_ = m.conn.WriteMessage(websocket.TextMessage, []byte(cmd))
				} else {
					return m, sendCommand(m.client, m.profileID, cmd)
				}
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		headerHeight := 14
		contentWidth := msg.Width - 6

		if !m.ready {
			m.viewport = viewport.New(contentWidth, msg.Height-headerHeight)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = contentWidth
			m.viewport.Height = msg.Height - headerHeight
		}

	case logMsg:
		m.content += string(msg) + "\n"
		m.viewport.SetContent(m.content)
		m.viewport.GotoBottom()
		return m, waitForLog(m.sub)

	case profileDetailsMsg:
		m.profile = msg.profile
		m.timed = msg.timed

	case commandResultMsg:
		switch {
		case msg.err != nil:
			m.notice = msg.err.Error()
		case msg.entry.Response != "":
			m.notice = msg.entry.Response
		default:
			m.notice = "Command sent."
		}

	case profileErrMsg:
		m.err = msg
		return m, tea.Quit
	case tickMsg:
		return m, tea.Batch(getProfileDetails(m.client, m.profileID), tickCmd())
	}

	m.textInput, tiCmd = m.textInput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	return m, tea.Batch(tiCmd, vpCmd)
}

func (m logModel) View() string {
	if !m.ready {
		return "\n  Initializing..."
	}

	title := headerStyle.Width(m.width).Render(fmt.Sprintf("LOGS • %s", m.channel))

	info := "Loading profile details..."
	if p := m.profile; p != nil {
		icon, color := statusIcon(string(p.Status))
		statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(color))

		info = fmt.Sprintf(
			"Profile: %s %s  •  %s  •  Map: %s\nPorts: game %d / query %d / rcon %d  •  Players: %d/%d",
			icon,
			statusStyle.Render(p.Name),
			p.Status,
			p.Config.Map,
			p.Config.GamePort,
			p.Config.QueryPort,
			p.Config.RCONPort,
			p.PlayerCount,
			p.Config.MaxPlayers,
		)
		if m.timed != nil && !m.timed.EndsAt.IsZero() {
			info += fmt.Sprintf("\nTimed %s at %s", m.timed.Kind, m.timed.EndsAt.Local().Format("15:04:05"))
		}
	}

	headerBox := baseStyle.
		Width(m.width-4).
		Align(lipgloss.Center).
		Render(info)

	console := baseStyle.
		Width(m.width - 4).
		Render(m.viewport.View())

	inputLine := fmt.Sprintf("→ %s", m.textInput.View())
	if m.notice != "" {
		inputLine += "\n" + descStyle.Render(m.notice)
	}

	help := lipgloss.NewStyle().
		Width(m.width - 6).
		Align(lipgloss.Center).
		Render(helpLine("tab", "next channel", "esc", "back", "ctrl+c", "quit"))

	footerBox := footerStyle.
		Width(m.width - 4).
		Align(lipgloss.Left).
		Render(lipgloss.JoinVertical(lipgloss.Left, inputLine, "", help))

	return lipgloss.JoinVertical(lipgloss.Center,
		title,
		headerBox,
		console,
		footerBox,
	)
}

// RunLogs shows the profile's log channels until the user leaves. It reports
// whether they asked to go back to the dashboard.
func RunLogs(client *sdk.Client, id string) bool {
	channel := sdk.ChannelServer
	for {
		m, ok := runChannel(client, id, channel)
		if !ok {
			return true
		}
		if m.next != "" {
			channel = m.next
			continue
		}
		return m.back
	}
}

func runChannel(client *sdk.Client, id, channel string) (logModel, bool) {
	wsURL, err := client.StreamURL(id, channel)
	if err != nil {
		log.Fatal("Error parsing base URL:", err)
	}

	header := http.Header{}
	header.Set("X-Arkwarden-Client", "CLI")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		fmt.Printf("Error connecting to logs: %v\nPress Enter to continue...", err)
		fmt.Scanln()
		return logModel{}, false
	}
	defer conn.Close()

	sub := make(chan string)

	go func() {
		defer close(sub)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}
			sub <- string(message)
		}
	}()

	p := tea.NewProgram(
		initialLogModel(id, channel, conn, sub, client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	final, err := p.Run()
	if err != nil {
		log.Printf("Error running logs UI: %v", err)
		return logModel{}, false
	}

	lm, ok := final.(logModel)
	return lm, ok
}
