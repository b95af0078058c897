package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vctt94/yanivsrv/pkg/api"
	"github.com/vctt94/yanivsrv/pkg/client"
	"github.com/vctt94/yanivsrv/pkg/yaniv"
)

var (
	focusedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	blurredStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true).MarginLeft(2)
	gameInfoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("140")).MarginTop(1)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Margin(1, 0)
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	blackCardStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	redCardStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pickedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true)
)

type menuOption string

const (
	optionCreateRoom      menuOption = "Create Room"
	optionJoinRoom        menuOption = "Join Room"
	optionStartGame       menuOption = "Start Game"
	optionToggleSlamdowns menuOption = "Toggle Slamdowns"
	optionLeaveRoom       menuOption = "Leave Room"
	optionPlayAgain       menuOption = "Play Again"
	optionQuit            menuOption = "Quit"
)

// screenState represents the current screen in the UI
type screenState int

const (
	stateMainMenu screenState = iota
	stateCreateRoom
	stateJoinRoom
	stateRoomLobby
	stateActiveGame
	stateGameOver
)

// Messages produced by commands. Stream errors carry their own type so
// only the stream listener gets re-armed when one arrives.
type errorMsg error
type streamErrMsg error
type tickMsg struct{}
type roomStateMsg *api.RoomSnapshot
type roomJoinedMsg string
type roomLeftMsg struct{}
type optionsChangedMsg api.RoomOptions

// Model contains all the state for our UI
type Model struct {
	ctx  context.Context
	ycli *client.YanivClient

	state        screenState
	err          error
	message      string
	menuOptions  []menuOption
	selectedItem int

	// Form inputs
	aiCountInput string
	codeInput    string

	// Latest room snapshot and hand selection state
	snap     *api.RoomSnapshot
	cursor   int
	selected map[int]bool
	handKey  string
}

func initialModel(ctx context.Context, ycli *client.YanivClient) Model {
	return Model{
		ctx:          ctx,
		ycli:         ycli,
		state:        stateMainMenu,
		menuOptions:  mainMenuOptions(),
		aiCountInput: "1",
		selected:     map[int]bool{},
	}
}

func mainMenuOptions() []menuOption {
	return []menuOption{optionCreateRoom, optionJoinRoom, optionQuit}
}

func lobbyMenuOptions() []menuOption {
	return []menuOption{optionStartGame, optionToggleSlamdowns, optionLeaveRoom}
}

func gameOverMenuOptions() []menuOption {
	return []menuOption{optionPlayAgain, optionQuit}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listenUpdates(m.ycli), listenErrors(m.ycli), pollTicker())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// Form screens eat printable keys as typing; room codes may
		// contain any letter, so only esc backs out of them.
		if m.state == stateCreateRoom || m.state == stateJoinRoom {
			return m.updateForm(msg.String())
		}
		switch msg.String() {
		case "q", "esc":
			switch m.state {
			case stateMainMenu, stateActiveGame:
				// A running game holds the seat; the same pid can rejoin
				// after quitting.
				return m, tea.Quit
			case stateRoomLobby:
				cmds = append(cmds, leaveRoomCmd(m.ctx, m.ycli))
			default:
				resetToMenu(&m)
				return m, nil
			}
		case "up", "k":
			if m.state == stateMainMenu || m.state == stateRoomLobby || m.state == stateGameOver {
				m.selectedItem = max(0, m.selectedItem-1)
			}
		case "down", "j":
			if m.state == stateMainMenu || m.state == stateRoomLobby || m.state == stateGameOver {
				m.selectedItem = min(len(m.menuOptions)-1, m.selectedItem+1)
			}
		case "left", "h":
			if m.state == stateActiveGame {
				m.cursor = max(0, m.cursor-1)
			}
		case "right", "l":
			if m.state == stateActiveGame {
				m.cursor = min(len(m.selfHand())-1, m.cursor+1)
			}
		case " ":
			if m.state == stateActiveGame && m.cursor < len(m.selfHand()) {
				m.selected[m.cursor] = !m.selected[m.cursor]
			}
		case "d":
			if m.state == stateActiveGame {
				if cmd := m.playCmd(yaniv.DrawDeck); cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
		case "1", "2":
			if m.state == stateActiveGame {
				idx, _ := strconv.Atoi(msg.String())
				if g := m.game(); g != nil && idx <= len(g.DrawOptions) {
					if cmd := m.playCmd(idx - 1); cmd != nil {
						cmds = append(cmds, cmd)
					}
				}
			}
		case "y":
			if m.state == stateActiveGame {
				cmds = append(cmds, declareYanivCmd(m.ctx, m.ycli))
			}
		case "s":
			if m.state == stateActiveGame {
				cmds = append(cmds, declareSlamdownCmd(m.ctx, m.ycli))
			}
		case "enter":
			switch m.state {
			case stateMainMenu:
				switch m.menuOptions[m.selectedItem] {
				case optionCreateRoom:
					m.state = stateCreateRoom
					m.err = nil
				case optionJoinRoom:
					m.state = stateJoinRoom
					m.err = nil
				case optionQuit:
					return m, tea.Quit
				}
			case stateRoomLobby:
				switch m.menuOptions[m.selectedItem] {
				case optionStartGame:
					slamdowns := false
					if m.snap != nil {
						slamdowns = m.snap.Options.SlamdownsAllowed
					}
					cmds = append(cmds, startGameCmd(m.ctx, m.ycli, slamdowns))
				case optionToggleSlamdowns:
					cur := false
					if m.snap != nil {
						cur = m.snap.Options.SlamdownsAllowed
					}
					cmds = append(cmds, setOptionsCmd(m.ctx, m.ycli, !cur))
				case optionLeaveRoom:
					cmds = append(cmds, leaveRoomCmd(m.ctx, m.ycli))
				}
			case stateGameOver:
				switch m.menuOptions[m.selectedItem] {
				case optionPlayAgain:
					cmds = append(cmds, playAgainCmd(m.ctx, m.ycli))
				case optionQuit:
					return m, tea.Quit
				}
			}
		}

	case client.RoomUpdateMsg:
		applySnapshot(&m, (*api.RoomSnapshot)(msg))
		cmds = append(cmds, listenUpdates(m.ycli))

	case roomStateMsg:
		applySnapshot(&m, (*api.RoomSnapshot)(msg))

	case roomJoinedMsg:
		m.state = stateRoomLobby
		m.menuOptions = lobbyMenuOptions()
		m.selectedItem = 0
		m.err = nil
		m.message = fmt.Sprintf("Room code: %s", strings.ToUpper(string(msg)))
		cmds = append(cmds, startStreamCmd(m.ctx, m.ycli), fetchRoomCmd(m.ctx, m.ycli))

	case roomLeftMsg:
		resetToMenu(&m)
		m.message = "Left room"

	case optionsChangedMsg:
		if api.RoomOptions(msg).SlamdownsAllowed {
			m.message = "Slamdowns enabled"
		} else {
			m.message = "Slamdowns disabled"
		}

	case errorMsg:
		m.err = error(msg)

	case streamErrMsg:
		m.err = error(msg)
		cmds = append(cmds, listenErrors(m.ycli))

	case tickMsg:
		if m.ycli.GetCurrentRoomCode() != "" {
			cmds = append(cmds, fetchRoomCmd(m.ctx, m.ycli))
		}
		cmds = append(cmds, pollTicker())
	}

	return m, tea.Batch(cmds...)
}

// updateForm handles keys while a text form is on screen.
func (m Model) updateForm(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "esc":
		resetToMenu(&m)
	case "enter":
		if m.state == stateCreateRoom {
			aiCount, err := strconv.Atoi(m.aiCountInput)
			if err != nil {
				aiCount = 0
			}
			return m, createRoomCmd(m.ctx, m.ycli, aiCount)
		}
		if m.codeInput != "" {
			return m, joinRoomCmd(m.ctx, m.ycli, m.codeInput)
		}
	case "backspace":
		if m.state == stateCreateRoom && len(m.aiCountInput) > 0 {
			m.aiCountInput = m.aiCountInput[:len(m.aiCountInput)-1]
		}
		if m.state == stateJoinRoom && len(m.codeInput) > 0 {
			m.codeInput = m.codeInput[:len(m.codeInput)-1]
		}
	default:
		if m.state == stateCreateRoom {
			if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
				m.aiCountInput += key
			}
		} else if len(key) == 1 {
			m.codeInput += strings.ToLower(key)
		}
	}
	return m, nil
}

// playCmd builds the discard+draw command from the current selection, or
// returns nil when nothing is selected.
func (m *Model) playCmd(draw int) tea.Cmd {
	hand := m.selfHand()
	var discard []int
	for i, c := range hand {
		if m.selected[i] {
			discard = append(discard, c.ID)
		}
	}
	if len(discard) == 0 {
		m.err = fmt.Errorf("select at least one card first")
		return nil
	}
	m.err = nil
	return playTurnCmd(m.ctx, m.ycli, discard, draw)
}

func resetToMenu(m *Model) {
	m.state = stateMainMenu
	m.menuOptions = mainMenuOptions()
	m.selectedItem = 0
	m.snap = nil
	m.err = nil
	m.message = ""
	m.codeInput = ""
	m.cursor = 0
	m.selected = map[int]bool{}
	m.handKey = ""
}

// applySnapshot folds a fresh room snapshot into the model, switching
// screens as the room moves through its lifecycle.
func applySnapshot(m *Model, snap *api.RoomSnapshot) {
	if snap == nil || snap.Code != m.ycli.GetCurrentRoomCode() {
		return
	}
	m.snap = snap

	switch snap.Status {
	case api.StatusPlaying:
		if m.state != stateActiveGame {
			m.state = stateActiveGame
			m.message = ""
		}
	case api.StatusFinished:
		if m.state != stateGameOver {
			m.state = stateGameOver
			m.menuOptions = gameOverMenuOptions()
			m.selectedItem = 0
		}
	default:
		if m.state != stateRoomLobby {
			m.state = stateRoomLobby
			m.menuOptions = lobbyMenuOptions()
			m.selectedItem = 0
		}
	}

	// Selections only survive while the hand stays put.
	key := handFingerprint(m.selfHand())
	if key != m.handKey {
		m.handKey = key
		m.cursor = 0
		m.selected = map[int]bool{}
	}
}

func (m *Model) game() *api.GameView {
	if m.snap == nil {
		return nil
	}
	return m.snap.Game
}

func (m *Model) selfView() *api.PlayerView {
	g := m.game()
	if g == nil {
		return nil
	}
	for i := range g.Players {
		if g.Players[i].IsSelf {
			return &g.Players[i]
		}
	}
	return nil
}

func (m *Model) selfHand() []yaniv.CardJSON {
	if self := m.selfView(); self != nil {
		return self.Hand
	}
	return nil
}

func handFingerprint(hand []yaniv.CardJSON) string {
	ids := make([]string, len(hand))
	for i, c := range hand {
		ids[i] = strconv.Itoa(c.ID)
	}
	return strings.Join(ids, ",")
}

// View renders the current state of the UI
func (m Model) View() string {
	var s string

	if m.message != "" {
		s += titleStyle.Render(m.message) + "\n\n"
	}
	if m.err != nil {
		s += errorStyle.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\n"
	}

	switch m.state {
	case stateMainMenu:
		s += titleStyle.Render("Yaniv - Main Menu") + "\n\n"
		s += fmt.Sprintf("Name: %s\n", m.ycli.Name)
		s += fmt.Sprintf("Player ID: %s\n\n", m.ycli.ID)
		s += m.renderMenu()

	case stateCreateRoom:
		s += titleStyle.Render("Create Room") + "\n\n"
		s += focusedStyle.Render(fmt.Sprintf("AI opponents (0-3): %s_", m.aiCountInput)) + "\n\n"
		s += helpStyle.Render("Type a number and press Enter to create the room")

	case stateJoinRoom:
		s += titleStyle.Render("Join Room") + "\n\n"
		s += focusedStyle.Render(fmt.Sprintf("Room code: %s_", m.codeInput)) + "\n\n"
		s += helpStyle.Render("Enter the 5-letter room code and press Enter")

	case stateRoomLobby:
		s += m.renderLobby()

	case stateActiveGame:
		s += m.renderGame()

	case stateGameOver:
		s += m.renderGameOver()
	}

	if m.state == stateCreateRoom || m.state == stateJoinRoom {
		s += "\n" + helpStyle.Render("Press esc to go back")
	} else {
		s += "\n" + helpStyle.Render("Press 'q' to quit or go back")
	}
	return s
}

func (m Model) renderMenu() string {
	var s string
	for i, option := range m.menuOptions {
		if i == m.selectedItem {
			s += focusedStyle.Render(fmt.Sprintf("> %s", option)) + "\n"
		} else {
			s += blurredStyle.Render(fmt.Sprintf("  %s", option)) + "\n"
		}
	}
	return s
}

func (m Model) renderLobby() string {
	var s string
	code := m.ycli.GetCurrentRoomCode()
	s += titleStyle.Render(fmt.Sprintf("Room %s - Waiting for players", strings.ToUpper(code))) + "\n\n"

	if m.snap == nil {
		s += "Loading room...\n"
		return s
	}

	s += "Players:\n"
	for _, mb := range m.snap.Members {
		line := fmt.Sprintf("  %s", mb.Name)
		if mb.IsAI {
			line += " (AI)"
		}
		if mb.PID == m.ycli.ID {
			s += focusedStyle.Render(line+" (you)") + "\n"
		} else {
			s += blurredStyle.Render(line) + "\n"
		}
	}

	slamdowns := "off"
	if m.snap.Options.SlamdownsAllowed {
		slamdowns = "on"
	}
	s += gameInfoStyle.Render(fmt.Sprintf("Slamdowns: %s", slamdowns)) + "\n\n"
	s += m.renderMenu()
	s += "\n" + helpStyle.Render("Share the room code so others can join")
	return s
}

func (m Model) renderGame() string {
	g := m.game()
	if g == nil {
		return "Waiting for game state...\n"
	}

	var s string
	s += titleStyle.Render(fmt.Sprintf("Room %s", strings.ToUpper(m.snap.Code))) + "\n"

	turn := g.CurrentPlayerName
	if g.IsMyTurn {
		turn = "YOURS"
	}
	s += gameInfoStyle.Render(fmt.Sprintf("Deck: %d cards | Turn: %s", g.DeckSize, turn)) + "\n\n"

	if m.snap.LastRound != nil {
		s += renderRoundBanner(m.snap.LastRound)
	}
	if m.snap.LastTurn != nil {
		s += renderLastTurn(m.snap.LastTurn) + "\n"
	}

	for _, p := range g.Players {
		line := fmt.Sprintf("  %s: %d points, %d cards", p.Name, p.Score, p.HandCount)
		if p.IsAI {
			line += " (AI)"
		}
		if p.IsCurrent {
			line += " <- current turn"
		}
		if p.IsSelf {
			s += focusedStyle.Render(line+" (you)") + "\n"
		} else {
			s += blurredStyle.Render(line) + "\n"
		}
	}
	s += "\n"

	s += "Discard: " + cardsLine(g.DiscardTop) + "\n"
	if len(g.DrawOptions) > 0 {
		s += "Take:    "
		for i, c := range g.DrawOptions {
			s += fmt.Sprintf("%d=%s  ", i+1, renderCard(c, false))
		}
		s += "or d=deck\n"
	}
	s += "\n"

	self := m.selfView()
	if self != nil && len(self.Hand) > 0 {
		total := 0
		for _, c := range self.Hand {
			total += c.Value
		}
		s += fmt.Sprintf("Your hand (%d points):\n", total)
		var row string
		for i, c := range self.Hand {
			cell := renderCard(c, m.selected[i])
			if g.IsMyTurn && i == m.cursor {
				cell = focusedStyle.Render(">") + cell
			} else {
				cell = " " + cell
			}
			row += cell + " "
		}
		s += row + "\n"

		if self.CanYaniv != nil && *self.CanYaniv {
			s += bannerStyle.Render("You can declare Yaniv! Press 'y'") + "\n"
		}
	}
	if g.CanSlamdown {
		label := "You can slam down"
		if g.SlamdownCard != nil {
			label = fmt.Sprintf("You can slam down %s", cardLabel(*g.SlamdownCard))
		}
		s += bannerStyle.Render(label+" - press 's'") + "\n"
	}

	s += helpStyle.Render("←/→ move   space select   d discard+deck   1/2 discard+take pile   y yaniv")
	return s
}

func (m Model) renderGameOver() string {
	var s string
	s += titleStyle.Render("Game Over") + "\n\n"
	if m.snap != nil {
		if m.snap.Winner != "" {
			s += bannerStyle.Render(fmt.Sprintf("%s wins!", m.snap.Winner)) + "\n\n"
		}
		if m.snap.LastRound != nil {
			s += renderRoundBanner(m.snap.LastRound)
		}
		if g := m.snap.Game; g != nil {
			s += "Final scores:\n"
			for _, p := range g.Players {
				s += fmt.Sprintf("  %s: %d\n", p.Name, p.Score)
			}
			s += "\n"
		}
	}
	s += m.renderMenu()
	return s
}

func renderLastTurn(t *api.TurnSummary) string {
	if t.IsSlamdown {
		return gameInfoStyle.Render(fmt.Sprintf("%s slammed down %s", t.Player, cardsLine(t.Discarded)))
	}
	drew := "drew from the deck"
	if t.DrawnFrom == "pile" && t.DrawnCard != nil {
		drew = fmt.Sprintf("took %s from the pile", cardLabel(*t.DrawnCard))
	}
	return gameInfoStyle.Render(fmt.Sprintf("%s discarded %s and %s", t.Player, cardsLine(t.Discarded), drew))
}

func renderRoundBanner(r *api.RoundSummary) string {
	var s string
	line := fmt.Sprintf("%s declared Yaniv with %d", r.Declarer, r.DeclarerHandValue)
	if r.Assaf != nil {
		line += fmt.Sprintf(" - Assaf! %s caught by %s", r.Assaf.Assafed, r.Assaf.By)
	}
	s += bannerStyle.Render(line) + "\n"
	for _, sc := range r.ScoreChanges {
		detail := fmt.Sprintf("  %s: +%d -> %d", sc.Name, sc.Added, sc.NewScore)
		if sc.Reset {
			detail += " (landed on a reset, -50)"
		}
		if sc.Eliminated {
			detail += " (eliminated)"
		}
		s += blurredStyle.Render(detail) + "\n"
	}
	return s + "\n"
}

var suitSymbols = map[string]string{
	"Clubs":    "♣",
	"Diamonds": "♦",
	"Hearts":   "♥",
	"Spades":   "♠",
}

func cardLabel(c yaniv.CardJSON) string {
	if c.Suit == nil {
		return "Joker"
	}
	return c.Rank + suitSymbols[*c.Suit]
}

func renderCard(c yaniv.CardJSON, picked bool) string {
	label := "[" + cardLabel(c) + "]"
	if picked {
		return pickedStyle.Render(label)
	}
	if c.Suit != nil && (*c.Suit == "Hearts" || *c.Suit == "Diamonds") {
		return redCardStyle.Render(label)
	}
	return blackCardStyle.Render(label)
}

func cardsLine(cards []yaniv.CardJSON) string {
	parts := make([]string, len(cards))
	for i, c := range cards {
		parts[i] = renderCard(c, false)
	}
	return strings.Join(parts, " ")
}

// Commands

func listenUpdates(ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		return <-ycli.UpdatesCh
	}
}

func listenErrors(ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		return streamErrMsg(<-ycli.ErrorsCh)
	}
}

func pollTicker() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg{}
	})
}

func createRoomCmd(ctx context.Context, ycli *client.YanivClient, aiCount int) tea.Cmd {
	return func() tea.Msg {
		code, err := ycli.CreateRoom(ctx, aiCount)
		if err != nil {
			return errorMsg(err)
		}
		return roomJoinedMsg(code)
	}
}

func joinRoomCmd(ctx context.Context, ycli *client.YanivClient, code string) tea.Cmd {
	return func() tea.Msg {
		if err := ycli.JoinRoom(ctx, code); err != nil {
			return errorMsg(err)
		}
		return roomJoinedMsg(code)
	}
}

func leaveRoomCmd(ctx context.Context, ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		if err := ycli.LeaveRoom(ctx); err != nil {
			return errorMsg(err)
		}
		return roomLeftMsg{}
	}
}

func startStreamCmd(ctx context.Context, ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		if err := ycli.StartEventStream(ctx); err != nil {
			return errorMsg(err)
		}
		return nil
	}
}

func fetchRoomCmd(ctx context.Context, ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		snap, err := ycli.GetRoom(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return roomStateMsg(snap)
	}
}

func setOptionsCmd(ctx context.Context, ycli *client.YanivClient, slamdowns bool) tea.Cmd {
	return func() tea.Msg {
		opts, err := ycli.SetOptions(ctx, slamdowns)
		if err != nil {
			return errorMsg(err)
		}
		return optionsChangedMsg(opts)
	}
}

func startGameCmd(ctx context.Context, ycli *client.YanivClient, slamdowns bool) tea.Cmd {
	return func() tea.Msg {
		if err := ycli.StartGame(ctx, slamdowns); err != nil {
			return errorMsg(err)
		}
		snap, err := ycli.GetRoom(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return roomStateMsg(snap)
	}
}

func playTurnCmd(ctx context.Context, ycli *client.YanivClient, discard []int, draw int) tea.Cmd {
	return func() tea.Msg {
		if err := ycli.PlayTurn(ctx, discard, draw); err != nil {
			return errorMsg(err)
		}
		snap, err := ycli.GetRoom(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return roomStateMsg(snap)
	}
}

func declareYanivCmd(ctx context.Context, ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		if err := ycli.DeclareYaniv(ctx); err != nil {
			return errorMsg(err)
		}
		snap, err := ycli.GetRoom(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return roomStateMsg(snap)
	}
}

func declareSlamdownCmd(ctx context.Context, ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		if err := ycli.DeclareSlamdown(ctx); err != nil {
			return errorMsg(err)
		}
		snap, err := ycli.GetRoom(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return roomStateMsg(snap)
	}
}

func playAgainCmd(ctx context.Context, ycli *client.YanivClient) tea.Cmd {
	return func() tea.Msg {
		next, err := ycli.PlayAgain(ctx)
		if err != nil {
			return errorMsg(err)
		}
		return roomJoinedMsg(next)
	}
}
