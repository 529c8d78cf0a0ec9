package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/ursineenterprises/koom/internal/alarm"
	"github.com/ursineenterprises/koom/internal/db"
	"github.com/ursineenterprises/koom/internal/playback"
	"github.com/ursineenterprises/koom/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// holdCheckInterval is how often a keyboard hold is checked for release.
	holdCheckInterval = 100 * time.Millisecond
	// holdReleaseGap ends a keyboard hold when no space auto-repeat has
	// arrived for this long. It must exceed the terminal's initial repeat
	// delay.
	holdReleaseGap = 700 * time.Millisecond

	defaultBarWidth = 40
)

// Model is the root bubbletea model for the koom TUI. The alarm machine is
// only ever touched from Update, which serializes every transition.
type Model struct {
	env     *alarm.Env
	svc     *alarm.Service
	machine *alarm.Machine
	results <-chan playback.Result
	appName string

	now  func() time.Time
	tick func(alarm.Timer) tea.Cmd

	// Routing mirrors the machine's route.
	route    alarm.Route
	routeSeq uint64

	// Alarm list
	alarms   []db.AlarmRecord
	active   bool
	selected int
	loaded   bool

	editor editor

	// Kill switch input
	keyHold   bool
	lastSpace time.Time
	holdSeq   int
	mouseHold bool

	holdBar    progress.Model
	previewBar progress.Model

	width  int
	height int

	errorMessage   string
	errorTransient bool
	statusText     string
}

// New creates a Model on the home screen. results is the playback queue's
// result stream; it may be nil.
func New(env *alarm.Env, results <-chan playback.Result, appName string) Model {
	holdBar := progress.New(progress.WithGradient("#FFCC00", "#FF3B30"), progress.WithoutPercentage())
	holdBar.Width = defaultBarWidth
	previewBar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	previewBar.Width = defaultBarWidth

	return Model{
		env:        env,
		svc:        alarm.NewService(env),
		machine:    alarm.NewMachine(env),
		results:    results,
		appName:    appName,
		now:        time.Now,
		tick:       timerCmd,
		route:      alarm.RouteHome,
		editor:     newEditor(env.Catalog.TrackIDs()),
		holdBar:    holdBar,
		previewBar: previewBar,
		statusText: "Loading alarms...",
	}
}

// Init loads the alarms and starts listening for playback results.
func (m Model) Init() tea.Cmd {
	return tea.Batch(loadAlarmsCmd(m.svc), waitForResultCmd(m.results))
}

// timerCmd delivers a machine timer after its delay.
func timerCmd(t alarm.Timer) tea.Cmd {
	return tea.Tick(t.After, func(at time.Time) tea.Msg {
		return TimerMsg{Timer: t, At: at}
	})
}

// waitForResultCmd reads the next playback result.
func waitForResultCmd(results <-chan playback.Result) tea.Cmd {
	if results == nil {
		return nil
	}
	return func() tea.Msg {
		res, ok := <-results
		if !ok {
			return PlaybackClosedMsg{}
		}
		return PlaybackResultMsg{Result: res}
	}
}

// holdCheckCmd schedules the next keyboard hold check.
func holdCheckCmd(seq int) tea.Cmd {
	return tea.Tick(holdCheckInterval, func(at time.Time) tea.Msg {
		return HoldCheckMsg{Seq: seq, At: at}
	})
}

// loadAlarmsCmd reads every alarm from the store.
func loadAlarmsCmd(svc *alarm.Service) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		alarms, err := svc.List(ctx)
		if err != nil {
			return AlarmsLoadedMsg{Err: err}
		}
		active, err := svc.HasActiveAlarm(ctx)
		return AlarmsLoadedMsg{Alarms: alarms, Active: active, Err: err}
	}
}

// saveAlarmCmd validates and persists an alarm from the editor.
func saveAlarmCmd(svc *alarm.Service, req alarm.SaveRequest) tea.Cmd {
	return func() tea.Msg {
		rec, err := svc.CreateOrUpdate(context.Background(), req)
		return AlarmSavedMsg{Record: rec, Err: err}
	}
}

// deleteAlarmCmd removes one alarm.
func deleteAlarmCmd(svc *alarm.Service, id string) tea.Cmd {
	return func() tea.Msg {
		return AlarmChangedMsg{ID: id, Err: svc.Delete(context.Background(), id)}
	}
}

// setEnabledCmd flips an alarm on or off.
func setEnabledCmd(svc *alarm.Service, id string, enabled bool) tea.Cmd {
	return func() tea.Msg {
		_, err := svc.SetEnabled(context.Background(), id, enabled)
		return AlarmChangedMsg{ID: id, Err: err}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

func (m Model) schedule(timers []alarm.Timer) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(timers))
	for _, t := range timers {
		cmds = append(cmds, m.tick(t))
	}
	return tea.Batch(cmds...)
}

// syncRoute follows a route change made by the machine. Entering the home
// or list screen reloads the alarms.
func (m *Model) syncRoute() tea.Cmd {
	snap := m.machine.Snapshot()
	if snap.RouteSeq == m.routeSeq {
		return nil
	}
	m.routeSeq = snap.RouteSeq
	m.route = snap.Route
	if m.route != alarm.RouteActive {
		m.keyHold = false
		m.mouseHold = false
	}
	switch m.route {
	case alarm.RouteHome, alarm.RouteList:
		return loadAlarmsCmd(m.svc)
	}
	return nil
}

func (m *Model) navigate(r alarm.Route) tea.Cmd {
	m.machine.Navigate(r)
	return m.syncRoute()
}

func (m *Model) setTransientError(msg string) tea.Cmd {
	m.errorMessage = msg
	m.errorTransient = true
	return clearTransientErrorCmd()
}

// describeError turns a lifecycle error into a line for the error bar.
func describeError(err error) string {
	var verr *alarm.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, alarm.ErrNotFound):
		return "That alarm no longer exists"
	case errors.Is(err, alarm.ErrDisabled):
		return "Enable the alarm before starting it"
	case errors.Is(err, alarm.ErrSessionActive):
		return "An alarm is already running"
	case errors.Is(err, alarm.ErrKillSwitchUnavailable):
		return "The kill switch unlocks when the alarm sounds"
	}
	return err.Error()
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		w := min(defaultBarWidth, max(10, msg.Width-4))
		m.holdBar.Width = w
		m.previewBar.Width = w
		return m, nil

	case AlarmsLoadedMsg:
		if msg.Err != nil {
			m.errorMessage = msg.Err.Error()
			m.errorTransient = false
			return m, nil
		}
		m.alarms = msg.Alarms
		m.active = msg.Active
		m.loaded = true
		m.statusText = ""
		if m.selected >= len(m.alarms) {
			m.selected = max(0, len(m.alarms)-1)
		}
		return m, nil

	case AlarmSavedMsg:
		if msg.Err != nil {
			var verr *alarm.ValidationError
			if errors.As(msg.Err, &verr) {
				m.editor.problems = verr.Fields
				return m, nil
			}
			cmd := m.setTransientError(describeError(msg.Err))
			return m, cmd
		}
		m.editor.problems = nil
		m.machine.StopPreview()
		if msg.Record.Enabled {
			return m.arm(msg.Record.ID)
		}
		cmd := m.navigate(alarm.RouteList)
		return m, cmd

	case AlarmChangedMsg:
		var cmd tea.Cmd
		if msg.Err != nil {
			cmd = m.setTransientError(describeError(msg.Err))
		}
		return m, tea.Batch(cmd, loadAlarmsCmd(m.svc))

	case TimerMsg:
		timers := m.machine.Fire(context.Background(), msg.Timer, msg.At)
		routeCmd := m.syncRoute()
		return m, tea.Batch(m.schedule(timers), routeCmd)

	case PlaybackResultMsg:
		timers := m.machine.HandlePlayback(msg.Result)
		routeCmd := m.syncRoute()
		return m, tea.Batch(m.schedule(timers), routeCmd, waitForResultCmd(m.results))

	case PlaybackClosedMsg:
		m.results = nil
		return m, nil

	case HoldCheckMsg:
		return m.checkKeyHold(msg)

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.machine.Teardown()
	return m, tea.Quit
}

// handleKey processes key presses for the current screen.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == KeyCtrlC {
		return m.quit()
	}
	switch m.route {
	case alarm.RouteList:
		return m.handleListKey(msg)
	case alarm.RouteEditor:
		return m.handleEditorKey(msg)
	case alarm.RouteActive:
		return m.handleActiveKey(msg)
	}
	return m.handleHomeKey(msg)
}

func (m Model) handleHomeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper:
		return m.quit()
	case KeyNew:
		return m.openEditor(newEditor(m.env.Catalog.TrackIDs()))
	case KeyList, KeyEnter:
		cmd := m.navigate(alarm.RouteList)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyQuit, KeyQuitUpper:
		return m.quit()

	case KeyEsc:
		cmd := m.navigate(alarm.RouteHome)
		return m, cmd

	case KeyJ, KeyDown:
		if m.selected < len(m.alarms)-1 {
			m.selected++
		}
		return m, nil

	case KeyK, KeyUp:
		if m.selected > 0 {
			m.selected--
		}
		return m, nil

	case KeyNew:
		return m.openEditor(newEditor(m.env.Catalog.TrackIDs()))
	}

	if m.selected >= len(m.alarms) {
		return m, nil
	}
	rec := m.alarms[m.selected]

	switch msg.String() {
	case KeyEnter:
		return m.arm(rec.ID)
	case KeyEdit:
		return m.openEditor(editorFor(rec, m.env.Catalog.TrackIDs()))
	case KeyDelete:
		return m, deleteAlarmCmd(m.svc, rec.ID)
	case KeySpace:
		return m, setEnabledCmd(m.svc, rec.ID, !rec.Enabled)
	}
	return m, nil
}

func (m Model) openEditor(e editor) (tea.Model, tea.Cmd) {
	m.editor = e
	cmd := m.navigate(alarm.RouteEditor)
	return m, cmd
}

// arm starts a session for id and shows the active screen.
func (m Model) arm(id string) (tea.Model, tea.Cmd) {
	if _, err := m.machine.ArmSession(context.Background(), id); err != nil {
		errCmd := m.setTransientError(describeError(err))
		routeCmd := m.syncRoute()
		return m, tea.Batch(errCmd, routeCmd)
	}
	timers, err := m.machine.Start(m.now())
	if err != nil {
		cmd := m.setTransientError(describeError(err))
		return m, cmd
	}
	routeCmd := m.syncRoute()
	return m, tea.Batch(m.schedule(timers), routeCmd)
}

func (m Model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	onTime := m.editor.focus == fieldTime

	switch key {
	case KeyEsc:
		m.machine.StopPreview()
		cmd := m.navigate(alarm.RouteList)
		return m, cmd

	case KeySave, KeyEnter:
		m.editor.problems = nil
		return m, saveAlarmCmd(m.svc, m.editor.request())

	case KeyTab, KeyDown:
		m.editor.setFocus(m.editor.focus + 1)
		return m, nil

	case KeyShiftTab, KeyUp:
		m.editor.setFocus(m.editor.focus - 1)
		return m, nil

	case KeyLeft, KeyRight:
		delta := 1
		if key == KeyLeft {
			delta = -1
		}
		if m.editor.cycle(delta) {
			if m.editor.focus == fieldTrack && m.machine.Snapshot().Preview.Active {
				m.machine.StopPreview()
			}
			return m, nil
		}

	case KeySpace:
		if !onTime {
			m.editor.cycle(1)
			return m, nil
		}
		return m, nil

	case KeyPreview:
		if !onTime {
			return m.preview()
		}
	}

	if !onTime {
		return m, nil
	}
	var cmd tea.Cmd
	m.editor.timeInput, cmd = m.editor.timeInput.Update(msg)
	return m, cmd
}

// preview plays the editor's selected track, or stops a running preview.
func (m Model) preview() (tea.Model, tea.Cmd) {
	if m.machine.Snapshot().Preview.Active {
		m.machine.StopPreview()
		return m, nil
	}
	timers, err := m.machine.StartPreview(m.editor.trackID(), m.now())
	if err != nil {
		cmd := m.setTransientError(describeError(err))
		return m, cmd
	}
	return m, m.schedule(timers)
}

func (m Model) handleActiveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeySpace:
		return m.spaceDown()

	case KeyCancel:
		if err := m.machine.Cancel(); err != nil {
			cmd := m.setTransientError(describeError(err))
			return m, cmd
		}
		cmd := m.syncRoute()
		return m, cmd

	case KeyEdit:
		rec, err := m.machine.Edit()
		if err != nil {
			cmd := m.setTransientError(describeError(err))
			return m, cmd
		}
		m.editor = editorFor(rec, m.env.Catalog.TrackIDs())
		cmd := m.syncRoute()
		return m, cmd
	}
	return m, nil
}

// spaceDown starts or extends a keyboard hold. Terminals report no key
// release, so a hold lasts while auto-repeat keeps arriving.
func (m Model) spaceDown() (tea.Model, tea.Cmd) {
	now := m.now()
	m.lastSpace = now
	if m.keyHold {
		return m, nil
	}
	timers, err := m.machine.HoldStart(now)
	if err != nil {
		cmd := m.setTransientError(describeError(err))
		return m, cmd
	}
	if len(timers) == 0 {
		return m, nil
	}
	m.keyHold = true
	m.holdSeq++
	return m, tea.Batch(m.schedule(timers), holdCheckCmd(m.holdSeq))
}

func (m Model) checkKeyHold(msg HoldCheckMsg) (tea.Model, tea.Cmd) {
	if !m.keyHold || msg.Seq != m.holdSeq {
		return m, nil
	}
	if !m.machine.Snapshot().Holding {
		m.keyHold = false
		cmd := m.syncRoute()
		return m, cmd
	}
	if msg.At.Sub(m.lastSpace) >= holdReleaseGap {
		m.keyHold = false
		m.machine.HoldRelease()
		return m, nil
	}
	return m, holdCheckCmd(m.holdSeq)
}

// handleMouse gives exact hold semantics on the active screen: a left
// press starts the hold and the release ends it.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.route != alarm.RouteActive {
		return m, nil
	}
	switch {
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		timers, err := m.machine.HoldStart(m.now())
		if err != nil {
			cmd := m.setTransientError(describeError(err))
			return m, cmd
		}
		m.mouseHold = true
		return m, m.schedule(timers)

	case msg.Action == tea.MouseActionRelease && m.mouseHold:
		m.mouseHold = false
		if !m.keyHold {
			m.machine.HoldRelease()
		}
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderHeader())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	switch m.route {
	case alarm.RouteList:
		sections = append(sections, m.renderList())
	case alarm.RouteEditor:
		snap := m.machine.Snapshot()
		sections = append(sections, m.editor.view(snap.Preview, m.previewBar.ViewAs(snap.Preview.Progress)))
	case alarm.RouteActive:
		sections = append(sections, m.renderActive())
	default:
		sections = append(sections, m.renderHome())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))
	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}
	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render(m.appName)
	snap := m.machine.Snapshot()
	if snap.Status != alarm.Idle {
		return title + ui.DimStyle.Render(" · "+snap.StatusLabel())
	}
	return title
}

func (m Model) renderHome() string {
	var lines []string
	lines = append(lines, "")
	switch {
	case !m.loaded:
		lines = append(lines, ui.DimStyle.Render("  "+m.statusText))
	case len(m.alarms) == 0:
		lines = append(lines, ui.DimStyle.Render("  No alarms yet. Press n to set one."))
	default:
		enabled := 0
		for _, a := range m.alarms {
			if a.Enabled {
				enabled++
			}
		}
		lines = append(lines, fmt.Sprintf("  %d alarm(s), %d enabled", len(m.alarms), enabled))
		if rec, at, ok := alarm.Upcoming(m.alarms, m.now()); ok {
			lines = append(lines, ui.EnabledStyle.Render(fmt.Sprintf("  Next: %s %s (%s)", at.Format("Mon Jan 2 15:04"), rec.PrimaryTrack(), formatUntil(at.Sub(m.now())))))
		}
		if m.active {
			lines = append(lines, ui.DimStyle.Render("  Press l to see them."))
		} else {
			lines = append(lines, ui.DisabledStyle.Render("  Every alarm is off. Press l and space to switch one on."))
		}
	}
	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m Model) renderList() string {
	var lines []string
	lines = append(lines, ui.PanelTitleStyle.Render(fmt.Sprintf("ALARMS (%d)", len(m.alarms))))
	if len(m.alarms) == 0 {
		lines = append(lines, ui.DimStyle.Render("  No alarms yet..."))
		return strings.Join(lines, "\n")
	}
	for i, a := range m.alarms {
		lines = append(lines, m.renderAlarmRow(i, a))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderAlarmRow(i int, a db.AlarmRecord) string {
	state := ui.EnabledStyle.Render("on ")
	if !a.Enabled {
		state = ui.DisabledStyle.Render("off")
	}
	repeat := ""
	if a.Recurring {
		repeat = ui.DimStyle.Render(" repeats")
	}
	row := fmt.Sprintf("%-5s  %-9s  %s", a.Time, a.Day, a.PrimaryTrack())
	if i == m.selected {
		return ui.SelectedStyle.Render("> "+row) + "  " + state + repeat
	}
	return "  " + row + "  " + state + repeat
}

func (m Model) renderActive() string {
	snap := m.machine.Snapshot()
	var lines []string

	lines = append(lines, ui.DimStyle.Render(fmt.Sprintf("%s %s · %s", snap.Record.Day, snap.Record.Time, snap.TrackID)), "")

	display := snap.Display
	if display == "" {
		display = "--"
	}
	switch {
	case snap.Status == alarm.Sounding:
		lines = append(lines, ui.SoundingStyle.Render(display))
	case snap.Paused:
		lines = append(lines, ui.PausedStyle.Render(display+"  (paused)"))
	default:
		lines = append(lines, ui.CountdownStyle.Render(display))
	}
	if snap.Banner != "" {
		lines = append(lines, ui.BannerStyle.Render(snap.Banner))
	}
	lines = append(lines, "")

	var sw string
	switch {
	case snap.Status == alarm.Killed:
		sw = ui.SwitchLockedStyle.Render("KILLED")
	case snap.Holding:
		sw = ui.SwitchHeldStyle.Render("HOLDING...")
	case snap.KillAvailable:
		sw = ui.SwitchStyle.Render("HOLD TO KILL")
	default:
		sw = ui.SwitchLockedStyle.Render("LOCKED UNTIL IT RINGS")
	}
	lines = append(lines, sw, m.holdBar.ViewAs(snap.HoldProgress))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

// formatUntil renders a lead time like "in 2d 3h" or "in 45m".
func formatUntil(d time.Duration) string {
	d = d.Round(time.Minute)
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	mins := int(d/time.Minute) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("in %dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("in %dh %dm", hours, mins)
	default:
		return fmt.Sprintf("in %dm", mins)
	}
}

func footerKey(key, desc string) string {
	return ui.FooterKeyStyle.Render(key) + ui.FooterDescStyle.Render(" "+desc)
}

func (m Model) renderFooter() string {
	var parts []string
	switch m.route {
	case alarm.RouteList:
		parts = append(parts,
			footerKey("Enter", "Start"),
			footerKey("n", "New"),
			footerKey("e", "Edit"),
			footerKey("Space", "On/Off"),
			footerKey("d", "Delete"),
			footerKey("j/k", "Nav"),
			footerKey("Esc", "Home"),
			footerKey("q", "Quit"),
		)
	case alarm.RouteEditor:
		parts = append(parts,
			footerKey("Tab", "Field"),
			footerKey("←→", "Change"),
			footerKey("p", "Preview"),
			footerKey("Enter", "Save"),
			footerKey("Esc", "Back"),
		)
	case alarm.RouteActive:
		parts = append(parts,
			footerKey("Space", "Hold"),
			footerKey("c", "Cancel"),
			footerKey("e", "Edit"),
		)
	default:
		parts = append(parts,
			footerKey("n", "New"),
			footerKey("l", "Alarms"),
			footerKey("q", "Quit"),
		)
	}
	return strings.Join(parts, "  ")
}
