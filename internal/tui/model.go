package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/hylla/ctrain/internal/app"
	"github.com/hylla/ctrain/internal/domain"
)

// Service represents service data used by this package.
type Service interface {
	Form() app.FormState
	Progress() domain.Progress
	Catalog() app.Catalog
	SetProfile(context.Context, app.ProfilePatch) (domain.Profile, error)
	AddActivity(context.Context) (domain.ActivityRecord, error)
	UpdateActivity(context.Context, string, app.RecordPatch) (domain.ActivityRecord, error)
	RemoveActivity(context.Context, string) error
	ListSinks() []string
	Submit(context.Context, string) (app.SubmitResult, error)
	SummaryCSV() []byte
	ComputeCredits(string, float64) float64
	InputHint(string) (string, string)
	DefaultValue(string) float64
}

// inputMode represents a selectable mode.
type inputMode int

// modeNone and related constants define package defaults.
const (
	modeNone inputMode = iota
	modeEditRecord
	modeEditProfile
	modeConfirmDelete
	modeSubmit
	modeGuide
)

// record-form field indexes used throughout keyboard/update logic.
const (
	recordFieldActivity = iota
	recordFieldDate
	recordFieldValue
)

// profile-form field indexes.
const (
	profileFieldName = iota
	profileFieldPeriod
	profileFieldQualification
)

// progressBarWidth is the cell width of the credit progress bar.
const progressBarWidth = 32

// Model represents model data used by this package.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int

	status string
	err    error

	help help.Model
	keys keyMap
	mode inputMode

	form     app.FormState
	progress domain.Progress
	selected int

	activityNames []string
	editRecordID  string
	activityIndex int
	formInputs    []textinput.Model
	formFocus     int

	profileInputs []textinput.Model
	profileFocus  int

	pendingEditID string

	sinks         []string
	sinkIndex     int
	defaultSink   string
	confirmSubmit bool
	submitting    bool

	copyText ClipboardFunc
	markdown *markdownRenderer
	guide    string
}

// loadedMsg carries message data through update handling.
type loadedMsg struct {
	form     app.FormState
	progress domain.Progress
}

// actionMsg carries message data through update handling.
type actionMsg struct {
	err    error
	status string
	editID string
}

// submittedMsg carries the outcome of one submission.
type submittedMsg struct {
	sink   string
	result app.SubmitResult
	err    error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:           svc,
		status:        "loading...",
		help:          h,
		keys:          newKeyMap(),
		confirmSubmit: true,
		copyText:      DefaultClipboard(),
		markdown:      &markdownRenderer{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	return m
}

// Init handles init.
func (m Model) Init() tea.Cmd {
	return m.loadData
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loadedMsg:
		m.err = nil
		m.form = msg.form
		m.progress = msg.progress
		m.selected = clamp(m.selected, 0, len(m.form.Records)-1)
		if m.pendingEditID != "" {
			id := m.pendingEditID
			m.pendingEditID = ""
			if idx := m.recordIndex(id); idx >= 0 {
				m.selected = idx
				return m, m.startRecordForm(m.form.Records[idx])
			}
		}
		if m.status == "" || m.status == "loading..." {
			m.status = "ready"
		}
		return m, nil

	case actionMsg:
		if msg.err != nil {
			m.status = "error: " + msg.err.Error()
			return m, m.loadData
		}
		if msg.status != "" {
			m.status = msg.status
		}
		m.pendingEditID = msg.editID
		return m, m.loadData

	case submittedMsg:
		m.submitting = false
		if msg.err != nil {
			m.status = submitFailureStatus(msg.err)
			return m, m.loadData
		}
		m.status = submitSuccessStatus(msg.sink, msg.result)
		return m, m.loadData

	case tea.KeyPressMsg:
		if m.mode != modeNone {
			return m.handleInputModeKey(msg)
		}
		return m.handleNormalModeKey(msg)

	default:
		return m, nil
	}
}

// View handles view.
func (m Model) View() tea.View {
	if m.err != nil {
		v := tea.NewView("error: " + m.err.Error() + "\n\npress r to retry • q quit\n")
		v.AltScreen = true
		return v
	}
	if !m.ready {
		v := tea.NewView("loading...")
		v.AltScreen = true
		return v
	}

	accent := lipgloss.Color("62")
	muted := lipgloss.Color("241")
	dim := lipgloss.Color("239")
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	statusStyle := lipgloss.NewStyle().Foreground(dim)

	profile := m.form.Profile
	header := titleStyle.Render("ctrain")
	if name := strings.TrimSpace(profile.Name); name != "" {
		header += "  " + name
	} else {
		header += statusStyle.Render("  (no name set)")
	}
	header += statusStyle.Render("  " + profile.Qualification + " • " + profile.Period)

	sections := []string{
		header,
		m.renderProgress(accent, muted),
		"",
		m.renderRecords(accent, muted, dim),
	}
	if strings.TrimSpace(m.status) != "" && m.status != "ready" {
		sections = append(sections, "", statusStyle.Render(m.status))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(muted).
		BorderTop(true).
		BorderForeground(dim).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.keys))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	fullContent := content + "\n" + helpLine
	if overlay := m.renderModeOverlay(accent, muted, dim, m.width-8); overlay != "" {
		overlayHeight := lipgloss.Height(fullContent)
		if m.height > 0 {
			overlayHeight = m.height
		}
		fullContent = overlayOnContent(fullContent, overlay, max(1, m.width), max(1, overlayHeight))
	}

	view := tea.NewView(fullContent)
	view.AltScreen = true
	return view
}

// loadData loads required data for the current operation.
func (m Model) loadData() tea.Msg {
	return loadedMsg{form: m.svc.Form(), progress: m.svc.Progress()}
}

// handleNormalModeKey handles normal mode key.
func (m Model) handleNormalModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	case key.Matches(msg, m.keys.reload):
		m.status = "reloaded"
		return m, m.loadData
	case key.Matches(msg, m.keys.moveDown):
		m.selected = clamp(m.selected+1, 0, len(m.form.Records)-1)
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.selected = clamp(m.selected-1, 0, len(m.form.Records)-1)
		return m, nil
	case key.Matches(msg, m.keys.addActivity):
		return m, m.addActivityCmd()
	case key.Matches(msg, m.keys.editActivity):
		record, ok := m.selectedRecord()
		if !ok {
			m.status = "no activity selected"
			return m, nil
		}
		return m, m.startRecordForm(record)
	case key.Matches(msg, m.keys.deleteActivity):
		if _, ok := m.selectedRecord(); !ok {
			m.status = "no activity selected"
			return m, nil
		}
		m.mode = modeConfirmDelete
		return m, nil
	case key.Matches(msg, m.keys.editProfile):
		return m, m.startProfileForm()
	case key.Matches(msg, m.keys.submit):
		return m.startSubmit()
	case key.Matches(msg, m.keys.copySummary):
		return m, m.copySummaryCmd()
	case key.Matches(msg, m.keys.creditGuide):
		m.guide = creditGuideMarkdown(m.svc.Catalog())
		m.mode = modeGuide
		return m, nil
	default:
		return m, nil
	}
}

// handleInputModeKey handles keys while a modal is open.
func (m Model) handleInputModeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeEditRecord:
		return m.handleRecordFormKey(msg)
	case modeEditProfile:
		return m.handleProfileFormKey(msg)
	case modeConfirmDelete:
		switch msg.String() {
		case "y", "enter":
			m.mode = modeNone
			record, ok := m.selectedRecord()
			if !ok {
				return m, nil
			}
			return m, m.removeActivityCmd(record.ID)
		case "n", "esc":
			m.mode = modeNone
			m.status = "remove cancelled"
		}
		return m, nil
	case modeSubmit:
		switch msg.String() {
		case "esc", "n":
			m.mode = modeNone
			m.status = "submit cancelled"
		case "left", "h":
			m.sinkIndex = wrapIndex(m.sinkIndex, -1, len(m.sinks))
		case "right", "l", "tab":
			m.sinkIndex = wrapIndex(m.sinkIndex, 1, len(m.sinks))
		case "enter", "y":
			m.mode = modeNone
			return m.submitTo(m.sinks[m.sinkIndex])
		}
		return m, nil
	case modeGuide:
		switch msg.String() {
		case "esc", "q", "g", "enter":
			m.mode = modeNone
			m.guide = ""
		}
		return m, nil
	default:
		m.mode = modeNone
		return m, nil
	}
}

// handleRecordFormKey handles record form key.
func (m Model) handleRecordFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.formInputs = nil
		m.status = "edit cancelled"
		return m, nil
	case "tab", "down":
		return m, m.focusRecordField(m.formFocus + 1)
	case "shift+tab", "up":
		return m, m.focusRecordField(m.formFocus - 1)
	case "enter":
		return m.saveRecordForm()
	}
	if m.formFocus == recordFieldActivity {
		switch msg.String() {
		case "h", "left":
			m.cycleActivity(-1)
		case "l", "right", "space", " ":
			m.cycleActivity(1)
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.formInputs[m.formFocus], cmd = m.formInputs[m.formFocus].Update(msg)
	return m, cmd
}

// handleProfileFormKey handles profile form key.
func (m Model) handleProfileFormKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNone
		m.profileInputs = nil
		m.status = "edit cancelled"
		return m, nil
	case "tab", "down":
		return m, m.focusProfileField(m.profileFocus + 1)
	case "shift+tab", "up":
		return m, m.focusProfileField(m.profileFocus - 1)
	case "enter":
		patch := app.ProfilePatch{
			Name:          stringPtr(m.profileInputs[profileFieldName].Value()),
			Period:        stringPtr(m.profileInputs[profileFieldPeriod].Value()),
			Qualification: stringPtr(m.profileInputs[profileFieldQualification].Value()),
		}
		m.mode = modeNone
		m.profileInputs = nil
		return m, m.setProfileCmd(patch)
	}
	var cmd tea.Cmd
	m.profileInputs[m.profileFocus], cmd = m.profileInputs[m.profileFocus].Update(msg)
	return m, cmd
}

// startRecordForm opens the editor for one record.
func (m *Model) startRecordForm(record domain.ActivityRecord) tea.Cmd {
	m.mode = modeEditRecord
	m.editRecordID = record.ID
	m.activityNames = append([]string{""}, activityNames(m.svc.Catalog())...)
	m.activityIndex = 0
	for i, name := range m.activityNames {
		if name == record.ActivityName {
			m.activityIndex = i
			break
		}
	}
	label, _ := m.svc.InputHint(record.ActivityName)
	m.formInputs = []textinput.Model{
		textinput.New(),
		newModalInput("date: ", "YYYY-MM-DD", record.CompletionDate, 32),
		newModalInput(inputPrompt(label), "0", formatCredits(record.RawValue), 16),
	}
	m.status = "editing activity"
	return m.focusRecordField(recordFieldActivity)
}

// startProfileForm opens the profile editor.
func (m *Model) startProfileForm() tea.Cmd {
	profile := m.form.Profile
	m.mode = modeEditProfile
	m.profileInputs = []textinput.Model{
		newModalInput("name: ", "full name", profile.Name, 120),
		newModalInput("period: ", domain.DefaultPeriod, profile.Period, 64),
		newModalInput("qualification: ", domain.DefaultQualification, profile.Qualification, 120),
	}
	m.status = "editing profile"
	return m.focusProfileField(profileFieldName)
}

// startSubmit opens the sink picker or submits directly.
func (m Model) startSubmit() (tea.Model, tea.Cmd) {
	if m.submitting {
		m.status = "submission in progress"
		return m, nil
	}
	m.sinks = m.svc.ListSinks()
	if len(m.sinks) == 0 {
		m.status = "no submission sinks configured"
		return m, nil
	}
	m.sinkIndex = 0
	for i, name := range m.sinks {
		if name == m.defaultSink {
			m.sinkIndex = i
			break
		}
	}
	if !m.confirmSubmit {
		return m.submitTo(m.sinks[m.sinkIndex])
	}
	m.mode = modeSubmit
	return m, nil
}

// submitTo runs one submission in the background.
func (m Model) submitTo(sink string) (tea.Model, tea.Cmd) {
	m.submitting = true
	m.status = "submitting via " + sink + "..."
	svc := m.svc
	return m, func() tea.Msg {
		result, err := svc.Submit(context.Background(), sink)
		return submittedMsg{sink: sink, result: result, err: err}
	}
}

// focusRecordField focuses record form field.
func (m *Model) focusRecordField(idx int) tea.Cmd {
	if len(m.formInputs) == 0 {
		return nil
	}
	m.formFocus = clamp(idx, 0, len(m.formInputs)-1)
	for i := range m.formInputs {
		m.formInputs[i].Blur()
	}
	if m.formFocus == recordFieldActivity {
		return nil
	}
	return m.formInputs[m.formFocus].Focus()
}

// focusProfileField focuses profile form field.
func (m *Model) focusProfileField(idx int) tea.Cmd {
	if len(m.profileInputs) == 0 {
		return nil
	}
	m.profileFocus = clamp(idx, 0, len(m.profileInputs)-1)
	for i := range m.profileInputs {
		m.profileInputs[i].Blur()
	}
	return m.profileInputs[m.profileFocus].Focus()
}

// cycleActivity selects the next activity and pre-fills its default value.
func (m *Model) cycleActivity(delta int) {
	if len(m.activityNames) == 0 {
		return
	}
	m.activityIndex = wrapIndex(m.activityIndex, delta, len(m.activityNames))
	name := m.activityNames[m.activityIndex]
	label, _ := m.svc.InputHint(name)
	m.formInputs[recordFieldValue].Prompt = inputPrompt(label)
	m.formInputs[recordFieldValue].SetValue(formatCredits(m.svc.DefaultValue(name)))
}

// saveRecordForm persists the open record editor.
func (m Model) saveRecordForm() (tea.Model, tea.Cmd) {
	name := m.activityNames[m.activityIndex]
	date := m.formInputs[recordFieldDate].Value()
	value := domain.ParseRawValue(m.formInputs[recordFieldValue].Value())
	patch := app.RecordPatch{
		ActivityName:   &name,
		CompletionDate: &date,
		RawValue:       &value,
	}
	id := m.editRecordID
	m.mode = modeNone
	m.formInputs = nil
	m.editRecordID = ""
	svc := m.svc
	return m, func() tea.Msg {
		record, err := svc.UpdateActivity(context.Background(), id, patch)
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: fmt.Sprintf("saved %s (%s credits)", displayActivity(record.ActivityName), formatCredits(record.Credits))}
	}
}

// addActivityCmd appends a record and opens it for editing.
func (m Model) addActivityCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		record, err := svc.AddActivity(context.Background())
		if err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "activity added", editID: record.ID}
	}
}

// removeActivityCmd deletes one record.
func (m Model) removeActivityCmd(id string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if err := svc.RemoveActivity(context.Background(), id); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "activity removed"}
	}
}

// setProfileCmd persists profile edits.
func (m Model) setProfileCmd(patch app.ProfilePatch) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		if _, err := svc.SetProfile(context.Background(), patch); err != nil {
			return actionMsg{err: err}
		}
		return actionMsg{status: "profile saved"}
	}
}

// copySummaryCmd copies the summary CSV to the clipboard.
func (m Model) copySummaryCmd() tea.Cmd {
	svc, copyText := m.svc, m.copyText
	return func() tea.Msg {
		if copyText == nil {
			return actionMsg{err: errors.New("clipboard unavailable")}
		}
		if err := copyText(string(svc.SummaryCSV())); err != nil {
			return actionMsg{err: fmt.Errorf("copy summary: %w", err)}
		}
		return actionMsg{status: "summary csv copied"}
	}
}

// selectedRecord returns the highlighted record.
func (m Model) selectedRecord() (domain.ActivityRecord, bool) {
	if m.selected < 0 || m.selected >= len(m.form.Records) {
		return domain.ActivityRecord{}, false
	}
	return m.form.Records[m.selected], true
}

// recordIndex returns the position of id or -1.
func (m Model) recordIndex(id string) int {
	for i, record := range m.form.Records {
		if record.ID == id {
			return i
		}
	}
	return -1
}

// renderProgress renders the credit progress bar.
func (m Model) renderProgress(accent, muted color.Color) string {
	p := m.progress
	fill := accent
	if p.Complete {
		fill = lipgloss.Color("42")
	}
	filled := clamp(int(p.Percent/100*progressBarWidth+0.5), 0, progressBarWidth)
	bar := lipgloss.NewStyle().Foreground(fill).Render(strings.Repeat("█", filled)) +
		lipgloss.NewStyle().Foreground(muted).Render(strings.Repeat("░", progressBarWidth-filled))
	label := fmt.Sprintf(" %s / %s credits (%.0f%%)", formatCredits(p.Total), formatCredits(p.Goal), p.Percent)
	if p.Complete {
		label += lipgloss.NewStyle().Foreground(fill).Bold(true).Render("  goal met")
	} else {
		label += lipgloss.NewStyle().Foreground(muted).Render(fmt.Sprintf("  %s remaining", formatCredits(p.Remaining())))
	}
	return bar + label
}

// renderRecords renders the activity list.
func (m Model) renderRecords(accent, muted, dim color.Color) string {
	if len(m.form.Records) == 0 {
		return lipgloss.NewStyle().Foreground(dim).Render("No activities yet. Press n to add one.")
	}
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	subStyle := lipgloss.NewStyle().Foreground(muted)
	nameWidth := clamp(m.width-30, 16, 56)

	lines := make([]string, 0, len(m.form.Records)*2)
	for i, record := range m.form.Records {
		prefix := "  "
		if i == m.selected {
			prefix = "│ "
		}
		row := fmt.Sprintf("%s%-*s %-12s %6s cr", prefix, nameWidth, truncate(displayActivity(record.ActivityName), nameWidth), truncate(record.CompletionDate, 12), formatCredits(record.Credits))
		if i == m.selected {
			row = selectedStyle.Render(row)
		}
		lines = append(lines, row)

		label, capNote := m.svc.InputHint(record.ActivityName)
		sub := fmt.Sprintf("%s: %s", strings.ToLower(label), formatCredits(record.RawValue))
		if capNote != "" {
			sub += " • " + capNote
		}
		if n := len(record.Attachments); n > 0 {
			sub += fmt.Sprintf(" • %d certificate(s)", n)
		}
		lines = append(lines, prefix+subStyle.Render(sub))
	}
	title := lipgloss.NewStyle().Bold(true).Foreground(accent).Render(fmt.Sprintf("Activities (%d)", len(m.form.Records)))
	return title + "\n" + strings.Join(lines, "\n")
}

// renderModeOverlay renders the modal for the active mode.
func (m Model) renderModeOverlay(accent, muted, dim color.Color, maxWidth int) string {
	boxWidth := clamp(maxWidth, 24, 72)
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 1).
		Width(boxWidth)
	title := lipgloss.NewStyle().Bold(true).Foreground(accent)
	hint := lipgloss.NewStyle().Foreground(muted)

	switch m.mode {
	case modeEditRecord:
		if len(m.formInputs) == 0 {
			return ""
		}
		name := m.activityNames[m.activityIndex]
		activityLine := "activity: ‹ " + displayActivity(name) + " ›"
		if m.formFocus == recordFieldActivity {
			activityLine = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Render(activityLine)
		}
		value := domain.ParseRawValue(m.formInputs[recordFieldValue].Value())
		_, capNote := m.svc.InputHint(name)
		preview := fmt.Sprintf("credits: %s", formatCredits(m.svc.ComputeCredits(name, value)))
		if capNote != "" {
			preview += " (" + capNote + ")"
		}
		lines := []string{
			title.Render("Edit activity"),
			activityLine,
			m.formInputs[recordFieldDate].View(),
			m.formInputs[recordFieldValue].View(),
			hint.Render(preview),
			"",
			hint.Render("h/l activity • tab next field • enter save • esc cancel"),
		}
		return box.Render(strings.Join(lines, "\n"))
	case modeEditProfile:
		if len(m.profileInputs) == 0 {
			return ""
		}
		lines := []string{title.Render("Edit profile")}
		for _, in := range m.profileInputs {
			lines = append(lines, in.View())
		}
		lines = append(lines, "", hint.Render("tab next field • enter save • esc cancel"))
		return box.Render(strings.Join(lines, "\n"))
	case modeConfirmDelete:
		record, _ := m.selectedRecord()
		return box.Render(title.Render("Remove activity?") + "\n" + displayActivity(record.ActivityName) + "\n\n" + hint.Render("y confirm • n cancel"))
	case modeSubmit:
		options := make([]string, 0, len(m.sinks))
		for i, name := range m.sinks {
			if i == m.sinkIndex {
				options = append(options, lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true).Render("["+name+"]"))
				continue
			}
			options = append(options, lipgloss.NewStyle().Foreground(dim).Render(" "+name+" "))
		}
		summary := fmt.Sprintf("%d activities • %s of %s credits", len(m.form.Records), formatCredits(m.progress.Total), formatCredits(m.progress.Goal))
		lines := []string{
			title.Render("Submit training record"),
			summary,
			strings.Join(options, " "),
			"",
			hint.Render("h/l sink • enter submit • esc cancel"),
		}
		return box.Render(strings.Join(lines, "\n"))
	case modeGuide:
		rendered := m.markdown.render(m.guide, boxWidth-4)
		return box.Render(rendered + "\n\n" + hint.Render("esc close"))
	default:
		return ""
	}
}

// submitSuccessStatus summarizes a delivered submission.
func submitSuccessStatus(sink string, result app.SubmitResult) string {
	status := fmt.Sprintf("submitted %d activities (%s credits) via %s", result.Rows, formatCredits(result.TotalCredits), sink)
	if loc := strings.TrimSpace(result.Receipt.Location); loc != "" {
		status += ": " + loc
	}
	if result.Reset {
		status += " • form cleared"
	}
	return status
}

// submitFailureStatus returns the single message shown after a failed submission.
func submitFailureStatus(err error) string {
	var subErr *app.SubmissionError
	if errors.As(err, &subErr) {
		return subErr.UserMessage()
	}
	return "submit failed: " + err.Error()
}

// activityNames lists selectable activities in display order.
func activityNames(cat app.Catalog) []string {
	out := make([]string, 0, len(cat.Activities))
	for _, def := range cat.Activities {
		out = append(out, def.Name)
	}
	return out
}

func displayActivity(name string) string {
	if strings.TrimSpace(name) == "" {
		return "(select activity)"
	}
	return name
}

func inputPrompt(label string) string {
	if strings.TrimSpace(label) == "" {
		label = "Value"
	}
	return strings.ToLower(label) + ": "
}

func stringPtr(v string) *string {
	return &v
}

// newModalInput constructs modal input.
func newModalInput(prompt, placeholder, value string, limit int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Placeholder = placeholder
	in.CharLimit = limit
	if value != "" {
		in.SetValue(value)
	}
	return in
}

// wrapIndex wraps index.
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := (current + delta) % total
	if next < 0 {
		next += total
	}
	return next
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		overlay,
	)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate truncates the requested operation.
func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	rs := []rune(s)
	if len(rs) <= max {
		return s
	}
	if max <= 1 {
		return string(rs[:max])
	}
	return string(rs[:max-1]) + "…"
}
