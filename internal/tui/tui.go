package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Joseda-hg/lazytodo/internal/engine"
	"github.com/Joseda-hg/lazytodo/internal/model"
	"github.com/Joseda-hg/lazytodo/internal/view"
	goerrors "github.com/go-errors/errors"
	"github.com/jesseduffield/gocui"
	"go.uber.org/zap"
)

const (
	viewHeader   = "header"
	viewFooter   = "footer"
	viewPending  = "pending"
	viewDone     = "done"
	viewTags     = "tags"
	viewDetail   = "detail"
	viewSubtasks = "subtasks"
	viewPrompt   = "prompt"
	viewForm     = "form"
	viewHelp     = "help"
)

type promptKind int

const (
	promptSearch promptKind = iota
	promptTag
	promptSubtask
)

type UI struct {
	engine *engine.Engine
	log    *zap.Logger
	gui    *gocui.Gui

	pending []model.Task
	done    []model.Task
	tags    []tagCountEntry

	selectedPending int
	selectedDone    int
	selectedTags    int
	selectedSubtask int
	focus           string
	// lastList is the task pane whose selection drives the detail and
	// subtask panes while another pane has focus.
	lastList string

	form         *formState
	formEditor   *formEditor
	formTagIndex int
	prompt       *promptState
	helpActive   bool
	status       string
}

type formState struct {
	taskID string
	fields []formField
	index  int
}

type promptState struct {
	kind     promptKind
	title    string
	initial  string
	parentID string
}

type formEditor struct {
	ui *UI
}

type Option func(*options)

type options struct {
	refresh time.Duration
}

// WithRefresh redraws from the engine every interval, picking up changes
// made through the API.
func WithRefresh(interval time.Duration) Option {
	return func(o *options) { o.refresh = interval }
}

func New(eng *engine.Engine, log *zap.Logger) *UI {
	if log == nil {
		log = zap.NewNop()
	}
	ui := &UI{
		engine:   eng,
		log:      log.Named("tui"),
		focus:    viewPending,
		lastList: viewPending,
	}
	ui.formEditor = &formEditor{ui: ui}
	return ui
}

func Run(eng *engine.Engine, log *zap.Logger, opts ...Option) error {
	var cfg options
	for _, opt := range opts {
		opt(&cfg)
	}

	gui, err := gocui.NewGui(gocui.NewGuiOpts{OutputMode: gocui.OutputNormal})
	if err != nil {
		return err
	}
	defer gui.Close()

	ui := New(eng, log)
	ui.gui = gui
	gui.Mouse = true

	gui.SetManagerFunc(ui.layout)
	if err := ui.bindKeys(gui); err != nil {
		return err
	}
	ui.loadTasks()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.refresh > 0 {
		go ui.refreshLoop(ctx, cfg.refresh)
	}

	if err := gui.MainLoop(); err != nil && !goerrors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

func (u *UI) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u.gui.Update(func(*gocui.Gui) error {
				u.loadTasks()
				return nil
			})
		}
	}
}

type binding struct {
	view    string
	key     any
	handler func(*gocui.Gui, *gocui.View) error
}

func (u *UI) bindKeys(gui *gocui.Gui) error {
	bindings := []binding{
		{"", gocui.KeyCtrlC, u.quit},
		{"", 'q', u.quit},
		{"", 'r', u.reload},
		{"", 'g', u.clearFilters},
		{"", 'a', u.addTask},
		{"", 's', u.addSubtask},
		{"", 'e', u.editTask},
		{"", 'd', u.deleteSelected},
		{"", 'x', u.toggleSelected},
		{"", 'J', u.moveTaskDown},
		{"", 'K', u.moveTaskUp},
		{"", 'u', u.undo},
		{"", gocui.KeyCtrlR, u.redo},
		{"", 'o', u.cycleSort},
		{"", 'f', u.cycleStatusFilter},
		{"", 'p', u.cyclePriorityFilter},
		{"", '/', u.startSearch},
		{"", '?', u.toggleHelp},
		{"", gocui.KeyTab, u.switchFocus},
		{"", '1', u.focusPending},
		{"", '2', u.focusDone},
		{"", '3', u.focusTags},
		{"", '4', u.focusSubtasks},
		{viewTags, gocui.KeySpace, u.toggleTagFilter},
		{viewTags, gocui.KeyEnter, u.toggleTagFilter},
		{viewPrompt, gocui.KeyEnter, u.submitPrompt},
		{viewPrompt, gocui.KeyEsc, u.cancelPrompt},
		{viewForm, gocui.KeyEnter, u.submitForm},
		{viewForm, gocui.KeyCtrlJ, u.submitForm},
		{viewForm, gocui.KeyTab, u.nextFormField},
		{viewForm, gocui.KeyBacktab, u.prevFormField},
		{viewForm, gocui.KeyArrowDown, u.nextFormField},
		{viewForm, gocui.KeyArrowUp, u.prevFormField},
		{viewForm, gocui.KeyEsc, u.cancelForm},
		{viewHelp, gocui.KeyEsc, u.closeHelp},
		{viewHelp, 'q', u.closeHelp},
		{viewHelp, '?', u.closeHelp},
	}
	for _, name := range []string{viewPending, viewDone, viewTags, viewSubtasks} {
		bindings = append(bindings,
			binding{name, gocui.KeyArrowDown, u.moveDown},
			binding{name, 'j', u.moveDown},
			binding{name, gocui.KeyArrowUp, u.moveUp},
			binding{name, 'k', u.moveUp},
			binding{name, gocui.MouseWheelUp, u.scrollUp},
			binding{name, gocui.MouseWheelDown, u.scrollDown},
		)
	}
	for _, b := range bindings {
		if err := gui.SetKeybinding(b.view, b.key, gocui.ModNone, b.handler); err != nil {
			return err
		}
	}

	for _, name := range []string{viewPending, viewDone, viewTags, viewSubtasks} {
		viewName := name
		if err := gui.SetViewClickBinding(&gocui.ViewMouseBinding{ViewName: viewName, Key: gocui.MouseLeft, Handler: func(opts gocui.ViewMouseBindingOpts) error {
			return u.onListClick(gui, viewName, opts)
		}}); err != nil {
			return err
		}
	}
	return nil
}

func (u *UI) layout(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	if maxX <= 0 || maxY <= 0 {
		return nil
	}

	headerView, err := gui.SetView(viewHeader, 0, 0, maxX-1, 0, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	headerView.Frame = false
	headerView.Wrap = true
	headerView.FgColor = gocui.ColorDefault
	u.renderHeader(headerView)

	footerY1 := max(maxY-2, 1)
	footerY0 := max(footerY1-2, 1)
	footerView, err := gui.SetView(viewFooter, 0, footerY0, maxX-1, footerY1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	footerView.Frame = false
	footerView.Wrap = true
	footerView.FgColor = gocui.ColorDefault | gocui.AttrDim
	footerView.BgColor = gocui.ColorDefault
	u.renderFooter(footerView)

	bodyTop := 1
	bodyBottom := footerY0 - 1
	if bodyBottom < bodyTop {
		return nil
	}

	dims := computeLayout(maxX, bodyBottom-bodyTop+1)
	leftX0 := 0
	leftX1 := leftX0 + dims.leftWidth - 1
	rightX0 := leftX1 + 1
	if rightX0 >= maxX {
		rightX0 = leftX1
	}
	rightX1 := maxX - 1

	pendingY1 := bodyTop + dims.pendingHeight - 1
	doneY0 := pendingY1 + 1
	doneY1 := doneY0 + dims.doneHeight - 1
	tagsY0 := doneY1 + 1
	detailY1 := bodyTop + dims.detailHeight - 1
	subtasksY0 := detailY1 + 1

	pendingView, err := u.setPane(gui, viewPending, "1 Pending", gocui.ColorRed, leftX0, bodyTop, leftX1, pendingY1, true)
	if err != nil {
		return err
	}
	u.renderTaskList(pendingView, u.pending, u.selectedPending, u.focus == viewPending)

	doneView, err := u.setPane(gui, viewDone, "2 Done", gocui.ColorGreen, leftX0, doneY0, leftX1, doneY1, true)
	if err != nil {
		return err
	}
	u.renderTaskList(doneView, u.done, u.selectedDone, u.focus == viewDone)

	tagsView, err := u.setPane(gui, viewTags, "3 Tags", gocui.ColorCyan, leftX0, tagsY0, leftX1, bodyBottom, false)
	if err != nil {
		return err
	}
	u.renderTags(tagsView)

	detailView, err := u.setPane(gui, viewDetail, "Task", gocui.ColorDefault, rightX0, bodyTop, rightX1, detailY1, false)
	if err != nil {
		return err
	}
	u.renderDetail(detailView)

	subtasksView, err := u.setPane(gui, viewSubtasks, "4 Subtasks", gocui.ColorYellow, rightX0, subtasksY0, rightX1, bodyBottom, true)
	if err != nil {
		return err
	}
	u.renderSubtasks(subtasksView)

	_, _ = gui.SetViewOnTop(viewHeader)
	_, _ = gui.SetViewOnTop(viewFooter)

	if u.prompt != nil {
		if err := u.showPrompt(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewPrompt)
	}

	if u.form != nil {
		if err := u.showForm(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewForm)
	}

	if u.helpActive {
		if err := u.showHelp(gui); err != nil {
			return err
		}
	} else {
		_ = gui.DeleteView(viewHelp)
	}

	if gui.CurrentView() == nil {
		_, _ = gui.SetCurrentView(u.focus)
	}
	gui.Cursor = u.prompt != nil || u.form != nil
	return nil
}

func (u *UI) setPane(gui *gocui.Gui, name, title string, color gocui.Attribute, x0, y0, x1, y1 int, highlight bool) (*gocui.View, error) {
	pane, err := gui.SetView(name, x0, y0, x1, y1, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return nil, err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		pane.Title = title
		pane.TitleColor = color
	}
	applyViewStyle(pane, u.focus == name, highlight)
	return pane, nil
}

type paneLayout struct {
	leftWidth      int
	pendingHeight  int
	doneHeight     int
	tagsHeight     int
	detailHeight   int
	subtasksHeight int
}

func computeLayout(width, height int) paneLayout {
	safeWidth := max(width-2, 20)
	safeHeight := max(height, 8)

	leftWidth := max(safeWidth/2, 26)
	if leftWidth > safeWidth-18 {
		leftWidth = safeWidth / 2
	}

	pendingHeight := max(int(float64(safeHeight)*0.45), 4)
	doneHeight := max(int(float64(safeHeight)*0.3), 4)
	tagsHeight := safeHeight - pendingHeight - doneHeight
	if tagsHeight < 4 {
		tagsHeight = 4
		doneHeight = max(safeHeight-pendingHeight-tagsHeight, 4)
	}

	detailHeight := max(int(float64(safeHeight)*0.55), 6)
	subtasksHeight := safeHeight - detailHeight
	if subtasksHeight < 4 {
		subtasksHeight = 4
		detailHeight = max(safeHeight-subtasksHeight, 4)
	}

	return paneLayout{
		leftWidth:      leftWidth,
		pendingHeight:  pendingHeight,
		doneHeight:     doneHeight,
		tagsHeight:     tagsHeight,
		detailHeight:   detailHeight,
		subtasksHeight: subtasksHeight,
	}
}

// loadTasks rebuilds every pane from the engine. The sorted view is
// computed once here, not per frame.
func (u *UI) loadTasks() {
	u.pending, u.done = splitByStatus(u.engine.View())
	u.tags = buildTagEntries(u.engine.AllTagNames(), u.engine.DefinedTags(), u.engine.Tasks())

	u.selectedPending = clampIndex(u.selectedPending, len(u.pending))
	u.selectedDone = clampIndex(u.selectedDone, len(u.done))
	u.selectedTags = clampIndex(u.selectedTags, len(u.tags))
	u.formTagIndex = clampIndex(u.formTagIndex, len(u.tags))
	u.selectedSubtask = clampIndex(u.selectedSubtask, len(u.selectedSubtasks()))
}

func clampIndex(index, length int) int {
	if index >= length {
		index = length - 1
	}
	return max(index, 0)
}

func (u *UI) renderHeader(pane *gocui.View) {
	pane.Clear()
	filter := u.engine.Filters()
	query := strings.TrimSpace(filter.Search)
	if query == "" {
		query = "type / to search"
	}
	tag := "any"
	if filter.TagActive() {
		tag = filter.Tag
	}
	fmt.Fprintf(pane, "Search: %s | Status: %s | Priority: %s | Tag: %s | Sort: %s",
		query, statusLabel(filter.Status), priorityLabel(filter.Priority), tag, view.SortLabel(u.engine.SortCriterion()))
}

func (u *UI) renderFooter(pane *gocui.View) {
	pane.Clear()
	pane.SetOrigin(0, 0)
	pane.SetCursor(0, 0)

	fmt.Fprintln(pane, "a add | s subtask | e edit | d delete | x toggle | J/K move | u undo | ^R redo | ? help | q quit")
	fmt.Fprintf(pane, "/ search | f status | p priority | o sort | space tag | g clear | r reload | %s\n", u.historyLabel())
	if u.status != "" {
		fmt.Fprint(pane, u.status)
	}
}

func (u *UI) historyLabel() string {
	undo, redo := "-", "-"
	if u.engine.CanUndo() {
		undo = "undo"
	}
	if u.engine.CanRedo() {
		redo = "redo"
	}
	return fmt.Sprintf("[%s/%s]", undo, redo)
}

func (u *UI) renderTaskList(pane *gocui.View, tasks []model.Task, selected int, focused bool) {
	pane.Clear()
	for i, task := range tasks {
		prefix := " "
		if i == selected {
			if focused {
				prefix = ">"
			} else {
				prefix = "*"
			}
		}
		fmt.Fprintf(pane, "%s %s\n", prefix, formatTaskSummary(task))
	}
	if focused {
		pane.SetCursor(0, min(selected, len(tasks)-1))
	}
}

func (u *UI) renderTags(pane *gocui.View) {
	pane.Clear()
	filter := u.engine.Filters()
	for index, entry := range u.tags {
		prefix := " "
		if index == u.selectedTags {
			prefix = ">"
		}
		marker := " "
		if filter.TagActive() && filter.Tag == entry.Name {
			marker = "x"
		}
		name := entry.Name
		if !entry.Defined {
			name += "*"
		}
		fmt.Fprintf(pane, "%s [%s] %s (%d)\n", prefix, marker, name, entry.Count)
	}
	if u.focus == viewTags {
		pane.SetCursor(0, min(u.selectedTags, len(u.tags)-1))
	}
}

func (u *UI) renderDetail(pane *gocui.View) {
	pane.Clear()
	selected := u.selectedTask()
	if selected == nil {
		fmt.Fprint(pane, "No task selected")
		return
	}

	due := "n/a"
	if selected.HasDueDate() {
		due = selected.DueDate
	}
	lines := []string{
		selected.Title,
		fmt.Sprintf("Status: %s", statusLabel(selected.Status)),
		fmt.Sprintf("Priority: %s", priorityLabel(selected.Priority)),
		fmt.Sprintf("Due: %s", due),
		fmt.Sprintf("Tags: %s", formatTags(selected.Tags)),
		fmt.Sprintf("Created: %s", selected.CreatedAt),
		"",
		selected.Description,
	}
	fmt.Fprint(pane, strings.Join(lines, "\n"))
}

func (u *UI) renderSubtasks(pane *gocui.View) {
	pane.Clear()
	subtasks := u.selectedSubtasks()
	focused := u.focus == viewSubtasks
	for index, subtask := range subtasks {
		prefix := " "
		if focused && index == u.selectedSubtask {
			prefix = ">"
		}
		marker := " "
		if subtask.Status == model.StatusDone {
			marker = "x"
		}
		fmt.Fprintf(pane, "%s [%s] %s\n", prefix, marker, subtask.Title)
	}
	if focused {
		pane.SetCursor(0, min(u.selectedSubtask, len(subtasks)-1))
	}
}

func (u *UI) onListClick(gui *gocui.Gui, viewName string, opts gocui.ViewMouseBindingOpts) error {
	if u.inputActive() {
		return nil
	}
	pane, err := gui.View(viewName)
	if err != nil {
		return nil
	}

	_, y0, _, _ := pane.Dimensions()
	_, oy := pane.Origin()
	row := max(opts.Y-y0-1+oy, 0)

	switch viewName {
	case viewPending:
		u.selectedPending = clampIndex(row, len(u.pending))
	case viewDone:
		u.selectedDone = clampIndex(row, len(u.done))
	case viewTags:
		u.selectedTags = clampIndex(row, len(u.tags))
	case viewSubtasks:
		u.selectedSubtask = clampIndex(row, len(u.selectedSubtasks()))
	default:
		return nil
	}
	return u.setFocus(gui, viewName)
}

func (u *UI) scrollUp(gui *gocui.Gui, pane *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if pane == nil {
		pane = gui.CurrentView()
	}
	if pane != nil {
		pane.ScrollUp(1)
	}
	return nil
}

func (u *UI) scrollDown(gui *gocui.Gui, pane *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if pane == nil {
		pane = gui.CurrentView()
	}
	if pane != nil {
		pane.ScrollDown(1)
	}
	return nil
}

// taskPane is the task list that owns the current selection.
func (u *UI) taskPane() string {
	if u.focus == viewPending || u.focus == viewDone {
		return u.focus
	}
	return u.lastList
}

func (u *UI) paneTasks() ([]model.Task, int) {
	if u.taskPane() == viewDone {
		return u.done, u.selectedDone
	}
	return u.pending, u.selectedPending
}

func (u *UI) selectedTask() *model.Task {
	tasks, selected := u.paneTasks()
	if selected >= 0 && selected < len(tasks) {
		return &tasks[selected]
	}
	return nil
}

func (u *UI) selectedSubtasks() []model.Subtask {
	if task := u.selectedTask(); task != nil {
		return task.Subtasks
	}
	return nil
}

func (u *UI) selectTask(id string) {
	for i, task := range u.pending {
		if task.ID == id {
			u.selectedPending = i
			u.lastList = viewPending
			return
		}
	}
	for i, task := range u.done {
		if task.ID == id {
			u.selectedDone = i
			u.lastList = viewDone
			return
		}
	}
}

func (u *UI) switchFocus(gui *gocui.Gui, _ *gocui.View) error {
	switch u.focus {
	case viewPending:
		return u.setFocus(gui, viewDone)
	case viewDone:
		return u.setFocus(gui, viewTags)
	case viewTags:
		return u.setFocus(gui, viewSubtasks)
	default:
		return u.setFocus(gui, viewPending)
	}
}

func (u *UI) focusPending(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewPending)
}

func (u *UI) focusDone(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewDone)
}

func (u *UI) focusTags(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewTags)
}

func (u *UI) focusSubtasks(gui *gocui.Gui, _ *gocui.View) error {
	return u.setFocus(gui, viewSubtasks)
}

func (u *UI) setFocus(gui *gocui.Gui, name string) error {
	if u.inputActive() {
		return nil
	}
	u.focus = name
	if name == viewPending || name == viewDone {
		u.lastList = name
	}
	if gui != nil {
		_, _ = gui.SetCurrentView(name)
	}
	u.loadTasks()
	return nil
}

func (u *UI) moveDown(_ *gocui.Gui, _ *gocui.View) error {
	return u.moveSelection(1)
}

func (u *UI) moveUp(_ *gocui.Gui, _ *gocui.View) error {
	return u.moveSelection(-1)
}

func (u *UI) moveSelection(delta int) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewPending:
		u.selectedPending = clampIndex(u.selectedPending+delta, len(u.pending))
		u.selectedSubtask = 0
	case viewDone:
		u.selectedDone = clampIndex(u.selectedDone+delta, len(u.done))
		u.selectedSubtask = 0
	case viewTags:
		u.selectedTags = clampIndex(u.selectedTags+delta, len(u.tags))
	case viewSubtasks:
		u.selectedSubtask = clampIndex(u.selectedSubtask+delta, len(u.selectedSubtasks()))
	}
	return nil
}

func (u *UI) reload(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) clearFilters(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.engine.SetFilter(model.DefaultFilter())
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) cycleSort(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.engine.SetSort(view.NextSort(u.engine.SortCriterion()))
	u.loadTasks()
	return nil
}

func (u *UI) cycleStatusFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	next := cycle(statusFilterOrder, u.engine.Filters().Status, 1)
	return u.updateFilter("status", string(next))
}

func (u *UI) cyclePriorityFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	next := cycle(priorityFilterOrder, u.engine.Filters().Priority, 1)
	return u.updateFilter("priority", string(next))
}

func (u *UI) toggleTagFilter(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() || u.focus != viewTags {
		return nil
	}
	if u.selectedTags < 0 || u.selectedTags >= len(u.tags) {
		return nil
	}
	name := u.tags[u.selectedTags].Name
	if u.engine.Filters().Tag == name {
		name = model.TagAny
	}
	return u.updateFilter("tag", name)
}

func (u *UI) updateFilter(key, value string) error {
	if err := u.engine.UpdateFilter(key, value); err != nil {
		return err
	}
	u.loadTasks()
	return nil
}

func (u *UI) undo(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if !u.engine.Undo() {
		u.status = "nothing to undo"
		return nil
	}
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) redo(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if !u.engine.Redo() {
		u.status = "nothing to redo"
		return nil
	}
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) moveTaskDown(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftTask(1)
}

func (u *UI) moveTaskUp(_ *gocui.Gui, _ *gocui.View) error {
	return u.shiftTask(-1)
}

// shiftTask swaps the selected task with its visible neighbour in the raw
// task order. Creation-date sorts ignore the raw order, so the move is
// refused there.
func (u *UI) shiftTask(delta int) error {
	if u.inputActive() || (u.focus != viewPending && u.focus != viewDone) {
		return nil
	}
	criterion := u.engine.SortCriterion()
	if criterion == model.SortNewest || criterion == model.SortOldest {
		u.status = fmt.Sprintf("sorted by %s; press o for another sort to reorder", view.SortLabel(criterion))
		return nil
	}
	tasks, selected := u.paneTasks()
	target := selected + delta
	if selected < 0 || selected >= len(tasks) || target < 0 || target >= len(tasks) {
		return nil
	}

	moved := tasks[selected].ID
	raw := u.engine.Tasks()
	for index, task := range raw {
		if task.ID == tasks[target].ID {
			u.engine.MoveTask(moved, index)
			break
		}
	}
	u.loadTasks()
	u.selectTask(moved)
	tasks, after := u.paneTasks()
	if after >= 0 && after < len(tasks) && after == selected {
		u.status = fmt.Sprintf("order saved; sorted by %s", view.SortLabel(criterion))
		return nil
	}
	u.status = ""
	return nil
}

func (u *UI) toggleHelp(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() && !u.helpActive {
		return nil
	}
	u.helpActive = !u.helpActive
	return nil
}

func (u *UI) closeHelp(gui *gocui.Gui, _ *gocui.View) error {
	u.helpActive = false
	u.closePopup(gui, viewHelp)
	return nil
}

func (u *UI) closePopup(gui *gocui.Gui, name string) {
	if gui == nil {
		return
	}
	_ = gui.DeleteView(name)
	_, _ = gui.SetCurrentView(u.focus)
}

func (u *UI) startSearch(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	u.prompt = &promptState{kind: promptSearch, title: "Search", initial: u.engine.Filters().Search}
	return nil
}

func (u *UI) openTagCreate() {
	u.prompt = &promptState{kind: promptTag, title: "New Tag"}
}

func (u *UI) addSubtask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.prompt = &promptState{kind: promptSubtask, title: "New Subtask: " + selected.Title, parentID: selected.ID}
	return nil
}

func (u *UI) showPrompt(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(40, maxX/3)
	height := 2
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	pane, err := gui.SetView(viewPrompt, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		pane.Wrap = true
		pane.Clear()
		fmt.Fprint(pane, u.prompt.initial)
		pane.SetCursor(len([]rune(u.prompt.initial)), 0)
	}
	pane.Title = u.prompt.title
	pane.Editable = true
	pane.Editor = gocui.DefaultEditor
	_, _ = gui.SetCurrentView(viewPrompt)
	return nil
}

func (u *UI) submitPrompt(gui *gocui.Gui, pane *gocui.View) error {
	if u.prompt == nil {
		return nil
	}
	value := ""
	if pane != nil {
		value = pane.Buffer()
	}
	u.applyPrompt(value)
	u.closePopup(gui, viewPrompt)
	return nil
}

func (u *UI) applyPrompt(value string) {
	prompt := u.prompt
	u.prompt = nil
	if prompt == nil {
		return
	}
	value = strings.TrimSpace(value)
	u.status = ""

	switch prompt.kind {
	case promptSearch:
		_ = u.engine.UpdateFilter("search", value)
	case promptTag:
		if value != "" && !u.engine.AddDefinedTag(value) {
			u.status = fmt.Sprintf("tag %q already exists", value)
		}
	case promptSubtask:
		if _, ok := u.engine.AddSubtask(prompt.parentID, value); !ok && value != "" {
			u.status = "task no longer exists"
		}
	}
	u.loadTasks()
}

func (u *UI) cancelPrompt(gui *gocui.Gui, _ *gocui.View) error {
	u.prompt = nil
	u.closePopup(gui, viewPrompt)
	return nil
}

func (u *UI) addTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	if u.focus == viewTags {
		u.openTagCreate()
		return nil
	}
	u.form = &formState{fields: buildFormFields(nil)}
	u.formTagIndex = 0
	return nil
}

func (u *UI) editTask(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.form = &formState{taskID: selected.ID, fields: buildFormFields(selected)}
	u.formTagIndex = 0
	return nil
}

func (u *UI) showForm(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := min(10, max(7, maxY/2))
	x0 := (maxX - width) / 2
	y0 := (maxY - height) / 2

	pane, err := gui.SetView(viewForm, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		pane.Wrap = true
	}
	if u.form.taskID != "" {
		pane.Title = "Edit Task"
	} else {
		pane.Title = "New Task"
	}
	pane.Editable = true
	pane.KeybindOnEdit = true
	pane.Editor = u.formEditor
	u.renderForm(pane)
	_, _ = gui.SetCurrentView(viewForm)
	return nil
}

func (u *UI) submitForm(gui *gocui.Gui, _ *gocui.View) error {
	if u.form == nil {
		return nil
	}

	input, err := parseFormFields(u.form.fields)
	if err != nil {
		u.status = err.Error()
		return nil
	}

	if u.form.taskID == "" {
		task, err := u.engine.AddTask(input)
		if err != nil {
			u.status = err.Error()
			return nil
		}
		u.log.Debug("task created", zap.String("id", task.ID))
		u.loadTasks()
		u.selectTask(task.ID)
	} else {
		u.engine.UpdateTask(u.form.taskID, patchFromInput(input))
		u.loadTasks()
		u.selectTask(u.form.taskID)
	}

	u.form = nil
	u.status = ""
	u.closePopup(gui, viewForm)
	return nil
}

func (u *UI) cancelForm(gui *gocui.Gui, _ *gocui.View) error {
	u.form = nil
	u.closePopup(gui, viewForm)
	return nil
}

func (u *UI) nextFormField(_ *gocui.Gui, pane *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index < len(u.form.fields)-1 {
		u.form.index++
	}
	u.renderForm(pane)
	return nil
}

func (u *UI) prevFormField(_ *gocui.Gui, pane *gocui.View) error {
	if u.form == nil {
		return nil
	}
	if u.form.index > 0 {
		u.form.index--
	}
	u.renderForm(pane)
	return nil
}

func (u *UI) renderForm(pane *gocui.View) {
	if u.form == nil || pane == nil {
		return
	}
	pane.Clear()
	for index, field := range u.form.fields {
		prefix := "  "
		if index == u.form.index {
			prefix = "> "
		}
		value := field.Value
		if isPriorityField(field.Label) {
			value = priorityLabel(model.Priority(value))
		}
		if isTagsField(field.Label) {
			if candidate := u.currentTagOption(); candidate != "" {
				value = fmt.Sprintf("%s [pick: %s]", value, candidate)
			}
		}
		fmt.Fprintf(pane, "%s%s: %s\n", prefix, field.Label, value)
	}
	if u.status != "" {
		fmt.Fprint(pane, u.status)
	}
	current := u.form.fields[u.form.index]
	cursorX := len([]rune(current.Label+": ")) + len([]rune(current.Value)) + 2
	pane.SetCursor(cursorX, u.form.index)
}

func (e *formEditor) Edit(pane *gocui.View, key gocui.Key, ch rune, mod gocui.Modifier) bool {
	ui := e.ui
	if ui == nil || ui.form == nil || pane == nil {
		return false
	}
	field := &ui.form.fields[ui.form.index]

	if isPriorityField(field.Label) {
		current := model.Priority(field.Value)
		switch key {
		case gocui.KeyArrowRight, gocui.KeySpace:
			field.Value = string(cycle(priorityOrder, current, 1))
		case gocui.KeyArrowLeft:
			field.Value = string(cycle(priorityOrder, current, -1))
		}
		ui.renderForm(pane)
		return true
	}

	if isTagsField(field.Label) {
		switch key {
		case gocui.KeyArrowRight:
			ui.formTagIndex = clampIndex(ui.formTagIndex+1, len(ui.tags))
		case gocui.KeyArrowLeft:
			ui.formTagIndex = clampIndex(ui.formTagIndex-1, len(ui.tags))
		case gocui.KeySpace:
			ui.toggleTagInField(field)
		case gocui.KeyBackspace, gocui.KeyBackspace2, gocui.KeyCtrlU:
			field.Value = ""
		}
		if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
			field.Value += string(ch)
		}
		ui.renderForm(pane)
		return true
	}

	switch key {
	case gocui.KeyBackspace, gocui.KeyBackspace2:
		runes := []rune(field.Value)
		if len(runes) > 0 {
			field.Value = string(runes[:len(runes)-1])
		}
	case gocui.KeySpace:
		field.Value += " "
	case gocui.KeyCtrlU:
		field.Value = ""
	}

	if ch != 0 && ch != '\n' && ch != '\r' && mod == 0 {
		field.Value += string(ch)
	}

	ui.renderForm(pane)
	return true
}

func (u *UI) tagOptions() []string {
	result := make([]string, 0, len(u.tags))
	for _, entry := range u.tags {
		result = append(result, entry.Name)
	}
	return result
}

func (u *UI) currentTagOption() string {
	options := u.tagOptions()
	if len(options) == 0 {
		return ""
	}
	u.formTagIndex = clampIndex(u.formTagIndex, len(options))
	return options[u.formTagIndex]
}

// toggleTagInField adds or removes the highlighted tag, keeping the order
// the user picked them in.
func (u *UI) toggleTagInField(field *formField) {
	current := u.currentTagOption()
	if current == "" {
		return
	}

	tags := parseTags(field.Value)
	kept := make([]string, 0, len(tags)+1)
	removed := false
	for _, name := range tags {
		if name == current {
			removed = true
			continue
		}
		kept = append(kept, name)
	}
	if !removed {
		kept = append(kept, current)
	}
	field.Value = strings.Join(kept, ", ")
}

// deleteSelected removes whatever the focused pane points at.
func (u *UI) deleteSelected(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	switch u.focus {
	case viewTags:
		return u.deleteTag()
	case viewSubtasks:
		return u.deleteSubtask()
	default:
		return u.deleteTask()
	}
}

func (u *UI) deleteTask() error {
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	u.engine.RemoveTask(selected.ID)
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) deleteTag() error {
	if u.selectedTags < 0 || u.selectedTags >= len(u.tags) {
		return nil
	}
	entry := u.tags[u.selectedTags]
	u.engine.RemoveDefinedTag(entry.Name)
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) deleteSubtask() error {
	selected := u.selectedTask()
	subtasks := u.selectedSubtasks()
	if selected == nil || u.selectedSubtask >= len(subtasks) {
		return nil
	}
	u.engine.RemoveSubtask(selected.ID, subtasks[u.selectedSubtask].ID)
	u.loadTasks()
	return nil
}

func (u *UI) toggleSelected(_ *gocui.Gui, _ *gocui.View) error {
	if u.inputActive() {
		return nil
	}
	selected := u.selectedTask()
	if selected == nil {
		return nil
	}
	if u.focus == viewSubtasks {
		subtasks := u.selectedSubtasks()
		if u.selectedSubtask >= len(subtasks) {
			return nil
		}
		u.engine.ToggleSubtaskStatus(selected.ID, subtasks[u.selectedSubtask].ID)
		u.loadTasks()
		return nil
	}
	if u.focus == viewTags {
		return nil
	}
	u.engine.ToggleTaskStatus(selected.ID)
	u.status = ""
	u.loadTasks()
	return nil
}

func (u *UI) inputActive() bool {
	return u.prompt != nil || u.form != nil || u.helpActive
}

func (u *UI) quit(_ *gocui.Gui, _ *gocui.View) error {
	return gocui.ErrQuit
}

func (u *UI) showHelp(gui *gocui.Gui) error {
	maxX, maxY := gui.Size()
	width := max(60, maxX/2)
	height := 20
	x0 := (maxX - width) / 2
	y0 := max((maxY-height)/2, 0)

	pane, err := gui.SetView(viewHelp, x0, y0, x0+width, y0+height, 0)
	if err != nil && !goerrors.Is(err, gocui.ErrUnknownView) {
		return err
	}
	if goerrors.Is(err, gocui.ErrUnknownView) {
		pane.Title = "Help"
		pane.Wrap = true
	}
	pane.Clear()
	fmt.Fprint(pane, helpText())
	_, _ = gui.SetCurrentView(viewHelp)
	return nil
}

func helpText() string {
	return strings.Join([]string{
		"Navigation:",
		"  Tab cycle panes | 1 Pending | 2 Done | 3 Tags | 4 Subtasks",
		"  j/k or arrows move selection | mouse click to select",
		"",
		"Tasks:",
		"  a add | e edit | d delete | x toggle done | J/K move down/up (priority or due sort)",
		"  s add subtask | x/d in Subtasks toggle/delete a subtask",
		"  u undo | ctrl+r redo",
		"",
		"Filter/Sort:",
		"  / search | f status | p priority | o sort | g clear",
		"",
		"Tags:",
		"  space/enter filter by tag | a add tag | d delete tag everywhere",
		"  tags marked * are used by tasks but not defined",
		"",
		"Form:",
		"  tab/arrows field | space/left/right cycle priority or tags | enter save",
		"",
		"  r reload | ? help | esc/q close help | q quit",
	}, "\n")
}

func applyViewStyle(pane *gocui.View, focused bool, highlight bool) {
	pane.Frame = true
	pane.Highlight = focused && highlight
	pane.HighlightInactive = false
	pane.SelBgColor = gocui.ColorBlue
	pane.SelFgColor = gocui.ColorBlack
	pane.InactiveViewSelBgColor = gocui.ColorDefault
	if focused {
		pane.FrameColor = gocui.ColorCyan
		pane.TitleColor = gocui.ColorCyan
	} else {
		pane.FrameColor = gocui.ColorDefault
	}
}
