package conversation

import "sync"

// UIState tracks side-panel visibility and the currently focused task, plan
// and file. The panel itself belongs to the UI layer; the session only
// records what it should show. Selecting anything opens the panel.
type UIState struct {
	mu         sync.Mutex
	panelOpen  bool
	activeTask *Task
	plan       *Plan
	activeFile *File
}

// SelectTask focuses a task and opens the panel.
func (u *UIState) SelectTask(t Task) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.activeTask = &t
	u.panelOpen = true
}

// SelectFile focuses a file preview and opens the panel.
func (u *UIState) SelectFile(f File) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.activeFile = &f
	u.panelOpen = true
}

// SetPlan records the latest plan forwarded from the stream. It does not
// open the panel; OpenPlan does.
func (u *UIState) SetPlan(p Plan) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.plan = &p
}

// OpenPlan opens the panel on the plan view.
func (u *UIState) OpenPlan() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.panelOpen = true
}

// ClosePanel hides the panel without clearing what it showed.
func (u *UIState) ClosePanel() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.panelOpen = false
}

// PanelOpen reports panel visibility.
func (u *UIState) PanelOpen() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.panelOpen
}

// ActiveTask returns the focused task, if any.
func (u *UIState) ActiveTask() (Task, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.activeTask == nil {
		return Task{}, false
	}
	return *u.activeTask, true
}

// ActivePlan returns the recorded plan, if any.
func (u *UIState) ActivePlan() (Plan, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.plan == nil {
		return Plan{}, false
	}
	return *u.plan, true
}

// ActiveFile returns the focused file, if any.
func (u *UIState) ActiveFile() (File, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.activeFile == nil {
		return File{}, false
	}
	return *u.activeFile, true
}
