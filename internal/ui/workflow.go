package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// spinnerFrames defines the spinner animation frames
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// TaskStatus represents the status of a task
type TaskStatus int

const (
	TaskPending TaskStatus = iota
	TaskRunning
	TaskDone
	TaskFailed
	TaskSkipped
)

// Task represents a single task in the workflow
type Task struct {
	Name    string
	Status  TaskStatus
	Message string
	Details string // shown after the task completes
	started time.Time
	elapsed time.Duration
}

// Workflow manages a list of tasks with visual progress.
// On writers that are not terminals the spinner is disabled and only the
// final state is printed.
type Workflow struct {
	writer     io.Writer
	tasks      []*Task
	mu         sync.Mutex
	spinnerIdx int
	stopChan   chan struct{}
	running    bool
	animate    bool
	lastRender string
}

// NewWorkflow creates a new workflow tracker
func NewWorkflow(w io.Writer) *Workflow {
	return &Workflow{
		writer:   w,
		stopChan: make(chan struct{}),
		animate:  isTerminal(w),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// AddTask adds a new task to the workflow and returns its index
func (wf *Workflow) AddTask(name string) int {
	wf.mu.Lock()
	defer wf.mu.Unlock()

	wf.tasks = append(wf.tasks, &Task{Name: name, Status: TaskPending})
	return len(wf.tasks) - 1
}

func (wf *Workflow) set(idx int, fn func(t *Task)) {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	if idx >= 0 && idx < len(wf.tasks) {
		fn(wf.tasks[idx])
	}
}

// StartTask marks a task as running
func (wf *Workflow) StartTask(idx int, message string) {
	wf.set(idx, func(t *Task) {
		t.Status = TaskRunning
		t.Message = message
		t.started = time.Now()
	})
}

// CompleteTask marks a task as done
func (wf *Workflow) CompleteTask(idx int, details string) {
	wf.set(idx, func(t *Task) {
		t.Status = TaskDone
		t.Details = details
		if !t.started.IsZero() {
			t.elapsed = time.Since(t.started)
		}
	})
}

// FailTask marks a task as failed
func (wf *Workflow) FailTask(idx int, errMsg string) {
	wf.set(idx, func(t *Task) {
		t.Status = TaskFailed
		t.Message = errMsg
	})
}

// SkipTask marks a task as skipped
func (wf *Workflow) SkipTask(idx int, reason string) {
	wf.set(idx, func(t *Task) {
		t.Status = TaskSkipped
		t.Message = reason
	})
}

// UpdateMessage updates the message of a running task
func (wf *Workflow) UpdateMessage(idx int, message string) {
	wf.set(idx, func(t *Task) { t.Message = message })
}

// Tasks returns a snapshot of the task list.
func (wf *Workflow) Tasks() []Task {
	wf.mu.Lock()
	defer wf.mu.Unlock()
	out := make([]Task, len(wf.tasks))
	for i, t := range wf.tasks {
		out[i] = *t
	}
	return out
}

// Start begins the workflow display with animation
func (wf *Workflow) Start() {
	wf.mu.Lock()
	if wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = true
	animate := wf.animate
	wf.mu.Unlock()

	if !animate {
		return
	}

	go func() {
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-wf.stopChan:
				return
			case <-ticker.C:
				wf.mu.Lock()
				wf.spinnerIdx = (wf.spinnerIdx + 1) % len(spinnerFrames)
				wf.mu.Unlock()
				wf.render(false)
			}
		}
	}()
}

// Stop ends the workflow display and prints the final state
func (wf *Workflow) Stop() {
	wf.mu.Lock()
	if !wf.running {
		wf.mu.Unlock()
		return
	}
	wf.running = false
	wf.mu.Unlock()

	close(wf.stopChan)
	wf.render(true)
}

func (wf *Workflow) render(final bool) {
	wf.mu.Lock()
	defer wf.mu.Unlock()

	var b strings.Builder

	// Clear previous output (move cursor up and clear lines)
	if wf.lastRender != "" {
		lineCount := strings.Count(wf.lastRender, "\n") + 1
		for i := 0; i < lineCount; i++ {
			b.WriteString("\033[A\033[K")
		}
	}

	for _, task := range wf.tasks {
		b.WriteString(wf.renderTask(task, final))
		b.WriteString("\n")
	}

	output := b.String()
	if !final {
		wf.lastRender = strings.TrimSuffix(output, "\n")
	}
	fmt.Fprint(wf.writer, output)
}

func (wf *Workflow) renderTask(task *Task, final bool) string {
	var icon string
	var nameStyle styleWrapper

	switch task.Status {
	case TaskRunning:
		if final {
			icon = Muted.Render("○")
			nameStyle = StepPending
			break
		}
		icon = Secondary.Render(spinnerFrames[wf.spinnerIdx])
		nameStyle = StepRunning
	case TaskDone:
		icon = GetCheckMark()
		nameStyle = StepComplete
	case TaskFailed:
		icon = GetCrossMark()
		nameStyle = StepFailed
	case TaskSkipped:
		icon = Warning.Render("⊘")
		nameStyle = StepSkipped
	default:
		icon = Muted.Render("○")
		nameStyle = StepPending
	}

	line := fmt.Sprintf("%s %s", icon, nameStyle.Render(task.Name))

	switch {
	case !final && task.Message != "":
		line += " " + Dim.Render(task.Message)
	case task.Status == TaskDone && task.Details != "":
		line += " " + Dim.Render("→ "+task.Details)
		if task.elapsed > 0 {
			line += " " + Muted.Render(fmt.Sprintf("(%s)", task.elapsed.Round(time.Millisecond)))
		}
	case task.Status == TaskFailed && task.Message != "":
		line += " " + Error.Render("→ "+task.Message)
	case task.Status == TaskSkipped && task.Message != "":
		line += " " + Warning.Render("→ "+task.Message)
	}

	return line
}
