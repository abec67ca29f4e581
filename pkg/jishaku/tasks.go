package jishaku

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrUnknownTask is returned when cancelling an index with no running task.
var ErrUnknownTask = errors.New("no task with that index is running")

// ErrNoTasks is returned when cancelling the most recent task while nothing
// is running.
var ErrNoTasks = errors.New("no tasks are running")

// CommandTask is one in-flight tracked command invocation.
type CommandTask struct {
	Index   int
	Command string
	Invoked time.Time

	cancel context.CancelFunc
}

// TaskRegistry tracks running command invocations so they can be listed and
// cancelled. Indices increase monotonically for the registry's lifetime and
// are never reused.
type TaskRegistry struct {
	mu    sync.Mutex
	next  int
	tasks map[int]*CommandTask
}

func NewTaskRegistry() *TaskRegistry {
	return &TaskRegistry{next: 1, tasks: make(map[int]*CommandTask)}
}

// Track registers an invocation and derives a cancellable context for it.
// The release func removes the entry; callers defer it for the lifetime of
// the handler.
func (r *TaskRegistry) Track(ctx context.Context, commandName string) (*CommandTask, context.Context, func()) {
	taskCtx, cancel := context.WithCancel(ctx)

	r.mu.Lock()
	task := &CommandTask{
		Index:   r.next,
		Command: commandName,
		Invoked: time.Now(),
		cancel:  cancel,
	}
	r.next++
	r.tasks[task.Index] = task
	r.mu.Unlock()

	release := func() {
		cancel()
		r.mu.Lock()
		delete(r.tasks, task.Index)
		r.mu.Unlock()
	}
	return task, taskCtx, release
}

// List returns running tasks ordered by index.
func (r *TaskRegistry) List() []*CommandTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*CommandTask, 0, len(r.tasks))
	for _, task := range r.tasks {
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Cancel cancels the task at index; index -1 cancels the most recent task.
// Returns the cancelled task.
func (r *TaskRegistry) Cancel(index int) (*CommandTask, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index == -1 {
		if len(r.tasks) == 0 {
			return nil, ErrNoTasks
		}
		for i := range r.tasks {
			if i > index {
				index = i
			}
		}
	}

	task, ok := r.tasks[index]
	if !ok {
		return nil, ErrUnknownTask
	}
	task.cancel()
	delete(r.tasks, index)
	return task, nil
}
