package jishaku

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskIndicesAreMonotonic(t *testing.T) {
	r := NewTaskRegistry()

	_, _, release1 := r.Track(context.Background(), "jsk go")
	task2, _, release2 := r.Track(context.Background(), "jsk sh")
	release1()
	release2()

	// Released indices are never reused.
	task3, _, release3 := r.Track(context.Background(), "jsk cat")
	defer release3()
	assert.Greater(t, task3.Index, task2.Index)
}

func TestListOrderedByIndex(t *testing.T) {
	r := NewTaskRegistry()
	_, _, release1 := r.Track(context.Background(), "a")
	defer release1()
	_, _, release2 := r.Track(context.Background(), "b")
	defer release2()

	tasks := r.List()
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].Command)
	assert.Equal(t, "b", tasks[1].Command)
	assert.Less(t, tasks[0].Index, tasks[1].Index)
}

func TestCancelByIndexCancelsContext(t *testing.T) {
	r := NewTaskRegistry()
	task, taskCtx, release := r.Track(context.Background(), "jsk go")
	defer release()

	cancelled, err := r.Cancel(task.Index)
	require.NoError(t, err)
	assert.Equal(t, task.Index, cancelled.Index)
	assert.Error(t, taskCtx.Err())
	assert.Empty(t, r.List())
}

func TestCancelMostRecent(t *testing.T) {
	r := NewTaskRegistry()
	_, firstCtx, release1 := r.Track(context.Background(), "first")
	defer release1()
	_, secondCtx, release2 := r.Track(context.Background(), "second")
	defer release2()

	cancelled, err := r.Cancel(-1)
	require.NoError(t, err)
	assert.Equal(t, "second", cancelled.Command)
	assert.NoError(t, firstCtx.Err())
	assert.Error(t, secondCtx.Err())
}

func TestCancelUnknownIndex(t *testing.T) {
	r := NewTaskRegistry()
	_, err := r.Cancel(99)
	assert.ErrorIs(t, err, ErrUnknownTask)
}

func TestCancelMostRecentWithNoTasks(t *testing.T) {
	r := NewTaskRegistry()
	_, err := r.Cancel(-1)
	assert.ErrorIs(t, err, ErrNoTasks)
}

func TestReleaseCancelsContext(t *testing.T) {
	r := NewTaskRegistry()
	_, taskCtx, release := r.Track(context.Background(), "jsk go")
	release()
	assert.Error(t, taskCtx.Err())
}
