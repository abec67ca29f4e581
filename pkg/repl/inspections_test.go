package repl

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findInspection(facts []Inspection, name string) (string, bool) {
	for _, f := range facts {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

func TestInspectionsNil(t *testing.T) {
	facts := Inspections(nil)
	require.Len(t, facts, 1)
	assert.Equal(t, Inspection{"Type", "<nil>"}, facts[0])
}

func TestInspectionsSlice(t *testing.T) {
	facts := Inspections(make([]int, 3, 8))

	typ, _ := findInspection(facts, "Type")
	assert.Equal(t, "[]int", typ)
	length, _ := findInspection(facts, "Length")
	assert.Equal(t, "3", length)
	capacity, _ := findInspection(facts, "Capacity")
	assert.Equal(t, "8", capacity)
	isNil, _ := findInspection(facts, "Is Nil")
	assert.Equal(t, "false", isNil)
}

func TestInspectionsStructFieldsAndMethods(t *testing.T) {
	facts := Inspections(time.Second)

	kind, _ := findInspection(facts, "Kind")
	assert.Equal(t, "int64", kind)
	methods, ok := findInspection(facts, "Methods")
	require.True(t, ok)
	assert.Contains(t, methods, "Seconds")
	stringForm, ok := findInspection(facts, "String Form")
	require.True(t, ok)
	assert.Equal(t, "1s", stringForm)
}

func TestInspectionsError(t *testing.T) {
	facts := Inspections(errors.New("boom"))
	text, ok := findInspection(facts, "Error Text")
	require.True(t, ok)
	assert.Equal(t, "boom", text)
}

func TestInspectionsNilPointer(t *testing.T) {
	var p *int
	facts := Inspections(p)
	isNil, ok := findInspection(facts, "Is Nil")
	require.True(t, ok)
	assert.Equal(t, "true", isNil)
}

func TestTruncateIsRuneSafe(t *testing.T) {
	assert.Equal(t, "héll…", truncate("héllo world", 5))
	assert.Equal(t, "short", truncate("short", 10))
}

func TestJoinBoundedStopsAtLimit(t *testing.T) {
	out := joinBounded([]string{"aaaa", "bbbb", "cccc"}, 9)
	assert.Contains(t, out, "(3 total)")
}
