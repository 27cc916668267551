package rag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAddAndHistory(t *testing.T) {
	m := NewConversationMemory(10)

	m.AddTurn("s1", Turn{Query: "first", Answer: "a1"})
	m.AddTurn("s1", Turn{Query: "second", Answer: "a2"})

	history := m.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, "first", history[0].Query)
	assert.Equal(t, "second", history[1].Query)
	assert.False(t, history[0].Timestamp.IsZero())
}

func TestMemoryEvictsOldestAtCapacity(t *testing.T) {
	m := NewConversationMemory(10)

	for i := 0; i < 15; i++ {
		m.AddTurn("s1", Turn{Query: fmt.Sprintf("q%d", i)})
	}

	history := m.History("s1")
	require.Len(t, history, 10)
	assert.Equal(t, "q5", history[0].Query)
	assert.Equal(t, "q14", history[9].Query)
}

func TestMemoryLastContext(t *testing.T) {
	m := NewConversationMemory(10)

	assert.Nil(t, m.LastContext("unknown"))

	ctx1 := &RetrievalContext{Query: "first"}
	ctx2 := &RetrievalContext{Query: "second"}
	m.AddTurn("s1", Turn{Query: "first", Context: ctx1})
	m.AddTurn("s1", Turn{Query: "second", Context: ctx2})

	got := m.LastContext("s1")
	require.NotNil(t, got)
	assert.Equal(t, "second", got.Query)
}

func TestMemorySessionsAreIsolated(t *testing.T) {
	m := NewConversationMemory(10)

	m.AddTurn("s1", Turn{Query: "one"})
	m.AddTurn("s2", Turn{Query: "two"})

	m.Clear("s1")

	assert.Nil(t, m.History("s1"))
	require.Len(t, m.History("s2"), 1)
	assert.Equal(t, "two", m.History("s2")[0].Query)
}

func TestMemoryIgnoresEmptySessionID(t *testing.T) {
	m := NewConversationMemory(10)

	m.AddTurn("", Turn{Query: "anonymous"})

	assert.Nil(t, m.History(""))
}

func TestFollowUpPolicy(t *testing.T) {
	p := DefaultFollowUpPolicy()

	assert.True(t, p.IsFollowUp("tell me more"))
	assert.True(t, p.IsFollowUp("what about Meta?"))
	assert.True(t, p.IsFollowUp("explain that"))

	// Whole-word matching: "morecambe" must not fire on "more".
	assert.False(t, p.IsFollowUp("morecambe campaign spend"))
	assert.False(t, p.IsFollowUp("show campaign spend"))
}

func TestFollowUpPolicyCustomIndicators(t *testing.T) {
	p := FollowUpPolicy{Indicators: []string{"drill into"}}

	assert.True(t, p.IsFollowUp("drill into the numbers"))
	assert.False(t, p.IsFollowUp("tell me more"))
}
