package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSession assembles a session by hand for context-builder tests.
func buildSession(steps ...*Step) *Session {
	return &Session{
		ID:           "s-test",
		Steps:        steps,
		TotalSteps:   len(steps),
		FinalChoices: make(map[string]string),
	}
}

func completedStep(id string, stepType StepType, content Content) *Step {
	v := &Variant{ID: id + "-v", Provenance: ProvenanceGenerated, Content: content}
	return &Step{
		ID:         id,
		Type:       stepType,
		Variants:   []*Variant{v},
		SelectedID: v.ID,
		Completed:  true,
	}
}

func TestBuildContext_OnlyCompletedStepsInOrder(t *testing.T) {
	char := contentFor(StepCharacter, 1)
	mech := contentFor(StepMechanics, 2)

	s := buildSession(
		completedStep("st-0", StepCharacter, char),
		completedStep("st-1", StepMechanics, mech),
		&Step{ID: "st-2", Type: StepLevel}, // incomplete
	)

	gctx := BuildContext(s)
	require.Len(t, gctx.Entries, 2)
	assert.Equal(t, StepCharacter, gctx.Entries[0].Type)
	assert.Equal(t, char, gctx.Entries[0].Content)
	assert.Equal(t, StepMechanics, gctx.Entries[1].Type)
	assert.Equal(t, mech, gctx.Entries[1].Content)
}

func TestBuildContext_Deterministic(t *testing.T) {
	s := buildSession(
		completedStep("st-0", StepCharacter, contentFor(StepCharacter, 0)),
		completedStep("st-1", StepSound, contentFor(StepSound, 0)),
	)

	first := BuildContext(s)
	second := BuildContext(s)
	assert.Equal(t, first, second)
}

func TestBuildContext_SkipsStepsWithoutSelection(t *testing.T) {
	// A completed step with a dangling selection contributes nothing rather
	// than panicking.
	broken := &Step{
		ID:         "st-0",
		Type:       StepCharacter,
		Completed:  true,
		SelectedID: "vanished",
	}
	s := buildSession(broken)

	gctx := BuildContext(s)
	assert.Empty(t, gctx.Entries)
}

func TestGenContext_Lookup(t *testing.T) {
	char := contentFor(StepCharacter, 0)
	s := buildSession(completedStep("st-0", StepCharacter, char))

	gctx := BuildContext(s)

	got, ok := gctx.Lookup(StepCharacter)
	require.True(t, ok)
	assert.Equal(t, char, got)

	_, ok = gctx.Lookup(StepUI)
	assert.False(t, ok)
}
