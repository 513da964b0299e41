// Package assemble turns a finished session's selections into a playable
// deliverable: a small HTML5 game skeleton plus a design document and a
// machine-readable manifest, written under a per-session output directory.
package assemble

import (
	"strings"

	"github.com/craftwell/gamesmith/internal/wizard"
)

// Archetype names the game skeleton the assembler emits.
type Archetype string

const (
	ArchetypePlatformer Archetype = "platformer"
	ArchetypeShooter    Archetype = "shooter"
	ArchetypePuzzle     Archetype = "puzzle"
	ArchetypeRunner     Archetype = "runner"
	ArchetypeArcade     Archetype = "arcade"
)

// archetypeKeywords maps core-loop keywords to archetypes. Earlier rows win,
// so "run and jump" lands on platformer rather than runner.
var archetypeKeywords = []struct {
	arch  Archetype
	words []string
}{
	{ArchetypePlatformer, []string{"jump", "platform", "climb"}},
	{ArchetypeShooter, []string{"shoot", "shot", "blast", "wave", "bullet"}},
	{ArchetypePuzzle, []string{"match", "puzzle", "rune", "tile", "riddle"}},
	{ArchetypeRunner, []string{"run", "dash", "escape", "chase", "flee"}},
}

// InferArchetype picks the skeleton from the selected mechanics. Sessions
// without mechanics content, or with a core loop matching nothing, fall back
// to the generic arcade skeleton.
func InferArchetype(gctx *wizard.GenContext) Archetype {
	mech, ok := gctx.Lookup(wizard.StepMechanics)
	if !ok || mech.Mechanics == nil {
		return ArchetypeArcade
	}

	loop := strings.ToLower(mech.Mechanics.CoreLoop)
	for _, row := range archetypeKeywords {
		for _, w := range row.words {
			if strings.Contains(loop, w) {
				return row.arch
			}
		}
	}
	return ArchetypeArcade
}
