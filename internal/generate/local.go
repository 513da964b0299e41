package generate

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/craftwell/gamesmith/internal/wizard"
)

// Compile-time interface check.
var _ wizard.Generator = (*Local)(nil)

// Local is a deterministic, dependency-free generator. It cycles through
// small per-type pools, threading earlier selections from the context into
// later content so sessions stay coherent without any remote provider. It
// backs development, tests, and the degraded mode when no provider endpoint
// is configured.
type Local struct {
	seq atomic.Uint64 // global cursor so repeated batches differ
}

// NewLocal creates a Local generator.
func NewLocal() *Local {
	return &Local{}
}

var (
	heroNames   = [...]string{"Pip", "Nova", "Bramble", "Juno", "Vex", "Tatter"}
	heroKinds   = [...]string{"fox scout", "clockwork robot", "swamp sprite", "star courier", "cave knight", "patchwork golem"}
	coreLoops   = [...]string{"run and jump between platforms", "clear waves of drones", "match runes to open the gate", "outrun the rising flood", "bounce shots off walls"}
	levelThemes = [...]string{"mossy ruins", "neon rooftops", "frozen harbor", "sunken library", "cinder mines"}
	artStyles   = [...]string{"chunky pixel art", "flat pastel vectors", "inky hand-drawn lines", "glowing wireframes"}
	musicMoods  = [...]string{"bouncy chiptune", "slow synth drones", "jazzy lounge loop", "driving drum and bass"}
	uiLayouts   = [...]string{"minimal corner HUD", "top status bar", "diegetic in-world markers"}
)

// Generate produces count variants for stepType. It never fails: the pools
// cover every known step type.
func (l *Local) Generate(_ context.Context, stepType wizard.StepType, gctx *wizard.GenContext, count int, instruction string) ([]wizard.Content, error) {
	if count <= 0 {
		return nil, fmt.Errorf("generate: local: count must be positive, got %d", count)
	}

	out := make([]wizard.Content, 0, count)
	for i := 0; i < count; i++ {
		n := int(l.seq.Add(1))
		out = append(out, l.build(stepType, gctx, n, instruction))
	}
	return out, nil
}

func (l *Local) build(stepType wizard.StepType, gctx *wizard.GenContext, n int, instruction string) wizard.Content {
	c := wizard.Content{Type: stepType}
	flavor := ""
	if instruction != "" {
		flavor = " (" + instruction + ")"
	}

	switch stepType {
	case wizard.StepCharacter:
		name := heroNames[n%len(heroNames)]
		kind := heroKinds[n%len(heroKinds)]
		c.Character = &wizard.CharacterContent{
			Name:        name,
			Description: fmt.Sprintf("%s, a %s%s", name, kind, flavor),
			Appearance:  fmt.Sprintf("a %s with a distinctive silhouette", kind),
			Abilities:   []string{"double jump", "dash"},
			Style:       artStyles[n%len(artStyles)],
		}

	case wizard.StepMechanics:
		loop := coreLoops[n%len(coreLoops)]
		objectives := []string{"reach the exit", "collect every spark"}
		if hero, ok := gctx.Lookup(wizard.StepCharacter); ok && hero.Character != nil {
			objectives = append(objectives, fmt.Sprintf("keep %s alive", hero.Character.Name))
		}
		c.Mechanics = &wizard.MechanicsContent{
			CoreLoop:    loop + flavor,
			Controls:    "arrow keys to move, space to act",
			Objectives:  objectives,
			Progression: "each stage adds one new hazard",
		}

	case wizard.StepLevel:
		theme := levelThemes[n%len(levelThemes)]
		layout := "left-to-right scroll with three tiers"
		if mech, ok := gctx.Lookup(wizard.StepMechanics); ok && mech.Mechanics != nil {
			layout = fmt.Sprintf("layout tuned for %q", mech.Mechanics.CoreLoop)
		}
		c.Level = &wizard.LevelContent{
			Theme:     theme + flavor,
			Layout:    layout,
			Obstacles: []string{"crumbling ledges", "patrol drones"},
			Goal:      "reach the beacon at the far end",
		}

	case wizard.StepGraphics:
		c.Graphics = &wizard.GraphicsContent{
			ArtStyle:   artStyles[n%len(artStyles)] + flavor,
			Palette:    []string{"#1a1c2c", "#5d275d", "#ef7d57", "#ffcd75"},
			Sprites:    "16x16 with 2-frame walk cycles",
			Background: "two-layer parallax",
		}

	case wizard.StepSound:
		c.Sound = &wizard.SoundContent{
			MusicStyle: musicMoods[n%len(musicMoods)] + flavor,
			Tempo:      "120 bpm",
			Effects:    []string{"jump blip", "pickup chime", "hit thud"},
			Ambience:   "soft wind bed",
		}

	case wizard.StepUI:
		c.UI = &wizard.UIContent{
			Layout:      uiLayouts[n%len(uiLayouts)] + flavor,
			HUDElements: []string{"score", "lives", "timer"},
			Menus:       []string{"title", "pause", "game over"},
			FontStyle:   "blocky bitmap",
		}

	default:
		// Unknown types are rejected upstream by content validation; emit a
		// raw marker so the failure is visible rather than silent.
		c.Raw = &wizard.RawContent{Ref: "local-unknown", MediaType: "text/plain"}
	}

	return c
}
