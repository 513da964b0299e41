package wizard

import "fmt"

// Content is the tagged union carried by every variant. Exactly one payload
// field is set, and it must match Type. Keeping one concrete schema per step
// type lets the context builder and generators be statically checked instead
// of passing loosely shaped maps between steps.
type Content struct {
	Type      StepType          `json:"type"`
	Character *CharacterContent `json:"character,omitempty"`
	Mechanics *MechanicsContent `json:"mechanics,omitempty"`
	Level     *LevelContent     `json:"level,omitempty"`
	Graphics  *GraphicsContent  `json:"graphics,omitempty"`
	Sound     *SoundContent     `json:"sound,omitempty"`
	UI        *UIContent        `json:"ui,omitempty"`
	Raw       *RawContent       `json:"raw,omitempty"` // uploaded payload reference
}

// CharacterContent describes the playable character.
type CharacterContent struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Appearance  string   `json:"appearance"`
	Abilities   []string `json:"abilities"`
	Style       string   `json:"style,omitempty"`
}

// MechanicsContent describes how the game plays.
type MechanicsContent struct {
	CoreLoop    string   `json:"coreLoop"`
	Controls    string   `json:"controls"`
	Objectives  []string `json:"objectives"`
	Progression string   `json:"progression,omitempty"`
}

// LevelContent describes one stage layout.
type LevelContent struct {
	Theme     string   `json:"theme"`
	Layout    string   `json:"layout"`
	Obstacles []string `json:"obstacles,omitempty"`
	Goal      string   `json:"goal"`
}

// GraphicsContent describes the visual direction.
type GraphicsContent struct {
	ArtStyle   string   `json:"artStyle"`
	Palette    []string `json:"palette,omitempty"`
	Sprites    string   `json:"sprites,omitempty"`
	Background string   `json:"background,omitempty"`
}

// SoundContent describes the audio direction.
type SoundContent struct {
	MusicStyle string   `json:"musicStyle"`
	Tempo      string   `json:"tempo,omitempty"`
	Effects    []string `json:"effects,omitempty"`
	Ambience   string   `json:"ambience,omitempty"`
}

// UIContent describes menus and HUD.
type UIContent struct {
	Layout      string   `json:"layout"`
	HUDElements []string `json:"hudElements,omitempty"`
	Menus       []string `json:"menus,omitempty"`
	FontStyle   string   `json:"fontStyle,omitempty"`
}

// RawContent references an externally supplied payload (upload provenance).
// The bytes live wherever the upload collaborator stored them.
type RawContent struct {
	Ref       string `json:"ref"`
	MediaType string `json:"mediaType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Validate checks that exactly one payload is set and that it matches Type.
// Raw is accepted for any step type (uploads carry opaque payloads).
func (c Content) Validate() error {
	set := 0
	var match bool
	if c.Character != nil {
		set++
		match = c.Type == StepCharacter
	}
	if c.Mechanics != nil {
		set++
		match = c.Type == StepMechanics
	}
	if c.Level != nil {
		set++
		match = c.Type == StepLevel
	}
	if c.Graphics != nil {
		set++
		match = c.Type == StepGraphics
	}
	if c.Sound != nil {
		set++
		match = c.Type == StepSound
	}
	if c.UI != nil {
		set++
		match = c.Type == StepUI
	}
	if c.Raw != nil {
		set++
		match = true
	}

	if set == 0 {
		return fmt.Errorf("content for step type %q has no payload", c.Type)
	}
	if set > 1 {
		return fmt.Errorf("content for step type %q has %d payloads, want exactly 1", c.Type, set)
	}
	if !match {
		return fmt.Errorf("content payload does not match step type %q", c.Type)
	}
	if !c.Type.IsKnown() {
		return fmt.Errorf("unknown step type %q", c.Type)
	}
	return nil
}

// Summary returns a short human-readable description of the content, used for
// variant previews and progress output.
func (c Content) Summary() string {
	switch {
	case c.Character != nil:
		return c.Character.Name + ": " + c.Character.Description
	case c.Mechanics != nil:
		return c.Mechanics.CoreLoop
	case c.Level != nil:
		return c.Level.Theme + " / " + c.Level.Goal
	case c.Graphics != nil:
		return c.Graphics.ArtStyle
	case c.Sound != nil:
		return c.Sound.MusicStyle
	case c.UI != nil:
		return c.UI.Layout
	case c.Raw != nil:
		return fmt.Sprintf("upload %s (%s, %d bytes)", c.Raw.Ref, c.Raw.MediaType, c.Raw.SizeBytes)
	}
	return string(c.Type)
}
