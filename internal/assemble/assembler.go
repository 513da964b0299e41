package assemble

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/craftwell/gamesmith/internal/wizard"
)

// Compile-time interface check.
var _ wizard.Assembler = (*FileAssembler)(nil)

// FileAssembler writes the deliverable to disk under OutputDir/<session-id>/.
type FileAssembler struct {
	OutputDir string
}

// NewFileAssembler creates a FileAssembler rooted at dir.
func NewFileAssembler(dir string) *FileAssembler {
	return &FileAssembler{OutputDir: dir}
}

// manifest is the machine-readable description written next to the game.
type manifest struct {
	SessionID   string            `json:"sessionId"`
	Archetype   string            `json:"archetype"`
	GeneratedAt string            `json:"generatedAt"`
	Files       []string          `json:"files"`
	Selections  map[string]string `json:"selections"`
}

// Assemble renders the game skeleton for the inferred archetype and writes
// index.html, game.js, design.md, and manifest.json.
func (a *FileAssembler) Assemble(gctx *wizard.GenContext, sessionID string) (*wizard.Artifact, error) {
	arch := InferArchetype(gctx)

	files := map[string]string{
		"index.html": renderIndex(gctx, arch),
		"game.js":    renderGame(gctx, arch),
		"design.md":  renderDesign(gctx, arch),
	}

	m := manifest{
		SessionID:   sessionID,
		Archetype:   string(arch),
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Selections:  make(map[string]string),
	}
	for name := range files {
		m.Files = append(m.Files, name)
	}
	m.Files = append(m.Files, "manifest.json")
	for _, e := range gctx.Entries {
		m.Selections[string(e.Type)] = e.Content.Summary()
	}
	manifestJSON, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("assemble: marshal manifest: %w", err)
	}
	files["manifest.json"] = string(manifestJSON) + "\n"

	dir := filepath.Join(a.OutputDir, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("assemble: create output dir: %w", err)
	}

	artifact := &wizard.Artifact{
		ID:        wizard.NewID(),
		SessionID: sessionID,
		Archetype: string(arch),
		CreatedAt: time.Now(),
	}

	// Deterministic file order in the artifact listing.
	for _, name := range []string{"index.html", "game.js", "design.md", "manifest.json"} {
		content := files[name]
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return nil, fmt.Errorf("assemble: write %s: %w", name, err)
		}
		artifact.Files = append(artifact.Files, wizard.ArtifactFile{
			Path:    path,
			Size:    int64(len(content)),
			Written: true,
		})
	}

	return artifact, nil
}

// gameTitle derives a display title from the selected character, falling back
// to the archetype name.
func gameTitle(gctx *wizard.GenContext, arch Archetype) string {
	if c, ok := gctx.Lookup(wizard.StepCharacter); ok && c.Character != nil && c.Character.Name != "" {
		return c.Character.Name + "'s " + title(string(arch))
	}
	return title(string(arch))
}

// title uppercases the first byte; inputs are ASCII identifiers.
func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func renderIndex(gctx *wizard.GenContext, arch Archetype) string {
	title := gameTitle(gctx, arch)

	background := "#1a1c2c"
	if g, ok := gctx.Lookup(wizard.StepGraphics); ok && g.Graphics != nil && len(g.Graphics.Palette) > 0 {
		background = g.Graphics.Palette[0]
	}

	var sb strings.Builder
	sb.WriteString("<!doctype html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("  <meta charset=\"utf-8\">\n")
	fmt.Fprintf(&sb, "  <title>%s</title>\n", title)
	fmt.Fprintf(&sb, "  <style>body{margin:0;background:%s;display:flex;justify-content:center}canvas{image-rendering:pixelated}</style>\n", background)
	sb.WriteString("</head>\n<body>\n")
	sb.WriteString("  <canvas id=\"game\" width=\"640\" height=\"360\"></canvas>\n")
	sb.WriteString("  <script src=\"game.js\"></script>\n")
	sb.WriteString("</body>\n</html>\n")
	return sb.String()
}

func renderGame(gctx *wizard.GenContext, arch Archetype) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "// %s\n", gameTitle(gctx, arch))
	if m, ok := gctx.Lookup(wizard.StepMechanics); ok && m.Mechanics != nil {
		fmt.Fprintf(&sb, "// Core loop: %s\n", m.Mechanics.CoreLoop)
		fmt.Fprintf(&sb, "// Controls: %s\n", m.Mechanics.Controls)
	}
	sb.WriteString("'use strict';\n\n")

	sb.WriteString("const palette = [")
	palette := []string{"#1a1c2c", "#5d275d", "#ef7d57", "#ffcd75"}
	if g, ok := gctx.Lookup(wizard.StepGraphics); ok && g.Graphics != nil && len(g.Graphics.Palette) > 0 {
		palette = g.Graphics.Palette
	}
	for i, c := range palette {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "'%s'", c)
	}
	sb.WriteString("];\n")

	sb.WriteString("const hud = [")
	hud := []string{"score"}
	if u, ok := gctx.Lookup(wizard.StepUI); ok && u.UI != nil && len(u.UI.HUDElements) > 0 {
		hud = u.UI.HUDElements
	}
	for i, h := range hud {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "'%s'", h)
	}
	sb.WriteString("];\n\n")

	sb.WriteString(skeletonFor(arch))
	return sb.String()
}

// skeletonFor returns the per-archetype update/render body. Each skeleton is
// deliberately minimal: a moving player, one hazard, and a win condition.
func skeletonFor(arch Archetype) string {
	common := `const canvas = document.getElementById('game');
const ctx = canvas.getContext('2d');
const keys = {};
addEventListener('keydown', e => keys[e.key] = true);
addEventListener('keyup', e => keys[e.key] = false);

`
	switch arch {
	case ArchetypePlatformer:
		return common + `const player = { x: 32, y: 300, vx: 0, vy: 0, grounded: false };

function update() {
  player.vx = (keys.ArrowRight ? 2 : 0) - (keys.ArrowLeft ? 2 : 0);
  if (keys[' '] && player.grounded) { player.vy = -7; player.grounded = false; }
  player.vy += 0.35;
  player.x += player.vx;
  player.y += player.vy;
  if (player.y >= 300) { player.y = 300; player.vy = 0; player.grounded = true; }
}
` + renderLoop()

	case ArchetypeShooter:
		return common + `const player = { x: 320, y: 330 };
const shots = [];
const foes = [];

function update() {
  player.x += (keys.ArrowRight ? 3 : 0) - (keys.ArrowLeft ? 3 : 0);
  if (keys[' ']) shots.push({ x: player.x, y: player.y });
  shots.forEach(s => s.y -= 6);
  if (Math.random() < 0.02) foes.push({ x: Math.random() * 640, y: -8 });
  foes.forEach(f => f.y += 1.5);
}
` + renderLoop()

	case ArchetypePuzzle:
		return common + `const grid = Array.from({ length: 6 }, () =>
  Array.from({ length: 6 }, () => Math.floor(Math.random() * palette.length)));
let cursor = { x: 0, y: 0 };

function update() {
  if (keys.ArrowRight) { cursor.x = Math.min(5, cursor.x + 1); keys.ArrowRight = false; }
  if (keys.ArrowLeft) { cursor.x = Math.max(0, cursor.x - 1); keys.ArrowLeft = false; }
  if (keys.ArrowDown) { cursor.y = Math.min(5, cursor.y + 1); keys.ArrowDown = false; }
  if (keys.ArrowUp) { cursor.y = Math.max(0, cursor.y - 1); keys.ArrowUp = false; }
}
` + renderLoop()

	case ArchetypeRunner:
		return common + `const player = { y: 300, vy: 0 };
const hazards = [];
let speed = 3;

function update() {
  if (keys[' '] && player.y >= 300) player.vy = -8;
  player.vy += 0.4;
  player.y = Math.min(300, player.y + player.vy);
  if (Math.random() < 0.015) hazards.push({ x: 648 });
  hazards.forEach(h => h.x -= speed);
  speed += 0.0005;
}
` + renderLoop()

	default: // arcade
		return common + `const player = { x: 320, y: 180 };
const pickups = [];
let score = 0;

function update() {
  player.x += (keys.ArrowRight ? 3 : 0) - (keys.ArrowLeft ? 3 : 0);
  player.y += (keys.ArrowDown ? 3 : 0) - (keys.ArrowUp ? 3 : 0);
  if (Math.random() < 0.02) pickups.push({ x: Math.random() * 640, y: Math.random() * 360 });
  pickups.forEach((p, i) => {
    if (Math.abs(p.x - player.x) < 10 && Math.abs(p.y - player.y) < 10) {
      pickups.splice(i, 1);
      score++;
    }
  });
}
` + renderLoop()
	}
}

func renderLoop() string {
	return `
function render() {
  ctx.fillStyle = palette[0];
  ctx.fillRect(0, 0, canvas.width, canvas.height);
  ctx.fillStyle = palette[palette.length - 1];
  ctx.font = '10px monospace';
  hud.forEach((h, i) => ctx.fillText(h, 8, 14 + i * 12));
}

function frame() {
  update();
  render();
  requestAnimationFrame(frame);
}
frame();
`
}

func renderDesign(gctx *wizard.GenContext, arch Archetype) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# %s\n\n", gameTitle(gctx, arch))
	fmt.Fprintf(&sb, "Archetype: %s\n\n", arch)

	for _, e := range gctx.Entries {
		fmt.Fprintf(&sb, "## %s\n\n", title(string(e.Type)))

		switch {
		case e.Content.Character != nil:
			c := e.Content.Character
			fmt.Fprintf(&sb, "**%s.** %s\n\n", c.Name, c.Description)
			fmt.Fprintf(&sb, "Appearance: %s\n\n", c.Appearance)
			for _, ab := range c.Abilities {
				fmt.Fprintf(&sb, "- %s\n", ab)
			}
		case e.Content.Mechanics != nil:
			m := e.Content.Mechanics
			fmt.Fprintf(&sb, "Core loop: %s\n\nControls: %s\n\n", m.CoreLoop, m.Controls)
			for _, o := range m.Objectives {
				fmt.Fprintf(&sb, "- %s\n", o)
			}
			if m.Progression != "" {
				fmt.Fprintf(&sb, "\nProgression: %s\n", m.Progression)
			}
		case e.Content.Level != nil:
			l := e.Content.Level
			fmt.Fprintf(&sb, "Theme: %s\n\nLayout: %s\n\nGoal: %s\n\n", l.Theme, l.Layout, l.Goal)
			for _, o := range l.Obstacles {
				fmt.Fprintf(&sb, "- %s\n", o)
			}
		default:
			fmt.Fprintf(&sb, "%s\n", e.Content.Summary())
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
