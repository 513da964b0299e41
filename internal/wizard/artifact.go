package wizard

import (
	"fmt"
	"time"
)

// ArtifactFile is one file of an assembled deliverable. Inline content is
// kept for placeholder artifacts so they need no storage to exist.
type ArtifactFile struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Inline  string `json:"inline,omitempty"`
	Written bool   `json:"written"` // true when the file exists on disk
}

// Artifact is the final assembled deliverable of a completed session.
type Artifact struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"sessionId"`
	Archetype   string         `json:"archetype"`
	Files       []ArtifactFile `json:"files"`
	Placeholder bool           `json:"placeholder"`
	FailureNote string         `json:"failureNote,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Assembler produces the final deliverable from a completed session's
// context. Implementations may fail; the controller absorbs any failure by
// substituting placeholderArtifact.
type Assembler interface {
	Assemble(gctx *GenContext, sessionID string) (*Artifact, error)
}

// placeholderArtifact builds a minimal, structurally valid deliverable from
// whatever context is available. It performs no I/O and cannot fail, which is
// what lets Complete guarantee an artifact to its caller.
func placeholderArtifact(gctx *GenContext, sessionID string, cause error) *Artifact {
	body := "# Assembly placeholder\n\nThe full deliverable could not be assembled.\n\n## Selected content\n\n"
	for _, e := range gctx.Entries {
		body += fmt.Sprintf("- **%s**: %s\n", e.Type, e.Content.Summary())
	}

	a := &Artifact{
		ID:          NewID(),
		SessionID:   sessionID,
		Archetype:   "placeholder",
		Placeholder: true,
		CreatedAt:   time.Now(),
		Files: []ArtifactFile{
			{Path: "README.md", Size: int64(len(body)), Inline: body},
		},
	}
	if cause != nil {
		a.FailureNote = cause.Error()
	}
	return a
}
