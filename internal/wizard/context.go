package wizard

// ContextEntry pairs a step type with the content the user selected for it.
type ContextEntry struct {
	Type    StepType `json:"type"`
	Content Content  `json:"content"`
}

// GenContext is the aggregated selected content from completed steps, in step
// order. It seeds later-step generation and, at completion, the assembler.
type GenContext struct {
	Entries []ContextEntry `json:"entries"`
}

// Lookup returns the selected content for a step type. When a session somehow
// holds several completed steps of the same type, the earliest wins.
func (g *GenContext) Lookup(t StepType) (Content, bool) {
	for _, e := range g.Entries {
		if e.Type == t {
			return e.Content, true
		}
	}
	return Content{}, false
}

// BuildContext is a pure function from session state to generation context:
// it walks the step list in order and collects the selected variant content
// of every completed step. Steps without a selection (never the case after a
// normal completion) and incomplete steps are ignored.
func BuildContext(s *Session) *GenContext {
	gctx := &GenContext{}
	for _, st := range s.Steps {
		if !st.Completed || st.SelectedID == "" {
			continue
		}
		v := st.variantByID(st.SelectedID)
		if v == nil {
			continue
		}
		gctx.Entries = append(gctx.Entries, ContextEntry{
			Type:    st.Type,
			Content: v.Content,
		})
	}
	return gctx
}
