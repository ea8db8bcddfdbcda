package car

import "github.com/enginecrane/enginecrane/internal/inifile"

// sectionWriter accumulates typed writes against one section and replays
// them in a stable order, so views mutate their documents without touching
// unrelated lines.
type sectionWriter struct {
	section string
	changed map[string]inifile.Value
	order   []string
}

func newSectionWriter(section string) sectionWriter {
	return sectionWriter{section: section, changed: map[string]inifile.Value{}}
}

func (w *sectionWriter) set(key string, v inifile.Value) {
	if _, ok := w.changed[key]; !ok {
		w.order = append(w.order, key)
	}
	w.changed[key] = v
}

func (w *sectionWriter) applyTo(doc *inifile.Doc) {
	for _, key := range w.order {
		doc.Set(w.section, key, w.changed[key])
	}
}
