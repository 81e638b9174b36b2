package advisor

import "sync"

// ColumnCandidates defines possible header names for auto-detecting CSV/TSV
// columns. Keys of Fields are Field.Key values.
type ColumnCandidates struct {
	ID     []string            `json:"id"`
	Fields map[string][]string `json:"fields"`
}

var (
	columnCandidatesMu  sync.RWMutex
	activeColumnOptions = defaultColumnCandidates()
)

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		ID: []string{"id", "index", "no", "field", "plot", "sample"},
		Fields: map[string][]string{
			"nitrogen":    {"n", "nitrogen", "nitrogen (n)"},
			"phosphorus":  {"p", "phosphorus", "phosphorus (p)"},
			"potassium":   {"k", "potassium", "potassium (k)"},
			"temperature": {"temperature", "temp", "temperature (°c)", "temperature_c"},
			"humidity":    {"humidity", "humidity (%)", "rh"},
			"ph":          {"ph", "ph level", "ph_level"},
			"rainfall":    {"rainfall", "rain", "rainfall (mm)", "rainfall_mm"},
		},
	}
}

// DefaultColumnCandidates returns the built-in column detection candidates.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// SetColumnCandidates updates the candidates used during auto-detection.
// Nil entries fall back to the built-in defaults.
func SetColumnCandidates(candidates ColumnCandidates) {
	columnCandidatesMu.Lock()
	defer columnCandidatesMu.Unlock()
	activeColumnOptions = candidates.withDefaults()
}

func getColumnCandidates() ColumnCandidates {
	columnCandidatesMu.RLock()
	defer columnCandidatesMu.RUnlock()
	return activeColumnOptions.clone()
}

func (c ColumnCandidates) withDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	out := ColumnCandidates{
		ID:     pickStrings(c.ID, defaults.ID),
		Fields: make(map[string][]string, len(Fields)),
	}
	for _, f := range Fields {
		out.Fields[f.Key] = pickStrings(c.Fields[f.Key], defaults.Fields[f.Key])
	}
	return out
}

func (c ColumnCandidates) clone() ColumnCandidates {
	out := ColumnCandidates{ID: cloneStrings(c.ID)}
	if c.Fields != nil {
		out.Fields = make(map[string][]string, len(c.Fields))
		for k, v := range c.Fields {
			out.Fields[k] = cloneStrings(v)
		}
	}
	return out
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
