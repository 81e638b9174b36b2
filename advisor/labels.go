package advisor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultIcon is shown for crops without an entry in the icon table.
const DefaultIcon = "🌱"

var cropIcons = map[string]string{
	"mango":       "🥭",
	"papaya":      "🍈",
	"banana":      "🍌",
	"apple":       "🍎",
	"orange":      "🍊",
	"grapes":      "🍇",
	"watermelon":  "🍉",
	"muskmelon":   "🍈",
	"pomegranate": "🍎",
	"coconut":     "🥥",
	"maize":       "🌽",
	"rice":        "🌾",
	"pigeonpeas":  "🫘",
	"lentil":      "🫘",
	"mungbean":    "🫘",
	"blackgram":   "🫘",
	"chickpea":    "🧆",
	"mothbeans":   "🫘",
	"kidneybeans": "🫘",
	"jute":        "🧵",
	"cotton":      "🧶",
	"coffee":      "☕",
}

// NormalizeLabel returns the canonical form of a crop label used for lookups:
// NFKC, trimmed, inner whitespace collapsed, lower case.
func NormalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	s = norm.NFKC.String(s)
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Icon returns the display glyph for a crop.
func Icon(label string) string {
	if icon, ok := cropIcons[NormalizeLabel(label)]; ok {
		return icon
	}
	return DefaultIcon
}

// Title renders the card heading of a ranked crop, e.g. "1. 🌽 MAIZE".
func Title(r RankedCrop) string {
	return fmt.Sprintf("%d. %s %s", r.Rank, Icon(r.Label), strings.ToUpper(r.Label))
}

// ImagePath returns <dir>/<label>.jpg when that file exists.
func ImagePath(dir, label string) (string, bool) {
	key := NormalizeLabel(label)
	if dir == "" || key == "" {
		return "", false
	}
	path := filepath.Join(dir, key+".jpg")
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", false
	}
	return path, true
}

// ParseLabelFile reads class labels in model order. Labels may be separated by
// newlines, commas, semicolons or tabs.
func ParseLabelFile(path string) ([]string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	labels := ParseLabels(string(data))
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels found in %s", filepath.Clean(path))
	}
	return labels, nil
}

// ParseLabels splits a label list and drops blanks. Order is preserved because
// it has to match the classifier's probability columns.
func ParseLabels(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '\n', '\r', ',', ';', '\t':
			return true
		default:
			return false
		}
	})
	res := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(strings.TrimPrefix(f, "\ufeff"))
		if f != "" {
			res = append(res, f)
		}
	}
	return res
}

// checkDistinct fails when two labels share a canonical key.
func checkDistinct(labels []string) error {
	seen := make(map[string]int, len(labels))
	for i, lab := range labels {
		key := NormalizeLabel(lab)
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("label %q at %d duplicates label at %d", lab, i, prev)
		}
		seen[key] = i
	}
	return nil
}

var errNoLabels = errors.New("classifier has no labels")
