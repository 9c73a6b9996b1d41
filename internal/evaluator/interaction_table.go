package evaluator

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/leplonghi/Horamed-AG-sub003/internal/models"
)

//go:embed interactions.json
var defaultInteractions []byte

// Interaction a known drug pair
type Interaction struct {
	A        string                     `json:"a"`
	B        string                     `json:"b"`
	Severity models.InteractionSeverity `json:"severity"`
	Message  string                     `json:"message"`
}

type interactionFile struct {
	Drugs map[string][]string `json:"drugs"`
	Pairs []Interaction       `json:"pairs"`
}

// InteractionTable static reference table; drug names match on normalised
// substrings of the medication display name
type InteractionTable struct {
	aliases map[string][]string // drug key -> normalised aliases
	pairs   map[[2]string]Interaction
}

// LoadInteractionTable reads path, or the built-in table when path is empty
func LoadInteractionTable(path string) (*InteractionTable, error) {
	raw := defaultInteractions
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read interactions file: %w", err)
		}
		raw = b
	}
	return ParseInteractionTable(raw)
}

// ParseInteractionTable parses the JSON table format
func ParseInteractionTable(raw []byte) (*InteractionTable, error) {
	var f interactionFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse interactions: %w", err)
	}

	t := &InteractionTable{aliases: map[string][]string{}, pairs: map[[2]string]Interaction{}}
	for key, names := range f.Drugs {
		for _, n := range names {
			if n = normalizeName(n); n != "" {
				t.aliases[key] = append(t.aliases[key], n)
			}
		}
	}
	for _, p := range f.Pairs {
		if _, ok := t.aliases[p.A]; !ok {
			return nil, fmt.Errorf("interaction references unknown drug %q", p.A)
		}
		if _, ok := t.aliases[p.B]; !ok {
			return nil, fmt.Errorf("interaction references unknown drug %q", p.B)
		}
		switch p.Severity {
		case models.InteractionLow, models.InteractionModerate, models.InteractionHigh, models.InteractionContraindicated:
		default:
			return nil, fmt.Errorf("interaction %s/%s has invalid severity %q", p.A, p.B, p.Severity)
		}
		t.pairs[pairKey(p.A, p.B)] = p
	}
	return t, nil
}

// Drugs keys whose aliases appear in name
func (t *InteractionTable) Drugs(name string) []string {
	n := normalizeName(name)
	var out []string
	for key, aliases := range t.aliases {
		for _, a := range aliases {
			if containsWord(n, a) {
				out = append(out, key)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Lookup the most severe interaction between two medication names
func (t *InteractionTable) Lookup(nameA, nameB string) (Interaction, bool) {
	var (
		best  Interaction
		found bool
	)
	for _, a := range t.Drugs(nameA) {
		for _, b := range t.Drugs(nameB) {
			if a == b {
				continue
			}
			in, ok := t.pairs[pairKey(a, b)]
			if !ok {
				continue
			}
			if !found || severityRank(in.Severity) > severityRank(best.Severity) {
				best, found = in, true
			}
		}
	}
	return best, found
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func severityRank(s models.InteractionSeverity) int {
	switch s {
	case models.InteractionContraindicated:
		return 3
	case models.InteractionHigh:
		return 2
	case models.InteractionModerate:
		return 1
	default:
		return 0
	}
}

var accentFolder = strings.NewReplacer(
	"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
	"é", "e", "ê", "e", "è", "e", "ë", "e",
	"í", "i", "î", "i", "ì", "i", "ï", "i",
	"ó", "o", "ô", "o", "õ", "o", "ò", "o", "ö", "o",
	"ú", "u", "û", "u", "ù", "u", "ü", "u",
	"ç", "c", "ñ", "n",
)

func normalizeName(s string) string {
	s = accentFolder.Replace(strings.ToLower(strings.TrimSpace(s)))
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, " ")
}

func containsWord(haystack, needle string) bool {
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
