package alias

import (
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MatchKind reports how a lookup was resolved.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchPrefix
	MatchAmbiguous
)

func (k MatchKind) String() string {
	switch k {
	case MatchExact:
		return "exact"
	case MatchPrefix:
		return "prefix"
	case MatchAmbiguous:
		return "ambiguous"
	default:
		return "none"
	}
}

// Match is the result of a group lookup.
type Match struct {
	Label      string
	Kind       MatchKind
	Candidates []string // set for MatchAmbiguous
}

// DefaultGroups is the built-in fleet table.
func DefaultGroups() map[string][]string {
	return map[string][]string{
		"Alexander":   {"a", "al", "ale", "alex", "alexan"},
		"Pandemonium": {"p", "pa", "pan", "pand", "pande", "pandemo"},
	}
}

// DefaultSlots is the built-in set of valid slot tokens.
func DefaultSlots() []string {
	return []string{"1", "2", "3", "4"}
}

type canonical struct {
	name string
	key  string
}

// Resolver maps free text to canonical group and slot labels.
// It is immutable after construction and safe for concurrent use.
type Resolver struct {
	canon   []canonical       // sorted by key
	aliases map[string]string // normalized alias or canonical -> canonical
	slots   map[string]struct{}
}

// New builds a resolver from a canonical -> aliases table and a slot set.
func New(groups map[string][]string, slots []string) *Resolver {
	r := &Resolver{
		aliases: make(map[string]string),
		slots:   make(map[string]struct{}, len(slots)),
	}
	for name, list := range groups {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := normalize(name)
		r.canon = append(r.canon, canonical{name: name, key: key})
		r.aliases[key] = name
		for _, a := range list {
			if k := normalize(a); k != "" {
				r.aliases[k] = name
			}
		}
	}
	sort.Slice(r.canon, func(i, j int) bool { return r.canon[i].key < r.canon[j].key })
	for _, s := range slots {
		if k := normalizeSlot(s); k != "" {
			r.slots[k] = struct{}{}
		}
	}
	return r
}

// NewDefault returns a resolver over DefaultGroups and DefaultSlots.
func NewDefault() *Resolver {
	return New(DefaultGroups(), DefaultSlots())
}

// Lookup resolves text by exact alias match, then by unique prefix of a canonical name.
// A prefix shared by several canonical names is left unresolved.
func (r *Resolver) Lookup(text string) Match {
	raw := strings.TrimSpace(text)
	key := normalize(text)
	if key == "" {
		return Match{Label: raw, Kind: MatchNone}
	}
	if name, ok := r.aliases[key]; ok {
		return Match{Label: name, Kind: MatchExact}
	}
	var hits []string
	for _, c := range r.canon {
		if strings.HasPrefix(c.key, key) {
			hits = append(hits, c.name)
		}
	}
	switch len(hits) {
	case 0:
		return Match{Label: raw, Kind: MatchNone}
	case 1:
		return Match{Label: hits[0], Kind: MatchPrefix}
	default:
		return Match{Label: raw, Kind: MatchAmbiguous, Candidates: hits}
	}
}

// ResolveGroup returns the canonical group label, or the trimmed input when nothing matches.
func (r *Resolver) ResolveGroup(text string) string {
	return r.Lookup(text).Label
}

// ResolveSlot normalizes a slot token. Tokens outside the known set pass through normalized.
func (r *Resolver) ResolveSlot(text string) string {
	return normalizeSlot(text)
}

// ValidSlot reports whether text names one of the configured slots.
func (r *Resolver) ValidSlot(text string) bool {
	_, ok := r.slots[normalizeSlot(text)]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

func normalizeSlot(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}
