package alias

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveGroupDefaults(t *testing.T) {
	t.Parallel()
	r := NewDefault()
	tests := []struct {
		in   string
		want string
		kind MatchKind
	}{
		{in: "a", want: "Alexander", kind: MatchExact},
		{in: "al", want: "Alexander", kind: MatchExact},
		{in: "alexa", want: "Alexander", kind: MatchPrefix},
		{in: "ALEXANDER", want: "Alexander", kind: MatchExact},
		{in: " p ", want: "Pandemonium", kind: MatchExact},
		{in: "pandemon", want: "Pandemonium", kind: MatchPrefix},
		{in: "Ｐａｎ", want: "Pandemonium", kind: MatchExact},
		{in: "x", want: "x", kind: MatchNone},
		{in: "Alexanderx", want: "Alexanderx", kind: MatchNone},
		{in: "", want: "", kind: MatchNone},
	}
	for _, tt := range tests {
		m := r.Lookup(tt.in)
		require.Equal(t, tt.want, m.Label, tt.in)
		require.Equal(t, tt.kind, m.Kind, tt.in)
		require.Equal(t, tt.want, r.ResolveGroup(tt.in), tt.in)
	}
}

func TestResolveGroupPrefixWithoutAliases(t *testing.T) {
	t.Parallel()
	r := New(map[string][]string{"Alexander": nil, "Pandemonium": nil}, nil)
	require.Equal(t, "Alexander", r.ResolveGroup("a"))
	require.Equal(t, "Alexander", r.ResolveGroup("al"))
	require.Equal(t, "x", r.ResolveGroup("x"))
}

func TestResolveGroupAmbiguousPrefixPassesThrough(t *testing.T) {
	t.Parallel()
	r := New(map[string][]string{
		"Alexander": {"a"},
		"Alpha":     nil,
		"Ultima":    nil,
	}, nil)

	m := r.Lookup("al")
	require.Equal(t, MatchAmbiguous, m.Kind)
	require.Equal(t, "al", m.Label)
	require.Equal(t, []string{"Alexander", "Alpha"}, m.Candidates)

	// an explicit alias wins over prefix ambiguity
	require.Equal(t, "Alexander", r.ResolveGroup("a"))
	require.Equal(t, "Alpha", r.ResolveGroup("alp"))
	require.Equal(t, "Ultima", r.ResolveGroup("u"))
}

func TestResolveSlot(t *testing.T) {
	t.Parallel()
	r := NewDefault()
	require.Equal(t, "1", r.ResolveSlot(" 1 "))
	require.Equal(t, "3", r.ResolveSlot("３"))
	require.True(t, r.ValidSlot("４"))
	require.Equal(t, "7", r.ResolveSlot("7"))
	require.False(t, r.ValidSlot("7"))
	require.Equal(t, "", r.ResolveSlot(""))
}
