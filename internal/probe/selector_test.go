package probe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/openusage/openusage/internal/plugins"
)

func registryOf(ids ...string) []plugins.LoadedPlugin {
	out := make([]plugins.LoadedPlugin, len(ids))
	for i, id := range ids {
		out[i] = plugins.LoadedPlugin{Manifest: plugins.Manifest{ID: id, Name: id}}
	}
	return out
}

func TestNormalizeBatchID(t *testing.T) {
	assert.Equal(t, "abc", NormalizeBatchID("  abc\t"))

	generated := NormalizeBatchID("   ")
	assert.NotEmpty(t, generated)
	assert.NotEqual(t, generated, NormalizeBatchID(""), "generated ids should be unique")
}

func TestSelectTargets(t *testing.T) {
	registry := registryOf("a", "b", "c")

	tests := []struct {
		name string
		ids  []string
		want []string
	}{
		{"nil selects all", nil, []string{"a", "b", "c"}},
		{"empty selects none", []string{}, []string{}},
		{"caller order with dedup", []string{"c", "a", "c", "z"}, []string{"c", "a"}},
		{"all unknown", []string{"x", "y"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pluginIDs(SelectTargets(registry, tt.ids))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSelectTargetsProperties(t *testing.T) {
	universe := []string{"a", "b", "c", "d", "e", "f"}

	rapid.Check(t, func(t *rapid.T) {
		registryIDs := rapid.SliceOfNDistinct(rapid.SampledFrom(universe), 0, len(universe), rapid.ID[string]).Draw(t, "registry")
		requested := rapid.SliceOf(rapid.SampledFrom(append(universe, "zz"))).Draw(t, "requested")

		inRegistry := make(map[string]bool)
		for _, id := range registryIDs {
			inRegistry[id] = true
		}

		got := pluginIDs(SelectTargets(registryOf(registryIDs...), requested))

		// Expected: first occurrence of each known id, in request order
		var want []string
		seen := make(map[string]bool)
		for _, id := range requested {
			if seen[id] || !inRegistry[id] {
				continue
			}
			seen[id] = true
			want = append(want, id)
		}

		require.Len(t, got, len(want))
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("position %d: want %s, got %s", i, want[i], got[i])
			}
		}
	})
}
