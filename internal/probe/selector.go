package probe

import (
	"strings"

	"github.com/google/uuid"
	"github.com/openusage/openusage/internal/plugins"
)

// NormalizeBatchID trims the caller's id and generates a fresh one when blank
func NormalizeBatchID(id string) string {
	if trimmed := strings.TrimSpace(id); trimmed != "" {
		return trimmed
	}
	return uuid.NewString()
}

// SelectTargets resolves a request against a registry snapshot.
// A nil ids slice selects every plugin in registry order. Otherwise ids are
// taken in caller order; unknown ids and repeats after the first are dropped.
func SelectTargets(registry []plugins.LoadedPlugin, ids []string) []plugins.LoadedPlugin {
	if ids == nil {
		return registry
	}

	byID := make(map[string]int, len(registry))
	for i, p := range registry {
		if _, ok := byID[p.Manifest.ID]; !ok {
			byID[p.Manifest.ID] = i
		}
	}

	seen := make(map[string]struct{}, len(ids))
	selected := make([]plugins.LoadedPlugin, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if idx, ok := byID[id]; ok {
			selected = append(selected, registry[idx])
		}
	}
	return selected
}

func pluginIDs(targets []plugins.LoadedPlugin) []string {
	ids := make([]string, len(targets))
	for i, p := range targets {
		ids[i] = p.Manifest.ID
	}
	return ids
}
