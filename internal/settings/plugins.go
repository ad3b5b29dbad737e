package settings

// PluginSettingsKey is the settings key for plugin order and enablement
const PluginSettingsKey = "plugins"

// PluginSettings holds the user's plugin order and disabled list
type PluginSettings struct {
	Order    []string `json:"order"`
	Disabled []string `json:"disabled"`
}

// LoadPluginSettings reads plugin settings, defaulting to empty lists
func LoadPluginSettings(store *Store) PluginSettings {
	var ps PluginSettings
	if ok, err := store.Get(PluginSettingsKey, &ps); !ok || err != nil {
		return PluginSettings{Order: []string{}, Disabled: []string{}}
	}
	if ps.Order == nil {
		ps.Order = []string{}
	}
	if ps.Disabled == nil {
		ps.Disabled = []string{}
	}
	return ps
}

// Normalize drops unknown and repeated ids from the order, appends newly
// known plugins at the end (enabled by default), and prunes unknown disabled ids.
func (ps PluginSettings) Normalize(knownIDs []string) PluginSettings {
	known := make(map[string]struct{}, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = struct{}{}
	}

	order := make([]string, 0, len(knownIDs))
	seen := make(map[string]struct{}, len(knownIDs))
	for _, id := range ps.Order {
		if _, ok := known[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		order = append(order, id)
	}
	for _, id := range knownIDs {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			order = append(order, id)
		}
	}

	disabled := make([]string, 0, len(ps.Disabled))
	for _, id := range ps.Disabled {
		if _, ok := known[id]; ok {
			disabled = append(disabled, id)
		}
	}

	return PluginSettings{Order: order, Disabled: disabled}
}

// Enabled returns the ordered ids that are not disabled
func (ps PluginSettings) Enabled() []string {
	off := make(map[string]struct{}, len(ps.Disabled))
	for _, id := range ps.Disabled {
		off[id] = struct{}{}
	}
	enabled := make([]string, 0, len(ps.Order))
	for _, id := range ps.Order {
		if _, ok := off[id]; !ok {
			enabled = append(enabled, id)
		}
	}
	return enabled
}
