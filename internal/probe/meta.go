package probe

import "github.com/openusage/openusage/internal/plugins"

// PluginMeta is the listPlugins projection of a loaded plugin
type PluginMeta struct {
	ID                string     `json:"id"`
	Name              string     `json:"name"`
	IconURL           string     `json:"iconUrl"`
	BrandColor        *string    `json:"brandColor"`
	Lines             []LineMeta `json:"lines"`
	PrimaryCandidates []string   `json:"primaryCandidates"`
}

// LineMeta is a manifest line without its ranking field
type LineMeta struct {
	Type  plugins.LineType `json:"type"`
	Label string           `json:"label"`
	Scope string           `json:"scope"`
}

// NewPluginMeta projects a loaded plugin for display
func NewPluginMeta(p *plugins.LoadedPlugin) PluginMeta {
	lines := make([]LineMeta, len(p.Manifest.Lines))
	for i, line := range p.Manifest.Lines {
		lines[i] = LineMeta{Type: line.Type, Label: line.Label, Scope: line.Scope}
	}

	candidates := p.Manifest.PrimaryCandidates()
	if candidates == nil {
		candidates = []string{}
	}

	return PluginMeta{
		ID:                p.Manifest.ID,
		Name:              p.Manifest.Name,
		IconURL:           p.IconDataURL,
		BrandColor:        p.Manifest.BrandColor,
		Lines:             lines,
		PrimaryCandidates: candidates,
	}
}
