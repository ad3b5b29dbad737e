package plugins

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidManifest is returned when plugin.json fails validation
var ErrInvalidManifest = errors.New("invalid plugin manifest")

// LineType is the closed set of display line kinds a manifest may declare
type LineType int

const (
	LineText LineType = iota + 1
	LineProgress
	LineBadge
)

var lineTypeNames = map[LineType]string{
	LineText:     "text",
	LineProgress: "progress",
	LineBadge:    "badge",
}

// ParseLineType maps a wire tag to its LineType
func ParseLineType(s string) (LineType, error) {
	for t, name := range lineTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown line type %q", s)
}

func (t LineType) String() string {
	if name, ok := lineTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("LineType(%d)", int(t))
}

// MarshalJSON encodes the type as its wire tag
func (t LineType) MarshalJSON() ([]byte, error) {
	name, ok := lineTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("cannot marshal %s", t)
	}
	return json.Marshal(name)
}

// UnmarshalJSON rejects tags outside the known set
func (t *LineType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLineType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ManifestLine describes one metric line a plugin can report
type ManifestLine struct {
	Type         LineType `json:"type" validate:"required"`
	Label        string   `json:"label" validate:"required"`
	Scope        string   `json:"scope"`
	PrimaryOrder *int     `json:"primaryOrder,omitempty"`
}

// Manifest represents plugin.json structure
type Manifest struct {
	SchemaVersion int            `json:"schemaVersion"`
	ID            string         `json:"id" validate:"required,max=64"`
	Name          string         `json:"name" validate:"required"`
	Version       string         `json:"version"`
	Entry         string         `json:"entry" validate:"required"`
	Icon          string         `json:"icon"`
	BrandColor    *string        `json:"brandColor,omitempty" validate:"omitempty,hexcolor"`
	Lines         []ManifestLine `json:"lines" validate:"dive"`
}

var validate = validator.New()

// Validate checks required fields and line definitions
func (m *Manifest) Validate() error {
	if err := validate.Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, e := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", e.Namespace(), e.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidManifest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if strings.ContainsAny(m.ID, `/\`) || strings.Contains(m.ID, "..") {
		return fmt.Errorf("%w: id %q is not a valid directory name", ErrInvalidManifest, m.ID)
	}
	return nil
}

// PrimaryCandidates returns labels of progress lines with a primaryOrder,
// ascending by that order. Ties keep manifest order.
func (m *Manifest) PrimaryCandidates() []string {
	var ranked []ManifestLine
	for _, line := range m.Lines {
		if line.Type == LineProgress && line.PrimaryOrder != nil {
			ranked = append(ranked, line)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].PrimaryOrder < *ranked[j].PrimaryOrder
	})

	labels := make([]string, len(ranked))
	for i, line := range ranked {
		labels[i] = line.Label
	}
	return labels
}

// LoadedPlugin combines manifest with resolved assets
type LoadedPlugin struct {
	Manifest    Manifest
	IconDataURL string
	Dir         string
}

// EntryPath is the probe executable for the plugin
func (p *LoadedPlugin) EntryPath() string {
	return joinEntry(p.Dir, p.Manifest.Entry)
}

// Clone returns a deep copy so callers cannot mutate registry state
func (p LoadedPlugin) Clone() LoadedPlugin {
	out := p
	if p.Manifest.BrandColor != nil {
		c := *p.Manifest.BrandColor
		out.Manifest.BrandColor = &c
	}
	if p.Manifest.Lines != nil {
		out.Manifest.Lines = make([]ManifestLine, len(p.Manifest.Lines))
		for i, line := range p.Manifest.Lines {
			if line.PrimaryOrder != nil {
				order := *line.PrimaryOrder
				line.PrimaryOrder = &order
			}
			out.Manifest.Lines[i] = line
		}
	}
	return out
}
