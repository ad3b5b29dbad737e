package plugins

import (
	"encoding/json"
	"fmt"
)

// ErrorBadgeLabel marks a line in which a probe reports its own failure
const ErrorBadgeLabel = "Error"

// ProbeEnv is the read-only context passed to every probe
type ProbeEnv struct {
	AppDataDir string
	AppVersion string
}

// probeInput is written to the plugin's STDIN
type probeInput struct {
	PluginID string       `json:"pluginId"`
	NowISO   string       `json:"nowIso"`
	App      probeAppInfo `json:"app"`
}

type probeAppInfo struct {
	Version       string `json:"version"`
	AppDataDir    string `json:"appDataDir"`
	PluginDataDir string `json:"pluginDataDir"`
}

// MetricLine is one display line of probe output.
// Text holds the value of a text line or the text of a badge;
// Value, Max and Unit are only used by progress lines.
type MetricLine struct {
	Type  LineType
	Label string
	Text  string
	Value float64
	Max   float64
	Unit  string
	Color string
}

// TextLine builds a text line
func TextLine(label, value string) MetricLine {
	return MetricLine{Type: LineText, Label: label, Text: value}
}

// ProgressLine builds a progress line
func ProgressLine(label string, value, max float64, unit string) MetricLine {
	return MetricLine{Type: LineProgress, Label: label, Value: value, Max: max, Unit: unit}
}

// BadgeLine builds a badge line
func BadgeLine(label, text string) MetricLine {
	return MetricLine{Type: LineBadge, Label: label, Text: text}
}

// IsErrorBadge reports whether the line is the "Error" badge convention
func (l MetricLine) IsErrorBadge() bool {
	return l.Type == LineBadge && l.Label == ErrorBadgeLabel
}

type wireLine struct {
	Type  LineType        `json:"type"`
	Label string          `json:"label"`
	Value json.RawMessage `json:"value,omitempty"`
	Text  *string         `json:"text,omitempty"`
	Max   *float64        `json:"max,omitempty"`
	Unit  string          `json:"unit,omitempty"`
	Color string          `json:"color,omitempty"`
}

func (l MetricLine) MarshalJSON() ([]byte, error) {
	w := wireLine{Type: l.Type, Label: l.Label, Color: l.Color}
	switch l.Type {
	case LineText:
		raw, err := json.Marshal(l.Text)
		if err != nil {
			return nil, err
		}
		w.Value = raw
	case LineProgress:
		raw, err := json.Marshal(l.Value)
		if err != nil {
			return nil, err
		}
		w.Value = raw
		max := l.Max
		w.Max = &max
		w.Unit = l.Unit
	case LineBadge:
		text := l.Text
		w.Text = &text
	default:
		return nil, fmt.Errorf("cannot marshal line of type %s", l.Type)
	}
	return json.Marshal(w)
}

func (l *MetricLine) UnmarshalJSON(data []byte) error {
	var w wireLine
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	out := MetricLine{Type: w.Type, Label: w.Label, Color: w.Color}

	switch w.Type {
	case LineText:
		if err := json.Unmarshal(w.Value, &out.Text); err != nil {
			return fmt.Errorf("text line %q: value must be a string", w.Label)
		}
	case LineProgress:
		if err := json.Unmarshal(w.Value, &out.Value); err != nil {
			return fmt.Errorf("progress line %q: value must be a number", w.Label)
		}
		if w.Max == nil {
			return fmt.Errorf("progress line %q: max is required", w.Label)
		}
		out.Max = *w.Max
		out.Unit = w.Unit
	case LineBadge:
		if w.Text == nil {
			return fmt.Errorf("badge line %q: text is required", w.Label)
		}
		out.Text = *w.Text
	default:
		return fmt.Errorf("line %q: missing type", w.Label)
	}

	*l = out
	return nil
}

// ProbeOutput is produced per plugin per probe run
type ProbeOutput struct {
	ProviderID  string       `json:"providerId"`
	DisplayName string       `json:"displayName"`
	IconURL     string       `json:"iconUrl"`
	Lines       []MetricLine `json:"lines"`
}

// HasErrorBadge reports whether the probe flagged its own failure
func (o *ProbeOutput) HasErrorBadge() bool {
	for _, line := range o.Lines {
		if line.IsErrorBadge() {
			return true
		}
	}
	return false
}

// ErrorOutput builds the soft-failure output for a plugin
func ErrorOutput(plugin *LoadedPlugin, message string) ProbeOutput {
	out := newOutput(plugin)
	out.Lines = []MetricLine{BadgeLine(ErrorBadgeLabel, message)}
	return out
}

func newOutput(plugin *LoadedPlugin) ProbeOutput {
	return ProbeOutput{
		ProviderID:  plugin.Manifest.ID,
		DisplayName: plugin.Manifest.Name,
		IconURL:     plugin.IconDataURL,
	}
}
