// Command mock is a probe plugin for exercising the host's failure handling.
// Build it next to plugin.json with: go build -o mock .
//
// The mode is read from <pluginDataDir>/config.json and defaults to "ok".
package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
)

type appInfo struct {
	Version       string `json:"version"`
	AppDataDir    string `json:"appDataDir"`
	PluginDataDir string `json:"pluginDataDir"`
}

type probeInput struct {
	PluginID string  `json:"pluginId"`
	NowISO   string  `json:"nowIso"`
	App      appInfo `json:"app"`
}

type config struct {
	Mode string `json:"mode"`
}

type line map[string]any

func main() {
	// stdout carries the result; logs go to stderr
	log.SetOutput(os.Stderr)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("Failed to read STDIN: %v", err)
	}

	var input probeInput
	if err := json.Unmarshal(data, &input); err != nil {
		log.Fatalf("Failed to parse input JSON: %v", err)
	}

	configPath := filepath.Join(input.App.PluginDataDir, "config.json")
	mode := readConfig(configPath).Mode

	hint := []line{
		{"type": "badge", "label": "Mode", "text": mode, "color": "#000000"},
		{"type": "text", "label": "Config", "value": configPath},
	}

	var out any
	switch mode {
	case "ok":
		out = map[string]any{"lines": append(hint,
			line{"type": "progress", "label": "Percent", "value": 42, "max": 100, "unit": "percent", "color": "#22c55e"},
			line{"type": "progress", "label": "Dollars", "value": 12.34, "max": 100, "unit": "dollars", "color": "#3b82f6"},
			line{"type": "text", "label": "Now", "value": input.NowISO},
		)}
	case "error_badge":
		out = map[string]any{"lines": []line{{"type": "badge", "label": "Error", "text": "Not logged in", "color": "#ef4444"}}}
	case "exit":
		log.Fatal("mock plugin: exiting with failure")
	case "hang":
		select {}
	case "non_object":
		out = "not an object"
	case "missing_lines":
		out = map[string]any{}
	case "unknown_line_type":
		out = map[string]any{"lines": append(hint, line{"type": "nope", "label": "Bad", "value": "data"})}
	default:
		out = map[string]any{"lines": append(hint,
			line{"type": "badge", "label": "Warning", "text": "unknown mode: " + mode, "color": "#f59e0b"},
		)}
	}

	if err := json.NewEncoder(os.Stdout).Encode(out); err != nil {
		log.Fatalf("Failed to write output JSON: %v", err)
	}
}

// readConfig loads the mode file, writing the default on first run
func readConfig(path string) config {
	def := config{Mode: "ok"}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if b, err := json.MarshalIndent(def, "", "  "); err == nil {
			_ = os.WriteFile(path, b, 0o644)
		}
		return def
	}
	if err != nil {
		return def
	}

	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Mode == "" {
		return def
	}
	return cfg
}
