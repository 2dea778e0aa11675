// Package bootstrap prepares and launches a model-serving process inside
// the GPU container: mode resolution, weight caching, and the final hand
// off to the server program.
package bootstrap

import (
	"fmt"
	"sort"
	"strings"
)

// EnvMode is the environment variable that selects the serving mode.
const EnvMode = "EXTRACTION_MODE"

// DefaultMode is used when EXTRACTION_MODE is unset.
const DefaultMode = "extraction"

// ServePort is the fixed port every server program listens on.
const ServePort = 8000

// Mode pairs a model with the server program that serves it.
type Mode struct {
	Name    string
	ModelID string
	Server  string
}

var modes = map[string]Mode{
	"page_selection": {
		Name:    "page_selection",
		ModelID: "meta-llama/Llama-3.2-3B-Instruct",
		Server:  "llama_server.py",
	},
	"extraction": {
		Name:    "extraction",
		ModelID: "Qwen/Qwen2-VL-72B-Instruct",
		Server:  "extraction_server.py",
	},
	"verification": {
		Name:    "verification",
		ModelID: "Qwen/Qwen2-VL-72B-Instruct",
		Server:  "verification_server.py",
	},
}

// Resolve maps a mode name to its (model, server) pair. Empty input
// resolves to DefaultMode; anything unrecognized is an error and the
// caller must not attempt a download.
func Resolve(name string) (Mode, error) {
	if name == "" {
		name = DefaultMode
	}
	m, ok := modes[name]
	if !ok {
		return Mode{}, fmt.Errorf("unknown %s %q: valid modes are %s", EnvMode, name, strings.Join(ModeNames(), ", "))
	}
	return m, nil
}

// ModeNames lists the recognized mode names, sorted.
func ModeNames() []string {
	out := make([]string, 0, len(modes))
	for k := range modes {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CacheKey sanitizes a model id into a filesystem-safe cache directory
// name. Pure function of the id: "Qwen/Qwen2-VL-72B-Instruct" ->
// "Qwen_Qwen2-VL-72B-Instruct".
func CacheKey(modelID string) string {
	return strings.ReplaceAll(modelID, "/", "_")
}
