package bootstrap

import (
	"strings"
	"testing"
)

func TestResolveKnownModes(t *testing.T) {
	cases := []struct {
		mode   string
		model  string
		server string
	}{
		{"page_selection", "meta-llama/Llama-3.2-3B-Instruct", "llama_server.py"},
		{"extraction", "Qwen/Qwen2-VL-72B-Instruct", "extraction_server.py"},
		{"verification", "Qwen/Qwen2-VL-72B-Instruct", "verification_server.py"},
	}
	for _, c := range cases {
		m, err := Resolve(c.mode)
		if err != nil {
			t.Fatalf("Resolve(%q): %v", c.mode, err)
		}
		if m.ModelID != c.model {
			t.Errorf("Resolve(%q).ModelID = %q, want %q", c.mode, m.ModelID, c.model)
		}
		if m.Server != c.server {
			t.Errorf("Resolve(%q).Server = %q, want %q", c.mode, m.Server, c.server)
		}
	}
}

func TestResolveEmptyUsesDefault(t *testing.T) {
	m, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\"): %v", err)
	}
	if m.Name != DefaultMode {
		t.Errorf("default mode = %q, want %q", m.Name, DefaultMode)
	}
}

func TestResolveUnknownFails(t *testing.T) {
	_, err := Resolve("summarization")
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
	if !strings.Contains(err.Error(), "summarization") {
		t.Errorf("error %q should name the rejected mode", err)
	}
}

func TestCacheKey(t *testing.T) {
	cases := map[string]string{
		"Qwen/Qwen2-VL-72B-Instruct":       "Qwen_Qwen2-VL-72B-Instruct",
		"meta-llama/Llama-3.2-3B-Instruct": "meta-llama_Llama-3.2-3B-Instruct",
		"plain-name":                       "plain-name",
	}
	for in, want := range cases {
		if got := CacheKey(in); got != want {
			t.Errorf("CacheKey(%q) = %q, want %q", in, got, want)
		}
		if strings.Contains(CacheKey(in), "/") {
			t.Errorf("CacheKey(%q) contains a path separator", in)
		}
	}
	// stable across calls
	if CacheKey("a/b") != CacheKey("a/b") {
		t.Error("CacheKey is not deterministic")
	}
}
