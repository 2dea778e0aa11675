package vast

import (
	"encoding/json"
	"fmt"
	"strings"

	"finpipe/internal/config"
)

// DefaultImage is a public base image cached on most hosts; pulling it is
// much faster than a custom image.
const DefaultImage = "pytorch/pytorch:2.1.2-cuda12.1-cudnn8-runtime"

// OnstartScript renders the boot script for a rented instance: clone the
// serving code, inject the settings store, install server deps, and start
// the bootstrapper in the requested mode.
func OnstartScript(s config.Settings, mode string) (string, error) {
	if s.GitRepoURL == "" || strings.Contains(s.GitRepoURL, "YOUR_USERNAME") {
		return "", fmt.Errorf("git_repo_url is not configured in the settings store")
	}
	cloneURL := s.GitRepoURL
	if s.GitToken != "" && strings.HasPrefix(cloneURL, "https://") {
		cloneURL = "https://" + s.GitToken + "@" + strings.TrimPrefix(cloneURL, "https://")
	}
	settingsJSON, err := json.Marshal(s)
	if err != nil {
		return "", err
	}
	quoted := strings.ReplaceAll(string(settingsJSON), "'", `'\''`)

	var b strings.Builder
	b.WriteString("#!/bin/bash\nset -e\n")
	b.WriteString("apt-get update -y\napt-get install -y git libgl1-mesa-glx libglib2.0-0\n")
	b.WriteString("rm -rf /workspace/app\n")
	fmt.Fprintf(&b, "git clone %s /workspace/app\n", cloneURL)
	b.WriteString("mkdir -p /workspace/app/config\n")
	fmt.Fprintf(&b, "echo '%s' > /workspace/app/config/settings.json\n", quoted)
	b.WriteString("cd /workspace/app\n")
	b.WriteString("if [ -f requirements-server.txt ]; then pip install --no-cache-dir -r requirements-server.txt; ")
	b.WriteString("elif [ -f requirements.txt ]; then pip install --no-cache-dir -r requirements.txt; fi\n")
	fmt.Fprintf(&b, "export %s=%s\n", "EXTRACTION_MODE", mode)
	b.WriteString("exec ./modelboot --server-dir /workspace/app/vast\n")
	return b.String(), nil
}
