package bootstrap

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// GPU is one entry of the host's GPU inventory.
type GPU struct {
	Name     string
	MemoryMB int
}

// ProbeGPUs queries nvidia-smi for the GPU inventory. The result is
// informational only; callers log failures as warnings and continue.
func ProbeGPUs(ctx context.Context) ([]GPU, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx,
		"nvidia-smi", "--query-gpu=name,memory.total", "--format=csv,noheader,nounits",
	).Output()
	if err != nil {
		return nil, fmt.Errorf("nvidia-smi: %w", err)
	}
	return parseGPUList(string(out))
}

func parseGPUList(out string) ([]GPU, error) {
	var gpus []GPU
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("unexpected nvidia-smi line %q", line)
		}
		mem, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("unexpected memory value in %q", line)
		}
		gpus = append(gpus, GPU{Name: strings.TrimSpace(parts[0]), MemoryMB: mem})
	}
	return gpus, nil
}
