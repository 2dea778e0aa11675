package bootstrap

import "testing"

func TestParseGPUList(t *testing.T) {
	out := "NVIDIA GeForce RTX 3090, 24576\nNVIDIA A100-SXM4-80GB, 81920\n"
	gpus, err := parseGPUList(out)
	if err != nil {
		t.Fatalf("parseGPUList: %v", err)
	}
	if len(gpus) != 2 {
		t.Fatalf("len = %d, want 2", len(gpus))
	}
	if gpus[0].Name != "NVIDIA GeForce RTX 3090" || gpus[0].MemoryMB != 24576 {
		t.Errorf("gpu[0] = %+v", gpus[0])
	}
	if gpus[1].MemoryMB != 81920 {
		t.Errorf("gpu[1] = %+v", gpus[1])
	}
}

func TestParseGPUListEmpty(t *testing.T) {
	gpus, err := parseGPUList("\n")
	if err != nil {
		t.Fatal(err)
	}
	if len(gpus) != 0 {
		t.Errorf("len = %d, want 0", len(gpus))
	}
}

func TestParseGPUListMalformed(t *testing.T) {
	if _, err := parseGPUList("garbage-without-comma\n"); err == nil {
		t.Error("expected error for malformed line")
	}
	if _, err := parseGPUList("RTX 3090, not-a-number\n"); err == nil {
		t.Error("expected error for non-numeric memory")
	}
}
