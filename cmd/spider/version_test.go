package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		get  func() string
	}{
		{"version", getVersion},
		{"commit", getCommit},
		{"date", getDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if tt.get() == "" {
				t.Errorf("expected non-empty %s", tt.name)
			}
		})
	}
}

func TestVCSSettingMissingKey(t *testing.T) {
	t.Parallel()

	if got := vcsSetting("no.such.key"); got != "" {
		t.Errorf("expected empty value, got %q", got)
	}
}

func TestVersionCmdOutput(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	output := buf.String()
	if !strings.HasPrefix(output, "spider version ") {
		t.Errorf("expected version line first, got %q", output)
	}
	for _, want := range []string{"commit:", "built:", "go:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected output to contain %q, got %q", want, output)
		}
	}
}

func TestFirstNonEmpty(t *testing.T) {
	t.Parallel()

	if got := firstNonEmpty("", "b", "c"); got != "b" {
		t.Errorf("expected b, got %q", got)
	}
	if got := firstNonEmpty("", ""); got != "" {
		t.Errorf("expected empty, got %q", got)
	}
}
