package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`
	Count int    `yaml:"count"`
	fail  bool
}

func (s *sample) Validate() error {
	if s.fail || s.Count < 0 {
		return errors.New("bad sample")
	}
	return nil
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("SAMPLE_NAME", "agora")
	p := writeConfig(t, "name: ${SAMPLE_NAME}\npath: ${SAMPLE_MISSING:-/srv/garden}\n")

	var s sample
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Name != "agora" {
		t.Errorf("name = %q", s.Name)
	}
	if s.Path != "/srv/garden" {
		t.Errorf("path = %q, want default", s.Path)
	}
}

func TestLoad_KeepsDefaults(t *testing.T) {
	p := writeConfig(t, "name: x\n")
	s := sample{Count: 7}
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Count != 7 {
		t.Errorf("count = %d, want default 7", s.Count)
	}
}

func TestLoad_ValidationError(t *testing.T) {
	p := writeConfig(t, "count: -1\n")
	var s sample
	if err := Load(p, &s); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	var s sample
	if err := Load(filepath.Join(t.TempDir(), "nope.yaml"), &s); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadOptional_MissingFileValidatesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	s := sample{Name: "default"}
	if err := LoadOptional(missing, &s); err != nil {
		t.Fatalf("LoadOptional: %v", err)
	}
	if s.Name != "default" {
		t.Errorf("name = %q", s.Name)
	}
	bad := sample{fail: true}
	if err := LoadOptional(missing, &bad); err == nil {
		t.Error("defaults should still be validated")
	}
}

func TestExpand_EmptyVarUsesDefault(t *testing.T) {
	t.Setenv("SAMPLE_EMPTY", "")
	if got := Expand("${SAMPLE_EMPTY:-fallback}"); got != "fallback" {
		t.Errorf("got %q", got)
	}
	if got := Expand("${SAMPLE_EMPTY}"); got != "" {
		t.Errorf("got %q", got)
	}
}
