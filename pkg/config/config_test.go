package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `ProjectStorePath: C:\Projects
MasterPrgName: Master
TestPrgName: Test
toImportXMLPath: C:\Import
AmiHostPath: C:\Ami
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ProjectStorePath != `C:\Projects` || cfg.MasterPrgName != "Master" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.ImportXMLPath != `C:\Import` || cfg.AmiHostPath != `C:\Ami` {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "AmiHostPath: from-file\n")
	t.Setenv("TIA_AMI_HOST_PATH", "from-env")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.AmiHostPath != "from-env" {
		t.Errorf("AmiHostPath = %q, want env override", cfg.AmiHostPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}
