package profile

import (
	"os"
	"path/filepath"
	"testing"
)

func setupTestConfig(t *testing.T) func() {
	t.Helper()
	tmpDir := t.TempDir()
	origFunc := configDirFunc
	configDirFunc = func() (string, error) {
		return tmpDir, nil
	}
	return func() {
		configDirFunc = origFunc
	}
}

func TestAdd_NewProfile(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	err := Add(Profile{Name: "prod", Engine: "postgres", ConnStr: "postgres://localhost/prod"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile, got %d", len(profiles))
	}
	if profiles[0].Name != "prod" {
		t.Errorf("Name = %q, want prod", profiles[0].Name)
	}
	if profiles[0].Engine != "postgres" {
		t.Errorf("Engine = %q, want postgres", profiles[0].Engine)
	}
	if profiles[0].ConnStr != "postgres://localhost/prod" {
		t.Errorf("ConnStr = %q", profiles[0].ConnStr)
	}
}

func TestAdd_UpdateExisting(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://localhost/prod_v1"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add(Profile{Name: "prod", ConnStr: "postgres://localhost/prod_v2"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile after update, got %d", len(profiles))
	}
	if profiles[0].ConnStr != "postgres://localhost/prod_v2" {
		t.Errorf("ConnStr not updated: %q", profiles[0].ConnStr)
	}
}

func TestAdd_MultipleProfiles(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://prod-host/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add(Profile{Name: "dev", ConnStr: "postgres://localhost/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add(Profile{Name: "reports", Engine: "sqlite"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 3 {
		t.Errorf("expected 3 profiles, got %d", len(profiles))
	}
}

func TestRemove_Existing(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://localhost/prod"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add(Profile{Name: "dev", ConnStr: "postgres://localhost/dev"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	err := Remove("prod")
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 1 {
		t.Fatalf("expected 1 profile after remove, got %d", len(profiles))
	}
	if profiles[0].Name != "dev" {
		t.Errorf("remaining profile = %q, want dev", profiles[0].Name)
	}
}

func TestRemove_NonExistent(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://localhost/prod"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	err := Remove("staging")
	if err == nil {
		t.Fatal("expected error when removing non-existent profile")
	}
}

func TestResolve_ExistingProfile(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", Engine: "mysql", ConnStr: "mysql://prod-host/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	p, err := Resolve("prod")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if p.ConnStr != "mysql://prod-host/db" {
		t.Errorf("ConnStr = %q", p.ConnStr)
	}
	if p.Engine != "mysql" {
		t.Errorf("Engine = %q, want mysql", p.Engine)
	}
}

func TestResolve_NonExistent(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	_, err := Resolve("nonexistent")
	if err == nil {
		t.Fatal("expected error for non-existent profile")
	}
}

func TestResolve_NoConfigFile(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	_, err := Resolve("anything")
	if err == nil {
		t.Fatal("expected error when no config file exists")
	}
}

func TestSetDefault(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://prod-host/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := Add(Profile{Name: "dev", ConnStr: "postgres://localhost/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	err := SetDefault("prod")
	if err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	defaultName, err := GetDefault()
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if defaultName != "prod" {
		t.Errorf("default = %q, want prod", defaultName)
	}
}

func TestSetDefault_NonExistent(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	err := SetDefault("nonexistent")
	if err == nil {
		t.Fatal("expected error when setting non-existent profile as default")
	}
}

func TestClearDefault(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://prod-host/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := SetDefault("prod"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	err := ClearDefault()
	if err != nil {
		t.Fatalf("ClearDefault failed: %v", err)
	}

	defaultName, err := GetDefault()
	if err != nil {
		t.Fatalf("GetDefault failed: %v", err)
	}
	if defaultName != "" {
		t.Errorf("default = %q, want empty", defaultName)
	}
}

func TestResolveConnStr_DbFlag(t *testing.T) {
	connStr, err := ResolveConnStr("postgres://direct/db", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connStr != "postgres://direct/db" {
		t.Errorf("ConnStr = %q", connStr)
	}
}

func TestResolveConnStr_ProfileFlag(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://prod-host/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	connStr, err := ResolveConnStr("", "prod")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connStr != "postgres://prod-host/db" {
		t.Errorf("ConnStr = %q", connStr)
	}
}

func TestResolveConnStr_DefaultFallback(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if err := Add(Profile{Name: "prod", ConnStr: "postgres://prod-host/db"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := SetDefault("prod"); err != nil {
		t.Fatalf("SetDefault failed: %v", err)
	}

	connStr, err := ResolveConnStr("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connStr != "postgres://prod-host/db" {
		t.Errorf("ConnStr = %q, want prod connection", connStr)
	}
}

func TestResolveConnStr_NoFlags_NoDefault(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	connStr, err := ResolveConnStr("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if connStr != "" {
		t.Errorf("ConnStr = %q, want empty", connStr)
	}
}

func TestList_EmptyConfig(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	profiles, err := List()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profiles != nil {
		t.Errorf("expected nil profiles, got %v", profiles)
	}
}

func TestInit_CreatesTemplate(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	path, err := Init(false)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading template: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("template is empty")
	}

	profiles, err := List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(profiles) != 0 {
		t.Errorf("template should define no profiles, got %d", len(profiles))
	}
}

func TestInit_RefusesOverwrite(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	if _, err := Init(false); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if _, err := Init(false); err == nil {
		t.Fatal("expected error on existing config without force")
	}
	if _, err := Init(true); err != nil {
		t.Errorf("Init with force failed: %v", err)
	}
}

func TestAnalyzerConfig_Defaults(t *testing.T) {
	p := Profile{Name: "bare"}
	cfg := p.AnalyzerConfig()
	if cfg.HighRowThreshold != 10_000 {
		t.Errorf("HighRowThreshold = %d, want 10000", cfg.HighRowThreshold)
	}
	if !cfg.SuggestIndexes {
		t.Error("SuggestIndexes = false, want true")
	}
}

func TestAnalyzerConfig_Overrides(t *testing.T) {
	highRow := int64(500)
	suggest := false
	p := Profile{
		Name: "tuned",
		Analyzer: &Thresholds{
			HighRowThreshold: &highRow,
			SuggestIndexes:   &suggest,
		},
	}

	cfg := p.AnalyzerConfig()
	if cfg.HighRowThreshold != 500 {
		t.Errorf("HighRowThreshold = %d, want 500", cfg.HighRowThreshold)
	}
	if cfg.SuggestIndexes {
		t.Error("SuggestIndexes = true, want false")
	}
	if cfg.LargeTableThreshold != 1_000 {
		t.Errorf("LargeTableThreshold = %d, want default 1000", cfg.LargeTableThreshold)
	}
}

func TestAnalyzerConfig_RoundTripsThroughYaml(t *testing.T) {
	cleanup := setupTestConfig(t)
	defer cleanup()

	filterEff := 0.8
	if err := Add(Profile{
		Name:     "tuned",
		Engine:   "postgres",
		Analyzer: &Thresholds{FilterEfficiencyThreshold: &filterEff},
	}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	p, err := Resolve("tuned")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := p.AnalyzerConfig().FilterEfficiencyThreshold; got != 0.8 {
		t.Errorf("FilterEfficiencyThreshold = %v, want 0.8", got)
	}

	dir, _ := configDirFunc()
	data, err := os.ReadFile(filepath.Join(dir, configFileName))
	if err != nil {
		t.Fatalf("reading config file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("config file is empty")
	}
}
