package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPacks_EmptyDir(t *testing.T) {
	dir := t.TempDir()

	rules, infos, err := LoadPacks(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 0 || len(rules) != 0 {
		t.Errorf("expected nothing from an empty dir, got %d infos, %d rules", len(infos), len(rules))
	}
}

func TestLoadPacks_NonExistentDir(t *testing.T) {
	rules, _, err := LoadPacks("/nonexistent/path/packs")
	if err != nil {
		t.Fatalf("unexpected error for non-existent dir: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("expected no rules, got %d", len(rules))
	}
}

func TestLoadPacks_ReadsRules(t *testing.T) {
	dir := t.TempDir()

	packYAML := `
name: "Test Pack"
description: "A test pack"
version: "1.0.0"
author: "Test"
rules:
  - id: "test-block-terraform-destroy"
    group: malicious
    category: CommandInjection
    pattern: 'terraform\s+destroy'
    reason: "Infrastructure teardown"
  - group: scope
    pattern: 'kubectl\s+delete'
`
	if err := os.WriteFile(filepath.Join(dir, "test-pack.yaml"), []byte(packYAML), 0644); err != nil {
		t.Fatal(err)
	}

	rules, infos, err := LoadPacks(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(infos) != 1 {
		t.Fatalf("expected 1 pack info, got %d", len(infos))
	}
	if infos[0].Name != "Test Pack" || infos[0].RuleCount != 2 || !infos[0].Enabled {
		t.Errorf("unexpected pack info: %+v", infos[0])
	}
	if len(rules) != 2 {
		t.Fatalf("expected 2 rules, got %d", len(rules))
	}
	if rules[0].Source != "Test Pack" {
		t.Errorf("expected rule source to be the pack name, got %q", rules[0].Source)
	}
	if rules[1].ID != "test-pack-2" {
		t.Errorf("expected generated id 'test-pack-2', got %q", rules[1].ID)
	}
}

func TestLoadPacks_DisabledPack(t *testing.T) {
	dir := t.TempDir()

	packYAML := `
name: "Disabled Pack"
rules:
  - id: "disabled-rule"
    group: malicious
    pattern: "should-not-apply"
`
	// Prefix with underscore to disable
	if err := os.WriteFile(filepath.Join(dir, "_disabled-pack.yaml"), []byte(packYAML), 0644); err != nil {
		t.Fatal(err)
	}

	rules, infos, err := LoadPacks(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(infos) != 1 {
		t.Fatalf("expected 1 pack info, got %d", len(infos))
	}
	if infos[0].Enabled {
		t.Error("expected pack to be disabled")
	}
	if len(rules) != 0 {
		t.Errorf("disabled pack rules should not load, got %d", len(rules))
	}
}

func TestLoadPacks_BrokenPack(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "a-good.yaml"), []byte("name: good\nrules:\n  - {id: g1, group: scope, pattern: x}\n"), 0644)
	os.WriteFile(filepath.Join(dir, "b-broken.yml"), []byte("rules: [unterminated"), 0644)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644)

	rules, infos, err := LoadPacks(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 pack infos, got %d", len(infos))
	}
	if infos[1].Err == nil {
		t.Error("expected parse error on the broken pack")
	}
	if len(rules) != 1 || rules[0].ID != "g1" {
		t.Errorf("expected only the good pack's rule, got %+v", rules)
	}
}

func TestLoadPacks_UnknownFieldRejected(t *testing.T) {
	dir := t.TempDir()
	packYAML := "name: typo\nrules:\n  - id: t1\n    group: scope\n    patern: 'deploy'\n"
	if err := os.WriteFile(filepath.Join(dir, "typo.yaml"), []byte(packYAML), 0644); err != nil {
		t.Fatal(err)
	}

	rules, infos, err := LoadPacks(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("a pack with unknown keys must not contribute rules, got %+v", rules)
	}
	if len(infos) != 1 || infos[0].Err == nil {
		t.Errorf("expected the typo to be reported, got %+v", infos)
	}
}
