package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Pack is a YAML file of extra rules dropped into the packs directory.
type Pack struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
	Author      string `yaml:"author"`
	Rules       []Rule `yaml:"rules"`
}

// PackInfo describes one pack file for listings. Err is set when the file
// could not be used; such a pack contributes no rules.
type PackInfo struct {
	Name        string
	Description string
	Version     string
	Author      string
	Enabled     bool
	Path        string
	RuleCount   int
	Err         error
}

const disabledPackPrefix = "_"

// LoadPacks returns the rules of every enabled pack in packsDir, in file
// name order, each tagged with its pack name. Renaming a pack file with a
// leading underscore disables it. A missing directory yields nothing.
func LoadPacks(packsDir string) ([]Rule, []PackInfo, error) {
	if packsDir == "" {
		return nil, nil, nil
	}
	entries, err := os.ReadDir(packsDir)
	if os.IsNotExist(err) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	var rules []Rule
	var infos []PackInfo
	for _, entry := range entries {
		if entry.IsDir() || !isYAMLFile(entry.Name()) {
			continue
		}
		info, packRules := readPack(filepath.Join(packsDir, entry.Name()))
		infos = append(infos, info)
		if info.Enabled {
			rules = append(rules, packRules...)
		}
	}
	return rules, infos, nil
}

func readPack(path string) (PackInfo, []Rule) {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	info := PackInfo{
		Name:    stem,
		Path:    path,
		Enabled: !strings.HasPrefix(stem, disabledPackPrefix),
	}

	pack, err := decodePack(path)
	if err != nil {
		info.Err = fmt.Errorf("pack %s: %w", filepath.Base(path), err)
		return info, nil
	}
	if pack.Name != "" {
		info.Name = pack.Name
	}
	info.Description = pack.Description
	info.Version = pack.Version
	info.Author = pack.Author
	info.RuleCount = len(pack.Rules)

	rules := make([]Rule, 0, len(pack.Rules))
	for i, r := range pack.Rules {
		if r.ID == "" {
			r.ID = fmt.Sprintf("%s-%d", stem, i+1)
		}
		r.Source = info.Name
		rules = append(rules, r)
	}
	return info, rules
}

// decodePack rejects unknown keys so a misspelled field does not silently
// drop part of a rule.
func decodePack(path string) (*Pack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pack Pack
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&pack); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &pack, nil
}

func isYAMLFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
