// Package normalize canonicalizes path arguments before they are matched
// against path rules.
package normalize

import (
	"os"
	"path/filepath"
	"strings"
)

var homePrefixes = []string{"${HOME}", "$HOME"}

// Target returns the canonical form of a delete target: $HOME and ${HOME}
// become ~, the user's home directory written out becomes ~, and the path is
// cleaned lexically so "./", "a/.." and trailing slashes collapse. Relative
// targets stay relative; they are never joined with the working directory.
func Target(arg, homeDir string) string {
	if arg == "" {
		return ""
	}

	path := arg
	for _, p := range homePrefixes {
		if rest, ok := strings.CutPrefix(path, p); ok && (rest == "" || strings.HasPrefix(rest, "/")) {
			path = "~" + rest
			break
		}
	}

	cleaned := filepath.Clean(path)

	if homeDir != "" && homeDir != "/" {
		home := filepath.Clean(homeDir)
		if cleaned == home {
			return "~"
		}
		if rest, ok := strings.CutPrefix(cleaned, home+"/"); ok {
			return "~/" + rest
		}
	}
	return cleaned
}

// Forms returns the distinct spellings of arg that rules should see: the
// argument as written and its canonical form.
func Forms(arg, homeDir string) []string {
	canonical := Target(arg, homeDir)
	if canonical == arg || canonical == "" {
		return []string{arg}
	}
	return []string{arg, canonical}
}

// HomeDir returns the current user's home directory, or "" when unknown.
func HomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return homeDir
}
