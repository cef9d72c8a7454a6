package normalize

import (
	"reflect"
	"testing"
)

func TestTarget(t *testing.T) {
	home := "/home/alice"

	tests := []struct {
		arg      string
		expected string
	}{
		{"/", "/"},
		{"//", "/"},
		{"/usr/../", "/"},
		{"/etc/", "/etc"},
		{"./node_modules/", "node_modules"},
		{"./", "."},
		{"a/../..", ".."},
		{"$HOME", "~"},
		{"${HOME}/", "~"},
		{"$HOME/projects", "~/projects"},
		{"$HOMEWORK", "$HOMEWORK"},
		{"/home/alice", "~"},
		{"/home/alice/.ssh", "~/.ssh"},
		{"/home/alicex", "/home/alicex"},
		{"~/", "~"},
		{"*", "*"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Target(tt.arg, home); got != tt.expected {
			t.Errorf("Target(%q): expected %q, got %q", tt.arg, tt.expected, got)
		}
	}
}

func TestTarget_NoHome(t *testing.T) {
	if got := Target("/home/alice", ""); got != "/home/alice" {
		t.Errorf("expected path unchanged without a home dir, got %q", got)
	}
	if got := Target("/etc", "/"); got != "/etc" {
		t.Errorf("root as home must not rewrite paths, got %q", got)
	}
}

func TestForms(t *testing.T) {
	home := "/home/alice"

	if got := Forms("dist", home); !reflect.DeepEqual(got, []string{"dist"}) {
		t.Errorf("canonical input should yield one form, got %v", got)
	}
	if got := Forms("/usr/../", home); !reflect.DeepEqual(got, []string{"/usr/../", "/"}) {
		t.Errorf("expected raw and canonical forms, got %v", got)
	}
}
