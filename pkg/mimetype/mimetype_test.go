package mimetype

import "testing"

func TestByExtension(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{"txt", "text/plain; charset=utf-8"},
		{"MD", "text/markdown"},
		{"json", "application/json"},
		{"bin", DefaultType},
		{"", DefaultType},
	}
	for _, tt := range tests {
		if got := ByExtension(tt.ext); got != tt.want {
			t.Errorf("ByExtension(%q) = %q, want %q", tt.ext, got, tt.want)
		}
	}
}

func TestExtensionForStripsParameters(t *testing.T) {
	if got := ExtensionFor("text/plain; charset=utf-8"); got != "txt" {
		t.Errorf("ExtensionFor = %q, want txt", got)
	}
	if got := ExtensionFor("application/x-unknown"); got != "" {
		t.Errorf("ExtensionFor unknown = %q, want empty", got)
	}
}
