package transform

import (
	"reflect"
	"testing"
)

func TestParseDefinition(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantKind string
		wantType string
		wantErr  bool
	}{
		{
			name:     "static",
			text:     "kind: static\noutput: hello\n",
			wantKind: KindStatic,
			wantType: DefaultContentType,
		},
		{
			name:     "template with content type",
			text:     "kind: template\ncontent_type: text/plain\ntemplate: \"{{ .Request.Path }}\"\n",
			wantKind: KindTemplate,
			wantType: "text/plain",
		},
		{
			name:     "pipeline",
			text:     "kind: pipeline\nsteps:\n  - op: grep\n    pattern: \"{arg0}\"\n",
			wantKind: KindPipeline,
			wantType: DefaultContentType,
		},
		{
			name:     "forward",
			text:     "kind: forward\nforward:\n  url: https://example.com\n",
			wantKind: KindForward,
			wantType: DefaultContentType,
		},
		{name: "missing kind", text: "output: x\n", wantErr: true},
		{name: "unknown kind", text: "kind: shell\n", wantErr: true},
		{name: "template without template", text: "kind: template\n", wantErr: true},
		{name: "pipeline without steps", text: "kind: pipeline\n", wantErr: true},
		{name: "pipeline bad op", text: "kind: pipeline\nsteps:\n  - op: awk\n", wantErr: true},
		{name: "forward without url", text: "kind: forward\n", wantErr: true},
		{name: "not yaml", text: "kind: [unclosed\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseDefinition(tt.text)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDefinition: %v", err)
			}
			if def.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", def.Kind, tt.wantKind)
			}
			if def.ContentType != tt.wantType {
				t.Errorf("content type = %q, want %q", def.ContentType, tt.wantType)
			}
		})
	}
}

func TestSubstituteArgs(t *testing.T) {
	args := []string{"zero", "one"}
	tests := []struct {
		in, want string
	}{
		{"{arg0}", "zero"},
		{"{arg0}-{arg1}", "zero-one"},
		{"{arg9}", ""},
		{"no placeholders", "no placeholders"},
	}
	for _, tt := range tests {
		if got := substituteArgs(tt.in, args); got != tt.want {
			t.Errorf("substituteArgs(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScanReferences(t *testing.T) {
	text := `kind: template
template: |
  {{ .Context.Variables.greeting }} {{ .Context.Secrets.api_key }}
  {{ index .Context.Variables "with-dash" }}
  {{ .Context.Servers.helper }}
  {{ .Context.Variables.greeting }}
`
	refs := ScanReferences(text)
	if !reflect.DeepEqual(refs.Variables, []string{"greeting", "with-dash"}) {
		t.Errorf("variables = %v", refs.Variables)
	}
	if !reflect.DeepEqual(refs.Secrets, []string{"api_key"}) {
		t.Errorf("secrets = %v", refs.Secrets)
	}
	if !reflect.DeepEqual(refs.Servers, []string{"helper"}) {
		t.Errorf("servers = %v", refs.Servers)
	}
}
