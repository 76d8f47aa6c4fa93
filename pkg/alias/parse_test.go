package alias

import (
	"errors"
	"testing"
)

func TestParseDefinition(t *testing.T) {
	tests := []struct {
		name       string
		definition string
		wantType   string
		wantCase   bool
		wantRoutes int
		wantErr    bool
	}{
		{
			name:       "literal default",
			definition: "/docs -> /readme",
			wantType:   MatchLiteral,
			wantRoutes: 1,
		},
		{
			name:       "explicit glob",
			definition: "/img/* -> /gallery [glob]",
			wantType:   MatchGlob,
			wantRoutes: 1,
		},
		{
			name:       "regex with ignore-case",
			definition: `^/api/(.*)$ -> /v2 [regex] [ignore-case]`,
			wantType:   MatchRegex,
			wantCase:   true,
			wantRoutes: 1,
		},
		{
			name:       "comments and secondary routes",
			definition: "# docs redirect\n/docs -> /readme\n/doc -> /readme",
			wantType:   MatchLiteral,
			wantRoutes: 2,
		},
		{
			name:       "missing arrow",
			definition: "/docs /readme",
			wantErr:    true,
		},
		{
			name:       "empty target",
			definition: "/docs -> ",
			wantErr:    true,
		},
		{
			name:       "unknown option",
			definition: "/docs -> /readme [fuzzy]",
			wantErr:    true,
		},
		{
			name:       "no routes",
			definition: "# just a comment",
			wantErr:    true,
		},
		{
			name:       "bad regex",
			definition: `([ -> /x [regex]`,
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes, err := ParseDefinition("test", tt.definition)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				var perr *ParseError
				if !errors.As(err, &perr) {
					t.Fatalf("error type %T, want *ParseError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDefinition: %v", err)
			}
			if len(routes) != tt.wantRoutes {
				t.Fatalf("got %d routes, want %d", len(routes), tt.wantRoutes)
			}
			if routes[0].MatchType != tt.wantType {
				t.Errorf("match type = %q, want %q", routes[0].MatchType, tt.wantType)
			}
			if routes[0].IgnoreCase != tt.wantCase {
				t.Errorf("ignore case = %v, want %v", routes[0].IgnoreCase, tt.wantCase)
			}
			if !routes[0].Primary {
				t.Error("first route must be primary")
			}
		})
	}
}

func TestRouteMatch(t *testing.T) {
	tests := []struct {
		name       string
		definition string
		path       string
		want       bool
	}{
		{"literal exact", "/foo -> /X", "/foo", true},
		{"literal other", "/foo -> /X", "/foobar", false},
		{"literal case sensitive", "/foo -> /X", "/FOO", false},
		{"literal ignore case", "/foo -> /X [ignore-case]", "/FOO", true},
		{"glob star in segment", "/f* -> /Y [glob]", "/foo", true},
		{"glob star stops at slash", "/f* -> /Y [glob]", "/f/x", false},
		{"glob doublestar crosses", "/f/** -> /Y [glob]", "/f/a/b", true},
		{"glob question mark", "/ab? -> /Y [glob]", "/abc", true},
		{"regex full match", `^/api/(.*)$ -> /Z [regex]`, "/api/things", true},
		{"regex implicit anchors", `/api/\d+ -> /Z [regex]`, "/api/123x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			routes, err := ParseDefinition("a", tt.definition)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if got := routes[0].Match(tt.path); got != tt.want {
				t.Errorf("Match(%q) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}
}

func TestLiteralPrefixLen(t *testing.T) {
	tests := []struct {
		definition string
		want       int
	}{
		{"/foo -> /X", 4},
		{"/f* -> /X [glob]", 2},
		{`^/api/(.*)$ -> /X [regex]`, 5},
	}
	for _, tt := range tests {
		routes, err := ParseDefinition("a", tt.definition)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.definition, err)
		}
		if got := routes[0].literalPrefixLen(); got != tt.want {
			t.Errorf("literalPrefixLen(%q) = %d, want %d", routes[0].Pattern, got, tt.want)
		}
	}
}
