package cid

import (
	"bytes"
	"crypto/sha512"
	"strings"
	"testing"
)

func TestGenerateLiteral(t *testing.T) {
	for n := 0; n <= DirectEmbedLimit; n++ {
		content := make([]byte, n)
		for i := range content {
			content[i] = byte(i * 7)
		}

		id := Generate(content)

		if len(id) < MinLen || len(id) > MaxLen {
			t.Fatalf("n=%d: CID length %d outside [%d, %d]", n, len(id), MinLen, MaxLen)
		}

		length, payload, literal, err := Parse(id)
		if err != nil {
			t.Fatalf("n=%d: Parse failed: %v", n, err)
		}
		if !literal {
			t.Fatalf("n=%d: expected literal CID", n)
		}
		if length != n {
			t.Errorf("n=%d: declared length %d", n, length)
		}
		if !bytes.Equal(payload, content) {
			t.Errorf("n=%d: payload does not round-trip", n)
		}

		decoded, ok := Decode(id)
		if !ok {
			t.Fatalf("n=%d: Decode refused a literal CID", n)
		}
		if !bytes.Equal(decoded, content) {
			t.Errorf("n=%d: Decode returned different bytes", n)
		}
	}
}

func TestGenerateHashed(t *testing.T) {
	for _, n := range []int{DirectEmbedLimit + 1, 100, 4096, 1 << 20} {
		content := bytes.Repeat([]byte{0xAB}, n)

		id := Generate(content)

		if len(id) != MaxLen {
			t.Fatalf("n=%d: hashed CID length %d, want %d", n, len(id), MaxLen)
		}

		length, payload, literal, err := Parse(id)
		if err != nil {
			t.Fatalf("n=%d: Parse failed: %v", n, err)
		}
		if literal {
			t.Fatalf("n=%d: expected hashed CID", n)
		}
		if length != n {
			t.Errorf("n=%d: declared length %d", n, length)
		}
		sum := sha512.Sum512(content)
		if !bytes.Equal(payload, sum[:]) {
			t.Errorf("n=%d: payload is not the SHA-512 digest", n)
		}

		if _, ok := Decode(id); ok {
			t.Errorf("n=%d: Decode must refuse hashed CIDs", n)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	content := []byte("the same bytes every time")
	if Generate(content) != Generate(content) {
		t.Fatal("Generate is not deterministic")
	}
}

func TestIsNormalized(t *testing.T) {
	for _, content := range [][]byte{nil, []byte("x"), bytes.Repeat([]byte("y"), 200)} {
		id := Generate(content)
		if !IsNormalized(id) {
			t.Errorf("IsNormalized(%q) = false", id)
		}
		if IsNormalized("/" + id) {
			t.Errorf("leading slash accepted: %q", "/"+id)
		}
		if IsNormalized(id + ".txt") {
			t.Errorf("extension accepted: %q", id+".txt")
		}
	}
}

func TestValidateRules(t *testing.T) {
	valid := Generate([]byte("hello"))
	hashed := Generate(bytes.Repeat([]byte("z"), 100))

	tests := []struct {
		name string
		in   string
		rule string
	}{
		{"too short", "AAAA", RuleLength},
		{"too long", strings.Repeat("A", MaxLen+1), RuleLength},
		{"bad character", strings.Repeat("A", MinLen-1) + "!", RuleAlphabet},
		{"payload length mismatch", valid + "A", RulePrefixPayload},
		{"truncated digest", hashed[:len(hashed)-1], RuleDigestLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if err == nil {
				t.Fatalf("Validate(%q) accepted invalid input", tt.in)
			}
			verr, ok := err.(*ValidationError)
			if !ok {
				t.Fatalf("error type %T, want *ValidationError", err)
			}
			if verr.Rule != tt.rule {
				t.Errorf("rule = %q, want %q", verr.Rule, tt.rule)
			}
		})
	}

	if err := Validate(valid); err != nil {
		t.Errorf("Validate rejected a generated CID: %v", err)
	}
	if err := Validate(hashed); err != nil {
		t.Errorf("Validate rejected a generated hashed CID: %v", err)
	}
}

func TestLengthPrefixRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 63, 64, 65, 1 << 20, 1 << 30} {
		got, ok := decodeLength(encodeLength(n))
		if !ok || got != n {
			t.Errorf("length prefix round-trip failed for %d: got %d ok=%v", n, got, ok)
		}
	}
}
