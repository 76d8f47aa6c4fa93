// Package cid implements the content identifier codec.
//
// A CID is a self-describing string over the base64url alphabet. The first
// LengthPrefixChars characters encode the content byte count as a fixed-width
// big-endian base64url integer. The remainder is either the content itself
// (base64url, padding stripped) when the content fits in DirectEmbedLimit
// bytes, or the base64url of the content's SHA-512 digest.
//
// Literal CIDs are therefore fully self-contained: the original bytes are
// recoverable from the identifier alone. Hashed CIDs reference content that
// must be retrieved from the store.
package cid

import (
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// LengthPrefixChars is the fixed width of the length prefix.
	LengthPrefixChars = 8

	// DirectEmbedLimit is the largest content size embedded directly in
	// the CID instead of being referenced by digest.
	DirectEmbedLimit = 64

	// digestChars is the unpadded base64url length of a SHA-512 digest.
	digestChars = 86

	// MinLen is the shortest valid CID (empty content: prefix only).
	MinLen = LengthPrefixChars

	// MaxLen is the longest valid CID (prefix + SHA-512 digest).
	MaxLen = LengthPrefixChars + digestChars
)

// alphabet is the base64url alphabet in digit order. Prefix digits use the
// same ordering as the payload encoding.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

var digitValue = func() [256]int8 {
	var m [256]int8
	for i := range m {
		m[i] = -1
	}
	for i := 0; i < len(alphabet); i++ {
		m[alphabet[i]] = int8(i)
	}
	return m
}()

// Validation errors. Each names the exact structural rule violated so
// diagnostics can quote it.
type ValidationError struct {
	Rule   string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid CID (%s): %s", e.Rule, e.Detail)
}

const (
	RuleLength        = "length"
	RuleAlphabet      = "alphabet"
	RulePrefix        = "length-prefix"
	RuleEmbeddedBody  = "embedded-content"
	RuleDigestLength  = "digest-length"
	RulePrefixPayload = "prefix/payload-mismatch"
)

// Generate computes the CID for the given content.
func Generate(content []byte) string {
	prefix := encodeLength(len(content))
	if len(content) <= DirectEmbedLimit {
		return prefix + base64.RawURLEncoding.EncodeToString(content)
	}
	sum := sha512.Sum512(content)
	return prefix + base64.RawURLEncoding.EncodeToString(sum[:])
}

// Parse splits a CID into its declared content length and payload bytes.
// For a literal CID the payload is the original content; for a hashed CID
// it is the 64-byte SHA-512 digest.
func Parse(s string) (length int, payload []byte, literal bool, err error) {
	if err := Validate(s); err != nil {
		return 0, nil, false, err
	}
	length, _ = decodeLength(s[:LengthPrefixChars])
	raw, err := base64.RawURLEncoding.DecodeString(s[LengthPrefixChars:])
	if err != nil {
		// Validate already decoded the payload; unreachable.
		return 0, nil, false, &ValidationError{Rule: RuleEmbeddedBody, Detail: err.Error()}
	}
	return length, raw, length <= DirectEmbedLimit, nil
}

// Decode recovers the original content from a literal CID. The second
// return is false for hashed CIDs, whose content lives in the store.
func Decode(s string) ([]byte, bool) {
	length, payload, literal, err := Parse(s)
	if err != nil || !literal {
		return nil, false
	}
	if len(payload) != length {
		return nil, false
	}
	return payload, true
}

// IsLiteral reports whether the CID embeds its content directly.
func IsLiteral(s string) bool {
	_, _, literal, err := Parse(s)
	return err == nil && literal
}

// Validate checks the structural rules for a CID string. The returned
// error identifies the first rule violated.
func Validate(s string) error {
	if len(s) < MinLen || len(s) > MaxLen {
		return &ValidationError{
			Rule:   RuleLength,
			Detail: fmt.Sprintf("length %d outside [%d, %d]", len(s), MinLen, MaxLen),
		}
	}
	for i := 0; i < len(s); i++ {
		if digitValue[s[i]] < 0 {
			return &ValidationError{
				Rule:   RuleAlphabet,
				Detail: fmt.Sprintf("character %q at offset %d is not base64url", s[i], i),
			}
		}
	}
	length, ok := decodeLength(s[:LengthPrefixChars])
	if !ok {
		return &ValidationError{
			Rule:   RulePrefix,
			Detail: "length prefix does not parse as a base64url integer",
		}
	}
	payload := s[LengthPrefixChars:]
	if length <= DirectEmbedLimit {
		want := base64.RawURLEncoding.EncodedLen(length)
		if len(payload) != want {
			return &ValidationError{
				Rule: RulePrefixPayload,
				Detail: fmt.Sprintf("declared %d content bytes but payload is %d chars (want %d)",
					length, len(payload), want),
			}
		}
		decoded, err := base64.RawURLEncoding.DecodeString(payload)
		if err != nil {
			return &ValidationError{Rule: RuleEmbeddedBody, Detail: err.Error()}
		}
		if len(decoded) != length {
			return &ValidationError{
				Rule:   RuleEmbeddedBody,
				Detail: fmt.Sprintf("embedded content decodes to %d bytes, declared %d", len(decoded), length),
			}
		}
		return nil
	}
	if len(payload) != digestChars {
		return &ValidationError{
			Rule:   RuleDigestLength,
			Detail: fmt.Sprintf("hashed CID payload is %d chars, want %d", len(payload), digestChars),
		}
	}
	return nil
}

// IsNormalized reports whether s is a structurally valid CID with no
// leading slash, extension, or other path decoration.
func IsNormalized(s string) bool {
	if strings.ContainsAny(s, "/.") {
		return false
	}
	return Validate(s) == nil
}

// encodeLength renders n as a fixed-width big-endian base64url integer.
func encodeLength(n int) string {
	var buf [LengthPrefixChars]byte
	v := uint64(n)
	for i := LengthPrefixChars - 1; i >= 0; i-- {
		buf[i] = alphabet[v&0x3f]
		v >>= 6
	}
	return string(buf[:])
}

// decodeLength parses a fixed-width base64url integer.
func decodeLength(s string) (int, bool) {
	var v uint64
	for i := 0; i < len(s); i++ {
		d := digitValue[s[i]]
		if d < 0 {
			return 0, false
		}
		v = v<<6 | uint64(d)
	}
	return int(v), true
}
