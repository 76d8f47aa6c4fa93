package secrets

import "testing"

func TestRoundTrip(t *testing.T) {
	token, err := Encrypt("s3cret value", "passphrase")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	got, err := Decrypt(token, "passphrase")
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if got != "s3cret value" {
		t.Errorf("Decrypt = %q", got)
	}
}

func TestDeterministic(t *testing.T) {
	a, err := Encrypt("same plaintext", "key")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Encrypt("same plaintext", "key")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("ciphertext must be deterministic for a fixed key and plaintext")
	}

	c, err := Encrypt("other plaintext", "key")
	if err != nil {
		t.Fatal(err)
	}
	if a == c {
		t.Error("distinct plaintexts must not collide")
	}
}

func TestWrongKey(t *testing.T) {
	token, err := Encrypt("value", "right")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decrypt(token, "wrong"); err != ErrDecrypt {
		t.Errorf("Decrypt with wrong key = %v, want ErrDecrypt", err)
	}
}

func TestGarbageToken(t *testing.T) {
	for _, token := range []string{"", "!!!", "AAAA"} {
		if _, err := Decrypt(token, "key"); err != ErrDecrypt {
			t.Errorf("Decrypt(%q) = %v, want ErrDecrypt", token, err)
		}
	}
}
