package common

import (
	"bytes"
	"testing"
)

func TestGenerateRandByteArray(t *testing.T) {
	t.Parallel()

	a := GenerateRandByteArray(12)
	b := GenerateRandByteArray(12)

	if len(a) != 12 || len(b) != 12 {
		t.Fatalf("lengths: %d %d", len(a), len(b))
	}
	if bytes.Equal(a, b) {
		t.Fatalf("two random arrays were identical")
	}
}

func TestWipeByteArray(t *testing.T) {
	t.Parallel()

	secret := []byte("passphrase")
	WipeByteArray(secret)
	for i, c := range secret {
		if c != 0 {
			t.Fatalf("byte %d not wiped: %v", i, secret)
		}
	}
}
