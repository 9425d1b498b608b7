package app

import (
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/finwise/dataguard/internal/common"
	"github.com/finwise/dataguard/internal/config"
	"github.com/finwise/dataguard/internal/cryptox"
)

// devKeySalt feeds passphrase-based key derivation. The passphrase path is
// a development convenience only; production supplies the raw hex key via
// the environment, where the salt plays no part.
var devKeySalt = []byte("dataguard.dev.v1")

// ResolveKey obtains the encryption key: the environment-configured hex key
// when present, otherwise an interactively prompted passphrase run through
// argon2id. Callers should wipe the returned slice when done.
func ResolveKey() ([]byte, error) {
	if hexKey := config.EncKeyHex(); hexKey != "" {
		return cryptox.ParseKey(hexKey)
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, fmt.Errorf("%s is not set and stdin is not a terminal: %w",
			config.EncKeyEnvVar, cryptox.ErrKeyFormat)
	}

	fmt.Fprint(os.Stderr, "Encryption passphrase: ")
	passphrase, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, err
	}
	if len(passphrase) == 0 {
		return nil, cryptox.ErrKeyFormat
	}
	defer common.WipeByteArray(passphrase)

	return cryptox.DeriveKey(passphrase, devKeySalt), nil
}
