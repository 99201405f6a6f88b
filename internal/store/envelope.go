// File: internal/store/envelope.go

package store

import (
	"crypto/rand"
	"errors"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// blob is the on-disk envelope for a sealed secret. The scrypt
// parameters travel with the ciphertext so old secrets stay readable
// after a cost bump.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

const blobVersion = 1

type scryptParams struct {
	N, R, P int
}

var scryptParamsDefault = scryptParams{N: 1 << 15, R: 8, P: 1}

func deriveKey(passphrase string, salt []byte, p scryptParams) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
}

// encrypt seals plaintext under a key derived from passphrase. Each
// call draws a fresh salt, so the all-zero nonce is safe: the derived
// key is never reused.
func encrypt(passphrase string, plaintext []byte) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key, err := deriveKey(passphrase, salt, scryptParamsDefault)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	sealed := aead.Seal(nil, nonce, plaintext, salt)

	return jsoniter.Marshal(blob{
		V:      blobVersion,
		Salt:   salt,
		N:      scryptParamsDefault.N,
		R:      scryptParamsDefault.R,
		P:      scryptParamsDefault.P,
		Cipher: sealed,
	})
}

func decrypt(passphrase string, raw []byte) ([]byte, error) {
	var b blob
	if err := jsoniter.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}
	if b.V != blobVersion {
		return nil, fmt.Errorf("unsupported envelope version %d", b.V)
	}
	if len(b.Salt) == 0 || len(b.Cipher) == 0 {
		return nil, errors.New("truncated envelope")
	}

	key, err := deriveKey(passphrase, b.Salt, scryptParams{N: b.N, R: b.R, P: b.P})
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	return aead.Open(nil, nonce, b.Cipher, b.Salt)
}
