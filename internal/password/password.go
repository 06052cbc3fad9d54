// Package password hashes user passwords and account PINs.
//
// Hashes are one-way. Bcrypt is the default. Whichever hasher is picked,
// both bcrypt hashes and SHA-1 hex digests verify, so data files survive a
// change of PASSWORD_HASHER.
package password

import (
	"crypto/sha1"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrMismatch = errors.New("hash does not match")

type Hasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) error
}

// New returns the hasher registered under name, wrapped so hashes in either
// format still verify.
func New(name string, bcryptCost int) (Hasher, error) {
	switch strings.ToLower(name) {
	case "", "bcrypt":
		return AnyFormat(Bcrypt{Cost: bcryptCost}), nil
	case "sha1":
		return AnyFormat(SHA1{}), nil
	default:
		return nil, fmt.Errorf("password.New: unknown hasher %q", name)
	}
}

type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(plain string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("Bcrypt.Hash: %w", err)
	}
	return string(h), nil
}

func (Bcrypt) Verify(hash, plain string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)); err != nil {
		return ErrMismatch
	}
	return nil
}

// SHA1 produces unsalted lowercase hex digests.
type SHA1 struct{}

func (SHA1) Hash(plain string) (string, error) {
	sum := sha1.Sum([]byte(plain))
	return hex.EncodeToString(sum[:]), nil
}

func (s SHA1) Verify(hash, plain string) error {
	want, _ := s.Hash(plain)
	if subtle.ConstantTimeCompare([]byte(strings.ToLower(hash)), []byte(want)) != 1 {
		return ErrMismatch
	}
	return nil
}

type anyFormat struct {
	primary Hasher
}

// AnyFormat hashes with primary and verifies by the stored format:
// 40-character hex digests as SHA-1, everything else as bcrypt.
func AnyFormat(primary Hasher) Hasher {
	return anyFormat{primary: primary}
}

func (a anyFormat) Hash(plain string) (string, error) {
	return a.primary.Hash(plain)
}

func (anyFormat) Verify(hash, plain string) error {
	if isSHA1Hex(hash) {
		return SHA1{}.Verify(hash, plain)
	}
	return Bcrypt{}.Verify(hash, plain)
}

func isSHA1Hex(s string) bool {
	if len(s) != sha1.Size*2 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
