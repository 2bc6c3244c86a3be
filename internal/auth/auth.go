// Package auth provides the robot challenge-response arithmetic.
//
// It intentionally avoids transport concerns; see robot.Authenticate for the exchange.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
)

const (
	Modulus          = 65536
	DefaultServerKey = 54621
	DefaultClientKey = 45328
)

var (
	ErrUnauthorized      = errors.New("auth: unauthorized")
	ErrMalformedResponse = errors.New("auth: malformed confirmation")
	ErrKeyOutOfRange     = errors.New("auth: key out of range")
)

// KeyPair holds the shared server and client keys.
type KeyPair struct {
	Server int
	Client int
}

func DefaultKeyPair() KeyPair {
	return KeyPair{Server: DefaultServerKey, Client: DefaultClientKey}
}

func (k KeyPair) Validate() error {
	if k.Server < 0 || k.Server >= Modulus {
		return fmt.Errorf("%w: server key %d", ErrKeyOutOfRange, k.Server)
	}
	if k.Client < 0 || k.Client >= Modulus {
		return fmt.Errorf("%w: client key %d", ErrKeyOutOfRange, k.Client)
	}
	return nil
}

// UsernameHash is (sum of name bytes * 1000) mod 65536.
func UsernameHash(name []byte) int {
	sum := 0
	for _, b := range name {
		sum += int(b)
	}
	return (sum * 1000) % Modulus
}

// Challenge is the code the server sends for hash.
func (k KeyPair) Challenge(hash int) int {
	return (hash + k.Server) % Modulus
}

// Expected is the code a genuine client answers for hash.
func (k KeyPair) Expected(hash int) int {
	return (hash + k.Client) % Modulus
}

// Verify compares an all-digit confirmation numerically against Expected(hash).
func (k KeyPair) Verify(hash int, confirmation []byte) error {
	if len(confirmation) == 0 {
		return ErrMalformedResponse
	}
	for _, b := range confirmation {
		if b < '0' || b > '9' {
			return fmt.Errorf("%w: %q", ErrMalformedResponse, confirmation)
		}
	}
	got, err := strconv.Atoi(string(confirmation))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	want := strconv.Itoa(k.Expected(hash))
	if subtle.ConstantTimeCompare([]byte(strconv.Itoa(got)), []byte(want)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
