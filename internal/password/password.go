// Package password implements salted PBKDF2-HMAC-SHA256 password hashing.
//
// Hashes are rendered in the same "pbkdf2:sha256:<iterations>$<salt>$<hex>"
// shape werkzeug produces, so records written by the previous backend keep
// verifying.
package password

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	method        = "pbkdf2:sha256"
	defaultRounds = 600000
	saltLength    = 16
	keyLength     = sha256.Size
	saltAlphabet  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	maxVerifyCost = 10_000_000
)

// ErrMalformedHash is returned when a stored hash does not parse.
var ErrMalformedHash = errors.New("malformed password hash")

// Hash derives a one-way hash of the password with a fresh random salt.
func Hash(password string) (string, error) {
	salt, err := newSalt()
	if err != nil {
		return "", err
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), defaultRounds, keyLength, sha256.New)
	return fmt.Sprintf("%s:%d$%s$%s", method, defaultRounds, salt, hex.EncodeToString(key)), nil
}

// Verify reports whether the password matches the stored hash. The digest
// comparison is constant time.
func Verify(stored, password string) (bool, error) {
	rounds, salt, digest, err := parse(stored)
	if err != nil {
		return false, err
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), rounds, len(digest), sha256.New)
	return subtle.ConstantTimeCompare(key, digest) == 1, nil
}

func parse(stored string) (rounds int, salt string, digest []byte, err error) {
	rest, ok := strings.CutPrefix(stored, method+":")
	if !ok {
		return 0, "", nil, ErrMalformedHash
	}
	parts := strings.SplitN(rest, "$", 3)
	if len(parts) != 3 || parts[1] == "" {
		return 0, "", nil, ErrMalformedHash
	}
	rounds, err = strconv.Atoi(parts[0])
	if err != nil || rounds < 1 || rounds > maxVerifyCost {
		return 0, "", nil, ErrMalformedHash
	}
	digest, err = hex.DecodeString(parts[2])
	if err != nil || len(digest) == 0 {
		return 0, "", nil, ErrMalformedHash
	}
	return rounds, parts[1], digest, nil
}

func newSalt() (string, error) {
	buf := make([]byte, saltLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	salt := make([]byte, saltLength)
	for i, b := range buf {
		salt[i] = saltAlphabet[int(b)%len(saltAlphabet)]
	}
	return string(salt), nil
}
