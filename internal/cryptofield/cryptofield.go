package cryptofield

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bankguard/bankguard/internal/logger"
)

var (
	// ErrInvalidKey is returned by New when the key is missing or not 32 bytes of hex.
	ErrInvalidKey = errors.New("encryption key must be 64 hex characters (32 bytes)")

	// ErrDecode is returned when an envelope cannot be authenticated or parsed.
	// Callers must treat it as "cannot determine current value", never as zero.
	ErrDecode = errors.New("cannot decode encrypted field")
)

const (
	keySize   = 32
	nonceSize = 12
	delimiter = ":"
)

// Codec encrypts and decrypts individual monetary fields with AES-256-GCM.
// The persisted envelope is base64(iv):base64(tag):base64(ciphertext),
// with a fresh 96-bit nonce drawn from crypto/rand on every Encode call.
type Codec struct {
	aead cipher.AEAD
}

// New builds a Codec from a hex-encoded 256-bit key.
// A missing or malformed key is a constructor-time failure; the process
// must not start without one.
func New(hexKey string) (*Codec, error) {
	key, err := hex.DecodeString(strings.TrimSpace(hexKey))
	if err != nil || len(key) != keySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &Codec{aead: aead}, nil
}

// Encode encrypts a minor-unit amount into an envelope string.
func (c *Codec) Encode(value int64) (string, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	plaintext := []byte(strconv.FormatInt(value, 10))
	sealed := c.aead.Seal(nil, nonce, plaintext, nil)

	// Seal appends the tag to the ciphertext; the envelope keeps them apart.
	tagStart := len(sealed) - c.aead.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	return strings.Join([]string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}, delimiter), nil
}

// Decode authenticates and decrypts an envelope produced by Encode.
// Any tampering or malformation yields ErrDecode, never partial plaintext.
func (c *Codec) Decode(envelope string) (int64, error) {
	parts := strings.Split(envelope, delimiter)
	if len(parts) != 3 {
		return 0, fmt.Errorf("%w: malformed envelope", ErrDecode)
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return 0, fmt.Errorf("%w: bad nonce", ErrDecode)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return 0, fmt.Errorf("%w: bad tag", ErrDecode)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return 0, fmt.Errorf("%w: bad ciphertext", ErrDecode)
	}

	plaintext, err := c.aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		logger.Log.Errorw("field decryption failed", "error", err)
		return 0, fmt.Errorf("%w: authentication failed", ErrDecode)
	}

	value, err := strconv.ParseInt(string(plaintext), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: non-numeric plaintext", ErrDecode)
	}

	return value, nil
}

// Slots is the physical representation of one monetary field: the encrypted
// envelope and the legacy plaintext column kept for records created before
// field encryption was introduced.
type Slots struct {
	Encrypted string
	Legacy    sql.NullInt64
}

// FromStorage resolves the current value of a field. The encrypted slot
// wins whenever it is populated; otherwise the legacy slot is returned
// verbatim. A record with neither slot is undecodable.
func (c *Codec) FromStorage(s Slots) (int64, error) {
	if s.Encrypted != "" {
		return c.Decode(s.Encrypted)
	}
	if s.Legacy.Valid {
		return s.Legacy.Int64, nil
	}
	return 0, fmt.Errorf("%w: empty slots", ErrDecode)
}

// ToStorage produces the slots for a freshly written value. Only the
// encrypted slot is populated: once migration begins the legacy column is
// never written again.
func (c *Codec) ToStorage(value int64) (Slots, error) {
	envelope, err := c.Encode(value)
	if err != nil {
		return Slots{}, err
	}
	return Slots{Encrypted: envelope}, nil
}

// MigrateSlots applies the one-way migrate-on-read rule: a record with an
// empty encrypted slot and a populated legacy slot gets its encrypted form
// built from the legacy value. The returned bool reports whether a
// migration happened, so stores can persist the new slots on the next save.
func (c *Codec) MigrateSlots(s Slots) (Slots, bool, error) {
	if s.Encrypted != "" || !s.Legacy.Valid {
		return s, false, nil
	}

	envelope, err := c.Encode(s.Legacy.Int64)
	if err != nil {
		return s, false, err
	}

	return Slots{Encrypted: envelope, Legacy: s.Legacy}, true, nil
}
