package grovekeep

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// PasswordSymbols is the punctuation set that satisfies the symbol rule
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

// PasswordPolicy describes the strength rules applied at registration and reset.
// The letter and digit classes are ASCII only; other characters count toward
// the length but satisfy no class.
type PasswordPolicy struct {
	MinLength int
	// Upper bound in bytes; bcrypt ignores anything past 72. Zero disables it.
	MaxBytes int

	RequireUpper  bool
	RequireLower  bool
	RequireDigit  bool
	RequireSymbol bool
	Symbols       string
}

// DefaultPasswordPolicy requires 8+ characters with upper, lower, digit and symbol
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:     8,
		MaxBytes:      72,
		RequireUpper:  true,
		RequireLower:  true,
		RequireDigit:  true,
		RequireSymbol: true,
		Symbols:       PasswordSymbols,
	}
}

// PasswordCheck is the outcome of validating a password against a policy
type PasswordCheck struct {
	Valid      bool
	Violations []string
}

// Validate reports every rule the password breaks, in rule order
func (p PasswordPolicy) Validate(password string) PasswordCheck {
	symbols := p.Symbols
	if symbols == "" {
		symbols = PasswordSymbols
	}

	var hasUpper, hasLower, hasDigit, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasDigit = true
		case strings.ContainsRune(symbols, r):
			hasSymbol = true
		}
	}

	var violations []string
	if utf8.RuneCountInString(password) < p.MinLength {
		violations = append(violations, fmt.Sprintf("Password must be at least %d characters", p.MinLength))
	}
	if p.MaxBytes > 0 && len(password) > p.MaxBytes {
		violations = append(violations, fmt.Sprintf("Password must be at most %d bytes", p.MaxBytes))
	}
	if p.RequireUpper && !hasUpper {
		violations = append(violations, "Password must contain an uppercase letter")
	}
	if p.RequireLower && !hasLower {
		violations = append(violations, "Password must contain a lowercase letter")
	}
	if p.RequireDigit && !hasDigit {
		violations = append(violations, "Password must contain a digit")
	}
	if p.RequireSymbol && !hasSymbol {
		violations = append(violations, "Password must contain one of "+symbols)
	}
	return PasswordCheck{Valid: len(violations) == 0, Violations: violations}
}

// ValidatePassword checks a password against DefaultPasswordPolicy
func ValidatePassword(password string) PasswordCheck {
	return DefaultPasswordPolicy().Validate(password)
}

// Hasher computes and checks salted one-way password hashes
type Hasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// Hasher names accepted by NewHasher
const (
	HasherBcrypt   = "bcrypt"
	HasherArgon2id = "argon2id"
)

// NewHasher returns the default-tuned hasher for the given name
func NewHasher(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HasherBcrypt:
		return &BcryptHasher{}, nil
	case HasherArgon2id:
		return &Argon2Hasher{}, nil
	default:
		return nil, fmt.Errorf("unknown password hasher %q", name)
	}
}

// DefaultBcryptCost lands a single hash in the low hundreds of milliseconds
const DefaultBcryptCost = 12

// BcryptHasher hashes with bcrypt. Zero Cost means DefaultBcryptCost.
type BcryptHasher struct {
	Cost int
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (h *BcryptHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

const argon2ID = "argon2id"

// Argon2Hasher hashes with argon2id and stores a PHC string.
// Zero fields take the defaults below.
type Argon2Hasher struct {
	Time        uint32
	MemoryKB    uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

func (h *Argon2Hasher) params() (time, memory uint32, threads uint8, saltLen, keyLen uint32) {
	time, memory, threads, saltLen, keyLen = h.Time, h.MemoryKB, h.Parallelism, h.SaltLength, h.KeyLength
	if time == 0 {
		time = 3
	}
	if memory == 0 {
		memory = 64 * 1024
	}
	if threads == 0 {
		threads = 2
	}
	if saltLen == 0 {
		saltLen = 16
	}
	if keyLen == 0 {
		keyLen = 32
	}
	return
}

func (h *Argon2Hasher) Hash(password string) (string, error) {
	time, memory, threads, saltLen, keyLen := h.params()

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, time, memory, threads, keyLen)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2ID, argon2.Version, memory, time, threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func (h *Argon2Hasher) Verify(password, hash string) bool {
	p, err := parseArgon2Hash(hash)
	if err != nil {
		return false
	}
	computed := argon2.IDKey([]byte(password), p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	return subtle.ConstantTimeCompare(computed, p.key) == 1
}

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2Hash(encoded string) (*argon2Params, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != argon2ID {
		return nil, errors.New("not an argon2id hash")
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return nil, errors.New("unsupported argon2 version")
	}

	var p argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, errors.New("invalid argon2 parameter")
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil || n == 0 {
			return nil, errors.New("invalid argon2 parameter")
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			if n > 255 {
				return nil, errors.New("invalid argon2 parallelism")
			}
			p.threads = uint8(n)
		default:
			return nil, errors.New("unknown argon2 parameter")
		}
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return nil, errors.New("missing argon2 parameters")
	}

	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, errors.New("invalid argon2 salt")
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return nil, errors.New("invalid argon2 key")
	}
	return &p, nil
}
