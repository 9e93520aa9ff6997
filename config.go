package grovekeep

import (
	"errors"
	"fmt"
	"time"
)

// Defaults applied by Config.EnsureDefaults
const (
	DefaultLockoutThreshold = 3
	DefaultLockoutDuration  = 30 * time.Minute
	DefaultSecurityLogCap   = 100
)

// DefaultAllowedEmailDomains is the single provider accepted at registration
var DefaultAllowedEmailDomains = []string{"gmail.com"}

// Config tunes the auth core. The zero value is usable after EnsureDefaults.
type Config struct {
	// Consecutive failures that lock an account, and for how long
	LockoutThreshold int
	LockoutDuration  time.Duration

	SessionTTL time.Duration
	ResetTTL   time.Duration

	// Number of security events retained, oldest evicted first
	SecurityLogCap int

	// Registration domain allow-list. Set AllowAnyEmailDomain to disable it.
	AllowedEmailDomains []string
	AllowAnyEmailDomain bool

	PasswordPolicy PasswordPolicy

	// One of HasherBcrypt or HasherArgon2id; ignored when Auth.Hasher is set
	HasherName string

	// Optional 32 byte key sealing per-user data at rest
	DataKey []byte
}

// EnsureDefaults fills in any unset fields
func (c *Config) EnsureDefaults() *Config {
	if c.LockoutThreshold <= 0 {
		c.LockoutThreshold = DefaultLockoutThreshold
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = DefaultLockoutDuration
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = TokenExpirySession
	}
	if c.ResetTTL <= 0 {
		c.ResetTTL = TokenExpiryPasswordReset
	}
	if c.SecurityLogCap <= 0 {
		c.SecurityLogCap = DefaultSecurityLogCap
	}
	if len(c.AllowedEmailDomains) == 0 && !c.AllowAnyEmailDomain {
		c.AllowedEmailDomains = append([]string(nil), DefaultAllowedEmailDomains...)
	}
	if c.PasswordPolicy.MinLength <= 0 {
		c.PasswordPolicy = DefaultPasswordPolicy()
	}
	if c.HasherName == "" {
		c.HasherName = HasherBcrypt
	}
	return c
}

// Validate rejects settings that EnsureDefaults cannot repair
func (c *Config) Validate() error {
	if len(c.DataKey) != 0 && len(c.DataKey) != DataKeySize {
		return fmt.Errorf("data key must be %d bytes, got %d", DataKeySize, len(c.DataKey))
	}
	if c.AllowAnyEmailDomain && len(c.AllowedEmailDomains) > 0 {
		return errors.New("AllowAnyEmailDomain conflicts with AllowedEmailDomains")
	}
	if _, err := NewHasher(c.HasherName); err != nil {
		return err
	}
	return nil
}

func (c *Config) emailDomains() []string {
	if c.AllowAnyEmailDomain {
		return nil
	}
	return c.AllowedEmailDomains
}
