package auth

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nerrad567/playback-core/internal/infrastructure/config"
)

// Directory holds the configured operators.
type Directory struct {
	operators map[string]Operator

	dummyOnce sync.Once
	dummy     string
}

// NewDirectory validates and indexes the configured operators.
func NewDirectory(cfgs []config.OperatorConfig) (*Directory, error) {
	d := &Directory{operators: make(map[string]Operator, len(cfgs))}
	for i, c := range cfgs {
		if !IsValidUsername(c.Username) {
			return nil, fmt.Errorf("operator %d: invalid username %q", i, c.Username)
		}
		role, err := ParseRole(c.Role)
		if err != nil {
			return nil, fmt.Errorf("operator %s: %w %q", c.Username, err, c.Role)
		}
		if _, err := decodePHC(c.PasswordHash); err != nil {
			return nil, fmt.Errorf("operator %s: %w", c.Username, err)
		}
		key := strings.ToLower(c.Username)
		if _, dup := d.operators[key]; dup {
			return nil, fmt.Errorf("operator %s: duplicate username", c.Username)
		}
		d.operators[key] = Operator{Username: c.Username, PasswordHash: c.PasswordHash, Role: role}
	}
	return d, nil
}

// Len returns the number of operators.
func (d *Directory) Len() int {
	return len(d.operators)
}

// Authenticate checks a username and password. Unknown users cost the same
// hash computation as known ones.
func (d *Directory) Authenticate(username, password string) (Operator, error) {
	op, ok := d.operators[strings.ToLower(username)]
	if !ok {
		VerifyPassword(password, d.dummyHash()) //nolint:errcheck // timing equaliser only
		return Operator{}, ErrInvalidCredentials
	}

	match, err := VerifyPassword(password, op.PasswordHash)
	if err != nil || !match {
		return Operator{}, ErrInvalidCredentials
	}
	return op, nil
}

func (d *Directory) dummyHash() string {
	d.dummyOnce.Do(func() {
		d.dummy, _ = HashPassword("playback-dummy-password") //nolint:errcheck // only fails without entropy
	})
	return d.dummy
}
