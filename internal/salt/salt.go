// Package salt implements the Identifier Salter: a per-customer keyed-hash
// transform applied to email/phone identifiers before they leave the
// service, plus the orchestration that filters identifiers down to the
// customer's requested identifier set before flattening.
package salt

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/arc-self/leakchef-server/internal/identities"
	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// KeyedHasher is the external cryptographic primitive the salter depends on.
// It is kept behind an interface, not called directly, so the concrete
// construction (today: keyed BLAKE2b) can be swapped without touching
// salting logic.
type KeyedHasher interface {
	// Apply returns a deterministic, keyed digest of value salted with key,
	// encoded as a hex string suitable for direct inclusion in a JSON reply.
	Apply(value string, key []byte) (string, error)
}

// Blake2bHasher is the default KeyedHasher, backed by keyed BLAKE2b-256.
type Blake2bHasher struct{}

// Apply hashes value with a BLAKE2b instance keyed by key. BLAKE2b accepts
// keys up to 64 bytes; longer customer salts are pre-hashed down with an
// unkeyed BLAKE2b-256 pass so Apply never fails on an oversized key.
func (Blake2bHasher) Apply(value string, key []byte) (string, error) {
	key = normalizeKey(key)

	h, err := blake2b.New256(key)
	if err != nil {
		return "", fmt.Errorf("construct keyed blake2b: %w", err)
	}
	if _, err := h.Write([]byte(value)); err != nil {
		return "", fmt.Errorf("hash identifier: %w", err)
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func normalizeKey(key []byte) []byte {
	const maxKeyLen = 64
	if len(key) <= maxKeyLen {
		return key
	}
	sum := blake2b.Sum256(key)
	return sum[:]
}

// ConstantTimeEqual compares two salted-identifier digests without leaking
// timing information, for callers that need to match a salted value against
// a stored one (e.g. dedup checks) rather than just deliver it.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Salter applies a KeyedHasher to the requested identifier fields of a batch
// of PartialIdentity records and flattens the result into MappedIdentity
// replies.
type Salter struct {
	hasher KeyedHasher
}

// NewSalter constructs a Salter around the default Blake2bHasher.
func NewSalter() *Salter {
	return &Salter{hasher: Blake2bHasher{}}
}

// NewSalterWithHasher constructs a Salter around an explicit KeyedHasher,
// primarily for tests that want a deterministic, non-cryptographic stand-in.
func NewSalterWithHasher(h KeyedHasher) *Salter {
	return &Salter{hasher: h}
}

// SaltBatch salts the requested identifier fields of every PartialIdentity
// in identities with the given customer salt, then flattens each one into a
// MappedIdentity. Identifier kinds not present in supported keep their
// original (unsalted) zero value cleared — unrequested kinds are never
// returned to the customer at all, matching the upstream parser's behavior
// of only ever populating the fields it was asked for.
func (s *Salter) SaltBatch(batch []leaktypes.PartialIdentity, supported []leaktypes.Identifier, customerSalt string) ([]leaktypes.MappedIdentity, error) {
	wantEmail := contains(supported, leaktypes.IdentifierEmail)
	wantPhone := contains(supported, leaktypes.IdentifierPhone)
	saltBytes := []byte(customerSalt)

	out := make([]leaktypes.MappedIdentity, 0, len(batch))
	for _, partial := range batch {
		var emails, phones []string
		var err error
		if wantEmail {
			if emails, err = s.saltAll(partial.Emails, saltBytes); err != nil {
				return nil, err
			}
		}
		if wantPhone {
			if phones, err = s.saltAll(partial.Phones, saltBytes); err != nil {
				return nil, err
			}
		}

		salted := leaktypes.PartialIdentity{
			ObjectID:  partial.ObjectID,
			Emails:    emails,
			Phones:    phones,
			Domains:   partial.Domains,
			Passwords: partial.Passwords,
		}
		out = append(out, identities.Flatten(salted))
	}
	return out, nil
}

func (s *Salter) saltAll(values []string, key []byte) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		salted, err := s.hasher.Apply(v, key)
		if err != nil {
			return nil, fmt.Errorf("salt identifier: %w", err)
		}
		out[i] = salted
	}
	return out, nil
}

func contains(haystack []leaktypes.Identifier, needle leaktypes.Identifier) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
