package salt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// stubHasher is a deterministic, non-cryptographic KeyedHasher for tests
// that need predictable output rather than real BLAKE2b digests.
type stubHasher struct{}

func (stubHasher) Apply(value string, key []byte) (string, error) {
	return fmt.Sprintf("%s|%s", value, key), nil
}

func TestSaltBatch_OnlyRequestedIdentifiersAreSalted(t *testing.T) {
	s := NewSalterWithHasher(stubHasher{})

	batch := []leaktypes.PartialIdentity{
		{
			ObjectID:  primitive.NewObjectID(),
			Emails:    []string{"alice@example.com"},
			Phones:    []string{"+15551234567"},
			Passwords: []string{"hunter2"},
		},
	}

	mapped, err := s.SaltBatch(batch, []leaktypes.Identifier{leaktypes.IdentifierEmail}, "pepper")
	require.NoError(t, err)
	require.Len(t, mapped, 1)

	require.Len(t, mapped[0].Credentials, 1)
	assert.Equal(t, "alice@example.com|pepper", mapped[0].Credentials[0].ID)
	assert.Equal(t, "hunter2", mapped[0].Credentials[0].Password)
}

func TestSaltBatch_NoSupportedIdentifiersYieldsNoCredentials(t *testing.T) {
	s := NewSalterWithHasher(stubHasher{})

	batch := []leaktypes.PartialIdentity{
		{
			ObjectID:  primitive.NewObjectID(),
			Emails:    []string{"alice@example.com"},
			Passwords: []string{"hunter2"},
		},
	}

	mapped, err := s.SaltBatch(batch, nil, "pepper")
	require.NoError(t, err)
	require.Len(t, mapped, 1)
	assert.Empty(t, mapped[0].Credentials)
}

func TestBlake2bHasher_LongKeyIsPreHashed(t *testing.T) {
	h := Blake2bHasher{}

	shortKey := []byte("short-key")
	longKey := make([]byte, 200)
	for i := range longKey {
		longKey[i] = byte(i)
	}

	_, err := h.Apply("alice@example.com", shortKey)
	require.NoError(t, err)

	digest, err := h.Apply("alice@example.com", longKey)
	require.NoError(t, err)
	assert.NotEmpty(t, digest)
}

func TestBlake2bHasher_IsDeterministic(t *testing.T) {
	h := Blake2bHasher{}
	key := []byte("customer-salt")

	a, err := h.Apply("alice@example.com", key)
	require.NoError(t, err)
	b, err := h.Apply("alice@example.com", key)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.True(t, ConstantTimeEqual(a, b))
}

func TestBlake2bHasher_DifferentKeysProduceDifferentDigests(t *testing.T) {
	h := Blake2bHasher{}

	a, err := h.Apply("alice@example.com", []byte("salt-a"))
	require.NoError(t, err)
	b, err := h.Apply("alice@example.com", []byte("salt-b"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.False(t, ConstantTimeEqual(a, b))
}
