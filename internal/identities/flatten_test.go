package identities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

func TestFlatten_NoIdentifiers(t *testing.T) {
	id := leaktypes.PartialIdentity{
		ObjectID:  primitive.NewObjectID(),
		Passwords: []string{"hunter2"},
	}

	got := Flatten(id)

	assert.Equal(t, id.ObjectID, got.ObjectID)
	assert.Nil(t, got.Credentials)
}

func TestFlatten_SingleIdentifierUnprefixedPassword(t *testing.T) {
	id := leaktypes.PartialIdentity{
		ObjectID:  primitive.NewObjectID(),
		Emails:    []string{"alice@example.com"},
		Passwords: []string{"hunter2"},
	}

	got := Flatten(id)

	assert.Equal(t, []leaktypes.IDPasswordPair{
		{ID: "alice@example.com", Password: "hunter2"},
	}, got.Credentials)
}

func TestFlatten_MultipleIdentifiersUnprefixedPasswordFansOutToAll(t *testing.T) {
	id := leaktypes.PartialIdentity{
		ObjectID: primitive.NewObjectID(),
		Emails:   []string{"alice@example.com"},
		Phones:   []string{"+15551234567"},
		Passwords: []string{
			"hunter2",
		},
	}

	got := Flatten(id)

	assert.ElementsMatch(t, []leaktypes.IDPasswordPair{
		{ID: "alice@example.com", Password: "hunter2"},
		{ID: "+15551234567", Password: "hunter2"},
	}, got.Credentials)
}

// TestFlatten_ColonPrefixedPasswordExcludesMatchingIdentifier documents and
// locks in the inverted colon-prefix behavior: a password prefixed with
// "alice:" is paired with every identifier that does NOT start with
// "alice", not the one that does. Intentionally not "fixed" here.
func TestFlatten_ColonPrefixedPasswordExcludesMatchingIdentifier(t *testing.T) {
	id := leaktypes.PartialIdentity{
		ObjectID: primitive.NewObjectID(),
		Emails:   []string{"alice@example.com", "bob@example.com"},
		Passwords: []string{
			"alice:hunter2",
		},
	}

	got := Flatten(id)

	assert.ElementsMatch(t, []leaktypes.IDPasswordPair{
		{ID: "bob@example.com", Password: "hunter2"},
	}, got.Credentials)
}

func TestFlatten_ColonPrefixedPasswordExcludesAllWhenAllMatch(t *testing.T) {
	id := leaktypes.PartialIdentity{
		ObjectID: primitive.NewObjectID(),
		Emails:   []string{"alice@example.com"},
		Passwords: []string{
			"alice:hunter2",
		},
	}

	got := Flatten(id)

	assert.Empty(t, got.Credentials)
}

func TestFlatten_MixedPrefixedAndUnprefixedPasswords(t *testing.T) {
	id := leaktypes.PartialIdentity{
		ObjectID: primitive.NewObjectID(),
		Emails:   []string{"alice@example.com", "bob@example.com"},
		Passwords: []string{
			"alice:hunter2",
			"plainpw",
		},
	}

	got := Flatten(id)

	assert.ElementsMatch(t, []leaktypes.IDPasswordPair{
		{ID: "bob@example.com", Password: "hunter2"},
		{ID: "alice@example.com", Password: "plainpw"},
		{ID: "bob@example.com", Password: "plainpw"},
	}, got.Credentials)
}
