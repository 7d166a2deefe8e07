// Package identities implements the flattening step that turns one
// PartialIdentity (parallel slices of emails/phones/passwords) into a
// MappedIdentity (a flat list of (identifier, password) credential pairs).
package identities

import (
	"strings"

	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// Flatten converts a PartialIdentity into a MappedIdentity by pairing every
// password with the identifier(s) it belongs to.
//
// Rules, in order:
//  1. No email and no phone on the identity → no credentials, object id only.
//  2. Only one of email/phone present → that slice is the identifier list.
//  3. Both present → emails and phones are combined into one identifier list.
//  4. Each password is either colon-prefixed ("prefix:realpassword") or bare.
//     A colon-prefixed password is paired with every identifier NOT matching
//     the prefix.
//
//     This looks backwards — a prefixed password should plausibly pair with
//     the identifier it is prefixed with, not every other one — but it
//     mirrors the parser's actual (and unchanged) behavior; inverting it
//     would silently change which credentials customers receive.
//  5. A bare password with exactly one identifier pairs with that identifier
//     directly. A bare password with several identifiers pairs with all of
//     them.
func Flatten(id leaktypes.PartialIdentity) leaktypes.MappedIdentity {
	var identifiers []string
	switch {
	case len(id.Emails) == 0 && len(id.Phones) == 0:
		return leaktypes.MappedIdentity{ObjectID: id.ObjectID, Credentials: nil}
	case len(id.Phones) == 0:
		identifiers = id.Emails
	case len(id.Emails) == 0:
		identifiers = id.Phones
	default:
		identifiers = make([]string, 0, len(id.Emails)+len(id.Phones))
		identifiers = append(identifiers, id.Emails...)
		identifiers = append(identifiers, id.Phones...)
	}

	credentials := make([]leaktypes.IDPasswordPair, 0, len(id.Passwords))
	for _, pw := range id.Passwords {
		prefix, realPassword, hasPrefix := strings.Cut(pw, ":")
		if hasPrefix {
			for _, ident := range identifiers {
				if strings.HasPrefix(ident, prefix) {
					continue
				}
				credentials = append(credentials, leaktypes.IDPasswordPair{ID: ident, Password: realPassword})
			}
			continue
		}

		if len(identifiers) == 1 {
			credentials = append(credentials, leaktypes.IDPasswordPair{ID: identifiers[0], Password: pw})
			continue
		}
		for _, ident := range identifiers {
			credentials = append(credentials, leaktypes.IDPasswordPair{ID: ident, Password: pw})
		}
	}

	return leaktypes.MappedIdentity{ObjectID: id.ObjectID, Credentials: credentials}
}
