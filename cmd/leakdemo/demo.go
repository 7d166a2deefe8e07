package main

import (
	"context"
	"fmt"

	"github.com/arc-self/leakchef-server/internal/httpapi"
	"github.com/arc-self/leakchef-server/internal/leakclient"
	"github.com/arc-self/leakchef-server/internal/salt"
)

// runDemo pulls the newest leak, then every subsequent batch, tallying which
// delivered credentials match a previously seeded set, then report the
// tally back to the server.
//
// Because identities are salted with a per-customer key the client does
// not otherwise know, customerSalt must be supplied out of band (it is
// the same value cmd/fakeleak recorded for the seeded customer) so the
// client can recompute the expected hash for each known identifier and
// compare it against what the server delivers, rather than comparing
// plaintext.
func runDemo(ctx context.Context, client *leakclient.Client, known map[string]knownCredential, customerSalt string, supported []string, limit int) error {
	params := leakclient.LeakParams{SupportedIdentifiers: supported, Limit: limit}

	reply, err := client.GetLatestLeak(ctx, params)
	if err != nil {
		return fmt.Errorf("get latest leak: %w", err)
	}
	if reply.LeakID == "" {
		fmt.Println("no new leak available for this customer")
		return nil
	}

	var total, matches uint32
	total += uint32(len(reply.Identities))
	matches += countMatches(known, customerSalt, reply)

	for {
		batch, err := client.GetLeak(ctx, reply.LeakID, params)
		if err != nil {
			return fmt.Errorf("get leak %q: %w", reply.LeakID, err)
		}
		if len(batch.Identities) == 0 {
			break
		}
		total += uint32(len(batch.Identities))
		matches += countMatches(known, customerSalt, batch)
	}

	fmt.Printf("leak %q: received %d identities, %d matched known identities\n", reply.LeakID, total, matches)
	return client.SendResult(ctx, reply.LeakID, total, matches)
}

// countMatches re-salts every known plaintext identifier with the
// customer's salt and checks whether the resulting digest shows up among
// the delivered credentials, since the server never returns plaintext.
func countMatches(known map[string]knownCredential, customerSalt string, reply httpapi.NormalReply) uint32 {
	hasher := salt.Blake2bHasher{}
	saltKey := []byte(customerSalt)

	expected := make(map[string]struct{}, len(known))
	for _, cred := range known {
		digest, err := hasher.Apply(cred.Identifier, saltKey)
		if err != nil {
			continue
		}
		expected[digest] = struct{}{}
	}

	var matches uint32
	for _, identity := range reply.Identities {
		for _, credential := range identity.Credentials {
			if _, ok := expected[credential.ID]; ok {
				matches++
			}
		}
	}
	return matches
}
