// Command leakdemo is a CLI client exercising the leak-delivery server's
// /leak, /leak/{leak_id}, and /result endpoints end to end: it pulls every
// batch of a leak, checks which delivered credentials match a previously
// seeded identities.json (produced by cmd/fakeleak), and reports the tally
// back to the server.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-self/leakchef-server/internal/leakclient"
)

func newRunCommand() *cobra.Command {
	var (
		baseURL      string
		apiKey       string
		customerSalt string
		leaksFile    string
		limit        int
		identifier   []string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Pull every batch of the next available leak and report match counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			known, err := loadKnownIdentities(leaksFile)
			if err != nil {
				return fmt.Errorf("load known identities: %w", err)
			}

			client := leakclient.New(baseURL, apiKey)
			return runDemo(cmd.Context(), client, known, customerSalt, identifier, limit)
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the leak-delivery server")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "bearer token (the raw UUID, without the Bearer: prefix)")
	cmd.Flags().StringVar(&customerSalt, "customer-salt", "", "the seeded customer's salt, printed by fakeleak, used to recompute the expected digest")
	cmd.Flags().StringVar(&leaksFile, "identities-file", "identities.json", "path to the identities.json produced by fakeleak")
	cmd.Flags().IntVar(&limit, "limit", 1000, "batch size to request per call")
	cmd.Flags().StringSliceVar(&identifier, "supported-identifiers", []string{"EMAIL"}, "identifier kinds to request (EMAIL, PHONE)")
	cmd.MarkFlagRequired("api-key")
	cmd.MarkFlagRequired("customer-salt")

	return cmd
}

func main() {
	root := &cobra.Command{
		Use:  "leakdemo [command]",
		Long: "Demo CLI client for the leak-delivery server",
	}
	root.AddCommand(newRunCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

// knownCredential mirrors cmd/fakeleak's plainCredential shape.
type knownCredential struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func loadKnownIdentities(path string) (map[string]knownCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var known map[string]knownCredential
	if err := json.Unmarshal(data, &known); err != nil {
		return nil, err
	}
	return known, nil
}
