package httpapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// defaultLimit is used when a request omits the limit query parameter.
const defaultLimit = 100

// leakRequest holds the query parameters shared by GET /leak and
// GET /leak/{leak_id}.
type leakRequest struct {
	SupportedIdentifiers []leaktypes.Identifier
	// Filter is accepted and parsed for wire compatibility but never reaches
	// the store query; see DESIGN.md for why it stays unused.
	Filter string
	Limit  int
}

func parseLeakRequest(supportedRaw, filter, limitRaw string) (leakRequest, error) {
	supported, err := parseSupportedIdentifiers(supportedRaw)
	if err != nil {
		return leakRequest{}, err
	}

	limit := defaultLimit
	if limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			return leakRequest{}, fmt.Errorf("invalid limit %q: %w", limitRaw, err)
		}
		limit = parsed
	}

	return leakRequest{SupportedIdentifiers: supported, Filter: filter, Limit: limit}, nil
}

// parseSupportedIdentifiers turns a comma-separated "EMAIL,PHONE" query
// value into the enum slice the delivery service expects. An empty string
// yields no supported identifiers, not an error.
func parseSupportedIdentifiers(raw string) ([]leaktypes.Identifier, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	identifiers := make([]leaktypes.Identifier, 0, len(parts))
	for _, part := range parts {
		switch leaktypes.Identifier(part) {
		case leaktypes.IdentifierEmail, leaktypes.IdentifierPhone:
			identifiers = append(identifiers, leaktypes.Identifier(part))
		default:
			return nil, fmt.Errorf("unknown identifier %q, expected EMAIL or PHONE", part)
		}
	}
	return identifiers, nil
}

// resultRequest is the JSON body POST /result accepts.
type resultRequest struct {
	LeakID             string `json:"leak_id"`
	ReceivedIdentities uint32 `json:"received_identities"`
	NumberOfMatches    uint32 `json:"number_of_matches"`
}
