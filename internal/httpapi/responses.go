// Package httpapi parses incoming query/body parameters into
// delivery-service calls and wraps every result (success or failure) in
// the same envelope.
package httpapi

import "github.com/arc-self/leakchef-server/internal/leaktypes"

// Response is the outermost envelope every handler returns, regardless of
// success or failure. code mirrors the HTTP status rather than replacing
// it — handlers set both to the same value.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Reply   Reply  `json:"reply"`
}

// Reply is a closed set of payload shapes a Response can carry. Only one
// field is ever populated; which one is implied by Kind.
type Reply struct {
	Kind       ReplyKind                  `json:"kind"`
	Normal     *NormalReply               `json:"normal,omitempty"`
	CustomerID *int32                     `json:"customer_id,omitempty"`
}

// ReplyKind discriminates which payload field of a Reply is populated.
type ReplyKind string

const (
	ReplyKindNormal     ReplyKind = "NORMAL_REPLY"
	ReplyKindCustomerID ReplyKind = "CUSTOMER_ID"
	ReplyKindEmpty      ReplyKind = "EMPTY"
)

// NormalReply carries a batch of salted identities for one (customer, leak)
// pair — the shape every /leak* and /result endpoint returns.
type NormalReply struct {
	CustomerID int32                       `json:"customer_id"`
	LeakID     string                      `json:"leak_id"`
	Identities []leaktypes.MappedIdentity  `json:"identities"`
}

// emptyIdentities is returned in place of nil so the JSON payload always
// carries "identities": [] rather than "identities": null.
func emptyIdentities() []leaktypes.MappedIdentity {
	return []leaktypes.MappedIdentity{}
}

func responseWithIdentities(code int, message string, reply NormalReply) Response {
	if reply.Identities == nil {
		reply.Identities = emptyIdentities()
	}
	return Response{
		Code:    code,
		Message: message,
		Reply:   Reply{Kind: ReplyKindNormal, Normal: &reply},
	}
}

func emptyResponse(code int, message string) Response {
	return Response{Code: code, Message: message, Reply: Reply{Kind: ReplyKindEmpty}}
}

func responseWithCustomerID(code int, message string, customerID int32) Response {
	return Response{
		Code:    code,
		Message: message,
		Reply:   Reply{Kind: ReplyKindCustomerID, CustomerID: &customerID},
	}
}
