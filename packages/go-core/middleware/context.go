// Package middleware holds small Echo-context helpers shared across HTTP
// handlers.
package middleware

import "context"

type contextKey string

// CustomerIDKey is the context key the Authentication Guard stores the
// resolved customer id under, once a bearer token has been authenticated.
const CustomerIDKey contextKey = "customer_id"

// WithCustomerID returns a new context carrying the authenticated
// customer's id.
func WithCustomerID(ctx context.Context, customerID int32) context.Context {
	return context.WithValue(ctx, CustomerIDKey, customerID)
}

// GetCustomerID extracts the customer id stored by WithCustomerID, if any.
func GetCustomerID(ctx context.Context) (int32, bool) {
	v, ok := ctx.Value(CustomerIDKey).(int32)
	return v, ok
}
