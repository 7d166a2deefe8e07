// Package authguard implements the Authentication Guard: an Echo middleware
// that resolves the Authorization header's bearer token into a customer id
// and attaches it to the request, or fails the request closed with a
// structured JSON error.
package authguard

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	gocoremw "github.com/arc-self/leakchef-server/packages/go-core/middleware"

	"github.com/arc-self/leakchef-server/internal/store"
)

// bearerPrefix is the exact prefix the Authorization header value must
// start with. Note the colon, not a space — this mirrors the upstream
// client contract ("Bearer:<uuid>"), not the RFC 6750 "Bearer <token>"
// convention most HTTP clients default to.
const bearerPrefix = "Bearer:"

// Error states an authentication attempt can end in.
var (
	ErrMissingHeader = errors.New("authguard: missing Authorization header")
	ErrInvalidFormat = errors.New("authguard: invalid Authorization header format")
	ErrInternal      = errors.New("authguard: internal error during authentication")
)

// CustomerIDResolver is the subset of the Store Adapter the guard depends
// on: a single lookup from a raw bearer-token UUID to the owning
// customer_id.
type CustomerIDResolver interface {
	GetCustomerID(ctx context.Context, apiKey string) (int32, error)
}

// Guard is the Authentication Guard middleware factory.
type Guard struct {
	resolver CustomerIDResolver
	log      *zap.Logger
}

// New constructs a Guard around a CustomerIDResolver.
func New(resolver CustomerIDResolver, log *zap.Logger) *Guard {
	return &Guard{resolver: resolver, log: log}
}

// Middleware returns the echo.MiddlewareFunc enforcing authentication on
// every route it wraps.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			customerID, err := g.authenticate(c)
			if err != nil {
				return respondAuthError(c, err)
			}
			ctx := gocoremw.WithCustomerID(c.Request().Context(), customerID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func (g *Guard) authenticate(c echo.Context) (int32, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return 0, ErrMissingHeader
	}

	token, ok := extractBearerToken(header)
	if !ok {
		return 0, ErrInvalidFormat
	}

	parsed, err := uuid.Parse(token)
	if err != nil {
		return 0, ErrInvalidFormat
	}

	customerID, err := g.resolver.GetCustomerID(c.Request().Context(), parsed.String())
	if err != nil {
		g.log.Error("customer lookup failed during authentication", zap.Error(err))
		if errors.Is(err, store.ErrResultIsEmpty) {
			return 0, ErrInvalidFormat
		}
		return 0, ErrInvalidFormat
	}
	return customerID, nil
}

// extractBearerToken strips the "Bearer:" prefix and surrounding
// whitespace from the header value, returning ok=false if the prefix is
// absent.
func extractBearerToken(header string) (string, bool) {
	rest, ok := strings.CutPrefix(header, bearerPrefix)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func respondAuthError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, ErrMissingHeader):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Authorization header is not set"})
	case errors.Is(err, ErrInvalidFormat):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Authorization header contains invalid characters"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "an internal server error occurred during authentication"})
	}
}

var _ CustomerIDResolver = (*store.Store)(nil)
