package httpapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/arc-self/leakchef-server/internal/authguard"
	"github.com/arc-self/leakchef-server/internal/delivery"
	"github.com/arc-self/leakchef-server/internal/leaktypes"
	gocoremw "github.com/arc-self/leakchef-server/packages/go-core/middleware"
)

// Handlers wires the delivery Service into Echo's request/response cycle.
type Handlers struct {
	service    *delivery.Service
	log        *zap.Logger
	httpClient *http.Client
}

// New constructs Handlers around a delivery Service.
func New(service *delivery.Service, log *zap.Logger) *Handlers {
	return &Handlers{
		service:    service,
		log:        log,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Register mounts every route onto e, with auth applied to the three
// identity-bearing endpoints but not to /hello.
func (h *Handlers) Register(e *echo.Echo, guard *authguard.Guard) {
	e.GET("/hello", h.Hello)

	authed := e.Group("")
	authed.Use(guard.Middleware())
	authed.GET("/leak", h.GetNewestLeak)
	authed.GET("/leak/:leak_id", h.GetLeak)
	authed.POST("/result", h.PostResult)
}

// Hello is an unauthenticated liveness/fun endpoint: it fetches a random
// joke from chucknorris.io and wraps it in an empty Response.
func (h *Handlers) Hello(c echo.Context) error {
	h.log.Info("hello endpoint called")

	req, err := http.NewRequestWithContext(c.Request().Context(), http.MethodGet, "https://api.chucknorris.io/jokes/random", nil)
	if err != nil {
		return c.JSON(http.StatusOK, emptyResponse(http.StatusOK, "could not build joke request"))
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		h.log.Warn("joke request failed", zap.Error(err))
		return c.JSON(http.StatusOK, emptyResponse(http.StatusOK, "hello"))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.JSON(http.StatusOK, emptyResponse(http.StatusOK, "hello"))
	}

	return c.JSON(http.StatusOK, emptyResponse(http.StatusOK, string(body)))
}

func customerIDFromContext(c echo.Context) (int32, bool) {
	return gocoremw.GetCustomerID(c.Request().Context())
}

// GetNewestLeak handles GET /leak: hand the calling customer their next
// unhandled finished leak and its first batch of identities.
func (h *Handlers) GetNewestLeak(c echo.Context) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, emptyResponse(http.StatusInternalServerError, "no customer_id could be resolved for your api_key"))
	}

	req, err := parseLeakRequest(c.QueryParam("supported_identifiers"), c.QueryParam("filter"), c.QueryParam("limit"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, emptyResponse(http.StatusBadRequest, err.Error()))
	}

	batch, err := h.service.GetNewest(c.Request().Context(), customerID, req.Limit, req.SupportedIdentifiers)
	if err != nil {
		h.log.Error("get newest leak failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, emptyResponse(http.StatusInternalServerError, err.Error()))
	}

	reply := NormalReply{CustomerID: customerID, LeakID: batch.LeakID, Identities: batch.Identities}
	return c.JSON(http.StatusOK, responseWithIdentities(http.StatusOK, "", reply))
}

// GetLeak handles GET /leak/:leak_id: pull the next batch of identities
// from a leak the customer has already been handed.
func (h *Handlers) GetLeak(c echo.Context) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, emptyResponse(http.StatusInternalServerError, "no customer_id could be resolved for your api_key"))
	}

	leakID := c.Param("leak_id")

	req, err := parseLeakRequest(c.QueryParam("supported_identifiers"), c.QueryParam("filter"), c.QueryParam("limit"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, emptyResponse(http.StatusBadRequest, err.Error()))
	}

	batch, err := h.service.GetSpecific(c.Request().Context(), customerID, leakID, req.Limit, req.SupportedIdentifiers)
	if err != nil {
		h.log.Error("get leak failed", zap.String("leak_id", leakID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, emptyResponse(http.StatusInternalServerError, err.Error()))
	}

	message := "Everything is fine"
	if len(batch.Identities) == 0 {
		message = "All identities for this leak have been received"
	}

	reply := NormalReply{CustomerID: customerID, LeakID: batch.LeakID, Identities: batch.Identities}
	return c.JSON(http.StatusOK, responseWithIdentities(http.StatusOK, message, reply))
}

// PostResult handles POST /result: record a customer's self-reported
// ingestion tally for a leak.
func (h *Handlers) PostResult(c echo.Context) error {
	customerID, ok := customerIDFromContext(c)
	if !ok {
		return c.JSON(http.StatusInternalServerError, emptyResponse(http.StatusInternalServerError, "no customer_id could be resolved for your api_key"))
	}

	var body resultRequest
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, emptyResponse(http.StatusBadRequest, "invalid request body"))
	}

	if err := h.service.PostResult(c.Request().Context(), customerID, body.LeakID, body.ReceivedIdentities, body.NumberOfMatches); err != nil {
		h.log.Error("post result failed", zap.String("leak_id", body.LeakID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, emptyResponse(http.StatusInternalServerError, err.Error()))
	}

	reply := NormalReply{CustomerID: customerID, LeakID: body.LeakID, Identities: []leaktypes.MappedIdentity{}}
	return c.JSON(http.StatusOK, responseWithIdentities(http.StatusOK, "Everything is fine", reply))
}
