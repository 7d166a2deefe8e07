package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/arc-self/leakchef-server/internal/authguard"
	"github.com/arc-self/leakchef-server/internal/cursorcache"
	"github.com/arc-self/leakchef-server/internal/delivery"
	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// fakeStore implements delivery.Store with canned, in-memory behavior.
type fakeStore struct {
	latestMetadata *leaktypes.Metadata
	cursor         cursorcache.MongoCursor
}

func (f *fakeStore) GetLatestMetadata(ctx context.Context, customerID int32) (*leaktypes.Metadata, error) {
	return f.latestMetadata, nil
}
func (f *fakeStore) GetMetadata(ctx context.Context, leakID string) (leaktypes.Metadata, error) {
	return leaktypes.Metadata{LeakID: leakID}, nil
}
func (f *fakeStore) OpenIdentityCursor(ctx context.Context, leakID string) (cursorcache.MongoCursor, error) {
	return f.cursor, nil
}
func (f *fakeStore) UpdateHandledLeaks(ctx context.Context, customerID int32, leakID string) error {
	return nil
}
func (f *fakeStore) UpdateStatus(ctx context.Context, customerID int32, leakID string, lastSentID *primitive.ObjectID, identitiesRead int32, leakStatus leaktypes.LeakStatus) error {
	return nil
}
func (f *fakeStore) SetLeakDone(ctx context.Context, customerID int32, leakID string) error {
	return nil
}
func (f *fakeStore) UpdateResult(ctx context.Context, leakID string, customerID int32, receivedIdentities, numberOfMatches uint32) error {
	return nil
}
func (f *fakeStore) GetCustomerSalt(ctx context.Context, customerID int32) (string, error) {
	return "pepper", nil
}

type fakeSalter struct{}

func (fakeSalter) SaltBatch(batch []leaktypes.PartialIdentity, supported []leaktypes.Identifier, customerSalt string) ([]leaktypes.MappedIdentity, error) {
	out := make([]leaktypes.MappedIdentity, len(batch))
	for i, p := range batch {
		out[i] = leaktypes.MappedIdentity{ObjectID: p.ObjectID}
	}
	return out, nil
}

type fakeCursor struct {
	docs []leaktypes.Identity
	pos  int
}

func (c *fakeCursor) Next(ctx context.Context) bool {
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}
func (c *fakeCursor) Decode(val interface{}) error {
	*val.(*leaktypes.Identity) = c.docs[c.pos-1]
	return nil
}
func (c *fakeCursor) Err() error                     { return nil }
func (c *fakeCursor) Close(ctx context.Context) error { return nil }

type fakeResolver struct {
	customerID int32
}

func (f fakeResolver) GetCustomerID(ctx context.Context, apiKey string) (int32, error) {
	return f.customerID, nil
}

func newTestHandlers(store delivery.Store) (*Handlers, *authguard.Guard) {
	svc := delivery.NewService(store, cursorcache.New(10, time.Minute), fakeSalter{}, zap.NewNop())
	h := New(svc, zap.NewNop())
	guard := authguard.New(fakeResolver{customerID: 1}, zap.NewNop())
	return h, guard
}

func newAuthedEchoContext(method, target string, body []byte) (echo.Context, *httptest.ResponseRecorder, *echo.Echo) {
	e := echo.New()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set(echo.HeaderAuthorization, "Bearer:00000000-0000-0000-0000-000000000000")
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec, e
}

func TestGetNewestLeak_NoUnhandledLeakReturnsEmptyIdentities(t *testing.T) {
	store := &fakeStore{latestMetadata: nil}
	h, guard := newTestHandlers(store)

	c, rec, e := newAuthedEchoContext(http.MethodGet, "/leak", nil)
	e.GET("/leak", h.GetNewestLeak, guard.Middleware())
	e.ServeHTTP(rec, c.Request())

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, ReplyKindNormal, resp.Reply.Kind)
	require.NotNil(t, resp.Reply.Normal)
	assert.Equal(t, "", resp.Reply.Normal.LeakID)
	assert.Empty(t, resp.Reply.Normal.Identities)
}

func TestGetNewestLeak_ReturnsBatchFromService(t *testing.T) {
	store := &fakeStore{
		latestMetadata: &leaktypes.Metadata{LeakID: "leak-1"},
		cursor:         &fakeCursor{docs: []leaktypes.Identity{{ID: primitive.NewObjectID(), Email: []string{"a@b.com"}}}},
	}
	h, guard := newTestHandlers(store)

	c, rec, e := newAuthedEchoContext(http.MethodGet, "/leak?supported_identifiers=EMAIL&limit=10", nil)
	e.GET("/leak", h.GetNewestLeak, guard.Middleware())
	e.ServeHTTP(rec, c.Request())

	require.Equal(t, http.StatusOK, rec.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Reply.Normal)
	assert.Equal(t, "leak-1", resp.Reply.Normal.LeakID)
	assert.Len(t, resp.Reply.Normal.Identities, 1)
}

func TestGetNewestLeak_InvalidSupportedIdentifierReturns400(t *testing.T) {
	store := &fakeStore{}
	h, guard := newTestHandlers(store)

	c, rec, e := newAuthedEchoContext(http.MethodGet, "/leak?supported_identifiers=NOT_A_KIND", nil)
	e.GET("/leak", h.GetNewestLeak, guard.Middleware())
	e.ServeHTTP(rec, c.Request())

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLeak_EmptyBatchReportsAllIdentitiesReceived(t *testing.T) {
	store := &fakeStore{cursor: &fakeCursor{docs: nil}}
	h, guard := newTestHandlers(store)

	c, rec, e := newAuthedEchoContext(http.MethodGet, "/leak/leak-9", nil)
	e.GET("/leak/:leak_id", h.GetLeak, guard.Middleware())
	e.ServeHTTP(rec, c.Request())

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "All identities for this leak have been received", resp.Message)
}

func TestGetLeak_NonEmptyBatchReportsEverythingIsFine(t *testing.T) {
	store := &fakeStore{cursor: &fakeCursor{docs: []leaktypes.Identity{{ID: primitive.NewObjectID()}}}}
	h, guard := newTestHandlers(store)

	c, rec, e := newAuthedEchoContext(http.MethodGet, "/leak/leak-9", nil)
	e.GET("/leak/:leak_id", h.GetLeak, guard.Middleware())
	e.ServeHTTP(rec, c.Request())

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Everything is fine", resp.Message)
}

func TestPostResult_RecordsTallyAndEchoesLeakID(t *testing.T) {
	store := &fakeStore{}
	h, guard := newTestHandlers(store)

	body, err := json.Marshal(resultRequest{LeakID: "leak-7", ReceivedIdentities: 10, NumberOfMatches: 3})
	require.NoError(t, err)

	c, rec, e := newAuthedEchoContext(http.MethodPost, "/result", body)
	e.POST("/result", h.PostResult, guard.Middleware())
	e.ServeHTTP(rec, c.Request())

	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Reply.Normal)
	assert.Equal(t, "leak-7", resp.Reply.Normal.LeakID)
}

func TestHello_UnauthenticatedRouteNeedsNoAuthHeader(t *testing.T) {
	store := &fakeStore{}
	h, _ := newTestHandlers(store)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/hello", nil)
	rec := httptest.NewRecorder()
	e.GET("/hello", h.Hello)
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
