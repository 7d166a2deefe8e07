package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
	"go.uber.org/zap"
)

// newTestStore builds a Store around mt's mocked collection, standing in
// for all four real collections since these tests only exercise one at a
// time.
func newTestStore(mt *mtest.T) *Store {
	return &Store{
		metadata:   mt.Coll,
		identities: mt.Coll,
		customers:  mt.Coll,
		status:     mt.Coll,
		log:        zap.NewNop(),
	}
}

func TestStore_CreateStatus_InsertsInProgressRow(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("create status", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := s.CreateStatus(context.Background(), 42, "leak-1", 100)
		require.NoError(t, err)
	})
}

func TestStore_ClearStatus_DeletesEverything(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("clear status", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 5}))

		err := s.ClearStatus(context.Background())
		require.NoError(t, err)
	})
}

func TestStore_DeleteStatusForCustomer_ScopesToOneCustomer(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("delete status for customer", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := s.DeleteStatusForCustomer(context.Background(), 42)
		require.NoError(t, err)
	})
}

func TestStore_ClearCustomerHandledLeaks_ResetsHandledLeaks(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("clear customer handled leaks", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := s.ClearCustomerHandledLeaks(context.Background(), "some-api-key")
		require.NoError(t, err)
	})
}

func TestStore_GetMetadata_UnknownLeakIDReturnsResultIsEmpty(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("get metadata not found", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "leakchef.metadata", mtest.FirstBatch))

		_, err := s.GetMetadata(context.Background(), "no-such-leak")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResultIsEmpty)
	})
}

func TestStore_GetCustomerID_UnknownAPIKeyReturnsResultIsEmpty(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	defer mt.Close()

	mt.Run("get customer id not found", func(mt *mtest.T) {
		s := newTestStore(mt)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "leakchef.customers", mtest.FirstBatch))

		_, err := s.GetCustomerID(context.Background(), "unknown-token")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrResultIsEmpty)
	})
}
