// Package delivery implements the Leak Delivery Service: the orchestration
// layer that turns (customer, leak, limit) into a salted batch of
// credentials, and records how far each customer has progressed.
package delivery

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/arc-self/leakchef-server/internal/cursorcache"
	"github.com/arc-self/leakchef-server/internal/leaktypes"
	"github.com/arc-self/leakchef-server/internal/salt"
	"github.com/arc-self/leakchef-server/internal/store"
)

// Store is the subset of the Store Adapter the delivery service depends on.
// Expressed as an interface so tests can supply a fake without a live
// MongoDB.
type Store interface {
	GetLatestMetadata(ctx context.Context, customerID int32) (*leaktypes.Metadata, error)
	GetMetadata(ctx context.Context, leakID string) (leaktypes.Metadata, error)
	OpenIdentityCursor(ctx context.Context, leakID string) (cursorcache.MongoCursor, error)
	UpdateHandledLeaks(ctx context.Context, customerID int32, leakID string) error
	UpdateStatus(ctx context.Context, customerID int32, leakID string, lastSentID *primitive.ObjectID, identitiesRead int32, leakStatus leaktypes.LeakStatus) error
	SetLeakDone(ctx context.Context, customerID int32, leakID string) error
	UpdateResult(ctx context.Context, leakID string, customerID int32, receivedIdentities, numberOfMatches uint32) error
	GetCustomerSalt(ctx context.Context, customerID int32) (string, error)
}

// Salter is the subset of *salt.Salter the delivery service depends on.
type Salter interface {
	SaltBatch(batch []leaktypes.PartialIdentity, supported []leaktypes.Identifier, customerSalt string) ([]leaktypes.MappedIdentity, error)
}

// Service is the Leak Delivery Service.
type Service struct {
	store  Store
	cache  *cursorcache.Cache
	salter Salter
	log    *zap.Logger
}

// NewService constructs a delivery Service.
func NewService(store Store, cache *cursorcache.Cache, salter Salter, log *zap.Logger) *Service {
	return &Service{store: store, cache: cache, salter: salter, log: log}
}

// Batch is the result of a single PullBatch/GetNewest/GetSpecific call.
type Batch struct {
	LeakID     string
	Identities []leaktypes.MappedIdentity
}

// GetNewest hands the customer their next unhandled finished leak and the
// first batch of identities from it.
//
// UpdateHandledLeaks is called as soon as a leak is selected, before the
// first batch is even pulled — so a crash between the two calls loses that
// leak for this customer permanently (it will never be selected again, and
// no identities were ever sent). This is a known, deliberately
// unresolved gap; see DESIGN.md.
func (s *Service) GetNewest(ctx context.Context, customerID int32, limit int, supported []leaktypes.Identifier) (Batch, error) {
	metadata, err := s.store.GetLatestMetadata(ctx, customerID)
	if err != nil {
		return Batch{}, fmt.Errorf("get latest metadata: %w", err)
	}
	if metadata == nil {
		return Batch{LeakID: "", Identities: nil}, nil
	}

	leakID := metadata.LeakID
	if err := s.store.UpdateHandledLeaks(ctx, customerID, leakID); err != nil {
		return Batch{}, fmt.Errorf("mark leak handled: %w", err)
	}

	partials, err := s.pullBatch(ctx, customerID, leakID, limit)
	if err != nil {
		return Batch{}, err
	}

	return s.finishBatch(ctx, customerID, leakID, partials, supported)
}

// GetSpecific pulls the next batch of identities for an already-known leak.
func (s *Service) GetSpecific(ctx context.Context, customerID int32, leakID string, limit int, supported []leaktypes.Identifier) (Batch, error) {
	partials, err := s.pullBatch(ctx, customerID, leakID, limit)
	if err != nil {
		return Batch{}, err
	}
	return s.finishBatch(ctx, customerID, leakID, partials, supported)
}

// finishBatch records progress and salts a pulled batch — the tail shared
// by GetNewest and GetSpecific once they have a leak id and raw partials.
//
// An empty batch means pullBatch found the leak drained (step 5 of the
// PullBatch algorithm): the caller treats this as terminal and marks the
// progress row done via SetLeakDone rather than advancing it with
// UpdateStatus, since there is no last-sent identity or identities-read
// count to record.
func (s *Service) finishBatch(ctx context.Context, customerID int32, leakID string, partials []leaktypes.PartialIdentity, supported []leaktypes.Identifier) (Batch, error) {
	if len(partials) == 0 {
		if err := s.store.SetLeakDone(ctx, customerID, leakID); err != nil {
			return Batch{}, fmt.Errorf("set leak done: %w", err)
		}
	} else {
		lastSent := partials[len(partials)-1].ObjectID
		if err := s.store.UpdateStatus(ctx, customerID, leakID, &lastSent, int32(len(partials)), leaktypes.LeakStatusInProgress); err != nil {
			return Batch{}, fmt.Errorf("update status: %w", err)
		}
	}

	customerSalt, err := s.store.GetCustomerSalt(ctx, customerID)
	if err != nil {
		return Batch{}, fmt.Errorf("get customer salt: %w", err)
	}

	mapped, err := s.salter.SaltBatch(partials, supported, customerSalt)
	if err != nil {
		return Batch{}, fmt.Errorf("salt batch: %w", err)
	}

	return Batch{LeakID: leakID, Identities: mapped}, nil
}

// pullBatch implements the PullBatch algorithm: reuse a cached, in-flight
// cursor for (customerID, leakID) if one exists, otherwise open a fresh one
// scoped to the leak's matching-identity query; pull up to limit
// identities; re-cache the cursor unless the pull came back empty.
func (s *Service) pullBatch(ctx context.Context, customerID int32, leakID string, limit int) ([]leaktypes.PartialIdentity, error) {
	key := cursorcache.Key(customerID, leakID)

	stream, cached := s.cache.Take(key)
	if !cached {
		cursor, err := s.store.OpenIdentityCursor(ctx, leakID)
		if err != nil {
			return nil, fmt.Errorf("open identity cursor: %w", err)
		}
		stream = cursorcache.NewChunkedIdentityStream(cursor, limit)
	}

	batch, err := stream.NextBatch(ctx)
	if err != nil {
		s.log.Error("pull batch failed", zap.String("leak_id", leakID), zap.Int32("customer_id", customerID), zap.Error(err))
		_ = stream.Close(ctx)
		return nil, fmt.Errorf("next batch: %w", err)
	}

	if len(batch) == 0 {
		_ = stream.Close(ctx)
		return batch, nil
	}

	s.cache.Put(key, stream)
	return batch, nil
}

// PostResult records a customer's self-reported ingestion tally for a leak.
func (s *Service) PostResult(ctx context.Context, customerID int32, leakID string, receivedIdentities, numberOfMatches uint32) error {
	if err := s.store.UpdateResult(ctx, leakID, customerID, receivedIdentities, numberOfMatches); err != nil {
		return fmt.Errorf("update result: %w", err)
	}
	return nil
}

var (
	_ Salter = (*salt.Salter)(nil)
	_ Store  = (*store.Store)(nil)
)
