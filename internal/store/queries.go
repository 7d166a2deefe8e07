package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/arc-self/leakchef-server/internal/cursorcache"
	"github.com/arc-self/leakchef-server/internal/leaktypes"
)

// GetCustomerID resolves a bearer token's raw UUID string to the
// customer_id it belongs to. Returns ErrResultIsEmpty if no customer owns
// that token.
func (s *Store) GetCustomerID(ctx context.Context, apiKey string) (int32, error) {
	var customer leaktypes.Customer
	err := s.customers.FindOne(ctx, bson.M{"api_key": apiKey}).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return 0, ErrResultIsEmpty
	}
	if err != nil {
		s.log.Error("find customer by api_key failed", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrFind, err)
	}
	return customer.CustomerID, nil
}

// GetCustomerSalt returns the per-customer salt used by the Identifier
// Salter.
func (s *Store) GetCustomerSalt(ctx context.Context, customerID int32) (string, error) {
	var customer leaktypes.Customer
	err := s.customers.FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return "", ErrResultIsEmpty
	}
	if err != nil {
		s.log.Error("find customer salt failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrFind, err)
	}
	return customer.CustomerSalt, nil
}

// GetHandledLeaksForCustomer returns the leak ids a customer has already
// been handed via GetNewest, whether or not they have finished pulling
// every batch from them.
func (s *Store) GetHandledLeaksForCustomer(ctx context.Context, customerID int32) ([]string, error) {
	var customer leaktypes.Customer
	err := s.customers.FindOne(ctx, bson.M{"customer_id": customerID}).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("%w: unknown customer", ErrFind)
	}
	if err != nil {
		s.log.Error("find handled leaks failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFind, err)
	}
	return customer.HandledLeaks, nil
}

// GetLatestMetadata returns a finished leak that has not yet been handed to
// this customer, or nil if none is available. It is the first match in the
// store's natural order; no sort by recency is applied.
func (s *Store) GetLatestMetadata(ctx context.Context, customerID int32) (*leaktypes.Metadata, error) {
	handled, err := s.GetHandledLeaksForCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}

	query := bson.M{
		"status":  leaktypes.LeakStatusFinished,
		"leak_id": bson.M{"$nin": handled},
	}
	var md leaktypes.Metadata
	err = s.metadata.FindOne(ctx, query).Decode(&md)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		s.log.Error("find latest metadata failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFind, err)
	}
	return &md, nil
}

// GetMetadata fetches the metadata document for a specific leak id.
func (s *Store) GetMetadata(ctx context.Context, leakID string) (leaktypes.Metadata, error) {
	var md leaktypes.Metadata
	err := s.metadata.FindOne(ctx, bson.M{"leak_id": leakID}).Decode(&md)
	if err == mongo.ErrNoDocuments {
		return leaktypes.Metadata{}, ErrResultIsEmpty
	}
	if err != nil {
		s.log.Error("find metadata failed", zap.String("leak_id", leakID), zap.Error(err))
		return leaktypes.Metadata{}, fmt.Errorf("%w: %v", ErrFind, err)
	}
	return md, nil
}

// OpenIdentityCursor opens a fresh, unindexed-by-customer cursor over every
// identity in leak_id that carries at least one password and at least one
// of email/phone. This is the query the Cursor Cache wraps in a
// ChunkedIdentityStream.
func (s *Store) OpenIdentityCursor(ctx context.Context, leakID string) (cursorcache.MongoCursor, error) {
	query := bson.M{
		"leak_id":  leakID,
		"password": bson.M{"$exists": true, "$ne": bson.A{}},
		"$or": bson.A{
			bson.M{"email": bson.M{"$exists": true, "$ne": bson.A{}}},
			bson.M{"phone": bson.M{"$exists": true, "$ne": bson.A{}}},
		},
	}
	cursor, err := s.identities.Find(ctx, query)
	if err != nil {
		s.log.Error("open identity cursor failed", zap.String("leak_id", leakID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFind, err)
	}
	return cursor, nil
}

// GetLastReceivedIdentity returns the ObjectID of the last identity sent to
// a customer for a given leak, or nil if none has been sent yet. A customer
// may be pulling several leaks concurrently, so the lookup is keyed on both
// customer_id and current_leak_id, not customer_id alone.
func (s *Store) GetLastReceivedIdentity(ctx context.Context, customerID int32, leakID string) (*primitive.ObjectID, error) {
	query := bson.M{"customer_id": customerID, "current_leak_id": leakID}
	var status leaktypes.Status
	err := s.status.FindOne(ctx, query).Decode(&status)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		s.log.Error("find last received identity failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFind, err)
	}
	return status.LastReceivedIdentity, nil
}

// GetIdentitiesLeft returns the remaining identity count for a
// (customer, leak) pair, falling back to the leak's total parsed-identity
// count if no Status row exists yet (i.e. this is the first pull).
func (s *Store) GetIdentitiesLeft(ctx context.Context, customerID int32, leakID string) (int32, error) {
	query := bson.M{"customer_id": customerID, "current_leak_id": leakID}

	md, err := s.GetMetadata(ctx, leakID)
	if err != nil {
		return 0, err
	}

	var status leaktypes.Status
	err = s.status.FindOne(ctx, query).Decode(&status)
	if err == mongo.ErrNoDocuments {
		return int32(md.ExtractedIdentities), nil
	}
	if err != nil {
		s.log.Error("find identities left failed", zap.Error(err))
		return 0, fmt.Errorf("%w: %v", ErrFind, err)
	}
	return int32(status.IdentitiesLeft), nil
}

// UpdateStatus upserts the per-(customer, leak) progress row after a batch
// has been sent: it advances last_received_identity (when the batch was
// non-empty), sets the lifecycle status, and decrements identities_left by
// identitiesRead.
func (s *Store) UpdateStatus(ctx context.Context, customerID int32, leakID string, lastSentID *primitive.ObjectID, identitiesRead int32, leakStatus leaktypes.LeakStatus) error {
	query := bson.M{"customer_id": customerID, "current_leak_id": leakID}

	currentLeft, err := s.GetIdentitiesLeft(ctx, customerID, leakID)
	if err != nil {
		return err
	}
	newLeft := currentLeft - identitiesRead

	set := bson.M{
		"identities_left": newLeft,
		"leak_status":     leakStatus,
	}
	if lastSentID != nil {
		set["last_received_identity"] = *lastSentID
	}

	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"customer_id":     customerID,
			"current_leak_id": leakID,
		},
	}

	_, err = s.status.UpdateOne(ctx, query, update, options.Update().SetUpsert(true))
	if err != nil {
		s.log.Error("update status failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}
	return nil
}

// CreateStatus inserts a fresh in-progress status row for a (customer,
// leak) pair with an explicit starting identities_left count. UpdateStatus
// itself creates this row lazily via upsert on the first real batch, so
// CreateStatus exists only to seed fixtures ahead of time in tests.
func (s *Store) CreateStatus(ctx context.Context, customerID int32, leakID string, identitiesLeft uint32) error {
	status := leaktypes.Status{
		CustomerID:     customerID,
		CurrentLeakID:  leakID,
		IdentitiesLeft: identitiesLeft,
		LeakStatus:     leaktypes.LeakStatusInProgress,
	}
	if _, err := s.status.InsertOne(ctx, status); err != nil {
		s.log.Error("create status failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrInsert, err)
	}
	return nil
}

// ClearStatus deletes every document in the status collection. Test-only:
// it resets the whole collection between test runs.
func (s *Store) ClearStatus(ctx context.Context) error {
	if _, err := s.status.DeleteMany(ctx, bson.M{}); err != nil {
		s.log.Error("clear status failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}
	return nil
}

// DeleteStatusForCustomer deletes every status row belonging to
// customerID. Test-only: it resets one customer's progress between test
// runs without touching the rest of the collection.
func (s *Store) DeleteStatusForCustomer(ctx context.Context, customerID int32) error {
	if _, err := s.status.DeleteMany(ctx, bson.M{"customer_id": customerID}); err != nil {
		s.log.Error("delete status for customer failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}
	return nil
}

// ClearCustomerHandledLeaks resets a customer's handled_leaks array back to
// empty, keyed by api_key rather than customer_id. Test-only: it lets a
// test re-run GetNewest against leaks the same customer has already been
// handed.
func (s *Store) ClearCustomerHandledLeaks(ctx context.Context, apiKey string) error {
	query := bson.M{"api_key": apiKey}
	update := bson.M{"$set": bson.M{"handled_leaks": bson.A{}}}
	if _, err := s.customers.UpdateOne(ctx, query, update); err != nil {
		s.log.Error("clear customer handled leaks failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}
	return nil
}

// SetLeakDone marks a (customer, leak) progress row as finished without
// touching identities_left or last_received_identity.
func (s *Store) SetLeakDone(ctx context.Context, customerID int32, leakID string) error {
	query := bson.M{"customer_id": customerID, "current_leak_id": leakID}
	update := bson.M{"$set": bson.M{"leak_status": leaktypes.LeakStatusFinished}}

	_, err := s.status.UpdateOne(ctx, query, update)
	if err != nil {
		s.log.Error("set leak done failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}
	return nil
}

// UpdateResult records a customer's self-reported ingestion tally for a
// leak and marks that leak's progress row finished.
func (s *Store) UpdateResult(ctx context.Context, leakID string, customerID int32, receivedIdentities, numberOfMatches uint32) error {
	query := bson.M{"customer_id": customerID, "current_leak_id": leakID}

	result := leaktypes.LeakResult{
		IdentitiesReceived: receivedIdentities,
		FullMatches:        int32(numberOfMatches),
	}
	update := bson.M{
		"$set": bson.M{
			"leak_result": result,
			"leak_status": leaktypes.LeakStatusFinished,
		},
	}

	_, err := s.status.UpdateOne(ctx, query, update)
	if err != nil {
		s.log.Error("update result failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}
	return nil
}

// UpdateHandledLeaks appends leakID to a customer's handled_leaks list,
// marking it as "already handed out via GetNewest" regardless of whether
// the customer has finished pulling every identity from it yet.
func (s *Store) UpdateHandledLeaks(ctx context.Context, customerID int32, leakID string) error {
	query := bson.M{"customer_id": customerID}
	update := bson.M{"$push": bson.M{"handled_leaks": leakID}}

	_, err := s.customers.UpdateOne(ctx, query, update)
	if err != nil {
		s.log.Error("update handled leaks failed", zap.Error(err))
		return fmt.Errorf("%w: %v", ErrUpdate, err)
	}
	return nil
}
