// Package mongostore implements the repository on MongoDB. Request expiry is
// delegated to a TTL index on expireAt; reads also filter on expireAt so a
// request is never visible between its expiry and the next TTL sweep.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bloodfinder/m/internal/repository"
)

const (
	accountsCollection      = "users"
	stockCollection         = "bloodstocks"
	requestsCollection      = "emergencyrequests"
	donationsCollection     = "donations"
	notificationsCollection = "notifications"
)

// Store implements repository.Store on a MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time

	accounts      *mongo.Collection
	stock         *mongo.Collection
	requests      *mongo.Collection
	donations     *mongo.Collection
	notifications *mongo.Collection
}

var _ repository.Store = (*Store)(nil)

// New binds a store to database name on client.
func New(client *mongo.Client, name string) *Store {
	db := client.Database(name)
	return &Store{
		client:        client,
		db:            db,
		now:           time.Now,
		accounts:      db.Collection(accountsCollection),
		stock:         db.Collection(stockCollection),
		requests:      db.Collection(requestsCollection),
		donations:     db.Collection(donationsCollection),
		notifications: db.Collection(notificationsCollection),
	}
}

// SetClock replaces the clock used for timestamps and the expiry filter.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// EnsureIndexes creates the unique, lookup and TTL indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := map[*mongo.Collection][]mongo.IndexModel{
		s.accounts: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "cityKey", Value: 1}}},
			{Keys: bson.D{{Key: "zipcodeKey", Value: 1}}},
		},
		s.stock: {
			{Keys: bson.D{{Key: "bloodBank", Value: 1}, {Key: "bloodGroup", Value: 1}, {Key: "expiryDate", Value: 1}}},
		},
		s.requests: {
			{Keys: bson.D{{Key: "expireAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "cityKey", Value: 1}, {Key: "zipcodeKey", Value: 1}}},
			{Keys: bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		s.donations: {
			{Keys: bson.D{{Key: "bloodBank", Value: 1}, {Key: "donationDate", Value: -1}}},
		},
		s.notifications: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for coll, models := range indexes {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// WithTx runs fn inside a multi-document transaction. This needs a replica
// set or sharded cluster. Nested calls join the outer transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Store) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx, s)
	}

	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) timestamp() time.Time {
	return s.now().UTC()
}

// locationFilter matches documents whose normalized city or zipcode equals
// the non-empty parts of key. ok is false when key has no usable part.
func locationFilter(city, zipcode string) (bson.A, bool) {
	or := bson.A{}
	if city != "" {
		or = append(or, bson.M{"cityKey": city})
	}
	if zipcode != "" {
		or = append(or, bson.M{"zipcodeKey": zipcode})
	}
	return or, len(or) > 0
}
