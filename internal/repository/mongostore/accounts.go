package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bloodfinder/m/domain"
)

type accountDoc struct {
	domain.Account `bson:",inline"`
	CityKey        string `bson:"cityKey"`
	ZipcodeKey     string `bson:"zipcodeKey"`
}

// CreateAccount inserts an account. Emails are stored lowercased.
func (s *Store) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.timestamp()
	}
	a.Email = strings.ToLower(strings.TrimSpace(a.Email))
	key := a.Location().Normalize()

	_, err := s.accounts.InsertOne(ctx, accountDoc{Account: *a, CityKey: key.City, ZipcodeKey: key.Zipcode})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateAccount
		}
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetAccount gets an account by ID.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": id})
}

// GetAccountByEmail gets an account by its (case-insensitive) email.
func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findAccount(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (s *Store) findAccount(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDoc
	if err := s.accounts.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &doc.Account, nil
}

// FindAccountsNear finds accounts with one of roles in the same city or zipcode as loc.
func (s *Store) FindAccountsNear(ctx context.Context, loc domain.Location, roles []domain.Role, excludeID string) ([]*domain.Account, error) {
	key := loc.Normalize()
	or, ok := locationFilter(key.City, key.Zipcode)
	if !ok || len(roles) == 0 {
		return []*domain.Account{}, nil
	}

	filter := bson.M{
		"role": bson.M{"$in": roles},
		"_id":  bson.M{"$ne": excludeID},
		"$or":  or,
	}
	cursor, err := s.accounts.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find accounts: %w", err)
	}

	var docs []accountDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}

	accounts := make([]*domain.Account, 0, len(docs))
	for i := range docs {
		accounts = append(accounts, &docs[i].Account)
	}
	return accounts, nil
}
