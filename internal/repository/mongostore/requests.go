package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bloodfinder/m/domain"
)

type requestDoc struct {
	domain.EmergencyRequest `bson:",inline"`
	CityKey                 string `bson:"cityKey"`
	ZipcodeKey              string `bson:"zipcodeKey"`
}

func (s *Store) unexpired(filter bson.M) bson.M {
	filter["expireAt"] = bson.M{"$gt": s.timestamp()}
	return filter
}

// CreateRequest inserts an emergency request.
func (s *Store) CreateRequest(ctx context.Context, r *domain.EmergencyRequest) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Status == "" {
		r.Status = domain.StatusActive
	}
	if r.Version == 0 {
		r.Version = 1
	}
	now := s.timestamp()
	r.CreatedAt = now
	r.UpdatedAt = now
	r.ExpireAt = r.ExpireAt.UTC()
	key := r.Location().Normalize()

	doc := requestDoc{EmergencyRequest: *r, CityKey: key.City, ZipcodeKey: key.Zipcode}
	if _, err := s.requests.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetRequest gets an unexpired request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (*domain.EmergencyRequest, error) {
	var doc requestDoc
	if err := s.requests.FindOne(ctx, s.unexpired(bson.M{"_id": id})).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &doc.EmergencyRequest, nil
}

// ListRequestsByCreator lists a requester's requests, newest first.
func (s *Store) ListRequestsByCreator(ctx context.Context, userID string) ([]*domain.EmergencyRequest, error) {
	return s.findRequests(ctx, s.unexpired(bson.M{"createdBy": userID}))
}

// ListActiveRequestsNear lists Active requests in the same city or zipcode as loc.
func (s *Store) ListActiveRequestsNear(ctx context.Context, loc domain.Location) ([]*domain.EmergencyRequest, error) {
	key := loc.Normalize()
	or, ok := locationFilter(key.City, key.Zipcode)
	if !ok {
		return []*domain.EmergencyRequest{}, nil
	}
	return s.findRequests(ctx, s.unexpired(bson.M{"status": domain.StatusActive, "$or": or}))
}

func (s *Store) findRequests(ctx context.Context, filter bson.M) ([]*domain.EmergencyRequest, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.requests.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	var docs []requestDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode requests: %w", err)
	}

	requests := make([]*domain.EmergencyRequest, 0, len(docs))
	for i := range docs {
		requests = append(requests, &docs[i].EmergencyRequest)
	}
	return requests, nil
}

// UpdateRequest writes the editable fields of r when it is still Active and
// unchanged since r.Version was read. r.Version is bumped on success.
func (s *Store) UpdateRequest(ctx context.Context, r *domain.EmergencyRequest) error {
	now := s.timestamp()
	key := r.Location().Normalize()
	filter := s.unexpired(bson.M{"_id": r.ID, "status": domain.StatusActive, "version": r.Version})
	update := bson.M{
		"$set": bson.M{
			"patientName":   r.PatientName,
			"hospitalName":  r.HospitalName,
			"bloodGroup":    r.BloodGroup,
			"unitsRequired": r.UnitsRequired,
			"urgency":       r.Urgency,
			"timeNeeded":    r.TimeNeeded,
			"address":       r.Address,
			"city":          r.City,
			"zipcode":       r.Zipcode,
			"cityKey":       key.City,
			"zipcodeKey":    key.Zipcode,
			"contactNumber": r.ContactNumber,
			"expireAt":      r.ExpireAt.UTC(),
			"updatedAt":     now,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := s.requests.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, r.ID, domain.ErrVersionMismatch)
	}
	r.Version++
	r.UpdatedAt = now
	return nil
}

// TransitionRequest moves an Active request to status.
func (s *Store) TransitionRequest(ctx context.Context, id string, status domain.RequestStatus, fulfilledBy string, at time.Time) error {
	if !domain.StatusActive.CanTransition(status) {
		return domain.Validationf("cannot move a request to %s", status)
	}

	filter := s.unexpired(bson.M{"_id": id, "status": domain.StatusActive})
	update := bson.M{
		"$set": bson.M{"status": status, "fulfilledBy": fulfilledBy, "updatedAt": at.UTC()},
		"$inc": bson.M{"version": 1},
	}
	res, err := s.requests.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if res.MatchedCount == 0 {
		return s.explainMiss(ctx, id, domain.ErrRequestNotActive)
	}
	return nil
}

func (s *Store) explainMiss(ctx context.Context, id string, stale error) error {
	r, err := s.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if !r.IsActive() {
		return domain.ErrRequestNotActive
	}
	return stale
}
