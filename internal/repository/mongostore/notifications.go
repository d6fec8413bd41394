package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bloodfinder/m/domain"
)

// CreateNotifications inserts a batch of notifications.
func (s *Store) CreateNotifications(ctx context.Context, ns []*domain.Notification) error {
	if len(ns) == 0 {
		return nil
	}

	now := s.timestamp()
	docs := make([]interface{}, 0, len(ns))
	for _, n := range ns {
		if n.ID == "" {
			n.ID = uuid.New().String()
		}
		if n.CreatedAt.IsZero() {
			n.CreatedAt = now
		}
		n.CreatedAt = n.CreatedAt.UTC()
		docs = append(docs, n)
	}

	if _, err := s.notifications.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to create notifications: %w", err)
	}
	return nil
}

// ListNotifications lists a recipient's notifications in [from, to), newest first.
func (s *Store) ListNotifications(ctx context.Context, userID string, from, to time.Time, limit int) ([]*domain.Notification, error) {
	filter := bson.M{"user": userID}
	window := bson.M{}
	if !from.IsZero() {
		window["$gte"] = from.UTC()
	}
	if !to.IsZero() {
		window["$lt"] = to.UTC()
	}
	if len(window) > 0 {
		filter["createdAt"] = window
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.notifications.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	notifications := []*domain.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread counts a recipient's unread notifications.
func (s *Store) CountUnread(ctx context.Context, userID string) (int, error) {
	n, err := s.notifications.CountDocuments(ctx, bson.M{"user": userID, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return int(n), nil
}

// MarkAllRead marks every unread notification of a recipient as read.
func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := s.notifications.UpdateMany(ctx,
		bson.M{"user": userID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return res.ModifiedCount, nil
}
