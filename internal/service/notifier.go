package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"bloodfinder/m/domain"
	"bloodfinder/m/internal/notify"
	"bloodfinder/m/internal/repository"
)

// NotificationLimit caps how many notifications one listing returns.
const NotificationLimit = 100

// emergencyRecipients are the roles told about a new request nearby.
var emergencyRecipients = []domain.Role{domain.RoleDonor, domain.RoleBloodBank}

// Notifier stores notifications and pushes them to live clients.
type Notifier struct {
	store     repository.Store
	publisher notify.Publisher
	logger    *zap.Logger
	wg        sync.WaitGroup
}

// NewNotifier creates a notifier. A nil publisher disables live delivery.
func NewNotifier(store repository.Store, publisher notify.Publisher, logger *zap.Logger) *Notifier {
	if publisher == nil {
		publisher = notify.Nop{}
	}
	return &Notifier{store: store, publisher: publisher, logger: logger}
}

// FanOutEmergency notifies every donor and blood bank near r, except its
// creator, and returns how many notifications were stored.
func (n *Notifier) FanOutEmergency(ctx context.Context, r *domain.EmergencyRequest) (int, error) {
	accounts, err := n.store.FindAccountsNear(ctx, r.Location(), emergencyRecipients, r.CreatedBy)
	if err != nil {
		return 0, err
	}

	message := domain.EmergencyMessage(r)
	notifications := make([]*domain.Notification, 0, len(accounts))
	for _, a := range accounts {
		if a.ID == r.CreatedBy || !domain.Matches(a.Location(), r.Location()) {
			continue
		}
		notifications = append(notifications, &domain.Notification{
			UserID:  a.ID,
			Message: message,
			Link:    domain.EmergencyLink,
		})
	}
	if len(notifications) == 0 {
		return 0, nil
	}

	if err := n.store.CreateNotifications(ctx, notifications); err != nil {
		return 0, err
	}
	n.Publish(ctx, notifications)
	return len(notifications), nil
}

// DispatchEmergency runs FanOutEmergency in the background. Failures are
// logged and never reach the caller.
func (n *Notifier) DispatchEmergency(r *domain.EmergencyRequest) {
	snapshot := *r
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		sent, err := n.FanOutEmergency(ctx, &snapshot)
		if err != nil {
			n.logger.Error("failed to create emergency notifications",
				zap.String("request_id", snapshot.ID), zap.Error(err))
			return
		}
		n.logger.Info("sent emergency notifications",
			zap.String("request_id", snapshot.ID), zap.Int("recipients", sent))
	}()
}

// Wait blocks until every dispatched fan-out has finished.
func (n *Notifier) Wait() {
	n.wg.Wait()
}

// Publish pushes already stored notifications to live clients. Delivery is
// best effort.
func (n *Notifier) Publish(ctx context.Context, ns []*domain.Notification) {
	if err := n.publisher.Publish(ctx, ns); err != nil {
		n.logger.Warn("failed to publish notifications", zap.Int("count", len(ns)), zap.Error(err))
	}
}

// NotificationPage is a recipient's notification listing.
type NotificationPage struct {
	Notifications []*domain.Notification `json:"notifications"`
	UnreadCount   int                    `json:"unreadCount"`
}

// List returns up to NotificationLimit of user's notifications, newest first.
// When both year and month are set only that calendar month (UTC) is listed.
func (n *Notifier) List(ctx context.Context, user *domain.Account, year, month int) (*NotificationPage, error) {
	var from, to time.Time
	if year != 0 || month != 0 {
		if year <= 0 || month < 1 || month > 12 {
			return nil, domain.Validationf("year and month must both be given, month between 1 and 12")
		}
		from = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		to = from.AddDate(0, 1, 0)
	}

	notifications, err := n.store.ListNotifications(ctx, user.ID, from, to, NotificationLimit)
	if err != nil {
		return nil, err
	}
	unread, err := n.store.CountUnread(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &NotificationPage{Notifications: notifications, UnreadCount: unread}, nil
}

// MarkAllRead marks all of user's notifications as read.
func (n *Notifier) MarkAllRead(ctx context.Context, user *domain.Account) (int64, error) {
	return n.store.MarkAllRead(ctx, user.ID)
}
