package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bloodfinder/m/domain"
)

const requestColumns = `id, created_by, patient_name, hospital_name, blood_group, units_required,
	urgency, time_needed, address, city, zipcode, contact_number, status, fulfilled_by,
	expire_at, version, created_at, updated_at`

// purgeExpired deletes requests past their expiry. It runs before every
// request read so expired rows are never visible.
func (s *Store) purgeExpired(ctx context.Context) error {
	if _, err := s.exec(ctx, `DELETE FROM emergency_requests WHERE expire_at <= ?`, s.timestamp()); err != nil {
		return fmt.Errorf("failed to purge expired requests: %w", err)
	}
	return nil
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

	_, err := s.exec(ctx, `
		INSERT INTO emergency_requests (
			id, created_by, patient_name, hospital_name, blood_group, units_required,
			urgency, time_needed, address, city, zipcode, city_key, zipcode_key,
			contact_number, status, fulfilled_by, expire_at, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedBy, r.PatientName, r.HospitalName, r.BloodGroup, r.UnitsRequired,
		r.Urgency, r.TimeNeeded, r.Address, r.City, r.Zipcode, key.City, key.Zipcode,
		r.ContactNumber, r.Status, r.FulfilledBy, r.ExpireAt, r.Version, r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return nil
}

// GetRequest gets an unexpired request by ID.
func (s *Store) GetRequest(ctx context.Context, id string) (*domain.EmergencyRequest, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}

	var r domain.EmergencyRequest
	err := s.get(ctx, &r, `SELECT `+requestColumns+` FROM emergency_requests WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	return &r, nil
}

// ListRequestsByCreator lists a requester's requests, newest first.
func (s *Store) ListRequestsByCreator(ctx context.Context, userID string) ([]*domain.EmergencyRequest, error) {
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}

	requests := []*domain.EmergencyRequest{}
	err := s.selectAll(ctx, &requests, `
		SELECT `+requestColumns+`
		FROM emergency_requests
		WHERE created_by = ?
		ORDER BY created_at DESC, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

// ListActiveRequestsNear lists Active requests in the same city or zipcode as loc.
func (s *Store) ListActiveRequestsNear(ctx context.Context, loc domain.Location) ([]*domain.EmergencyRequest, error) {
	key := loc.Normalize()
	if key.City == "" && key.Zipcode == "" {
		return []*domain.EmergencyRequest{}, nil
	}
	if err := s.purgeExpired(ctx); err != nil {
		return nil, err
	}

	requests := []*domain.EmergencyRequest{}
	err := s.selectAll(ctx, &requests, `
		SELECT `+requestColumns+`
		FROM emergency_requests
		WHERE status = ?
		AND ((city_key <> '' AND city_key = ?) OR (zipcode_key <> '' AND zipcode_key = ?))
		ORDER BY created_at DESC, id`,
		domain.StatusActive, key.City, key.Zipcode,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return requests, nil
}

// UpdateRequest writes the editable fields of r when it is still Active and
// unchanged since r.Version was read. r.Version is bumped on success.
func (s *Store) UpdateRequest(ctx context.Context, r *domain.EmergencyRequest) error {
	if err := s.purgeExpired(ctx); err != nil {
		return err
	}

	now := s.timestamp()
	key := r.Location().Normalize()
	n, err := s.exec(ctx, `
		UPDATE emergency_requests
		SET patient_name = ?, hospital_name = ?, blood_group = ?, units_required = ?,
			urgency = ?, time_needed = ?, address = ?, city = ?, zipcode = ?,
			city_key = ?, zipcode_key = ?, contact_number = ?, expire_at = ?,
			version = version + 1, updated_at = ?
		WHERE id = ? AND status = ? AND version = ?`,
		r.PatientName, r.HospitalName, r.BloodGroup, r.UnitsRequired,
		r.Urgency, r.TimeNeeded, r.Address, r.City, r.Zipcode,
		key.City, key.Zipcode, r.ContactNumber, r.ExpireAt.UTC(),
		now, r.ID, domain.StatusActive, r.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update request: %w", err)
	}
	if n == 0 {
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
	if err := s.purgeExpired(ctx); err != nil {
		return err
	}

	n, err := s.exec(ctx, `
		UPDATE emergency_requests
		SET status = ?, fulfilled_by = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND status = ?`,
		status, fulfilledBy, at.UTC(), id, domain.StatusActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update request status: %w", err)
	}
	if n == 0 {
		return s.explainMiss(ctx, id, domain.ErrRequestNotActive)
	}
	return nil
}

// explainMiss tells apart a missing request, an inactive one and a stale
// write after a guarded update matched no rows.
func (s *Store) explainMiss(ctx context.Context, id string, stale error) error {
	var status domain.RequestStatus
	err := s.get(ctx, &status, `SELECT status FROM emergency_requests WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrRequestNotFound
		}
		return fmt.Errorf("failed to get request: %w", err)
	}
	if status != domain.StatusActive {
		return domain.ErrRequestNotActive
	}
	return stale
}
