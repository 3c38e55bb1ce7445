// SPDX-License-Identifier: AGPL-3.0-or-later
// SPDX-FileCopyrightText: 2025 GatherHub Authors

// Package sqlite implements a SQLite-based persistence driver using GORM.
package sqlite

import (
	"context"
	"fmt"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gatherhub/gatherhub-go/internal/store"
)

func init() {
	store.Register("sqlite", NewDriver)
}

// Driver implements the store.Store interface using SQLite via GORM.
type Driver struct {
	dataDir     string
	busyTimeout int
	db          *gorm.DB
}

// NewDriver creates a new SQLite driver instance.
func NewDriver(cfg *store.DriverConfig) (store.Store, error) {
	if cfg.DataDir == "" {
		return nil, fmt.Errorf("data_dir is required for sqlite driver")
	}

	return &Driver{
		dataDir:     cfg.DataDir,
		busyTimeout: cfg.BusyTimeoutMS,
	}, nil
}

// Name returns the driver name.
func (d *Driver) Name() string {
	return "sqlite"
}

// Init initializes the SQLite database and runs AutoMigrate.
func (d *Driver) Init(ctx context.Context) error {
	dbPath := filepath.Join(d.dataDir, "gatherhub.db")

	dsn := dbPath
	if d.busyTimeout > 0 {
		dsn = fmt.Sprintf("%s?_busy_timeout=%d", dbPath, d.busyTimeout)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	d.db = db

	// AutoMigrate creates/updates tables based on model structs
	if err := db.AutoMigrate(
		&store.User{},
		&store.Event{},
		&store.Rsvp{},
		&store.Checkin{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (d *Driver) Close() error {
	if d.db == nil {
		return nil
	}
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// UserStore implementation

// CreateUser creates a new user, rejecting duplicate emails.
func (d *Driver) CreateUser(ctx context.Context, user *store.User) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&store.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return store.ErrAlreadyExists
		}
		return tx.Create(user).Error
	})
}

// GetUser retrieves a user by id.
func (d *Driver) GetUser(ctx context.Context, id string) (*store.User, error) {
	var user store.User
	result := d.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (d *Driver) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	var user store.User
	result := d.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// UpdateUser updates an existing user.
func (d *Driver) UpdateUser(ctx context.Context, user *store.User) error {
	result := d.db.WithContext(ctx).Save(user)
	return result.Error
}

// DeleteUser deletes a user by id.
func (d *Driver) DeleteUser(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).Delete(&store.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListUsersByRole returns users with the given role, ordered by name.
func (d *Driver) ListUsersByRole(ctx context.Context, role string) ([]*store.User, error) {
	var users []*store.User
	result := d.db.WithContext(ctx).Where("role = ?", role).Order("name ASC").Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// ListUsersByIDs returns the users whose ids appear in ids.
func (d *Driver) ListUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	var users []*store.User
	if len(ids) == 0 {
		return users, nil
	}
	result := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users)
	if result.Error != nil {
		return nil, result.Error
	}
	return users, nil
}

// EventStore implementation

// CreateEvent creates a new event.
func (d *Driver) CreateEvent(ctx context.Context, event *store.Event) error {
	return d.db.WithContext(ctx).Create(event).Error
}

// GetEvent retrieves an event by id.
func (d *Driver) GetEvent(ctx context.Context, id string) (*store.Event, error) {
	var event store.Event
	result := d.db.WithContext(ctx).First(&event, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &event, nil
}

// UpdateEvent updates an existing event.
func (d *Driver) UpdateEvent(ctx context.Context, event *store.Event) error {
	result := d.db.WithContext(ctx).Save(event)
	return result.Error
}

// DeleteEvent deletes an event and cascades to RSVP and check-in rows.
func (d *Driver) DeleteEvent(ctx context.Context, id string) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&store.Event{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return store.ErrNotFound
		}
		if err := tx.Delete(&store.Rsvp{}, "event_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&store.Checkin{}, "event_id = ?", id).Error
	})
}

// ListEventsByHost returns all events owned by a host.
func (d *Driver) ListEventsByHost(ctx context.Context, hostID string) ([]*store.Event, error) {
	var events []*store.Event
	result := d.db.WithContext(ctx).Where("host_id = ?", hostID).Order("start_date_time ASC").Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}
	return events, nil
}

// ListEventsByStatus returns all events in the given status.
func (d *Driver) ListEventsByStatus(ctx context.Context, status string) ([]*store.Event, error) {
	var events []*store.Event
	result := d.db.WithContext(ctx).Where("status = ?", status).Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}
	return events, nil
}

// ListScheduledBefore returns scheduled events starting at or before cutoff.
func (d *Driver) ListScheduledBefore(ctx context.Context, cutoff int64) ([]*store.Event, error) {
	var events []*store.Event
	result := d.db.WithContext(ctx).
		Where("status = ? AND start_date_time <= ?", store.EventScheduled, cutoff).
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}
	return events, nil
}

// ListEventsStartingBetween returns events starting within [from, to].
func (d *Driver) ListEventsStartingBetween(ctx context.Context, from, to int64) ([]*store.Event, error) {
	var events []*store.Event
	result := d.db.WithContext(ctx).
		Where("start_date_time >= ? AND start_date_time <= ?", from, to).
		Find(&events)
	if result.Error != nil {
		return nil, result.Error
	}
	return events, nil
}

// RsvpStore implementation

// CreateRsvp creates a ledger row, rejecting a duplicate (event, attendee) pair.
func (d *Driver) CreateRsvp(ctx context.Context, rsvp *store.Rsvp) error {
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&store.Rsvp{}).
			Where("event_id = ? AND attendee_id = ?", rsvp.EventID, rsvp.AttendeeID).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return store.ErrAlreadyExists
		}
		return tx.Create(rsvp).Error
	})
}

// GetRsvp retrieves a ledger row by id.
func (d *Driver) GetRsvp(ctx context.Context, id string) (*store.Rsvp, error) {
	var rsvp store.Rsvp
	result := d.db.WithContext(ctx).First(&rsvp, "id = ?", id)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &rsvp, nil
}

// GetRsvpByEventAndAttendee retrieves the row for an (event, attendee) pair.
func (d *Driver) GetRsvpByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*store.Rsvp, error) {
	var rsvp store.Rsvp
	result := d.db.WithContext(ctx).First(&rsvp, "event_id = ? AND attendee_id = ?", eventID, attendeeID)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &rsvp, nil
}

// UpdateRsvp updates an existing ledger row.
func (d *Driver) UpdateRsvp(ctx context.Context, rsvp *store.Rsvp) error {
	result := d.db.WithContext(ctx).Save(rsvp)
	return result.Error
}

// DeleteRsvp deletes a ledger row.
func (d *Driver) DeleteRsvp(ctx context.Context, id string) error {
	result := d.db.WithContext(ctx).Delete(&store.Rsvp{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListRsvpsByAttendee returns rows for an attendee, newest invite first.
func (d *Driver) ListRsvpsByAttendee(ctx context.Context, attendeeID string) ([]*store.Rsvp, error) {
	var rsvps []*store.Rsvp
	result := d.db.WithContext(ctx).
		Where("attendee_id = ?", attendeeID).
		Order("invited_at DESC").
		Find(&rsvps)
	if result.Error != nil {
		return nil, result.Error
	}
	return rsvps, nil
}

// ListRsvpsByEvent returns rows for an event, oldest invite first.
func (d *Driver) ListRsvpsByEvent(ctx context.Context, eventID string) ([]*store.Rsvp, error) {
	var rsvps []*store.Rsvp
	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("invited_at ASC").
		Find(&rsvps)
	if result.Error != nil {
		return nil, result.Error
	}
	return rsvps, nil
}

// ListConfirmedRsvpsByEvent returns accepted rows ordered by acceptance time.
func (d *Driver) ListConfirmedRsvpsByEvent(ctx context.Context, eventID string) ([]*store.Rsvp, error) {
	var rsvps []*store.Rsvp
	result := d.db.WithContext(ctx).
		Where("event_id = ? AND confirmed = ? AND cancelled = ?", eventID, true, false).
		Order("rsvp_date ASC").
		Find(&rsvps)
	if result.Error != nil {
		return nil, result.Error
	}
	return rsvps, nil
}

// CountConfirmedRsvps counts accepted rows for an event.
func (d *Driver) CountConfirmedRsvps(ctx context.Context, eventID string) (int64, error) {
	var count int64
	result := d.db.WithContext(ctx).Model(&store.Rsvp{}).
		Where("event_id = ? AND confirmed = ? AND cancelled = ?", eventID, true, false).
		Count(&count)
	if result.Error != nil {
		return 0, result.Error
	}
	return count, nil
}

// ConfirmRsvp re-counts accepted rows and flips the row to accepted in a
// single transaction. SQLite holds the write lock for the whole transaction,
// so two concurrent confirms cannot both observe a free seat.
func (d *Driver) ConfirmRsvp(ctx context.Context, id string, rsvpDate int64, maxAttendees int) (*store.Rsvp, error) {
	var confirmed store.Rsvp
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rsvp store.Rsvp
		if err := tx.First(&rsvp, "id = ?", id).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return store.ErrNotFound
			}
			return err
		}
		if rsvp.Confirmed && !rsvp.Cancelled {
			return store.ErrAlreadyExists
		}

		var count int64
		err := tx.Model(&store.Rsvp{}).
			Where("event_id = ? AND confirmed = ? AND cancelled = ?", rsvp.EventID, true, false).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count >= int64(maxAttendees) {
			return store.ErrEventFull
		}

		rsvp.Confirmed = true
		rsvp.Cancelled = false
		rsvp.RsvpDate = rsvpDate
		rsvp.UpdatedAt = rsvpDate
		if err := tx.Save(&rsvp).Error; err != nil {
			return err
		}
		confirmed = rsvp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &confirmed, nil
}

// CheckinStore implementation

// CreateCheckin creates a check-in row. Non-walk-in rows are unique per
// (event, attendee); walk-ins are never deduplicated.
func (d *Driver) CreateCheckin(ctx context.Context, checkin *store.Checkin) error {
	if checkin.IsWalkIn {
		return d.db.WithContext(ctx).Create(checkin).Error
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		err := tx.Model(&store.Checkin{}).
			Where("event_id = ? AND attendee_id = ? AND is_walk_in = ?", checkin.EventID, checkin.AttendeeID, false).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return store.ErrAlreadyExists
		}
		return tx.Create(checkin).Error
	})
}

// GetCheckinByEventAndAttendee retrieves the non-walk-in check-in for a pair.
func (d *Driver) GetCheckinByEventAndAttendee(ctx context.Context, eventID, attendeeID string) (*store.Checkin, error) {
	var checkin store.Checkin
	result := d.db.WithContext(ctx).
		First(&checkin, "event_id = ? AND attendee_id = ? AND is_walk_in = ?", eventID, attendeeID, false)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, store.ErrNotFound
		}
		return nil, result.Error
	}
	return &checkin, nil
}

// ListCheckinsByEvent returns all check-ins for an event, oldest first.
func (d *Driver) ListCheckinsByEvent(ctx context.Context, eventID string) ([]*store.Checkin, error) {
	var checkins []*store.Checkin
	result := d.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("checkin_time ASC").
		Find(&checkins)
	if result.Error != nil {
		return nil, result.Error
	}
	return checkins, nil
}

// Compile-time interface checks
var _ store.Store = (*Driver)(nil)
