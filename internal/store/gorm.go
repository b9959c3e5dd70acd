package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"volunteerhub/internal/models"
)

// GormStore implements Store on PostgreSQL. Event collections live in jsonb
// columns and are changed with single UPDATE statements guarded by jsonb
// containment, so concurrent writers never lose each other's entries.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open gorm handle. The schema is expected to be
// migrated already.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Close closes the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

// Event operations
func (s *GormStore) CreateEvent(ctx context.Context, event *models.Event) error {
	return gormErr(s.db.WithContext(ctx).Create(event).Error)
}

func (s *GormStore) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	var event models.Event
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, gormErr(err)
	}
	return &event, nil
}

func (s *GormStore) ListEvents(ctx context.Context, filter EventFilter) ([]*models.Event, error) {
	query := s.db.WithContext(ctx).Model(&models.Event{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatorID != "" {
		query = query.Where("creator_id = ?", filter.CreatorID)
	}
	if !filter.StartsAfter.IsZero() {
		query = query.Where("start_date > ?", filter.StartsAfter)
	}

	events := []*models.Event{}
	if err := query.Order("start_date ASC").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *GormStore) conditionalUpdate(ctx context.Context, id string, from models.EventStatus, values map[string]any) (*models.Event, error) {
	var event models.Event
	result := s.db.WithContext(ctx).
		Model(&event).
		Clauses(clause.Returning{}).
		Where("id = ? AND status = ?", id, from).
		Updates(values)
	if result.Error != nil {
		return nil, gormErr(result.Error)
	}
	if result.RowsAffected == 1 {
		return &event, nil
	}

	current, err := s.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	return current, ErrStatusMismatch
}

func (s *GormStore) UpdateEventStatus(ctx context.Context, id string, from, to models.EventStatus) (*models.Event, error) {
	return s.conditionalUpdate(ctx, id, from, map[string]any{
		"status":     to,
		"updated_at": time.Now(),
	})
}

func (s *GormStore) RescheduleEvent(ctx context.Context, id string, start, end time.Time) (*models.Event, error) {
	return s.conditionalUpdate(ctx, id, models.StatusApproved, map[string]any{
		"start_date":     start,
		"end_date":       end,
		"reminders_sent": gorm.Expr("'[]'::jsonb"),
		"updated_at":     time.Now(),
	})
}

func (s *GormStore) DeleteEvent(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", id).Delete(&models.Registration{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Event{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// updateEventColumn runs a single guarded UPDATE. A guard that filters the row
// out is not an error as long as the event exists.
func (s *GormStore) updateEventColumn(ctx context.Context, id, column string, expr clause.Expr, guard string, guardArgs ...any) error {
	query := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id)
	if guard != "" {
		query = query.Where(guard, guardArgs...)
	}
	result := query.Update(column, expr)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return s.eventExists(ctx, id)
	}
	return nil
}

func (s *GormStore) eventExists(ctx context.Context, id string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Event{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AddRegistrant(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventColumn(ctx, eventID, "registrants",
		gorm.Expr("registrants || jsonb_build_array(?::text)", volunteerID),
		"NOT registrants @> jsonb_build_array(?::text)", volunteerID)
}

func (s *GormStore) RemoveRegistrant(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventColumn(ctx, eventID, "registrants",
		gorm.Expr("registrants - ?::text", volunteerID), "")
}

func (s *GormStore) AddLike(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventColumn(ctx, eventID, "likes",
		gorm.Expr("likes || jsonb_build_array(?::text)", volunteerID),
		"NOT likes @> jsonb_build_array(?::text)", volunteerID)
}

func (s *GormStore) RemoveLike(ctx context.Context, eventID, volunteerID string) error {
	return s.updateEventColumn(ctx, eventID, "likes",
		gorm.Expr("likes - ?::text", volunteerID), "")
}

func (s *GormStore) AddComment(ctx context.Context, eventID string, comment models.Comment) error {
	data, err := json.Marshal(comment)
	if err != nil {
		return err
	}
	return s.updateEventColumn(ctx, eventID, "comments",
		gorm.Expr("comments || jsonb_build_array(?::jsonb)", string(data)), "")
}

func (s *GormStore) MarkReminderSent(ctx context.Context, eventID string, dispatch models.ReminderDispatch) (bool, error) {
	data, err := json.Marshal(dispatch)
	if err != nil {
		return false, err
	}
	probe, err := json.Marshal([]map[string]int{{"offset_days": dispatch.OffsetDays}})
	if err != nil {
		return false, err
	}

	result := s.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Where("NOT reminders_sent @> ?::jsonb", string(probe)).
		Update("reminders_sent", gorm.Expr("reminders_sent || jsonb_build_array(?::jsonb)", string(data)))
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 1 {
		return true, nil
	}
	return false, s.eventExists(ctx, eventID)
}

// Registration operations
func (s *GormStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	return gormErr(s.db.WithContext(ctx).Create(reg).Error)
}

func (s *GormStore) GetRegistration(ctx context.Context, eventID, volunteerID string) (*models.Registration, error) {
	var reg models.Registration
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND volunteer_id = ?", eventID, volunteerID).
		First(&reg).Error
	if err != nil {
		return nil, gormErr(err)
	}
	return &reg, nil
}

func (s *GormStore) ListRegistrations(ctx context.Context, eventID string) ([]*models.Registration, error) {
	regs := []*models.Registration{}
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("seq ASC").
		Find(&regs).Error
	if err != nil {
		return nil, err
	}
	return regs, nil
}

func (s *GormStore) UpdateRegistrationNotify(ctx context.Context, eventID, volunteerID string, notify bool) error {
	result := s.db.WithContext(ctx).
		Model(&models.Registration{}).
		Where("event_id = ? AND volunteer_id = ?", eventID, volunteerID).
		Update("notify", notify)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteRegistration(ctx context.Context, eventID, volunteerID string) error {
	result := s.db.WithContext(ctx).
		Where("event_id = ? AND volunteer_id = ?", eventID, volunteerID).
		Delete(&models.Registration{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Account operations
func (s *GormStore) UpsertAccount(ctx context.Context, account *models.Account) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"role", "name", "email", "updated_at"}),
	}).Create(account).Error
	if err != nil {
		return gormErr(err)
	}

	stored, err := s.GetAccount(ctx, account.ID)
	if err != nil {
		return err
	}
	*account = *stored
	return nil
}

func (s *GormStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, gormErr(err)
	}
	return &account, nil
}

func (s *GormStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&account).Error; err != nil {
		return nil, gormErr(err)
	}
	return &account, nil
}
