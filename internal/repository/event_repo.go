package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DarkIsCool10/UniEventos/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EventRepository applies event/locality changes published by the event service.
type EventRepository interface {
	Upsert(ctx context.Context, event *models.Event) error
	Delete(ctx context.Context, eventID uint) error
	FindByID(ctx context.Context, id uint) (*models.Event, error)
}

type eventRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewEventRepository(db *gorm.DB, logger *zap.Logger) EventRepository {
	return &eventRepository{db: db, logger: logger}
}

// Upsert stores the event and its localities, matched by (event id, name). A capacity
// below the locality's committed count is refused and logged; the other fields still apply.
func (r *eventRepository) Upsert(ctx context.Context, event *models.Event) error {
	localities := event.Localities

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := models.Event{ID: event.ID, Name: event.Name, City: event.City, StartsAt: event.StartsAt}
		err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "city", "starts_at", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return fmt.Errorf("upsert event %d: %w", event.ID, err)
		}

		for _, in := range localities {
			if err := r.upsertLocality(tx, event.ID, in); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *eventRepository) upsertLocality(tx *gorm.DB, eventID uint, in models.Locality) error {
	var existing models.Locality
	err := tx.Unscoped().
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("event_id = ? AND name = ?", eventID, in.Name).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		loc := models.Locality{
			EventID:   eventID,
			Name:      in.Name,
			Capacity:  in.Capacity,
			UnitPrice: in.UnitPrice,
		}
		if err := tx.Create(&loc).Error; err != nil {
			return fmt.Errorf("create locality %q: %w", in.Name, err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("lock locality %q: %w", in.Name, err)
	}

	updates := map[string]any{
		"unit_price": in.UnitPrice,
		"deleted_at": nil,
		"updated_at": time.Now(),
	}
	if in.Capacity >= existing.Committed {
		updates["capacity"] = in.Capacity
	} else {
		r.logger.Warn("capacity edit below committed refused",
			zap.Uint("locality_id", existing.ID),
			zap.Int("requested", in.Capacity),
			zap.Int("committed", existing.Committed),
		)
	}
	if err := tx.Unscoped().Model(&models.Locality{}).Where("id = ?", existing.ID).UpdateColumns(updates).Error; err != nil {
		return fmt.Errorf("update locality %d: %w", existing.ID, err)
	}
	return nil
}

// Delete soft-deletes the event's localities; holds on them can still be released.
func (r *eventRepository) Delete(ctx context.Context, eventID uint) error {
	res := r.db.WithContext(ctx).Where("event_id = ?", eventID).Delete(&models.Locality{})
	if res.Error != nil {
		return fmt.Errorf("delete localities of event %d: %w", eventID, res.Error)
	}
	return nil
}

func (r *eventRepository) FindByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).Preload("Localities").First(&event, id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}
