package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/DarkIsCool10/UniEventos/internal/inventory"
	"github.com/DarkIsCool10/UniEventos/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LocalityRepository is the postgres-backed capacity store plus the locality read path.
type LocalityRepository interface {
	inventory.Store
	FindByID(ctx context.Context, id uint) (*models.Locality, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Locality, error)
	ResetHeld(ctx context.Context) (int64, error)
}

type localityRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewLocalityRepository(db *gorm.DB, logger *zap.Logger) LocalityRepository {
	return &localityRepository{db: db, logger: logger}
}

// Reserve increments committed in a single conditional UPDATE, so the capacity check and
// the increment are one statement under the row lock postgres takes for it.
func (r *localityRepository) Reserve(ctx context.Context, id uint, qty int) error {
	if qty <= 0 {
		return inventory.ErrInvalidQuantity
	}

	res := r.db.WithContext(ctx).
		Model(&models.Locality{}).
		Where("id = ? AND committed + ? <= capacity", id, qty).
		UpdateColumn("committed", gorm.Expr("committed + ?", qty))
	if res.Error != nil {
		return fmt.Errorf("reserve locality %d: %w", id, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Locality{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check locality %d: %w", id, err)
	}
	if count == 0 {
		return inventory.ErrLocalityNotFound
	}
	return inventory.ErrInsufficientCapacity
}

// Release decrements committed, clamped at sold (never below zero). Removed localities are
// still credited.
func (r *localityRepository) Release(ctx context.Context, id uint, qty int) error {
	if qty <= 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var loc models.Locality
		err := tx.Unscoped().
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "committed", "sold").
			First(&loc, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.logger.Warn("release on unknown locality", zap.Uint("locality_id", id), zap.Int("quantity", qty))
			return nil
		}
		if err != nil {
			return fmt.Errorf("lock locality %d: %w", id, err)
		}

		committed := loc.Committed - qty
		if committed < loc.Sold {
			r.logger.Warn("committed counter underflow clamped",
				zap.Uint("locality_id", id),
				zap.Int("committed", loc.Committed),
				zap.Int("sold", loc.Sold),
				zap.Int("quantity", qty),
			)
			committed = loc.Sold
		}
		return tx.Unscoped().
			Model(&models.Locality{}).
			Where("id = ?", id).
			UpdateColumn("committed", committed).Error
	})
}

func (r *localityRepository) FindByID(ctx context.Context, id uint) (*models.Locality, error) {
	var loc models.Locality
	if err := r.db.WithContext(ctx).First(&loc, id).Error; err != nil {
		return nil, err
	}
	return &loc, nil
}

// FindByIDs includes removed localities so carts that still hold them can be priced.
func (r *localityRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Locality, error) {
	var locs []models.Locality
	if len(ids) == 0 {
		return locs, nil
	}
	if err := r.db.WithContext(ctx).Unscoped().Where("id IN ?", ids).Find(&locs).Error; err != nil {
		return nil, err
	}
	return locs, nil
}

// ResetHeld drops every held (unsold) ticket from the counters. Holds only live in process
// memory, so this runs once at startup before the ledger accepts requests.
func (r *localityRepository) ResetHeld(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.Locality{}).
		Where("committed <> sold").
		UpdateColumn("committed", gorm.Expr("sold"))
	return res.RowsAffected, res.Error
}
