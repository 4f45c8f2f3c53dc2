package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/DarkIsCool10/UniEventos/internal/models"
	"gorm.io/gorm"
)

var ErrSoldExceedsCommitted = errors.New("sold would exceed committed")

type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// Create stores the order with its lines and moves the held quantities to sold, in one
// transaction. Committed is not touched: the capacity was already taken by the holds.
func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, line := range order.Lines {
			res := tx.Unscoped().
				Model(&models.Locality{}).
				Where("id = ? AND sold + ? <= committed", line.LocalityID, line.Quantity).
				UpdateColumn("sold", gorm.Expr("sold + ?", line.Quantity))
			if res.Error != nil {
				return fmt.Errorf("mark sold on locality %d: %w", line.LocalityID, res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("locality %d: %w", line.LocalityID, ErrSoldExceedsCommitted)
			}
		}
		return nil
	})
}

func (r *orderRepository) FindByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Lines").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}
