package repository

import (
	"database/sql"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"gorm.io/gorm"
)

// TrackingRepository is append-only: there is no update or delete.
type TrackingRepository interface {
	WithTx(tx *gorm.DB) TrackingRepository
	Append(entry *model.DeliveryTracking) error
	FindByOrderID(orderID uint) ([]model.DeliveryTracking, error)
	FindAfterID(afterID uint, limit int) ([]model.DeliveryTracking, error)
	MaxID() (uint, error)
}

type trackingRepository struct {
	db *gorm.DB
}

func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

func (r *trackingRepository) WithTx(tx *gorm.DB) TrackingRepository {
	return &trackingRepository{db: tx}
}

func (r *trackingRepository) Append(entry *model.DeliveryTracking) error {
	logger.Debug("Appending delivery tracking entry", map[string]interface{}{
		"order_id":           entry.OrderID,
		"delivery_person_id": entry.DeliveryPersonID,
		"status":             entry.Status,
		"has_position":       entry.HasCoordinates(),
	})

	if err := r.db.Create(entry).Error; err != nil {
		logger.Error("Failed to append delivery tracking entry", err, map[string]interface{}{
			"order_id": entry.OrderID,
		})
		return classify(err)
	}
	return nil
}

// FindByOrderID returns the order's events oldest first.
func (r *trackingRepository) FindByOrderID(orderID uint) ([]model.DeliveryTracking, error) {
	logger.Debug("Finding delivery tracking by order ID", map[string]interface{}{
		"order_id": orderID,
	})

	var entries []model.DeliveryTracking
	err := r.db.Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&entries).Error
	if err != nil {
		logger.Error("Failed to find delivery tracking by order ID", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, classify(err)
	}
	return entries, nil
}

// FindAfterID pages through the log in insertion order. IDs are the poll watermark.
func (r *trackingRepository) FindAfterID(afterID uint, limit int) ([]model.DeliveryTracking, error) {
	var entries []model.DeliveryTracking
	err := r.db.Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		logger.Error("Failed to page delivery tracking", err, map[string]interface{}{
			"after_id": afterID,
		})
		return nil, classify(err)
	}
	return entries, nil
}

func (r *trackingRepository) MaxID() (uint, error) {
	var maxID sql.NullInt64
	if err := r.db.Model(&model.DeliveryTracking{}).Select("MAX(id)").Row().Scan(&maxID); err != nil {
		logger.Error("Failed to read delivery tracking watermark", err)
		return 0, classify(err)
	}
	if !maxID.Valid {
		return 0, nil
	}
	return uint(maxID.Int64), nil
}
