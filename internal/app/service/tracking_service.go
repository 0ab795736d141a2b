package service

import (
	"errors"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/repository"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"github.com/recetteplus/recette-backend/pkg/util"
	"gorm.io/gorm"
)

const collectBatchSize = 500

// TrackingFeed is what a tracker polls. CurrentLocation is nil until a row
// carrying coordinates exists; it is never a zero point.
type TrackingFeed struct {
	OrderID             uint                     `json:"order_id"`
	Status              model.OrderStatus        `json:"status"`
	Events              []model.DeliveryTracking `json:"events"`
	CurrentLocation     *util.Point              `json:"current_location"`
	LastPositionAt      *time.Time               `json:"last_position_at,omitempty"`
	Stale               bool                     `json:"stale"`
	DistanceKm          float64                  `json:"distance_km"`
	PollIntervalSeconds int                      `json:"poll_interval_seconds"`
}

// TrackingUpdates is one CollectUpdates batch: new rows grouped by order, and
// the watermark to pass next time.
type TrackingUpdates struct {
	ByOrder   map[uint][]model.DeliveryTracking
	Watermark uint
}

type TrackingService interface {
	RecordLocation(actor Actor, orderID uint, lat, lng *float64, notes *string) (*model.DeliveryTracking, error)
	GetFeed(actor Actor, orderID uint) (*TrackingFeed, error)
	CanWatch(actor Actor, orderID uint) error
	CanUploadProof(actor Actor, orderID uint) error
	CollectUpdates(since uint) (*TrackingUpdates, error)
	CurrentWatermark() (uint, error)
}

type trackingService struct {
	trackingRepo repository.TrackingRepository
	orderRepo    repository.OrderRepository
	pollInterval time.Duration
	staleAfter   time.Duration
	now          func() time.Time
}

func NewTrackingService(
	trackingRepo repository.TrackingRepository,
	orderRepo repository.OrderRepository,
	pollInterval time.Duration,
	staleAfter time.Duration,
) TrackingService {
	return &trackingService{
		trackingRepo: trackingRepo,
		orderRepo:    orderRepo,
		pollInterval: pollInterval,
		staleAfter:   staleAfter,
		now:          time.Now,
	}
}

func (s *trackingService) RecordLocation(actor Actor, orderID uint, lat, lng *float64, notes *string) (*model.DeliveryTracking, error) {
	logger.Debug("Recording delivery location", map[string]interface{}{
		"order_id": orderID,
		"actor_id": actor.UserID,
	})

	if err := validatePosition(lat, lng); err != nil {
		return nil, err
	}

	order, err := s.findVisible(actor, orderID)
	if err != nil {
		return nil, err
	}
	if !isAssignee(actor, order) {
		logger.Warn("Location report by non-assignee", map[string]interface{}{
			"order_id": orderID,
			"actor_id": actor.UserID,
		})
		return nil, ErrForbiddenActor
	}
	if order.Status != model.OrderStatusPickedUp && order.Status != model.OrderStatusInTransit {
		logger.Warn("Location report outside delivery leg", map[string]interface{}{
			"order_id": orderID,
			"status":   order.Status,
		})
		return nil, ErrGuardViolation
	}

	entry := &model.DeliveryTracking{
		OrderID:          orderID,
		DeliveryPersonID: actor.UserID,
		Latitude:         lat,
		Longitude:        lng,
		Status:           order.Status,
		Notes:            notes,
	}
	if err := s.trackingRepo.Append(entry); err != nil {
		logger.Error("Failed to record delivery location", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return entry, nil
}

func (s *trackingService) GetFeed(actor Actor, orderID uint) (*TrackingFeed, error) {
	order, err := s.findVisible(actor, orderID)
	if err != nil {
		return nil, err
	}

	events, err := s.trackingRepo.FindByOrderID(orderID)
	if err != nil {
		logger.Error("Failed to load tracking feed", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	feed := &TrackingFeed{
		OrderID:             orderID,
		Status:              order.Status,
		Events:              events,
		PollIntervalSeconds: int(s.pollInterval / time.Second),
	}
	if feed.Events == nil {
		feed.Events = []model.DeliveryTracking{}
	}

	var path []util.Point
	var latest *model.DeliveryTracking
	for i := range events {
		if !events[i].HasCoordinates() {
			continue
		}
		latest = &events[i]
		path = append(path, util.Point{Latitude: *latest.Latitude, Longitude: *latest.Longitude})
	}
	feed.DistanceKm = util.PathLength(path)

	if latest != nil {
		feed.CurrentLocation = &util.Point{Latitude: *latest.Latitude, Longitude: *latest.Longitude}
		at := latest.CreatedAt
		feed.LastPositionAt = &at
		feed.Stale = !order.Status.IsTerminal() && s.staleAfter > 0 && s.now().Sub(at) > s.staleAfter
	}
	return feed, nil
}

// CanWatch authorises a live subscription the same way as GetFeed.
func (s *trackingService) CanWatch(actor Actor, orderID uint) error {
	_, err := s.findVisible(actor, orderID)
	return err
}

// CanUploadProof allows the assignee to request a proof-of-delivery upload
// slot for an order that has not been delivered yet.
func (s *trackingService) CanUploadProof(actor Actor, orderID uint) error {
	order, err := s.findVisible(actor, orderID)
	if err != nil {
		return err
	}
	if !isAssignee(actor, order) {
		return ErrForbiddenActor
	}
	switch order.Status {
	case model.OrderStatusAssigned, model.OrderStatusPickedUp, model.OrderStatusInTransit:
		return nil
	}
	return ErrGuardViolation
}

// CollectUpdates pages through every row appended after since. Rows may be
// delivered again if the caller fails to persist the returned watermark.
func (s *trackingService) CollectUpdates(since uint) (*TrackingUpdates, error) {
	updates := &TrackingUpdates{
		ByOrder:   make(map[uint][]model.DeliveryTracking),
		Watermark: since,
	}

	for {
		batch, err := s.trackingRepo.FindAfterID(updates.Watermark, collectBatchSize)
		if err != nil {
			logger.Error("Failed to collect tracking updates", err, map[string]interface{}{
				"since": updates.Watermark,
			})
			return nil, err
		}
		for _, entry := range batch {
			updates.ByOrder[entry.OrderID] = append(updates.ByOrder[entry.OrderID], entry)
			updates.Watermark = entry.ID
		}
		if len(batch) < collectBatchSize {
			break
		}
	}

	if len(updates.ByOrder) > 0 {
		logger.Debug("Collected tracking updates", map[string]interface{}{
			"orders":    len(updates.ByOrder),
			"watermark": updates.Watermark,
		})
	}
	return updates, nil
}

func (s *trackingService) CurrentWatermark() (uint, error) {
	return s.trackingRepo.MaxID()
}

func (s *trackingService) findVisible(actor Actor, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if !canViewOrder(actor, order) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}
