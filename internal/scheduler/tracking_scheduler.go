package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/recetteplus/recette-backend/internal/app/model"
	"github.com/recetteplus/recette-backend/internal/app/service"
	"github.com/recetteplus/recette-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// Broadcaster is the part of the websocket hub the scheduler needs.
type Broadcaster interface {
	SendToRoom(orderID uint, message interface{}) error
}

// TrackingEvent is pushed to every session watching an order.
type TrackingEvent struct {
	Type    string                 `json:"type"`
	Room    string                 `json:"room"`
	OrderID uint                   `json:"order_id"`
	Event   model.DeliveryTracking `json:"event"`
}

func RoomName(orderID uint) string {
	return fmt.Sprintf("order:%d", orderID)
}

// TrackingScheduler polls for new tracking rows and pushes them to watchers.
type TrackingScheduler struct {
	cron            *cron.Cron
	trackingService service.TrackingService
	hub             Broadcaster
	interval        time.Duration

	mu          sync.Mutex
	watermark   uint
	initialized bool
}

func NewTrackingScheduler(trackingService service.TrackingService, hub Broadcaster, interval time.Duration) *TrackingScheduler {
	return &TrackingScheduler{
		cron:            cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		trackingService: trackingService,
		hub:             hub,
		interval:        interval,
	}
}

// Start begins polling. Rows that existed before Start are not pushed;
// watchers load them through the REST feed.
func (s *TrackingScheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("tracking poll interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	s.initWatermark()
	s.mu.Unlock()

	_, err := s.cron.AddFunc("@every "+s.interval.String(), s.Poll)
	if err != nil {
		logger.Error("Failed to add cron job for tracking poll", err)
		return err
	}

	s.cron.Start()
	logger.Info("Tracking scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})
	return nil
}

func (s *TrackingScheduler) Stop() {
	logger.Info("Stopping tracking scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Tracking scheduler stopped", nil)
}

// Poll runs one collection pass. The watermark only advances when the batch
// was collected; a failed pass is retried from the same point next tick.
func (s *TrackingScheduler) Poll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initWatermark() {
		return
	}

	updates, err := s.trackingService.CollectUpdates(s.watermark)
	if err != nil {
		logger.Error("Tracking poll failed", err, map[string]interface{}{
			"watermark": s.watermark,
		})
		return
	}

	sent := 0
	for orderID, events := range updates.ByOrder {
		for _, event := range events {
			msg := TrackingEvent{
				Type:    "tracking",
				Room:    RoomName(orderID),
				OrderID: orderID,
				Event:   event,
			}
			if err := s.hub.SendToRoom(orderID, msg); err != nil {
				logger.Warn("Failed to push tracking event", map[string]interface{}{
					"order_id": orderID,
					"event_id": event.ID,
					"error":    err.Error(),
				})
				continue
			}
			sent++
		}
	}

	if sent > 0 {
		logger.Debug("Pushed tracking events", map[string]interface{}{
			"events":    sent,
			"watermark": updates.Watermark,
		})
	}
	s.watermark = updates.Watermark
}

// Watermark reports the last row ID handed to the hub.
func (s *TrackingScheduler) Watermark() uint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark
}

// initWatermark must be called with mu held.
func (s *TrackingScheduler) initWatermark() bool {
	if s.initialized {
		return true
	}
	mark, err := s.trackingService.CurrentWatermark()
	if err != nil {
		logger.Warn("Failed to read tracking watermark, will retry", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	s.watermark = mark
	s.initialized = true
	return true
}
