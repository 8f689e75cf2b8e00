package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"chainsight/internal/models"
	"chainsight/internal/util"
)

// AlertPublisher publishes risk alert events
type AlertPublisher struct {
	producer *Producer
}

// NewAlertPublisher creates a new alert publisher
func NewAlertPublisher(producer *Producer) *AlertPublisher {
	return &AlertPublisher{producer: producer}
}

// NewBaseEvent stamps a fresh event envelope
func NewBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}

// PublishReorderAlert publishes a ReorderAlert event keyed by product
func (ap *AlertPublisher) PublishReorderAlert(ctx context.Context, event *models.ReorderAlertEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductID)
	if err := ap.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.AlertsPublishedTotal.WithLabelValues(models.EventTypeReorderAlert).Inc()
	return nil
}

// PublishStockoutRiskAlert publishes a StockoutRiskAlert event keyed by product
func (ap *AlertPublisher) PublishStockoutRiskAlert(ctx context.Context, event *models.StockoutRiskAlertEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductID)
	if err := ap.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.AlertsPublishedTotal.WithLabelValues(models.EventTypeStockoutRiskAlert).Inc()
	return nil
}

// PublishSupplierRiskAlert publishes a SupplierRiskAlert event keyed by supplier
func (ap *AlertPublisher) PublishSupplierRiskAlert(ctx context.Context, event *models.SupplierRiskAlertEvent) error {
	key := fmt.Sprintf("supplier-%s", event.SupplierID)
	if err := ap.producer.PublishEvent(ctx, key, event); err != nil {
		return err
	}
	util.AlertsPublishedTotal.WithLabelValues(models.EventTypeSupplierRiskAlert).Inc()
	return nil
}

// PublishScanCompleted publishes a ScanCompleted event
func (ap *AlertPublisher) PublishScanCompleted(ctx context.Context, event *models.ScanCompletedEvent) error {
	return ap.producer.PublishEvent(ctx, "scan", event)
}

// PublishScanRequested asks the alert worker to run an immediate scan
func (ap *AlertPublisher) PublishScanRequested(ctx context.Context, reason string) error {
	event := &models.ScanRequestedEvent{
		BaseEvent: NewBaseEvent(models.EventTypeScanRequested),
		Reason:    reason,
	}
	return ap.producer.PublishEvent(ctx, "scan", event)
}

// EventHandler routes incoming events to registered handlers
type EventHandler struct {
	onScanRequested func(context.Context, *models.ScanRequestedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnScanRequested registers a handler for ScanRequested events
func (eh *EventHandler) OnScanRequested(handler func(context.Context, *models.ScanRequestedEvent) error) {
	eh.onScanRequested = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("handling event",
		zap.String("type", baseEvent.EventType),
		zap.String("id", baseEvent.EventID))

	switch baseEvent.EventType {
	case models.EventTypeScanRequested:
		if eh.onScanRequested != nil {
			var event models.ScanRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal ScanRequested event: %w", err)
			}
			return eh.onScanRequested(ctx, &event)
		}

	default:
		logger.Debug("unhandled event type", zap.String("type", baseEvent.EventType))
	}

	return nil
}
