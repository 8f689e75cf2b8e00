package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"chainsight/internal/analytics"
	"chainsight/internal/broker"
	"chainsight/internal/models"
	"chainsight/internal/service"
	"chainsight/internal/util"
)

// AlertWorker periodically scans the analytics surface and publishes alert
// events for positions that need attention. It also listens for ScanRequested
// events so an ingest run can trigger an immediate scan.
type AlertWorker struct {
	engine       *service.Engine
	publisher    *broker.AlertPublisher
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	interval     time.Duration
	riskAlertMin float64
	logger       *zap.Logger
}

// NewAlertWorker creates a new alert worker. consumer may be nil to disable
// on-demand scans.
func NewAlertWorker(
	engine *service.Engine,
	publisher *broker.AlertPublisher,
	consumer *broker.Consumer,
	interval time.Duration,
	riskAlertMin float64,
) *AlertWorker {
	w := &AlertWorker{
		engine:       engine,
		publisher:    publisher,
		consumer:     consumer,
		interval:     interval,
		riskAlertMin: riskAlertMin,
		logger:       util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnScanRequested(w.handleScanRequested)
	w.eventHandler = eventHandler
	return w
}

// Start runs the interval scanner and, when a consumer is configured, the
// on-demand scan listener. It blocks until the context is cancelled.
func (w *AlertWorker) Start(ctx context.Context) error {
	w.logger.Info("starting alert worker", zap.Duration("interval", w.interval))

	if w.consumer != nil {
		go func() {
			if err := w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage); err != nil && ctx.Err() == nil {
				w.logger.Error("scan consumer stopped", zap.Error(err))
			}
		}()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Scan(ctx, "interval"); err != nil {
				w.logger.Error("alert scan failed", zap.Error(err))
			}
		}
	}
}

// Stop stops the worker
func (w *AlertWorker) Stop() error {
	w.logger.Info("stopping alert worker")
	if w.consumer != nil {
		return w.consumer.Close()
	}
	return nil
}

func (w *AlertWorker) handleScanRequested(ctx context.Context, event *models.ScanRequestedEvent) error {
	w.logger.Info("scan requested", zap.String("reason", event.Reason))
	return w.Scan(ctx, "requested")
}

// Scan runs one full alert pass: reorder recommendations, stockout risks and
// supplier risk scores. Publishing failures abort the scan so the next run
// retries the same findings.
func (w *AlertWorker) Scan(ctx context.Context, trigger string) error {
	start := time.Now()
	published := 0
	defer func() {
		util.AlertScansTotal.WithLabelValues(trigger).Inc()
		util.AlertScanDuration.Observe(time.Since(start).Seconds())
	}()

	recommendations, err := w.engine.Recommendations(ctx, 0)
	if err != nil {
		return err
	}
	for _, rec := range recommendations.Recommendations {
		event := &models.ReorderAlertEvent{
			BaseEvent:    broker.NewBaseEvent(models.EventTypeReorderAlert),
			ProductID:    rec.ProductID,
			ABCClass:     rec.ABCClass,
			Priority:     rec.Priority,
			SuggestedQty: rec.SuggestedQty,
		}
		if rec.DaysToStockout.Defined {
			event.DaysToStockout = rec.DaysToStockout.Value
		}
		if err := w.publisher.PublishReorderAlert(ctx, event); err != nil {
			return err
		}
		published++
	}

	stockouts, err := w.engine.StockoutRisks(ctx)
	if err != nil {
		return err
	}
	for _, item := range stockouts {
		if !item.AtRisk {
			continue
		}
		event := &models.StockoutRiskAlertEvent{
			BaseEvent:      broker.NewBaseEvent(models.EventTypeStockoutRiskAlert),
			ProductID:      item.ProductID,
			QtyOnHand:      item.QtyOnHand,
			DaysToStockout: item.DaysToStockout.Value,
			LeadTimeDays:   item.LeadTimeDays,
		}
		if err := w.publisher.PublishStockoutRiskAlert(ctx, event); err != nil {
			return err
		}
		published++
	}

	risks, err := w.engine.SupplierRisks(ctx, analytics.RiskWeights{})
	if err != nil {
		return err
	}
	for _, score := range risks.Scores {
		if score.RiskScore < w.riskAlertMin {
			continue
		}
		event := &models.SupplierRiskAlertEvent{
			BaseEvent:  broker.NewBaseEvent(models.EventTypeSupplierRiskAlert),
			SupplierID: score.SupplierID,
			RiskScore:  score.RiskScore,
			RiskLevel:  score.RiskLevel,
		}
		if err := w.publisher.PublishSupplierRiskAlert(ctx, event); err != nil {
			return err
		}
		published++
	}

	completed := &models.ScanCompletedEvent{
		BaseEvent:       broker.NewBaseEvent(models.EventTypeScanCompleted),
		AlertsPublished: published,
		DurationMillis:  time.Since(start).Milliseconds(),
		Trigger:         trigger,
	}
	if err := w.publisher.PublishScanCompleted(ctx, completed); err != nil {
		return err
	}

	w.logger.Info("alert scan completed",
		zap.String("trigger", trigger),
		zap.Int("alerts", published),
		zap.Duration("took", time.Since(start)))
	return nil
}
