package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/klinika/klinika/internal/envelope"
	"github.com/klinika/klinika/internal/inventory"
	"github.com/klinika/klinika/internal/observability"
)

// Bridge is the subset of the upstream client the handlers deliver through.
type Bridge interface {
	Post(ctx context.Context, tenantID, path string, body any) (any, error)
}

// DeliveryStore records delivery outcomes.
type DeliveryStore interface {
	MarkDelivered(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
}

// StockScanner reports items below their minimum stock level.
type StockScanner interface {
	LowStock(ctx context.Context, tenantID string, branchID int64) ([]inventory.LowStockItem, error)
}

// LowStockNotifier turns scan results into outbound alerts.
type LowStockNotifier interface {
	HandleLowStock(ctx context.Context, tenantID string, items []inventory.LowStockItem) error
}

// Handlers executes the background tasks.
type Handlers struct {
	bridge     Bridge
	deliveries DeliveryStore
	scanner    StockScanner
	notifier   LowStockNotifier
	logger     *slog.Logger
	metrics    *observability.Metrics
}

func NewHandlers(bridge Bridge, deliveries DeliveryStore, scanner StockScanner, notifier LowStockNotifier, logger *slog.Logger, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		bridge:     bridge,
		deliveries: deliveries,
		scanner:    scanner,
		notifier:   notifier,
		logger:     logger,
		metrics:    metrics,
	}
}

// HandleSMSSend posts the message to the upstream SMS bridge and records the
// outcome on the delivery log.
func (h *Handlers) HandleSMSSend(ctx context.Context, t *asynq.Task) error {
	var payload SMSSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("sms payload: %w: %w", err, asynq.SkipRetry)
	}
	return h.deliver(ctx, TaskTypeSMSSend, payload.DeliveryID, payload.TenantID, "/bridge/sms", map[string]any{
		"sender":  payload.Sender,
		"phone":   payload.Phone,
		"message": payload.Message,
	})
}

// HandleEInvoiceSubmit submits a finalized sale for e-invoicing.
func (h *Handlers) HandleEInvoiceSubmit(ctx context.Context, t *asynq.Task) error {
	var payload EInvoiceSubmitPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("einvoice payload: %w: %w", err, asynq.SkipRetry)
	}
	return h.deliver(ctx, TaskTypeEInvoiceSubmit, payload.DeliveryID, payload.TenantID, "/bridge/einvoice", map[string]any{
		"sale_id":   payload.SaleID,
		"sale_code": payload.SaleCode,
	})
}

// HandleTelegramNotify posts the message to the upstream Telegram bridge.
func (h *Handlers) HandleTelegramNotify(ctx context.Context, t *asynq.Task) error {
	var payload TelegramNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("telegram payload: %w: %w", err, asynq.SkipRetry)
	}
	return h.deliver(ctx, TaskTypeTelegramNotify, payload.DeliveryID, payload.TenantID, "/bridge/telegram", map[string]any{
		"chat_id": payload.ChatID,
		"text":    payload.Text,
	})
}

// HandleLowStockScan runs the periodic low-stock check for one tenant branch
// and hands any findings to the notifier.
func (h *Handlers) HandleLowStockScan(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("lowstock payload: %w: %w", err, asynq.SkipRetry)
	}
	items, err := h.scanner.LowStock(ctx, payload.TenantID, payload.BranchID)
	if err != nil {
		h.metrics.ObserveJob(TaskTypeLowStockScan, "error")
		return fmt.Errorf("low stock scan tenant %s: %w", payload.TenantID, err)
	}
	if err := h.notifier.HandleLowStock(ctx, payload.TenantID, items); err != nil {
		h.metrics.ObserveJob(TaskTypeLowStockScan, "error")
		return fmt.Errorf("low stock notify tenant %s: %w", payload.TenantID, err)
	}
	h.metrics.ObserveJob(TaskTypeLowStockScan, "ok")
	h.logger.Info("low stock scan completed", "tenant_id", payload.TenantID, "below_minimum", len(items))
	return nil
}

func (h *Handlers) deliver(ctx context.Context, taskType, deliveryID, tenantID, path string, body map[string]any) error {
	id, err := uuid.Parse(deliveryID)
	if err != nil {
		return fmt.Errorf("delivery id %q: %w: %w", deliveryID, err, asynq.SkipRetry)
	}

	raw, err := h.bridge.Post(ctx, tenantID, path, body)
	if err != nil {
		h.metrics.ObserveJob(taskType, "error")
		if markErr := h.deliveries.MarkFailed(ctx, id, err.Error()); markErr != nil {
			h.logger.Error("mark delivery failed", "delivery_id", deliveryID, "error", markErr)
		}
		return fmt.Errorf("deliver %s: %w", taskType, err)
	}
	if !envelope.IsSuccess(raw) {
		reason := envelope.ErrorMessage(raw)
		if reason == "" {
			reason = "upstream rejected delivery"
		}
		h.metrics.ObserveJob(taskType, "rejected")
		if markErr := h.deliveries.MarkFailed(ctx, id, reason); markErr != nil {
			h.logger.Error("mark delivery failed", "delivery_id", deliveryID, "error", markErr)
		}
		return fmt.Errorf("deliver %s: %s", taskType, reason)
	}

	if err := h.deliveries.MarkDelivered(ctx, id); err != nil {
		h.logger.Error("mark delivered", "delivery_id", deliveryID, "error", err)
	}
	h.metrics.ObserveJob(taskType, "ok")
	h.logger.Info("delivery completed", "task", taskType, "tenant_id", tenantID, "delivery_id", deliveryID)
	return nil
}
