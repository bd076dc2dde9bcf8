// Package integration wires domain events into outbound channels: SMS
// receipts, e-invoice submission, and Telegram stock alerts. Events are
// persisted to the delivery log and dispatched through the background queue;
// nothing is sent inline with the originating request.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/klinika/klinika/internal/inventory"
	"github.com/klinika/klinika/internal/parties"
	"github.com/klinika/klinika/internal/sales"
	"github.com/klinika/klinika/jobs"
)

// TaskQueue enqueues background tasks. Satisfied by asynq.Client.
type TaskQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DeliveryRecorder persists queued deliveries. Satisfied by DeliveryLog.
type DeliveryRecorder interface {
	Insert(ctx context.Context, d Delivery) error
}

// PartyDirectory resolves parties for notification targets.
type PartyDirectory interface {
	Get(ctx context.Context, tenantID string, id int64) (*parties.Party, error)
}

// Config toggles outbound channels.
type Config struct {
	SMSSender       string
	TelegramChatID  string
	EInvoiceEnabled bool
}

// Hooks receives domain events and fans them out to delivery channels.
type Hooks struct {
	queue     TaskQueue
	log       DeliveryRecorder
	directory PartyDirectory
	cfg       Config
	logger    *slog.Logger
}

// NewHooks constructs integration hooks.
func NewHooks(queue TaskQueue, log DeliveryRecorder, directory PartyDirectory, cfg Config, logger *slog.Logger) *Hooks {
	return &Hooks{queue: queue, log: log, directory: directory, cfg: cfg, logger: logger}
}

// HandleSaleFinalized sends the patient an SMS receipt and submits the
// e-invoice. A duplicate event (same sale, same channel) is dropped silently:
// the first dispatch already covers it.
func (h *Hooks) HandleSaleFinalized(ctx context.Context, evt sales.SaleFinalizedEvent) error {
	party, err := h.directory.Get(ctx, evt.TenantID, evt.PartyID)
	if err != nil {
		return fmt.Errorf("integration: resolve party %d: %w", evt.PartyID, err)
	}

	if party.Phone != nil && *party.Phone != "" {
		message := fmt.Sprintf("Satışınız alınmıştır. Fiş no: %s, tutar: %.2f TL.", evt.Code, evt.PatientTotal)
		if err := h.dispatchSMS(ctx, evt.TenantID, saleRefKey(evt), *party.Phone, message); err != nil {
			return err
		}
	}

	if h.cfg.EInvoiceEnabled {
		if err := h.dispatchEInvoice(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// HandleLowStock posts one Telegram alert per scan run.
func (h *Hooks) HandleLowStock(ctx context.Context, tenantID string, items []inventory.LowStockItem) error {
	if len(items) == 0 || h.cfg.TelegramChatID == "" {
		return nil
	}
	text := fmt.Sprintf("Stok uyarısı: %d ürün minimum seviyenin altında.", len(items))
	for _, item := range items {
		text += fmt.Sprintf("\n- %s: %.0f (eksik %.0f)", item.Product.Name, item.Quantity, item.Deficit)
	}

	delivery := Delivery{
		ID:       uuid.New(),
		TenantID: tenantID,
		Channel:  jobs.ChannelTelegram,
		RefKey:   uuid.NewString(),
		Target:   h.cfg.TelegramChatID,
		Payload:  map[string]any{"text": text},
	}
	if err := h.log.Insert(ctx, delivery); err != nil {
		return err
	}
	task, err := jobs.NewTelegramNotifyTask(jobs.TelegramNotifyPayload{
		DeliveryID: delivery.ID.String(),
		TenantID:   tenantID,
		ChatID:     h.cfg.TelegramChatID,
		Text:       text,
	})
	if err != nil {
		return err
	}
	_, err = h.queue.EnqueueContext(ctx, task)
	return err
}

func (h *Hooks) dispatchSMS(ctx context.Context, tenantID, refKey, phone, message string) error {
	delivery := Delivery{
		ID:       uuid.New(),
		TenantID: tenantID,
		Channel:  jobs.ChannelSMS,
		RefKey:   refKey,
		Target:   phone,
		Payload:  map[string]any{"message": message},
	}
	if err := h.log.Insert(ctx, delivery); err != nil {
		if errors.Is(err, ErrDuplicateDelivery) {
			h.logger.Info("sms already dispatched", slog.String("ref", refKey))
			return nil
		}
		return err
	}
	task, err := jobs.NewSMSSendTask(jobs.SMSSendPayload{
		DeliveryID: delivery.ID.String(),
		TenantID:   tenantID,
		Sender:     h.cfg.SMSSender,
		Phone:      phone,
		Message:    message,
	})
	if err != nil {
		return err
	}
	_, err = h.queue.EnqueueContext(ctx, task)
	return err
}

func (h *Hooks) dispatchEInvoice(ctx context.Context, evt sales.SaleFinalizedEvent) error {
	delivery := Delivery{
		ID:       uuid.New(),
		TenantID: evt.TenantID,
		Channel:  jobs.ChannelEInvoice,
		RefKey:   saleRefKey(evt),
		Target:   evt.Code,
		Payload:  map[string]any{"sale_id": evt.SaleID, "grand_total": evt.GrandTotal},
	}
	if err := h.log.Insert(ctx, delivery); err != nil {
		if errors.Is(err, ErrDuplicateDelivery) {
			h.logger.Info("e-invoice already dispatched", slog.String("sale", evt.Code))
			return nil
		}
		return err
	}
	task, err := jobs.NewEInvoiceSubmitTask(jobs.EInvoiceSubmitPayload{
		DeliveryID: delivery.ID.String(),
		TenantID:   evt.TenantID,
		SaleID:     evt.SaleID,
		SaleCode:   evt.Code,
	})
	if err != nil {
		return err
	}
	_, err = h.queue.EnqueueContext(ctx, task)
	return err
}

func saleRefKey(evt sales.SaleFinalizedEvent) string {
	return fmt.Sprintf("sale:%d", evt.SaleID)
}
