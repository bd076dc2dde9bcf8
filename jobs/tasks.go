// Package jobs holds the background task types and the Asynq worker for
// outbound integrations: SMS receipts, e-invoice submission, Telegram stock
// alerts, and the scheduled low-stock scan.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeSMSSend delivers an SMS through the upstream bridge.
	TaskTypeSMSSend = "sms:send"
	// TaskTypeEInvoiceSubmit submits a finalized sale as an e-invoice.
	TaskTypeEInvoiceSubmit = "einvoice:submit"
	// TaskTypeTelegramNotify posts a message to the tenant's Telegram chat.
	TaskTypeTelegramNotify = "telegram:notify"
	// TaskTypeLowStockScan runs the periodic low-stock check per tenant.
	TaskTypeLowStockScan = "inventory:lowstock:scan"
)

// Delivery channels shared with the delivery log.
const (
	ChannelSMS      = "sms"
	ChannelEInvoice = "einvoice"
	ChannelTelegram = "telegram"
)

// SMSSendPayload describes one SMS delivery.
type SMSSendPayload struct {
	DeliveryID string `json:"delivery_id"`
	TenantID   string `json:"tenant_id"`
	Sender     string `json:"sender"`
	Phone      string `json:"phone"`
	Message    string `json:"message"`
}

// NewSMSSendTask constructs an Asynq task.
func NewSMSSendTask(payload SMSSendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSMSSend, data, asynq.Queue(QueueDefault)), nil
}

// EInvoiceSubmitPayload describes one e-invoice submission.
type EInvoiceSubmitPayload struct {
	DeliveryID string `json:"delivery_id"`
	TenantID   string `json:"tenant_id"`
	SaleID     int64  `json:"sale_id"`
	SaleCode   string `json:"sale_code"`
}

// NewEInvoiceSubmitTask constructs an Asynq task.
func NewEInvoiceSubmitTask(payload EInvoiceSubmitPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeEInvoiceSubmit, data, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// TelegramNotifyPayload describes one Telegram message.
type TelegramNotifyPayload struct {
	DeliveryID string `json:"delivery_id"`
	TenantID   string `json:"tenant_id"`
	ChatID     string `json:"chat_id"`
	Text       string `json:"text"`
}

// NewTelegramNotifyTask constructs an Asynq task.
func NewTelegramNotifyTask(payload TelegramNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeTelegramNotify, data, asynq.Queue(QueueDefault)), nil
}

// LowStockScanPayload scopes a scan run to one tenant and branch.
type LowStockScanPayload struct {
	TenantID string `json:"tenant_id"`
	BranchID int64  `json:"branch_id"`
}

// NewLowStockScanTask constructs an Asynq task.
func NewLowStockScanTask(payload LowStockScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeLowStockScan, data, asynq.Queue(QueueDefault)), nil
}
