package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/klinika/klinika/internal/inventory"
)

type fakeBridge struct {
	lastTenant string
	lastPath   string
	lastBody   any
	response   any
	err        error
}

func (f *fakeBridge) Post(_ context.Context, tenantID, path string, body any) (any, error) {
	f.lastTenant = tenantID
	f.lastPath = path
	f.lastBody = body
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

type fakeStore struct {
	delivered []uuid.UUID
	failed    map[uuid.UUID]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{failed: map[uuid.UUID]string{}}
}

func (f *fakeStore) MarkDelivered(_ context.Context, id uuid.UUID) error {
	f.delivered = append(f.delivered, id)
	return nil
}

func (f *fakeStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	f.failed[id] = reason
	return nil
}

type fakeScanner struct {
	items []inventory.LowStockItem
	err   error
}

func (f *fakeScanner) LowStock(context.Context, string, int64) ([]inventory.LowStockItem, error) {
	return f.items, f.err
}

type fakeNotifier struct {
	tenantID string
	items    []inventory.LowStockItem
	err      error
}

func (f *fakeNotifier) HandleLowStock(_ context.Context, tenantID string, items []inventory.LowStockItem) error {
	f.tenantID = tenantID
	f.items = items
	return f.err
}

func newTestHandlers(bridge *fakeBridge, store *fakeStore, scanner *fakeScanner, notifier *fakeNotifier) *Handlers {
	return NewHandlers(bridge, store, scanner, notifier, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

func TestHandleSMSSendDelivers(t *testing.T) {
	bridge := &fakeBridge{response: map[string]any{"success": true}}
	store := newFakeStore()
	h := newTestHandlers(bridge, store, nil, nil)

	id := uuid.New()
	task, err := NewSMSSendTask(SMSSendPayload{
		DeliveryID: id.String(),
		TenantID:   "tnt-1",
		Sender:     "KLINIKA",
		Phone:      "+905551112233",
		Message:    "Satışınız tamamlandı.",
	})
	require.NoError(t, err)

	require.NoError(t, h.HandleSMSSend(context.Background(), task))
	require.Equal(t, "tnt-1", bridge.lastTenant)
	require.Equal(t, "/bridge/sms", bridge.lastPath)
	require.Equal(t, []uuid.UUID{id}, store.delivered)
	require.Empty(t, store.failed)
}

func TestHandleSMSSendUpstreamFailureMarksFailed(t *testing.T) {
	bridge := &fakeBridge{err: errors.New("connection refused")}
	store := newFakeStore()
	h := newTestHandlers(bridge, store, nil, nil)

	id := uuid.New()
	task, err := NewSMSSendTask(SMSSendPayload{DeliveryID: id.String(), TenantID: "tnt-1", Phone: "+905551112233"})
	require.NoError(t, err)

	err = h.HandleSMSSend(context.Background(), task)
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
	require.Contains(t, store.failed[id], "connection refused")
	require.Empty(t, store.delivered)
}

func TestHandleEInvoiceRejectionUsesEnvelopeMessage(t *testing.T) {
	bridge := &fakeBridge{response: map[string]any{
		"data": map[string]any{"error": "mükellef bulunamadı"},
	}}
	store := newFakeStore()
	h := newTestHandlers(bridge, store, nil, nil)

	id := uuid.New()
	task, err := NewEInvoiceSubmitTask(EInvoiceSubmitPayload{
		DeliveryID: id.String(),
		TenantID:   "tnt-1",
		SaleID:     42,
		SaleCode:   "SAT-2026-000042",
	})
	require.NoError(t, err)

	err = h.HandleEInvoiceSubmit(context.Background(), task)
	require.Error(t, err)
	require.Equal(t, "mükellef bulunamadı", store.failed[id])
}

func TestHandleTelegramNotifyBadPayloadSkipsRetry(t *testing.T) {
	h := newTestHandlers(&fakeBridge{}, newFakeStore(), nil, nil)

	task := asynq.NewTask(TaskTypeTelegramNotify, []byte("{not json"))
	err := h.HandleTelegramNotify(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestDeliverRejectsMalformedDeliveryID(t *testing.T) {
	h := newTestHandlers(&fakeBridge{}, newFakeStore(), nil, nil)

	task, err := NewSMSSendTask(SMSSendPayload{DeliveryID: "not-a-uuid", TenantID: "tnt-1"})
	require.NoError(t, err)

	err = h.HandleSMSSend(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleLowStockScanNotifies(t *testing.T) {
	items := []inventory.LowStockItem{
		{Product: inventory.Product{ID: 1, Name: "Parasetamol 500mg"}, Quantity: 3, Deficit: 7},
	}
	scanner := &fakeScanner{items: items}
	notifier := &fakeNotifier{}
	h := newTestHandlers(&fakeBridge{}, newFakeStore(), scanner, notifier)

	task, err := NewLowStockScanTask(LowStockScanPayload{TenantID: "tnt-1", BranchID: 2})
	require.NoError(t, err)

	require.NoError(t, h.HandleLowStockScan(context.Background(), task))
	require.Equal(t, "tnt-1", notifier.tenantID)
	require.Equal(t, items, notifier.items)
}

func TestHandleLowStockScanScannerError(t *testing.T) {
	scanner := &fakeScanner{err: errors.New("upstream timeout")}
	h := newTestHandlers(&fakeBridge{}, newFakeStore(), scanner, &fakeNotifier{})

	task, err := NewLowStockScanTask(LowStockScanPayload{TenantID: "tnt-1"})
	require.NoError(t, err)

	require.Error(t, h.HandleLowStockScan(context.Background(), task))
}
