package integration

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/klinika/klinika/internal/inventory"
	"github.com/klinika/klinika/internal/parties"
	"github.com/klinika/klinika/internal/sales"
	"github.com/klinika/klinika/jobs"
)

type fakeQueue struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeQueue) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fakeRecorder struct {
	inserted  []Delivery
	duplicate map[string]bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{duplicate: map[string]bool{}}
}

func (f *fakeRecorder) Insert(_ context.Context, d Delivery) error {
	if f.duplicate[d.Channel+"/"+d.RefKey] {
		return ErrDuplicateDelivery
	}
	f.inserted = append(f.inserted, d)
	return nil
}

type fakeDirectory struct {
	party *parties.Party
	err   error
}

func (f *fakeDirectory) Get(context.Context, string, int64) (*parties.Party, error) {
	return f.party, f.err
}

func strPtr(s string) *string { return &s }

func newTestHooks(queue *fakeQueue, rec *fakeRecorder, dir *fakeDirectory, cfg Config) *Hooks {
	return NewHooks(queue, rec, dir, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func saleEvent() sales.SaleFinalizedEvent {
	return sales.SaleFinalizedEvent{
		TenantID:     "tnt-1",
		SaleID:       42,
		Code:         "SAT-2026-000042",
		PartyID:      7,
		PatientTotal: 157.50,
		GrandTotal:   212.00,
	}
}

func TestSaleFinalizedQueuesSMSAndEInvoice(t *testing.T) {
	queue := &fakeQueue{}
	rec := newFakeRecorder()
	dir := &fakeDirectory{party: &parties.Party{ID: 7, Name: "Ayşe Yılmaz", Phone: strPtr("+905551112233")}}
	hooks := newTestHooks(queue, rec, dir, Config{SMSSender: "KLINIKA", EInvoiceEnabled: true})

	require.NoError(t, hooks.HandleSaleFinalized(context.Background(), saleEvent()))

	require.Len(t, rec.inserted, 2)
	require.Equal(t, jobs.ChannelSMS, rec.inserted[0].Channel)
	require.Equal(t, "sale:42", rec.inserted[0].RefKey)
	require.Equal(t, "+905551112233", rec.inserted[0].Target)
	require.Equal(t, jobs.ChannelEInvoice, rec.inserted[1].Channel)

	require.Len(t, queue.tasks, 2)
	require.Equal(t, jobs.TaskTypeSMSSend, queue.tasks[0].Type())
	require.Equal(t, jobs.TaskTypeEInvoiceSubmit, queue.tasks[1].Type())
	require.Contains(t, string(queue.tasks[0].Payload()), "SAT-2026-000042")
	require.Contains(t, string(queue.tasks[0].Payload()), "157.50")
}

func TestSaleFinalizedWithoutPhoneSkipsSMS(t *testing.T) {
	queue := &fakeQueue{}
	rec := newFakeRecorder()
	dir := &fakeDirectory{party: &parties.Party{ID: 7, Name: "Nakit Müşteri"}}
	hooks := newTestHooks(queue, rec, dir, Config{EInvoiceEnabled: true})

	require.NoError(t, hooks.HandleSaleFinalized(context.Background(), saleEvent()))
	require.Len(t, queue.tasks, 1)
	require.Equal(t, jobs.TaskTypeEInvoiceSubmit, queue.tasks[0].Type())
}

func TestSaleFinalizedEInvoiceDisabled(t *testing.T) {
	queue := &fakeQueue{}
	rec := newFakeRecorder()
	dir := &fakeDirectory{party: &parties.Party{ID: 7, Phone: strPtr("+905551112233")}}
	hooks := newTestHooks(queue, rec, dir, Config{SMSSender: "KLINIKA"})

	require.NoError(t, hooks.HandleSaleFinalized(context.Background(), saleEvent()))
	require.Len(t, queue.tasks, 1)
	require.Equal(t, jobs.TaskTypeSMSSend, queue.tasks[0].Type())
}

func TestSaleFinalizedDuplicateDropped(t *testing.T) {
	queue := &fakeQueue{}
	rec := newFakeRecorder()
	rec.duplicate[jobs.ChannelSMS+"/sale:42"] = true
	rec.duplicate[jobs.ChannelEInvoice+"/sale:42"] = true
	dir := &fakeDirectory{party: &parties.Party{ID: 7, Phone: strPtr("+905551112233")}}
	hooks := newTestHooks(queue, rec, dir, Config{SMSSender: "KLINIKA", EInvoiceEnabled: true})

	require.NoError(t, hooks.HandleSaleFinalized(context.Background(), saleEvent()))
	require.Empty(t, queue.tasks)
}

func TestLowStockAlertFormatsDigest(t *testing.T) {
	queue := &fakeQueue{}
	rec := newFakeRecorder()
	hooks := newTestHooks(queue, rec, &fakeDirectory{}, Config{TelegramChatID: "-1001"})

	items := []inventory.LowStockItem{
		{Product: inventory.Product{ID: 1, Name: "Parasetamol 500mg"}, Quantity: 3, Deficit: 7},
		{Product: inventory.Product{ID: 2, Name: "Serum Fizyolojik"}, Quantity: 0, Deficit: 20},
	}
	require.NoError(t, hooks.HandleLowStock(context.Background(), "tnt-1", items))

	require.Len(t, queue.tasks, 1)
	require.Equal(t, jobs.TaskTypeTelegramNotify, queue.tasks[0].Type())
	payload := string(queue.tasks[0].Payload())
	require.Contains(t, payload, "2 ürün")
	require.Contains(t, payload, "Parasetamol 500mg")
	require.Contains(t, payload, "-1001")
}

func TestLowStockNoItemsNoAlert(t *testing.T) {
	queue := &fakeQueue{}
	hooks := newTestHooks(queue, newFakeRecorder(), &fakeDirectory{}, Config{TelegramChatID: "-1001"})

	require.NoError(t, hooks.HandleLowStock(context.Background(), "tnt-1", nil))
	require.Empty(t, queue.tasks)
}

func TestLowStockWithoutChatIDDisabled(t *testing.T) {
	queue := &fakeQueue{}
	hooks := newTestHooks(queue, newFakeRecorder(), &fakeDirectory{}, Config{})

	items := []inventory.LowStockItem{{Product: inventory.Product{Name: "X"}, Quantity: 1, Deficit: 1}}
	require.NoError(t, hooks.HandleLowStock(context.Background(), "tnt-1", items))
	require.Empty(t, queue.tasks)
}
