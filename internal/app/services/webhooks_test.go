package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fr0stylo/abacate/internal/app/domain"
	"github.com/fr0stylo/abacate/internal/app/ports"
	"github.com/fr0stylo/abacate/pkg/abacatepay"
)

const testWebhookSecret = "dev-key"

func testSettings() GatewaySettings {
	return GatewaySettings{
		Enabled:     true,
		Credentials: abacatepay.Credentials{DevMode: true, DevKey: testWebhookSecret, ProdKey: "prod-key"},
	}
}

func signedCommand(body string) WebhookCommand {
	return WebhookCommand{
		SignatureHeader: abacatepay.Sign([]byte(body), testWebhookSecret),
		Body:            []byte(body),
	}
}

func pendingBillingOrder() domain.Order {
	return domain.Order{ID: 1, Status: domain.StatusPending, Meta: map[string]string{domain.MetaBillingID: "bill_123"}}
}

func TestWebhookBillingPaidMovesOrderToProcessing(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)
	require.Equal(t, int64(1), result.OrderID)
	require.True(t, result.StockReduced)

	order := store.order(1)
	require.Equal(t, domain.StatusProcessing, order.Status)
	require.Len(t, order.Notes, 1)
	require.Contains(t, order.Notes[0].Note, "bill_123")
	require.Equal(t, 1, store.stockDrops[1])
}

func TestWebhookInvalidSignatureLeavesOrderUntouched(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	audit := &memoryAudit{}
	svc := NewWebhookService(testSettings(), store, WithWebhookAudit(audit))

	body := `{"event":"billing.paid","data":{"id":"bill_123"}}`
	cmd := WebhookCommand{SignatureHeader: abacatepay.Sign([]byte(body), "prod-key"), Body: []byte(body)}
	_, err := svc.Handle(context.Background(), cmd)
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Equal(t, WebhookErrorInvalidSignature, ClassifyWebhookError(err))

	order := store.order(1)
	require.Equal(t, domain.StatusPending, order.Status)
	require.Empty(t, order.Notes)
	require.Zero(t, store.saveCalls)
	require.Empty(t, audit.records)
}

func TestWebhookMissingSignatureFailsClosed(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)

	_, err := svc.Handle(context.Background(), WebhookCommand{Body: []byte(`{"event":"billing.paid","data":{"id":"bill_123"}}`)})
	require.ErrorIs(t, err, ErrInvalidSignature)
	require.Zero(t, store.saveCalls)
}

func TestWebhookAcceptsBearerFallback(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)

	body := `{"event":"billing.paid","data":{"id":"bill_123"}}`
	result, err := svc.Handle(context.Background(), WebhookCommand{
		AuthorizationHeader: "Bearer " + abacatepay.Sign([]byte(body), testWebhookSecret),
		Body:                []byte(body),
	})
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)
}

func TestWebhookVerifiesAgainstActiveModeKey(t *testing.T) {
	t.Parallel()

	settings := testSettings()
	settings.Credentials.DevMode = false
	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(settings, store)

	_, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`))
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestWebhookPixExpiredCancelsPendingOrder(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(domain.Order{ID: 2, Status: domain.StatusPending, Meta: map[string]string{domain.MetaPixID: "pix_999"}})
	svc := NewWebhookService(testSettings(), store)

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"pix.expired","data":{"id":"pix_999"}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)

	order := store.order(2)
	require.Equal(t, domain.StatusCancelled, order.Status)
	require.Len(t, order.Notes, 1)
	require.Zero(t, store.stockDrops[2])
}

func TestWebhookPixExpiredIgnoredAfterPayment(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(domain.Order{ID: 2, Status: domain.StatusProcessing, Meta: map[string]string{domain.MetaPixID: "pix_999"}})
	svc := NewWebhookService(testSettings(), store)

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"pix.expired","data":{"id":"pix_999"}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, result.Outcome)
	require.Equal(t, domain.StatusProcessing, store.order(2).Status)
	require.Empty(t, store.order(2).Notes)
}

func TestWebhookOrderNotFoundIsAcknowledged(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	audit := &memoryAudit{}
	svc := NewWebhookService(testSettings(), store, WithWebhookAudit(audit))

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":"bill_unknown"}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeOrderNotFound, result.Outcome)
	require.Zero(t, store.saveCalls)
	require.Len(t, audit.records, 1)
	require.Equal(t, string(OutcomeOrderNotFound), audit.records[0].Outcome)
	require.Equal(t, "bill_unknown", audit.records[0].ResourceID)
}

func TestWebhookMalformedBodyRejectedBeforeSignature(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)

	for _, body := range []string{"", "not json", "{}", "[]", "null", `"text"`, `{"event":"billing.paid"} trailing`} {
		_, err := svc.Handle(context.Background(), signedCommand(body))
		require.ErrorIs(t, err, ErrNoPayload, "body %q", body)
		require.Equal(t, WebhookErrorNoPayload, ClassifyWebhookError(err))
	}
	require.Zero(t, store.saveCalls)
}

func TestWebhookDuplicatePaidDeliveryDecrementsStockOnce(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)
	cmd := signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`)

	first, err := svc.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, first.Outcome)

	second, err := svc.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, OutcomeDuplicate, second.Outcome)
	require.False(t, second.StockReduced)

	order := store.order(1)
	require.Equal(t, domain.StatusProcessing, order.Status)
	require.Len(t, order.Notes, 2)
	require.Equal(t, 1, store.stockDrops[1])
}

func TestWebhookUnknownEventAcknowledged(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)

	for _, body := range []string{
		`{"event":"subscription.renewed","data":{"id":"bill_123"}}`,
		`{"data":{"id":"bill_123"}}`,
		`{"event":42}`,
	} {
		result, err := svc.Handle(context.Background(), signedCommand(body))
		require.NoError(t, err)
		require.Equal(t, OutcomeUnknownEvent, result.Outcome)
		require.Equal(t, abacatepay.EventUnrecognized, result.Event)
	}
	require.Zero(t, store.saveCalls)
}

func TestWebhookMissingResourceIDAcknowledged(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)

	for _, body := range []string{`{"event":"billing.paid","data":{}}`, `{"event":"pix.paid"}`, `{"event":"pix.expired","data":"x"}`} {
		result, err := svc.Handle(context.Background(), signedCommand(body))
		require.NoError(t, err)
		require.Equal(t, OutcomeMissingResource, result.Outcome)
	}
	require.Zero(t, store.saveCalls)
}

func TestWebhookWithdrawPaidOnlyLogs(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store)

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"withdraw.paid","data":{"id":"tran_1","amount":5000,"status":"COMPLETE"}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeLogged, result.Outcome)
	require.Equal(t, "tran_1", result.ResourceID)
	require.Zero(t, store.saveCalls)
}

func TestWebhookPaidOnRefundedOrderIsIgnored(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(domain.Order{ID: 3, Status: domain.StatusRefunded, Meta: map[string]string{domain.MetaPixID: "pix_1"}})
	svc := NewWebhookService(testSettings(), store)

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"pix.paid","data":{"id":"pix_1"}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeIgnored, result.Outcome)
	require.Equal(t, domain.StatusRefunded, store.order(3).Status)
}

func TestWebhookStoreFailureSurfacesAndIsAudited(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	store.saveErr = errors.New("database is locked")
	audit := &memoryAudit{}
	svc := NewWebhookService(testSettings(), store, WithWebhookAudit(audit))

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`))
	require.ErrorIs(t, err, store.saveErr)
	require.Equal(t, WebhookErrorUnknown, ClassifyWebhookError(err))
	require.Equal(t, OutcomeFailed, result.Outcome)
	require.Len(t, audit.records, 1)
	require.Equal(t, string(OutcomeFailed), audit.records[0].Outcome)
	require.Contains(t, audit.records[0].Detail, "database is locked")
}

func TestWebhookRecoversFromPanic(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	store.panicOnFind = true
	svc := NewWebhookService(testSettings(), store)

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`))
	require.ErrorIs(t, err, ErrWebhookPanic)
	require.Equal(t, OutcomeFailed, result.Outcome)
}

func TestWebhookAuditFailureDoesNotFailDelivery(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	svc := NewWebhookService(testSettings(), store, WithWebhookAudit(&memoryAudit{err: errors.New("audit down")}))

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)
}

func TestWebhookNotifiesAppliedTransitions(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	notifier := &notifierMock{}
	notifier.On("NotifyOrderEvent", mock.Anything, mock.MatchedBy(func(event ports.OrderEvent) bool {
		return event.Kind == "paid" && event.OrderID == 1 && event.Status == "processing" && event.ProviderID == "bill_123"
	})).Return(errors.New("sink offline")).Once()
	svc := NewWebhookService(testSettings(), store, WithWebhookNotifier(notifier, time.Second))

	cmd := signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`)
	result, err := svc.Handle(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)

	_, err = svc.Handle(context.Background(), cmd)
	require.NoError(t, err)
	svc.Wait()
	notifier.AssertExpectations(t)
}

type blockingNotifier struct {
	release chan struct{}
	done    chan error
}

func (n *blockingNotifier) NotifyOrderEvent(ctx context.Context, _ ports.OrderEvent) error {
	select {
	case <-n.release:
		n.done <- nil
	case <-ctx.Done():
		n.done <- ctx.Err()
	}
	return nil
}

func TestWebhookDoesNotWaitForSlowNotifier(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	notifier := &blockingNotifier{release: make(chan struct{}), done: make(chan error, 1)}
	svc := NewWebhookService(testSettings(), store, WithWebhookNotifier(notifier, time.Minute))

	ctx, cancel := context.WithCancel(context.Background())
	handled := make(chan error, 1)
	go func() {
		_, err := svc.Handle(ctx, signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`))
		handled <- err
	}()

	select {
	case err := <-handled:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("delivery blocked on the order event sink")
	}
	require.Equal(t, domain.StatusProcessing, store.order(1).Status)

	// the request context ending must not abort the publish
	cancel()
	close(notifier.release)
	svc.Wait()
	require.NoError(t, <-notifier.done)
}

func TestWebhookNotifyTimeoutBoundsPublish(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(pendingBillingOrder())
	notifier := &blockingNotifier{release: make(chan struct{}), done: make(chan error, 1)}
	svc := NewWebhookService(testSettings(), store, WithWebhookNotifier(notifier, 20*time.Millisecond))

	_, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":"bill_123"}}`))
	require.NoError(t, err)
	svc.Wait()
	require.ErrorIs(t, <-notifier.done, context.DeadlineExceeded)
}

func TestWebhookNumericResourceID(t *testing.T) {
	t.Parallel()

	store := newMemoryOrderStore(domain.Order{ID: 4, Status: domain.StatusPending, Meta: map[string]string{domain.MetaBillingID: "12345"}})
	svc := NewWebhookService(testSettings(), store)

	result, err := svc.Handle(context.Background(), signedCommand(`{"event":"billing.paid","data":{"id":12345}}`))
	require.NoError(t, err)
	require.Equal(t, OutcomeApplied, result.Outcome)
}
