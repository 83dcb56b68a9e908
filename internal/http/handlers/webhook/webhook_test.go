package webhook

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shipforge/payment-ledger/internal/models"
	"github.com/shipforge/payment-ledger/internal/provider"
	"github.com/shipforge/payment-ledger/internal/services/importer"
)

type stubProvider struct {
	id       string
	order    *models.OrderData
	parseErr error
}

func (s *stubProvider) ID() string         { return s.id }
func (s *stubProvider) Name() string       { return s.id }
func (s *stubProvider) IsConfigured() bool { return true }
func (s *stubProvider) IsEnabled() bool    { return true }

func (s *stubProvider) GetPaymentStatus(context.Context, string) (bool, error) { return false, nil }
func (s *stubProvider) HasUserPurchasedProduct(context.Context, string, string) (bool, error) {
	return false, nil
}
func (s *stubProvider) HasUserActiveSubscription(context.Context, string) (bool, error) {
	return false, nil
}
func (s *stubProvider) GetUserPurchasedProducts(context.Context, string) ([]models.ProductData, error) {
	return nil, nil
}
func (s *stubProvider) GetAllOrders(context.Context) ([]models.OrderData, error) { return nil, nil }
func (s *stubProvider) GetOrdersByEmail(context.Context, string) ([]models.OrderData, error) {
	return nil, nil
}
func (s *stubProvider) CreateCheckoutURL(context.Context, models.CheckoutOptions) (string, error) {
	return "", nil
}
func (s *stubProvider) ParseWebhookEvent(context.Context, provider.WebhookEvent) (*models.OrderData, error) {
	return s.order, s.parseErr
}

type mockReconciler struct{ mock.Mock }

func (m *mockReconciler) ReconcileOrder(ctx context.Context, order models.OrderData) (importer.Result, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(importer.Result), args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, handler *Handler, providerID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/"+providerID, bytes.NewReader([]byte(`{}`)))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("provider", providerID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestWebhookHandler(t *testing.T) {
	order := &models.OrderData{
		OrderID:   "ord-1",
		UserEmail: "buyer@example.com",
		Status:    models.OrderStatusPaid,
		Processor: provider.ProcessorStripe,
	}

	tests := []struct {
		name           string
		provider       *stubProvider
		setupMock      func(*mockReconciler)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:     "paid order reconciled",
			provider: &stubProvider{id: provider.ProcessorStripe, order: order},
			setupMock: func(m *mockReconciler) {
				m.On("ReconcileOrder", mock.Anything, *order).
					Return(importer.Result{Outcome: importer.OutcomeImported}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"handled":true,"imported":true}}`,
		},
		{
			name:           "irrelevant event acknowledged",
			provider:       &stubProvider{id: provider.ProcessorStripe},
			setupMock:      func(_ *mockReconciler) {},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"handled":false}}`,
		},
		{
			name: "invalid signature",
			provider: &stubProvider{
				id:       provider.ProcessorStripe,
				parseErr: provider.ErrInvalidSignature,
			},
			setupMock:      func(_ *mockReconciler) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"invalid signature"}`,
		},
		{
			name:     "reconciliation failure",
			provider: &stubProvider{id: provider.ProcessorStripe, order: order},
			setupMock: func(m *mockReconciler) {
				m.On("ReconcileOrder", mock.Anything, *order).
					Return(importer.Result{}, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not process event"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconciler := new(mockReconciler)
			tt.setupMock(reconciler)

			handler := New(discardLogger(), provider.NewRegistry(tt.provider), reconciler)
			w := doRequest(t, handler, tt.provider.id)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			reconciler.AssertExpectations(t)
		})
	}
}

func TestWebhookHandler_UnknownProvider(t *testing.T) {
	handler := New(discardLogger(), provider.NewRegistry(), new(mockReconciler))
	w := doRequest(t, handler, "nope")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"status":"Error","error":"unknown payment provider"}`, w.Body.String())
}
