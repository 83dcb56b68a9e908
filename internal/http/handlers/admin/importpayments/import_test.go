package importpayments

import (
	"context"
	"fmt"
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
)

type mockService struct{ mock.Mock }

func (m *mockService) ImportProvider(ctx context.Context, providerID string) (models.ImportStats, error) {
	args := m.Called(ctx, providerID)
	return args.Get(0).(models.ImportStats), args.Error(1)
}

func (m *mockService) ImportAll(ctx context.Context) map[string]models.ImportStats {
	args := m.Called(ctx)
	return args.Get(0).(map[string]models.ImportStats)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func doRequest(t *testing.T, handler *Handler, providerID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/import/"+providerID, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("provider", providerID)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestImportHandler(t *testing.T) {
	tests := []struct {
		name           string
		providerID     string
		setupMock      func(*mockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:       "single provider",
			providerID: provider.ProcessorStripe,
			setupMock: func(m *mockService) {
				m.On("ImportProvider", mock.Anything, provider.ProcessorStripe).
					Return(models.ImportStats{Total: 3, Imported: 2, Skipped: 1}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"stats":{"total":3,"imported":2,"skipped":1,"errors":0,"users_created":0}}}`,
		},
		{
			name:       "all providers",
			providerID: "all",
			setupMock: func(m *mockService) {
				m.On("ImportAll", mock.Anything).Return(map[string]models.ImportStats{
					provider.ProcessorPolar: {Total: 1, Imported: 1},
				})
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"results":{"polar":{"total":1,"imported":1,"skipped":0,"errors":0,"users_created":0}}}}`,
		},
		{
			name:       "unknown provider",
			providerID: "nope",
			setupMock: func(m *mockService) {
				m.On("ImportProvider", mock.Anything, "nope").
					Return(models.ImportStats{}, fmt.Errorf("wrapped: %w", provider.ErrUnknownProvider))
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"unknown payment provider"}`,
		},
		{
			name:       "provider not configured",
			providerID: provider.ProcessorPolar,
			setupMock: func(m *mockService) {
				m.On("ImportProvider", mock.Anything, provider.ProcessorPolar).
					Return(models.ImportStats{}, fmt.Errorf("wrapped: %w", provider.ErrNotConfigured))
			},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   `{"status":"Error","error":"payment provider is not available"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			tt.setupMock(svc)

			handler := New(discardLogger(), svc)
			w := doRequest(t, handler, tt.providerID)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
