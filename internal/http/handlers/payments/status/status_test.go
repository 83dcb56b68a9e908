package status

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/shipforge/payment-ledger/internal/http/middlewarectx"
)

type mockService struct{ mock.Mock }

func (m *mockService) GetPaymentStatus(ctx context.Context, userUID string) (bool, error) {
	args := m.Called(ctx, userUID)
	return args.Bool(0), args.Error(1)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*mockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:    "has paid",
			userUID: "uid-1",
			setupMock: func(m *mockService) {
				m.On("GetPaymentStatus", mock.Anything, "uid-1").Return(true, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"has_paid":true}}`,
		},
		{
			name:    "has not paid",
			userUID: "uid-1",
			setupMock: func(m *mockService) {
				m.On("GetPaymentStatus", mock.Anything, "uid-1").Return(false, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"has_paid":false}}`,
		},
		{
			name:           "unauthorized",
			userUID:        "",
			setupMock:      func(_ *mockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:    "service failure",
			userUID: "uid-1",
			setupMock: func(m *mockService) {
				m.On("GetPaymentStatus", mock.Anything, "uid-1").
					Return(false, errors.New("db down"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"could not get payment status"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(mockService)
			tt.setupMock(svc)

			handler := New(logger, svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/status", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			svc.AssertExpectations(t)
		})
	}
}
