package change

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-chi/chi/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
	"github.com/magabrotheeeer/streaming-entitlements/internal/paymentgateway"
	"github.com/magabrotheeeer/streaming-entitlements/internal/services/subscription"
	"github.com/magabrotheeeer/streaming-entitlements/internal/storage"
)

// MockService реализует интерфейс change.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ChangePlan(ctx context.Context, userUID string, tierID int) (*subscription.ChangeResult, error) {
	args := m.Called(ctx, userUID, tierID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.ChangeResult), args.Error(1)
}

func TestChangeHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		requestBody    interface{}
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешное повышение тарифа",
			requestBody: models.DummyChangePlan{TierID: 3},
			userUID:     "user123",
			setupMock: func(m *MockService) {
				m.On("ChangePlan", mock.Anything, "user123", 3).
					Return(&subscription.ChangeResult{
						TierID:   3,
						TierName: "Premium",
						Charged:  decimal.RequireFromString("5"),
						Currency: "USD",
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"status":"OK","data":{"tier_id":3,"tier_name":"Premium","charged":"5","currency":"USD"}}`,
		},
		{
			name:        "платёж отклонён",
			requestBody: models.DummyChangePlan{TierID: 3},
			userUID:     "user123",
			setupMock: func(m *MockService) {
				m.On("ChangePlan", mock.Anything, "user123", 3).
					Return(nil, paymentgateway.ErrDeclined)
			},
			expectedStatus: http.StatusPaymentRequired,
			expectedBody:   `{"status":"Error","error":"payment declined"}`,
		},
		{
			name:        "тариф не найден",
			requestBody: models.DummyChangePlan{TierID: 42},
			userUID:     "user123",
			setupMock: func(m *MockService) {
				m.On("ChangePlan", mock.Anything, "user123", 42).
					Return(nil, storage.ErrTierNotFound)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"status":"Error","error":"tier not found"}`,
		},
		{
			name:           "невалидные данные",
			requestBody:    models.DummyChangePlan{},
			userUID:        "user123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field TierID is a required field"}`,
		},
		{
			name:           "некорректный JSON",
			requestBody:    "not a json",
			userUID:        "user123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"status":"Error","error":"invalid request body"}`,
		},
		{
			name:           "отсутствует авторизация",
			requestBody:    models.DummyChangePlan{TierID: 3},
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:        "ошибка сервиса",
			requestBody: models.DummyChangePlan{TierID: 3},
			userUID:     "user123",
			setupMock: func(m *MockService) {
				m.On("ChangePlan", mock.Anything, "user123", 3).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to change plan"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			var body []byte
			var err error
			if str, ok := tt.requestBody.(string); ok {
				body = []byte(str)
			} else {
				body, err = json.Marshal(tt.requestBody)
				require.NoError(t, err)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/change", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			ctx := context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID)
			ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-id")
			req = req.WithContext(ctx)

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
			mockService.AssertExpectations(t)
		})
	}
}
