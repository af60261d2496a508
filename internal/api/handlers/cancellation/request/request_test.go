package request

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
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/streaming-entitlements/internal/api/middlewarectx"
	"github.com/magabrotheeeer/streaming-entitlements/internal/models"
)

// MockService реализует интерфейс request.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) RequestCancellation(ctx context.Context, userUID string, effectiveDate time.Time) (*models.CancellationRequest, error) {
	args := m.Called(ctx, userUID, effectiveDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.CancellationRequest), args.Error(1)
}

func TestRequestHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	effectiveDate := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		requestBody    interface{}
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "успешная заявка на отмену",
			requestBody: models.DummyCancellation{EffectiveDate: "2025-09-15"},
			userUID:     "user123",
			setupMock: func(m *MockService) {
				m.On("RequestCancellation", mock.Anything, "user123", effectiveDate).
					Return(&models.CancellationRequest{
						ID:            5,
						UserUID:       "user123",
						RequestedAt:   time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC),
						EffectiveDate: effectiveDate,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody: `{"status":"OK","data":{"id":5,"user_uid":"user123",` +
				`"requested_at":"2025-08-01T10:00:00Z","effective_date":"2025-09-15T00:00:00Z","processed":false}}`,
		},
		{
			name:           "невалидные данные",
			requestBody:    models.DummyCancellation{},
			userUID:        "user123",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `{"status":"Error","error":"field EffectiveDate is a required field"}`,
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
			requestBody:    models.DummyCancellation{EffectiveDate: "2025-09-15"},
			userUID:        "",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"status":"Error","error":"unauthorized"}`,
		},
		{
			name:        "ошибка сервиса",
			requestBody: models.DummyCancellation{EffectiveDate: "2025-09-15"},
			userUID:     "user123",
			setupMock: func(m *MockService) {
				m.On("RequestCancellation", mock.Anything, "user123", effectiveDate).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `{"status":"Error","error":"failed to create cancellation request"}`,
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

			req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellation", bytes.NewReader(body))
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
