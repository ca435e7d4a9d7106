package status

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// MockService реализует интерфейс status.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) CheckStatus(ctx context.Context, userID string) (*models.Entitlement, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.(*models.Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestStatusHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const userUID = "0b9a3f39-6c43-4b5a-a8a4-6d3e1f7f2a11"
	expiry := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		userUID        string
		setupMock      func(*MockService)
		expectedStatus int
		check          func(t *testing.T, body map[string]any)
	}{
		{
			name:    "stale record reported without correction",
			userUID: userUID,
			setupMock: func(m *MockService) {
				m.On("CheckStatus", mock.Anything, userUID).Return(&models.Entitlement{
					UserID: userUID, Status: models.StatusExpired, Expiry: &expiry, Stale: true,
				}, nil)
			},
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				data := body["data"].(map[string]any)
				assert.Equal(t, "expired", data["status"])
				assert.Equal(t, false, data["is_entitled"])
				assert.Equal(t, true, data["stale"])
			},
		},
		{
			name:           "no user in context",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:    "record not found",
			userUID: userUID,
			setupMock: func(m *MockService) {
				m.On("CheckStatus", mock.Anything, userUID).Return(nil, fmt.Errorf("load: %w", models.ErrNotFound))
			},
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, body map[string]any) {
				assert.Equal(t, "not_found", body["kind"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/v1/subscription/status", nil)
			if tt.userUID != "" {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, tt.userUID))
			}
			w := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.check != nil {
				var body map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				tt.check(t, body)
			}
			svc.AssertExpectations(t)
		})
	}
}
