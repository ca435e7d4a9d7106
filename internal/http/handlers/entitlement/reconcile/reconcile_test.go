package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// MockService реализует интерфейс reconcile.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) SelfReconcile(ctx context.Context, userID string) (*models.Entitlement, error) {
	args := m.Called(ctx, userID)
	if res := args.Get(0); res != nil {
		return res.(*models.Entitlement), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestReconcileHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	const userUID = "5c1e8d2a-1f2b-4c3d-9e4f-5a6b7c8d9e0f"

	tests := []struct {
		name           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedKind   string
		reconciled     bool
	}{
		{
			name: "stale record downgraded",
			setupMock: func(m *MockService) {
				m.On("SelfReconcile", mock.Anything, userUID).
					Return(&models.Entitlement{UserID: userUID, Status: models.StatusExpired, Reconciled: true}, nil)
			},
			expectedStatus: http.StatusOK,
			reconciled:     true,
		},
		{
			name: "nothing to do",
			setupMock: func(m *MockService) {
				m.On("SelfReconcile", mock.Anything, userUID).
					Return(&models.Entitlement{UserID: userUID, Status: models.StatusActive, IsEntitled: true}, nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "corrupt record",
			setupMock: func(m *MockService) {
				m.On("SelfReconcile", mock.Anything, userUID).Return(nil, fmt.Errorf("x: %w", models.ErrInvalidRecord))
			},
			expectedStatus: http.StatusConflict,
			expectedKind:   "invalid_record",
		},
		{
			name: "storage timeout",
			setupMock: func(m *MockService) {
				m.On("SelfReconcile", mock.Anything, userUID).Return(nil, context.DeadlineExceeded)
			},
			expectedStatus: http.StatusGatewayTimeout,
			expectedKind:   "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/subscription/reconcile", nil)
			req = req.WithContext(context.WithValue(req.Context(), middlewarectx.UserUID, userUID))
			w := httptest.NewRecorder()

			New(logger, svc).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.expectedKind != "" {
				assert.Equal(t, tt.expectedKind, body["kind"])
			} else {
				data := body["data"].(map[string]any)
				assert.Equal(t, tt.reconciled, data["reconciled"])
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestReconcileHandler_Unauthorized(t *testing.T) {
	svc := new(MockService)
	w := httptest.NewRecorder()
	New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).
		ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/subscription/reconcile", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "SelfReconcile", mock.Anything, mock.Anything)
}
