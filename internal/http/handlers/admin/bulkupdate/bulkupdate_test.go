package bulkupdate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-service/internal/models"
)

// MockService реализует интерфейс bulkupdate.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) AdminBulkSetStatus(ctx context.Context, userIDs []string, target models.Target) (models.BulkResult, error) {
	args := m.Called(ctx, userIDs, target)
	return args.Get(0).(models.BulkResult), args.Error(1)
}

const (
	idA = "0b9a3f39-6c43-4b5a-a8a4-6d3e1f7f2a11"
	idB = "5c1e8d2a-1f2b-4c3d-9e4f-5a6b7c8d9e0f"
)

func TestBulkUpdateHandler_PartialFailure(t *testing.T) {
	svc := new(MockService)
	svc.On("AdminBulkSetStatus", mock.Anything, []string{idA, idB}, models.Target{Status: models.StatusExpired}).
		Return(models.BulkResult{
			Succeeded: []string{idA},
			Failures:  map[string]models.ErrorKind{idB: models.KindNotFound},
		}, nil)

	body := fmt.Sprintf(`{"user_ids":[%q,%q],"status":"expired"}`, idA, idB)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subscriptions/bulk", strings.NewReader(body))
	w := httptest.NewRecorder()

	New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, 10).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data struct {
			Succeeded []string          `json:"succeeded_ids"`
			Failures  map[string]string `json:"failures"`
			Attempted int               `json:"attempted"`
			Cancelled bool              `json:"cancelled"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, []string{idA}, resp.Data.Succeeded)
	assert.Equal(t, map[string]string{idB: "not_found"}, resp.Data.Failures)
	assert.Equal(t, 2, resp.Data.Attempted)
	assert.False(t, resp.Data.Cancelled)
	svc.AssertExpectations(t)
}

func TestBulkUpdateHandler_Rejections(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		maxIDs         int
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "malformed json",
			body:           `[`,
			maxIDs:         10,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "empty id list",
			body:           `{"user_ids":[],"status":"inactive"}`,
			maxIDs:         10,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "at least",
		},
		{
			name:           "id is not uuid",
			body:           `{"user_ids":["abc"],"status":"inactive"}`,
			maxIDs:         10,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "uuid",
		},
		{
			name:           "too many ids",
			body:           fmt.Sprintf(`{"user_ids":[%q,%q],"status":"inactive"}`, idA, idB),
			maxIDs:         1,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   "at most 1",
		},
		{
			name:   "service rejects target before any write",
			body:   fmt.Sprintf(`{"user_ids":[%q],"status":"active","expiry":"2001-01-01T00:00:00Z"}`, idA),
			maxIDs: 10,
			setupMock: func(m *MockService) {
				m.On("AdminBulkSetStatus", mock.Anything, []string{idA}, mock.Anything).
					Return(models.BulkResult{}, models.ErrInvalidTarget)
			},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"kind":"invalid_target"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			tt.setupMock(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/subscriptions/bulk", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, tt.maxIDs).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			svc.AssertExpectations(t)
		})
	}
}
