package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavega/order-pipeline/models"
)

// --- Mock Service ---

type MockImportService struct {
	Summary  *Summary
	Err      error
	Batches  []models.ImportBatch
	ListErr  error
	Received string

	lastSource string
	lastLimit  int
}

func (m *MockImportService) ImportCSV(ctx context.Context, source string, r io.Reader) (*Summary, error) {
	m.lastSource = source
	data, _ := io.ReadAll(r)
	m.Received = string(data)
	return m.Summary, m.Err
}

func (m *MockImportService) ListBatches(ctx context.Context, limit int) ([]models.ImportBatch, error) {
	m.lastLimit = limit
	return m.Batches, m.ListErr
}

// --- Helpers ---

func uploadRequest(t *testing.T, field, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/imports", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	return errResp["error"]
}

// --- Tests: POST /imports ---

func TestHandleUpload(t *testing.T) {
	testCases := []struct {
		name               string
		request            func(t *testing.T) *http.Request
		mockSetup          func() *MockImportService
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockImportService)
	}{
		{
			name: "Success",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "orders_export.csv", exportMay1)
			},
			mockSetup: func() *MockImportService {
				return &MockImportService{Summary: &Summary{Source: "orders_export.csv", New: 2}}
			},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockImportService) {
				var resp Summary
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, 2, resp.New)
				assert.Equal(t, "orders_export.csv", svc.lastSource)
				assert.Equal(t, exportMay1, svc.Received)
			},
		},
		{
			name: "Missing file field",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "upload", "orders.csv", exportMay1)
			},
			mockSetup:          func() *MockImportService { return &MockImportService{} },
			expectedStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockImportService) {
				assert.Equal(t, "Missing file", decodeError(t, rec))
				assert.Empty(t, svc.lastSource)
			},
		},
		{
			name: "Not a CSV file",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "orders.xlsx", "PK")
			},
			mockSetup:          func() *MockImportService { return &MockImportService{} },
			expectedStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockImportService) {
				assert.Equal(t, "File must be a CSV export", decodeError(t, rec))
			},
		},
		{
			name: "Not multipart",
			request: func(t *testing.T) *http.Request {
				return httptest.NewRequest("POST", "/imports", bytes.NewBufferString("Name\n#1\n"))
			},
			mockSetup:          func() *MockImportService { return &MockImportService{} },
			expectedStatusCode: http.StatusBadRequest,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockImportService) {
				assert.Equal(t, "Invalid upload", decodeError(t, rec))
			},
		},
		{
			name: "Undecodable CSV",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "orders.csv", "")
			},
			mockSetup: func() *MockImportService {
				return &MockImportService{Err: fmt.Errorf("read orders.csv: %w: empty file", ErrInvalidCSV)}
			},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name: "Store unavailable",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "orders.csv", exportMay1)
			},
			mockSetup: func() *MockImportService {
				return &MockImportService{Err: fmt.Errorf("import orders.csv: %w", models.ErrStoreUnavailable)}
			},
			expectedStatusCode: http.StatusServiceUnavailable,
		},
		{
			name: "Store lost mid batch reports committed orders",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "orders.csv", exportMay1)
			},
			mockSetup: func() *MockImportService {
				return &MockImportService{
					Summary: &Summary{Source: "orders.csv", Orders: 2, New: 1, NewOrders: []string{"#1001"}},
					Err:     fmt.Errorf("import orders.csv: order #1002: %w", models.ErrStoreUnavailable),
				}
			},
			expectedStatusCode: http.StatusServiceUnavailable,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockImportService) {
				var body struct {
					Error   string  `json:"error"`
					Summary Summary `json:"summary"`
				}
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, "Order store unavailable, import again later", body.Error)
				assert.Equal(t, 1, body.Summary.New)
				assert.Equal(t, []string{"#1001"}, body.Summary.NewOrders)
			},
		},
		{
			name: "Unexpected error",
			request: func(t *testing.T) *http.Request {
				return uploadRequest(t, "file", "orders.csv", exportMay1)
			},
			mockSetup: func() *MockImportService {
				return &MockImportService{Err: errors.New("boom")}
			},
			expectedStatusCode: http.StatusInternalServerError,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder, svc *MockImportService) {
				assert.Equal(t, "Import failed", decodeError(t, rec))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			svc := tc.mockSetup()
			handler := NewImportHandler(svc, 1<<20)
			req := tc.request(t)
			rec := httptest.NewRecorder()

			// Act
			handler.HandleUpload(rec, req)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec, svc)
			}
		})
	}
}

// --- Tests: GET /imports ---

func TestHandleListBatches(t *testing.T) {
	id := uuid.New()
	created := time.Date(2024, 4, 30, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		name               string
		url                string
		svc                *MockImportService
		expectedStatusCode int
		expectedLimit      int
	}{
		{
			name: "Default limit",
			url:  "/imports",
			svc: &MockImportService{Batches: []models.ImportBatch{{
				ID: id, Source: "orders.csv", NewCount: 2,
				NewOrders: pq.StringArray{"#1", "#2"}, CreatedAt: created,
			}}},
			expectedStatusCode: http.StatusOK,
			expectedLimit:      20,
		},
		{
			name:               "Explicit limit",
			url:                "/imports?limit=5",
			svc:                &MockImportService{},
			expectedStatusCode: http.StatusOK,
			expectedLimit:      5,
		},
		{
			name:               "Out of range limit falls back to default",
			url:                "/imports?limit=500",
			svc:                &MockImportService{},
			expectedStatusCode: http.StatusOK,
			expectedLimit:      20,
		},
		{
			name:               "Service error",
			url:                "/imports",
			svc:                &MockImportService{ListErr: errors.New("db down")},
			expectedStatusCode: http.StatusInternalServerError,
			expectedLimit:      20,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewImportHandler(tc.svc, 1<<20)
			req := httptest.NewRequest("GET", tc.url, nil)
			rec := httptest.NewRecorder()

			handler.HandleListBatches(rec, req)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			assert.Equal(t, tc.expectedLimit, tc.svc.lastLimit)
			if rec.Code == http.StatusOK && len(tc.svc.Batches) > 0 {
				var resp []BatchResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				require.Len(t, resp, 1)
				assert.Equal(t, id.String(), resp[0].ID)
				assert.Equal(t, []string{"#1", "#2"}, resp[0].NewOrders)
			}
		})
	}
}
