package reports

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type MockReportBuilder struct {
	Purchasing *PurchasingList
	Assembly   *AssemblyList
	Err        error

	lastDate time.Time
	lastSort SortKey
}

func (m *MockReportBuilder) BuildPurchasingList(ctx context.Context, date time.Time) (*PurchasingList, error) {
	m.lastDate = date
	return m.Purchasing, m.Err
}

func (m *MockReportBuilder) BuildAssemblyList(ctx context.Context, date time.Time, sortBy SortKey) (*AssemblyList, error) {
	m.lastDate = date
	m.lastSort = sortBy
	return m.Assembly, m.Err
}

type textSink struct {
	err    error
	tables []Table
}

func (s *textSink) ContentType() string { return "text/plain" }

func (s *textSink) Extension() string { return ".txt" }

func (s *textSink) Write(w io.Writer, tables ...Table) error {
	if s.err != nil {
		return s.err
	}
	s.tables = append(s.tables, tables...)
	for _, t := range tables {
		if _, err := io.WriteString(w, t.Title+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func sampleBuilder() *MockReportBuilder {
	return &MockReportBuilder{
		Purchasing: &PurchasingList{
			Date:   "2024-05-01",
			Orders: 1,
			Groups: []PurchasingGroup{{
				Category: "Frutas",
				Items:    []PurchasingItem{{Product: "Manzana", Key: "manzana", Quantity: 5}},
			}},
			Unassigned: []string{},
		},
		Assembly: &AssemblyList{
			Date:   "2024-05-01",
			SortBy: SortByOrderNumber,
			Orders: []AssemblyOrder{{
				OrderNumber: "#1001",
				Customer:    "Ana",
				Items:       []AssemblyItem{{Product: "Manzana", Quantity: 3}},
			}},
		},
	}
}

func serve(h http.HandlerFunc, pattern, url string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc(pattern, h)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", url, nil))
	return rec
}

// --- Tests ---

func TestHandlePurchasing(t *testing.T) {
	testCases := []struct {
		name               string
		url                string
		builder            *MockReportBuilder
		sink               *textSink
		expectedStatusCode int
		checkResponse      func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name:               "JSON",
			url:                "/reports/purchasing/2024-05-01",
			builder:            sampleBuilder(),
			sink:               &textSink{},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp PurchasingList
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
				assert.Equal(t, "2024-05-01", resp.Date)
				require.Len(t, resp.Groups, 1)
				assert.Equal(t, 5, resp.Groups[0].Items[0].Quantity)
			},
		},
		{
			name:               "Spreadsheet download",
			url:                "/reports/purchasing/2024-05-01?format=xlsx",
			builder:            sampleBuilder(),
			sink:               &textSink{},
			expectedStatusCode: http.StatusOK,
			checkResponse: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
				assert.Equal(t, `attachment; filename="lista_compras_2024-05-01.txt"`, rec.Header().Get("Content-Disposition"))
				assert.Equal(t, "Lista de Compras - 2024-05-01\n", rec.Body.String())
			},
		},
		{
			name:               "Render failure",
			url:                "/reports/purchasing/2024-05-01?format=xlsx",
			builder:            sampleBuilder(),
			sink:               &textSink{err: errors.New("disk full")},
			expectedStatusCode: http.StatusInternalServerError,
		},
		{
			name:               "Invalid date",
			url:                "/reports/purchasing/01-05-2024",
			builder:            sampleBuilder(),
			sink:               &textSink{},
			expectedStatusCode: http.StatusBadRequest,
		},
		{
			name:               "Builder error",
			url:                "/reports/purchasing/2024-05-01",
			builder:            &MockReportBuilder{Err: errors.New("db down")},
			sink:               &textSink{},
			expectedStatusCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// Arrange
			handler := NewReportHandler(tc.builder, tc.sink, SortByOrderNumber)

			// Act
			rec := serve(handler.HandlePurchasing, "GET /reports/purchasing/{date}", tc.url)

			// Assert
			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			if tc.checkResponse != nil {
				tc.checkResponse(t, rec)
			}
		})
	}
}

func TestHandleAssembly(t *testing.T) {
	testCases := []struct {
		name               string
		url                string
		defaultSort        SortKey
		expectedStatusCode int
		expectedSort       SortKey
	}{
		{
			name:               "Configured default sort",
			url:                "/reports/assembly/2024-05-01",
			defaultSort:        SortByCustomer,
			expectedStatusCode: http.StatusOK,
			expectedSort:       SortByCustomer,
		},
		{
			name:               "Sort from query",
			url:                "/reports/assembly/2024-05-01?sort=customer",
			defaultSort:        SortByOrderNumber,
			expectedStatusCode: http.StatusOK,
			expectedSort:       SortByCustomer,
		},
		{
			name:               "Unknown sort",
			url:                "/reports/assembly/2024-05-01?sort=commune",
			defaultSort:        SortByOrderNumber,
			expectedStatusCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			builder := sampleBuilder()
			handler := NewReportHandler(builder, &textSink{}, tc.defaultSort)

			rec := serve(handler.HandleAssembly, "GET /reports/assembly/{date}", tc.url)

			assert.Equal(t, tc.expectedStatusCode, rec.Code)
			assert.Equal(t, tc.expectedSort, builder.lastSort)
			if rec.Code == http.StatusOK {
				assert.Equal(t, "2024-05-01", builder.lastDate.Format("2006-01-02"))
			}
		})
	}
}

func TestAssemblyDownloadUsesTable(t *testing.T) {
	sink := &textSink{}
	handler := NewReportHandler(sampleBuilder(), sink, SortByOrderNumber)

	rec := serve(handler.HandleAssembly, "GET /reports/assembly/{date}", "/reports/assembly/2024-05-01?format=xlsx")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "Pedidos para Armar - 2024-05-01 (1 pedidos)"))
	require.Len(t, sink.tables, 1)
	require.Len(t, sink.tables[0].Rows, 1)
	assert.Equal(t, "Manzana", sink.tables[0].Rows[0].Value(ColProduct))
	assert.Equal(t, 3, sink.tables[0].Rows[0].Value(ColQuantity))
}

func TestPurchasingTable(t *testing.T) {
	list := &PurchasingList{
		Date: "2024-05-01",
		Groups: []PurchasingGroup{
			{Category: "Frutas", Items: []PurchasingItem{{Product: "Manzana", Quantity: 5}, {Product: "Pera", Quantity: 1}}},
			{Category: UnassignedBucket, Items: []PurchasingItem{{Product: "Kiwi", Quantity: 2}}},
		},
	}

	table := list.Table()

	assert.Equal(t, []string{ColCategory, ColProduct, ColQuantity}, table.Columns)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, "Frutas", table.Rows[1].Value(ColCategory))
	assert.Equal(t, UnassignedBucket, table.Rows[2].Value(ColCategory))
	assert.Equal(t, 2, table.Rows[2].Value(ColQuantity))
	assert.Nil(t, table.Rows[0].Value("missing"))
}
