package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPagination(t *testing.T) {
	testCases := []struct {
		name           string
		url            string
		expectedOffset int
		expectedLimit  int
	}{
		{name: "Defaults", url: "/orders", expectedOffset: 0, expectedLimit: 10},
		{name: "Explicit values", url: "/orders?offset=20&limit=50", expectedOffset: 20, expectedLimit: 50},
		{name: "Limit below minimum", url: "/orders?limit=0", expectedOffset: 0, expectedLimit: 1},
		{name: "Limit above maximum", url: "/orders?limit=1000", expectedOffset: 0, expectedLimit: 100},
		{name: "Negative offset ignored", url: "/orders?offset=-5", expectedOffset: 0, expectedLimit: 10},
		{name: "Non numeric values ignored", url: "/orders?offset=a&limit=b", expectedOffset: 0, expectedLimit: 10},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			offset, limit := Pagination(httptest.NewRequest("GET", tc.url, nil))

			assert.Equal(t, tc.expectedOffset, offset)
			assert.Equal(t, tc.expectedLimit, limit)
		})
	}
}

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()

	ErrorResponse(rec, http.StatusConflict, "Category already exists")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]string
	assert.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "Category already exists", body["error"])
}
