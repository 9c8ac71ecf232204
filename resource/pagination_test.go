package resource_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/andyle182810/ussdadmin/resource"
	"github.com/andyle182810/ussdadmin/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		page         int
		pageSize     int
		wantPage     int
		wantPageSize int
	}{
		{"defaults", 0, 0, resource.DefaultPage, resource.DefaultPageSize},
		{"negative page", -3, 10, resource.DefaultPage, 10},
		{"capped size", 2, 500, 2, resource.MaxPageSize},
		{"in range", 4, 50, 4, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page, pageSize := resource.NormalizePage(tt.page, tt.pageSize)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantPageSize, pageSize)
		})
	}
}

func TestTotalPages(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, resource.TotalPages(10, 0))
	assert.Equal(t, 0, resource.TotalPages(0, 25))
	assert.Equal(t, 1, resource.TotalPages(25, 25))
	assert.Equal(t, 3, resource.TotalPages(51, 25))
}

func TestResource_ListPage(t *testing.T) {
	t.Parallel()

	backend, directory, _ := newDirectory(t)

	backend.Handle("GET /phone-numbers/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "100", r.URL.Query().Get("page_size"))
		assert.Equal(t, "7", r.URL.Query().Get("network"))

		testutil.WriteJSON(w, http.StatusOK, map[string]any{
			"count":    101,
			"next":     nil,
			"previous": "/phone-numbers/?page=1",
			"results":  []map[string]any{{"id": 101, "number": "+233201234567"}},
		})
	})

	page, err := directory.PhoneNumbers.ListPage(t.Context(), 2, 1000, url.Values{"network": {"7"}})
	require.NoError(t, err)
	require.Equal(t, 101, page.Count)
	require.Len(t, page.Results, 1)
	require.Equal(t, "+233201234567", page.Results[0].Number)
	require.Nil(t, page.Next)
	require.Equal(t, 2, resource.TotalPages(page.Count, resource.MaxPageSize))
}
