package resource

import (
	"context"
	"net/url"
	"strconv"

	"github.com/andyle182810/ussdadmin/apiclient"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 25
	MaxPageSize     = 100

	queryPage     = "page"
	queryPageSize = "page_size"
)

// NormalizePage clamps page and pageSize to the range the backend accepts.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}

	if pageSize <= 0 {
		pageSize = DefaultPageSize
	} else if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	return page, pageSize
}

func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}

	return (count + pageSize - 1) / pageSize
}

// ListPage fetches one page of the collection. Filters are sent alongside
// the page parameters.
func (r *Resource[T]) ListPage(
	ctx context.Context,
	page, pageSize int,
	filters url.Values,
) (*apiclient.Page[T], error) {
	page, pageSize = NormalizePage(page, pageSize)

	query := url.Values{}
	for key, values := range filters {
		query[key] = append([]string(nil), values...)
	}

	query.Set(queryPage, strconv.Itoa(page))
	query.Set(queryPageSize, strconv.Itoa(pageSize))

	return r.List(ctx, query)
}
