//nolint:ireturn
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

func DoJSON[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var result T

	res, err := c.Execute(ctx, req)
	if err != nil {
		return result, err
	}

	err = res.Decode(&result)

	return result, err
}

func GetJSON[T any](ctx context.Context, c *Client, target string, opts ...RequestOption) (T, error) {
	return DoJSON[T](ctx, c, buildRequest(http.MethodGet, target, nil, opts))
}

func PostJSON[T any](ctx context.Context, c *Client, target string, body any, opts ...RequestOption) (T, error) {
	return DoJSON[T](ctx, c, buildRequest(http.MethodPost, target, body, opts))
}

func PutJSON[T any](ctx context.Context, c *Client, target string, body any, opts ...RequestOption) (T, error) {
	return DoJSON[T](ctx, c, buildRequest(http.MethodPut, target, body, opts))
}

func PatchJSON[T any](ctx context.Context, c *Client, target string, body any, opts ...RequestOption) (T, error) {
	return DoJSON[T](ctx, c, buildRequest(http.MethodPatch, target, body, opts))
}

func DeleteJSON[T any](ctx context.Context, c *Client, target string, opts ...RequestOption) (T, error) {
	return DoJSON[T](ctx, c, buildRequest(http.MethodDelete, target, nil, opts))
}

// Page is one list response. Bare-array responses fill only Results and
// Count.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// DecodeList accepts both list shapes the backend produces: a bare JSON
// array and an object with a results array.
func DecodeList[T any](payload json.RawMessage) (*Page[T], error) {
	trimmed := bytes.TrimSpace(payload)

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
		}

		return &Page[T]{Count: len(items), Next: nil, Previous: nil, Results: items}, nil
	}

	var page Page[T]
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecodeResponse, err)
	}

	if page.Results == nil {
		page.Results = []T{}
	}

	if page.Count == 0 {
		page.Count = len(page.Results)
	}

	return &page, nil
}

func ListJSON[T any](ctx context.Context, c *Client, target string, opts ...RequestOption) (*Page[T], error) {
	res, err := c.Get(ctx, target, opts...)
	if err != nil {
		return nil, err
	}

	if res.IsRaw() {
		return nil, ErrRawResponse
	}

	return DecodeList[T](res.Payload)
}
