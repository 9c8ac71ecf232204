package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request describes one logical API call.
type Request struct {
	// Target is a path under the base URL or an absolute URL. When empty the
	// URL of Input is used.
	Target string
	// Method is matched case-insensitively. Empty means Input's method, or GET.
	Method string
	Header http.Header
	Query  url.Values
	// Body is sent as is for []byte, json.RawMessage, string and io.Reader,
	// and JSON-encoded otherwise.
	Body any
	// Input is an optional request-like value to infer method, URL, headers
	// and body from.
	Input   *http.Request
	Options RequestOptions
}

type RequestOptions struct {
	SuppressNotification bool
	SuccessMessage       string
}

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

// NormalizeMethod resolves the method of a request: the explicit value first,
// then the method of input, then GET. Anything outside GET, POST, PUT, PATCH
// and DELETE becomes GET.
func NormalizeMethod(explicit string, input *http.Request) string {
	method := strings.ToUpper(strings.TrimSpace(explicit))

	if method == "" && input != nil {
		method = strings.ToUpper(input.Method)
	}

	if _, ok := allowedMethods[method]; !ok {
		return http.MethodGet
	}

	return method
}

type preparedRequest struct {
	method    string
	url       string
	header    http.Header
	body      []byte
	requestID string
}

func (c *Client) prepare(req Request, method, requestID string) (*preparedRequest, error) {
	target, err := c.resolveURL(req)
	if err != nil {
		return nil, err
	}

	body, err := encodeBody(req)
	if err != nil {
		return nil, err
	}

	header := make(http.Header)

	for key, value := range c.defaultHeaders {
		header.Set(key, value)
	}

	if req.Input != nil {
		for key, values := range req.Input.Header {
			header[key] = append([]string(nil), values...)
		}
	}

	for key, values := range req.Header {
		header[http.CanonicalHeaderKey(key)] = append([]string(nil), values...)
	}

	return &preparedRequest{
		method:    method,
		url:       target,
		header:    header,
		body:      body,
		requestID: requestID,
	}, nil
}

func (c *Client) resolveURL(req Request) (string, error) {
	target := req.Target
	if target == "" && req.Input != nil && req.Input.URL != nil {
		target = req.Input.URL.String()
	}

	parsed, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCreateRequest, err)
	}

	if !parsed.IsAbs() {
		relative := parsed

		path := relative.Path
		if path != "" && !strings.HasPrefix(path, "/") {
			path = "/" + path
		}

		parsed, err = url.Parse(c.baseURL + path)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrCreateRequest, err)
		}

		parsed.RawQuery = relative.RawQuery
	}

	if len(req.Query) > 0 {
		query := parsed.Query()
		for key, values := range req.Query {
			for _, value := range values {
				query.Add(key, value)
			}
		}

		parsed.RawQuery = query.Encode()
	}

	return parsed.String(), nil
}

// encodeBody returns the request body as bytes so it can be sent again on
// the retry after a refresh.
func encodeBody(req Request) ([]byte, error) {
	switch body := req.Body.(type) {
	case nil:
		if req.Input == nil || req.Input.Body == nil || req.Input.Body == http.NoBody {
			return nil, nil
		}

		data, err := io.ReadAll(req.Input.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}

		return data, nil
	case []byte:
		return body, nil
	case json.RawMessage:
		return body, nil
	case string:
		return []byte(body), nil
	case io.Reader:
		data, err := io.ReadAll(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}

		return data, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEncodeBody, err)
		}

		return data, nil
	}
}

func (p *preparedRequest) bodyReader() io.Reader {
	if p.body == nil {
		return nil
	}

	return bytes.NewReader(p.body)
}
