package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/andyle182810/ussdadmin/notify"
	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

var _ Doer = (*http.Client)(nil)

// TokenStore is the credential storage the client reads and mutates.
// *tokenstore.Store satisfies it.
type TokenStore interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	SetTokens(ctx context.Context, pair tokenstore.Pair)
	ClearTokens(ctx context.Context)
	SetRemember(ctx context.Context, remember bool)
}

var _ TokenStore = (*tokenstore.Store)(nil)

type attempt int

const (
	attemptInitial attempt = iota
	attemptRetriedAfterRefresh
)

func (a attempt) String() string {
	if a == attemptRetriedAfterRefresh {
		return "retried_after_refresh"
	}

	return "initial"
}

type Client struct {
	baseURL         string
	httpClient      Doer
	restyClient     *resty.Client
	store           TokenStore
	refresher       *Refresher
	coordinator     RefreshCoordinator
	notifier        notify.Notifier
	navigator       Navigator
	detector        AuthFailureDetector
	requestIDKey    any
	defaultHeaders  map[string]string
	signInPath      string
	loginPath       string
	refreshPath     string
	timeout         time.Duration
	maxResponseSize int64 // 0 means no limit
}

func New(baseURL string, store TokenStore, opts ...Option) *Client {
	if store == nil {
		store = tokenstore.New(nil)
	}

	client := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{ //nolint:exhaustruct
			Timeout: DefaultTimeout,
		},
		restyClient:  nil,
		store:        store,
		refresher:    nil,
		coordinator:  nil,
		notifier:     notify.Logger{},
		navigator:    logNavigator{},
		detector:     DefaultAuthFailureDetector,
		requestIDKey: nil,
		defaultHeaders: map[string]string{
			HeaderContentType: ContentTypeJSON,
			HeaderAccept:      ContentTypeJSON,
		},
		signInPath:      DefaultSignInPath,
		loginPath:       DefaultLoginPath,
		refreshPath:     DefaultRefreshPath,
		timeout:         DefaultTimeout,
		maxResponseSize: 0,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.restyClient == nil {
		client.restyClient = newRestyClient(client.httpClient, client.timeout)
	}

	client.refresher = NewRefresher(client.restyClient, client.baseURL+client.refreshPath, client.store)

	return client
}

func newRestyClient(doer Doer, timeout time.Duration) *resty.Client {
	var restyClient *resty.Client

	if httpClient, ok := doer.(*http.Client); ok {
		restyClient = resty.NewWithClient(httpClient)
	} else {
		restyClient = resty.New()
	}

	return restyClient.
		SetTimeout(timeout).
		SetHeader(HeaderContentType, ContentTypeJSON).
		SetHeader(HeaderAccept, ContentTypeJSON)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) SignInPath() string {
	return c.signInPath
}

func (c *Client) Store() TokenStore {
	return c.store
}

func (c *Client) Get(ctx context.Context, target string, opts ...RequestOption) (*Result, error) {
	return c.Execute(ctx, buildRequest(http.MethodGet, target, nil, opts))
}

func (c *Client) Post(ctx context.Context, target string, body any, opts ...RequestOption) (*Result, error) {
	return c.Execute(ctx, buildRequest(http.MethodPost, target, body, opts))
}

func (c *Client) Put(ctx context.Context, target string, body any, opts ...RequestOption) (*Result, error) {
	return c.Execute(ctx, buildRequest(http.MethodPut, target, body, opts))
}

func (c *Client) Patch(ctx context.Context, target string, body any, opts ...RequestOption) (*Result, error) {
	return c.Execute(ctx, buildRequest(http.MethodPatch, target, body, opts))
}

func (c *Client) Delete(ctx context.Context, target string, opts ...RequestOption) (*Result, error) {
	return c.Execute(ctx, buildRequest(http.MethodDelete, target, nil, opts))
}

func buildRequest(method, target string, body any, opts []RequestOption) Request {
	req := Request{
		Target:  target,
		Method:  method,
		Header:  nil,
		Query:   nil,
		Body:    body,
		Input:   nil,
		Options: RequestOptions{SuppressNotification: false, SuccessMessage: ""},
	}

	for _, opt := range opts {
		opt(&req)
	}

	return req
}

// Execute performs req with the stored bearer token. An authentication
// failure triggers one refresh and one retry; a second failure, or a failed
// refresh, clears the credentials, redirects to sign-in and returns an
// *AuthError. Other failing responses come back as *APIError. A response
// body that is not JSON is returned untouched in Result.Raw.
func (c *Client) Execute(ctx context.Context, req Request) (*Result, error) {
	method := NormalizeMethod(req.Method, req.Input)

	prepared, err := c.prepare(req, method, c.extractRequestID(ctx))
	if err != nil {
		return nil, err
	}

	token, _ := c.store.AccessToken(ctx)
	state := attemptInitial

	for {
		resp, err := c.send(ctx, prepared, token)
		if err != nil {
			return nil, err
		}

		if resp.raw != nil {
			return resp.rawResult(), nil
		}

		if !c.detector(resp.statusCode, resp.payload) {
			return c.finish(ctx, method, req.Options, resp)
		}

		if state == attemptRetriedAfterRefresh {
			return nil, c.forceSignOut(ctx, prepared, ErrAuthFailedAfterRefresh, nil)
		}

		log.Info().
			Str("request_id", prepared.requestID).
			Str("method", method).
			Str("url", prepared.url).
			Int("status", resp.statusCode).
			Msg("Access token rejected, refreshing")

		token, err = c.refresh(ctx, token)
		if err != nil {
			return nil, c.forceSignOut(ctx, prepared, ErrTokenRefreshFailed, err)
		}

		state = attemptRetriedAfterRefresh
	}
}

type response struct {
	statusCode int
	header     http.Header
	payload    json.RawMessage
	raw        *http.Response
	requestID  string
}

func (r *response) rawResult() *Result {
	return &Result{
		StatusCode: r.statusCode,
		Header:     r.header,
		Payload:    nil,
		Raw:        r.raw,
		RequestID:  r.requestID,
	}
}

func (c *Client) send(ctx context.Context, prepared *preparedRequest, token string) (*response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, prepared.method, prepared.url, prepared.bodyReader())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCreateRequest, err)
	}

	httpReq.Header = prepared.header.Clone()

	if token != "" {
		httpReq.Header.Set(HeaderAuthorization, "Bearer "+token)
	}

	if prepared.requestID != "" {
		httpReq.Header.Set(HeaderXRequestID, prepared.requestID)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer httpResp.Body.Close()

	body, err := c.readBody(httpResp.Body)
	if err != nil {
		return nil, err
	}

	requestID := httpResp.Header.Get(HeaderXRequestID)
	if requestID == "" {
		requestID = prepared.requestID
	}

	resp := &response{
		statusCode: httpResp.StatusCode,
		header:     httpResp.Header,
		payload:    nil,
		raw:        nil,
		requestID:  requestID,
	}

	if !json.Valid(body) {
		httpResp.Body = io.NopCloser(bytes.NewReader(body))
		resp.raw = httpResp

		return resp, nil
	}

	resp.payload = body

	return resp, nil
}

func (c *Client) readBody(body io.Reader) ([]byte, error) {
	if c.maxResponseSize > 0 {
		body = io.LimitReader(body, c.maxResponseSize+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadResponse, err)
	}

	if c.maxResponseSize > 0 && int64(len(data)) > c.maxResponseSize {
		return nil, ErrResponseTooLarge
	}

	return data, nil
}

func (c *Client) finish(ctx context.Context, method string, opts RequestOptions, resp *response) (*Result, error) {
	if !isSuccess(resp.statusCode) {
		return nil, &APIError{
			StatusCode: resp.statusCode,
			Body:       resp.payload,
			RequestID:  resp.requestID,
		}
	}

	if shouldNotify(method, opts) {
		c.emitSuccess(ctx, method, successMessage(method, opts.SuccessMessage))
	}

	return &Result{
		StatusCode: resp.statusCode,
		Header:     resp.header,
		Payload:    resp.payload,
		Raw:        nil,
		RequestID:  resp.requestID,
	}, nil
}

func isSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusBadRequest
}

func (c *Client) refresh(ctx context.Context, staleToken string) (string, error) {
	if c.coordinator == nil {
		return c.refresher.Refresh(ctx)
	}

	return c.coordinator.Coordinate(ctx, staleToken, c.refresher.Refresh)
}

func (c *Client) forceSignOut(ctx context.Context, prepared *preparedRequest, reason, cause error) error {
	event := log.Warn().
		Str("request_id", prepared.requestID).
		Str("method", prepared.method).
		Str("url", prepared.url).
		Str("redirect", c.signInPath)

	if cause != nil {
		event = event.AnErr("cause", cause)
	}

	event.Msg(reason.Error())

	c.store.ClearTokens(ctx)
	c.navigator.Redirect(ctx, c.signInPath)
	c.notifier.Notify(ctx, notify.Notification{
		Title:       sessionExpiredTitle,
		Description: sessionExpiredDescription,
		Variant:     notify.VariantDestructive,
	})

	return &AuthError{Reason: reason, Cause: cause}
}

func (c *Client) extractRequestID(ctx context.Context) string {
	if c.requestIDKey != nil {
		if id, ok := ctx.Value(c.requestIDKey).(string); ok && id != "" {
			return id
		}
	}

	return uuid.New().String()
}
