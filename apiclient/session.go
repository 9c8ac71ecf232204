package apiclient

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/andyle182810/ussdadmin/tokenstore"
	"github.com/rs/zerolog/log"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type Session struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}

// SignIn exchanges credentials for a credential pair and stores it. With
// remember the accessToken cookie outlives the browser session.
func (c *Client) SignIn(ctx context.Context, creds Credentials, remember bool) (*Session, error) {
	var session Session

	requestID := c.extractRequestID(ctx)

	resp, err := c.restyClient.R().
		SetContext(ctx).
		SetHeader(HeaderXRequestID, requestID).
		SetBody(creds).
		SetResult(&session).
		ForceContentType(ContentTypeJSON).
		Post(c.baseURL + c.loginPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	if !resp.IsSuccess() {
		body := resp.Body()
		if !json.Valid(body) {
			body = nil
		}

		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Body:       body,
			RequestID:  requestID,
		}
	}

	if session.Access == "" || session.Refresh == "" {
		return nil, ErrIncompleteLogin
	}

	c.store.SetRemember(ctx, remember)
	c.store.SetTokens(ctx, tokenstore.Pair{Access: session.Access, Refresh: session.Refresh})

	log.Info().
		Str("request_id", requestID).
		Bool("remember", remember).
		Msg("Signed in")

	return &session, nil
}

// SignOut drops the stored credentials and sends the caller to sign-in.
func (c *Client) SignOut(ctx context.Context) {
	c.store.ClearTokens(ctx)
	c.navigator.Redirect(ctx, c.signInPath)

	log.Info().Msg("Signed out")
}
