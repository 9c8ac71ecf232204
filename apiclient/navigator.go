package apiclient

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Navigator moves the caller to another route. The client uses it to send
// the operator to sign-in once authentication cannot be restored.
type Navigator interface {
	Redirect(ctx context.Context, target string)
}

type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Redirect(ctx context.Context, target string) {
	f(ctx, target)
}

type logNavigator struct{}

func (logNavigator) Redirect(_ context.Context, target string) {
	log.Warn().Str("target", target).Msg("Sign-in required")
}
