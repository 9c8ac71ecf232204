package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/andyle182810/ussdadmin/apiclient"
	"github.com/andyle182810/ussdadmin/notify"
	"github.com/andyle182810/ussdadmin/resource"
)

const usage = `usage: ussdadmin <command> [arguments]

commands:
  login <username> <password> [--remember]
  logout
  list <resource> [key=value ...]
  get <resource> <id>
  delete <resource> <id>
  request <METHOD> <path> [json-body]
  notifications

resources: countries, networks, network-configurations, phone-numbers, users`

var (
	errUsage          = errors.New("invalid arguments")
	errStreamDisabled = errors.New("notification stream is disabled, set NOTIFY_STREAM_ENABLED=true")
)

func (app *application) dispatch(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	command, rest := args[0], args[1:]

	switch command {
	case "login":
		return app.login(ctx, rest)
	case "logout":
		app.client.SignOut(ctx)

		return nil
	case "list":
		return app.list(ctx, rest)
	case "get":
		return app.get(ctx, rest)
	case "delete":
		return app.remove(ctx, rest)
	case "request":
		return app.request(ctx, rest)
	case "notifications":
		return app.watch(ctx)
	case "help", "-h", "--help":
		fmt.Fprintln(app.out, usage)

		return nil
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func (app *application) login(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("login", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	remember := flags.Bool("remember", false, "keep the session cookie for a day")

	if err := flags.Parse(reorderFlags(args)); err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	if flags.NArg() != 2 { //nolint:mnd
		return fmt.Errorf("%w: login needs a username and a password", errUsage)
	}

	session, err := app.client.SignIn(ctx, apiclient.Credentials{
		Username: flags.Arg(0),
		Password: flags.Arg(1),
	}, *remember)
	if err != nil {
		return describe(err)
	}

	fmt.Fprintln(app.out, "Signed in.")

	if len(session.User) > 0 {
		return app.print(session.User)
	}

	return nil
}

func (app *application) list(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("%w: list needs a resource", errUsage)
	}

	path, err := resource.PathFor(args[0])
	if err != nil {
		return err
	}

	params := make(map[string]string, len(args)-1)

	for _, arg := range args[1:] {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("%w: filter %q is not key=value", errUsage, arg)
		}

		params[key] = value
	}

	page, err := apiclient.ListJSON[json.RawMessage](ctx, app.client, path, apiclient.WithQueryParams(params))
	if err != nil {
		return describe(err)
	}

	return app.print(page)
}

func (app *application) get(ctx context.Context, args []string) error {
	items, id, err := app.item(args)
	if err != nil {
		return err
	}

	item, err := items.Get(ctx, id)
	if err != nil {
		return describe(err)
	}

	return app.print(item)
}

func (app *application) remove(ctx context.Context, args []string) error {
	items, id, err := app.item(args)
	if err != nil {
		return err
	}

	if err := items.Delete(ctx, id); err != nil {
		return describe(err)
	}

	fmt.Fprintln(app.out, "Deleted.")

	return nil
}

func (app *application) item(args []string) (*resource.Resource[json.RawMessage], int64, error) {
	if len(args) != 2 { //nolint:mnd
		return nil, 0, fmt.Errorf("%w: expected <resource> <id>", errUsage)
	}

	path, err := resource.PathFor(args[0])
	if err != nil {
		return nil, 0, err
	}

	id, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: id %q is not a number", errUsage, args[1])
	}

	return resource.New[json.RawMessage](app.client, path, nil), id, nil
}

func (app *application) request(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: request needs <METHOD> <path> [json-body]", errUsage)
	}

	req := apiclient.Request{
		Target:  args[1],
		Method:  args[0],
		Header:  nil,
		Query:   nil,
		Body:    nil,
		Input:   nil,
		Options: apiclient.RequestOptions{SuppressNotification: false, SuccessMessage: ""},
	}

	if len(args) == 3 { //nolint:mnd
		if !json.Valid([]byte(args[2])) {
			return fmt.Errorf("%w: body is not valid JSON", errUsage)
		}

		req.Body = json.RawMessage(args[2])
	}

	res, err := app.client.Execute(ctx, req)
	if err != nil {
		return describe(err)
	}

	if res.IsRaw() {
		defer res.Raw.Body.Close()

		fmt.Fprintf(app.out, "HTTP %d (%s)\n", res.StatusCode, res.Header.Get(apiclient.HeaderContentType))

		_, err := io.Copy(app.out, res.Raw.Body)

		return err
	}

	return app.print(res.Payload)
}

// watch prints notifications published by any process until interrupted.
func (app *application) watch(ctx context.Context) error {
	if !app.cfg.NotifyStreamEnabled || app.redis == nil {
		return errStreamDisabled
	}

	//nolint:exhaustruct
	feed, err := notify.NewFeed(app.redis, notify.FeedOptions{
		Topic: app.cfg.NotifyStreamTopic,
	})
	if err != nil {
		return err
	}

	defer func() { _ = feed.Close() }()

	err = feed.Run(ctx, notify.Func(func(_ context.Context, n notify.Notification) {
		fmt.Fprintf(app.out, "[%s] %s: %s\n", n.Variant, n.Title, n.Description)
	}))
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}

func (app *application) print(v any) error {
	encoder := json.NewEncoder(app.out)
	encoder.SetIndent("", "  ")

	return encoder.Encode(v)
}

// describe adds the backend's field messages to a rejected call so they
// reach the terminal.
func describe(err error) error {
	if _, ok := apiclient.IsAuthError(err); ok {
		return err
	}

	var validationErrs resource.ValidationErrors
	if errors.As(err, &validationErrs) {
		return err
	}

	apiErr, ok := apiclient.IsAPIError(err)
	if !ok {
		return err
	}

	fields := apiErr.FieldErrors()
	if len(fields) == 0 {
		return err
	}

	parts := make([]string, 0, len(fields))
	for _, name := range slices.Sorted(maps.Keys(fields)) {
		parts = append(parts, name+": "+strings.Join(fields[name], " "))
	}

	return fmt.Errorf("%w (%s)", err, strings.Join(parts, "; "))
}

// reorderFlags moves flags ahead of positional arguments so that
// "login alice secret --remember" parses.
func reorderFlags(args []string) []string {
	flags := make([]string, 0, len(args))
	positional := make([]string, 0, len(args))

	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			flags = append(flags, arg)

			continue
		}

		positional = append(positional, arg)
	}

	return append(flags, positional...)
}
