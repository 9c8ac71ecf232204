package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/andyle182810/ussdadmin/apiclient"
)

var (
	ErrUnknownResource = errors.New("resource: unknown resource")
	ErrInvalidID       = errors.New("resource: id must be positive")
)

// Resource is a CRUD client for one collection endpoint. A nil validator
// skips local validation of writes.
type Resource[T any] struct {
	client    *apiclient.Client
	path      string
	validator *Validator
}

func New[T any](client *apiclient.Client, path string, validator *Validator) *Resource[T] {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}

	return &Resource[T]{
		client:    client,
		path:      path,
		validator: validator,
	}
}

func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) List(ctx context.Context, query url.Values) (*apiclient.Page[T], error) {
	return apiclient.ListJSON[T](ctx, r.client, r.path, withValues(query))
}

func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	target, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}

	item, err := apiclient.GetJSON[T](ctx, r.client, target)
	if err != nil {
		return nil, err
	}

	return &item, nil
}

func (r *Resource[T]) Create(ctx context.Context, item *T, opts ...apiclient.RequestOption) (*T, error) {
	if err := r.validate(item); err != nil {
		return nil, err
	}

	created, err := apiclient.PostJSON[T](ctx, r.client, r.path, item, opts...)
	if err != nil {
		return nil, serverValidation(err)
	}

	return &created, nil
}

// Update replaces the item with PUT.
func (r *Resource[T]) Update(ctx context.Context, id int64, item *T, opts ...apiclient.RequestOption) (*T, error) {
	target, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}

	if err := r.validate(item); err != nil {
		return nil, err
	}

	updated, err := apiclient.PutJSON[T](ctx, r.client, target, item, opts...)
	if err != nil {
		return nil, serverValidation(err)
	}

	return &updated, nil
}

// Patch sends only fields. They are not validated locally.
func (r *Resource[T]) Patch(
	ctx context.Context,
	id int64,
	fields map[string]any,
	opts ...apiclient.RequestOption,
) (*T, error) {
	target, err := r.itemPath(id)
	if err != nil {
		return nil, err
	}

	patched, err := apiclient.PatchJSON[T](ctx, r.client, target, fields, opts...)
	if err != nil {
		return nil, serverValidation(err)
	}

	return &patched, nil
}

// Delete removes the item. An empty 204 answer counts as success.
func (r *Resource[T]) Delete(ctx context.Context, id int64, opts ...apiclient.RequestOption) error {
	target, err := r.itemPath(id)
	if err != nil {
		return err
	}

	res, err := r.client.Delete(ctx, target, opts...)
	if err != nil {
		return err
	}

	if res.IsRaw() && res.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: status %d", apiclient.ErrServiceError, res.StatusCode)
	}

	return nil
}

func (r *Resource[T]) itemPath(id int64) (string, error) {
	if id <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidID, id)
	}

	return r.path + strconv.FormatInt(id, 10) + "/", nil
}

func (r *Resource[T]) validate(item *T) error {
	if r.validator == nil {
		return nil
	}

	return r.validator.Validate(item)
}

// serverValidation returns the backend's per-field messages as
// ValidationErrors when a write was rejected with 400, and err otherwise.
func serverValidation(err error) error {
	apiErr, ok := apiclient.IsAPIError(err)
	if !ok || apiErr.StatusCode != http.StatusBadRequest {
		return err
	}

	if fields := FromAPIError(apiErr); fields != nil {
		return errors.Join(err, fields)
	}

	return err
}

func withValues(query url.Values) apiclient.RequestOption {
	return func(req *apiclient.Request) {
		if len(query) == 0 {
			return
		}

		if req.Query == nil {
			req.Query = url.Values{}
		}

		for key, values := range query {
			req.Query[key] = append(req.Query[key], values...)
		}
	}
}

// Directory groups the clients for every collection the dashboard manages.
type Directory struct {
	Countries             *Resource[Country]
	Networks              *Resource[Network]
	NetworkConfigurations *Resource[NetworkConfiguration]
	PhoneNumbers          *Resource[PhoneNumber]
	Users                 *Resource[User]
}

func NewDirectory(client *apiclient.Client) *Directory {
	validator := NewValidator()

	return &Directory{
		Countries:             New[Country](client, PathCountries, validator),
		Networks:              New[Network](client, PathNetworks, validator),
		NetworkConfigurations: New[NetworkConfiguration](client, PathNetworkConfigurations, validator),
		PhoneNumbers:          New[PhoneNumber](client, PathPhoneNumbers, validator),
		Users:                 New[User](client, PathUsers, validator),
	}
}

var paths = map[string]string{
	"countries":              PathCountries,
	"networks":               PathNetworks,
	"network-configurations": PathNetworkConfigurations,
	"phone-numbers":          PathPhoneNumbers,
	"users":                  PathUsers,
}

// PathFor maps a collection name such as "phone-numbers" to its endpoint.
func PathFor(name string) (string, error) {
	path, ok := paths[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("%w: %q (known: %s)", ErrUnknownResource, name, strings.Join(Names(), ", "))
	}

	return path, nil
}

func Names() []string {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
