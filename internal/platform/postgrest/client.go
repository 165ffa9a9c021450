// Package postgrest adapts the hosted store's table REST API (PostgREST
// dialect) for the repositories. Requests are scoped to the caller's access
// token so the store's row-level policies apply.
package postgrest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	pgrst "github.com/supabase-community/postgrest-go"
)

// RESTPath is appended to the store URL to reach the table API.
const RESTPath = "/rest/v1"

const defaultTimeout = 15 * time.Second

type Client struct {
	rest    *pgrst.Client
	apiKey  string
	base    http.RoundTripper
	timeout time.Duration
}

type Option func(*Client)

// WithTransport replaces the round tripper below the session transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func New(storeURL, apiKey string, opts ...Option) *Client {
	c := &Client{apiKey: apiKey, base: http.DefaultTransport, timeout: defaultTimeout}
	for _, o := range opts {
		o(c)
	}
	c.rest = pgrst.NewClient(strings.TrimRight(storeURL, "/")+RESTPath, "", map[string]string{"apikey": apiKey})
	if c.rest.Transport != nil {
		c.rest.Transport.Parent = &sessionTransport{apiKey: apiKey, base: c.base}
	}
	return c
}

// Select reads rows of table matching f into out (a pointer to a slice).
func (c *Client) Select(ctx context.Context, table string, f *Filter, out interface{}) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.ready(); err != nil {
		return err
	}
	fb := f.apply(c.rest.From(table).Select(f.columns(), "", false))
	if _, err := fb.ExecuteToWithContext(ctx, out); err != nil {
		return wrap(http.MethodGet, table, err)
	}
	return nil
}

// SelectCount is Select plus the exact number of matching rows, ignoring
// limit and offset.
func (c *Client) SelectCount(ctx context.Context, table string, f *Filter, out interface{}) (int, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.ready(); err != nil {
		return 0, err
	}
	fb := f.apply(c.rest.From(table).Select(f.columns(), "exact", false))
	n, err := fb.ExecuteToWithContext(ctx, out)
	if err != nil {
		return 0, wrap(http.MethodGet, table, err)
	}
	return int(n), nil
}

// Insert writes rows (a struct, map or slice). When out is non-nil the stored
// representation is decoded into it.
func (c *Client) Insert(ctx context.Context, table string, rows, out interface{}) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.ready(); err != nil {
		return err
	}
	return run(ctx, http.MethodPost, table, c.rest.From(table).Insert(rows, false, "", returning(out), ""), out)
}

// Upsert inserts rows, merging into existing ones that collide on onConflict.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, rows, out interface{}) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.ready(); err != nil {
		return err
	}
	return run(ctx, http.MethodPost, table, c.rest.From(table).Upsert(rows, onConflict, returning(out), ""), out)
}

// Update patches every row matching f.
func (c *Client) Update(ctx context.Context, table string, f *Filter, patch, out interface{}) error {
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.ready(); err != nil {
		return err
	}
	return run(ctx, http.MethodPatch, table, f.apply(c.rest.From(table).Update(patch, returning(out), "")), out)
}

// Delete removes every row matching f. PostgREST refuses an unfiltered
// delete, and so does this client.
func (c *Client) Delete(ctx context.Context, table string, f *Filter) error {
	if f == nil || !f.hasCondition() {
		return fmt.Errorf("delete from %s: refusing delete without a filter", table)
	}
	ctx, cancel := c.bound(ctx)
	defer cancel()
	if err := c.ready(); err != nil {
		return err
	}
	return run(ctx, http.MethodDelete, table, f.apply(c.rest.From(table).Delete("minimal", "")), nil)
}

func (c *Client) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// ready reports a store URL that could not be parsed.
func (c *Client) ready() error {
	if c.rest.Transport == nil {
		return fmt.Errorf("store client: %w", c.rest.ClientError)
	}
	return nil
}

func returning(out interface{}) string {
	if out == nil {
		return "minimal"
	}
	return "representation"
}

// run executes a write. A minimal return has no body to decode.
func run(ctx context.Context, method, table string, fb *pgrst.FilterBuilder, out interface{}) error {
	var err error
	if out == nil {
		_, _, err = fb.ExecuteWithContext(ctx)
	} else {
		_, err = fb.ExecuteToWithContext(ctx, out)
	}
	if err != nil {
		return wrap(method, table, err)
	}
	return nil
}

// wrap keeps an *APIError reachable without the transport's URL noise.
func wrap(method, table string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%s %s: %w", method, table, apiErr)
	}
	return fmt.Errorf("%s %s: %w", method, table, err)
}
