// Package rest implements a read-only adapter for JSON resources served over HTTP.
//
// A read issues one GET to <host>/<resource>/?<filters> and hydrates the JSON
// object, or every object of the JSON array, into persisted records.
package rest

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/armapper/arm"
	"github.com/armapper/arm/logger"
	"github.com/armapper/arm/utils"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
)

// StatusError a request answered with a status other than 200
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%v: can't read data, status code: %d [%s]", arm.ErrExecute, e.Code, e.URL)
}

// Is reports whether target is arm.ErrExecute
func (e *StatusError) Is(target error) bool {
	return target == arm.ErrExecute
}

// Option configures an Adapter
type Option func(*Adapter)

// WithClient sends requests through client
func WithClient(client *http.Client) Option {
	return func(a *Adapter) {
		a.Client = client
	}
}

// WithRoot selects the record list of an envelope with a JSONPath, e.g. "$.issues"
func WithRoot(path string) Option {
	return func(a *Adapter) {
		a.rootPath = path
	}
}

// WithoutTrailingSlash requests <host>/<resource>?... instead of <host>/<resource>/?...
func WithoutTrailingSlash() Option {
	return func(a *Adapter) {
		a.trailingSlash = false
	}
}

// Adapter reads records from a JSON api.
//
// Settings: host (required), user and passwd for basic auth, verify (default
// true) to check the server certificate, root as an alternative to WithRoot.
type Adapter struct {
	*arm.AdapterConfig
	Client *http.Client
	Logger logger.Interface

	host          string
	rootPath      string
	root          jp.Expr
	trailingSlash bool

	mu         sync.Mutex
	lastQuery  string
	lastResult *arm.Result
}

// New returns an adapter for the api described by settings
func New(settings *arm.AdapterConfig, opts ...Option) (*Adapter, error) {
	if settings == nil {
		settings = arm.NewAdapterConfig(nil)
	}

	host, err := settings.GetString("host")
	if err != nil {
		return nil, err
	}

	verify, err := settings.GetBool("verify", true)
	if err != nil {
		return nil, err
	}

	adapter := &Adapter{
		AdapterConfig: settings,
		Logger:        logger.Default,
		host:          strings.TrimSuffix(host, "/"),
		trailingSlash: true,
	}
	if settings.Has("root") {
		adapter.rootPath, _ = settings.GetString("root")
	}

	for _, opt := range opts {
		opt(adapter)
	}

	if adapter.Client == nil {
		adapter.Client = &http.Client{Timeout: 30 * time.Second}
		if !verify {
			adapter.Client.Transport = &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // opted out through settings
			}
		}
	}

	if adapter.rootPath != "" {
		if adapter.root, err = jp.ParseString(adapter.rootPath); err != nil {
			return nil, fmt.Errorf("invalid root %q: %w", adapter.rootPath, err)
		}
	}
	return adapter, nil
}

// SetLogger traces requests through l
func (a *Adapter) SetLogger(l logger.Interface) {
	a.Logger = l
}

// LastQuery returns the url of the last request
func (a *Adapter) LastQuery() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastQuery
}

// LastResult returns the outcome of the last request
func (a *Adapter) LastResult() *arm.Result {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResult
}

// URL returns the request url for resource with filters encoded, sorted by key
func (a *Adapter) URL(resource string, filters map[string]interface{}) string {
	u := a.host + "/" + strings.TrimPrefix(resource, "/")
	if a.trailingSlash && !strings.HasSuffix(u, "/") {
		u += "/"
	}

	if len(filters) == 0 {
		return u
	}

	values := url.Values{}
	for key, value := range filters {
		if list, ok := value.([]interface{}); ok {
			for _, item := range list {
				values.Add(key, utils.ToString(item))
			}
			continue
		}
		if list, ok := value.([]string); ok {
			values[key] = append(values[key], list...)
			continue
		}
		values.Set(key, utils.ToString(value))
	}
	return u + "?" + values.Encode()
}

// Read issues a GET for the model resource with options.Filters as query string
func (a *Adapter) Read(ctx context.Context, model *arm.Model, options arm.FindOptions) (records []*arm.Record, err error) {
	if err := arm.CheckModel(model); err != nil {
		return nil, err
	}

	target := a.URL(model.Resource, options.Filters)
	result := &arm.Result{Statement: "GET " + target}

	begin := time.Now()
	defer func() {
		a.mu.Lock()
		a.lastQuery = target
		a.lastResult = result
		a.mu.Unlock()
		a.Logger.Trace(ctx, begin, func() (string, int64) { return result.Statement, int64(len(records)) }, err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	if a.Has("user") {
		user, _ := a.GetString("user")
		var passwd string
		if a.Has("passwd") {
			passwd, _ = a.GetString("passwd")
		}
		req.SetBasicAuth(user, passwd)
	}

	resp, err := a.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", arm.ErrExecute, err)
	}
	defer resp.Body.Close()

	result.StatusCode = resp.StatusCode
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: target, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", arm.ErrExecute, err)
	}

	items, err := a.items(body)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		record, err := model.Load(item)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	result.Rows = items
	result.RowsAffected = int64(len(items))
	return records, nil
}

// items decodes body into the list of objects to hydrate
func (a *Adapter) items(body []byte) ([]map[string]interface{}, error) {
	data, err := oj.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid json: %w", arm.ErrExecute, err)
	}

	if a.root != nil {
		found := a.root.Get(data)
		if len(found) == 0 {
			return nil, nil
		}
		if len(found) == 1 {
			data = found[0]
		} else {
			data = found
		}
	}

	switch v := data.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	case []interface{}:
		items := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			object, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%w: expected json objects, got %T", arm.ErrExecute, item)
			}
			items = append(items, object)
		}
		return items, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: expected a json object or array, got %T", arm.ErrExecute, data)
}

// Create is not supported
func (a *Adapter) Create(context.Context, *arm.Record) error {
	return fmt.Errorf("%w: rest adapter is read only", arm.ErrNotImplemented)
}

// Update is not supported
func (a *Adapter) Update(context.Context, *arm.Record) error {
	return fmt.Errorf("%w: rest adapter is read only", arm.ErrNotImplemented)
}

// Delete is not supported
func (a *Adapter) Delete(context.Context, *arm.Record) error {
	return fmt.Errorf("%w: rest adapter is read only", arm.ErrNotImplemented)
}
