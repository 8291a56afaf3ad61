package resolver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/goliatone/go-formwizard/internal/logging"
	"github.com/goliatone/go-formwizard/pkg/model"
)

const (
	// DefaultTimeout bounds a single lookup.
	DefaultTimeout = 10 * time.Second
	// DefaultAPIKeyHeader carries api_key credentials.
	DefaultAPIKeyHeader = "X-API-Key"
	// DefaultValueField and DefaultLabelField are read from response items
	// when the source has no responseMapping.
	DefaultValueField = "value"
	DefaultLabelField = "label"

	maxResponseBytes = 4 << 20
)

// Option is one resolved choice. Record holds the full response item so it can
// be stored for response-data mapping.
type Option struct {
	Value  string
	Label  string
	Record map[string]any
}

// ValidationResult is the outcome of a delegated validation call.
type ValidationResult struct {
	IsValid bool
	Message string
}

// Resolver performs external-source lookups and validations over HTTP.
type Resolver struct {
	client       *http.Client
	credentials  CredentialStore
	timeout      time.Duration
	apiKeyHeader string
	logger       logrus.FieldLogger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithCredentials sets the store used to resolve authKey references.
func WithCredentials(store CredentialStore) ResolverOption {
	return func(r *Resolver) {
		r.credentials = store
	}
}

// WithTimeout bounds each call. Non-positive values disable the bound.
func WithTimeout(timeout time.Duration) ResolverOption {
	return func(r *Resolver) {
		r.timeout = timeout
	}
}

// WithAPIKeyHeader changes the header used for api_key credentials.
func WithAPIKeyHeader(header string) ResolverOption {
	return func(r *Resolver) {
		if trimmed := strings.TrimSpace(header); trimmed != "" {
			r.apiKeyHeader = trimmed
		}
	}
}

// WithLogger injects a logger. Requests are logged at debug level.
func WithLogger(logger logrus.FieldLogger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New constructs a Resolver with defaults applied.
func New(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:       http.DefaultClient,
		timeout:      DefaultTimeout,
		apiKeyHeader: DefaultAPIKeyHeader,
		logger:       logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve fetches the option list described by src. Disabled sources and
// sources without an endpoint resolve to nil without a call. Items missing
// the mapped attributes are kept with empty strings.
func (r *Resolver) Resolve(ctx context.Context, src *model.ExternalDataSource) ([]Option, error) {
	if !src.Active() {
		return nil, nil
	}
	body, err := r.call(ctx, src, nil)
	if err != nil {
		return nil, err
	}

	root := gjson.ParseBytes(body)
	items := root
	if !root.IsArray() {
		items = root.Get("data")
	}
	if !items.IsArray() {
		return nil, &Error{Endpoint: src.Endpoint, Message: "response is not a list"}
	}

	valueField, labelField := DefaultValueField, DefaultLabelField
	if mapping := src.ResponseMapping; mapping != nil {
		if mapping.ValueField != "" {
			valueField = mapping.ValueField
		}
		if mapping.LabelField != "" {
			labelField = mapping.LabelField
		}
	}

	list := items.Array()
	options := make([]Option, 0, len(list))
	for _, item := range list {
		option := Option{}
		if item.IsObject() {
			option.Value = item.Get(valueField).String()
			option.Label = sanitizeText(item.Get(labelField).String())
			option.Record, _ = item.Value().(map[string]any)
		} else {
			option.Value = item.String()
			option.Label = sanitizeText(item.String())
		}
		options = append(options, option)
	}
	return options, nil
}

// Validate asks the source to validate value. An empty value or an inactive
// source is valid without a call. GET sends value as a query parameter; POST
// sends {...requestParams, value}.
func (r *Resolver) Validate(ctx context.Context, src *model.ExternalDataSource, value string) (ValidationResult, error) {
	if !src.Active() || value == "" {
		return ValidationResult{IsValid: true}, nil
	}
	body, err := r.call(ctx, src, &value)
	if err != nil {
		return ValidationResult{}, err
	}

	root := gjson.ParseBytes(body)
	verdict := root.Get("isValid")
	if !verdict.Exists() {
		verdict = root.Get("valid")
	}
	if !verdict.Exists() {
		return ValidationResult{}, &Error{Endpoint: src.Endpoint, Message: "response has no isValid flag"}
	}
	return ValidationResult{
		IsValid: verdict.Bool(),
		Message: sanitizeText(root.Get("message").String()),
	}, nil
}

func (r *Resolver) call(ctx context.Context, src *model.ExternalDataSource, value *string) ([]byte, error) {
	reqCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := r.newRequest(reqCtx, src, value)
	if err != nil {
		return nil, &Error{Endpoint: src.Endpoint, Message: "invalid request", Err: err}
	}

	logger := r.logger.WithFields(logrus.Fields{"endpoint": src.Endpoint, "method": req.Method})
	logger.Debug("external source request")
	started := time.Now()

	resp, err := r.client.Do(req)
	if err != nil {
		logger.WithError(err).Debug("external source request failed")
		return nil, &Error{Endpoint: src.Endpoint, Message: "request failed", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	logger.WithFields(logrus.Fields{"status": resp.StatusCode, "elapsed": time.Since(started)}).Debug("external source response")
	if err != nil {
		return nil, &Error{Endpoint: src.Endpoint, Status: resp.StatusCode, Message: "read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Endpoint: src.Endpoint, Status: resp.StatusCode, Message: failureMessage(resp, body)}
	}
	if !gjson.ValidBytes(body) {
		return nil, &Error{Endpoint: src.Endpoint, Status: resp.StatusCode, Message: "response is not valid JSON"}
	}
	return body, nil
}

func (r *Resolver) newRequest(ctx context.Context, src *model.ExternalDataSource, value *string) (*http.Request, error) {
	method := strings.ToUpper(strings.TrimSpace(src.Method))
	if method == "" {
		method = model.MethodGet
	}
	endpoint, err := url.Parse(src.Endpoint)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	switch method {
	case model.MethodGet:
		query := endpoint.Query()
		for key, param := range src.RequestParams {
			query.Set(key, param)
		}
		if value != nil {
			query.Set("value", *value)
		}
		endpoint.RawQuery = query.Encode()
	case model.MethodPost:
		payload := make(map[string]any, len(src.RequestParams)+1)
		for key, param := range src.RequestParams {
			payload[key] = param
		}
		if value != nil {
			payload["value"] = *value
		}
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	default:
		return nil, &Error{Endpoint: src.Endpoint, Message: "unsupported method " + method}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, header := range src.Headers {
		req.Header.Set(key, header)
	}
	r.authenticate(ctx, req, src.AuthKey)
	return req, nil
}

// authenticate adds the credential referenced by authKey. A missing store,
// an unknown key or a lookup error leaves the request unauthenticated.
func (r *Resolver) authenticate(ctx context.Context, req *http.Request, authKey string) {
	if authKey == "" || r.credentials == nil {
		return
	}
	logger := r.logger.WithField("authKey", authKey)
	cred, ok, err := r.credentials.Lookup(ctx, authKey)
	if err != nil {
		logger.WithError(err).Debug("credential lookup failed, sending unauthenticated")
		return
	}
	if !ok {
		logger.Debug("credential not found, sending unauthenticated")
		return
	}
	switch cred.Type {
	case CredentialAPIKey:
		header := r.apiKeyHeader
		if cred.Header != "" {
			header = cred.Header
		}
		req.Header.Set(header, cred.Key)
	case CredentialBasic:
		token := base64.StdEncoding.EncodeToString([]byte(cred.Key + ":" + cred.Secret))
		req.Header.Set("Authorization", "Basic "+token)
	case CredentialOAuth:
		req.Header.Set("Authorization", "Bearer "+cred.Key)
	default:
		logger.WithField("type", cred.Type).Debug("unsupported credential type, sending unauthenticated")
	}
}

func failureMessage(resp *http.Response, body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, key := range []string{"message", "error"} {
			if msg := sanitizeText(parsed.Get(key).String()); msg != "" {
				return msg
			}
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
