// Package mwapi is a small client for the MediaWiki action API, covering
// the calls the bots in this repository make.
package mwapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"tfaprotbot/lib/restyutil"
	"tfaprotbot/lib/telemetry"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrLoginFailed  = errors.New("failed to login")
	ErrPageMissing  = errors.New("page does not exist")
	ErrInvalidTitle = errors.New("invalid title")
)

// APIError is the error envelope returned by the API, it is returned
// (wrapped) by every call that receives one.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

type Client struct {
	ApiUrl    *url.URL
	Http      *resty.Client
	downloads *resty.Client

	maxlag   int
	username string
	tokens   map[string]string
}

type ClientOptions struct {
	// full url of api.php, ex. https://en.wikipedia.org/w/api.php
	ApiUrl    string
	UserAgent string
	// seconds, 0 disables the maxlag parameter
	Maxlag  int
	Timeout time.Duration
	// where full request/response dumps go when debug logging is on, can be nil
	Dump restyutil.InstrumentOutput
}

const (
	defaultTimeout  = 30 * time.Second
	downloadTimeout = 5 * time.Minute
)

func newHttpClient(opts ClientOptions, timeout time.Duration) *resty.Client {
	client := resty.New()
	client.SetHeader("user-agent", opts.UserAgent)
	client.SetTimeout(timeout)

	telemetry.InstrumentResty(client, "tfaprotbot.lib.mwapi.http")
	restyutil.InstrumentClient(client, opts.Dump)
	return client
}

func NewClient(ctx context.Context, opts ClientOptions) (*Client, error) {
	apiUrl, err := url.Parse(opts.ApiUrl)
	if err != nil {
		return nil, err
	}
	if !apiUrl.IsAbs() {
		return nil, fmt.Errorf("api url must be absolute: %s", opts.ApiUrl)
	}
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("a user agent is required")
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client := newHttpClient(opts, timeout)
	client.SetCookieJar(jar)

	c := &Client{
		ApiUrl:    apiUrl,
		Http:      client,
		downloads: newHttpClient(opts, max(timeout, downloadTimeout)),
		maxlag:    opts.Maxlag,
		tokens:    map[string]string{},
	}
	return c, nil
}

// Username is the name the client is logged in as, empty when anonymous.
func (c *Client) Username() string {
	return c.username
}

func (c *Client) baseParams(params url.Values) url.Values {
	out := url.Values{}
	for k, v := range params {
		out[k] = v
	}
	out.Set("format", "json")
	out.Set("formatversion", "2")
	if c.maxlag > 0 {
		out.Set("maxlag", strconv.Itoa(c.maxlag))
	}
	return out
}

type envelope struct {
	Error *APIError `json:"error"`
}

func decodeResponse(res *resty.Response, out any) error {
	if res.IsError() {
		return fmt.Errorf("unexpected status %s", res.Status())
	}

	var env envelope
	err := json.Unmarshal(res.Body(), &env)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if env.Error != nil {
		return env.Error
	}
	if out == nil {
		return nil
	}
	err = json.Unmarshal(res.Body(), out)
	if err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Get sends a read request and decodes the response body into out.
func (c *Client) Get(ctx context.Context, params url.Values, out any) error {
	ctx, span := tracer.Start(ctx, "client:Get")
	defer span.End()

	action := params.Get("action")
	span.SetAttributes(attribute.String("action", action))
	apiCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParamsFromValues(c.baseParams(params)).
		Get(c.ApiUrl.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return err
	}
	err = decodeResponse(res, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "api request failed")
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

// Post sends a write request (form encoded) and decodes the response body
// into out. Once logged in every post asserts that the session is still
// valid.
func (c *Client) Post(ctx context.Context, params url.Values, out any) error {
	ctx, span := tracer.Start(ctx, "client:Post")
	defer span.End()

	action := params.Get("action")
	span.SetAttributes(attribute.String("action", action))
	apiCalls.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))

	form := c.baseParams(params)
	if c.username != "" {
		form.Set("assert", "user")
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		Post(c.ApiUrl.String())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch")
		return err
	}
	err = decodeResponse(res, out)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "api request failed")
		return fmt.Errorf("%s: %w", action, err)
	}
	return nil
}

func (c *Client) fetchToken(ctx context.Context, kind string) (string, error) {
	var res struct {
		Query struct {
			Tokens map[string]string `json:"tokens"`
		} `json:"query"`
	}
	err := c.Get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {kind},
	}, &res)
	if err != nil {
		return "", err
	}
	token := res.Query.Tokens[kind+"token"]
	if token == "" {
		return "", fmt.Errorf("no %s token in response", kind)
	}
	return token, nil
}

// Token returns a token of the given kind ("csrf", "watch", ...), tokens
// are cached until the next login.
func (c *Client) Token(ctx context.Context, kind string) (string, error) {
	if token, ok := c.tokens[kind]; ok {
		return token, nil
	}
	token, err := c.fetchToken(ctx, kind)
	if err != nil {
		return "", err
	}
	c.tokens[kind] = token
	return token, nil
}

func (c *Client) Login(ctx context.Context, username, password string) error {
	ctx, span := tracer.Start(ctx, "client:Login")
	defer span.End()

	loginToken, err := c.fetchToken(ctx, "login")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get login token")
		return err
	}

	var res struct {
		Login struct {
			Result     string `json:"result"`
			Reason     string `json:"reason"`
			Lgusername string `json:"lgusername"`
		} `json:"login"`
	}
	err = c.Post(ctx, url.Values{
		"action":     {"login"},
		"lgname":     {username},
		"lgpassword": {password},
		"lgtoken":    {loginToken},
	}, &res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to make login request")
		return err
	}
	if res.Login.Result != "Success" {
		span.SetStatus(codes.Error, ErrLoginFailed.Error())
		return fmt.Errorf("%w as %s: %s %s", ErrLoginFailed, username, res.Login.Result, res.Login.Reason)
	}

	c.username = res.Login.Lgusername
	if c.username == "" {
		c.username = username
	}
	c.tokens = map[string]string{}
	return nil
}

// QueryAll sends a query and calls fn with the raw body of every batch,
// following continuation until the result is complete.
func (c *Client) QueryAll(ctx context.Context, params url.Values, fn func(body json.RawMessage) error) error {
	ctx, span := tracer.Start(ctx, "client:QueryAll")
	defer span.End()

	cont := map[string]string{}
	for batch := 0; ; batch++ {
		batchParams := url.Values{}
		for k, v := range params {
			batchParams[k] = v
		}
		for k, v := range cont {
			batchParams.Set(k, v)
		}

		var body json.RawMessage
		err := c.Get(ctx, batchParams, &body)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to query batch")
			return err
		}
		err = fn(body)
		if err != nil {
			return err
		}

		var next struct {
			Continue map[string]string `json:"continue"`
		}
		err = json.Unmarshal(body, &next)
		if err != nil {
			return fmt.Errorf("failed to decode continuation: %w", err)
		}
		if len(next.Continue) == 0 {
			span.SetAttributes(attribute.Int("batches", batch+1))
			return nil
		}
		cont = next.Continue
	}
}
