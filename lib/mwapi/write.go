package mwapi

import (
	"context"
	"net/url"
	"strings"
	"tfaprotbot/lib/protection"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

func (c *Client) postWithToken(ctx context.Context, kind string, params url.Values) error {
	token, err := c.Token(ctx, kind)
	if err != nil {
		return err
	}
	params.Set("token", token)
	return c.Post(ctx, params, nil)
}

// Protect replaces the protection state of a page with req.
func (c *Client) Protect(ctx context.Context, title string, req protection.Request, reason string) error {
	ctx, span := tracer.Start(ctx, "client:Protect")
	defer span.End()
	span.SetAttributes(
		attribute.String("title", title),
		attribute.StringSlice("protections", req.Protections),
		attribute.StringSlice("expiries", req.Expiries),
	)

	params := url.Values{
		"action":      {"protect"},
		"title":       {title},
		"protections": {strings.Join(req.Protections, "|")},
		"expiry":      {strings.Join(req.Expiries, "|")},
		"reason":      {reason},
	}
	if req.Cascade {
		params.Set("cascade", "1")
	}
	err := c.postWithToken(ctx, "csrf", params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to protect")
		return err
	}
	return nil
}

func (c *Client) Delete(ctx context.Context, title, reason string) error {
	ctx, span := tracer.Start(ctx, "client:Delete")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	err := c.postWithToken(ctx, "csrf", url.Values{
		"action": {"delete"},
		"title":  {title},
		"reason": {reason},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to delete")
		return err
	}
	return nil
}

// Undelete restores the deleted revisions with the given timestamps
// (ISO 8601), all of them when timestamps is empty.
func (c *Client) Undelete(ctx context.Context, title, reason string, timestamps []string) error {
	ctx, span := tracer.Start(ctx, "client:Undelete")
	defer span.End()
	span.SetAttributes(
		attribute.String("title", title),
		attribute.Int("revisions", len(timestamps)),
	)

	params := url.Values{
		"action": {"undelete"},
		"title":  {title},
		"reason": {reason},
	}
	if len(timestamps) > 0 {
		params.Set("timestamps", strings.Join(timestamps, "|"))
	}
	err := c.postWithToken(ctx, "csrf", params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to undelete")
		return err
	}
	return nil
}

func (c *Client) Watch(ctx context.Context, title string) error {
	return c.watch(ctx, title, false)
}

func (c *Client) Unwatch(ctx context.Context, title string) error {
	return c.watch(ctx, title, true)
}

func (c *Client) watch(ctx context.Context, title string, unwatch bool) error {
	ctx, span := tracer.Start(ctx, "client:watch")
	defer span.End()
	span.SetAttributes(
		attribute.String("title", title),
		attribute.Bool("unwatch", unwatch),
	)

	params := url.Values{
		"action": {"watch"},
		"titles": {title},
	}
	if unwatch {
		params.Set("unwatch", "1")
	}
	err := c.postWithToken(ctx, "watch", params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to update watchlist")
		return err
	}
	return nil
}
