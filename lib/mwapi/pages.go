package mwapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"tfaprotbot/lib/protection"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type titleMapping struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type revision struct {
	Timestamp time.Time `json:"timestamp"`
	User      string    `json:"user"`
	Slots     struct {
		Main struct {
			Content string `json:"content"`
		} `json:"main"`
	} `json:"slots"`
}

type imageInfo struct {
	Url  string `json:"url"`
	Sha1 string `json:"sha1"`
	Size int64  `json:"size"`
}

type page struct {
	PageId          int               `json:"pageid"`
	Namespace       int               `json:"ns"`
	Title           string            `json:"title"`
	Missing         bool              `json:"missing"`
	Invalid         bool              `json:"invalid"`
	InvalidReason   string            `json:"invalidreason"`
	Revisions       []revision        `json:"revisions"`
	Protection      protection.Status `json:"protection"`
	Images          []linkedTitle     `json:"images"`
	ImageRepository string            `json:"imagerepository"`
	ImageInfo       []imageInfo       `json:"imageinfo"`
}

type linkedTitle struct {
	Namespace int    `json:"ns"`
	Title     string `json:"title"`
}

type queryResponse struct {
	Query struct {
		Normalized []titleMapping `json:"normalized"`
		Redirects  []titleMapping `json:"redirects"`
		Pages      []page         `json:"pages"`
	} `json:"query"`
}

// queryPage runs a query for a single title and returns the page object.
func (c *Client) queryPage(ctx context.Context, title string, params url.Values) (page, queryResponse, error) {
	params.Set("action", "query")
	params.Set("titles", title)

	var res queryResponse
	err := c.Get(ctx, params, &res)
	if err != nil {
		return page{}, res, err
	}
	if len(res.Query.Pages) == 0 {
		return page{}, res, fmt.Errorf("%w: %s", ErrInvalidTitle, title)
	}
	p := res.Query.Pages[0]
	if p.Invalid {
		return p, res, fmt.Errorf("%w: %s (%s)", ErrInvalidTitle, title, p.InvalidReason)
	}
	return p, res, nil
}

// PageText returns the current wikitext of a page.
func (c *Client) PageText(ctx context.Context, title string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:PageText")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	p, _, err := c.queryPage(ctx, title, url.Values{
		"prop":    {"revisions"},
		"rvprop":  {"content"},
		"rvslots": {"main"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query page")
		return "", err
	}
	if p.Missing || len(p.Revisions) == 0 {
		return "", fmt.Errorf("%w: %s", ErrPageMissing, title)
	}
	return p.Revisions[0].Slots.Main.Content, nil
}

// PageExists reports whether title exists on the wiki.
func (c *Client) PageExists(ctx context.Context, title string) (bool, error) {
	p, _, err := c.queryPage(ctx, title, url.Values{"prop": {"info"}})
	if err != nil {
		return false, err
	}
	return !p.Missing, nil
}

// NormalizeTitle returns the canonical form of title ("foo_bar" ->
// "Foo bar").
func (c *Client) NormalizeTitle(ctx context.Context, title string) (string, error) {
	p, _, err := c.queryPage(ctx, title, url.Values{})
	if err != nil {
		return "", err
	}
	return p.Title, nil
}

// RedirectTarget returns the title a redirect points to, or "" when title
// is not a redirect.
func (c *Client) RedirectTarget(ctx context.Context, title string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:RedirectTarget")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	_, res, err := c.queryPage(ctx, title, url.Values{"redirects": {"1"}})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query page")
		return "", err
	}
	if len(res.Query.Redirects) == 0 {
		return "", nil
	}
	return res.Query.Redirects[0].To, nil
}

// ProtectionStatus returns the protections currently applied to a page,
// including create protection of missing pages.
func (c *Client) ProtectionStatus(ctx context.Context, title string) (protection.Status, error) {
	ctx, span := tracer.Start(ctx, "client:ProtectionStatus")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	p, _, err := c.queryPage(ctx, title, url.Values{
		"prop":   {"info"},
		"inprop": {"protection"},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query protection")
		return nil, err
	}
	if p.Protection == nil {
		return protection.Status{}, nil
	}
	return p.Protection, nil
}

// ImageLinks returns the titles (with namespace) of every file used on a
// page.
func (c *Client) ImageLinks(ctx context.Context, title string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:ImageLinks")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	var images []string
	err := c.QueryAll(ctx, url.Values{
		"action":  {"query"},
		"prop":    {"images"},
		"imlimit": {"max"},
		"titles":  {title},
	}, func(body json.RawMessage) error {
		var res queryResponse
		err := json.Unmarshal(body, &res)
		if err != nil {
			return err
		}
		for _, p := range res.Query.Pages {
			if p.Invalid {
				return fmt.Errorf("%w: %s", ErrInvalidTitle, title)
			}
			for _, img := range p.Images {
				images = append(images, img.Title)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query images")
		return nil, err
	}
	return images, nil
}

type Revision struct {
	Timestamp time.Time
	User      string
}

// Revisions returns every revision of a page, newest first.
func (c *Client) Revisions(ctx context.Context, title string) ([]Revision, error) {
	ctx, span := tracer.Start(ctx, "client:Revisions")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	var revisions []Revision
	err := c.QueryAll(ctx, url.Values{
		"action":  {"query"},
		"prop":    {"revisions"},
		"rvprop":  {"timestamp|user"},
		"rvlimit": {"max"},
		"titles":  {title},
	}, func(body json.RawMessage) error {
		var res queryResponse
		err := json.Unmarshal(body, &res)
		if err != nil {
			return err
		}
		for _, p := range res.Query.Pages {
			if p.Missing {
				return fmt.Errorf("%w: %s", ErrPageMissing, title)
			}
			for _, r := range p.Revisions {
				revisions = append(revisions, Revision{
					Timestamp: r.Timestamp,
					User:      r.User,
				})
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query revisions")
		return nil, err
	}
	return revisions, nil
}

// ParsedHTML returns the rendered html of a page.
func (c *Client) ParsedHTML(ctx context.Context, title string) (string, error) {
	ctx, span := tracer.Start(ctx, "client:ParsedHTML")
	defer span.End()
	span.SetAttributes(attribute.String("title", title))

	var res struct {
		Parse struct {
			Title string `json:"title"`
			Text  string `json:"text"`
		} `json:"parse"`
	}
	err := c.Get(ctx, url.Values{
		"action": {"parse"},
		"page":   {title},
		"prop":   {"text"},
	}, &res)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code == "missingtitle" {
		return "", fmt.Errorf("%w: %s", ErrPageMissing, title)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse page")
		return "", err
	}
	return res.Parse.Text, nil
}

// WatchlistRaw returns every title in the given namespace on the logged in
// user's watchlist.
func (c *Client) WatchlistRaw(ctx context.Context, namespace int) ([]string, error) {
	ctx, span := tracer.Start(ctx, "client:WatchlistRaw")
	defer span.End()

	var titles []string
	err := c.QueryAll(ctx, url.Values{
		"action":      {"query"},
		"list":        {"watchlistraw"},
		"wrnamespace": {fmt.Sprint(namespace)},
		"wrlimit":     {"max"},
	}, func(body json.RawMessage) error {
		var res struct {
			WatchlistRaw []linkedTitle `json:"watchlistraw"`
		}
		err := json.Unmarshal(body, &res)
		if err != nil {
			return err
		}
		for _, t := range res.WatchlistRaw {
			titles = append(titles, t.Title)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to query watchlist")
		return nil, err
	}
	return titles, nil
}
