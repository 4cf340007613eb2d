// Package tfa protects upcoming featured articles against page moves (and
// their redirects against edits) until they are off the main page.
package tfa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"tfaprotbot/lib/htmlutil"
	"tfaprotbot/lib/mwapi"
	"tfaprotbot/lib/protection"
	"tfaprotbot/lib/textutil"
	"tfaprotbot/lib/timezone"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var ErrNotScheduled = errors.New("no featured article scheduled")

const (
	titleTemplatePrefix = "Template:TFA title/"
	blurbPagePrefix     = "Wikipedia:Today's featured article/"
	emptyBlurb          = "{{TFAempty}}"
)

// Wiki is the part of the API client the bot uses.
type Wiki interface {
	PageText(ctx context.Context, title string) (string, error)
	ParsedHTML(ctx context.Context, title string) (string, error)
	NormalizeTitle(ctx context.Context, title string) (string, error)
	RedirectTarget(ctx context.Context, title string) (string, error)
	ProtectionStatus(ctx context.Context, title string) (protection.Status, error)
	Protect(ctx context.Context, title string, req protection.Request, reason string) error
}

type Options struct {
	// days ahead that are always checked, scheduling is not always done
	// in order
	Lookahead int
	// the run never looks further ahead than this
	MaxLookahead int
	Reason       string
	// compute everything but never call protect
	DryRun bool
	// defaults to timezone.Now
	Now func() time.Time
}

type Service struct {
	wiki Wiki
	opts Options
}

func NewService(wiki Wiki, opts Options) Service {
	if opts.Now == nil {
		opts.Now = timezone.Now
	}
	return Service{wiki: wiki, opts: opts}
}

// PageAction is what was decided (and done) for a single page.
type PageAction struct {
	Title    string
	Redirect bool
	Plan     protection.Plan
	Applied  bool
}

type DayResult struct {
	Day       time.Time
	Scheduled bool
	Title     string
	// midnight after Day, when the article leaves the main page
	Until time.Time
	Pages []PageAction
}

func notScheduled(day time.Time) error {
	return fmt.Errorf("%w: %s", ErrNotScheduled, timezone.FormatDay(day))
}

// ResolveTitle returns the (normalized) title of the article featured on
// day. Template:TFA title is checked first, then the blurb page itself.
func (s Service) ResolveTitle(ctx context.Context, day time.Time) (string, error) {
	ctx, span := tracer.Start(ctx, "ResolveTitle")
	defer span.End()

	date := timezone.FormatDay(day)
	span.SetAttributes(attribute.String("day", date))

	text, err := s.wiki.PageText(ctx, titleTemplatePrefix+date)
	switch {
	case err == nil:
		title := strings.TrimSpace(text)
		if title == "" {
			return "", notScheduled(day)
		}
		return s.wiki.NormalizeTitle(ctx, title)
	case errors.Is(err, mwapi.ErrPageMissing):
		slog.InfoContext(ctx, "title template does not exist, checking the blurb", "day", date)
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch title template")
		return "", err
	}

	title, err := s.titleFromBlurb(ctx, day)
	if err != nil {
		if !errors.Is(err, ErrNotScheduled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to read blurb")
		}
		return "", err
	}
	return s.wiki.NormalizeTitle(ctx, title)
}

func (s Service) titleFromBlurb(ctx context.Context, day time.Time) (string, error) {
	page := blurbPagePrefix + timezone.FormatDay(day)

	text, err := s.wiki.PageText(ctx, page)
	if errors.Is(err, mwapi.ErrPageMissing) {
		return "", notScheduled(day)
	}
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == emptyBlurb {
		return "", notScheduled(day)
	}
	if title := textutil.FirstBoldLink(text); title != "" {
		return title, nil
	}

	// the link may come out of a template, look at the rendered page
	rendered, err := s.wiki.ParsedHTML(ctx, page)
	if errors.Is(err, mwapi.ErrPageMissing) {
		return "", notScheduled(day)
	}
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rendered))
	if err != nil {
		return "", err
	}
	anchor, ok := htmlutil.FirstBoldLink(ctx, doc)
	if !ok {
		slog.WarnContext(ctx, "could not find a bold link in the blurb", "page", page)
		return "", notScheduled(day)
	}
	return anchor.PageTitle(), nil
}

func (s Service) protectPage(ctx context.Context, title string, until time.Time, redirect bool) (PageAction, error) {
	ctx, span := tracer.Start(ctx, "protectPage")
	defer span.End()
	span.SetAttributes(
		attribute.String("title", title),
		attribute.Bool("redirect", redirect),
	)

	action := PageAction{Title: title, Redirect: redirect}
	status, err := s.wiki.ProtectionStatus(ctx, title)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get protection status")
		return action, err
	}

	action.Plan = protection.ShouldProtect(status, until, redirect)
	if len(action.Plan) == 0 {
		slog.InfoContext(ctx, "already protected", "title", title)
		return action, nil
	}

	req := protection.BuildRequest(status, action.Plan)
	if s.opts.DryRun {
		slog.InfoContext(ctx, "would protect (dry run)",
			"title", title,
			"protections", req.Protections,
			"expiry", req.Expiries,
		)
		return action, nil
	}

	err = s.wiki.Protect(ctx, title, req, s.opts.Reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to protect")
		return action, err
	}
	action.Applied = true
	pagesProtected.Add(ctx, 1, metric.WithAttributes(attribute.Bool("redirect", redirect)))
	slog.InfoContext(ctx, "protected",
		"title", title,
		"protections", req.Protections,
		"expiry", req.Expiries,
	)
	return action, nil
}

// ProtectDay protects the article featured on day until the following
// midnight. A redirect gets edit protection as well and its target is
// protected on its own terms.
func (s Service) ProtectDay(ctx context.Context, day time.Time) (DayResult, error) {
	ctx, span := tracer.Start(ctx, "ProtectDay")
	defer span.End()

	day = timezone.Midnight(day)
	result := DayResult{Day: day, Until: timezone.NextDay(day)}
	span.SetAttributes(attribute.String("day", timezone.FormatDay(day)))

	title, err := s.ResolveTitle(ctx, day)
	if err != nil {
		return result, err
	}
	result.Scheduled = true
	result.Title = title

	target, err := s.wiki.RedirectTarget(ctx, title)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to resolve redirect")
		return result, err
	}

	if target == "" {
		action, err := s.protectPage(ctx, title, result.Until, false)
		result.Pages = append(result.Pages, action)
		return result, err
	}

	slog.InfoContext(ctx, "featured article is a redirect", "title", title, "target", target)
	action, err := s.protectPage(ctx, title, result.Until, true)
	result.Pages = append(result.Pages, action)
	if err != nil {
		return result, err
	}
	action, err = s.protectPage(ctx, target, result.Until, false)
	result.Pages = append(result.Pages, action)
	return result, err
}

// Run walks forward from tomorrow. Every day up to Lookahead is checked,
// after that the run stops at the first day without a scheduled article
// (or at MaxLookahead).
func (s Service) Run(ctx context.Context) ([]DayResult, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	today := timezone.Midnight(s.opts.Now())

	var results []DayResult
	for ahead := 1; ahead <= s.opts.MaxLookahead; ahead++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		day := today.AddDate(0, 0, ahead)
		result, err := s.ProtectDay(ctx, day)
		results = append(results, result)

		if errors.Is(err, ErrNotScheduled) {
			daysChecked.Add(ctx, 1, metric.WithAttributes(attribute.Bool("scheduled", false)))
			slog.InfoContext(ctx, "nothing scheduled, skipping", "day", timezone.FormatDay(day))
			if ahead > s.opts.Lookahead {
				break
			}
			continue
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to protect day")
			return results, fmt.Errorf("%s: %w", timezone.FormatDay(day), err)
		}
		daysChecked.Add(ctx, 1, metric.WithAttributes(attribute.Bool("scheduled", true)))
	}
	return results, nil
}
