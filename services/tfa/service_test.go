package tfa

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"tfaprotbot/lib/mwapi"
	"tfaprotbot/lib/protection"
	"tfaprotbot/lib/telemetry"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type protectCall struct {
	Title  string
	Req    protection.Request
	Reason string
}

type fakeWiki struct {
	pages      map[string]string
	html       map[string]string
	redirects  map[string]string
	status     map[string]protection.Status
	protected  []protectCall
	protectErr error
}

func newFakeWiki() *fakeWiki {
	return &fakeWiki{
		pages:     map[string]string{},
		html:      map[string]string{},
		redirects: map[string]string{},
		status:    map[string]protection.Status{},
	}
}

func (w *fakeWiki) PageText(ctx context.Context, title string) (string, error) {
	text, ok := w.pages[title]
	if !ok {
		return "", fmt.Errorf("%w: %s", mwapi.ErrPageMissing, title)
	}
	return text, nil
}

func (w *fakeWiki) ParsedHTML(ctx context.Context, title string) (string, error) {
	text, ok := w.html[title]
	if !ok {
		return "", fmt.Errorf("%w: %s", mwapi.ErrPageMissing, title)
	}
	return text, nil
}

func (w *fakeWiki) NormalizeTitle(ctx context.Context, title string) (string, error) {
	title = strings.ReplaceAll(title, "_", " ")
	return strings.ToUpper(title[:1]) + title[1:], nil
}

func (w *fakeWiki) RedirectTarget(ctx context.Context, title string) (string, error) {
	return w.redirects[title], nil
}

func (w *fakeWiki) ProtectionStatus(ctx context.Context, title string) (protection.Status, error) {
	return w.status[title], nil
}

func (w *fakeWiki) Protect(ctx context.Context, title string, req protection.Request, reason string) error {
	if w.protectErr != nil {
		return w.protectErr
	}
	w.protected = append(w.protected, protectCall{Title: title, Req: req, Reason: reason})
	return nil
}

const reason = "Upcoming TFA ([[WP:BOT|bot protection]])"

// 2024-02-28 10:30 UTC, tomorrow is the leap day
var now = time.Date(2024, 2, 28, 10, 30, 0, 0, time.UTC)

func newTestService(t testing.TB, wiki *fakeWiki, opts Options) Service {
	cleanup := telemetry.SetupForTesting(t, "test:services/tfa")
	t.Cleanup(cleanup)

	if opts.Lookahead == 0 {
		opts.Lookahead = 35
	}
	if opts.MaxLookahead == 0 {
		opts.MaxLookahead = 60
	}
	opts.Reason = reason
	opts.Now = func() time.Time { return now }
	return NewService(wiki, opts)
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveTitle(t *testing.T) {
	wiki := newFakeWiki()
	wiki.pages["Template:TFA title/February 29, 2024"] = "Zoo TV Tour\n"
	wiki.pages["Template:TFA title/March 1, 2024"] = "  "
	wiki.pages["Wikipedia:Today's featured article/March 2, 2024"] = "{{TFAempty}}\n"
	wiki.pages["Wikipedia:Today's featured article/March 3, 2024"] =
		"[[File:Delos.jpg|thumb]]\nThe '''[[mosaics of Delos|Mosaics of Delos]]''' are a significant body of ancient Greek art."
	wiki.pages["Wikipedia:Today's featured article/March 4, 2024"] = "{{TFA blurb|SMS Zähringen}}"
	wiki.html["Wikipedia:Today's featured article/March 4, 2024"] =
		`<div class="mw-parser-output"><p><b><a href="/wiki/SMS_Z%C3%A4hringen" title="SMS Zähringen">SMS <i>Zähringen</i></a></b> was a pre-dreadnought battleship.</p></div>`
	wiki.pages["Wikipedia:Today's featured article/March 5, 2024"] = "no links at all"
	wiki.html["Wikipedia:Today's featured article/March 5, 2024"] = "<p>no links at all</p>"

	service := newTestService(t, wiki, Options{})
	ctx := context.Background()

	cases := []struct {
		day      time.Time
		expected string
	}{
		{day: day(2024, 2, 29), expected: "Zoo TV Tour"},
		{day: day(2024, 3, 1)},
		{day: day(2024, 3, 2)},
		{day: day(2024, 3, 3), expected: "Mosaics of Delos"},
		{day: day(2024, 3, 4), expected: "SMS Zähringen"},
		{day: day(2024, 3, 5)},
		{day: day(2024, 3, 6)},
	}
	for _, test := range cases {
		title, err := service.ResolveTitle(ctx, test.day)
		if test.expected == "" {
			require.ErrorIs(t, err, ErrNotScheduled, test.day)
			continue
		}
		require.NoError(t, err, test.day)
		require.Equal(t, test.expected, title, test.day)
	}
}

func TestProtectDay(t *testing.T) {
	wiki := newFakeWiki()
	wiki.pages["Template:TFA title/February 29, 2024"] = "Zoo TV Tour"
	wiki.status["Zoo TV Tour"] = protection.Status{
		{Type: "edit", Level: "autoconfirmed", Expiry: protection.Infinite},
		{Type: "move", Level: "autoconfirmed", Expiry: protection.Infinite},
	}

	service := newTestService(t, wiki, Options{})
	result, err := service.ProtectDay(context.Background(), day(2024, 2, 29))
	require.NoError(t, err)

	until := day(2024, 3, 1)
	expected := DayResult{
		Day:       day(2024, 2, 29),
		Scheduled: true,
		Title:     "Zoo TV Tour",
		Until:     until,
		Pages: []PageAction{{
			Title:   "Zoo TV Tour",
			Plan:    protection.Plan{"move": {Level: "sysop", Expiry: protection.At(until)}},
			Applied: true,
		}},
	}
	if diff := cmp.Diff(expected, result); diff != "" {
		t.Fatal(diff)
	}

	require.Equal(t, []protectCall{{
		Title: "Zoo TV Tour",
		Req: protection.Request{
			Protections: []string{"move=sysop", "edit=autoconfirmed"},
			Expiries:    []string{"2024-03-01T00:00:00Z", "infinity"},
		},
		Reason: reason,
	}}, wiki.protected)
}

func TestProtectDayRedirect(t *testing.T) {
	wiki := newFakeWiki()
	wiki.pages["Template:TFA title/February 29, 2024"] = "Zoo TV"
	wiki.redirects["Zoo TV"] = "Zoo TV Tour"
	// the target is already protected long enough, the redirect is not
	wiki.status["Zoo TV Tour"] = protection.Status{
		{Type: "move", Level: "sysop", Expiry: protection.Infinite},
	}

	service := newTestService(t, wiki, Options{})
	result, err := service.ProtectDay(context.Background(), day(2024, 2, 29))
	require.NoError(t, err)

	require.Len(t, result.Pages, 2)
	require.True(t, result.Pages[0].Redirect)
	require.True(t, result.Pages[0].Applied)
	require.False(t, result.Pages[1].Applied)
	require.Empty(t, result.Pages[1].Plan)

	require.Equal(t, []protectCall{{
		Title: "Zoo TV",
		Req: protection.Request{
			Protections: []string{"edit=sysop", "move=sysop"},
			Expiries:    []string{"2024-03-01T00:00:00Z", "2024-03-01T00:00:00Z"},
		},
		Reason: reason,
	}}, wiki.protected)
}

func TestProtectDayDryRun(t *testing.T) {
	wiki := newFakeWiki()
	wiki.pages["Template:TFA title/February 29, 2024"] = "Zoo TV Tour"

	service := newTestService(t, wiki, Options{DryRun: true})
	result, err := service.ProtectDay(context.Background(), day(2024, 2, 29))
	require.NoError(t, err)
	require.Len(t, result.Pages, 1)
	require.False(t, result.Pages[0].Applied)
	require.Contains(t, result.Pages[0].Plan, "move")
	require.Empty(t, wiki.protected)
}

func TestProtectDayError(t *testing.T) {
	wiki := newFakeWiki()
	wiki.pages["Template:TFA title/February 29, 2024"] = "Zoo TV Tour"
	wiki.protectErr = &mwapi.APIError{Code: "permissiondenied", Info: "nope"}

	service := newTestService(t, wiki, Options{})
	_, err := service.ProtectDay(context.Background(), day(2024, 2, 29))
	require.ErrorIs(t, err, wiki.protectErr)
}

func TestRun(t *testing.T) {
	cases := []struct {
		name string
		// days ahead of now that have an article scheduled
		scheduled []int
		// days ahead that get protected
		protected []int
	}{
		{
			name:      "gaps inside the lookahead are skipped",
			scheduled: []int{1, 2, 5, 35},
			protected: []int{1, 2, 5, 35},
		},
		{
			name:      "continues past the lookahead while scheduled",
			scheduled: []int{1, 36, 37, 39},
			protected: []int{1, 36, 37},
		},
		{
			name:      "stops at the maximum",
			scheduled: rangeOf(1, 70),
			protected: rangeOf(1, 60),
		},
	}

	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			wiki := newFakeWiki()
			today := day(2024, 2, 28)
			for _, ahead := range test.scheduled {
				d := today.AddDate(0, 0, ahead)
				wiki.pages["Template:TFA title/"+d.Format("January 2, 2006")] = fmt.Sprintf("Article %d", ahead)
			}

			service := newTestService(t, wiki, Options{})
			results, err := service.Run(context.Background())
			require.NoError(t, err)

			var protected []int
			for _, call := range wiki.protected {
				var ahead int
				_, err := fmt.Sscanf(call.Title, "Article %d", &ahead)
				require.NoError(t, err)
				protected = append(protected, ahead)
			}
			require.Equal(t, test.protected, protected)

			last := results[len(results)-1]
			require.False(t, last.Day.After(today.AddDate(0, 0, 60)))
		})
	}
}

func TestRunPropagatesErrors(t *testing.T) {
	wiki := newFakeWiki()
	wiki.pages["Template:TFA title/February 29, 2024"] = "Zoo TV Tour"
	wiki.protectErr = fmt.Errorf("connection reset")

	service := newTestService(t, wiki, Options{})
	results, err := service.Run(context.Background())
	require.ErrorContains(t, err, "February 29, 2024")
	require.Len(t, results, 1)
}

func rangeOf(from, to int) []int {
	var out []int
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}
