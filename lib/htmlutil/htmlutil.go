package htmlutil

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/net/html"
)

var tracer = otel.Tracer("tfaprotbot.lib.htmlutil")

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

type Anchor struct {
	Name  string
	Href  string
	Title string
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

func GetAnchors(ctx context.Context, sel *goquery.Selection) []Anchor {
	ctx, span := tracer.Start(ctx, "GetAnchors")
	defer span.End()

	anchors := []Anchor{}
	for _, n := range sel.Nodes {
		href := ""
		title := ""
		for _, a := range n.Attr {
			switch a.Key {
			case "href":
				href = a.Val
			case "title":
				title = a.Val
			}
		}

		link, err := url.Parse(href)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "got error while parsing url")
			continue
		}

		name := GetText(n)
		name = removeNonPrintable(name)
		name = strings.Trim(name, " \t\n")
		name = innerWhitespace.ReplaceAllString(name, " ")

		linkStr := link.String()
		anchors = append(anchors, Anchor{
			Name:  name,
			Href:  linkStr,
			Title: title,
		})
		span.AddEvent("anchor", trace.WithAttributes(
			attribute.String("name", name),
			attribute.String("url", linkStr),
		))
	}

	return anchors
}

// PageTitle returns the wiki page an anchor points to. Links through
// index.php (red links to missing pages) carry it in the title query
// parameter, since their title attribute reads "Foo (page does not exist)".
func (a Anchor) PageTitle() string {
	link, err := url.Parse(a.Href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(link.Path, "/index.php") {
		return strings.ReplaceAll(link.Query().Get("title"), "_", " ")
	}
	if a.Title != "" {
		return a.Title
	}
	path, ok := strings.CutPrefix(link.Path, "/wiki/")
	if !ok {
		return ""
	}
	return strings.ReplaceAll(path, "_", " ")
}

// FirstBoldLink returns the first internal link nested inside a <b>
// element of a rendered page.
func FirstBoldLink(ctx context.Context, doc *goquery.Document) (Anchor, bool) {
	ctx, span := tracer.Start(ctx, "FirstBoldLink")
	defer span.End()

	var found Anchor
	ok := false
	doc.Find("b").EachWithBreak(func(_ int, bold *goquery.Selection) bool {
		for _, a := range GetAnchors(ctx, bold.Find("a[href]")) {
			if a.PageTitle() == "" {
				continue
			}
			found = a
			ok = true
			return false
		}
		return true
	})
	if !ok {
		span.SetStatus(codes.Error, "no bold link found")
	}
	return found, ok
}
