package restyutil

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
)

// form fields that must never end up in a dump or a span
var secretFields = []string{"lgpassword", "password", "token", "lgtoken", "logintoken"}

func formatHeaders(headers http.Header) string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out strings.Builder
	for _, k := range keys {
		for _, v := range headers[k] {
			if strings.EqualFold(k, "Cookie") || strings.EqualFold(k, "Set-Cookie") {
				v = "<redacted>"
			}
			out.WriteString(fmt.Sprintf("%s: %s\n", k, v))
		}
	}
	return strings.TrimSuffix(out.String(), "\n")
}

// RequestBody renders the body of a sent request for debugging, with
// credentials and tokens redacted. Multipart bodies (file uploads) are
// omitted.
func RequestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}

	mediaType, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if strings.HasPrefix(mediaType, "multipart/") {
		return fmt.Sprintf("<%s body omitted>", mediaType)
	}

	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("failed to get request body: %s", err.Error())
	}
	// resty installs a GetBody that yields nil for bodiless requests
	if body == nil {
		return ""
	}
	defer body.Close()
	readBody, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("failed to read request body: %s", err.Error())
	}

	if mediaType != "application/x-www-form-urlencoded" {
		return string(readBody)
	}
	form, err := url.ParseQuery(string(readBody))
	if err != nil {
		return string(readBody)
	}
	return RedactValues(form).Encode()
}

// RedactValues returns a copy of values with secret fields replaced.
func RedactValues(values url.Values) url.Values {
	out := url.Values{}
	for k, vals := range values {
		out[k] = vals
		for _, secret := range secretFields {
			if k == secret {
				out[k] = []string{"<redacted>"}
				break
			}
		}
	}
	return out
}

// 1: request method
// 2: request url
// 3: request headers in ("Key: Value" format)
// 4: request body
// 5: response status
// 6: response url
// 7: response headers in ("Key: Value" format)
// 8: response body
const messageInfoTemplate = `---- REQUEST ----

%s %s

%s

%s

---- RESPONSE ----

%s %s

%s

%s`

func formatHttpMessage(res *resty.Response) string {
	requestHeaders := formatHeaders(res.Request.RawRequest.Header)
	responseHeaders := formatHeaders(res.Header())

	responseUrl := res.Request.URL
	if res.RawResponse != nil {
		redirected, err := res.RawResponse.Location()
		if err == nil {
			responseUrl = redirected.String()
		}
	}

	// empty for downloads, those are streamed to disk
	responseBody := res.String()

	return fmt.Sprintf(
		messageInfoTemplate,

		res.Request.Method, res.Request.URL,
		requestHeaders,
		RequestBody(res.Request.RawRequest),

		strconv.Itoa(res.StatusCode()), responseUrl,
		responseHeaders,
		responseBody,
	)
}
