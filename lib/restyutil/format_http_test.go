package restyutil

import (
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestBody(t *testing.T) {
	form := url.Values{
		"action":     {"login"},
		"lgname":     {"Example Bot"},
		"lgpassword": {"hunter2"},
		"lgtoken":    {"abc+\\"},
	}
	req, err := http.NewRequest(http.MethodPost, "https://example.org/w/api.php", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body := RequestBody(req)
	parsed, err := url.ParseQuery(body)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "Example Bot", parsed.Get("lgname"))
	require.Equal(t, "<redacted>", parsed.Get("lgpassword"))
	require.Equal(t, "<redacted>", parsed.Get("lgtoken"))
	require.NotContains(t, body, "hunter2")
}

func TestRequestBodyWithoutBody(t *testing.T) {
	req, err := http.NewRequest(http.MethodGet, "https://example.org/w/api.php?action=query", nil)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, "", RequestBody(req))
	require.Equal(t, "", RequestBody(nil))

	// what resty sets on requests it sends without a body
	req.GetBody = func() (io.ReadCloser, error) {
		return nil, nil
	}
	require.Equal(t, "", RequestBody(req))
}

func TestRequestBodyMultipart(t *testing.T) {
	req, err := http.NewRequest(http.MethodPost, "https://example.org/w/api.php", strings.NewReader("--x\r\n..."))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	require.Equal(t, "<multipart/form-data body omitted>", RequestBody(req))
}
