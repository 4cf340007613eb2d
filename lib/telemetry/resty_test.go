package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttribute(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, attr := range span.Attributes() {
		if attr.Key == attribute.Key(key) {
			return attr.Value.AsString(), true
		}
	}
	return "", false
}

func TestInstrumentResty(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	otel.SetTracerProvider(provider)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		w.Write([]byte(`{"batchcomplete":true}`))
	}))
	t.Cleanup(server.Close)

	client := resty.New()
	InstrumentResty(client, "tfaprotbot.lib.telemetry.test")
	ctx := context.Background()

	res, err := client.R().
		SetContext(ctx).
		SetQueryParam("action", "query").
		Get(server.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode())

	_, err = client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"action":     "login",
			"lgname":     "Example Bot",
			"lgpassword": "hunter2",
		}).
		Post(server.URL)
	require.NoError(t, err)

	res, err = client.R().
		SetContext(ctx).
		SetQueryParam("fail", "1").
		Get(server.URL)
	require.NoError(t, err)
	require.True(t, res.IsError())

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	require.Equal(t, "http GET", spans[0].Name())
	body, ok := spanAttribute(spans[0], "request/body")
	require.True(t, ok)
	require.Equal(t, "", body)
	body, _ = spanAttribute(spans[0], "response/body")
	require.Equal(t, `{"batchcomplete":true}`, body)

	require.Equal(t, "http POST", spans[1].Name())
	body, _ = spanAttribute(spans[1], "request/body")
	require.Contains(t, body, "lgname=Example+Bot")
	require.NotContains(t, body, "hunter2")

	require.Equal(t, "http GET", spans[2].Name())
	require.Equal(t, codes.Error, spans[2].Status().Code)
}
