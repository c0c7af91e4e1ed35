package lookup

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.0xdad.com/tblyler/medilens/medicine"
	"git.0xdad.com/tblyler/medilens/metrics"
)

const lipitorJSON = `{
	"name": "Lipitor",
	"brandName": "Lipitor",
	"genericName": "Atorvastatin",
	"activeIngredients": ["atorvastatin calcium"],
	"indications": "High cholesterol",
	"dosageInstructions": "Take 1 tablet at 20:00 daily.",
	"sideEffects": ["muscle pain", "headache"],
	"genericAlternatives": [{"name": "Atorvastatin", "priceRange": "$10 - $25"}],
	"fdaStatus": "Approved"
}`

type fakeGemini struct {
	t        *testing.T
	status   int
	text     string
	raw      string
	finish   string
	hits     atomic.Int32
	lastBody generateRequest
	lastPath string
	lastKey  string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.hits.Add(1)
	f.lastPath = r.URL.Path
	f.lastKey = r.Header.Get("x-goog-api-key")
	f.lastBody = generateRequest{}
	assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.lastBody))

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if f.raw != "" {
		_, _ = w.Write([]byte(f.raw))
		return
	}

	finish := f.finish
	if finish == "" {
		finish = "STOP"
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"candidates": []any{
			map[string]any{
				"content":      map[string]any{"parts": []any{map[string]any{"text": f.text}}},
				"finishReason": finish,
			},
		},
	})
}

func newTestClient(t *testing.T, fake *fakeGemini, m *metrics.Metrics) *Client {
	t.Helper()

	fake.t = t
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return New(Config{APIKey: "test-key", Model: "gemini-test", BaseURL: srv.URL + "/", Grounding: true, FailureThreshold: 3}, nil, m)
}

func TestLookupByImage(t *testing.T) {
	fake := &fakeGemini{text: lipitorJSON}
	c := newTestClient(t, fake, nil)

	rec, err := c.LookupByImage(context.Background(), []byte("jpeg bytes"), "")
	require.NoError(t, err)

	assert.Equal(t, "Lipitor", rec.Name)
	assert.Equal(t, []string{"atorvastatin calcium"}, rec.ActiveIngredients)
	assert.Equal(t, []medicine.GenericAlternative{{Name: "Atorvastatin", PriceRange: "$10 - $25"}}, rec.GenericAlternatives)

	assert.Equal(t, "/models/gemini-test:generateContent", fake.lastPath)
	assert.Equal(t, "test-key", fake.lastKey)

	parts := fake.lastBody.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, DefaultImageMimeType, parts[0].InlineData.MimeType)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg bytes")), parts[0].InlineData.Data)
	assert.Contains(t, parts[1].Text, "medicine label")

	require.NotNil(t, fake.lastBody.GenerationConfig)
	assert.Equal(t, "application/json", fake.lastBody.GenerationConfig.ResponseMimeType)
	assert.ElementsMatch(t, requiredFields, fake.lastBody.GenerationConfig.ResponseSchema.Required)
	require.Len(t, fake.lastBody.Tools, 1)
	assert.NotNil(t, fake.lastBody.Tools[0].GoogleSearch)
}

func TestLookupByName(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	fake := &fakeGemini{text: "```json\n" + lipitorJSON + "\n```"}
	c := newTestClient(t, fake, m)

	rec, err := c.LookupByName(context.Background(), "  Lipitor ")
	require.NoError(t, err)
	assert.Equal(t, "Atorvastatin", rec.GenericName)
	assert.Contains(t, fake.lastBody.Contents[0].Parts[0].Text, "for the drug: Lipitor.")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Lookups.WithLabelValues(metrics.KindName, "success")))

	_, err = c.LookupByName(context.Background(), "   ")
	require.ErrorIs(t, err, ErrLookup)
	assert.Equal(t, int32(1), fake.hits.Load())
}

func TestLookupFailures(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeGemini
	}{
		{name: "server error", fake: &fakeGemini{status: http.StatusInternalServerError}},
		{name: "missing field", fake: &fakeGemini{text: strings.Replace(lipitorJSON, `"fdaStatus": "Approved"`, `"other": 1`, 1)}},
		{name: "null field", fake: &fakeGemini{text: strings.Replace(lipitorJSON, `["muscle pain", "headache"]`, `null`, 1)}},
		{name: "alternative without price", fake: &fakeGemini{text: strings.Replace(lipitorJSON, `, "priceRange": "$10 - $25"`, ``, 1)}},
		{name: "empty object", fake: &fakeGemini{text: `{}`}},
		{name: "refusal text", fake: &fakeGemini{text: "I cannot identify this medicine."}},
		{name: "blocked", fake: &fakeGemini{raw: `{"promptFeedback":{"blockReason":"SAFETY"}}`}},
		{name: "no candidates", fake: &fakeGemini{raw: `{"candidates":[]}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.fake, nil)

			rec, err := c.LookupByName(context.Background(), "Advil")
			require.ErrorIs(t, err, ErrLookup)
			assert.Nil(t, rec)
		})
	}
}

func TestLookupRepairsJSON(t *testing.T) {
	broken := strings.Replace(lipitorJSON, `"fdaStatus": "Approved"`, `"fdaStatus": "Approved",`, 1)
	fake := &fakeGemini{text: broken}
	c := newTestClient(t, fake, nil)

	rec, err := c.LookupByName(context.Background(), "Lipitor")
	require.NoError(t, err)
	assert.Equal(t, "Approved", rec.FDAStatus)
}

func TestLookupRejectsCutOffAnswer(t *testing.T) {
	truncated := lipitorJSON[:strings.Index(lipitorJSON, `"headache"]`)] + `"head`

	for _, finish := range []string{"MAX_TOKENS", "SAFETY", "RECITATION"} {
		t.Run(finish, func(t *testing.T) {
			fake := &fakeGemini{text: truncated, finish: finish}
			c := newTestClient(t, fake, nil)

			rec, err := c.LookupByName(context.Background(), "Lipitor")
			require.ErrorIs(t, err, ErrLookup)
			assert.Nil(t, rec)
			assert.Contains(t, err.Error(), finish)
		})
	}

	fake := &fakeGemini{text: "Tome 1 tableta", finish: "MAX_TOKENS"}
	c := newTestClient(t, fake, nil)

	_, err := c.Translate(context.Background(), &medicine.Record{Name: "Lipitor"}, "Spanish")
	require.ErrorIs(t, err, ErrTranslation)
}

func TestLookupEmptyImage(t *testing.T) {
	fake := &fakeGemini{text: lipitorJSON}
	c := newTestClient(t, fake, nil)

	_, err := c.LookupByImage(context.Background(), nil, "image/png")
	require.ErrorIs(t, err, ErrLookup)
	assert.Equal(t, int32(0), fake.hits.Load())
}

func TestTranslate(t *testing.T) {
	fake := &fakeGemini{text: "  Tome 1 tableta a las 20:00.  "}
	c := newTestClient(t, fake, nil)

	rec := &medicine.Record{
		Name:               "Lipitor",
		DosageInstructions: "Take 1 tablet at 20:00 daily.",
		Indications:        "High cholesterol",
		SideEffects:        []string{"muscle pain", "headache"},
	}

	text, err := c.Translate(context.Background(), rec, "Spanish")
	require.NoError(t, err)
	assert.Equal(t, "Tome 1 tableta a las 20:00.", text)

	prompt := fake.lastBody.Contents[0].Parts[0].Text
	assert.Contains(t, prompt, "into Spanish")
	assert.Contains(t, prompt, "Side Effects: muscle pain, headache")
	assert.Nil(t, fake.lastBody.GenerationConfig)
	assert.Empty(t, fake.lastBody.Tools)
}

func TestTranslateFailures(t *testing.T) {
	rec := &medicine.Record{Name: "Lipitor"}

	c := newTestClient(t, &fakeGemini{text: "   "}, nil)
	_, err := c.Translate(context.Background(), rec, "French")
	require.ErrorIs(t, err, ErrTranslation)

	c = newTestClient(t, &fakeGemini{status: http.StatusBadGateway}, nil)
	_, err = c.Translate(context.Background(), rec, "French")
	require.ErrorIs(t, err, ErrTranslation)

	_, err = c.Translate(context.Background(), nil, "French")
	require.ErrorIs(t, err, ErrTranslation)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	fake := &fakeGemini{status: http.StatusServiceUnavailable}
	c := newTestClient(t, fake, nil)

	for i := 0; i < 5; i++ {
		_, err := c.LookupByName(context.Background(), "Advil")
		require.ErrorIs(t, err, ErrLookup)
	}

	assert.Equal(t, int32(3), fake.hits.Load())
}

func TestBreakerIgnoresCancelledCallers(t *testing.T) {
	fake := &fakeGemini{text: lipitorJSON}
	c := newTestClient(t, fake, nil)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	for i := 0; i < 5; i++ {
		_, err := c.LookupByName(cancelled, "Lipitor")
		require.ErrorIs(t, err, ErrLookup)
		require.ErrorIs(t, err, context.Canceled)
	}

	rec, err := c.LookupByName(context.Background(), "Lipitor")
	require.NoError(t, err)
	assert.Equal(t, "Lipitor", rec.Name)
	assert.Equal(t, int32(1), fake.hits.Load())
}

func TestBreakerIgnoresRejectedRequests(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeGemini
	}{
		{name: "bad request", fake: &fakeGemini{status: http.StatusBadRequest}},
		{name: "cut off", fake: &fakeGemini{text: `{"name": "Lip`, finish: "MAX_TOKENS"}},
		{name: "blocked", fake: &fakeGemini{raw: `{"promptFeedback":{"blockReason":"SAFETY"}}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, tt.fake, nil)

			for i := 0; i < 5; i++ {
				_, err := c.LookupByName(context.Background(), "Advil")
				require.ErrorIs(t, err, ErrLookup)
			}

			assert.Equal(t, int32(5), tt.fake.hits.Load())
		})
	}
}

func TestClientError(t *testing.T) {
	assert.True(t, clientError(http.StatusBadRequest))
	assert.True(t, clientError(http.StatusForbidden))
	assert.False(t, clientError(http.StatusTooManyRequests))
	assert.False(t, clientError(http.StatusRequestTimeout))
	assert.False(t, clientError(http.StatusInternalServerError))
}
