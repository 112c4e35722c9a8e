package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/high-horse/sourceafis"
	"github.com/high-horse/sourceafis/config"
	"github.com/high-horse/sourceafis/internal/geometry"
	"github.com/high-horse/sourceafis/templates"
)

func triangle() *templates.Template {
	return (&templates.Builder{}).
		Add(templates.Minutia{Position: geometry.Point{X: 100, Y: 100}, Direction: 0, Type: templates.Ending}).
		Add(templates.Minutia{Position: geometry.Point{X: 180, Y: 130}, Direction: 1.2, Type: templates.Bifurcation}).
		Add(templates.Minutia{Position: geometry.Point{X: 130, Y: 220}, Direction: 2.5, Type: templates.Ending}).
		MustBuild()
}

func scattered() *templates.Template {
	return (&templates.Builder{}).
		Add(templates.Minutia{Position: geometry.Point{X: 100, Y: 100}, Direction: 0.3}).
		Add(templates.Minutia{Position: geometry.Point{X: 500, Y: 120}, Direction: 1.7}).
		Add(templates.Minutia{Position: geometry.Point{X: 260, Y: 520}, Direction: 4.1}).
		MustBuild()
}

func encode(t *testing.T, tpl *templates.Template) string {
	t.Helper()
	data, err := templates.ExportCompact(tpl)
	require.NoError(t, err)
	return base64.StdEncoding.EncodeToString(data)
}

func payload(t *testing.T, tpls ...*templates.Template) PersonPayload {
	var p PersonPayload
	for _, tpl := range tpls {
		p.Fingerprints = append(p.Fingerprints, FingerprintPayload{Template: encode(t, tpl)})
	}
	return p
}

func newTestApp(t *testing.T) (*fiber.App, *Gallery) {
	t.Helper()
	engine, err := sourceafis.NewEngine(sourceafis.WithParameters(config.Default()))
	require.NoError(t, err)
	gallery := NewGallery()
	return newServer(engine, gallery, NewMetrics(), zerolog.Nop(), 1<<20), gallery
}

func do(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)
	resp := do(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]any](t, resp)
	assert.Equal(t, "ok", body["status"])
}

func TestVerifyEndpoint(t *testing.T) {
	app, _ := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/verify", VerifyRequest{
		Probe:     payload(t, triangle()),
		Candidate: payload(t, triangle()),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	match := decode[VerifyResponse](t, resp)
	assert.True(t, match.Match)
	assert.Greater(t, match.Score, 12.0)

	resp = do(t, app, http.MethodPost, "/verify", VerifyRequest{
		Probe:     payload(t, triangle()),
		Candidate: payload(t, scattered()),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	miss := decode[VerifyResponse](t, resp)
	assert.False(t, miss.Match)
	assert.Equal(t, 0.0, miss.Score)
}

func TestVerifyAcceptsCborDataURL(t *testing.T) {
	app, _ := newTestApp(t)
	data, err := triangle().MarshalCBOR()
	require.NoError(t, err)
	url := "data:application/cbor;base64," + base64.StdEncoding.EncodeToString(data)

	resp := do(t, app, http.MethodPost, "/verify", VerifyRequest{
		Probe:     PersonPayload{Fingerprints: []FingerprintPayload{{Finger: "right-index", Template: url}}},
		Candidate: payload(t, triangle()),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[VerifyResponse](t, resp).Match)
}

func TestVerifyRejectsBadInput(t *testing.T) {
	app, _ := newTestApp(t)
	tests := []struct {
		name string
		req  VerifyRequest
		want int
	}{
		{
			name: "bad base64",
			req:  VerifyRequest{Probe: PersonPayload{Fingerprints: []FingerprintPayload{{Template: "%%%"}}}},
			want: http.StatusBadRequest,
		},
		{
			name: "not a template",
			req: VerifyRequest{Probe: PersonPayload{Fingerprints: []FingerprintPayload{
				{Template: base64.StdEncoding.EncodeToString([]byte("hello"))},
			}}},
			want: http.StatusBadRequest,
		},
		{
			name: "unknown finger",
			req: VerifyRequest{Probe: PersonPayload{Fingerprints: []FingerprintPayload{
				{Finger: "toe", Template: encode(t, triangle())},
			}}},
			want: http.StatusBadRequest,
		},
		{
			name: "empty fingerprint",
			req:  VerifyRequest{Probe: PersonPayload{Fingerprints: []FingerprintPayload{{}}}},
			want: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, app, http.MethodPost, "/verify", tt.req)
			assert.Equal(t, tt.want, resp.StatusCode)
			assert.NotEmpty(t, decode[ErrorResponse](t, resp).Error)
		})
	}
}

func TestImagesNeedExtractor(t *testing.T) {
	app, _ := newTestApp(t)
	pgm := base64.StdEncoding.EncodeToString([]byte("P5\n2 2\n255\n\x00\x40\x80\xff"))
	resp := do(t, app, http.MethodPost, "/verify", VerifyRequest{
		Probe:     PersonPayload{Fingerprints: []FingerprintPayload{{Image: pgm}}},
		Candidate: payload(t, triangle()),
	})
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestIdentifyEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	resp := do(t, app, http.MethodPost, "/identify", IdentifyRequest{
		Probe: payload(t, triangle()),
		Candidates: []PersonPayload{
			payload(t, scattered()),
			payload(t, triangle()),
			payload(t, templates.Empty),
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[IdentifyResponse](t, resp)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, 1, got.Matches[0].Index)
	assert.Empty(t, got.Matches[0].ID)
}

func TestGalleryLifecycle(t *testing.T) {
	app, gallery := newTestApp(t)

	resp := do(t, app, http.MethodPost, "/persons", payload(t, scattered()))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	first := decode[EnrollResponse](t, resp).ID

	resp = do(t, app, http.MethodPost, "/persons", payload(t, triangle()))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	second := decode[EnrollResponse](t, resp).ID
	assert.Equal(t, 2, gallery.Len())

	resp = do(t, app, http.MethodPost, "/gallery/identify", payload(t, triangle()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[IdentifyResponse](t, resp)
	require.Len(t, got.Matches, 1)
	assert.Equal(t, second, got.Matches[0].ID)
	assert.Equal(t, 1, got.Matches[0].Index)

	resp = do(t, app, http.MethodDelete, "/persons/"+second, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = do(t, app, http.MethodDelete, "/persons/"+second, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = do(t, app, http.MethodDelete, "/persons/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, app, http.MethodPost, "/gallery/identify", payload(t, triangle()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[IdentifyResponse](t, resp).Matches)

	ids, _ := gallery.Snapshot()
	require.Len(t, ids, 1)
	assert.Equal(t, first, ids[0].String())

	resp = do(t, app, http.MethodPost, "/persons", PersonPayload{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t)
	do(t, app, http.MethodPost, "/verify", VerifyRequest{
		Probe:     payload(t, triangle()),
		Candidate: payload(t, triangle()),
	})

	resp := do(t, app, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `afis_comparisons_total{operation="verify",result="match"} 1`))
}
