package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gotest.tools/assert"

	"linkview/internal/brush"
	"linkview/internal/dataset"
	"linkview/internal/engine"
	"linkview/internal/models"
	"linkview/internal/scale"
	"linkview/internal/selection"
	"linkview/internal/view"
)

const bikes = `RentedBikeCount,Temperature,Humidity,Seasons
254,-5.2,37,Winter
1800,24.1,55,Summer
1650,21.3,60,Summer
900,12.0,48,Spring
700,8.4,40,Autumn
`

type fixture struct {
	e   *echo.Echo
	eng *engine.Engine
	hub *Hub
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

func newFixture(t *testing.T, opt Options, load bool) *fixture {
	t.Helper()
	log := quietLogger()
	reg := prometheus.NewRegistry()
	eng := engine.New(engine.Options{
		Encodings: map[string]selection.Encoding{
			view.ScatterplotName: {X: "Temperature", Y: "Humidity"},
			view.HistogramName:   {X: "RentedBikeCount"},
		},
		Metrics: engine.NewMetrics(reg),
	}, log, view.NewScatterplot(view.ScatterFrame), view.NewHistogram(view.HistogramFrame, 4))
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go eng.Run(ctx)

	hub := NewHub(log)
	t.Cleanup(hub.Close)
	_, err := eng.Subscribe(ctx, hub.Publish)
	assert.NilError(t, err)

	if load {
		ds, err := dataset.Parse(ctx, strings.NewReader(bikes), dataset.Options{}, log)
		assert.NilError(t, err)
		assert.NilError(t, eng.Load(ctx, ds))
	}

	if opt.Metrics == nil {
		opt.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	NewHandler(eng, hub, log, opt).RegisterRoutes(e)
	return &fixture{e: e, eng: eng, hub: hub}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

// temperatureBrush is a brush body covering Temperature in [lo, hi].
func (f *fixture) temperatureBrush(t *testing.T, lo, hi float64) string {
	t.Helper()
	var body string
	err := f.eng.Inspect(context.Background(), view.ScatterplotName, func(v view.View) {
		xs, _ := v.(*view.Scatterplot).Scales()
		x := xs.(*scale.Linear)
		out, _ := json.Marshal(models.BrushRequest{
			Phase:  brush.End,
			Region: &brush.Region{X0: x.Map(lo), Y0: 0, X1: x.Map(hi), Y1: view.ScatterFrame.PlotHeight()},
		})
		body = string(out)
	})
	assert.NilError(t, err)
	return body
}

func TestNotReady(t *testing.T) {
	f := newFixture(t, Options{}, false)

	rec := f.do(t, http.MethodGet, "/api/attributes", "")
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)

	rec = f.do(t, http.MethodGet, "/api/views/histogram/svg", "")
	assert.Equal(t, rec.Code, http.StatusServiceUnavailable)

	rec = f.do(t, http.MethodGet, "/api/state", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, !decode[models.StateResponse](t, rec).Ready)
}

func TestAttributes(t *testing.T) {
	f := newFixture(t, Options{}, true)

	rec := f.do(t, http.MethodGet, "/api/attributes", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	attrs := decode[models.AttributesResponse](t, rec)
	assert.DeepEqual(t, attrs.Numerical, []string{"RentedBikeCount", "Temperature", "Humidity"})
	assert.DeepEqual(t, attrs.Categorical, []string{"Seasons"})
}

func TestBrushAndSelection(t *testing.T) {
	f := newFixture(t, Options{}, true)

	rec := f.do(t, http.MethodPost, "/api/views/scatterplot/brush", f.temperatureBrush(t, 20, 25))
	assert.Equal(t, rec.Code, http.StatusAccepted)
	assert.Equal(t, decode[models.StateResponse](t, rec).Selected, 2)

	rec = f.do(t, http.MethodGet, "/api/selection?limit=1&offset=1", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	page := decode[models.SelectionPage](t, rec)
	assert.Equal(t, page.Total, 2)
	assert.Equal(t, len(page.Data), 1)
	assert.Equal(t, page.Data[0].ID, 2)

	rec = f.do(t, http.MethodGet, "/api/selection?limit=9223372036854775807&offset=1", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	page = decode[models.SelectionPage](t, rec)
	assert.Equal(t, page.Limit, maxPageSize)
	assert.Equal(t, len(page.Data), 1)

	rec = f.do(t, http.MethodGet, "/api/summary?scope=selection", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	sum := decode[models.SummaryResponse](t, rec)
	assert.Equal(t, sum.Scope, "selection")
	assert.Equal(t, sum.Attributes[0].Count, 2)

	rec = f.do(t, http.MethodPost, "/api/selection/clear", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, decode[models.StateResponse](t, rec).Selected, 0)
}

func TestErrorStatus(t *testing.T) {
	f := newFixture(t, Options{}, true)

	cases := []struct {
		name, method, target, body string
		want                       int
	}{
		{"unknown view", http.MethodPost, "/api/views/heatmap/brush", `{"phase":"cancel"}`, http.StatusNotFound},
		{"bad phase", http.MethodPost, "/api/views/scatterplot/brush", `{"phase":"drag"}`, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/views/scatterplot/brush", `{"phase":`, http.StatusBadRequest},
		{"unknown attribute", http.MethodPut, "/api/views/histogram/encoding", `{"axis":"x","attribute":"Rainfall"}`, http.StatusBadRequest},
		{"unknown axis", http.MethodPut, "/api/views/histogram/encoding", `{"axis":"z","attribute":"Seasons"}`, http.StatusBadRequest},
		{"bad scope", http.MethodGet, "/api/summary?scope=some", "", http.StatusBadRequest},
		{"unknown svg", http.MethodGet, "/api/views/heatmap/svg", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := f.do(t, tc.method, tc.target, tc.body)
			assert.Equal(t, rec.Code, tc.want, rec.Body.String())
		})
	}
}

func TestSetEncodingAndSVG(t *testing.T) {
	f := newFixture(t, Options{}, true)

	rec := f.do(t, http.MethodPut, "/api/views/histogram/encoding", `{"axis":"x","attribute":"Seasons"}`)
	assert.Equal(t, rec.Code, http.StatusOK)
	st := decode[models.StateResponse](t, rec)
	assert.Equal(t, st.Encodings[view.HistogramName].X, "Seasons")

	rec = f.do(t, http.MethodGet, "/api/views/histogram/svg", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Equal(t, rec.Header().Get(echo.HeaderContentType), "image/svg+xml")
	assert.Equal(t, strings.Count(rec.Body.String(), `class="bar"`), 4)
}

func TestBrushRateLimit(t *testing.T) {
	f := newFixture(t, Options{BrushRate: 1}, true)

	rec := f.do(t, http.MethodPost, "/api/views/scatterplot/brush", `{"phase":"cancel"}`)
	assert.Equal(t, rec.Code, http.StatusAccepted)
	rec = f.do(t, http.MethodPost, "/api/views/scatterplot/brush", `{"phase":"cancel"}`)
	assert.Equal(t, rec.Code, http.StatusTooManyRequests)

	// Other routes are not limited.
	rec = f.do(t, http.MethodGet, "/api/state", "")
	assert.Equal(t, rec.Code, http.StatusOK)
}

func TestMetrics(t *testing.T) {
	f := newFixture(t, Options{}, true)
	f.do(t, http.MethodPost, "/api/views/histogram/brush", `{"phase":"cancel"}`)

	rec := f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, rec.Code, http.StatusOK)
	assert.Assert(t, strings.Contains(rec.Body.String(), "linkview_selection_commits_total 1"))
	assert.Assert(t, strings.Contains(rec.Body.String(), `linkview_gestures_total{phase="cancel",view="histogram"} 1`))
}

func TestStream(t *testing.T) {
	f := newFixture(t, Options{}, true)
	srv := httptest.NewServer(f.e)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	assert.NilError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first models.StateEvent
	assert.NilError(t, conn.ReadJSON(&first))
	assert.Equal(t, first.Type, "state")
	assert.Equal(t, f.hub.Clients(), 1)

	assert.NilError(t, f.eng.SetSelection(context.Background(), selection.NewSet(0, 1, 2)))

	var next models.StateEvent
	assert.NilError(t, conn.ReadJSON(&next))
	assert.Equal(t, next.Version, first.Version+1)
	assert.Equal(t, next.Selected, 3)
}
