package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mnistd/internal/blobstore"
	"mnistd/internal/classifier"
	"mnistd/internal/manager"
	"mnistd/internal/model"
	"mnistd/internal/routing"
	"mnistd/internal/tensor"
	"mnistd/pkg/types"
)

type mockService struct {
	mu           sync.Mutex
	calls        int
	lastIdentity string
	lastRaw      []float32
	err          error
	warmErr      error
	unloadErr    error
	ready        bool
}

func (m *mockService) record(identity string, raw []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastIdentity = identity
	m.lastRaw = append([]float32(nil), raw...)
	return m.err
}

func uniform() classifier.Probabilities {
	p := make(classifier.Probabilities, model.NumClasses)
	for i := range p {
		p[i] = 0.1
	}
	return p
}

func (m *mockService) Classify(ctx context.Context, identity string, raw []float32) (classifier.Probabilities, error) {
	if err := m.record(identity, raw); err != nil {
		return nil, err
	}
	return uniform(), nil
}

func (m *mockService) Decide(ctx context.Context, identity string, raw []float32) (classifier.Decision, error) {
	if err := m.record(identity, raw); err != nil {
		return classifier.Decision{}, err
	}
	return classifier.Decision{Class: 3, Probabilities: uniform()}, nil
}

func (m *mockService) Warm(ctx context.Context, identity string) error {
	m.record(identity, nil)
	return m.warmErr
}

func (m *mockService) Unload(identity string) error { return m.unloadErr }

func (m *mockService) Status() types.StatusResponse {
	return types.StatusResponse{State: "ready", Actors: []types.ActorStatus{{Identity: "global", State: "ready"}}}
}

func (m *mockService) Ready() bool { return m.ready }

func pixelBody(n int) *bytes.Buffer {
	raw := make([]float32, n)
	for i := range raw {
		raw[i] = float32(i % 256)
	}
	b, _ := json.Marshal(raw)
	return bytes.NewBuffer(b)
}

func postJSON(h http.Handler, path string, body *bytes.Buffer, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestClassify_OK(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, routing.FixedResolver{ID: "solo"}, nil)

	w := postJSON(h, "/classify", pixelBody(tensor.Pixels), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var probs []float32
	if err := json.Unmarshal(w.Body.Bytes(), &probs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(probs) != model.NumClasses {
		t.Fatalf("expected 10 probabilities, got %v", probs)
	}
	if svc.lastIdentity != "solo" || len(svc.lastRaw) != tensor.Pixels || svc.lastRaw[5] != 5 {
		t.Fatalf("unexpected call: identity=%q len=%d", svc.lastIdentity, len(svc.lastRaw))
	}
}

func TestClassify_AnyPrefixAndMissingContentType(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v2/classify", pixelBody(tensor.Pixels))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK || svc.lastIdentity != routing.DefaultIdentity {
		t.Fatalf("expected 200 for default identity, got %d identity=%q", w.Code, svc.lastIdentity)
	}
}

func TestClassify_GeoIdentity(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, routing.GeoResolver{}, nil)

	w := postJSON(h, "/classify", pixelBody(tensor.Pixels), map[string]string{routing.DefaultGeoHeader: "EU"})
	if w.Code != http.StatusOK || svc.lastIdentity != "EU" {
		t.Fatalf("expected EU actor, got %d identity=%q", w.Code, svc.lastIdentity)
	}
}

func TestClassify_MissingGeoMetadataIsServerError(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, routing.GeoResolver{}, nil)

	w := postJSON(h, "/classify", pixelBody(tensor.Pixels), nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("request must not reach an actor")
	}
	var er types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &er); err != nil || er.Code != 500 || !strings.Contains(er.Error, "routing metadata") {
		t.Fatalf("unexpected error body %q", w.Body.String())
	}
}

func TestClassify_MalformedInputNoLoad(t *testing.T) {
	mem := blobstore.NewMemoryStore()
	store := &countingStore{inner: mem}
	mgr, err := manager.New(manager.Config{Store: store})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	defer mgr.Close()
	h := NewMux(mgr, routing.FixedResolver{}, nil)

	w := postJSON(h, "/classify", pixelBody(783), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if store.gets != 0 {
		t.Fatalf("malformed input must not load weights")
	}
	if len(mgr.Status().Actors) != 0 {
		t.Fatalf("malformed input must not create an actor")
	}
}

func TestClassify_ModelUnavailableMaps503(t *testing.T) {
	mgr, err := manager.New(manager.Config{Store: blobstore.NewMemoryStore()})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	defer mgr.Close()
	h := NewMux(mgr, routing.FixedResolver{}, nil)

	w := postJSON(h, "/classify", pixelBody(tensor.Pixels), nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", w.Code, w.Body.String())
	}
}

func TestClassify_RealManagerEndToEnd(t *testing.T) {
	n, err := model.NewRandom(model.PrecisionFloat32, 1, 32)
	if err != nil {
		t.Fatalf("random: %v", err)
	}
	blob, err := model.Encode(n)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	mem := blobstore.NewMemoryStore()
	_ = mem.Put(context.Background(), "mnist.bin", blob)
	mgr, err := manager.New(manager.Config{Store: mem})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	defer mgr.Close()
	h := NewMux(mgr, routing.FixedResolver{}, nil)

	w := postJSON(h, "/decide", pixelBody(tensor.Pixels), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var d types.DecisionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.Class < 0 || d.Class > 9 || len(d.Probabilities) != 10 {
		t.Fatalf("unexpected decision %+v", d)
	}
}

func TestClassify_BadBodies(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil, nil)

	if w := postJSON(h, "/classify", bytes.NewBufferString(`{"x":1}`), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("object body: expected 400, got %d", w.Code)
	}
	if w := postJSON(h, "/classify", bytes.NewBufferString(`["a"]`), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("strings: expected 400, got %d", w.Code)
	}
	if w := postJSON(h, "/classify", bytes.NewBufferString(`[] []`), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("trailing data: expected 400, got %d", w.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/classify", pixelBody(tensor.Pixels))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("text/plain: expected 415, got %d", w.Code)
	}
	if svc.calls != 0 {
		t.Fatalf("bad bodies must not reach the service")
	}
}

func TestClassify_WideValues(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil, nil)

	vals := make([]string, tensor.Pixels)
	for i := range vals {
		vals[i] = "0"
	}
	vals[5] = "1e30"
	body := "[" + strings.Join(vals, ",") + "]"
	if w := postJSON(h, "/classify", bytes.NewBufferString(body), nil); w.Code != http.StatusOK {
		t.Fatalf("large float32 value: expected 200, got %d %s", w.Code, w.Body.String())
	}
	wide := 1e30
	if svc.lastRaw[5] != float32(wide) {
		t.Fatalf("value not passed through: %v", svc.lastRaw[5])
	}

	vals[5] = "-1e39"
	body = "[" + strings.Join(vals, ",") + "]"
	w := postJSON(h, "/classify", bytes.NewBufferString(body), nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "float32 range") {
		t.Fatalf("out of range value: expected 400, got %d %s", w.Code, w.Body.String())
	}
	if svc.calls != 1 {
		t.Fatalf("out of range input must not reach the service, calls=%d", svc.calls)
	}
}

func TestClassify_BodyTooLarge(t *testing.T) {
	SetMaxBodyBytes(64)
	defer SetMaxBodyBytes(0)
	h := NewMux(&mockService{}, nil, nil)
	if w := postJSON(h, "/classify", pixelBody(tensor.Pixels), nil); w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}
}

func TestDecide_OK(t *testing.T) {
	h := NewMux(&mockService{}, nil, nil)
	w := postJSON(h, "/decide", pixelBody(tensor.Pixels), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var d types.DecisionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &d); err != nil || d.Class != 3 || len(d.Probabilities) != 10 {
		t.Fatalf("unexpected decision %s", w.Body.String())
	}
}

func pngUpload(t *testing.T, path string) *http.Request {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, tensor.Width, tensor.Height))
	img.SetGray(7, 3, color.Gray{Y: 255})
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "digit.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if err := png.Encode(fw, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestClassifyImage(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, pngUpload(t, "/classify/image"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(svc.lastRaw) != tensor.Pixels {
		t.Fatalf("expected %d pixels, got %d", tensor.Pixels, len(svc.lastRaw))
	}
	if svc.lastRaw[3*tensor.Width+7] < 200 || svc.lastRaw[0] > 50 {
		t.Fatalf("unexpected pixels: bright=%v dark=%v", svc.lastRaw[3*tensor.Width+7], svc.lastRaw[0])
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, pngUpload(t, "/classify/image?invert=true"))
	if w.Code != http.StatusOK || svc.lastRaw[0] < 200 {
		t.Fatalf("invert: status %d first pixel %v", w.Code, svc.lastRaw[0])
	}
}

func TestClassifyImage_Rejects(t *testing.T) {
	h := NewMux(&mockService{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/classify/image", pixelBody(tensor.Pixels))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("json to image route: expected 415, got %d", w.Code)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("image", "x.png")
	_, _ = fw.Write([]byte("not an image"))
	_ = mw.Close()
	req = httptest.NewRequest(http.MethodPost, "/classify/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("garbage image: expected 400, got %d", w.Code)
	}
}

func TestServiceErrorsMapped(t *testing.T) {
	svc := &mockService{err: errors.New("boom")}
	h := NewMux(svc, nil, nil)
	if w := postJSON(h, "/classify", pixelBody(tensor.Pixels), nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	svc.err = manager.ErrClosed
	if w := postJSON(h, "/classify", pixelBody(tensor.Pixels), nil); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when closed, got %d", w.Code)
	}
}

func TestAssetsFallback(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>draw a digit</h1>"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	svc := &mockService{}
	h := NewMux(svc, nil, AssetsHandler(dir))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/index.html", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "draw a digit") {
		t.Fatalf("expected asset, got %d %q", w.Code, w.Body.String())
	}

	// GET on a classification path is an asset request
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/classify", nil))
	if w.Code != http.StatusNotFound || svc.calls != 0 {
		t.Fatalf("expected asset 404, got %d calls=%d", w.Code, svc.calls)
	}
}

func TestAssetsUnset(t *testing.T) {
	h := NewMux(&mockService{}, nil, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHealthAndReady(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz not ready: %d", w.Code)
	}
	svc.ready = true
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ready" {
		t.Fatalf("readyz: %d %q", w.Code, w.Body.String())
	}
}

func TestStatus(t *testing.T) {
	h := NewMux(&mockService{}, nil, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status: %d", w.Code)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil || len(st.Actors) != 1 {
		t.Fatalf("unexpected status body %q", w.Body.String())
	}
}

func TestActorsWarmAndUnload(t *testing.T) {
	svc := &mockService{}
	h := NewMux(svc, nil, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/actors/EU/warm", nil))
	if w.Code != http.StatusAccepted || svc.lastIdentity != "EU" {
		t.Fatalf("warm: %d identity=%q", w.Code, svc.lastIdentity)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/actors/EU", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("unload: %d", w.Code)
	}

	svc.unloadErr = manager.ErrActorNotFound("NA")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/actors/NA", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("unload unknown: %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewMux(&mockService{}, nil, nil)
	postJSON(h, "/classify", pixelBody(tensor.Pixels), nil)

	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	if !strings.Contains(body, "mnistd_http_requests_total") || !strings.Contains(body, `path="*/classify"`) {
		t.Fatalf("expected classify request metrics")
	}
}

// countingStore counts Get calls.
type countingStore struct {
	inner blobstore.Store
	mu    sync.Mutex
	gets  int
}

func (s *countingStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()
	return s.inner.Get(ctx, key)
}
