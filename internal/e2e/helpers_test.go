package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"mnistd/internal/blobstore"
	"mnistd/internal/httpapi"
	"mnistd/internal/manager"
	"mnistd/internal/model"
	"mnistd/internal/routing"
)

const weightsKey = "mnist.bin"

// newSQLiteStore opens a fresh weight database in a temp dir.
func newSQLiteStore(t *testing.T) *blobstore.SQLiteStore {
	t.Helper()
	s, err := blobstore.OpenSQLite(filepath.Join(t.TempDir(), "weights.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putWeights(t *testing.T, s blobstore.Writer, seed int64) {
	t.Helper()
	n, err := model.NewRandom(model.PrecisionFloat32, seed, 24)
	if err != nil {
		t.Fatalf("network: %v", err)
	}
	blob, err := model.Encode(n)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := s.Put(context.Background(), weightsKey, blob); err != nil {
		t.Fatalf("put: %v", err)
	}
}

// newServer wires store -> manager -> geo-routed mux behind httptest.
func newServer(t *testing.T, store blobstore.Store, cfg manager.Config) (*httptest.Server, *manager.Manager) {
	t.Helper()
	cfg.Store = store
	cfg.WeightsKey = weightsKey
	mgr, err := manager.New(cfg)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	resolver, err := routing.New(routing.ModeGeo, "", "")
	if err != nil {
		t.Fatalf("resolver: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(mgr, resolver, nil))
	t.Cleanup(func() {
		srv.Close()
		mgr.Close()
	})
	return srv, mgr
}

func pixelsJSON(v float32) []byte {
	px := make([]float32, 784)
	for i := range px {
		px[i] = v
	}
	b, _ := json.Marshal(px)
	return b
}

func httpDo(t *testing.T, method, url, continent string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, url, body)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if continent != "" {
		req.Header.Set(routing.DefaultGeoHeader, continent)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
