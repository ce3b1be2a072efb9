package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mnistd/internal/classifier"
	"mnistd/internal/routing"
	"mnistd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Classify(ctx context.Context, identity string, raw []float32) (classifier.Probabilities, error)
	Decide(ctx context.Context, identity string, raw []float32) (classifier.Decision, error)
	Warm(ctx context.Context, identity string) error
	Unload(identity string) error
	Status() types.StatusResponse
	Ready() bool
}

type server struct {
	svc      Service
	resolver routing.Resolver
}

// NewMux builds the HTTP handler. POSTs to */classify, */decide and
// */classify/image go to the actor for the resolved identity; every other
// request not matched by an operational route goes to assets unchanged.
// A nil resolver routes everything to one fixed actor; nil assets answer 404.
func NewMux(svc Service, resolver routing.Resolver, assets http.Handler) http.Handler {
	if resolver == nil {
		resolver = routing.FixedResolver{}
	}
	if assets == nil {
		assets = AssetsHandler("")
	}
	s := &server{svc: svc, resolver: resolver}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	// Classification requests are recognised by suffix on any prefix, so
	// they are intercepted before route matching.
	r.Use(s.dispatch)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("closed"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Post("/actors/{id}/warm", s.handleWarm)
	r.Delete("/actors/{id}", s.handleUnload)

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	r.Handle("/*", assets)
	return r
}

func (s *server) dispatch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		target := routing.Match(r)
		if target == routing.TargetAssets {
			next.ServeHTTP(w, r)
			return
		}
		s.handleClassify(w, r, target)
	})
}

func (s *server) handleClassify(w http.ResponseWriter, r *http.Request, target routing.Target) {
	start := time.Now()
	lvl := requestLogLevel(r)

	identity, err := s.resolver.Identity(r)
	if err != nil {
		status := writeError(w, err)
		logOutcome(r, lvl, target.String(), "", status, start, err)
		return
	}

	var raw []float32
	if target == routing.TargetClassifyImage {
		raw, err = readImage(w, r)
	} else {
		raw, err = readPixels(w, r)
	}
	if err != nil {
		status := writeError(w, err)
		logOutcome(r, lvl, target.String(), identity, status, start, err)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	var body any
	if target == routing.TargetDecide {
		var d classifier.Decision
		d, err = s.svc.Decide(ctx, identity, raw)
		body = types.DecisionResponse{Class: d.Class, Probabilities: d.Probabilities}
	} else {
		var p classifier.Probabilities
		p, err = s.svc.Classify(ctx, identity, raw)
		body = []float32(p)
	}
	if err != nil {
		// If the client went away there is nobody to answer.
		if r.Context().Err() != nil {
			return
		}
		status := writeError(w, err)
		logOutcome(r, lvl, target.String(), identity, status, start, err)
		return
	}
	writeJSON(w, http.StatusOK, body)
	logOutcome(r, lvl, target.String(), identity, http.StatusOK, start, nil)
}

// readPixels decodes a JSON array of numbers. Length is checked by the
// classifier so the error category stays the same for every entry point.
func readPixels(w http.ResponseWriter, r *http.Request) ([]float32, error) {
	// Content-Type check; a missing header is accepted as JSON
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return nil, requestError{status: http.StatusUnsupportedMediaType, msg: "Content-Type must be application/json"}
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	var wide []float64
	if err := dec.Decode(&wide); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, requestError{status: http.StatusRequestEntityTooLarge, msg: "request body too large"}
		}
		return nil, badRequest("invalid JSON body: expected an array of 784 numbers")
	}
	if dec.More() {
		return nil, badRequest("invalid JSON body: trailing data")
	}
	raw := make([]float32, len(wide))
	for i, v := range wide {
		if math.Abs(v) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: value %g at index %d is outside the float32 range", classifier.ErrMalformedInput, v, i)
		}
		raw[i] = float32(v)
	}
	if err := classifier.ValidateInput(raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *server) handleWarm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.Warm(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.WarmResponse{Identity: id, Status: "accepted"})
}

func (s *server) handleUnload(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Unload(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
