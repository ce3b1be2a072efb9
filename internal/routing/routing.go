// Package routing decides where an inbound request goes: which actor
// identity serves a classification request, and whether a request is a
// classification request at all.
package routing

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMetadataMissing is returned when geo routing is enabled but the edge
// did not attach the location header.
var ErrMetadataMissing = errors.New("routing metadata missing")

const (
	// DefaultGeoHeader is the header the edge sets to the client's continent.
	DefaultGeoHeader = "CF-IPContinent"
	// DefaultIdentity is used by FixedResolver when none is configured.
	DefaultIdentity = "global"
)

// Modes accepted by New.
const (
	ModeGeo   = "geo"
	ModeFixed = "fixed"
)

// Resolver derives the actor identity for a request.
type Resolver interface {
	Identity(r *http.Request) (string, error)
}

// GeoResolver picks the identity from an edge metadata header, so each
// continent gets its own actor.
type GeoResolver struct {
	Header string
}

func (g GeoResolver) Identity(r *http.Request) (string, error) {
	h := g.Header
	if h == "" {
		h = DefaultGeoHeader
	}
	v := strings.TrimSpace(r.Header.Get(h))
	if v == "" {
		return "", fmt.Errorf("%w: header %s not set", ErrMetadataMissing, h)
	}
	return strings.ToUpper(v), nil
}

// FixedResolver routes every request to one actor.
type FixedResolver struct {
	ID string
}

func (f FixedResolver) Identity(*http.Request) (string, error) {
	if f.ID == "" {
		return DefaultIdentity, nil
	}
	return f.ID, nil
}

// New builds a resolver for mode ("geo" or "fixed").
func New(mode, header, fixed string) (Resolver, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case ModeGeo:
		return GeoResolver{Header: header}, nil
	case ModeFixed, "":
		return FixedResolver{ID: fixed}, nil
	default:
		return nil, fmt.Errorf("unknown routing mode %q (want %s or %s)", mode, ModeGeo, ModeFixed)
	}
}

// Target is the handler class a request is dispatched to.
type Target int

const (
	TargetAssets Target = iota
	TargetClassify
	TargetDecide
	TargetClassifyImage
)

func (t Target) String() string {
	switch t {
	case TargetClassify:
		return "classify"
	case TargetDecide:
		return "decide"
	case TargetClassifyImage:
		return "classify_image"
	default:
		return "assets"
	}
}

// Match classifies r by method and path suffix. Anything that is not a POST
// to a classification path is left to the static assets.
func Match(r *http.Request) Target {
	if r.Method != http.MethodPost {
		return TargetAssets
	}
	p := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case strings.HasSuffix(p, "/classify/image"):
		return TargetClassifyImage
	case strings.HasSuffix(p, "/classify"):
		return TargetClassify
	case strings.HasSuffix(p, "/decide"):
		return TargetDecide
	default:
		return TargetAssets
	}
}
