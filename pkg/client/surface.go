package client

import (
	"net/url"
	"strings"
)

// Surface names one of the Polymarket HTTP APIs.
type Surface string

const (
	// SurfaceGamma is the market metadata API.
	SurfaceGamma Surface = "gamma"

	// SurfaceData is the positions and activity API.
	SurfaceData Surface = "data"

	// SurfaceCLOB is the order book and matching API.
	SurfaceCLOB Surface = "clob"
)

// Default base URLs.
const (
	DefaultGammaURL = "https://gamma-api.polymarket.com"
	DefaultDataURL  = "https://data-api.polymarket.com"
	DefaultCLOBURL  = "https://clob.polymarket.com"
)

// Surfaces lists every known surface.
var Surfaces = []Surface{SurfaceGamma, SurfaceData, SurfaceCLOB}

// DefaultBaseURL returns the production base URL of s.
func DefaultBaseURL(s Surface) string {
	switch s {
	case SurfaceGamma:
		return DefaultGammaURL
	case SurfaceData:
		return DefaultDataURL
	case SurfaceCLOB:
		return DefaultCLOBURL
	default:
		return ""
	}
}

// ParseSurface maps a name to a Surface.
func ParseSurface(name string) (Surface, bool) {
	for _, s := range Surfaces {
		if strings.EqualFold(name, string(s)) {
			return s, true
		}
	}
	return "", false
}

// joinURL appends path to base without doubling slashes.
func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}
