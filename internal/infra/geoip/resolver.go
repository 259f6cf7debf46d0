package geoip

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/oschwald/geoip2-golang"
	"github.com/patrickmn/go-cache"
)

// ErrUnavailable is returned when the resolver is not initialized.
var ErrUnavailable = errors.New("geoip resolver unavailable")

const (
	cacheTTL     = time.Hour
	cacheCleanup = 2 * time.Hour
)

// Resolver provides country lookups backed by a MaxMind GeoIP2 database.
// Answers are cached per IP since every request triggers a lookup.
type Resolver struct {
	reader  *geoip2.Reader
	country func(ip net.IP) (string, error)
	cache   *cache.Cache
}

// NewResolver opens the GeoIP database at the given path. An empty path yields
// a nil resolver, which callers treat as "lookup disabled".
func NewResolver(path string) (*Resolver, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geoip: open database: %w", err)
	}
	r := newResolver(func(ip net.IP) (string, error) {
		record, err := reader.Country(ip)
		if err != nil {
			return "", err
		}
		if record == nil {
			return "", nil
		}
		return record.Country.IsoCode, nil
	})
	r.reader = reader
	return r, nil
}

func newResolver(country func(ip net.IP) (string, error)) *Resolver {
	return &Resolver{country: country, cache: cache.New(cacheTTL, cacheCleanup)}
}

// CountryCode returns the ISO country code for the provided IP.
func (r *Resolver) CountryCode(ip string) (string, error) {
	if r == nil || r.country == nil {
		return "", ErrUnavailable
	}
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return "", fmt.Errorf("geoip: invalid ip %q", ip)
	}
	key := parsed.String()
	if v, ok := r.cache.Get(key); ok {
		return v.(string), nil
	}
	code, err := r.country(parsed)
	if err != nil {
		return "", fmt.Errorf("geoip: lookup country: %w", err)
	}
	r.cache.SetDefault(key, code)
	return code, nil
}

// Lookup adapts the resolver to the locale middleware's lookup signature.
// It returns nil for a nil resolver so the middleware skips IP lookups.
func (r *Resolver) Lookup() func(ip string) (string, error) {
	if r == nil {
		return nil
	}
	return r.CountryCode
}

// Close releases the database handle.
func (r *Resolver) Close() error {
	if r == nil || r.reader == nil {
		return nil
	}
	return r.reader.Close()
}
