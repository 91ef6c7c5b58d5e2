// Package cachecontrol builds volley.Entry values from real HTTP responses
// by interpreting RFC 9111 Cache-Control directives, Expires, Age, Vary, and
// the unsafe-method invalidation rule. A Request's Parse function calls
// EntryFromResponse to populate Response.CacheEntry instead of hand-rolling
// TTL math; none of this is required by volley's core pipeline, which only
// ever looks at Entry.TTL/SoftTTL.
package cachecontrol

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/volley-go/volley"
)

const (
	directiveNoStore              = "no-store"
	directiveNoCache              = "no-cache"
	directivePrivate              = "private"
	directivePublic               = "public"
	directiveMustRevalidate       = "must-revalidate"
	directiveMustUnderstand       = "must-understand"
	directiveMaxAge               = "max-age"
	directiveSMaxAge              = "s-maxage"
	directiveStaleWhileRevalidate = "stale-while-revalidate"

	headerVary            = "Vary"
	headerLocation        = "Location"
	headerContentLocation = "Content-Location"

	warningResponseIsStale    = `110 - "Response is Stale"`
	warningRevalidationFailed = `111 - "Revalidation Failed"`
)

// understoodStatusCodes mirrors RFC 9111 §5.2.2.3: status codes this cache
// comprehends well enough to store when must-understand is present.
var understoodStatusCodes = map[int]bool{
	200: true, 203: true, 204: true, 206: true, 300: true,
	301: true, 308: true, 404: true, 405: true, 410: true,
	414: true, 501: true,
}

// Directives is a parsed Cache-Control header: directive name to value
// (empty string for valueless directives like no-store).
type Directives map[string]string

// ParseDirectives parses the Cache-Control header, keeping the first
// occurrence of any duplicated directive.
func ParseDirectives(headers http.Header) Directives {
	d := Directives{}
	for _, part := range strings.Split(headers.Get("Cache-Control"), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, _ := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if _, dup := d[name]; dup {
			continue
		}
		d[name] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return d
}

// Lifetime computes the response's freshness lifetime from max-age or the
// Expires header, per RFC 9111 §4.2.1 (max-age takes precedence).
func Lifetime(d Directives, headers http.Header, date time.Time) time.Duration {
	if maxAge, ok := d[directiveMaxAge]; ok {
		if dur, err := time.ParseDuration(maxAge + "s"); err == nil && dur >= 0 {
			return dur
		}
		return 0
	}
	if expires := headers.Get("Expires"); expires != "" {
		if t, err := time.Parse(time.RFC1123, expires); err == nil {
			return t.Sub(date)
		}
	}
	return 0
}

// staleWhileRevalidate returns the stale-while-revalidate extension window,
// if present and valid.
func staleWhileRevalidate(d Directives) time.Duration {
	v, ok := d[directiveStaleWhileRevalidate]
	if !ok {
		return 0
	}
	dur, err := time.ParseDuration(v + "s")
	if err != nil || dur < 0 {
		return 0
	}
	return dur
}

// CanStore reports whether a response may be persisted at all, per RFC 9111
// §3 and §5.2.2.3 (must-understand) and §3.5 (authenticated requests in a
// shared/public cache).
func CanStore(reqHeaders, respHeaders http.Header, isPublicCache bool, statusCode int) bool {
	respDirectives := ParseDirectives(respHeaders)

	if _, mustUnderstand := respDirectives[directiveMustUnderstand]; mustUnderstand {
		if !understoodStatusCodes[statusCode] {
			return false
		}
	} else {
		if _, noStore := respDirectives[directiveNoStore]; noStore {
			return false
		}
		reqDirectives := ParseDirectives(reqHeaders)
		if _, noStore := reqDirectives[directiveNoStore]; noStore {
			return false
		}
	}

	if isPublicCache && reqHeaders.Get("Authorization") != "" {
		_, hasPublic := respDirectives[directivePublic]
		_, hasMustRevalidate := respDirectives[directiveMustRevalidate]
		_, hasSMaxAge := respDirectives[directiveSMaxAge]
		if !hasPublic && !hasMustRevalidate && !hasSMaxAge {
			return false
		}
	}

	if _, private := respDirectives[directivePrivate]; private && isPublicCache {
		return false
	}

	return true
}

// EntryFromResponse builds the Entry a Request's Parse step should persist
// for a cacheable response: SoftTTL is the ordinary RFC 9111 freshness
// boundary (date+lifetime); TTL additionally extends by
// stale-while-revalidate, if present, past which the entry is no longer
// servable even provisionally. ok is false for responses CanStore rejects or
// that carry no-cache (always-revalidate) — callers should not persist those.
func EntryFromResponse(reqHeaders, respHeaders http.Header, body []byte, serverDate time.Time, isPublicCache bool, statusCode int) (entry *volley.Entry, ok bool) {
	if !CanStore(reqHeaders, respHeaders, isPublicCache, statusCode) {
		return nil, false
	}
	d := ParseDirectives(respHeaders)
	if _, noCache := d[directiveNoCache]; noCache {
		return nil, false
	}

	lifetime := Lifetime(d, respHeaders, serverDate)
	soft := serverDate.Add(lifetime)
	hard := soft.Add(staleWhileRevalidate(d))

	headers := make(map[string]string, len(respHeaders))
	for k := range respHeaders {
		headers[k] = respHeaders.Get(k)
	}

	return &volley.Entry{
		Data:            body,
		ETag:            respHeaders.Get("ETag"),
		ServerDate:      serverDate,
		TTL:             hard,
		SoftTTL:         soft,
		ResponseHeaders: headers,
	}, true
}

// Age computes the current Age of a response per RFC 9111 §4.2.3, combining
// any Age header present with elapsed time since Date.
func Age(headers http.Header, now time.Time) time.Duration {
	date, err := dateOf(headers)
	if err != nil {
		return 0
	}
	age := now.Sub(date)
	if raw := headers.Get("Age"); raw != "" {
		if extra, err := time.ParseDuration(raw + "s"); err == nil && extra >= 0 {
			age += extra
		}
	}
	if age < 0 {
		return 0
	}
	return age
}

func dateOf(headers http.Header) (time.Time, error) {
	return time.Parse(time.RFC1123, headers.Get("Date"))
}

// AddStaleWarning stamps the "110 Response is Stale" warning onto headers,
// per RFC 7234 §5.5 (obsoleted by RFC 9111 but widely still emitted).
func AddStaleWarning(headers map[string]string) {
	appendWarning(headers, warningResponseIsStale)
}

// AddRevalidationFailedWarning stamps "111 Revalidation Failed".
func AddRevalidationFailedWarning(headers map[string]string) {
	appendWarning(headers, warningRevalidationFailed)
}

func appendWarning(headers map[string]string, code string) {
	if existing, ok := headers["Warning"]; ok && existing != "" {
		headers["Warning"] = existing + ", " + code
		return
	}
	headers["Warning"] = code
}

// VaryKey augments a base cache key with the request header values named by
// the response's Vary header, so distinct variants (e.g. per
// Accept-Language) occupy distinct entries. Unlike a full RFC 9111 cache,
// this pipeline fixes a request's cache key before the response (and hence
// its Vary header) is known; callers that need vary separation should
// precompute VaryKey from headers they know in advance and use it as
// Request.CacheKeyFn, or revalidate under the base key and accept that the
// first variant observed wins until invalidated.
func VaryKey(baseKey string, reqHeaders http.Header, varyHeaderNames []string) string {
	if len(varyHeaderNames) == 0 {
		return baseKey
	}
	parts := make([]string, 0, len(varyHeaderNames))
	for _, name := range varyHeaderNames {
		name = http.CanonicalHeaderKey(strings.TrimSpace(name))
		if name == "" || name == "*" {
			continue
		}
		parts = append(parts, name+":"+reqHeaders.Get(name))
	}
	if len(parts) == 0 {
		return baseKey
	}
	sort.Strings(parts)
	return baseKey + "|vary:" + strings.Join(parts, "|")
}

// VaryHeaderNames extracts the header names listed in a response's Vary
// header.
func VaryHeaderNames(respHeaders http.Header) []string {
	raw := respHeaders.Get(headerVary)
	if raw == "" {
		return nil
	}
	var names []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			names = append(names, part)
		}
	}
	return names
}

// InvalidateRelated implements RFC 9111 §4.4: on a non-error response to an
// unsafe method (POST/PUT/DELETE/PATCH), invalidate the cache entries for
// the request URI and any same-origin Location/Content-Location header.
func InvalidateRelated(ctx context.Context, cache volley.Cache, method string, requestURL *url.URL, respHeaders http.Header, statusCode int) {
	if !isUnsafeMethod(method) || statusCode >= 400 {
		return
	}
	invalidateURI(ctx, cache, requestURL)
	for _, header := range []string{headerLocation, headerContentLocation} {
		raw := respHeaders.Get(header)
		if raw == "" {
			continue
		}
		target, err := requestURL.Parse(raw)
		if err != nil || target.Scheme != requestURL.Scheme || target.Host != requestURL.Host {
			continue
		}
		invalidateURI(ctx, cache, target)
	}
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	default:
		return false
	}
}

func invalidateURI(ctx context.Context, cache volley.Cache, target *url.URL) {
	key := target.String()
	if err := cache.Remove(ctx, key); err != nil {
		volley.GetLogger().Warn("failed to invalidate cache entry", "key", key, "error", err)
	}
}
