package cachecontrol

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/volley-go/volley"
)

// NewStringRequest builds a volley.Request[string] whose Parse decodes the
// response body as UTF-8 text and, unlike volley.NewStringRequest, populates
// Response.CacheEntry via EntryFromResponse so a cacheable response actually
// gets written to Cache on the live-network path.
func NewStringRequest(method, url string, deliver func(volley.Response[string])) *volley.Request[string] {
	return volley.NewRequest(method, url, func(nr volley.NetworkResponse) volley.Response[string] {
		entry := entryFromNetworkResponse(nr)
		return volley.Response[string]{Result: string(nr.Body), CacheEntry: entry}
	}, deliver)
}

// NewJSONRequest builds a volley.Request[T] whose Parse decodes the response
// body as JSON and, unlike volley.NewJSONRequest, populates
// Response.CacheEntry via EntryFromResponse so a cacheable response actually
// gets written to Cache on the live-network path.
func NewJSONRequest[T any](method, url string, deliver func(volley.Response[T])) *volley.Request[T] {
	return volley.NewRequest(method, url, func(nr volley.NetworkResponse) volley.Response[T] {
		var out T
		if err := json.Unmarshal(nr.Body, &out); err != nil {
			return volley.Response[T]{Err: volley.NewError(volley.KindParse, "decode JSON response", err)}
		}
		entry := entryFromNetworkResponse(nr)
		return volley.Response[T]{Result: out, CacheEntry: entry}
	}, deliver)
}

// entryFromNetworkResponse adapts a NetworkResponse to EntryFromResponse.
// NetworkResponse carries no request headers, so reqHeaders is empty (no
// request-side no-store/Authorization to consider) and isPublicCache is
// false, the appropriate default for a private client-side cache.
func entryFromNetworkResponse(nr volley.NetworkResponse) *volley.Entry {
	respHeaders := headersFromMap(nr.Headers)
	serverDate, err := dateOf(respHeaders)
	if err != nil {
		serverDate = time.Now().UTC()
	}
	entry, ok := EntryFromResponse(http.Header{}, respHeaders, nr.Body, serverDate, false, nr.StatusCode)
	if !ok {
		return nil
	}
	return entry
}

func headersFromMap(m map[string]string) http.Header {
	h := make(http.Header, len(m))
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}
