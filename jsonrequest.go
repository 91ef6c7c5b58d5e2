package volley

import "encoding/json"

// NewJSONRequest builds a Request[T] whose Parse decodes the response body
// as JSON into a fresh T, returning a KindParse error response on failure.
//
// This constructor never populates Response.CacheEntry, so nothing is ever
// written to Cache on the live-network path even though ShouldCacheValue
// defaults to true — callers that want RFC 9111 caching should use
// cachecontrol.NewJSONRequest, or supply their own Parse that sets
// CacheEntry.
func NewJSONRequest[T any](method, url string, deliver func(Response[T])) *Request[T] {
	return NewRequest(method, url, func(nr NetworkResponse) Response[T] {
		var out T
		if err := json.Unmarshal(nr.Body, &out); err != nil {
			return Response[T]{Err: NewError(KindParse, "decode JSON response", err)}
		}
		return Response[T]{Result: out}
	}, deliver)
}
