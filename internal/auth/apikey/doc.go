// Package apikey locates the API key of a call.
//
// A method may declare the query parameters and headers that carry its
// key. Declared locations are probed in order and the first present value
// wins. A method that declares nothing falls back to the "key" and then
// the "api_key" query parameter. Finding no key is not an error: the
// empty key is passed on and the check treats the call as
// unauthenticated.
package apikey
