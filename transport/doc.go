// Package transport provides the blocking HTTP call primitive used to talk to
// the configuration store.
//
// Every call is synchronous: the bootstrap sequence performs one request at a
// time and waits for it. A token header is attached only when a token is
// supplied, and a JSON body only when a body is supplied. Any non-2xx status
// and any response body that is not a JSON object are reported as
// errdefs.ErrStore.
//
// Client wraps github.com/hashicorp/vault/api with retries, rate limiting and
// environment token pickup disabled, so each Call is exactly one request with
// exactly the credentials supplied.
package transport
