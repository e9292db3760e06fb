// Package clients implements the three collaborator clients the pipeline
// depends on — LLM, vector memory, and action execution — each a typed
// handle over a pooled *http.Client with deadline-bound operations (§4.1).
package clients

import "errors"

// ErrUnavailable is returned when a collaborator could not be reached at
// the transport level (connection refused, DNS failure, context deadline
// during dial/write). Taxonomy entry 2, Upstream-Unavailable (§7).
var ErrUnavailable = errors.New("collaborator unavailable")

// ErrUpstream is returned when a collaborator responded but with a non-2xx
// status or a body that could not be decoded into the expected shape.
// Taxonomy entry 3, Upstream-Malformed (§7).
var ErrUpstream = errors.New("collaborator returned malformed response")
