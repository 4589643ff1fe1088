/*
Package gateway implements the per-request side of the proxy: matching the
current config snapshot's routes against the request path, driving the
matched route's plugin chain, and forwarding to the first endpoint of the
resolved cluster.

Engine exposes two internal steps — requestFilter and upstreamPeer —
mirroring the two callbacks a reverse-proxy framework invokes per request.
Both re-read the snapshot independently; a request may observe a newer
snapshot in upstreamPeer than it did in requestFilter if the control plane
publishes one in between. That is intentional, not a bug: the config store
never promises more than "each read sees a fully-formed, possibly newer,
snapshot."
*/
package gateway
