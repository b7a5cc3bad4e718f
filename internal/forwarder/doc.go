// Package forwarder implements the outbound transport: it delivers an
// opaque JSON-RPC payload to one upstream endpoint and hands back
// whatever the upstream said, buffered, so the request path can classify
// the response before replying to the client.
package forwarder
