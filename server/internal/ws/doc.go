// Package ws implements the WebSocket hub of the dashboard server.
//
// Hub manages a set of connected clients and broadcasts the unfiltered
// dashboard overview to all of them on a configurable interval (default 5s),
// and additionally whenever Broadcast is called after a refresh round.
//
// New(source, interval) creates a Hub.
// Hub.Run(ctx) starts the broadcast ticker and blocks until ctx is cancelled,
// then closes all active connections.
// Hub.ServeHTTP upgrades an HTTP connection to WebSocket, sends the current
// overview immediately on connect, then streams updates on each tick.
//
// Message format sent to clients:
//
//	{
//	  "event": "overview",
//	  "data":  { /* same schema as GET /api/v1/overview */ }
//	}
//
// While no dataset is available the event is "no_data" and data carries an
// error message. The upgrader accepts all origins. Apply CORS restrictions at
// the reverse proxy level. The endpoint is mounted at /ws/stream by the server.
package ws
