package stream

import (
	"context"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// Streamer upgrades HTTP requests to WebSocket connections and runs one
// Session per connection.
type Streamer struct {
	opts     Options
	upgrader websocket.Upgrader
	ctx      context.Context
	wg       sync.WaitGroup
}

// NewStreamer returns a Streamer whose sessions share opts (Path is set per
// connection). Sessions end when ctx is cancelled.
func NewStreamer(ctx context.Context, opts Options) *Streamer {
	return &Streamer{
		opts: opts.withDefaults(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 32 * 1024,
		},
		ctx: ctx,
	}
}

// Serve upgrades the request and streams the log at path until the session
// ends. path must already be resolved.
func (s *Streamer) Serve(w http.ResponseWriter, r *http.Request, path string) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		s.opts.Logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("websocket upgrade failed")
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	opts := s.opts
	opts.Path = path
	session := NewSession(conn, opts)
	if err := session.Run(s.ctx); err != nil {
		opts.Logger.WithError(err).WithField("session", session.ID().String()).Warn("stream session ended with error")
	}
}

// Wait blocks until every running session has returned.
func (s *Streamer) Wait() {
	s.wg.Wait()
}
