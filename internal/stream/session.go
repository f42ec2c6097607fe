package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Alimustoofaa/Stream-Log/internal/classify"
	"github.com/Alimustoofaa/Stream-Log/internal/logtail"
	"github.com/Alimustoofaa/Stream-Log/internal/metrics"
)

// State is the lifecycle state of a Session.
type State int32

const (
	Active State = iota
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Active:
		return "active"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Conn is the part of *websocket.Conn a Session uses.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// TailFunc reads the last n lines of the file at path.
type TailFunc func(path string, n int) (logtail.Result, error)

// Recorder receives session lifecycle counts. *metrics.Metrics implements it.
type Recorder interface {
	SessionOpened()
	SessionClosed()
	MessageSent()
	SessionError(reason string)
}

// Options configures a Session.
type Options struct {
	Path         string
	PollInterval time.Duration
	LineCount    int
	Classifier   *classify.Classifier
	// Tail defaults to logtail.Tail.
	Tail     TailFunc
	Recorder Recorder
	Logger   logrus.FieldLogger
}

func (o Options) withDefaults() Options {
	if o.Tail == nil {
		o.Tail = logtail.Tail
	}
	if o.Classifier == nil {
		o.Classifier = classify.New("")
	}
	if o.Recorder == nil {
		o.Recorder = nopRecorder{}
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		o.Logger = l
	}
	return o
}

// Session streams the classified tail of one log file to one connection.
// Every poll interval it rereads the last LineCount lines, renders them and
// sends the result as a single text message.
type Session struct {
	id    uuid.UUID
	conn  Conn
	opts  Options
	log   logrus.FieldLogger
	state atomic.Int32

	// done is closed by the reader goroutine when the client goes away.
	done chan struct{}
}

// NewSession binds a session to conn. The session owns conn from here on
// and closes it when Run returns.
func NewSession(conn Conn, opts Options) *Session {
	opts = opts.withDefaults()
	id := uuid.New()
	s := &Session{
		id:   id,
		conn: conn,
		opts: opts,
		log:  opts.Logger.WithFields(logrus.Fields{"session": id.String(), "file": opts.Path}),
		done: make(chan struct{}),
	}
	s.state.Store(int32(Active))
	return s
}

// ID returns the session identifier used in log fields.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Run streams until the client disconnects, ctx is cancelled, or a tail or
// send fails. It returns nil for a client or ctx initiated close and the
// failure otherwise. The connection is closed on every path.
func (s *Session) Run(ctx context.Context) error {
	s.opts.Recorder.SessionOpened()
	defer s.opts.Recorder.SessionClosed()
	defer s.release()

	s.log.Info("stream session started")
	go s.readLoop()

	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.state.CompareAndSwap(int32(Active), int32(Closing))
			s.log.Info("stream session cancelled")
			s.sendClose(websocket.CloseGoingAway, "server shutting down")
			return nil
		case <-s.done:
			s.log.Info("stream client disconnected")
			return nil
		case <-ticker.C:
			if err := s.push(); err != nil {
				s.state.Store(int32(Closed))
				return err
			}
		}
	}
}

// push renders a full batch before writing, so a client never sees a
// partial message.
func (s *Session) push() error {
	res, err := s.opts.Tail(s.opts.Path, s.opts.LineCount)
	if err != nil {
		s.opts.Recorder.SessionError(metrics.ReasonTail)
		s.log.WithError(err).Error("tail log")
		s.sendClose(websocket.CloseInternalServerErr, "log unavailable")
		return fmt.Errorf("tail %s: %w", s.opts.Path, err)
	}
	msg := s.opts.Classifier.Render(res.Lines)

	if err := s.write(websocket.TextMessage, []byte(msg)); err != nil {
		select {
		case <-s.done:
			// client left between the tick and the write
			return nil
		default:
		}
		s.opts.Recorder.SessionError(metrics.ReasonSend)
		s.log.WithError(err).Error("send log batch")
		return fmt.Errorf("send: %w", err)
	}
	s.opts.Recorder.MessageSent()
	s.log.WithFields(logrus.Fields{"lines": len(res.Lines), "truncated": res.Truncated}).Debug("sent log batch")
	return nil
}

func (s *Session) write(messageType int, data []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.opts.PollInterval)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

func (s *Session) sendClose(code int, text string) {
	_ = s.write(websocket.CloseMessage, websocket.FormatCloseMessage(code, text))
}

// readLoop drains client frames. Client messages are ignored; any read
// error, including a close frame, ends the session.
func (s *Session) readLoop() {
	defer close(s.done)
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			s.state.CompareAndSwap(int32(Active), int32(Closing))
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				s.log.WithField("code", ce.Code).Debug("client sent close")
			}
			return
		}
	}
}

func (s *Session) release() {
	if err := s.conn.Close(); err != nil {
		s.log.WithError(err).Debug("close connection")
	}
	s.state.Store(int32(Closed))
	s.log.Info("stream session closed")
}

type nopRecorder struct{}

func (nopRecorder) SessionOpened()      {}
func (nopRecorder) SessionClosed()      {}
func (nopRecorder) MessageSent()        {}
func (nopRecorder) SessionError(string) {}
