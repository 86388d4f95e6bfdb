package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/dawoodellahisheikh/verblizr-backend/internal/observe"
	"github.com/dawoodellahisheikh/verblizr-backend/internal/session"
)

const (
	// Generous enough for several seconds of base64 PCM per frame.
	maxFrameBytes = 1 << 20
	writeTimeout  = 10 * time.Second
)

// Handler upgrades HTTP requests to WebSocket connections and runs the
// protocol loops for each one.
type Handler struct {
	registry *session.Registry
	log      *slog.Logger
	metrics  *observe.Metrics
	origins  []string
}

// Config configures a Handler. Registry is required. OriginPatterns is
// passed through to the WebSocket accept handshake; empty restricts
// connections to same-origin clients.
type Config struct {
	Registry       *session.Registry
	Logger         *slog.Logger
	Metrics        *observe.Metrics
	OriginPatterns []string
}

func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Handler{
		registry: cfg.Registry,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		origins:  cfg.OriginPatterns,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err, "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	h.metrics.ActiveConnections.Add(r.Context(), 1)
	defer h.metrics.ActiveConnections.Add(context.Background(), -1)

	c := &clientConn{
		conn:     conn,
		registry: h.registry,
		log:      h.log.With("remote", r.RemoteAddr),
	}
	c.run(r.Context())
}

// clientConn is the per-connection state: the socket, the session bound
// by the start frame, and the two protocol loops.
type clientConn struct {
	conn     *websocket.Conn
	registry *session.Registry
	log      *slog.Logger
	sess     *session.Session
}

func (c *clientConn) run(ctx context.Context) {
	defer c.conn.CloseNow()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.readLoop(ctx, g) })
	err := g.Wait()

	if c.sess != nil {
		c.registry.Remove(c.sess.ID)
	}
	if err != nil && !isClose(err) {
		c.log.Warn("connection closed with error", "error", err)
		return
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
	c.log.Debug("connection closed")
}

// readLoop decodes client frames and forwards them to the session.
// Malformed frames and frames for missing sessions are logged and
// dropped; only socket-level failures end the loop.
func (c *clientConn) readLoop(ctx context.Context, g *errgroup.Group) error {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return err
		}

		id, ev, err := decodeFrame(data)
		if err != nil {
			c.log.Warn("malformed frame dropped", "error", err)
			continue
		}

		if start, ok := ev.(session.StartEvent); ok && c.sess == nil {
			sess, err := c.registry.Create(ctx, id)
			if err != nil {
				c.log.Warn("session create failed", "session_id", id, "error", err)
				c.writeError(ctx, err.Error())
				continue
			}
			c.sess = sess
			g.Go(func() error { return c.writeLoop(ctx, sess) })
			c.enqueue(start)
			continue
		}

		if c.sess == nil {
			c.log.Warn("frame for unknown session dropped", "type_of", typeName(ev))
			continue
		}
		c.enqueue(ev)
	}
}

func (c *clientConn) enqueue(ev session.Event) {
	switch err := c.sess.Enqueue(ev); {
	case err == nil:
	case errors.Is(err, session.ErrSessionStopped):
		c.log.Warn("frame for stopped session dropped", "session_id", c.sess.ID)
	case errors.Is(err, session.ErrQueueFull):
		// Enqueue already counted the drop.
	default:
		c.log.Warn("enqueue failed", "session_id", c.sess.ID, "error", err)
	}
}

// writeLoop drains the session's notifications, in order, onto the
// socket. It ends when the session closes its stream.
func (c *clientConn) writeLoop(ctx context.Context, sess *session.Session) error {
	for {
		var n session.Notification
		var ok bool
		select {
		case n, ok = <-sess.Notifications():
			if !ok {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}

		data, err := encodeNotification(n)
		if err != nil {
			c.log.Error("notification encode failed", "error", err)
			continue
		}
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err = c.conn.Write(wctx, websocket.MessageText, data)
		cancel()
		if err != nil {
			return err
		}
	}
}

func (c *clientConn) writeError(ctx context.Context, msg string) {
	data, err := encodeNotification(session.ErrorNotification{Message: msg})
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := c.conn.Write(wctx, websocket.MessageText, data); err != nil {
		c.log.Warn("error frame write failed", "error", err)
	}
}

// isClose reports whether err is an orderly connection shutdown rather
// than a protocol failure.
func isClose(err error) bool {
	if errors.Is(err, context.Canceled) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return false
}

func typeName(ev session.Event) string {
	switch ev.(type) {
	case session.AudioEvent:
		return "audio"
	case session.VADEvent:
		return "vad"
	case session.PauseEvent:
		return "pause"
	case session.ResumeEvent:
		return "resume"
	case session.StopEvent:
		return "stop"
	case session.StartEvent:
		return "start"
	default:
		return "unknown"
	}
}
