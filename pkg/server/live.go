package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nasa-meteo/dashboard/internal/errors"
	"github.com/nasa-meteo/dashboard/pkg/navigation"
)

// Frame types.
const (
	FrameNavigate  = "navigate"
	FrameTitle     = "title"
	FrameNavigated = "navigated"
	FrameError     = "error"
)

// ClientFrame is a frame sent by the browser.
type ClientFrame struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// ServerFrame is a frame sent to the browser.
type ServerFrame struct {
	Type           string `json:"type"`
	ID             string `json:"id,omitempty"`
	Path           string `json:"path,omitempty"`
	Route          string `json:"route,omitempty"`
	Title          string `json:"title,omitempty"`
	Transition     string `json:"transition,omitempty"`
	RedirectedFrom string `json:"redirectedFrom,omitempty"`
	HTML           string `json:"html,omitempty"`
	Code           string `json:"code,omitempty"`
	Message        string `json:"message,omitempty"`
}

// liveConn is one live navigation connection.
type liveConn struct {
	s      *Server
	conn   *websocket.Conn
	nav    *navigation.Context
	send   chan []byte
	done   chan struct{}
	closed sync.Once

	// navigations in flight; cancel aborts the newest one's wait.
	navWG  sync.WaitGroup
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.conns.WebSocketError("upgrade")
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	lc := &liveConn{
		s:    s,
		conn: conn,
		send: make(chan []byte, 16),
		done: make(chan struct{}),
	}
	lc.nav = s.nav.NewContext(navigation.TitleFunc(func(title string) {
		lc.enqueue(ServerFrame{Type: FrameTitle, Title: title})
	}))
	lc.nav.AfterEach(lc.navigated)

	if !s.track(lc) {
		conn.Close()
		return
	}
	defer s.untrack(lc)

	s.conns.ConnectionOpened()
	defer s.conns.ConnectionClosed()

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		lc.writeLoop()
	}()

	lc.readLoop(r.Context())

	lc.close()
	lc.abort()
	lc.navWG.Wait()
	writer.Wait()
	conn.Close()
}

// track registers lc unless the server is shutting down.
func (s *Server) track(lc *liveConn) bool {
	s.liveMu.Lock()
	defer s.liveMu.Unlock()
	if s.live == nil {
		return false
	}
	s.live[lc] = struct{}{}
	s.liveWG.Add(1)
	return true
}

func (s *Server) untrack(lc *liveConn) {
	s.liveMu.Lock()
	delete(s.live, lc)
	s.liveMu.Unlock()
	s.liveWG.Done()
}

// closeLive closes every live connection and refuses new ones.
func (s *Server) closeLive() {
	s.liveMu.Lock()
	conns := make([]*liveConn, 0, len(s.live))
	for lc := range s.live {
		conns = append(conns, lc)
	}
	s.live = nil
	s.liveMu.Unlock()

	for _, lc := range conns {
		lc.shutdown()
	}
}

// readLoop reads client frames until the connection fails or closes.
func (lc *liveConn) readLoop(ctx context.Context) {
	cfg := lc.s.config
	lc.conn.SetReadLimit(cfg.MaxFrameSize)
	lc.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	lc.conn.SetPongHandler(func(string) error {
		return lc.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})

	for {
		_, msg, err := lc.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				lc.s.conns.WebSocketError("read")
				lc.s.logger.Warn("live read error", "error", err)
			}
			return
		}
		lc.conn.SetReadDeadline(time.Now().Add(cfg.PongWait))

		var frame ClientFrame
		if err := json.Unmarshal(msg, &frame); err != nil || frame.Type != FrameNavigate {
			lc.s.conns.WebSocketError("decode")
			lc.enqueue(ServerFrame{
				Type:    FrameError,
				Code:    "E170",
				Message: "expected a navigate frame",
			})
			continue
		}
		lc.navigate(ctx, frame.Path)
	}
}

// navigate starts a navigation, superseding the previous one.
func (lc *liveConn) navigate(parent context.Context, path string) {
	ctx, cancel := context.WithCancel(parent)

	lc.mu.Lock()
	if lc.cancel != nil {
		lc.cancel()
	}
	lc.cancel = cancel
	lc.mu.Unlock()

	lc.navWG.Add(1)
	lc.nav.Go(ctx, path, func(_ *navigation.Result, err error) {
		defer lc.navWG.Done()
		defer cancel()

		switch {
		case err == nil:
		case stderrors.Is(err, navigation.ErrSuperseded), stderrors.Is(err, context.Canceled):
		default:
			lc.enqueue(ServerFrame{
				Type:    FrameError,
				Path:    path,
				Code:    errors.CodeOf(err),
				Message: publicMessage(err),
			})
		}
	})
}

// navigated runs after each committed navigation, after the title frame.
func (lc *liveConn) navigated(to, _ *navigation.Result) {
	var body bytes.Buffer
	if err := to.Render(&body, lc.s.defines); err != nil {
		lc.enqueue(ServerFrame{
			Type:    FrameError,
			Path:    to.FullPath(),
			Code:    errors.CodeOf(err),
			Message: publicMessage(err),
		})
		return
	}
	lc.enqueue(ServerFrame{
		Type:           FrameNavigated,
		ID:             to.ID,
		Path:           to.FullPath(),
		Route:          to.Route.Key(),
		Title:          to.Title,
		Transition:     to.Transition,
		RedirectedFrom: to.RedirectedFrom,
		HTML:           body.String(),
	})
}

// enqueue queues a frame for the writer. Frames are dropped once the
// connection is closing.
func (lc *liveConn) enqueue(f ServerFrame) {
	data, err := json.Marshal(f)
	if err != nil {
		lc.s.logger.Error("frame encode error", "error", err)
		return
	}
	select {
	case lc.send <- data:
	case <-lc.done:
	}
}

// writeLoop writes queued frames and heartbeats until the connection closes.
func (lc *liveConn) writeLoop() {
	cfg := lc.s.config
	ticker := time.NewTicker(cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-lc.send:
			lc.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := lc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				lc.s.conns.WebSocketError("write")
				lc.fail()
				return
			}

		case <-ticker.C:
			lc.conn.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := lc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				lc.s.conns.WebSocketError("ping")
				lc.fail()
				return
			}

		case <-lc.done:
			return
		}
	}
}

func (lc *liveConn) close() {
	lc.closed.Do(func() { close(lc.done) })
}

// fail closes the connection so the read loop returns.
func (lc *liveConn) fail() {
	lc.close()
	lc.conn.Close()
}

// abort cancels the in-flight navigation, if any.
func (lc *liveConn) abort() {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	if lc.cancel != nil {
		lc.cancel()
	}
}

// shutdown sends a going-away close frame and closes the connection.
func (lc *liveConn) shutdown() {
	deadline := time.Now().Add(lc.s.config.WriteTimeout)
	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	_ = lc.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	lc.fail()
}
