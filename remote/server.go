package remote

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/npillmayer/tourpath/playback"
)

// DefaultTick is the interval at which the server advances the runtime.
const DefaultTick = time.Second / 60

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server serves the remote-control protocol over websockets. Run owns the
// runtime: it drives Update from a ticker, applies commands and broadcasts
// events. Connections only enqueue commands and receive messages.
type Server struct {
	rt         *playback.Runtime
	tick       time.Duration
	commands   chan Command
	register   chan *client
	unregister chan *client
	clients    map[*client]bool // owned by Run
	done       chan struct{}    // closed when Run returns
}

// NewServer creates a server for rt. A non-positive tick selects DefaultTick.
func NewServer(rt *playback.Runtime, tick time.Duration) *Server {
	if tick <= 0 {
		tick = DefaultTick
	}
	return &Server{
		rt:         rt,
		tick:       tick,
		commands:   make(chan Command, 16),
		register:   make(chan *client),
		unregister: make(chan *client),
		clients:    make(map[*client]bool),
		done:       make(chan struct{}),
	}
}

// Run is the owner loop. It returns when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ctrl := NewController(s.rt, s.broadcast)
	defer ctrl.Close()
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	start := time.Now()
	defer func() {
		for c := range s.clients {
			s.drop(c)
		}
		close(s.done)
	}()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.rt.TimingMap() != nil {
				s.rt.Update(time.Since(start))
			}
		case c := <-s.register:
			s.clients[c] = true
			for _, msg := range ctrl.Greeting() {
				s.sendTo(c, msg)
			}
			tracer().Infof("client connected, %d total", len(s.clients))
		case c := <-s.unregister:
			s.drop(c)
		case cmd := <-s.commands:
			if err := ctrl.Apply(cmd); err != nil {
				tracer().Errorf("command %s: %v", cmd.Type, err)
			}
		}
	}
}

func (s *Server) broadcast(msg Message) {
	for c := range s.clients {
		s.sendTo(c, msg)
	}
}

func (s *Server) sendTo(c *client, msg Message) {
	if !s.clients[c] {
		return
	}
	select {
	case c.send <- msg.Encode():
	default:
		tracer().Errorf("client too slow, dropping it")
		s.drop(c)
	}
}

func (s *Server) drop(c *client) {
	if !s.clients[c] {
		return
	}
	delete(s.clients, c)
	close(c.send)
}

// ServeHTTP upgrades the connection and pumps messages until the client
// disconnects or the server stops.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		tracer().Errorf("upgrade: %v", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	select {
	case s.register <- c:
	case <-s.done:
		conn.Close()
		return
	}
	go func() {
		defer conn.Close()
		for data := range c.send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}()
	defer func() {
		select {
		case s.unregister <- c:
		case <-s.done:
		}
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := DecodeCommand(data)
		if err != nil {
			tracer().Errorf("%v", err)
			continue
		}
		select {
		case s.commands <- cmd:
		case <-s.done:
			return
		}
	}
}
