package ipc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/tunefolder/tunefolder/internal/events"
	"github.com/tunefolder/tunefolder/internal/logx"
	"github.com/tunefolder/tunefolder/internal/transport"
)

const (
	// positionInterval throttles positionChanged pushes per client
	positionInterval = time.Second

	// outboxSize bounds the messages queued for a slow client
	outboxSize = 64

	// writeTimeout drops clients that stop reading
	writeTimeout = 5 * time.Second
)

// DefaultSocketPath returns the per-user socket path
func DefaultSocketPath() string {
	return fmt.Sprintf("/tmp/tunefolder-%d.sock", os.Getuid())
}

// client is one connection. All writes go through out so responses and
// pushed events never interleave. quit is closed when the reader is done
// and dead when the writer exits.
type client struct {
	conn net.Conn
	out  chan []byte
	quit chan struct{}
	dead chan struct{}

	mu           sync.Mutex
	subscribed   bool
	lastPosition time.Time
}

func newClient(conn net.Conn) *client {
	return &client{
		conn: conn,
		out:  make(chan []byte, outboxSize),
		quit: make(chan struct{}),
		dead: make(chan struct{}),
	}
}

func (c *client) setSubscribed(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = v
	c.lastPosition = time.Time{}
}

// wants reports whether ev should be pushed to the client now
func (c *client) wants(ev events.Event, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.subscribed {
		return false
	}
	if ev.Kind() == events.KindPositionChanged {
		if now.Sub(c.lastPosition) < positionInterval {
			return false
		}
		c.lastPosition = now
	}
	return true
}

// writeLoop writes queued messages until the reader quits, flushes what
// is left and closes the connection. A failed write ends it early.
func (c *client) writeLoop() {
	defer close(c.dead)
	defer c.conn.Close()

	for {
		select {
		case msg := <-c.out:
			if !c.write(msg) {
				return
			}
		case <-c.quit:
			for {
				select {
				case msg := <-c.out:
					if !c.write(msg) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (c *client) write(msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if _, err := c.conn.Write(msg); err != nil {
		logx.Debugf("[IPC] Write error: %v", err)
		return false
	}
	return true
}

// send queues msg, waiting for room; responses must not be dropped
func (c *client) send(msg []byte) bool {
	select {
	case <-c.dead:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	case <-c.dead:
		return false
	}
}

// push queues msg unless the client is behind or gone
func (c *client) push(msg []byte) bool {
	select {
	case <-c.dead:
		return false
	default:
	}
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

// Server handles IPC communication with clients
type Server struct {
	socketPath string
	ctrl       *transport.Controller
	handlers   map[CommandType]handlerFunc
	now        func() time.Time

	listener net.Listener
	mu       sync.Mutex
	clients  map[net.Conn]*client
}

// NewServer creates a new IPC server for ctrl
func NewServer(socketPath string, ctrl *transport.Controller) *Server {
	s := &Server{
		socketPath: socketPath,
		ctrl:       ctrl,
		now:        time.Now,
		clients:    make(map[net.Conn]*client),
	}
	s.handlers = s.commandTable()
	return s
}

// Start listens on the socket and serves clients until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove existing socket: %w", err)
	}

	log.Printf("[IPC] Creating socket at %s", s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on socket: %w", err)
	}
	s.listener = listener

	// Set socket permissions (user-only)
	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	unsubscribe := s.ctrl.Bus().Subscribe(events.ListenerFunc(s.broadcast))
	defer unsubscribe()

	log.Printf("[IPC] Server listening, waiting for connections...")

	go s.acceptLoop(ctx)

	<-ctx.Done()

	log.Printf("[IPC] Shutting down server...")

	s.mu.Lock()
	clientCount := len(s.clients)
	for conn := range s.clients {
		conn.Close()
	}
	s.mu.Unlock()

	log.Printf("[IPC] Closed %d client connections", clientCount)

	listener.Close()
	os.RemoveAll(s.socketPath)

	log.Printf("[IPC] Server stopped")

	return nil
}

func (s *Server) acceptLoop(ctx context.Context) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				log.Printf("[IPC] Accept error: %v", err)
				continue
			}
		}

		go s.serve(ctx, conn)
	}
}

// serve runs one connection until it closes
func (s *Server) serve(ctx context.Context, conn net.Conn) {
	c := newClient(conn)

	s.mu.Lock()
	s.clients[conn] = c
	clientCount := len(s.clients)
	s.mu.Unlock()
	log.Printf("[IPC] Client connected, active clients: %d", clientCount)

	go c.writeLoop()

	defer func() {
		// Let the writer flush responses to clients that half-closed
		close(c.quit)
		<-c.dead
		s.mu.Lock()
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.mu.Unlock()
		log.Printf("[IPC] Client disconnected, active clients: %d", clientCount)
	}()

	reader := bufio.NewReader(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Read line (newline-delimited JSON)
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if err != io.EOF {
				logx.Debugf("[IPC] Read error: %v", err)
			}
			return
		}

		var resp *Response
		req, err := DecodeRequest(line)
		if err != nil {
			log.Printf("[IPC] Invalid request format: %v", err)
			resp = NewErrorResponse("invalid request format")
		} else {
			resp = s.handleRequest(ctx, c, req)
		}

		data, err := EncodeResponse(resp)
		if err != nil {
			log.Printf("[IPC] Failed to encode response: %v", err)
			return
		}
		if !c.send(append(data, '\n')) {
			return
		}
	}
}

// handleRequest dispatches one request
func (s *Server) handleRequest(ctx context.Context, c *client, req *Request) *Response {
	handler, ok := s.handlers[req.Cmd]
	if !ok {
		return NewErrorResponse("unknown command")
	}

	// Skip logging for polling commands
	polling := req.Cmd == CmdStatus
	if !polling {
		log.Printf("[IPC] Command: %s", req.Cmd)
	}

	data, err := handler(ctx, c, req.Data)
	if err != nil {
		log.Printf("[IPC] %s failed: %v", req.Cmd, err)
		return NewErrorResponse(err.Error())
	}

	resp, err := NewSuccessResponse(data)
	if err != nil {
		return NewErrorResponse("internal error")
	}
	return resp
}

// broadcast pushes ev to every subscribed client
func (s *Server) broadcast(ev events.Event) {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	if len(clients) == 0 {
		return
	}

	var msg []byte
	now := s.now()
	for _, c := range clients {
		if !c.wants(ev, now) {
			continue
		}
		if msg == nil {
			data, err := NewPushMessage(string(ev.Kind()), ev)
			if err != nil {
				log.Printf("[IPC] Failed to encode %s: %v", ev.Kind(), err)
				return
			}
			msg = append(data, '\n')
		}
		if !c.push(msg) {
			logx.Debugf("[IPC] Client is behind, dropped %s", ev.Kind())
		}
	}
}
