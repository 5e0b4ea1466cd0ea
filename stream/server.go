// Package stream broadcasts world snapshots to websocket clients, for viewers and recorders
// that drive or watch a simulation from outside the process.
package stream

import (
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const DefaultPingInterval = 2 * time.Second

// safeWriter serialises the writes to one websocket connection
type safeWriter struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func newSafeWriter(conn *websocket.Conn) *safeWriter {
	return &safeWriter{conn: conn}
}

func (w *safeWriter) WriteJSON(v interface{}) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *safeWriter) WriteMessage(messageType int, data []byte) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.WriteMessage(messageType, data)
}

func (w *safeWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.conn.Close()
}

// Server accepts websocket clients and sends them every snapshot passed to Broadcast.
// A new client first receives a welcome message and the latest snapshot.
type Server struct {
	Logger       *log.Logger
	PingInterval time.Duration

	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*safeWriter]struct{}
	last    *Snapshot
}

func NewServer() *Server {
	return &Server{
		Logger:       log.New(os.Stderr, "[ligament] ", log.LstdFlags),
		PingInterval: DefaultPingInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*safeWriter]struct{}),
	}
}

// HandleWS upgrades the request and serves the client until it disconnects
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.Printf("stream: upgrade: %v", err)
		return
	}
	client := newSafeWriter(conn)
	defer func() {
		s.remove(client)
		client.Close()
	}()

	if err := s.register(client); err != nil {
		s.Logger.Printf("stream: %s: %v", conn.RemoteAddr(), err)
		return
	}
	s.Logger.Printf("stream: %s connected", conn.RemoteAddr())

	done := make(chan struct{})
	defer close(done)
	if s.PingInterval > 0 {
		go s.ping(client, done)
	}

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Logger.Printf("stream: %s: %v", conn.RemoteAddr(), err)
			}
			return
		}
	}
}

// register sends the welcome and the latest snapshot, then adds the client. Broadcasts wait
// for it, so the client never sees a snapshot older than the one it started with.
func (s *Server) register(client *safeWriter) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := client.WriteJSON(InfoMessage{Type: MessageTypeInfo, Message: "ligament stream"}); err != nil {
		return err
	}
	if s.last != nil {
		if err := client.WriteJSON(s.last); err != nil {
			return err
		}
	}
	s.clients[client] = struct{}{}
	return nil
}

func (s *Server) remove(client *safeWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, client)
}

func (s *Server) ping(client *safeWriter, done <-chan struct{}) {
	ticker := time.NewTicker(s.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := client.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Broadcast sends the snapshot to every client. A client that cannot be written to is dropped.
func (s *Server) Broadcast(snapshot Snapshot) {
	s.mu.Lock()
	s.last = &snapshot
	clients := make([]*safeWriter, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		if err := client.WriteJSON(snapshot); err != nil {
			s.Logger.Printf("stream: dropping client: %v", err)
			s.remove(client)
			client.Close()
		}
	}
}

// Clients is the number of connected clients
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Close disconnects every client
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		client.Close()
		delete(s.clients, client)
	}
}
