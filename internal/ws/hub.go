package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Hub fans one log channel of one profile out to websocket clients and keeps
// a bounded history for late joiners.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	stopOnce   sync.Once

	// OnCommand receives text frames sent by clients. Nil drops them.
	OnCommand func(message []byte)

	history        [][]byte
	maxHistory     int
	clearHistory   chan struct{}
	setHistorySize chan int

	logger *zap.Logger
	mu     sync.RWMutex
}

func NewHubWithHistorySize(maxHistory int, logger *zap.Logger) *Hub {
	if maxHistory < 0 {
		maxHistory = 0
	}
	h := &Hub{
		broadcast:      make(chan []byte, 4096),
		register:       make(chan *Client),
		unregister:     make(chan *Client),
		clients:        make(map[*Client]bool),
		stop:           make(chan struct{}),
		maxHistory:     maxHistory,
		clearHistory:   make(chan struct{}, 1),
		setHistorySize: make(chan int, 1),
		logger:         logger,
	}
	if maxHistory > 0 {
		h.history = make([][]byte, 0, maxHistory)
	}
	return h
}

func (h *Hub) GetHistorySnapshot() [][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.history) == 0 {
		return nil
	}
	copyHist := make([][]byte, len(h.history))
	copy(copyHist, h.history)
	return copyHist
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			for _, msg := range h.GetHistorySnapshot() {
				select {
				case client.send <- msg:
				default:
				}
			}
			h.clients[client] = true

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}

		case message := <-h.broadcast:
			if h.maxHistory > 0 {
				h.mu.Lock()
				h.history = append(h.history, message)
				if len(h.history) > h.maxHistory {
					h.history = h.history[1:]
				}
				h.mu.Unlock()
			}

			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}

		case newSize := <-h.setHistorySize:
			h.mu.Lock()
			if newSize <= 0 {
				h.history = nil
			} else if len(h.history) > newSize {
				h.history = h.history[len(h.history)-newSize:]
			}
			h.maxHistory = newSize
			h.mu.Unlock()

		case <-h.clearHistory:
			h.mu.Lock()
			h.history = nil
			h.mu.Unlock()

		case <-h.stop:
			for client := range h.clients {
				close(client.send)
			}
			h.mu.Lock()
			h.history = nil
			h.mu.Unlock()
			return
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

func (h *Hub) ClearLogs() {
	select {
	case h.clearHistory <- struct{}{}:
	default:
	}
}

func (h *Hub) SetHistorySize(size int) {
	if size < 0 {
		size = 0
	}
	select {
	case h.setHistorySize <- size:
	default:
		go func() {
			select {
			case h.setHistorySize <- size:
			case <-h.stop:
			}
		}()
	}
}

// Broadcast never blocks once the hub is stopped.
func (h *Hub) Broadcast(message []byte) {
	msg := append([]byte(nil), message...)
	select {
	case h.broadcast <- msg:
	case <-h.stop:
	}
}

func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	client := &Client{hub: h, conn: conn, send: make(chan []byte, 256)}

	go client.writePump()
	go client.readPump()

	select {
	case h.register <- client:
	case <-h.stop:
		conn.Close()
	}
}
