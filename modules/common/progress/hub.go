package progress

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Event 타입
const (
	EventUploadStarted = "upload_started"
	EventPlanReady     = "plan_ready"
	EventPassStarted   = "pass_started"
	EventPassCompleted = "pass_completed"
	EventSecuring      = "securing"
	EventCompleted     = "completed"
	EventFailed        = "failed"
)

// Event - 생성 진행 상황 메시지
type Event struct {
	Type      string                 `json:"type"`
	SessionID string                 `json:"sessionId"`
	Pass      int                    `json:"pass,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Notifier - 진행 상황 수신자
type Notifier interface {
	Notify(sessionID string, event Event)
}

// Nop - 아무것도 하지 않는 Notifier
type Nop struct{}

func (Nop) Notify(string, Event) {}

// 연결된 클라이언트 정보
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub - 세션별 websocket 클라이언트에 진행 상황 브로드캐스트
type Hub struct {
	upgrader websocket.Upgrader
	sessions map[string]map[*client]struct{}
	mutex    sync.RWMutex
}

// NewHub - Hub 생성
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// 진행 상황은 공개 정보만 담으므로 모든 origin 허용
				return true
			},
		},
		sessions: make(map[string]map[*client]struct{}),
	}
}

// HandleWebSocket - GET /ws?session={sessionId}
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.add(sessionID, c)

	go h.writePump(c)
	go h.readPump(sessionID, c)
}

func (h *Hub) add(sessionID string, c *client) {
	h.mutex.Lock()
	clients, ok := h.sessions[sessionID]
	if !ok {
		clients = make(map[*client]struct{})
		h.sessions[sessionID] = clients
	}
	clients[c] = struct{}{}
	count := len(clients)
	h.mutex.Unlock()

	log.Printf("👤 Progress listener joined session %s (listeners: %d)", sessionID, count)
}

func (h *Hub) remove(sessionID string, c *client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.sessions[sessionID]
	if !ok {
		return
	}
	if _, exists := clients[c]; !exists {
		return
	}
	close(c.send)
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.sessions, sessionID)
	}
}

// readPump - 클라이언트 메시지는 무시하고 연결 종료만 감지
func (h *Hub) readPump(sessionID string, c *client) {
	defer func() {
		h.remove(sessionID, c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			return
		}
	}
}

// writePump - send 채널의 메시지를 연결로 쓰기
func (h *Hub) writePump(c *client) {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Printf("WebSocket write error: %v", err)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// Notify - 세션의 모든 리스너에게 이벤트 전송 (느린 리스너는 이벤트를 건너뜀)
func (h *Hub) Notify(sessionID string, event Event) {
	if sessionID == "" {
		return
	}

	event.SessionID = sessionID
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling progress event: %v", err)
		return
	}

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for c := range h.sessions[sessionID] {
		select {
		case c.send <- messageBytes:
		default:
			log.Printf("⚠️  Progress listener in session %s is slow, dropping %s", sessionID, event.Type)
		}
	}
}

// ListenerCount - 세션의 리스너 수
func (h *Hub) ListenerCount(sessionID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.sessions[sessionID])
}
