package service

import (
	"assessment_engine_backend/pkg/logger"
	"assessment_engine_backend/pkg/monitoring"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	shardCount     = 32
	hubChannel     = "attempt_channel"
)

// 推送消息类型
const (
	MsgTimerSync        = "TIMER_SYNC"
	MsgAttemptCompleted = "ATTEMPT_COMPLETED"
	MsgScenarioAdvanced = "SCENARIO_ADVANCED"
	MsgError            = "ERROR"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type inboundMessage struct {
	Type string `json:"type"`
	Data struct {
		AttemptID string `json:"attemptId"`
	} `json:"data"`
}

// Notifier 向在线用户推送消息，离线时直接丢弃
type Notifier interface {
	PushToUser(userID uint, msgType string, data interface{})
}

// TimerSyncFunc 客户端请求校准倒计时时调用
type TimerSyncFunc func(ctx context.Context, userID uint, attemptID string) (interface{}, error)

type Client struct {
	Hub     *AttemptHub
	Conn    *websocket.Conn
	Send    chan []byte
	UserID  uint
	Limiter *rate.Limiter

	mu     sync.Mutex
	closed bool
}

// enqueue 发送队列已满或已关闭时丢弃
func (c *Client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- payload:
		return true
	default:
		return false
	}
}

// closeSend 可重复调用，只关闭一次
func (c *Client) closeSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.Send)
	return true
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.ctx.Done():
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Error("WebSocket unexpected close", zap.Error(err), zap.Uint("userId", c.UserID))
			}
			break
		}

		// 每秒最多 5 条，允许突发 10 条
		if !c.Limiter.Allow() {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == MsgTimerSync && msg.Data.AttemptID != "" {
			c.Hub.handleTimerSync(c, msg.Data.AttemptID)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type shard struct {
	clients map[uint]map[*Client]struct{}
	mu      sync.RWMutex
}

// AttemptHub 作答推送通道：倒计时校准与交卷通知。
// 配置了 Redis 时经 pub/sub 在多实例间转发，否则只推送本机连接
type AttemptHub struct {
	shards     [shardCount]*shard
	register   chan *Client
	unregister chan *Client
	Redis      *redis.Client
	TimerSync  TimerSyncFunc
	ctx        context.Context
	cancel     context.CancelFunc
}

func NewAttemptHub(rdb *redis.Client) *AttemptHub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &AttemptHub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		Redis:      rdb,
		ctx:        ctx,
		cancel:     cancel,
	}
	for i := 0; i < shardCount; i++ {
		h.shards[i] = &shard{clients: make(map[uint]map[*Client]struct{})}
	}
	return h
}

func (h *AttemptHub) getShard(userID uint) *shard {
	return h.shards[userID%shardCount]
}

type PubSubMessage struct {
	TargetUsers []uint          `json:"targetUsers"`
	Payload     json.RawMessage `json:"payload"`
}

func (h *AttemptHub) Run() {
	if h.Redis != nil {
		pubsub := h.Redis.Subscribe(h.ctx, hubChannel)
		go func() {
			defer pubsub.Close()
			for msg := range pubsub.Channel() {
				var psMsg PubSubMessage
				if err := json.Unmarshal([]byte(msg.Payload), &psMsg); err != nil {
					logger.Log.Error("PubSub unmarshal error", zap.Error(err))
					continue
				}
				h.pushLocal(psMsg.TargetUsers, psMsg.Payload)
			}
		}()
	}

	for {
		select {
		case <-h.ctx.Done():
			return
		case client := <-h.register:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if s.clients[client.UserID] == nil {
				s.clients[client.UserID] = make(map[*Client]struct{})
			}
			s.clients[client.UserID][client] = struct{}{}
			s.mu.Unlock()
			monitoring.HubConnections.Inc()

		case client := <-h.unregister:
			s := h.getShard(client.UserID)
			s.mu.Lock()
			if set, ok := s.clients[client.UserID]; ok {
				if _, ok := set[client]; ok {
					delete(set, client)
					client.closeSend()
					monitoring.HubConnections.Dec()
				}
				if len(set) == 0 {
					delete(s.clients, client.UserID)
				}
			}
			s.mu.Unlock()
		}
	}
}

// Stop 关闭所有连接
func (h *AttemptHub) Stop() {
	logger.Log.Info("AttemptHub stopping: closing connections...")
	h.cancel()

	closed := 0
	for i := 0; i < shardCount; i++ {
		s := h.shards[i]
		s.mu.Lock()
		for userID, set := range s.clients {
			for client := range set {
				if client.closeSend() {
					closed++
				}
			}
			delete(s.clients, userID)
		}
		s.mu.Unlock()
	}

	monitoring.HubConnections.Set(0)
	logger.Log.Info("AttemptHub stopped", zap.Int("closedConnections", closed))
}

func (h *AttemptHub) PushToUser(userID uint, msgType string, data interface{}) {
	h.PushToUsers([]uint{userID}, WSMessage{Type: msgType, Data: data})
}

func (h *AttemptHub) PushToUsers(userIDs []uint, msg WSMessage) {
	msgBytes, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Error("WebSocket message marshal failed", zap.Error(err), zap.String("type", msg.Type))
		return
	}
	if h.Redis == nil {
		h.pushLocal(userIDs, msgBytes)
		return
	}
	payload, _ := json.Marshal(PubSubMessage{TargetUsers: userIDs, Payload: msgBytes})
	if err := h.Redis.Publish(h.ctx, hubChannel, payload).Err(); err != nil {
		logger.Log.Warn("Redis publish failed, delivering locally", zap.Error(err))
		h.pushLocal(userIDs, msgBytes)
	}
}

func (h *AttemptHub) pushLocal(userIDs []uint, payload []byte) {
	for _, id := range userIDs {
		s := h.getShard(id)
		s.mu.RLock()
		for client := range s.clients[id] {
			client.enqueue(payload)
		}
		s.mu.RUnlock()
	}
}

func (h *AttemptHub) handleTimerSync(c *Client, attemptID string) {
	if h.TimerSync == nil {
		return
	}
	ctx, cancel := context.WithTimeout(h.ctx, 5*time.Second)
	defer cancel()

	data, err := h.TimerSync(ctx, c.UserID, attemptID)
	msg := WSMessage{Type: MsgTimerSync, Data: data}
	if err != nil {
		msg = WSMessage{Type: MsgError, Data: map[string]string{"attemptId": attemptID, "message": err.Error()}}
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.enqueue(raw)
}

// IsUserOnline 仅检查本机连接
func (h *AttemptHub) IsUserOnline(userID uint) bool {
	s := h.getShard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients[userID]) > 0
}

func ServeWs(hub *AttemptHub, w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("WebSocket upgrade failed", zap.Error(err), zap.Uint("userId", userID))
		return
	}
	client := &Client{
		Hub:     hub,
		Conn:    conn,
		Send:    make(chan []byte, 64),
		UserID:  userID,
		Limiter: rate.NewLimiter(rate.Limit(5), 10),
	}
	select {
	case hub.register <- client:
	case <-hub.ctx.Done():
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
