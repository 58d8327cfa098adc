package ws

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/net/websocket"
)

type Handler struct {
	hub    *Hub
	logger *slog.Logger
}

func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{hub: hub, logger: logger}
}

type subscribeMessage struct {
	Action   string `json:"action"`
	Channel  string `json:"channel"`
	MemberID int64  `json:"memberId"`
}

func (h *Handler) HandleWebSocket(c *gin.Context) {
	websocket.Handler(func(conn *websocket.Conn) {
		client := NewClient(conn)
		h.logger.Debug("ws client connected", "client_id", client.ID)
		go h.writer(client)
		h.reader(client)
		h.logger.Debug("ws client disconnected", "client_id", client.ID)
	}).ServeHTTP(c.Writer, c.Request)
}

func (h *Handler) reader(client *Client) {
	defer func() {
		h.hub.UnsubscribeAll(client)
		client.close()
		_ = client.conn.Close()
	}()

	for {
		var raw string
		if err := websocket.Message.Receive(client.conn, &raw); err != nil {
			return
		}
		var msg subscribeMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			continue
		}
		topic := subscriptionTopic(msg)
		if topic == "" {
			continue
		}
		var status string
		switch strings.ToLower(strings.TrimSpace(msg.Action)) {
		case "subscribe":
			h.hub.Subscribe(topic, client)
			status = "subscribed"
		case "unsubscribe":
			h.hub.Unsubscribe(topic, client)
			status = "unsubscribed"
		default:
			continue
		}
		ack, _ := json.Marshal(map[string]string{"type": status, "channel": topic})
		client.send(ack)
	}
}

func (h *Handler) writer(client *Client) {
	for payload := range client.out {
		if err := websocket.Message.Send(client.conn, string(payload)); err != nil {
			return
		}
	}
}

func MemberLoansChannel(memberID int64) string {
	return "member:" + strconv.FormatInt(memberID, 10) + ":loans"
}

func subscriptionTopic(msg subscribeMessage) string {
	channel := strings.ToLower(strings.TrimSpace(msg.Channel))
	switch channel {
	case ChannelCirculation:
		return ChannelCirculation
	case "member:loans":
		if msg.MemberID <= 0 {
			return ""
		}
		return MemberLoansChannel(msg.MemberID)
	default:
		return ""
	}
}
