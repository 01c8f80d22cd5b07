package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/z-salon/backend/internal/model/speech"
	chatservice "github.com/zhouzirui/z-salon/backend/internal/service/chat"
)

const (
	readTimeout  = 60 * time.Second
	pingInterval = 54 * time.Second
	writeTimeout = 10 * time.Second
)

// Transcriber turns recorded audio into a prompt.
type Transcriber interface {
	TranscribeBuffer(ctx context.Context, sessionID string, audioData []byte, filename, format, language string) (*speech.ASRResponse, error)
}

// WebSocketHandler WebSocket聊天处理器
type WebSocketHandler struct {
	chatSvc     *chatservice.Service
	transcriber Transcriber
	upgrader    websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器。transcriber 为 nil 时不接受音频消息。
func NewWebSocketHandler(chatSvc *chatservice.Service, transcriber Transcriber) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc:     chatSvc,
		transcriber: transcriber,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/chat/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextMessage 文本消息
type TextMessage struct {
	Text string `json:"text"`
}

// AudioMessage 音频消息，一次发送一段完整录音
type AudioMessage struct {
	AudioData []byte `json:"audioData"`
	Filename  string `json:"filename"`
	Format    string `json:"format"`
	Language  string `json:"language"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; gorilla allows one concurrent writer.
type wsConn struct {
	*websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.WriteJSON(v)
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	p, err := h.chatSvc.SessionPersona(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	conn := &wsConn{Conn: raw}
	defer conn.Close()

	log.Printf("[websocket] new connection for session: %s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return nil
	})

	go h.pingLoop(ctx, conn)

	h.sendInfo(conn, sessionID, map[string]any{
		"type":    "connected",
		"persona": p.ID,
		"audio":   h.transcriber != nil,
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))

		if msg.SessionID != "" && msg.SessionID != sessionID {
			h.sendError(conn, "session mismatch")
			continue
		}

		h.handleMessage(ctx, conn, sessionID, &msg)
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, conn *wsConn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "text", "prompt":
		var text TextMessage
		if err := json.Unmarshal(msg.Data, &text); err != nil {
			h.sendError(conn, "invalid text payload")
			return
		}
		if err := h.processUserText(ctx, conn, sessionID, text.Text); err != nil {
			h.sendError(conn, err.Error())
		}
	case "audio":
		h.handleAudioMessage(ctx, conn, sessionID, msg.Data)
	case "reset":
		session, err := h.chatSvc.Reset(ctx, sessionID)
		if err != nil {
			h.sendError(conn, err.Error())
			return
		}
		h.sendInfo(conn, sessionID, map[string]any{
			"type":  "reset",
			"state": session.State,
		})
	default:
		h.sendError(conn, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleAudioMessage(ctx context.Context, conn *wsConn, sessionID string, raw json.RawMessage) {
	if h.transcriber == nil {
		h.sendError(conn, "audio input unavailable")
		return
	}

	var audio AudioMessage
	if err := json.Unmarshal(raw, &audio); err != nil {
		h.sendError(conn, "invalid audio payload")
		return
	}

	log.Printf("[websocket] transcribing audio session=%s bytes=%d", sessionID, len(audio.AudioData))
	asrResp, err := h.transcriber.TranscribeBuffer(ctx, sessionID, audio.AudioData, audio.Filename, audio.Format, audio.Language)
	if err != nil {
		h.sendError(conn, fmt.Sprintf("transcription failed: %v", err))
		return
	}

	h.sendInfo(conn, sessionID, map[string]any{
		"type": "asr",
		"text": asrResp.Text,
	})

	if asrResp.Text == "" {
		return
	}
	if err := h.processUserText(ctx, conn, sessionID, asrResp.Text); err != nil {
		h.sendError(conn, err.Error())
	}
}

func (h *WebSocketHandler) processUserText(ctx context.Context, conn *wsConn, sessionID, userText string) error {
	if strings.TrimSpace(userText) == "" {
		return chatservice.ErrEmptyPrompt
	}

	h.sendInfo(conn, sessionID, map[string]any{
		"type": "user",
		"text": userText,
	})

	reply, err := h.chatSvc.SendStream(ctx, sessionID, userText, func(delta string) error {
		return conn.writeJSON(outgoingMessage{
			Type:      "result",
			SessionID: sessionID,
			Data:      map[string]any{"type": "ai_delta", "text": delta},
			Timestamp: time.Now().Unix(),
		})
	})
	if err != nil {
		if errors.Is(err, chatservice.ErrGenerationUnavailable) {
			return err
		}
		return fmt.Errorf("ai generation failed: %w", err)
	}

	kind := "ai"
	if reply.Rejected {
		kind = "rejected"
	}
	h.sendInfo(conn, sessionID, map[string]any{
		"type":    kind,
		"text":    reply.Content,
		"state":   reply.State,
		"isFinal": true,
	})
	return nil
}

func (h *WebSocketHandler) sendInfo(conn *wsConn, sessionID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		SessionID: sessionID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("[websocket] write info failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(conn *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := conn.writeJSON(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

// pingLoop 定期发送ping消息
func (h *WebSocketHandler) pingLoop(ctx context.Context, conn *wsConn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
