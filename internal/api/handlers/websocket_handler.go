package handlers

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/adgraph/backend/internal/rag"
	"github.com/adgraph/backend/pkg/logger"
)

type WebSocketHandler struct {
	engine *rag.Engine
}

func NewWebSocketHandler(engine *rag.Engine) *WebSocketHandler {
	return &WebSocketHandler{
		engine: engine,
	}
}

func (h *WebSocketHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("WebSocket connection established")

	defer func() {
		c.Close()
		logger.Info("WebSocket connection closed")
	}()

	for {
		var msg struct {
			Type      string `json:"type"`
			Content   string `json:"content"`
			ClientID  string `json:"client_id"`
			UserRole  string `json:"user_role"`
			SessionID string `json:"session_id"`
		}

		if err := c.ReadJSON(&msg); err != nil {
			logger.Error("Failed to read WebSocket message", zap.Error(err))
			break
		}

		if msg.Type != "query" {
			continue
		}

		if msg.Content == "" || msg.ClientID == "" {
			h.sendError(c, "content and client_id are required")
			continue
		}

		logger.Info("Processing WebSocket query",
			zap.String("client_id", msg.ClientID),
			zap.String("session_id", msg.SessionID),
		)

		err := h.streamResponse(c, rag.Request{
			Query:     msg.Content,
			ClientID:  msg.ClientID,
			UserRole:  msg.UserRole,
			SessionID: msg.SessionID,
		})
		if err != nil {
			logger.Error("Failed to stream response", zap.Error(err))
			h.sendError(c, "Failed to process query")
		}
	}
}

func (h *WebSocketHandler) streamResponse(c *websocket.Conn, req rag.Request) error {
	ctx := context.Background()

	h.sendChunk(c, "status", "Processing query...")

	result, err := h.engine.Answer(ctx, req)
	if err != nil {
		return err
	}

	words := splitIntoWords(result.Answer)
	for i, word := range words {
		chunk := word
		if i < len(words)-1 && word != "\n" {
			chunk += " "
		}

		if err := h.sendChunk(c, "chunk", chunk); err != nil {
			return err
		}
	}

	return h.sendComplete(c, result)
}

func (h *WebSocketHandler) sendChunk(c *websocket.Conn, msgType, content string) error {
	return c.WriteJSON(map[string]interface{}{
		"type":    msgType,
		"content": content,
	})
}

func (h *WebSocketHandler) sendComplete(c *websocket.Conn, result *rag.QueryResult) error {
	return c.WriteJSON(map[string]interface{}{
		"type":                 "complete",
		"query_id":             result.QueryID,
		"sources":              result.Sources,
		"confidence":           result.Confidence,
		"recommendations":      result.Recommendations,
		"drill_down_available": result.DrillDownAvailable,
	})
}

func (h *WebSocketHandler) sendError(c *websocket.Conn, errorMsg string) {
	c.WriteJSON(map[string]interface{}{
		"type":  "error",
		"error": errorMsg,
	})
}

func splitIntoWords(text string) []string {
	words := []string{}
	currentWord := ""

	for _, char := range text {
		if char == ' ' || char == '\n' {
			if currentWord != "" {
				words = append(words, currentWord)
				currentWord = ""
			}
			if char == '\n' {
				words = append(words, "\n")
			}
		} else {
			currentWord += string(char)
		}
	}

	if currentWord != "" {
		words = append(words, currentWord)
	}

	return words
}
