package capitol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"story-studio/internal/domain/entity"
	"story-studio/pkg/metrics"
)

// chatHeaders 聊天接口使用独立的鉴权头
func (c *Client) chatHeaders() http.Header {
	h := http.Header{}
	h.Set("X-API-Key", c.apiKey)
	h.Set("X-Domain", c.domain)
	h.Set("X-User-ID", c.userID)
	h.Set("User-Agent", userAgent)
	return h
}

// StartChat 发起异步聊天，返回 websocket 地址
func (c *Client) StartChat(ctx context.Context, chatReq entity.ChatRequest) (*entity.ChatSession, error) {
	ctx, span := tracer.Start(ctx, "capitol.StartChat",
		trace.WithAttributes(attribute.String("story.id", chatReq.StoryID)))
	defer span.End()

	session, err := c.startChat(ctx, chatReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return session, nil
}

func (c *Client) startChat(ctx context.Context, chatReq entity.ChatRequest) (*entity.ChatSession, error) {
	if c.chatURL == "" {
		return nil, fmt.Errorf("capitol chat url not configured")
	}

	start := time.Now()
	status := "error"
	defer func() {
		metrics.UpstreamCallTotal.WithLabelValues("start_chat", status).Inc()
		metrics.UpstreamCallDuration.WithLabelValues("start_chat").Observe(time.Since(start).Seconds())
	}()

	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.chatURL+"/chat/async", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build chat request: %w", err)
	}
	req.Header = c.chatHeaders()
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("capitol start_chat request failed: %w", err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Operation:  "start_chat",
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	var session entity.ChatSession
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode chat response: %w", err)
	}
	if strings.TrimSpace(session.SocketAddress) == "" {
		return nil, fmt.Errorf("chat response has no socketAddress")
	}
	return &session, nil
}

// StreamChat 连接 websocket 并逐帧回调
// 收到结束帧或服务端正常关闭时返回 nil；ctx 取消时返回 ctx.Err()
func (c *Client) StreamChat(ctx context.Context, socketAddress string, fn func(entity.ChatFrame) error) error {
	ctx, span := tracer.Start(ctx, "capitol.StreamChat")
	defer span.End()

	conn, resp, err := c.dialer.DialContext(ctx, socketAddress, c.chatHeaders())
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to dial chat stream: %w", err)
	}
	defer conn.Close()

	// ctx 取消时关闭连接以打断阻塞的读
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	frames := 0
	defer func() {
		span.SetAttributes(attribute.Int("chat.frames", frames))
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			span.RecordError(err)
			return fmt.Errorf("chat stream read failed: %w", err)
		}

		frame := parseFrame(data)
		frames++
		metrics.ChatFramesTotal.WithLabelValues(frameLabel(frame)).Inc()

		if err := fn(frame); err != nil {
			return err
		}
		if frame.Terminal() {
			closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
			return nil
		}
	}
}

// parseFrame 解析帧类型，非 JSON 帧原样保留
func parseFrame(data []byte) entity.ChatFrame {
	frame := entity.ChatFrame{Raw: json.RawMessage(append([]byte(nil), data...))}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err == nil {
		frame.Type = head.Type
	}
	return frame
}

// frameLabel 限定指标标签取值
func frameLabel(f entity.ChatFrame) string {
	switch {
	case f.Type == "":
		return "raw"
	case f.Terminal():
		return entity.ChatFrameTerminate
	default:
		return "message"
	}
}
