// Package capitol 提供外部故事生成服务的客户端
package capitol

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"story-studio/internal/config"
	"story-studio/internal/domain/entity"
	"story-studio/pkg/metrics"
)

var tracer = otel.Tracer("capitol")

const userAgent = "story-studio/1.0"

// Options 客户端可选依赖
type Options struct {
	HTTPClient *http.Client
	Dialer     *websocket.Dialer
}

// Client 外部故事生成服务客户端
type Client struct {
	apiURL  string
	chatURL string
	apiKey  string
	domain  string
	userID  string
	http    *http.Client
	dialer  *websocket.Dialer
}

// NewClient 创建客户端，API Key 不合法时返回错误
func NewClient(cfg *config.CapitolConfig, opts Options) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("capitol config is nil")
	}

	key, err := NormalizeAPIKey(cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("invalid capitol api key: %w", err)
	}

	apiURL, err := normalizeBaseURL(cfg.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid capitol api url: %w", err)
	}
	chatURL := ""
	if strings.TrimSpace(cfg.ChatURL) != "" {
		if chatURL, err = normalizeBaseURL(cfg.ChatURL); err != nil {
			return nil, fmt.Errorf("invalid capitol chat url: %w", err)
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	return &Client{
		apiURL:  apiURL,
		chatURL: chatURL,
		apiKey:  key,
		domain:  cfg.Domain,
		userID:  cfg.UserID,
		http:    httpClient,
		dialer:  dialer,
	}, nil
}

// normalizeBaseURL 校验协议并去掉末尾斜杠
func normalizeBaseURL(raw string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
	if trimmed == "" {
		return "", fmt.Errorf("url is missing")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q in %s", u.Scheme, trimmed)
	}
	return trimmed, nil
}

// Generate 触发一次故事生成
func (c *Client) Generate(ctx context.Context, req entity.GenerationRequest) (*entity.GenerationResult, error) {
	ctx, span := tracer.Start(ctx, "capitol.Generate",
		trace.WithAttributes(attribute.String("story.request_id", req.StoryID)))
	defer span.End()

	var result entity.GenerationResult
	code, err := c.doJSON(ctx, "generate", http.MethodPost, c.apiURL+"/generate", req, &result)
	if err == nil && code == http.StatusNotFound {
		err = &APIError{Operation: "generate", StatusCode: code}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.String("story.created_id", result.CreatedID()))
	return &result, nil
}

// GetStory 获取故事；404 时返回 nil, nil
func (c *Client) GetStory(ctx context.Context, storyID string) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "capitol.GetStory",
		trace.WithAttributes(attribute.String("story.id", storyID)))
	defer span.End()

	var raw json.RawMessage
	code, err := c.doJSON(ctx, "get_story", http.MethodGet, c.storyURL(storyID), nil, &raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if code == http.StatusNotFound {
		return nil, nil
	}
	return decodeStory(storyID, raw)
}

// UpdateStory 保存故事内容
func (c *Client) UpdateStory(ctx context.Context, storyID string, patch entity.StoryPatch) (*entity.Story, error) {
	ctx, span := tracer.Start(ctx, "capitol.UpdateStory",
		trace.WithAttributes(attribute.String("story.id", storyID)))
	defer span.End()

	var raw json.RawMessage
	code, err := c.doJSON(ctx, "update_story", http.MethodPut, c.storyURL(storyID), patch, &raw)
	if err == nil && code == http.StatusNotFound {
		err = &APIError{Operation: "update_story", StatusCode: code}
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if len(raw) == 0 {
		return &entity.Story{ID: storyID, Content: patch.Content}, nil
	}
	return decodeStory(storyID, raw)
}

func (c *Client) storyURL(storyID string) string {
	return c.apiURL + "/stories/" + url.PathEscape(storyID)
}

// decodeStory 只解析本地需要的字段，其余保留在 Raw
func decodeStory(storyID string, raw json.RawMessage) (*entity.Story, error) {
	story := &entity.Story{ID: storyID, Raw: raw}
	if len(raw) == 0 || string(raw) == "null" {
		return story, nil
	}

	var fields struct {
		ID      string `json:"id"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode story %s: %w", storyID, err)
	}
	if fields.ID != "" {
		story.ID = fields.ID
	}
	story.Content = fields.Content
	return story, nil
}

// doJSON 发送 JSON 请求并解码响应，返回状态码
// 404 不视为错误，由调用方决定语义；响应体为空时 out 保持不变
func (c *Client) doJSON(ctx context.Context, op, method, target string, body, out any) (int, error) {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.UpstreamCallTotal.WithLabelValues(op, status).Inc()
		metrics.UpstreamCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal %s request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("capitol %s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, &APIError{
			Operation:  op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read %s response: %w", op, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode %s response: %w", op, err)
	}
	return resp.StatusCode, nil
}
