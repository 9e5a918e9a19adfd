package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// =============================================================================
// Client — 邮件投递服务客户端
// 通过邮件网关的HTTP接口发送纯文本通知邮件，HTML渲染由网关负责
// =============================================================================

// Client 邮件网关客户端
type Client struct {
	endpoint   string
	apiKey     string
	from       string
	httpClient *http.Client
}

// NewClient 创建邮件客户端实例
func NewClient(endpoint, apiKey, from string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SendRequest 发送邮件请求体
type SendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send 发送一封纯文本邮件
func (c *Client) Send(ctx context.Context, to, subject, text string) error {
	if c.endpoint == "" {
		return fmt.Errorf("mail endpoint not configured")
	}

	body, _ := json.Marshal(SendRequest{
		From:    c.from,
		To:      to,
		Subject: subject,
		Text:    text,
	})

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建邮件请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("请求邮件网关失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("邮件网关返回 %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
