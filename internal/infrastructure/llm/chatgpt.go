// Package llm generates synthetic topics through OpenAI-compatible chat
// APIs.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"SignalScanner/internal/config"
	"SignalScanner/internal/domain"
	"SignalScanner/internal/ports"
)

// ChatGPTClient implements ports.ChatClient backed by OpenAI-compatible
// APIs.
type ChatGPTClient struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.ChatClient = (*ChatGPTClient)(nil)

// NewChatGPTClient builds a client from configuration.
func NewChatGPTClient(cfg config.ChatGPTConfig) *ChatGPTClient {
	return &ChatGPTClient{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// GenerateTopics asks the model for n publishable topics as a JSON
// array of {title, summary, category} objects.
func (c *ChatGPTClient) GenerateTopics(ctx context.Context, n int) ([]domain.Topic, error) {
	prompt := fmt.Sprintf(
		"Produce %d current AI/ML topics worth publishing as short posts. "+
			"Respond with only a JSON array of objects with fields "+
			"\"title\", \"summary\" and \"category\".", n)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var topics []domain.Topic
	if err := json.Unmarshal([]byte(stripFences(content)), &topics); err != nil {
		return nil, fmt.Errorf("decode topics: %w", err)
	}

	valid := topics[:0]
	for _, topic := range topics {
		if strings.TrimSpace(topic.Title) == "" {
			continue
		}
		valid = append(valid, topic)
	}
	if n > 0 && len(valid) > n {
		valid = valid[:n]
	}
	return valid, nil
}

// GenerateSupplementary asks the model for one to three follow-up entry
// bodies for the topic, as a JSON array of strings.
func (c *ChatGPTClient) GenerateSupplementary(ctx context.Context, topic domain.Topic) ([]string, error) {
	prompt := fmt.Sprintf(
		"Write 1 to 3 short follow-up paragraphs expanding on the topic %q (%s). "+
			"Respond with only a JSON array of strings.", topic.Title, topic.Summary)

	content, err := c.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var bodies []string
	if err := json.Unmarshal([]byte(stripFences(content)), &bodies); err != nil {
		return nil, fmt.Errorf("decode supplementary entries: %w", err)
	}

	valid := bodies[:0]
	for _, body := range bodies {
		if strings.TrimSpace(body) == "" {
			continue
		}
		valid = append(valid, body)
	}
	return valid, nil
}

func (c *ChatGPTClient) complete(ctx context.Context, userPrompt string) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("chatgpt client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": userPrompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chatgpt payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("call chatgpt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("chatgpt error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", fmt.Errorf("decode chatgpt response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("chatgpt returned no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// stripFences removes a markdown code fence some models wrap JSON in.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "```") {
		return content
	}
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You curate concise AI research and engineering topics."
	}
	return prompt
}
