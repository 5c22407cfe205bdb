package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ErrEmptyReply is returned when the model answers with no content.
var ErrEmptyReply = errors.New("no response from AI")

type Client struct {
	client *openai.Client
	model  string
	loc    *time.Location
}

func New(apiKey, baseURL, model string, loc *time.Location) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
		loc:    loc,
	}
}

func (c *Client) SetModel(model string) {
	c.model = model
}

// Message represents a chat message for multi-turn conversations
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

const systemPromptTemplate = `You are a direct Indian nutritionist coaching a 33yo male: 84kg→74kg goal, stuck 1.5yr. North Indian veg, family eats potato/paneer heavy. Issues: Large sabzi+ghee, water during meals, namkeen at 4:30PM, fast food 3x/week. Exercise: HIIT+weights 6days/week at 8:30AM IST. Be DIRECT (2-4 sentences), give EXACT portions, focus PORTION CONTROL.

Current time: %s
Workout done today: %t`

// Context is what the coach knows about the day.
type Context struct {
	Now         time.Time
	WorkoutDone bool
}

func (c *Client) systemPrompt(day Context) string {
	now := day.Now
	if now.IsZero() {
		now = time.Now()
	}
	if c.loc != nil {
		now = now.In(c.loc)
	}
	return fmt.Sprintf(systemPromptTemplate, now.Format("2006-01-02 15:04 (Monday)"), day.WorkoutDone)
}

// Coach answers the latest user message in history.
func (c *Client) Coach(ctx context.Context, day Context, history []Message) (string, error) {
	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: c.systemPrompt(day),
		},
	}
	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   500,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("failed to call AI API: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyReply
	}

	return resp.Choices[0].Message.Content, nil
}
