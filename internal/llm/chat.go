package llm

import (
	"context"
)

const chatMaxTokens = 2048

// ChatMessage is one prior turn of a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Chatter is the conversational capability consumed by the assistant
// endpoint.
type Chatter interface {
	Chat(ctx context.Context, system string, history []ChatMessage, message string) (string, error)
}

// Chat answers one conversational turn given a system instruction and the
// prior exchange. History arrives oldest first.
func (c *Client) Chat(ctx context.Context, system string, history []ChatMessage, message string) (string, error) {
	messages := make([]apiMessage, 0, len(history)+2)
	messages = append(messages, apiMessage{Role: "system", Content: system})
	for _, m := range history {
		role := m.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, apiMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, apiMessage{Role: "user", Content: message})

	resp, err := c.send(ctx, &apiRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: chatMaxTokens,
	}, false)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
