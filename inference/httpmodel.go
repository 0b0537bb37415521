package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// HTTPModel is a Model implementation talking to an OpenAI-compatible
// chat-completions endpoint over net/http. Anything that satisfies the
// Model seam can replace it; this is the default production wiring.
type HTTPModel struct {
	ModelName  string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewHTTPModel builds an HTTPModel for modelName, reading its endpoint
// and API key from SCRIPTBENCH_MODEL_BASE_URL / SCRIPTBENCH_API_KEY so
// credentials never live in a config file.
func NewHTTPModel(modelName string) *HTTPModel {
	baseURL := os.Getenv("SCRIPTBENCH_MODEL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &HTTPModel{
		ModelName:  modelName,
		BaseURL:    baseURL,
		APIKey:     os.Getenv("SCRIPTBENCH_API_KEY"),
		HTTPClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (m *HTTPModel) Name() string { return m.ModelName }

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

func (m *HTTPModel) Query(ctx context.Context, messages []Message) (Reply, error) {
	body, err := json.Marshal(chatRequest{Model: m.ModelName, Messages: messages})
	if err != nil {
		return Reply{}, fmt.Errorf("http model: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("http model: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.APIKey)
	}

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return Reply{}, fmt.Errorf("http model: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, fmt.Errorf("http model: reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, fmt.Errorf("http model: status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Reply{}, fmt.Errorf("http model: decoding response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return Reply{}, fmt.Errorf("http model: response contained no choices")
	}

	return Reply{
		Content: parsed.Choices[0].Message.Content,
		Calls:   1,
		Extra:   map[string]any{"total_tokens": parsed.Usage.TotalTokens},
	}, nil
}

var _ Model = (*HTTPModel)(nil)
