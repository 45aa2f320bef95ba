package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/qtforge/cortex/config"
	"github.com/qtforge/cortex/pkg/constants"
	"github.com/qtforge/cortex/pkg/core"
	"github.com/qtforge/cortex/pkg/lumber"

	"github.com/avast/retry-go/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type client struct {
	cfg        *config.LLMConfig
	httpClient *http.Client
	logger     lumber.Logger
}

// NewClient returns a chat-completions client with bounded timeouts and
// retries on connect/read errors.
func NewClient(cfg *config.Config, logger lumber.Logger) core.LLMClient {
	return &client{
		cfg: &cfg.LLM,
		httpClient: &http.Client{
			Timeout: constants.DefaultLLMReadTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: constants.DefaultLLMConnectTimeout,
				}).DialContext,
				TLSHandshakeTimeout:   constants.DefaultLLMConnectTimeout,
				ResponseHeaderTimeout: constants.DefaultLLMReadTimeout,
			},
		},
		logger: logger,
	}
}

type (
	chatRequest struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		MaxTokens   int           `json:"max_tokens,omitempty"`
		Temperature float64       `json:"temperature"`
	}
	chatMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	chatResponse struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
)

func (c *client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.cfg.Endpoint == "" {
		return "", errors.New("no LLM endpoint configured")
	}
	payload, err := json.Marshal(&chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: c.cfg.Temperature,
	})
	if err != nil {
		return "", err
	}

	var completion string
	err = retry.Do(func() error {
		completion, err = c.complete(ctx, payload)
		return err
	},
		retry.Context(ctx),
		retry.Attempts(constants.LLMMaxAttempts),
		retry.LastErrorOnly(true),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Warnf("LLM request failed, retry %d, error: %v", n, err)
		}),
	)
	return completion, err
}

func (c *client) complete(ctx context.Context, payload []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("LLM endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	parsed := chatResponse{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", errors.Wrap(err, "failed to decode LLM response")
	}
	if parsed.Error != nil {
		return "", retry.Unrecoverable(errors.New(parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return "", retry.Unrecoverable(errors.New("LLM response carried no choices"))
	}
	return parsed.Choices[0].Message.Content, nil
}
