// Package openai talks to an OpenAI-compatible chat-completions endpoint
// to generate substitute search terms for a product.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/substifinder/backend/internal/domain"
)

const systemPrompt = `Você é um especialista em categorização de produtos de supermercado.
Sua tarefa é gerar termos de busca para encontrar substitutos de produtos.
Os substitutos devem ser da mesma categoria, podendo variar em marca, gramatura ou características específicas.
Retorne EXATAMENTE 5 termos, do mais específico ao mais genérico.`

const userPromptTemplate = `Produto: %s%s

Gere 5 termos de busca para encontrar substitutos deste produto em um catálogo de supermercado.

Regras:
1. Mantenha a categoria principal (ex: queijo, pão, ovo, etc)
2. Comece com termos mais específicos (incluindo marca, gramatura, características)
3. Vá generalizando gradualmente
4. O último termo deve ser o mais genérico possível (categoria + tipo)
5. NÃO inclua numeração, apenas liste os termos em linhas separadas
6. Mantenha informações importantes como: tipo do produto, gramatura aproximada, características especiais

Agora gere os 5 termos para o produto acima:`

// Client handles communication with the chat-completions API
type Client struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	rateLimiter *rate.Limiter
	logger      *log.Logger
}

// NewClient creates a new term-generation client. The API key comes from
// the environment-backed configuration, never from source.
func NewClient(apiKey, baseURL, model string, timeout time.Duration, logger *log.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}

	// One interactive operator session: a gentle request-per-second cap
	// with a small burst is plenty.
	limiter := rate.NewLimiter(rate.Limit(1), 5)

	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		apiKey:      apiKey,
		baseURL:     baseURL,
		model:       model,
		rateLimiter: limiter,
		logger:      logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends one generation request for the product and returns the
// raw completion text. Retries up to 3 times on transport and server
// errors with exponential backoff.
func (c *Client) Complete(ctx context.Context, productName, priceHint string) (string, error) {
	priceLine := ""
	if priceHint != "" {
		priceLine = fmt.Sprintf("\nPreço: R$ %s", priceHint)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate, productName, priceLine)},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	})
	if err != nil {
		return "", fmt.Errorf("%w: encoding request: %v", domain.ErrTermService, err)
	}

	endpoint := fmt.Sprintf("%s/v1/chat/completions", c.baseURL)

	const maxAttempts = 3

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: rate limiter: %v", domain.ErrTermService, err)
		}

		body, status, err := c.doRequest(ctx, endpoint, payload)
		if err != nil {
			c.logger.Warn("term request failed", "attempt", attempt, "err", err)
			lastErr = err
			// No backoff after the last attempt, the error is final.
			if attempt < maxAttempts && !sleepCtx(ctx, exponentialBackoff(attempt)) {
				return "", fmt.Errorf("%w: %v", domain.ErrTermService, ctx.Err())
			}
			continue
		}

		if status != http.StatusOK {
			c.logger.Warn("term request rejected", "attempt", attempt, "status", status)
			lastErr = fmt.Errorf("%w: status %d", domain.ErrTermService, status)
			// Client errors will not heal on retry.
			if status >= 400 && status < 500 && status != http.StatusTooManyRequests {
				return "", lastErr
			}
			if attempt < maxAttempts && !sleepCtx(ctx, exponentialBackoff(attempt)) {
				return "", fmt.Errorf("%w: %v", domain.ErrTermService, ctx.Err())
			}
			continue
		}

		var parsed chatResponse
		if err := json.Unmarshal(body, &parsed); err != nil {
			return "", fmt.Errorf("%w: decoding response: %v", domain.ErrTermService, err)
		}
		if len(parsed.Choices) == 0 {
			return "", fmt.Errorf("%w: empty choices", domain.ErrTermService)
		}

		c.logger.Debug("terms generated", "product", productName)
		return parsed.Choices[0].Message.Content, nil
	}

	return "", lastErr
}

func (c *Client) doRequest(ctx context.Context, endpoint string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: creating request: %v", domain.ErrTermService, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "SubstiFinder/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrTermService, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: reading response: %v", domain.ErrTermService, err)
	}
	return body, resp.StatusCode, nil
}

// exponentialBackoff returns the delay before the next retry attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
