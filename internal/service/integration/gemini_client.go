package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

var ErrMissingAPIKey = errors.New("assistant api key is not configured")

const SystemInstruction = `You are the "Relief Fund Assistant", a helpful AI support agent for the Student Relief Fund.
Your goal is to assist university students with their funding applications.
The fund supports over 60 students.

Key Information to know:
1. Documents Required:
   - Valid Student ID or National ID.
   - Latest Academic Transcript/Grades (Must have GPA > 2.5).
   - Fee Statement (Student Account) showing outstanding balance.
   - Proof of Payment (POP) or Registration for the current semester.

2. Process:
   - Students upload documents via the "Documents" tab.
   - Enter bank details in the "Profile" tab.
   - Applications are reviewed within 5-7 business days.
   - Disbursements happen on the 1st and 15th of each month.

3. Tone:
   - Empathetic, professional, clear, and encouraging.
   - Keep answers concise (under 100 words unless detail is requested).

If a student asks about technical issues, tell them to contact support@studentrelief.org.
If they ask about specific approval status, tell them to check the "Dashboard" as you don't have access to their private live database.`

// TextGenerator produces a reply for one user message within a session.
// Sessions never share history. An empty reply is not an error.
type TextGenerator interface {
	Send(ctx context.Context, sessionID, text string) (string, error)
}

type GeminiConfig struct {
	APIKey       string
	Model        string
	BaseURL      string
	Timeout      time.Duration
	HistoryLimit int
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

type geminiClient struct {
	apiKey       string
	model        string
	baseURL      string
	historyLimit int
	client       *http.Client
	logger       zerolog.Logger

	// one chat session per conversation, created on first use
	mu       sync.Mutex
	sessions map[string][]geminiContent
}

func NewGeminiClient(cfg GeminiConfig, logger zerolog.Logger) TextGenerator {
	return &geminiClient{
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		historyLimit: cfg.HistoryLimit,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger:   logger,
		sessions: make(map[string][]geminiContent),
	}
}

func (c *geminiClient) Send(ctx context.Context, sessionID, text string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	userTurn := geminiContent{Role: "user", Parts: []geminiPart{{Text: text}}}

	c.mu.Lock()
	history, ok := c.sessions[sessionID]
	if !ok {
		c.sessions[sessionID] = []geminiContent{}
		c.logger.Info().
			Str("model", c.model).
			Str("session_id", sessionID).
			Msg("Assistant chat session created")
	}
	contents := append(append([]geminiContent(nil), history...), userTurn)
	c.mu.Unlock()

	body, err := json.Marshal(geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: SystemInstruction}}},
		Contents:          contents,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("model returned status %d: %s", resp.StatusCode, string(msg))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	reply := ""
	if len(out.Candidates) > 0 {
		reply = strings.Join(lo.Map(out.Candidates[0].Content.Parts, func(p geminiPart, _ int) string {
			return p.Text
		}), "")
	}

	c.remember(sessionID, userTurn, geminiContent{Role: "model", Parts: []geminiPart{{Text: reply}}})

	return reply, nil
}

func (c *geminiClient) remember(sessionID string, turns ...geminiContent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	history := append(c.sessions[sessionID], turns...)

	// keep whole user/model pairs so the history never opens with a model turn
	limit := c.historyLimit &^ 1
	if limit > 0 && len(history) > limit {
		history = append([]geminiContent(nil), history[len(history)-limit:]...)
	}
	c.sessions[sessionID] = history
}
