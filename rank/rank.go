// Package rank orders merged search results with an OpenAI-compatible
// chat-completions API. Ranking is advisory: any failure leaves the
// caller with the extraction-order list, never with an error surface.
package rank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/dealhound/dealhound/config"
	"github.com/dealhound/dealhound/models"
)

// Client is a lightweight chat-completions client. It uses net/http
// directly — no third-party SDK needed.
type Client struct {
	httpClient *http.Client
	cfg        config.RankConfig
}

// NewClient creates a ranking client. Pass nil to use a default
// http.Client bound by the configured timeout.
func NewClient(httpClient *http.Client, cfg config.RankConfig) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{httpClient: httpClient, cfg: cfg}
}

// rankItem is the condensed product view sent to the model. Sending the
// full Product would waste tokens on URLs and image links the model
// cannot use.
type rankItem struct {
	ID        int     `json:"id"`
	Title     string  `json:"title"`
	Price     float64 `json:"price"`
	Condition string  `json:"condition"`
	Source    string  `json:"source"`
}

// rankVerdict is one entry of the model's answer.
type rankVerdict struct {
	ID     int    `json:"id"`
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// Rank asks the model to order products against the user's preferences.
// Products the model omits are appended in their original order, so the
// output always covers the full input.
func (c *Client) Rank(ctx context.Context, products []models.Product, prefs models.UserPreferences) ([]models.RankedProduct, error) {
	if len(products) <= 1 {
		return wrapUnranked(products), nil
	}

	verdicts, err := c.complete(ctx, products, prefs)
	if err != nil {
		return nil, err
	}
	return reorder(products, verdicts), nil
}

func (c *Client) complete(ctx context.Context, products []models.Product, prefs models.UserPreferences) ([]rankVerdict, error) {
	prompt, err := buildPrompt(products, prefs)
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeRankFailure, "failed to build ranking prompt", err)
	}

	reqBody := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.1,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeRankFailure, "ranking request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeRankFailure, "failed to read ranking response", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, models.NewSearchError(models.ErrCodeRankFailure, "failed to parse ranking response", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, models.NewSearchError(models.ErrCodeRankFailure, "model returned no choices", nil)
	}

	verdicts, err := parseVerdicts(chatResp.Choices[0].Message.Content)
	if err != nil {
		return nil, models.NewSearchError(models.ErrCodeRankFailure, "model returned unusable ranking", err)
	}
	return verdicts, nil
}

const systemPrompt = `You rank product listings against a buyer's stated preferences. ` +
	`Respond with ONLY a JSON array of objects {"id": <int>, "score": <0-100>, "reason": "<short reason>"}, ` +
	`ordered best match first. The id must match an id from the input list. No markdown fences, no explanation.`

func buildPrompt(products []models.Product, prefs models.UserPreferences) (string, error) {
	items := make([]rankItem, len(products))
	for i, p := range products {
		items[i] = rankItem{
			ID:        i,
			Title:     p.Title,
			Price:     p.Price,
			Condition: p.Condition,
			Source:    string(p.Source),
		}
	}
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("User preferences: %s\n\nProducts: %s", prefsJSON, itemsJSON), nil
}

// arrayPattern rescues the JSON array out of an answer wrapped in prose
// or markdown fences.
var arrayPattern = regexp.MustCompile(`(?s)\[.*\]`)

func parseVerdicts(content string) ([]rankVerdict, error) {
	var verdicts []rankVerdict
	if err := json.Unmarshal([]byte(content), &verdicts); err == nil {
		return verdicts, nil
	}
	raw := arrayPattern.FindString(content)
	if raw == "" {
		return nil, fmt.Errorf("no JSON array in answer")
	}
	if err := json.Unmarshal([]byte(raw), &verdicts); err != nil {
		return nil, err
	}
	return verdicts, nil
}

// reorder applies the verdicts, skipping ids outside the input range,
// then appends every product the model omitted in original order.
func reorder(products []models.Product, verdicts []rankVerdict) []models.RankedProduct {
	ranked := make([]models.RankedProduct, 0, len(products))
	placed := make([]bool, len(products))

	for _, v := range verdicts {
		if v.ID < 0 || v.ID >= len(products) || placed[v.ID] {
			continue
		}
		placed[v.ID] = true
		ranked = append(ranked, models.RankedProduct{
			Product:    products[v.ID],
			RankScore:  v.Score,
			RankReason: v.Reason,
		})
	}
	for i, p := range products {
		if !placed[i] {
			ranked = append(ranked, models.RankedProduct{Product: p})
		}
	}
	return ranked
}

func wrapUnranked(products []models.Product) []models.RankedProduct {
	ranked := make([]models.RankedProduct, len(products))
	for i, p := range products {
		ranked[i] = models.RankedProduct{Product: p}
	}
	return ranked
}

// classifyError maps provider status codes to typed error codes.
func classifyError(statusCode int, body []byte) *models.SearchError {
	var errResp chatErrorResponse
	msg := "ranking API error"
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		msg = errResp.Error.Message
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return models.NewSearchError(models.ErrCodeRankAuthFailure, msg, nil)
	case statusCode == http.StatusTooManyRequests:
		return models.NewSearchError(models.ErrCodeRankRateLimited, msg, nil)
	default:
		return models.NewSearchError(models.ErrCodeRankFailure, fmt.Sprintf("ranking API returned %d: %s", statusCode, msg), nil)
	}
}
