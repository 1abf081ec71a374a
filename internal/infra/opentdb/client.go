package opentdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"trivia-quiz-service/internal/domain"
)

// Provider response codes (https://opentdb.com/api_config.php).
const (
	codeSuccess       = 0
	codeNoResults     = 1
	codeInvalidParam  = 2
	codeTokenNotFound = 3
	codeTokenEmpty    = 4
)

// TokenStore persists the provider session token so successive batches avoid
// repeating questions. Implementations live in infra/memory and infra/redis.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// Config wires the Open Trivia DB client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	Difficulty string
	CategoryID int
	Tokens     TokenStore
	Logger     *zap.Logger
}

// Client fetches question batches from Open Trivia DB. It implements
// app.QuestionSource. Question and answer strings are stored exactly as the
// provider escapes them; decoding is left to the presentation boundary.
type Client struct {
	baseURL    string
	httpClient *http.Client
	difficulty string
	categoryID int
	tokens     TokenStore
	logger     *zap.Logger
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://opentdb.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		difficulty: cfg.Difficulty,
		categoryID: cfg.CategoryID,
		tokens:     cfg.Tokens,
		logger:     cfg.Logger,
	}
}

// SetCategoryID pins fetches to one provider category. Intended for wiring
// time, after the configured category name has been resolved; not safe once
// the client is serving fetches.
func (c *Client) SetCategoryID(id int) {
	c.categoryID = id
}

type questionResult struct {
	Category         string   `json:"category"`
	Type             string   `json:"type"`
	Difficulty       string   `json:"difficulty"`
	Question         string   `json:"question"`
	CorrectAnswer    string   `json:"correct_answer"`
	IncorrectAnswers []string `json:"incorrect_answers"`
}

type batchEnvelope struct {
	ResponseCode int              `json:"response_code"`
	Results      []questionResult `json:"results"`
}

// FetchBatch requests count multiple-choice questions. A non-2xx status, a
// decode failure, a short batch or a provider error code all surface as
// errors, never as a crash or a partial batch.
func (c *Client) FetchBatch(ctx context.Context, count int) (domain.Batch, error) {
	token := c.currentToken(ctx)

	envelope, err := c.requestBatch(ctx, count, token)
	if err != nil {
		return domain.Batch{}, err
	}

	switch envelope.ResponseCode {
	case codeSuccess:
	case codeTokenNotFound, codeTokenEmpty:
		// Stale or exhausted token: drop it and retry once untokened so one
		// bad token never fails the game.
		c.dropToken(ctx, envelope.ResponseCode)
		envelope, err = c.requestBatch(ctx, count, "")
		if err != nil {
			return domain.Batch{}, err
		}
		if envelope.ResponseCode != codeSuccess {
			return domain.Batch{}, fmt.Errorf("trivia source response code %d after token reset", envelope.ResponseCode)
		}
	default:
		return domain.Batch{}, fmt.Errorf("trivia source response code %d", envelope.ResponseCode)
	}

	if len(envelope.Results) != count {
		return domain.Batch{}, fmt.Errorf("trivia source returned %d questions, want %d", len(envelope.Results), count)
	}

	batch := domain.Batch{
		ID:        uuid.NewString(),
		FetchedAt: time.Now(),
		Questions: make([]domain.Question, len(envelope.Results)),
	}
	for i, result := range envelope.Results {
		if result.CorrectAnswer == "" || len(result.IncorrectAnswers) == 0 {
			return domain.Batch{}, fmt.Errorf("trivia source question %d is malformed", i)
		}
		batch.Questions[i] = domain.Question{
			Text:             result.Question,
			Category:         result.Category,
			Difficulty:       result.Difficulty,
			CorrectAnswer:    result.CorrectAnswer,
			IncorrectAnswers: result.IncorrectAnswers,
		}
	}
	return batch, nil
}

func (c *Client) requestBatch(ctx context.Context, count int, token string) (batchEnvelope, error) {
	params := url.Values{}
	params.Set("amount", strconv.Itoa(count))
	params.Set("type", "multiple")
	if c.difficulty != "" {
		params.Set("difficulty", c.difficulty)
	}
	if c.categoryID > 0 {
		params.Set("category", strconv.Itoa(c.categoryID))
	}
	if token != "" {
		params.Set("token", token)
	}

	var envelope batchEnvelope
	if err := c.getJSON(ctx, "/api.php?"+params.Encode(), &envelope); err != nil {
		return batchEnvelope{}, err
	}
	return envelope, nil
}

// currentToken returns the stored provider token, requesting a new one if
// none is stored. Token handling is best effort: any failure logs and falls
// back to untokened fetches.
func (c *Client) currentToken(ctx context.Context) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.Token(ctx)
	if err == nil {
		return token
	}
	if !errors.Is(err, domain.ErrNoToken) {
		c.logger.Warn("token lookup failed", zap.Error(err))
		return ""
	}

	var envelope struct {
		ResponseCode int    `json:"response_code"`
		Token        string `json:"token"`
	}
	if err := c.getJSON(ctx, "/api_token.php?command=request", &envelope); err != nil {
		c.logger.Warn("token request failed", zap.Error(err))
		return ""
	}
	if envelope.ResponseCode != codeSuccess || envelope.Token == "" {
		c.logger.Warn("token request refused", zap.Int("code", envelope.ResponseCode))
		return ""
	}
	if err := c.tokens.Save(ctx, envelope.Token); err != nil {
		c.logger.Warn("token save failed", zap.Error(err))
	}
	return envelope.Token
}

func (c *Client) dropToken(ctx context.Context, code int) {
	c.logger.Info("dropping trivia token", zap.Int("code", code))
	if c.tokens != nil {
		if err := c.tokens.Clear(ctx); err != nil {
			c.logger.Warn("token clear failed", zap.Error(err))
		}
	}
}

type categoriesEnvelope struct {
	TriviaCategories []struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"trivia_categories"`
}

// LoadCategories fetches the provider's category list. Callers wrap it in a
// TTL cache; the list changes rarely.
func (c *Client) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	var envelope categoriesEnvelope
	if err := c.getJSON(ctx, "/api_category.php", &envelope); err != nil {
		return nil, err
	}
	categories := make([]domain.Category, len(envelope.TriviaCategories))
	for i, cat := range envelope.TriviaCategories {
		categories[i] = domain.Category{ID: cat.ID, Name: cat.Name}
	}
	return categories, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build trivia request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("trivia source unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("trivia source returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode trivia response: %w", err)
	}
	return nil
}

// ResolveCategory maps a configured category name to the provider's numeric
// ID. Matching is case-insensitive.
func ResolveCategory(categories []domain.Category, name string) (int, error) {
	for _, cat := range categories {
		if strings.EqualFold(cat.Name, name) {
			return cat.ID, nil
		}
	}
	return 0, domain.ErrCategoryNotFound
}
