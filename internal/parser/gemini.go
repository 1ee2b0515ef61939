// Package parser turns free-form expense text ("lunch 50k yesterday")
// into a structured expense draft using the Gemini API.
package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gl "google.golang.org/api/generativelanguage/v1beta"
	goption "google.golang.org/api/option"
)

var (
	ErrMissingAPIKey = errors.New("missing Gemini API key")
	ErrEmptyResponse = errors.New("empty model response")
	ErrInvalidResult = errors.New("model returned an unusable result")
)

// Categories the model is allowed to pick from. Anything outside the list
// is coerced to Other.
var knownCategories = []string{
	"Food", "Transport", "Entertainment", "Shopping",
	"Bills", "Health", "Education", "Other",
}

// Result is the structured draft extracted from one line of input. Amount
// is whole VND; Date is "2006-01-02".
type Result struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

type Client struct {
	svc   *gl.Service
	model string
}

// New creates a Gemini-backed parser. Extra options are mainly for tests
// (endpoint override).
func New(ctx context.Context, apiKey, model string, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	svc, err := gl.NewService(ctx, append([]goption.ClientOption{goption.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create generativelanguage service: %w", err)
	}
	return &Client{svc: svc, model: model}, nil
}

// Parse extracts a structured expense from input, interpreting relative
// dates ("yesterday") against now.
func (c *Client) Parse(ctx context.Context, input string, now time.Time) (Result, error) {
	if strings.TrimSpace(input) == "" {
		return Result{}, fmt.Errorf("%w: empty input", ErrInvalidResult)
	}

	req := &gl.GenerateContentRequest{
		Contents: []*gl.Content{{
			Parts: []*gl.Part{{Text: buildPrompt(input, now)}},
		}},
		GenerationConfig: &gl.GenerationConfig{
			Temperature:     0.1,
			ForceSendFields: []string{"Temperature"},
		},
	}

	resp, err := c.svc.Models.GenerateContent(c.model, req).Context(ctx).Do()
	if err != nil {
		return Result{}, fmt.Errorf("generate content: %w", err)
	}

	text := firstText(resp)
	if text == "" {
		return Result{}, ErrEmptyResponse
	}
	return decodeResult(text, now)
}

func buildPrompt(input string, now time.Time) string {
	today := now.Format("2006-01-02")
	yesterday := now.AddDate(0, 0, -1).Format("2006-01-02")
	return fmt.Sprintf(`You extract expense records from short Vietnamese or English text.
Today is %s. Yesterday was %s.

Rules:
- "k" suffix means thousands: "50k" is 50000. Amounts are whole VND.
- Pick exactly one category from: %s.
- If no date is mentioned, use today. Dates are YYYY-MM-DD.
- Keep the description short, without the amount or date.

Respond with a single JSON object, no markdown, with keys:
description (string), amount (number), category (string), date (string).

Input: %s`, today, yesterday, strings.Join(knownCategories, ", "), input)
}

func firstText(resp *gl.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				return part.Text
			}
		}
	}
	return ""
}

// decodeResult validates the model output. Models sometimes wrap JSON in
// markdown fences despite instructions, so those are stripped first.
func decodeResult(text string, now time.Time) (Result, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var r Result
	if err := json.Unmarshal([]byte(cleaned), &r); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidResult, err)
	}

	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return Result{}, fmt.Errorf("%w: missing description", ErrInvalidResult)
	}
	if r.Amount <= 0 {
		return Result{}, fmt.Errorf("%w: amount must be positive", ErrInvalidResult)
	}

	r.Category = canonicalCategory(r.Category)

	if r.Date == "" {
		r.Date = now.Format("2006-01-02")
	} else if _, err := time.Parse("2006-01-02", r.Date); err != nil {
		return Result{}, fmt.Errorf("%w: bad date %q", ErrInvalidResult, r.Date)
	}
	return r, nil
}

func canonicalCategory(cat string) string {
	for _, c := range knownCategories {
		if strings.EqualFold(c, cat) {
			return c
		}
	}
	return "Other"
}
