package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"longbox/internal/approval"
)

// SeriesCleanupPrompt asks the model to pull grouping hints from a filename.
const SeriesCleanupPrompt = `You identify comic book archives from their filenames.
Given one filename, return JSON only:
{"series": "<series title without issue number, year, scan group or format tags>",
 "issue": "<issue number as printed, keep decimals and letter suffixes, empty if unknown>",
 "year": <four digit cover year or 0>}
Do not guess a year that is not in the filename.`

// Cleaner implements approval.NameCleaner on top of Client.
type Cleaner struct {
	client *Client
}

var _ approval.NameCleaner = (*Cleaner)(nil)

// NewCleaner wraps client.
func NewCleaner(client *Client) *Cleaner {
	return &Cleaner{client: client}
}

type cleanupAnswer struct {
	Series string          `json:"series"`
	Issue  json.RawMessage `json:"issue"`
	Year   json.RawMessage `json:"year"`
}

// CleanSeriesName returns the model's reading of filename.
func (c *Cleaner) CleanSeriesName(ctx context.Context, filename string) (approval.ParsedName, error) {
	filename = strings.TrimSpace(filename)
	if filename == "" {
		return approval.ParsedName{}, errors.New("llm cleanup: filename required")
	}
	content, err := c.client.CompleteJSON(ctx, SeriesCleanupPrompt, filename)
	if err != nil {
		return approval.ParsedName{}, err
	}
	var answer cleanupAnswer
	if err := DecodeLLMJSON(content, &answer); err != nil {
		return approval.ParsedName{}, fmt.Errorf("llm cleanup: parse payload: %w", err)
	}
	series := strings.TrimSpace(answer.Series)
	if series == "" {
		return approval.ParsedName{}, errors.New("llm cleanup: empty series")
	}
	year := looseInt(answer.Year)
	if year < 1900 || year > 2100 {
		year = 0
	}
	return approval.ParsedName{
		SeriesName:  series,
		IssueNumber: looseString(answer.Issue),
		Year:        year,
	}, nil
}

// looseString accepts a JSON string or number.
func looseString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func looseInt(raw json.RawMessage) int {
	value, err := strconv.Atoi(looseString(raw))
	if err != nil {
		return 0
	}
	return value
}
