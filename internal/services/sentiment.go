package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MegaGrindStone/sentichat/internal/models"
)

// SentimentAPI is a client for the remote sentiment-analysis endpoint. It implements the
// chat.Analyzer interface.
type SentimentAPI struct {
	endpoint string

	client *http.Client

	logger *slog.Logger
}

type sentimentRequest struct {
	Text string `json:"text"`
}

// DefaultSentimentEndpoint is the analysis endpoint of a locally running backend.
const DefaultSentimentEndpoint = "http://localhost:8000/api/analyze/"

// maxErrorBody caps how much of a failed response body ends up in the error message.
const maxErrorBody = 512

// ErrUnexpectedStatus is returned, wrapped, when the service answers with a non-2xx status.
var ErrUnexpectedStatus = errors.New("unexpected status code")

// NewSentimentAPI creates a client posting to endpoint. A zero timeout leaves requests
// unbounded.
func NewSentimentAPI(endpoint string, timeout time.Duration, logger *slog.Logger) SentimentAPI {
	if endpoint == "" {
		endpoint = DefaultSentimentEndpoint
	}
	return SentimentAPI{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(slog.String("module", "sentiment")),
	}
}

// Analyze posts text to the sentiment endpoint and decodes the reply. Transport failures,
// non-2xx statuses and bodies that are not JSON are returned as errors. A JSON reply with
// missing or mistyped fields is not an error: the affected fields of the returned Analysis
// are simply left empty.
func (s SentimentAPI) Analyze(ctx context.Context, text string) (models.Analysis, error) {
	jsonBody, err := json.Marshal(sentimentRequest{Text: text})
	if err != nil {
		return models.Analysis{}, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return models.Analysis{}, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("error sending request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Analysis{}, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return models.Analysis{}, fmt.Errorf("%w: %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, string(body))
	}

	s.logger.Debug("Sentiment response", slog.String("body", string(body)))

	return decodeAnalysis(body)
}

func decodeAnalysis(body []byte) (models.Analysis, error) {
	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return models.Analysis{}, fmt.Errorf("error unmarshaling response: %w", err)
	}

	var analysis models.Analysis

	obj, ok := raw.(map[string]any)
	if !ok {
		return analysis, nil
	}

	if sentiment, ok := obj["sentiment"].(string); ok {
		analysis.Sentiment = sentiment
	}

	scores, ok := obj["nltk_scores"].(map[string]any)
	if !ok {
		return analysis, nil
	}

	analysis.Scores = &models.Scores{
		Positive: number(scores["pos"]),
		Neutral:  number(scores["neu"]),
		Negative: number(scores["neg"]),
	}
	if compound, ok := scores["compound"].(float64); ok {
		analysis.Scores.Compound = compound
		analysis.HasCompound = true
	}

	return analysis, nil
}

func number(v any) float64 {
	f, _ := v.(float64)
	return f
}
