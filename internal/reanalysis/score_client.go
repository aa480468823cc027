package reanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"signal_gate/internal/models"
)

// ScoreClient — HTTP-клиент к генератору сигналов за свежим скорингом.
type ScoreClient struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

func NewScoreClient(base string, timeout time.Duration) *ScoreClient {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &ScoreClient{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

var _ ScoreSource = (*ScoreClient)(nil)

func (c *ScoreClient) Score(ctx context.Context, symbol, timeframe string) (models.FreshScore, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := fmt.Sprintf("%s/api/v1/score?symbol=%s&tf=%s",
		c.base, url.QueryEscape(symbol), url.QueryEscape(timeframe))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return models.FreshScore{}, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return models.FreshScore{}, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return models.FreshScore{}, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}

	var body struct {
		Direction   string  `json:"direction"`
		Confidence  float64 `json:"confidence"`
		HTFBias     string  `json:"htf_bias"`
		StructureOK *bool   `json:"structure_ok"`
	}
	if err := json.Unmarshal(rb, &body); err != nil {
		return models.FreshScore{}, err
	}

	score := models.FreshScore{
		Direction:   models.Direction(body.Direction),
		Confidence:  body.Confidence,
		HTFBias:     models.Direction(body.HTFBias),
		StructureOK: true,
	}
	// поле опциональное: отсутствие ≠ сломанная структура
	if body.StructureOK != nil {
		score.StructureOK = *body.StructureOK
	}
	if !score.Direction.Valid() {
		return models.FreshScore{}, fmt.Errorf("bad direction %q", body.Direction)
	}
	return score, nil
}
