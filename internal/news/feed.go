package news

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

// Provider отдаёт новости по символу за окно lookback.
type Provider interface {
	Recent(ctx context.Context, symbol string, lookback time.Duration) ([]models.NewsItem, error)
}

// Disabled — лента выключена: новостей нет, ошибок тоже.
type Disabled struct{}

func (Disabled) Recent(context.Context, string, time.Duration) ([]models.NewsItem, error) {
	return nil, nil
}

type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
}

func NewClient(base string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

type feedItem struct {
	Title       string  `json:"title"`
	Importance  string  `json:"importance"`
	Sentiment   float64 `json:"sentiment"`
	PublishedAt int64   `json:"published_at"` // unix seconds
}

type feedResponse struct {
	Items []feedItem `json:"items"`
}

func (c *Client) Recent(ctx context.Context, symbol string, lookback time.Duration) ([]models.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	since := time.Now().Add(-lookback).Unix()
	u := fmt.Sprintf("%s/api/v1/news?symbol=%s&since=%d", c.base, url.QueryEscape(symbol), since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}

	var fr feedResponse
	if err := json.Unmarshal(rb, &fr); err != nil {
		return nil, err
	}

	cutoff := time.Now().Add(-lookback)
	items := make([]models.NewsItem, 0, len(fr.Items))
	for _, it := range fr.Items {
		ts := time.Unix(it.PublishedAt, 0)
		if ts.Before(cutoff) {
			continue
		}
		imp := models.Importance(it.Importance)
		switch imp {
		case models.ImportanceCritical, models.ImportanceImportant:
		default:
			imp = models.ImportanceNormal
		}
		items = append(items, models.NewsItem{
			Title:       it.Title,
			Importance:  imp,
			Sentiment:   it.Sentiment,
			PublishedAt: ts,
		})
	}
	return items, nil
}
