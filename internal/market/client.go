// Package market — источник цен для цикла мониторинга.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// PriceSource — то, что нужно монитору: текущая цена символа.
type PriceSource interface {
	Price(ctx context.Context, symbol string) (float64, error)
}

type cachedPrice struct {
	price float64
	at    time.Time
}

// Client — HTTP-тикер с WS-кэшем последних цен. Если стрим живой,
// отвечаем из кэша и не ходим по HTTP на каждый цикл.
type Client struct {
	mu     sync.RWMutex
	prices map[string]cachedPrice

	base       string
	wsURL      string
	http       *http.Client
	wsDialer   *websocket.Dialer
	staleAfter time.Duration

	onConnState func(bool) // для health
}

func NewClient(base, wsURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		prices:     make(map[string]cachedPrice),
		base:       base,
		wsURL:      wsURL,
		http:       &http.Client{Timeout: timeout},
		wsDialer:   &websocket.Dialer{},
		staleAfter: 2 * time.Minute,
	}
}

// OnConnState — колбэк смены состояния WS-стрима.
func (c *Client) OnConnState(fn func(bool)) { c.onConnState = fn }

func (c *Client) setPrice(symbol string, price float64) {
	c.mu.Lock()
	c.prices[symbol] = cachedPrice{price: price, at: time.Now()}
	c.mu.Unlock()
}

func (c *Client) cached(symbol string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cp, ok := c.prices[symbol]
	if !ok || time.Since(cp.at) > c.staleAfter {
		return 0, false
	}
	return cp.price, true
}

// Price — из WS-кэша, если свежий; иначе HTTP с ограниченным таймаутом.
func (c *Client) Price(ctx context.Context, symbol string) (float64, error) {
	if p, ok := c.cached(symbol); ok {
		return p, nil
	}

	u := fmt.Sprintf("%s/api/v1/ticker?symbol=%s", c.base, url.QueryEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return 0, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}

	var body struct {
		Price float64 `json:"price"`
	}
	if err := json.Unmarshal(rb, &body); err != nil {
		return 0, err
	}
	if body.Price <= 0 {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	c.setPrice(symbol, body.Price)
	return body.Price, nil
}
