package market

import (
	"context"
	"encoding/json"
	"time"

	"signal_gate/pkg/logger"
)

// StreamPrices держит один WebSocket на пачку символов и обновляет
// кэш последних цен. Реконнект с бэкоффом, keepalive ping.
func (c *Client) StreamPrices(ctx context.Context, symbols []string) {
	if c.wsURL == "" || len(symbols) == 0 {
		return
	}
	go c.streamLoop(ctx, symbols)
}

func (c *Client) connState(up bool) {
	if c.onConnState != nil {
		c.onConnState(up)
	}
}

func (c *Client) streamLoop(ctx context.Context, symbols []string) {
	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := c.wsDialer.Dial(c.wsURL, nil)
		if err != nil {
			retry++
			logger.Warn("market: ws dial failed (try %d): %v", retry, err)
			time.Sleep(time.Duration(300*min(retry, 10)) * time.Millisecond)
			continue
		}
		retry = 0
		c.connState(true)

		args := make([]map[string]string, 0, len(symbols))
		for _, s := range symbols {
			args = append(args, map[string]string{"channel": "ticker", "symbol": s})
		}
		if err := conn.WriteJSON(map[string]any{"op": "subscribe", "args": args}); err != nil {
			logger.Error("market: ws subscribe failed: %v", err)
			_ = conn.Close()
			c.connState(false)
			continue
		}

		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(20 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-stopPing:
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]string{"op": "ping"})
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				logger.Error("market: ws read failed: %v", err)
				break
			}

			var frame struct {
				Channel string  `json:"channel"`
				Symbol  string  `json:"symbol"`
				Price   float64 `json:"price"`
			}
			if err := json.Unmarshal(msg, &frame); err != nil {
				continue
			}
			if frame.Channel != "ticker" || frame.Symbol == "" || frame.Price <= 0 {
				continue
			}
			c.setPrice(frame.Symbol, frame.Price)
		}

		close(stopPing)
		_ = conn.Close()
		c.connState(false)

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(time.Second)
		}
	}
}
