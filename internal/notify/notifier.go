package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"signal_gate/internal/store"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
}

// Telegram — пассивный нотифайер + три команды: /positions, /history, /stats.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	store  store.Positions
}

func NewTelegram(token string, chatID int64, st store.Positions) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		store:  st,
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	_, _ = t.bot.Send(tgbot.NewMessage(t.chatID, msg))
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// /positions — открытые позиции из стора
func (t *Telegram) handlePositions(ctx context.Context) {
	positions, err := t.store.GetOpen(ctx)
	if err != nil {
		t.Sendf("❗️ Ошибка получения позиций: %v", err)
		return
	}
	if len(positions) == 0 {
		t.Send("📭 Открытых позиций нет")
		return
	}

	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- #%d %s [%s/%s] entry=%.4f sl=%.4f tp1=%.4f size=%.0f%% cp=%d %s\n",
			p.ID, p.Symbol, p.Direction, p.Timeframe,
			p.Entry, p.StopLoss, p.TP1, p.SizeFraction*100, p.FiredCount(), p.Status)
	}
	t.Send(b.String())
}

// /history — последние закрытые
func (t *Telegram) handleHistory(ctx context.Context) {
	hist, err := t.store.History(ctx, 10)
	if err != nil {
		t.Sendf("❗️ Ошибка получения истории: %v", err)
		return
	}
	if len(hist) == 0 {
		t.Send("📭 История пуста")
		return
	}

	var b strings.Builder
	b.WriteString("🗂 Последние закрытия:\n")
	for _, h := range hist {
		emoji := "🟢"
		if h.PnlPercent < 0 {
			emoji = "🔴"
		}
		fmt.Fprintf(&b, "%s %s [%s] %.4f→%.4f %+.2f%% %s за %s\n",
			emoji, h.Symbol, h.Direction, h.Entry, h.Exit,
			h.PnlPercent, h.Outcome, h.Duration.Round(time.Minute))
	}
	t.Send(b.String())
}

// /stats — агрегаты
func (t *Telegram) handleStats(ctx context.Context) {
	st, err := t.store.Stats(ctx)
	if err != nil {
		t.Sendf("❗️ Ошибка получения статистики: %v", err)
		return
	}
	t.Sendf("📈 open=%d closed=%d wins=%d losses=%d winrate=%.1f%% avg=%+.2f%% alerts=%d",
		st.Open, st.Closed, st.Wins, st.Losses, st.WinRate, st.AvgPnl, st.Alerts)
}

// Start: long-polling только для команд.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions(ctx)
				case "history":
					go t.handleHistory(ctx)
				case "stats":
					go t.handleStats(ctx)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t != nil && t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
}

// Stdout — заглушка без токена, просто логирует.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { log.Println(msg) }
func (s *Stdout) Sendf(format string, args ...any) { log.Printf(format, args...) }
