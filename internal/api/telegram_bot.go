package api

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/entities"
	"github.com/abelzeko/water-monitor/internal/history"
	"github.com/abelzeko/water-monitor/internal/usecases"
)

const helpText = "Perintah yang tersedia:\n" +
	"/status - Kondisi air terkini\n" +
	"/history [halaman] - Riwayat data sensor\n" +
	"/search <teks> - Cari di riwayat\n" +
	"/filter <all|excellent|good|warning|danger> - Filter status\n" +
	"/date <YYYY-MM-DD|clear> - Filter tanggal\n" +
	"/reset - Hapus semua filter\n" +
	"/help - Tampilkan pesan ini\n\n" +
	"Anda juga bisa bertanya langsung, misalnya \"data bahaya kemarin\"."

const fallbackReply = "Maaf, saya tidak punya jawaban untuk itu. Gunakan /help untuk melihat daftar perintah."

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot       *tgbotapi.BotAPI
	dashboard *usecases.DashboardUseCase
	query     *usecases.QueryUseCase
	logger    *zap.Logger

	mu    sync.Mutex
	chats map[int64]history.State
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, dashboard *usecases.DashboardUseCase, query *usecases.QueryUseCase, logger *zap.Logger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newTelegramBot(bot, dashboard, query, logger), nil
}

func newTelegramBot(bot *tgbotapi.BotAPI, dashboard *usecases.DashboardUseCase, query *usecases.QueryUseCase, logger *zap.Logger) *TelegramBot {
	return &TelegramBot{
		bot:       bot,
		dashboard: dashboard,
		query:     query,
		logger:    logger,
		chats:     make(map[int64]history.State),
	}
}

// Start listens for and handles Telegram messages until ctx is cancelled
func (t *TelegramBot) Start(ctx context.Context) {
	t.logger.Info("authorized on telegram", zap.String("account", t.bot.Self.UserName))

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	t.logger.Info("bot is now listening for messages")

	for {
		select {
		case <-ctx.Done():
			t.bot.StopReceivingUpdates()
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			t.logger.Debug("received message",
				zap.Int64("chat_id", update.Message.Chat.ID),
				zap.String("text", update.Message.Text),
			)

			msg := t.handleMessage(ctx, update.Message)
			if _, err := t.bot.Send(msg); err != nil {
				t.logger.Warn("error sending message", zap.Error(err))
			}
		}
	}
}

// handleMessage builds the reply to a message
func (t *TelegramBot) handleMessage(ctx context.Context, message *tgbotapi.Message) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(message.Chat.ID, "")

	if message.IsCommand() {
		t.handleCommand(message, &msg)
	} else {
		t.handleNonCommand(ctx, message, &msg)
	}
	return msg
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	chatID := message.Chat.ID
	args := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		msg.Text = "Selamat datang di Water Quality Monitoring! Gunakan /status untuk kondisi air terkini.\n\n" + helpText

	case "help":
		msg.Text = helpText

	case "status":
		msg.Text = t.formatStatus()

	case "history":
		state := t.state(chatID)
		if args != "" {
			page, err := strconv.Atoi(args)
			if err != nil {
				msg.Text = "Nomor halaman tidak valid. Contoh: /history 2"
				return
			}
			state = state.WithPage(page)
		}
		t.setState(chatID, state)
		msg.Text = formatHistory(state)

	case "search":
		state := t.state(chatID).WithSearch(args)
		t.setState(chatID, state)
		msg.Text = formatHistory(state)

	case "filter":
		status, err := history.ParseStatusFilter(args)
		if err != nil {
			msg.Text = "Status tidak dikenal. Gunakan: all, excellent, good, warning atau danger."
			return
		}
		state := t.state(chatID).WithStatus(status)
		t.setState(chatID, state)
		msg.Text = formatHistory(state)

	case "date":
		if strings.EqualFold(args, "clear") {
			args = ""
		}
		day, err := history.ParseDay(args)
		if err != nil {
			msg.Text = "Tanggal tidak valid. Gunakan format YYYY-MM-DD, contoh: /date 2025-03-10"
			return
		}
		state := t.state(chatID).WithDate(day)
		t.setState(chatID, state)
		msg.Text = formatHistory(state)

	case "reset":
		state := t.state(chatID).ResetFilters()
		t.setState(chatID, state)
		msg.Text = "Filter direset.\n\n" + formatHistory(state)

	default:
		t.logger.Debug("unknown command", zap.String("command", message.Command()))
		msg.Text = "Perintah tidak dikenal. Gunakan /help untuk melihat daftar perintah."
	}
}

// handleNonCommand passes free text to the query use case
func (t *TelegramBot) handleNonCommand(ctx context.Context, message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	chatID := message.Chat.ID
	result := t.query.HandleNaturalLanguageQuery(ctx, message.Text, t.state(chatID))

	parts := []string{}
	if result.Message != "" {
		parts = append(parts, result.Message)
	}
	switch result.Action {
	case usecases.ActionShowStatus:
		parts = append(parts, t.formatStatus())
	case usecases.ActionShowHistory:
		t.setState(chatID, result.State)
		parts = append(parts, formatHistory(result.State))
	}
	if len(parts) == 0 {
		// Telegram rejects empty messages
		parts = append(parts, fallbackReply)
	}
	msg.Text = strings.Join(parts, "\n\n")
}

// state returns the chat's history state rebuilt over the current snapshot
func (t *TelegramBot) state(chatID int64) history.State {
	t.mu.Lock()
	s, ok := t.chats[chatID]
	t.mu.Unlock()
	if !ok {
		return t.dashboard.NewHistory()
	}
	return t.dashboard.History(s)
}

func (t *TelegramBot) setState(chatID int64, s history.State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.chats[chatID] = s
}

// formatStatus describes the latest reading
func (t *TelegramBot) formatStatus() string {
	snap := t.dashboard.Snapshot()
	view, ok := t.dashboard.Latest()
	if !ok {
		if snap.Loading {
			return "Loading..."
		}
		return "Belum ada data sensor."
	}

	var b strings.Builder
	b.WriteString(statusIcon(view.Overall.Level) + " " + view.Overall.Message + "\n\n")
	for _, g := range view.Gauges {
		fmt.Fprintf(&b, "%s: %s %s (%s)\n", g.Label, g.DisplayValue(), g.Unit, g.Status.Title())
	}
	created := view.Reading.CreatedAt.In(t.dashboard.Location())
	fmt.Fprintf(&b, "\n🕒 Pembaruan terakhir: %s", created.Format("2/1/2006 15.04.05"))
	if snap.Stale() {
		b.WriteString("\n⚠️ Data mungkin tidak terbaru.")
	}
	return b.String()
}

// formatHistory renders one page of a history state as text
func formatHistory(s history.State) string {
	var b strings.Builder

	if filters := describeFilters(s); filters != "" {
		b.WriteString("Filter: " + filters + "\n\n")
	}

	rows := s.Rows()
	if len(rows) == 0 {
		b.WriteString(history.EmptyMessage)
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %s | %s NTU | pH %s | %s°C | %s L/s | %s\n",
			r.Date, r.Time, r.Turbidity.Text, r.PH.Text, r.Temperature.Text, r.WaterFlow.Text, r.Status.Label)
	}

	fmt.Fprintf(&b, "\n%s\nHalaman %d dari %d", s.Summary(), s.Page(), s.TotalPages())
	return b.String()
}

func describeFilters(s history.State) string {
	var parts []string
	if s.SearchText() != "" {
		parts = append(parts, fmt.Sprintf("cari %q", s.SearchText()))
	}
	if s.Status() != history.StatusAll {
		parts = append(parts, "status "+string(s.Status()))
	}
	if !s.Date().IsZero() {
		parts = append(parts, "tanggal "+s.Date().String())
	}
	return strings.Join(parts, ", ")
}

func statusIcon(level entities.SeverityLevel) string {
	switch level {
	case entities.Excellent:
		return "🟢"
	case entities.Good:
		return "🔵"
	case entities.Warning:
		return "🟡"
	default:
		return "🔴"
	}
}
