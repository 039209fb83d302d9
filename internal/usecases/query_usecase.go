package usecases

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/history"
	"github.com/abelzeko/water-monitor/internal/integration/openai"
)

// QueryAction tells the caller what to show after a free-text query
type QueryAction int

const (
	ActionReply QueryAction = iota
	ActionShowStatus
	ActionShowHistory
)

// QueryResult is the outcome of interpreting a free-text query
type QueryResult struct {
	Action  QueryAction
	Message string
	State   history.State
}

// QueryUseCase turns free-text questions into dashboard actions
type QueryUseCase struct {
	dashboard     *DashboardUseCase
	openAIService openai.OpenAIService
	logger        *zap.Logger
}

// NewQueryUseCase creates a new query use case
func NewQueryUseCase(dashboard *DashboardUseCase, openAIService openai.OpenAIService, logger *zap.Logger) *QueryUseCase {
	return &QueryUseCase{
		dashboard:     dashboard,
		openAIService: openAIService,
		logger:        logger,
	}
}

// HandleNaturalLanguageQuery interprets a user's free-text query using the AI service.
// The returned state is the caller's state with the agent's filters applied, or unchanged.
func (uc *QueryUseCase) HandleNaturalLanguageQuery(ctx context.Context, query string, state history.State) QueryResult {
	unchanged := QueryResult{Action: ActionReply, State: state}
	if uc.openAIService == nil {
		unchanged.Message = "Gunakan /help untuk melihat daftar perintah."
		return unchanged
	}

	uc.logger.Debug("interpreting natural language query", zap.String("query", query))
	agentResp, err := uc.openAIService.InterpretHistoryQuery(ctx, query, uc.now())
	if err != nil {
		uc.logger.Warn("error interpreting user query via OpenAI", zap.Error(err))
		unchanged.Message = "Maaf, saya belum bisa memahami pertanyaan itu. Coba lagi nanti atau gunakan /help."
		return unchanged
	}

	uc.logger.Debug("agent response",
		zap.String("command", agentResp.CommandName),
		zap.String("status", agentResp.Status),
		zap.String("date", agentResp.Date),
	)

	switch agentResp.CommandName {
	case openai.CommandShowStatus:
		return QueryResult{Action: ActionShowStatus, Message: agentResp.UserMessage, State: state}
	case openai.CommandFilterHistory:
		next, ignored := agentResp.ApplyFilters(uc.dashboard.History(state))
		if len(ignored) > 0 {
			uc.logger.Info("ignored invalid agent fields", zap.Strings("fields", ignored))
		}
		return QueryResult{Action: ActionShowHistory, Message: agentResp.UserMessage, State: next}
	case openai.CommandGeneralQuery:
		unchanged.Message = agentResp.UserMessage
		return unchanged
	default:
		uc.logger.Warn("agent returned unexpected command", zap.String("command", agentResp.CommandName))
		unchanged.Message = strings.TrimSpace(agentResp.UserMessage + "\nGunakan /help untuk melihat daftar perintah.")
		return unchanged
	}
}

func (uc *QueryUseCase) now() time.Time {
	return uc.dashboard.now().In(uc.dashboard.Location())
}
