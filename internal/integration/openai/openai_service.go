// Package openai maps free-text questions about water quality onto dashboard actions
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/abelzeko/water-monitor/internal/history"
)

// Commands the agent can select
const (
	CommandShowStatus    = "ShowStatus"
	CommandFilterHistory = "FilterHistory"
	CommandGeneralQuery  = "GeneralQuery"
)

// AgentResponse defines the structured output from the OpenAI agent.
type AgentResponse struct {
	CommandName string `json:"command_name" jsonschema_description:"The command to execute: ShowStatus, FilterHistory or GeneralQuery"`
	SearchText  string `json:"search_text" jsonschema_description:"Free text to match against the history table, empty for none"`
	Status      string `json:"status" jsonschema_description:"Severity filter: all, excellent, good, warning or danger"`
	Date        string `json:"date" jsonschema_description:"Calendar day in YYYY-MM-DD format, empty for none"`
	Page        int    `json:"page" jsonschema_description:"History page to show, 1 for the first page"`
	UserMessage string `json:"user_message" jsonschema_description:"A message to show back to the user in their original language"`
}

// OpenAIService defines the interface for interacting with the OpenAI agent.
type OpenAIService interface {
	InterpretHistoryQuery(ctx context.Context, userMessage string, today time.Time) (*AgentResponse, error)
}

// openAIServiceImpl implements the OpenAIService interface.
type openAIServiceImpl struct {
	client openai.Client
	schema interface{}
	logger *zap.Logger
}

// GenerateSchema generates a JSON schema for a given type.
func GenerateSchema[T any]() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// NewOpenAIService creates and initializes a new OpenAIService.
func NewOpenAIService(apiKey string, logger *zap.Logger) (OpenAIService, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	schema := GenerateSchema[AgentResponse]()

	return &openAIServiceImpl{
		client: client,
		schema: schema,
		logger: logger,
	}, nil
}

const systemPrompt = `You are the assistant of a water-quality monitoring station. Sensors report turbidity (NTU),
pH, water temperature (°C) and water flow (L/s). Every reading is classified as excellent, good, warning or danger.

You understand Indonesian and English and reply in the language the user used, briefly and politely.

Today is %s.

Behavior:
1. If the user asks about the current condition of the water:
   - command_name = "ShowStatus"
2. If the user asks to look through past readings (by day, by severity, by a value):
   - command_name = "FilterHistory"
   - status: one of all, excellent, good, warning, danger ("all" if not mentioned)
   - date: the day they mean as YYYY-MM-DD, resolving words like "today" or "kemarin"; empty if none
   - search_text: a number or word to look for; empty if none
   - page: 1 unless the user asks for a later page
3. Anything else:
   - command_name = "GeneralQuery"
In every case user_message is a one-line reply for the user; unused fields are empty strings and page is 1.

Output **strictly** in JSON.`

// InterpretHistoryQuery sends a message to the OpenAI agent and returns the structured response.
func (s *openAIServiceImpl) InterpretHistoryQuery(ctx context.Context, userMessage string, today time.Time) (*AgentResponse, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "agent_response",
		Description: openai.String("Structured response containing command, history filters and user message"),
		Schema:      s.schema,
		Strict:      openai.Bool(true),
	}

	respFormat := openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{JSONSchema: schemaParam},
	}

	chat, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(fmt.Sprintf(systemPrompt, today.Format("2006-01-02 (Monday)"))),
			openai.UserMessage(userMessage),
		},
		ResponseFormat: respFormat,
		Model:          openai.ChatModelGPT4o,
	})

	if err != nil {
		return nil, fmt.Errorf("error calling OpenAI API: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return nil, errors.New("received empty response from OpenAI")
	}

	return ParseAgentResponse(chat.Choices[0].Message.Content, s.logger)
}

// ParseAgentResponse decodes the model's JSON output
func ParseAgentResponse(content string, logger *zap.Logger) (*AgentResponse, error) {
	var agentResp AgentResponse
	if err := json.Unmarshal([]byte(content), &agentResp); err != nil {
		logger.Warn("failed to unmarshal OpenAI response", zap.Error(err), zap.String("raw", content))
		return nil, fmt.Errorf("error unmarshalling OpenAI response: %w", err)
	}
	return &agentResp, nil
}

// ApplyFilters replaces the filters of state with the ones the agent chose.
// Fields the history controller rejects are skipped and reported back.
func (r AgentResponse) ApplyFilters(state history.State) (history.State, []string) {
	var ignored []string

	next := state.ResetFilters().WithSearch(strings.TrimSpace(r.SearchText))

	if r.Status != "" {
		if status, err := history.ParseStatusFilter(r.Status); err == nil {
			next = next.WithStatus(status)
		} else {
			ignored = append(ignored, "status")
		}
	}

	if r.Date != "" {
		if day, err := history.ParseDay(r.Date); err == nil {
			next = next.WithDate(day)
		} else {
			ignored = append(ignored, "date")
		}
	}

	if r.Page > 1 {
		next = next.WithPage(r.Page)
	}
	return next, ignored
}
