package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

const plannerSystemPrompt = "" +
	"You are the AI assistant of a CRM. You complete the user's request by " +
	"calling the available CRM tools, one call at a time.\n" +
	"Rules:\n" +
	"- Call at most one tool per turn.\n" +
	"- Mutating tools are reviewed by a human before they run. If a call " +
	"was rejected, do not retry it unchanged; choose a different approach " +
	"or explain why you cannot proceed.\n" +
	"- If a tool call failed, read the error and adapt.\n" +
	"- When you have everything you need, reply with a final answer in " +
	"plain text and no tool call."

// LLMPlanner asks a chat model for the next step, presenting the tool
// catalogue as function definitions and the action history as prior
// tool-call turns.
type LLMPlanner struct {
	model llms.Model
}

func NewLLMPlanner(model llms.Model) *LLMPlanner {
	return &LLMPlanner{model: model}
}

func (p *LLMPlanner) Plan(ctx context.Context, req PlanRequest) (*PlanResult, error) {
	messages := buildMessages(req)

	llmTools := make([]llms.Tool, 0, len(req.Tools))
	for _, def := range req.Tools {
		llmTools = append(llmTools, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		})
	}

	resp, err := p.model.GenerateContent(ctx, messages, llms.WithTools(llmTools))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("model returned no choices")
	}

	choice := resp.Choices[0]
	if len(choice.ToolCalls) > 0 {
		call := choice.ToolCalls[0]
		if call.FunctionCall == nil || call.FunctionCall.Name == "" {
			return nil, errors.New("model returned a malformed tool call")
		}
		input := json.RawMessage(call.FunctionCall.Arguments)
		if len(input) > 0 && !json.Valid(input) {
			return nil, fmt.Errorf("model returned unparseable tool arguments for %s", call.FunctionCall.Name)
		}
		return &PlanResult{Call: &ToolCall{Name: call.FunctionCall.Name, Input: input}}, nil
	}

	answer := strings.TrimSpace(choice.Content)
	if answer == "" {
		return nil, errors.New("model returned neither an answer nor a tool call")
	}
	return &PlanResult{Answer: answer}, nil
}

func buildMessages(req PlanRequest) []llms.MessageContent {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(plannerSystemPrompt)},
		},
	}

	prompt := req.Prompt
	if req.Goal != "" {
		prompt = fmt.Sprintf("%s\n\nGoal: %s", prompt, req.Goal)
	}
	prompt = fmt.Sprintf("%s\n\n(You may execute at most %d more tool calls.)", prompt, req.RemainingSteps)
	messages = append(messages, llms.MessageContent{
		Role:  llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{llms.TextPart(prompt)},
	})

	for _, entry := range req.History {
		messages = append(messages, llms.MessageContent{
			Role: llms.ChatMessageTypeAI,
			Parts: []llms.ContentPart{llms.ToolCall{
				ID:   entry.ActionID,
				Type: "function",
				FunctionCall: &llms.FunctionCall{
					Name:      entry.ToolName,
					Arguments: string(entry.ToolInput),
				},
			}},
		})
		messages = append(messages, llms.MessageContent{
			Role: llms.ChatMessageTypeTool,
			Parts: []llms.ContentPart{llms.ToolCallResponse{
				ToolCallID: entry.ActionID,
				Name:       entry.ToolName,
				Content:    historyEntryContent(entry),
			}},
		})
	}

	return messages
}

func historyEntryContent(entry HistoryEntry) string {
	if entry.Rejected {
		reason := entry.RejectionReason
		if reason == "" {
			reason = "no reason given"
		}
		return fmt.Sprintf("REJECTED by the user (%s). The call was not executed.", reason)
	}
	if entry.ExecutionError != "" {
		return fmt.Sprintf("ERROR: %s", entry.ExecutionError)
	}
	if len(entry.ToolOutput) > 0 {
		return string(entry.ToolOutput)
	}
	return "(no output)"
}
