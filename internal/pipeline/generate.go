package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/finmate-ai/voice-platform/internal/llm"
	"github.com/finmate-ai/voice-platform/internal/model"
	"github.com/finmate-ai/voice-platform/pkg/metrics"
)

const (
	// defaultConfidence is used whenever the confidence call fails or its
	// output cannot be decoded. Advisory only.
	defaultConfidence = 50

	// toolFailureNote annotates additional_info when a tool call fails.
	toolFailureNote = "Note: could not retrieve detailed information for this request."
)

// systemPrompt fixes the assistant's persona, scope, and output shape.
// The reasoning collaborator must answer with exactly this JSON object.
const systemPrompt = `You are FinMate, a loan advisory assistant for Indian retail borrowers. Answer questions about loans, eligibility, interest rates, repayment, and financial planning. Politely decline unrelated topics.

Respond with a single JSON object and nothing else:
{
  "result": "<main answer>",
  "loan_type": "<loan type discussed, or empty>",
  "interest_rate": "<rate mentioned, or empty>",
  "eligibility": "<eligibility notes, or empty>",
  "repayment_options": "<repayment notes, or empty>",
  "tool_call": "<one of eligibility_check, application_guidance, financial_tips, goal_tracking, or empty>",
  "tool_parameters": {"<key>": "<value>"}
}
Use a tool_call only when the user asks for an eligibility check, application guidance, financial tips, or goal tracking.`

// generate runs the Response Generator: one reasoning call, strict
// parse-or-default, closed tool dispatch, and the optional confidence
// score. Never fails a request; unusable collaborator output yields the
// default apology answer.
func (p *Pipeline) generate(ctx context.Context, sessionID, query, historyText, contextText string) model.GeneratedResponse {
	raw, err := p.complete(ctx, []llm.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserPrompt(query, historyText, contextText)},
	})
	if err != nil {
		metrics.StageFailures.WithLabelValues("generate").Inc()
		p.logger.Error("reasoning call failed",
			"session_id", sessionID,
			"error", err,
		)
		return model.GeneratedResponse{Answer: model.DefaultAnswer(), Confidence: defaultConfidence, Fallback: true}
	}

	var answer model.StructuredAnswer
	if err := llm.DecodeStructured(raw, &answer); err != nil || strings.TrimSpace(answer.Result) == "" {
		metrics.StageFailures.WithLabelValues("generate").Inc()
		p.logger.Warn("unparseable reasoning output, using default answer",
			"session_id", sessionID,
			"error", err,
		)
		return model.GeneratedResponse{Answer: model.DefaultAnswer(), Confidence: defaultConfidence, Fallback: true}
	}

	if kind, ok := model.ParseToolKind(answer.ToolCall); ok {
		p.dispatchTool(ctx, sessionID, &answer, model.ToolCall{
			Kind:       kind,
			Parameters: answer.ToolParameters,
		})
	}

	confidence := defaultConfidence
	if p.cfg.ConfidenceEnabled {
		confidence = p.scoreConfidence(ctx, query, contextText, answer.Result)
	}

	return model.GeneratedResponse{Answer: answer, Confidence: confidence}
}

// buildUserPrompt embeds history, retrieved context, and the query into
// one prompt block.
func buildUserPrompt(query, historyText, contextText string) string {
	var b strings.Builder
	if historyText != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(historyText)
		b.WriteString("\n\n")
	}
	if contextText != "" {
		b.WriteString("Relevant information:\n")
		b.WriteString(contextText)
		b.WriteString("\n\n")
	}
	b.WriteString("User question: ")
	b.WriteString(query)
	return b.String()
}

// dispatchTool runs one named capability and merges its output into
// additional_info. A failed tool annotates additional_info instead of
// replacing the primary answer.
func (p *Pipeline) dispatchTool(ctx context.Context, sessionID string, answer *model.StructuredAnswer, call model.ToolCall) {
	if call.Parameters == nil {
		call.Parameters = make(map[string]string)
	}
	for _, key := range call.Kind.RequiredParams() {
		if _, ok := call.Parameters[key]; !ok {
			call.Parameters[key] = ""
		}
	}

	detail, err := p.runTool(ctx, call)
	if err != nil {
		metrics.StageFailures.WithLabelValues("tool").Inc()
		p.logger.Warn("tool execution failed",
			"session_id", sessionID,
			"tool", string(call.Kind),
			"error", err,
		)
		answer.AdditionalInfo = joinBlocks(answer.AdditionalInfo, toolFailureNote)
		return
	}
	answer.AdditionalInfo = joinBlocks(answer.AdditionalInfo, detail)
}

// runTool issues one further reasoning call for the named capability.
// The switch is closed over the tool enumeration; unknown kinds cannot
// reach here.
func (p *Pipeline) runTool(ctx context.Context, call model.ToolCall) (string, error) {
	var instruction string
	switch call.Kind {
	case model.ToolEligibilityCheck:
		instruction = fmt.Sprintf(
			"Assess loan eligibility for this applicant profile: %s. Reply in plain text with the likely verdict, the key factors, and one improvement suggestion.",
			call.Parameters["user_info"],
		)
	case model.ToolApplicationGuidance:
		instruction = fmt.Sprintf(
			"List the application steps and required documents for a %s loan in India. Reply in plain text as a short numbered list.",
			call.Parameters["loan_type"],
		)
	case model.ToolFinancialTips:
		instruction = fmt.Sprintf(
			"Give three practical financial literacy tips about %s for an Indian retail borrower. Reply in plain text.",
			call.Parameters["topic"],
		)
	case model.ToolGoalTracking:
		instruction = fmt.Sprintf(
			"The user's financial goal is %q with current status %q. Reply in plain text with an assessment of progress and one next step.",
			call.Parameters["goal"], call.Parameters["status"],
		)
	default:
		return "", fmt.Errorf("unknown tool kind %q", call.Kind)
	}

	out, err := p.complete(ctx, []llm.ChatMessage{{Role: "user", Content: instruction}})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("tool returned empty output")
	}
	return strings.TrimSpace(out), nil
}

type confidenceResult struct {
	Confidence int `json:"confidence"`
}

// scoreConfidence rates the answer against the query and context on a
// 0-100 scale with a second, independent reasoning call. Any failure
// yields the neutral default; treat the value as advisory.
func (p *Pipeline) scoreConfidence(ctx context.Context, query, contextText, answer string) int {
	prompt := fmt.Sprintf(
		"Rate how well this answer addresses the question given the available information. Question: %s\nInformation: %s\nAnswer: %s\nRespond with a single JSON object: {\"confidence\": <integer 0-100>}",
		query, contextText, answer,
	)

	raw, err := p.complete(ctx, []llm.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return defaultConfidence
	}

	var res confidenceResult
	if err := llm.DecodeStructured(raw, &res); err != nil {
		return defaultConfidence
	}
	if res.Confidence < 0 || res.Confidence > 100 {
		return defaultConfidence
	}
	return res.Confidence
}

// complete issues one bounded reasoning call and records its latency.
func (p *Pipeline) complete(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	cctx, cancel := p.callCtx(ctx)
	defer cancel()

	start := time.Now()
	resp, err := p.reasoner.Complete(cctx, &llm.CompletionRequest{
		Model:       p.cfg.Model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.4,
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordLLMCall(p.reasoner.Name(), status, time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func joinBlocks(existing, block string) string {
	if existing == "" {
		return block
	}
	return existing + "\n\n" + block
}
