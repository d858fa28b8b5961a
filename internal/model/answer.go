package model

import (
	"sort"
	"strconv"
)

// DefaultApology is the answer substituted when the reasoning collaborator
// returns output that cannot be decoded.
const DefaultApology = "I apologize, but I encountered an error while processing your request."

// StructuredAnswer is the fixed output shape requested from the reasoning
// collaborator.
type StructuredAnswer struct {
	Result           string            `json:"result"`
	LoanType         string            `json:"loan_type"`
	InterestRate     string            `json:"interest_rate"`
	Eligibility      string            `json:"eligibility"`
	RepaymentOptions string            `json:"repayment_options"`
	AdditionalInfo   string            `json:"additional_info"`
	ToolCall         string            `json:"tool_call"`
	ToolParameters   map[string]string `json:"tool_parameters"`
}

// DefaultAnswer returns the fallback structure with the fixed apology in
// `result` and every other field empty.
func DefaultAnswer() StructuredAnswer {
	return StructuredAnswer{Result: DefaultApology}
}

// ToolKind enumerates the closed set of reasoning sub-capabilities.
type ToolKind string

const (
	ToolEligibilityCheck    ToolKind = "eligibility_check"
	ToolApplicationGuidance ToolKind = "application_guidance"
	ToolFinancialTips       ToolKind = "financial_tips"
	ToolGoalTracking        ToolKind = "goal_tracking"
)

// ToolCall is a validated request to execute one named capability.
type ToolCall struct {
	Kind       ToolKind
	Parameters map[string]string
}

// ParseToolKind maps the loosely-named tool strings the LLM emits onto the
// closed enumeration. The bool result is false for unknown or empty names.
func ParseToolKind(name string) (ToolKind, bool) {
	switch name {
	case "eligibility_check", "Loan Eligibility Check":
		return ToolEligibilityCheck, true
	case "application_guidance", "Loan Application Guidance":
		return ToolApplicationGuidance, true
	case "financial_tips", "Financial Literacy Tips":
		return ToolFinancialTips, true
	case "goal_tracking", "Financial Goal Tracking":
		return ToolGoalTracking, true
	}
	return "", false
}

// RequiredParams lists the parameter keys a tool kind expects. Missing keys
// are filled with empty strings at the dispatch boundary.
func (k ToolKind) RequiredParams() []string {
	switch k {
	case ToolEligibilityCheck:
		return []string{"user_info"}
	case ToolApplicationGuidance:
		return []string{"loan_type"}
	case ToolFinancialTips:
		return []string{"topic"}
	case ToolGoalTracking:
		return []string{"goal", "status"}
	}
	return nil
}

// GeneratedResponse is the Response Generator's output.
type GeneratedResponse struct {
	Answer     StructuredAnswer
	Confidence int
	Fallback   bool
}

func itoa(n int) string { return strconv.Itoa(n) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
