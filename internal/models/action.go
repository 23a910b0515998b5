package models

import (
	"fmt"
	"time"
)

type ActionType string

const (
	ActionAIPrompt        ActionType = "ai-prompt"
	ActionSendEmail       ActionType = "send-email"
	ActionWebhook         ActionType = "webhook"
	ActionRunCode         ActionType = "run-code"
	ActionGenerateReport  ActionType = "generate-report"
	ActionChain           ActionType = "chain"
	ActionWebScrape       ActionType = "web-scrape"
	ActionFileOperation   ActionType = "file-operation"
	ActionGoogleWorkspace ActionType = "google-workspace"
)

// TaskAction is the tagged union describing what a task does. Type selects the
// variant; the remaining fields are the union of all variant payloads. The
// chain variant is the only recursive one: Tasks holds nested actions that run
// strictly sequentially.
type TaskAction struct {
	Type ActionType `json:"type"`

	// ai-prompt
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model,omitempty"`

	// send-email (Body is shared with webhook)
	To      string `json:"to,omitempty"`
	Subject string `json:"subject,omitempty"`
	Body    string `json:"body,omitempty"`

	// webhook
	URL     string            `json:"url,omitempty"`
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`

	// run-code
	Language string `json:"language,omitempty"`
	Code     string `json:"code,omitempty"`

	// generate-report
	Config map[string]interface{} `json:"config,omitempty"`

	// chain
	Tasks []TaskAction `json:"tasks,omitempty"`

	// web-scrape (URL is shared with webhook)
	Selector string `json:"selector,omitempty"`

	// file-operation
	Operation string `json:"operation,omitempty"`
	Path      string `json:"path,omitempty"`

	// google-workspace
	Service string                 `json:"service,omitempty"`
	Action  string                 `json:"action,omitempty"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Validate checks the variant tag and the fields the executor cannot do
// without. Chains are validated recursively.
func (a *TaskAction) Validate() error {
	switch a.Type {
	case ActionAIPrompt:
		if a.Prompt == "" {
			return fmt.Errorf("ai-prompt action requires a prompt")
		}
	case ActionSendEmail:
		if a.To == "" {
			return fmt.Errorf("send-email action requires a recipient")
		}
	case ActionWebhook:
		if a.URL == "" {
			return fmt.Errorf("webhook action requires a url")
		}
	case ActionRunCode:
		if a.Code == "" {
			return fmt.Errorf("run-code action requires code")
		}
	case ActionGenerateReport:
	case ActionChain:
		if len(a.Tasks) == 0 {
			return fmt.Errorf("chain action requires at least one nested task")
		}
		for i := range a.Tasks {
			if err := a.Tasks[i].Validate(); err != nil {
				return fmt.Errorf("chain step %d: %w", i+1, err)
			}
		}
	case ActionWebScrape:
		if a.URL == "" {
			return fmt.Errorf("web-scrape action requires a url")
		}
	case ActionFileOperation:
		if a.Operation == "" || a.Path == "" {
			return fmt.Errorf("file-operation action requires an operation and a path")
		}
	case ActionGoogleWorkspace:
		if a.Service == "" || a.Action == "" {
			return fmt.Errorf("google-workspace action requires a service and an action")
		}
	default:
		return fmt.Errorf("unknown action type: %q", a.Type)
	}
	return nil
}

// CompletionResult is returned by the LLM collaborator.
type CompletionResult struct {
	Response string      `json:"response"`
	Model    string      `json:"model"`
	Usage    interface{} `json:"usage,omitempty"`
}

type EmailResult struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	SentAt  time.Time `json:"sent_at"`
}

type WebhookResult struct {
	StatusCode int    `json:"status_code"`
	Body       string `json:"body"`
}

type SandboxResult struct {
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exit_code"`
}

type ReportResult struct {
	Report      string                 `json:"report"`
	Config      map[string]interface{} `json:"config"`
	GeneratedAt time.Time              `json:"generated_at"`
}

type ScrapeResult struct {
	Items   []string `json:"items,omitempty"`
	Content string   `json:"content,omitempty"`
}

type FileOperationResult struct {
	Operation string `json:"operation"`
	Path      string `json:"path"`
	Status    string `json:"status"`
}

// ChainStepResult tags one nested action's result with its 1-based position.
type ChainStepResult struct {
	Step   int         `json:"step"`
	Type   ActionType  `json:"type"`
	Result interface{} `json:"result"`
}

type ChainResult struct {
	Results []ChainStepResult `json:"results"`
}
