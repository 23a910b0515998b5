package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/models"
	"golang-task-automation-engine/internal/utils"
)

const logOutputLimit = 500

// LLMClient produces a completion for a prompt.
type LLMClient interface {
	Complete(ctx context.Context, prompt string, model string) (*models.CompletionResult, error)
}

// EmailSender delivers a single message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// CodeSandbox runs a snippet and reports its output and exit status.
type CodeSandbox interface {
	Execute(ctx context.Context, language, code string) (*models.SandboxResult, error)
}

// WebScraper fetches a page and extracts items matching an optional selector.
type WebScraper interface {
	Scrape(ctx context.Context, url, selector string) (*models.ScrapeResult, error)
}

// WorkspaceClient forwards a service/action/params triple to the workspace
// integration and returns its raw result.
type WorkspaceClient interface {
	Execute(ctx context.Context, service, action string, params map[string]interface{}) (interface{}, error)
}

// Dependencies are the optional collaborators resolved at construction time.
// A nil field turns the corresponding action into a MissingDependencyError at
// execution time.
type Dependencies struct {
	LLM       LLMClient
	Email     EmailSender
	Sandbox   CodeSandbox
	Scraper   WebScraper
	Workspace WorkspaceClient
}

type Executor struct {
	log        *logrus.Logger
	deps       Dependencies
	httpClient *http.Client
}

func New(log *logrus.Logger, deps Dependencies) *Executor {
	return &Executor{
		log:  log,
		deps: deps,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Execute dispatches one action by its type tag and returns the variant's
// structured result. Every handler appends a started line and a
// finished/failed line to execLog; errors are logged before being returned so
// the failure handler upstream sees a complete trail.
func (e *Executor) Execute(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	if err := action.Validate(); err != nil {
		execLog.Appendf("invalid action: %v", err)
		return nil, err
	}

	switch action.Type {
	case models.ActionAIPrompt:
		return e.executeAIPrompt(ctx, action, execLog)
	case models.ActionSendEmail:
		return e.executeSendEmail(ctx, action, execLog)
	case models.ActionWebhook:
		return e.executeWebhook(ctx, action, execLog)
	case models.ActionRunCode:
		return e.executeRunCode(ctx, action, execLog)
	case models.ActionGenerateReport:
		return e.executeGenerateReport(ctx, action, execLog)
	case models.ActionChain:
		return e.executeChain(ctx, action, execLog)
	case models.ActionWebScrape:
		return e.executeWebScrape(ctx, action, execLog)
	case models.ActionFileOperation:
		return e.executeFileOperation(ctx, action, execLog)
	case models.ActionGoogleWorkspace:
		return e.executeGoogleWorkspace(ctx, action, execLog)
	default:
		err := fmt.Errorf("unknown action type: %q", action.Type)
		execLog.Appendf("%v", err)
		return nil, err
	}
}

func (e *Executor) executeAIPrompt(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("ai-prompt started (model=%s)", action.Model)
	if e.deps.LLM == nil {
		err := &MissingDependencyError{Dependency: "LLM client"}
		execLog.Appendf("ai-prompt failed: %v", err)
		return nil, err
	}
	result, err := e.deps.LLM.Complete(ctx, action.Prompt, action.Model)
	if err != nil {
		execLog.Appendf("ai-prompt failed: %v", err)
		return nil, fmt.Errorf("ai-prompt failed: %w", err)
	}
	execLog.Appendf("ai-prompt finished (model=%s, %d chars)", result.Model, len(result.Response))
	return result, nil
}

func (e *Executor) executeSendEmail(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("send-email started (to=%s)", action.To)
	if e.deps.Email == nil {
		err := &MissingDependencyError{Dependency: "email sender"}
		execLog.Appendf("send-email failed: %v", err)
		return nil, err
	}
	if err := e.deps.Email.Send(ctx, action.To, action.Subject, action.Body); err != nil {
		execLog.Appendf("send-email failed: %v", err)
		return nil, fmt.Errorf("send-email failed: %w", err)
	}
	execLog.Appendf("send-email finished (to=%s)", action.To)
	return &models.EmailResult{
		To:      action.To,
		Subject: action.Subject,
		SentAt:  time.Now(),
	}, nil
}

func (e *Executor) executeWebhook(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	method := action.Method
	if method == "" {
		method = http.MethodPost
	}
	execLog.Appendf("webhook started (%s %s)", method, action.URL)

	var body io.Reader
	if action.Body != "" {
		body = bytes.NewBufferString(action.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, action.URL, body)
	if err != nil {
		execLog.Appendf("webhook failed: %v", err)
		return nil, fmt.Errorf("failed to create webhook request: %w", err)
	}
	if action.Body != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range action.Headers {
		req.Header.Set(key, value)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		execLog.Appendf("webhook failed: %v", err)
		return nil, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		execLog.Appendf("webhook failed: %v", err)
		return nil, fmt.Errorf("failed to read webhook response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, utils.TruncateOutput(string(respBody), logOutputLimit))
		execLog.Appendf("webhook failed: %v", err)
		return nil, err
	}

	execLog.Appendf("webhook finished (status=%d)", resp.StatusCode)
	return &models.WebhookResult{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}, nil
}

func (e *Executor) executeRunCode(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("run-code started (language=%s)", action.Language)
	if e.deps.Sandbox == nil {
		err := &MissingDependencyError{Dependency: "code sandbox"}
		execLog.Appendf("run-code failed: %v", err)
		return nil, err
	}
	result, err := e.deps.Sandbox.Execute(ctx, action.Language, action.Code)
	if err != nil {
		execLog.Appendf("run-code failed: %v", err)
		return nil, fmt.Errorf("run-code failed: %w", err)
	}
	if result.Stdout != "" {
		execLog.Appendf("stdout: %s", utils.TruncateOutput(result.Stdout, logOutputLimit))
	}
	if result.Stderr != "" {
		execLog.Appendf("stderr: %s", utils.TruncateOutput(result.Stderr, logOutputLimit))
	}
	execLog.Appendf("run-code finished (exit_code=%d)", result.ExitCode)
	return result, nil
}

func (e *Executor) executeGenerateReport(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("generate-report started")
	if e.deps.LLM == nil {
		err := &MissingDependencyError{Dependency: "LLM client"}
		execLog.Appendf("generate-report failed: %v", err)
		return nil, err
	}

	configJSON, _ := json.Marshal(action.Config)
	prompt := fmt.Sprintf(`You are a report author. Write a clear, well-structured report based on the following configuration.

Configuration:
%s

Cover every topic the configuration names, include a short executive summary at the top, and close with actionable takeaways. Use plain prose with section headings.`, string(configJSON))

	result, err := e.deps.LLM.Complete(ctx, prompt, action.Model)
	if err != nil {
		execLog.Appendf("generate-report failed: %v", err)
		return nil, fmt.Errorf("generate-report failed: %w", err)
	}
	execLog.Appendf("generate-report finished (%d chars)", len(result.Response))
	return &models.ReportResult{
		Report:      result.Response,
		Config:      action.Config,
		GeneratedAt: time.Now(),
	}, nil
}

// executeChain runs nested actions strictly sequentially: later steps may
// depend on side effects of earlier ones. On the first failing step the chain
// stops and rethrows; results collected so far survive only in the log.
func (e *Executor) executeChain(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("chain started (%d steps)", len(action.Tasks))
	results := make([]models.ChainStepResult, 0, len(action.Tasks))
	for i := range action.Tasks {
		step := &action.Tasks[i]
		execLog.Appendf("chain step %d/%d: %s", i+1, len(action.Tasks), step.Type)
		result, err := e.Execute(ctx, step, execLog)
		if err != nil {
			execLog.Appendf("chain stopped at step %d (%s): %v", i+1, step.Type, err)
			return nil, fmt.Errorf("chain step %d (%s) failed: %w", i+1, step.Type, err)
		}
		results = append(results, models.ChainStepResult{
			Step:   i + 1,
			Type:   step.Type,
			Result: result,
		})
	}
	execLog.Appendf("chain finished (%d steps)", len(results))
	return &models.ChainResult{Results: results}, nil
}

func (e *Executor) executeWebScrape(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("web-scrape started (url=%s)", action.URL)
	if e.deps.Scraper == nil {
		err := &MissingDependencyError{Dependency: "web scraper"}
		execLog.Appendf("web-scrape failed: %v", err)
		return nil, err
	}
	result, err := e.deps.Scraper.Scrape(ctx, action.URL, action.Selector)
	if err != nil {
		execLog.Appendf("web-scrape failed: %v", err)
		return nil, fmt.Errorf("web-scrape failed: %w", err)
	}
	execLog.Appendf("web-scrape finished (%d items)", len(result.Items))
	return result, nil
}

// executeFileOperation is a passthrough for a collaborator that is not part
// of this engine. It reports success uniformly with the other variants so
// chains containing it behave predictably.
func (e *Executor) executeFileOperation(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("file-operation started (%s %s)", action.Operation, action.Path)
	execLog.Appendf("file-operation finished (%s %s)", action.Operation, action.Path)
	return &models.FileOperationResult{
		Operation: action.Operation,
		Path:      action.Path,
		Status:    "ok",
	}, nil
}

func (e *Executor) executeGoogleWorkspace(ctx context.Context, action *models.TaskAction, execLog *Log) (interface{}, error) {
	execLog.Appendf("google-workspace started (%s.%s)", action.Service, action.Action)
	if e.deps.Workspace == nil {
		err := &MissingDependencyError{Dependency: "workspace client"}
		execLog.Appendf("google-workspace failed: %v", err)
		return nil, err
	}
	result, err := e.deps.Workspace.Execute(ctx, action.Service, action.Action, action.Params)
	if err != nil {
		execLog.Appendf("google-workspace failed: %v", err)
		return nil, fmt.Errorf("google-workspace failed: %w", err)
	}
	execLog.Appendf("google-workspace finished (%s.%s)", action.Service, action.Action)
	return result, nil
}
