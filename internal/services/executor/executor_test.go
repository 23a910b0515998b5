package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/models"
)

type fakeLLM struct {
	calls   int
	failOn  int
	lastErr error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt, model string) (*models.CompletionResult, error) {
	f.calls++
	if f.failOn != 0 && f.calls == f.failOn {
		f.lastErr = errors.New("llm unavailable")
		return nil, f.lastErr
	}
	return &models.CompletionResult{Response: "completion for: " + prompt, Model: "fake-model"}, nil
}

type fakeEmail struct {
	sent []string
	err  error
}

func (f *fakeEmail) Send(ctx context.Context, to, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

type fakeSandbox struct {
	result *models.SandboxResult
	err    error
}

func (f *fakeSandbox) Execute(ctx context.Context, language, code string) (*models.SandboxResult, error) {
	return f.result, f.err
}

type fakeScraper struct {
	result *models.ScrapeResult
	err    error
}

func (f *fakeScraper) Scrape(ctx context.Context, url, selector string) (*models.ScrapeResult, error) {
	return f.result, f.err
}

type fakeWorkspace struct {
	lastService string
	lastAction  string
	lastParams  map[string]interface{}
}

func (f *fakeWorkspace) Execute(ctx context.Context, service, action string, params map[string]interface{}) (interface{}, error) {
	f.lastService = service
	f.lastAction = action
	f.lastParams = params
	return map[string]interface{}{"ok": true}, nil
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestExecute_AIPrompt(t *testing.T) {
	llm := &fakeLLM{}
	e := New(testLogger(), Dependencies{LLM: llm})
	execLog := NewLog()

	result, err := e.Execute(context.Background(), &models.TaskAction{
		Type:   models.ActionAIPrompt,
		Prompt: "write a haiku",
	}, execLog)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	completion, ok := result.(*models.CompletionResult)
	if !ok {
		t.Fatalf("result type = %T, want *models.CompletionResult", result)
	}
	if completion.Response != "completion for: write a haiku" {
		t.Errorf("response = %q", completion.Response)
	}
	if execLog.Len() < 2 {
		t.Errorf("expected started and finished log lines, got %d", execLog.Len())
	}
}

func TestExecute_MissingDependencies(t *testing.T) {
	// No collaborators injected at all.
	e := New(testLogger(), Dependencies{})
	tests := []struct {
		name   string
		action models.TaskAction
		want   string
	}{
		{
			name:   "llm",
			action: models.TaskAction{Type: models.ActionAIPrompt, Prompt: "hi"},
			want:   "LLM client not configured",
		},
		{
			name:   "email",
			action: models.TaskAction{Type: models.ActionSendEmail, To: "a@b.c"},
			want:   "email sender not configured",
		},
		{
			name:   "sandbox",
			action: models.TaskAction{Type: models.ActionRunCode, Language: "python", Code: "print(1)"},
			want:   "code sandbox not configured",
		},
		{
			name:   "scraper",
			action: models.TaskAction{Type: models.ActionWebScrape, URL: "https://example.com"},
			want:   "web scraper not configured",
		},
		{
			name:   "workspace",
			action: models.TaskAction{Type: models.ActionGoogleWorkspace, Service: "sheets", Action: "append"},
			want:   "workspace client not configured",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Execute(context.Background(), &tt.action, NewLog())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsMissingDependency(err) {
				t.Errorf("IsMissingDependency(%v) = false, want true", err)
			}
			if err.Error() != tt.want {
				t.Errorf("error = %q, want %q", err.Error(), tt.want)
			}
		})
	}
}

func TestExecute_Webhook(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
			fmt.Fprint(w, `{"received":true}`)
		default:
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, "upstream exploded")
		}
	}))
	defer server.Close()

	e := New(testLogger(), Dependencies{})

	t.Run("2xx returns the body", func(t *testing.T) {
		result, err := e.Execute(context.Background(), &models.TaskAction{
			Type:   models.ActionWebhook,
			URL:    server.URL + "/ok",
			Method: http.MethodPost,
			Body:   `{"ping":1}`,
		}, NewLog())
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		webhook := result.(*models.WebhookResult)
		if webhook.StatusCode != http.StatusOK || webhook.Body != `{"received":true}` {
			t.Errorf("result = %+v", webhook)
		}
	})

	t.Run("non-2xx is a failure carrying the body", func(t *testing.T) {
		_, err := e.Execute(context.Background(), &models.TaskAction{
			Type: models.ActionWebhook,
			URL:  server.URL + "/boom",
		}, NewLog())
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "upstream exploded") {
			t.Errorf("error = %v, want status and body", err)
		}
	})
}

func TestExecute_RunCode(t *testing.T) {
	sandbox := &fakeSandbox{result: &models.SandboxResult{Stdout: "42\n", ExitCode: 0}}
	e := New(testLogger(), Dependencies{Sandbox: sandbox})
	execLog := NewLog()

	result, err := e.Execute(context.Background(), &models.TaskAction{
		Type:     models.ActionRunCode,
		Language: "python",
		Code:     "print(42)",
	}, execLog)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if result.(*models.SandboxResult).Stdout != "42\n" {
		t.Errorf("stdout = %q", result.(*models.SandboxResult).Stdout)
	}
	found := false
	for _, line := range execLog.Lines() {
		if strings.Contains(line, "stdout: 42") {
			found = true
		}
	}
	if !found {
		t.Errorf("stdout missing from log: %v", execLog.Lines())
	}
}

func TestExecute_GenerateReport(t *testing.T) {
	llm := &fakeLLM{}
	e := New(testLogger(), Dependencies{LLM: llm})

	result, err := e.Execute(context.Background(), &models.TaskAction{
		Type:   models.ActionGenerateReport,
		Config: map[string]interface{}{"topic": "weekly usage"},
	}, NewLog())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	report := result.(*models.ReportResult)
	if report.Report == "" || report.Config["topic"] != "weekly usage" {
		t.Errorf("report = %+v", report)
	}
	if report.GeneratedAt.IsZero() {
		t.Error("generated_at not set")
	}
}

func TestExecute_ChainShortCircuit(t *testing.T) {
	// Step 2 fails: the chain must stop before step 3 and surface one error.
	llm := &fakeLLM{failOn: 2}
	e := New(testLogger(), Dependencies{LLM: llm})
	execLog := NewLog()

	_, err := e.Execute(context.Background(), &models.TaskAction{
		Type: models.ActionChain,
		Tasks: []models.TaskAction{
			{Type: models.ActionAIPrompt, Prompt: "step one"},
			{Type: models.ActionAIPrompt, Prompt: "step two"},
			{Type: models.ActionAIPrompt, Prompt: "step three"},
		},
	}, execLog)
	if err == nil {
		t.Fatal("expected chain error, got nil")
	}
	if !strings.Contains(err.Error(), "chain step 2") {
		t.Errorf("error = %v, want failing step named", err)
	}
	if llm.calls != 2 {
		t.Errorf("llm calls = %d, want 2 (step 3 must not run)", llm.calls)
	}

	joined := strings.Join(execLog.Lines(), "\n")
	if !strings.Contains(joined, "chain step 1/3") || !strings.Contains(joined, "chain step 2/3") {
		t.Errorf("log missing attempted steps: %s", joined)
	}
	if strings.Contains(joined, "chain step 3/3") {
		t.Errorf("log contains step 3, which must not have been attempted: %s", joined)
	}
}

func TestExecute_ChainSuccessCollectsOrderedResults(t *testing.T) {
	llm := &fakeLLM{}
	email := &fakeEmail{}
	e := New(testLogger(), Dependencies{LLM: llm, Email: email})

	result, err := e.Execute(context.Background(), &models.TaskAction{
		Type: models.ActionChain,
		Tasks: []models.TaskAction{
			{Type: models.ActionAIPrompt, Prompt: "draft digest"},
			{Type: models.ActionSendEmail, To: "ops@example.com", Subject: "digest"},
		},
	}, NewLog())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	chain := result.(*models.ChainResult)
	if len(chain.Results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(chain.Results))
	}
	if chain.Results[0].Step != 1 || chain.Results[0].Type != models.ActionAIPrompt {
		t.Errorf("step 1 = %+v", chain.Results[0])
	}
	if chain.Results[1].Step != 2 || chain.Results[1].Type != models.ActionSendEmail {
		t.Errorf("step 2 = %+v", chain.Results[1])
	}
	if len(email.sent) != 1 || email.sent[0] != "ops@example.com" {
		t.Errorf("email.sent = %v", email.sent)
	}
}

func TestExecute_FileOperationPassthrough(t *testing.T) {
	e := New(testLogger(), Dependencies{})
	result, err := e.Execute(context.Background(), &models.TaskAction{
		Type:      models.ActionFileOperation,
		Operation: "read",
		Path:      "/data/report.csv",
	}, NewLog())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	fileOp := result.(*models.FileOperationResult)
	if fileOp.Status != "ok" || fileOp.Operation != "read" || fileOp.Path != "/data/report.csv" {
		t.Errorf("result = %+v", fileOp)
	}
}

func TestExecute_GoogleWorkspaceForwardsVerbatim(t *testing.T) {
	ws := &fakeWorkspace{}
	e := New(testLogger(), Dependencies{Workspace: ws})

	params := map[string]interface{}{"spreadsheetId": "abc123"}
	_, err := e.Execute(context.Background(), &models.TaskAction{
		Type:    models.ActionGoogleWorkspace,
		Service: "sheets",
		Action:  "append",
		Params:  params,
	}, NewLog())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ws.lastService != "sheets" || ws.lastAction != "append" || ws.lastParams["spreadsheetId"] != "abc123" {
		t.Errorf("forwarded = %s.%s %v", ws.lastService, ws.lastAction, ws.lastParams)
	}
}

func TestExecute_InvalidAction(t *testing.T) {
	e := New(testLogger(), Dependencies{})
	execLog := NewLog()
	_, err := e.Execute(context.Background(), &models.TaskAction{Type: "unknown"}, execLog)
	if err == nil {
		t.Fatal("expected error for unknown action type")
	}
	if execLog.Len() == 0 {
		t.Error("invalid action must still leave a log line")
	}
}

func TestExecute_WebScrape(t *testing.T) {
	scraper := &fakeScraper{result: &models.ScrapeResult{Items: []string{"headline one", "headline two"}}}
	e := New(testLogger(), Dependencies{Scraper: scraper})

	result, err := e.Execute(context.Background(), &models.TaskAction{
		Type:     models.ActionWebScrape,
		URL:      "https://example.com/news",
		Selector: ".headline",
	}, NewLog())
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if len(result.(*models.ScrapeResult).Items) != 2 {
		t.Errorf("items = %v", result.(*models.ScrapeResult).Items)
	}
}
