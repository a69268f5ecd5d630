package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"code-sprint/internal/models"

	"go.uber.org/zap"
)

// Judge0 status ids, see https://ce.judge0.com/statuses.
const (
	judge0InQueue       = 1
	judge0Processing    = 2
	judge0Accepted      = 3
	judge0WrongAnswer   = 4
	judge0InternalError = 13
)

// Judge0 submits programs to a Judge0 CE instance. It asks for wait=true and
// falls back to polling the submission token while the status is still pending.
type Judge0 struct {
	baseURL      string
	apiKey       string
	apiHost      string
	client       *http.Client
	languages    *Languages
	timeout      time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

type Judge0Options struct {
	BaseURL      string
	APIKey       string
	APIHost      string
	Timeout      time.Duration
	PollInterval time.Duration
}

func NewJudge0(opts Judge0Options, languages *Languages, logger *zap.Logger) *Judge0 {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Judge0{
		baseURL:      strings.TrimRight(opts.BaseURL, "/"),
		apiKey:       opts.APIKey,
		apiHost:      opts.APIHost,
		client:       &http.Client{},
		languages:    languages,
		timeout:      timeout,
		pollInterval: poll,
		logger:       logger,
	}
}

type judge0Request struct {
	LanguageID int    `json:"language_id"`
	SourceCode string `json:"source_code"`
}

type judge0Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

type judge0Response struct {
	Token         string        `json:"token"`
	Stdout        *string       `json:"stdout"`
	Stderr        *string       `json:"stderr"`
	CompileOutput *string       `json:"compile_output"`
	Message       *string       `json:"message"`
	Status        *judge0Status `json:"status"`
}

func (j *Judge0) Name() string { return "judge0" }

func (j *Judge0) Supports(language string) bool {
	lang, ok := j.languages.Lookup(language)
	return ok && lang.Judge0ID != 0
}

func (j *Judge0) Execute(ctx context.Context, language, source string) (models.ExecutionResult, error) {
	lang, ok := j.languages.Lookup(language)
	if !ok || lang.Judge0ID == 0 {
		return models.ExecutionResult{}, fmt.Errorf("%w: %q has no judge0 language id", ErrUnsupportedLanguage, language)
	}

	body, err := json.Marshal(judge0Request{LanguageID: lang.Judge0ID, SourceCode: source})
	if err != nil {
		return models.ExecutionResult{}, fmt.Errorf("failed to encode judge0 request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	sub, err := j.do(ctx, http.MethodPost, "/submissions?base64_encoded=false&wait=true", body)
	if err != nil {
		return models.ExecutionResult{}, err
	}

	for sub.pending() {
		if sub.Token == "" {
			return models.ExecutionResult{}, unreachable(j.Name(), fmt.Errorf("submission pending without token"))
		}
		select {
		case <-ctx.Done():
			return models.ExecutionResult{}, unreachable(j.Name(), ctx.Err())
		case <-time.After(j.pollInterval):
		}
		token := sub.Token
		sub, err = j.do(ctx, http.MethodGet, "/submissions/"+token+"?base64_encoded=false", nil)
		if err != nil {
			return models.ExecutionResult{}, err
		}
		if sub.Token == "" {
			sub.Token = token
		}
	}

	if sub.Status != nil && sub.Status.ID == judge0InternalError {
		return models.ExecutionResult{}, unreachable(j.Name(), fmt.Errorf("judge0 internal error"))
	}
	return sub.result(), nil
}

func (j *Judge0) do(ctx context.Context, method, path string, body []byte) (judge0Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, j.baseURL+path, reader)
	if err != nil {
		return judge0Response{}, unreachable(j.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")
	if j.apiKey != "" {
		req.Header.Set("X-RapidAPI-Key", j.apiKey)
		req.Header.Set("X-RapidAPI-Host", j.apiHost)
	}

	resp, err := j.client.Do(req)
	if err != nil {
		return judge0Response{}, unreachable(j.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return judge0Response{}, unreachable(j.Name(), err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		j.logger.Warn("judge0 rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		return judge0Response{}, unreachable(j.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var out judge0Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return judge0Response{}, unreachable(j.Name(), fmt.Errorf("malformed response: %w", err))
	}
	return out, nil
}

func (r judge0Response) pending() bool {
	return r.Status != nil && (r.Status.ID == judge0InQueue || r.Status.ID == judge0Processing)
}

func (r judge0Response) result() models.ExecutionResult {
	res := models.ExecutionResult{Stdout: deref(r.Stdout), Stderr: deref(r.Stderr)}
	if res.Stderr == "" {
		res.Stderr = deref(r.CompileOutput)
	}
	if res.Stderr == "" && r.Status != nil && r.Status.ID != judge0Accepted && r.Status.ID != judge0WrongAnswer {
		res.Stderr = firstNonEmpty(deref(r.Message), r.Status.Description, fmt.Sprintf("judge0 status %d", r.Status.ID))
	}
	return res
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
