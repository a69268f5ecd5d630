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

const maxResponseBytes = 4 << 20

// Piston talks to a Piston instance: one synchronous call per program,
// keyed by language and runtime version.
type Piston struct {
	baseURL   string
	client    *http.Client
	languages *Languages
	timeout   time.Duration
	logger    *zap.Logger
}

func NewPiston(baseURL string, languages *Languages, timeout time.Duration, logger *zap.Logger) *Piston {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Piston{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    &http.Client{},
		languages: languages,
		timeout:   timeout,
		logger:    logger,
	}
}

type pistonFile struct {
	Content string `json:"content"`
}

type pistonRequest struct {
	Language string       `json:"language"`
	Version  string       `json:"version"`
	Files    []pistonFile `json:"files"`
}

type pistonStage struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Output string  `json:"output"`
	Code   *int    `json:"code"`
	Signal *string `json:"signal"`
}

type pistonResponse struct {
	Run     pistonStage  `json:"run"`
	Compile *pistonStage `json:"compile"`
	Message string       `json:"message"`
}

func (p *Piston) Name() string { return "piston" }

func (p *Piston) Supports(language string) bool {
	lang, ok := p.languages.Lookup(language)
	return ok && lang.PistonVersion != ""
}

func (p *Piston) Execute(ctx context.Context, language, source string) (models.ExecutionResult, error) {
	lang, ok := p.languages.Lookup(language)
	if !ok || lang.PistonVersion == "" {
		return models.ExecutionResult{}, fmt.Errorf("%w: %q has no piston runtime", ErrUnsupportedLanguage, language)
	}

	body, err := json.Marshal(pistonRequest{
		Language: lang.ID,
		Version:  lang.PistonVersion,
		Files:    []pistonFile{{Content: source}},
	})
	if err != nil {
		return models.ExecutionResult{}, fmt.Errorf("failed to encode piston request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v2/piston/execute", bytes.NewReader(body))
	if err != nil {
		return models.ExecutionResult{}, unreachable(p.Name(), err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return models.ExecutionResult{}, unreachable(p.Name(), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return models.ExecutionResult{}, unreachable(p.Name(), err)
	}
	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("piston rejected request",
			zap.String("language", lang.ID),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", raw))
		// Piston answers 400 with a message for runtimes it does not have installed.
		var rejected pistonResponse
		if resp.StatusCode == http.StatusBadRequest && json.Unmarshal(raw, &rejected) == nil && rejected.Message != "" {
			return models.ExecutionResult{}, fmt.Errorf("%w: piston: %s", ErrUnsupportedLanguage, rejected.Message)
		}
		return models.ExecutionResult{}, unreachable(p.Name(), fmt.Errorf("status %d", resp.StatusCode))
	}

	var out pistonResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return models.ExecutionResult{}, unreachable(p.Name(), fmt.Errorf("malformed response: %w", err))
	}
	return out.result(), nil
}

func (r pistonResponse) result() models.ExecutionResult {
	res := models.ExecutionResult{Stdout: r.Run.Stdout, Stderr: r.Run.Stderr}

	// Old Piston versions only fill the combined output.
	if res.Stdout == "" && res.Stderr == "" {
		res.Stdout = r.Run.Output
	}

	if res.Stderr == "" && r.Compile != nil && r.Compile.failed() {
		res.Stderr = firstNonEmpty(r.Compile.Stderr, r.Compile.Output, "compilation failed")
	}
	if res.Stderr == "" && r.Run.Signal != nil && *r.Run.Signal != "" {
		res.Stderr = "program terminated by " + *r.Run.Signal
	}
	return res
}

func (s pistonStage) failed() bool {
	return s.Stderr != "" || (s.Code != nil && *s.Code != 0)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
