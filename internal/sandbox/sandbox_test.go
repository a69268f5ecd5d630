package sandbox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"code-sprint/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testLanguages(t *testing.T) *Languages {
	t.Helper()
	langs, err := LoadLanguages("")
	require.NoError(t, err)
	return langs
}

func TestLanguages_Lookup(t *testing.T) {
	langs := testLanguages(t)

	py, ok := langs.Lookup(" Python ")
	require.True(t, ok)
	assert.Equal(t, "python", py.ID)
	assert.Equal(t, "3.10.0", py.PistonVersion)
	assert.Equal(t, 71, py.Judge0ID)

	cpp, ok := langs.Lookup("CPP")
	require.True(t, ok)
	assert.Equal(t, "c++", cpp.ID)

	_, err := langs.Canonical("cobol")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
}

func TestParseLanguages_RejectsDuplicateAlias(t *testing.T) {
	_, err := ParseLanguages([]byte(`
languages:
  python: {piston: "3.10.0", aliases: [py]}
  pypy: {piston: "3.9", aliases: [py]}
`))
	assert.Error(t, err)
}

func TestPiston_Execute(t *testing.T) {
	var got pistonRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/piston/execute", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"language":"rust","version":"1.50.0","run":{"stdout":"6\n","stderr":"","output":"6\n","code":0}}`))
	}))
	defer srv.Close()

	p := NewPiston(srv.URL, testLanguages(t), time.Second, zap.NewNop())
	res, err := p.Execute(context.Background(), "Rust", `fn main() { println!("6"); }`)
	require.NoError(t, err)

	assert.Equal(t, models.ExecutionResult{Stdout: "6\n"}, res)
	assert.Equal(t, "rust", got.Language)
	assert.Equal(t, "1.50.0", got.Version)
	require.Len(t, got.Files, 1)
	assert.Contains(t, got.Files[0].Content, "println!")
}

func TestPistonResponse_Result(t *testing.T) {
	one := 1
	sig := "SIGKILL"

	t.Run("compile failure folds into stderr", func(t *testing.T) {
		r := pistonResponse{Compile: &pistonStage{Stderr: "error[E0425]", Code: &one}}
		assert.Equal(t, "error[E0425]", r.result().Stderr)
	})

	t.Run("run stderr wins over compile output", func(t *testing.T) {
		r := pistonResponse{Run: pistonStage{Stderr: "panic"}, Compile: &pistonStage{Output: "warn", Code: &one}}
		assert.Equal(t, "panic", r.result().Stderr)
	})

	t.Run("combined output only", func(t *testing.T) {
		r := pistonResponse{Run: pistonStage{Output: "hi\n"}}
		assert.Equal(t, models.ExecutionResult{Stdout: "hi\n"}, r.result())
	})

	t.Run("killed by signal", func(t *testing.T) {
		r := pistonResponse{Run: pistonStage{Stdout: "partial", Signal: &sig}}
		assert.True(t, r.result().Errored())
	})
}

func TestPiston_Errors(t *testing.T) {
	t.Run("unsupported language makes no call", func(t *testing.T) {
		var calls int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
		}))
		defer srv.Close()

		p := NewPiston(srv.URL, testLanguages(t), time.Second, zap.NewNop())
		_, err := p.Execute(context.Background(), "brainfuck", "+")
		assert.ErrorIs(t, err, ErrUnsupportedLanguage)
		assert.Zero(t, atomic.LoadInt32(&calls))
	})

	t.Run("server error is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer srv.Close()

		p := NewPiston(srv.URL, testLanguages(t), time.Second, zap.NewNop())
		_, err := p.Execute(context.Background(), "python", "print(1)")
		assert.ErrorIs(t, err, ErrUnreachable)
	})

	t.Run("missing runtime is unsupported", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"message":"python-3.10.0 runtime is unknown"}`))
		}))
		defer srv.Close()

		p := NewPiston(srv.URL, testLanguages(t), time.Second, zap.NewNop())
		_, err := p.Execute(context.Background(), "python", "print(1)")
		assert.ErrorIs(t, err, ErrUnsupportedLanguage)
		assert.NotErrorIs(t, err, ErrUnreachable)
		assert.Contains(t, err.Error(), "runtime is unknown")
	})

	t.Run("bad request without a message is unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer srv.Close()

		p := NewPiston(srv.URL, testLanguages(t), time.Second, zap.NewNop())
		_, err := p.Execute(context.Background(), "python", "print(1)")
		assert.ErrorIs(t, err, ErrUnreachable)
	})

	t.Run("timeout is unreachable, not empty output", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		p := NewPiston(srv.URL, testLanguages(t), 50*time.Millisecond, zap.NewNop())
		res, err := p.Execute(context.Background(), "python", "print(1)")
		assert.ErrorIs(t, err, ErrUnreachable)
		assert.Equal(t, models.ExecutionResult{}, res)
	})
}

func TestJudge0_ExecuteWaits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/submissions", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("wait"))
		assert.Equal(t, "key", r.Header.Get("X-RapidAPI-Key"))

		var req judge0Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 54, req.LanguageID)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"stdout":null,"stderr":null,"compile_output":"main.cpp:1: error","status":{"id":6,"description":"Compilation Error"}}`))
	}))
	defer srv.Close()

	j := NewJudge0(Judge0Options{BaseURL: srv.URL, APIKey: "key", APIHost: "host", Timeout: time.Second}, testLanguages(t), zap.NewNop())
	res, err := j.Execute(context.Background(), "cpp", "int main(){")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionResult{Stderr: "main.cpp:1: error"}, res)
}

func TestJudge0_PollsPendingSubmission(t *testing.T) {
	var polls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost:
			w.Write([]byte(`{"token":"abc","status":{"id":1,"description":"In Queue"}}`))
		case r.URL.Path == "/submissions/abc":
			if atomic.AddInt32(&polls, 1) < 2 {
				w.Write([]byte(`{"status":{"id":2,"description":"Processing"}}`))
				return
			}
			w.Write([]byte(`{"token":"abc","stdout":"6","stderr":null,"status":{"id":3,"description":"Accepted"}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	j := NewJudge0(Judge0Options{BaseURL: srv.URL, Timeout: time.Second, PollInterval: time.Millisecond}, testLanguages(t), zap.NewNop())
	res, err := j.Execute(context.Background(), "python", "print(6)")
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionResult{Stdout: "6"}, res)
	assert.Equal(t, int32(2), atomic.LoadInt32(&polls))
}

func TestJudge0Response_RuntimeStatusWithoutStderr(t *testing.T) {
	r := judge0Response{Status: &judge0Status{ID: 5, Description: "Time Limit Exceeded"}}
	assert.Equal(t, "Time Limit Exceeded", r.result().Stderr)

	ok := judge0Response{Status: &judge0Status{ID: 3, Description: "Accepted"}}
	assert.False(t, ok.result().Errored(), "silent accepted program")
}

type stubBackend struct {
	name  string
	langs map[string]bool
	calls int
}

func (s *stubBackend) Name() string { return s.name }
func (s *stubBackend) Supports(language string) bool { return s.langs[language] }
func (s *stubBackend) Execute(ctx context.Context, language, source string) (models.ExecutionResult, error) {
	s.calls++
	return models.ExecutionResult{Stdout: s.name}, nil
}

func TestRouter(t *testing.T) {
	first := &stubBackend{name: "first", langs: map[string]bool{"python": true}}
	second := &stubBackend{name: "second", langs: map[string]bool{"python": true, "kotlin": true}}
	r := NewRouter(first, second)

	res, err := r.Execute(context.Background(), "python", "")
	require.NoError(t, err)
	assert.Equal(t, "first", res.Stdout)

	res, err = r.Execute(context.Background(), "kotlin", "")
	require.NoError(t, err)
	assert.Equal(t, "second", res.Stdout)

	_, err = r.Execute(context.Background(), "cobol", "")
	assert.ErrorIs(t, err, ErrUnsupportedLanguage)
	assert.False(t, r.Supports("cobol"))
}
