package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/libra-dev/deploy-engine/internal/apperr"
)

// E2BProvider talks to an e2b-compatible sandbox API over HTTP. The wire
// shape here is illustrative of the real e2b REST surface; the core only
// ever sees it through the Provider interface.
type E2BProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewE2BProvider builds a client against baseURL, authenticating with apiKey.
func NewE2BProvider(baseURL, apiKey string) *E2BProvider {
	return &E2BProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *E2BProvider) Create(ctx context.Context, params CreateParams) (string, error) {
	var resp struct {
		SandboxID string `json:"sandboxID"`
	}

	body := map[string]any{
		"template": params.Template,
		"timeout":  params.TimeoutMS,
		"metadata": params.Env,
	}

	if err := p.doJSON(ctx, http.MethodPost, "/sandboxes", body, &resp); err != nil {
		return "", err
	}

	return resp.SandboxID, nil
}

func (p *E2BProvider) Connect(ctx context.Context, id string) error {
	return p.doJSON(ctx, http.MethodGet, "/sandboxes/"+id, nil, nil)
}

func (p *E2BProvider) WriteFiles(ctx context.Context, id string, files []WriteFile) (WriteFilesResult, error) {
	results := make([]WriteResult, 0, len(files))
	success := true

	for _, f := range files {
		var resp struct {
			OK bool `json:"ok"`
		}

		err := p.doJSON(ctx, http.MethodPost, "/sandboxes/"+id+"/files", map[string]any{
			"path":     f.Path,
			"content":  f.Content,
			"isBinary": f.IsBinary,
		}, &resp)

		res := WriteResult{Path: f.Path, Success: err == nil && resp.OK}
		if err != nil {
			res.Error = err.Error()
		}

		if !res.Success {
			success = false
		}

		results = append(results, res)
	}

	return WriteFilesResult{Success: success, Results: results}, nil
}

func (p *E2BProvider) ExecuteCommand(ctx context.Context, id, cmd string, opts ExecOptions) (ExecResult, error) {
	var resp struct {
		ExitCode int    `json:"exitCode"`
		Stdout   string `json:"stdout"`
		Stderr   string `json:"stderr"`
	}

	err := p.doJSON(ctx, http.MethodPost, "/sandboxes/"+id+"/exec", map[string]any{
		"cmd":     cmd,
		"timeout": opts.TimeoutMS,
	}, &resp)
	if err != nil {
		return ExecResult{}, err
	}

	if opts.OnStderr != nil && resp.Stderr != "" {
		opts.OnStderr(resp.Stderr)
	}

	return ExecResult{ExitCode: resp.ExitCode, Stdout: resp.Stdout, Stderr: resp.Stderr}, nil
}

func (p *E2BProvider) Terminate(ctx context.Context, id string, opts TerminateOptions) (bool, error) {
	if err := p.doJSON(ctx, http.MethodDelete, "/sandboxes/"+id, nil, nil); err != nil {
		return false, err
	}

	return true, nil
}

func (p *E2BProvider) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader

	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("e2b: marshal request: %w", err)
		}

		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("e2b: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return apperr.ProviderUnavailableError{Provider: "e2b", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return apperr.ProviderUnavailableError{Provider: "e2b", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("e2b: request %s %s failed: status %d", method, path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
