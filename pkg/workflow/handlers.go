package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/gitvan-dev/gitvan/pkg/httputil"
	"github.com/gitvan-dev/gitvan/pkg/retry"
	"github.com/gitvan-dev/gitvan/pkg/sliceutil"
	"github.com/gitvan-dev/gitvan/pkg/sparql"
	"github.com/gitvan-dev/gitvan/pkg/store"
	"github.com/gitvan-dev/gitvan/pkg/template"
)

// HandlerOptions carries the resources a step handler needs beyond its
// own config: the graph snapshot it queries against, the project root
// every file path is sandboxed to, and the allow-lists guarding the
// http and cli step types.
type HandlerOptions struct {
	Snapshot    *store.Snapshot
	ProjectRoot string
	ShellAllow  []string
	HTTPAllow   []string
	HTTPClient  *httputil.Client
}

// resolveConfig renders every string-valued config field's {{ }}
// expressions against the run context, leaving non-string values as-is.
func resolveConfig(cfg map[string]any, rc *RunContext) (map[string]any, error) {
	out := make(map[string]any, len(cfg))
	for k, v := range cfg {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		rendered, err := substituteString(s, rc)
		if err != nil {
			return nil, err
		}
		out[k] = rendered
	}
	return out, nil
}

func runStep(ctx context.Context, step *Step, rc *RunContext, opts HandlerOptions) (any, error) {
	cfg, err := resolveConfig(step.Config, rc)
	if err != nil {
		return nil, &StepError{StepID: step.ID, Reason: err.Error()}
	}
	switch step.Type {
	case StepSparql:
		return runSparqlStep(cfg, opts)
	case StepTemplate:
		return runTemplateStep(cfg, rc, opts)
	case StepFile:
		return runFileStep(cfg, opts)
	case StepHTTP:
		return runHTTPStep(ctx, cfg, opts)
	case StepCLI:
		return runCLIStep(ctx, cfg, opts)
	default:
		return nil, &StepError{StepID: step.ID, Reason: "unknown step type " + step.Type}
	}
}

func runSparqlStep(cfg map[string]any, opts HandlerOptions) (any, error) {
	queryText, _ := cfg["query"].(string)
	if queryText == "" {
		return nil, fmt.Errorf("sparql step missing query")
	}
	q, err := sparql.Parse(queryText)
	if err != nil {
		return nil, fmt.Errorf("sparql step: %w", err)
	}
	bindings, err := sparql.Select(opts.Snapshot, q)
	if err != nil {
		return nil, fmt.Errorf("sparql step: %w", err)
	}
	rows := make([]map[string]any, len(bindings))
	for i, b := range bindings {
		row := make(map[string]any, len(b))
		for k, term := range b {
			row[k] = decodeTerm(term)
		}
		rows[i] = row
	}
	return rows, nil
}

func runTemplateStep(cfg map[string]any, rc *RunContext, opts HandlerOptions) (any, error) {
	src, _ := cfg["template"].(string)
	if path, ok := cfg["templatePath"].(string); ok && path != "" {
		full := filepath.Join(opts.ProjectRoot, path)
		data, err := os.ReadFile(full)
		if err != nil {
			return nil, fmt.Errorf("template step: read templatePath: %w", err)
		}
		src = string(data)
	}
	if src == "" {
		return nil, fmt.Errorf("template step missing template or templatePath")
	}

	if outputPath, ok := cfg["outputPath"].(string); ok && outputPath != "" {
		raw := "---\nto: " + outputPath + "\n---\n" + src
		plan, err := template.Plan(raw, rc.Vars(), opts.ProjectRoot)
		if err != nil {
			return nil, fmt.Errorf("template step: plan: %w", err)
		}
		result := template.Apply(plan, false)
		if result.Err != nil {
			return nil, fmt.Errorf("template step: apply: %w", result.Err)
		}
		return map[string]any{"outputPath": outputPath, "applied": true}, nil
	}

	tpl, err := template.ParseTemplate(src)
	if err != nil {
		return nil, fmt.Errorf("template step: %w", err)
	}
	rendered, err := template.Render(tpl, rc.Vars())
	if err != nil {
		return nil, fmt.Errorf("template step: %w", err)
	}
	return map[string]any{"rendered": rendered}, nil
}

func runFileStep(cfg map[string]any, opts HandlerOptions) (any, error) {
	op, _ := cfg["operation"].(string)
	switch op {
	case "read":
		path, err := sandboxedPath(opts.ProjectRoot, toString(cfg["filePath"]))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("file step: read: %w", err)
		}
		return map[string]any{"content": string(data)}, nil
	case "write":
		path, err := sandboxedPath(opts.ProjectRoot, toString(cfg["filePath"]))
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("file step: write: %w", err)
		}
		if err := os.WriteFile(path, []byte(toString(cfg["content"])), 0o644); err != nil {
			return nil, fmt.Errorf("file step: write: %w", err)
		}
		return map[string]any{"filePath": path}, nil
	case "append":
		path, err := sandboxedPath(opts.ProjectRoot, toString(cfg["filePath"]))
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("file step: append: %w", err)
		}
		defer f.Close()
		if _, err := f.WriteString(toString(cfg["content"])); err != nil {
			return nil, fmt.Errorf("file step: append: %w", err)
		}
		return map[string]any{"filePath": path}, nil
	case "copy":
		from, err := sandboxedPath(opts.ProjectRoot, toString(cfg["from"]))
		if err != nil {
			return nil, err
		}
		to, err := sandboxedPath(opts.ProjectRoot, toString(cfg["to"]))
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(from)
		if err != nil {
			return nil, fmt.Errorf("file step: copy: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
			return nil, fmt.Errorf("file step: copy: %w", err)
		}
		if err := os.WriteFile(to, data, 0o644); err != nil {
			return nil, fmt.Errorf("file step: copy: %w", err)
		}
		return map[string]any{"filePath": to}, nil
	case "delete":
		path, err := sandboxedPath(opts.ProjectRoot, toString(cfg["filePath"]))
		if err != nil {
			return nil, err
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("file step: delete: %w", err)
		}
		return map[string]any{"filePath": path}, nil
	default:
		return nil, fmt.Errorf("file step: unknown operation %q", op)
	}
}

func sandboxedPath(root, rel string) (string, error) {
	abs := filepath.Clean(filepath.Join(root, rel))
	cleanRoot := filepath.Clean(root)
	if abs != cleanRoot && !strings.HasPrefix(abs, cleanRoot+string(filepath.Separator)) {
		return "", &template.PathEscapeError{Path: rel}
	}
	return abs, nil
}

func runHTTPStep(ctx context.Context, cfg map[string]any, opts HandlerOptions) (any, error) {
	url, _ := cfg["url"].(string)
	method, _ := cfg["method"].(string)
	if url == "" || method == "" {
		return nil, fmt.Errorf("HTTP step missing URL|method")
	}
	if len(opts.HTTPAllow) > 0 && !allowedHost(opts.HTTPAllow, url) {
		return nil, &CommandNotAllowedError{Command: url}
	}

	client := opts.HTTPClient
	if client == nil {
		client = httputil.NewClient(nil)
	}
	if err := retry.Wait(ctx, retry.OpHTTPRequest); err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	var body io.Reader
	if b, ok := cfg["body"]; ok {
		switch v := b.(type) {
		case string:
			body = strings.NewReader(v)
		default:
			encoded, err := json.Marshal(v)
			if err == nil {
				body = bytes.NewReader(encoded)
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, body)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", httputil.DefaultUserAgent)
	if headers, ok := cfg["headers"].(map[string]any); ok {
		for k, v := range headers {
			req.Header.Set(k, toString(v))
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := httputil.ReadResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	headers := make(map[string]any, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}
	var responseData any
	if json.Unmarshal(respBody, &responseData) != nil {
		responseData = string(respBody)
	}

	statusText := http.StatusText(resp.StatusCode)
	output := map[string]any{
		"status":       resp.StatusCode,
		"statusText":   statusText,
		"headers":      headers,
		"responseData": responseData,
		"method":       strings.ToUpper(method),
		"url":          url,
		"success":      resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return output, fmt.Errorf("HTTP %d: %s", resp.StatusCode, statusText)
	}
	return output, nil
}

func runCLIStep(ctx context.Context, cfg map[string]any, opts HandlerOptions) (any, error) {
	command, _ := cfg["command"].(string)
	if command == "" {
		return nil, fmt.Errorf("cli step missing command")
	}
	if !sliceutil.Contains(opts.ShellAllow, command) {
		return nil, &CommandNotAllowedError{Command: command}
	}

	var args []string
	if raw, ok := cfg["args"].([]any); ok {
		for _, a := range raw {
			args = append(args, toString(a))
		}
	}

	timeout := 30 * time.Second
	if ms, ok := cfg["timeoutMs"].(float64); ok && ms > 0 {
		timeout = time.Duration(ms) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, command, args...)
	if dir, ok := cfg["cwd"].(string); ok && dir != "" {
		cmd.Dir = filepath.Join(opts.ProjectRoot, dir)
	} else {
		cmd.Dir = opts.ProjectRoot
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()

	exitCode := -1
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	result := map[string]any{
		"stdout":   stdout.String(),
		"stderr":   stderr.String(),
		"exitCode": exitCode,
	}
	if err != nil {
		return result, fmt.Errorf("cli step: %w", err)
	}
	return result, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func allowedHost(allow []string, url string) bool {
	for _, a := range allow {
		if strings.Contains(url, a) {
			return true
		}
	}
	return false
}
