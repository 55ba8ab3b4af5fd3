// Package runner implements the pre-execution policy checks, working
// directory preparation, and environment filtering around running a
// skill's script, dispatching the actual process spawn to a
// sandbox.Sandbox.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/agentskills/skillrt/pathsafe"
	"github.com/agentskills/skillrt/policy"
	"github.com/agentskills/skillrt/sandbox"
	"github.com/agentskills/skillrt/skillerrors"
)

// ExecutionResult is the outcome of one script run.
type ExecutionResult struct {
	ExitCode   int
	Stdout     string
	Stderr     string
	DurationMS int64
	Meta       map[string]any
}

// Request describes one run_script call.
type Request struct {
	SkillName string
	SkillRoot string
	RelPath   string
	Args      []string
	Stdin     []byte
	TimeoutS  int
}

// Runner binds an ExecutionPolicy to a Sandbox backend.
type Runner struct {
	policy      policy.Execution
	sandbox     sandbox.Sandbox
	interpreter string // configured Python interpreter, e.g. "python3"
}

// Option configures a Runner.
type Option func(*Runner)

// WithInterpreter overrides the default ".py" interpreter ("python3").
func WithInterpreter(path string) Option {
	return func(r *Runner) { r.interpreter = path }
}

// WithSandbox overrides the default sandbox.New() local-process backend,
// primarily for tests.
func WithSandbox(s sandbox.Sandbox) Option {
	return func(r *Runner) { r.sandbox = s }
}

// New constructs a Runner bound to p.
func New(p policy.Execution, opts ...Option) *Runner {
	r := &Runner{policy: p, sandbox: sandbox.New(), interpreter: "python3"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs the ordered pre-execution checks, stages the working
// directory per WorkdirMode, constructs the filtered environment, and
// dispatches to the sandbox.
func (r *Runner) Run(ctx context.Context, req Request) (ExecutionResult, error) {
	if !r.policy.Enabled {
		return ExecutionResult{}, fmt.Errorf("runner: execution disabled: %w", skillerrors.ErrScriptExecutionDisabled)
	}
	if !r.policy.SkillAllowed(req.SkillName) {
		return ExecutionResult{}, fmt.Errorf("runner: skill %q not allow-listed: %w", req.SkillName, skillerrors.ErrPolicyViolation)
	}
	if !matchesAnyGlob(r.policy.AllowScriptsGlob, req.RelPath) {
		return ExecutionResult{}, fmt.Errorf("runner: script %q not allow-listed: %w", req.RelPath, skillerrors.ErrPolicyViolation)
	}

	abs, err := pathsafe.Resolve(req.SkillRoot, req.RelPath)
	if err != nil {
		return ExecutionResult{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("runner: stat script: %w", err)
	}
	if !info.Mode().IsRegular() {
		return ExecutionResult{}, fmt.Errorf("runner: %q is not a regular file: %w", req.RelPath, skillerrors.ErrPolicyViolation)
	}

	cwd, cleanup, err := r.prepareWorkdir(req.SkillRoot)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("runner: prepare workdir: %w", err)
	}
	defer cleanup()

	path, args, err := dispatch(abs, req.Args, r.interpreter, info)
	if err != nil {
		return ExecutionResult{}, err
	}

	env, networkEnforced := r.buildEnv(req.SkillName, req.SkillRoot)

	timeout := r.policy.TimeoutSDefault
	if req.TimeoutS > 0 && req.TimeoutS < timeout {
		timeout = req.TimeoutS
	} else if req.TimeoutS > 0 && r.policy.TimeoutSDefault <= 0 {
		timeout = req.TimeoutS
	}
	deadline := time.Now().Add(time.Duration(timeout) * time.Second)

	outcome, err := r.sandbox.Run(ctx, sandbox.Spawn{
		Path:     path,
		Args:     args,
		Env:      env,
		Dir:      cwd,
		Stdin:    req.Stdin,
		Deadline: deadline,
	})
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("runner: spawn: %w", err)
	}

	meta := map[string]any{
		"sandbox":          "local_subprocess",
		"network_enforced": networkEnforced,
	}
	if outcome.Timeout {
		meta["timeout"] = true
	}
	if outcome.StdoutTruncated {
		meta["stdout_truncated"] = true
	}
	if outcome.StderrTruncated {
		meta["stderr_truncated"] = true
	}

	return ExecutionResult{
		ExitCode:   outcome.ExitCode,
		Stdout:     string(outcome.Stdout),
		Stderr:     string(outcome.Stderr),
		DurationMS: outcome.Duration.Milliseconds(),
		Meta:       meta,
	}, nil
}

// dispatch chooses the executable and argument vector by extension: ".py"
// uses the configured interpreter, ".sh" uses "/bin/sh", anything else is
// exec'd directly if the host marks it executable.
func dispatch(scriptAbs string, callerArgs []string, interpreter string, info os.FileInfo) (string, []string, error) {
	switch strings.ToLower(filepath.Ext(scriptAbs)) {
	case ".py":
		return interpreter, append([]string{scriptAbs}, callerArgs...), nil
	case ".sh":
		return "/bin/sh", append([]string{scriptAbs}, callerArgs...), nil
	default:
		if info.Mode()&0o111 == 0 {
			return "", nil, fmt.Errorf("runner: %q is not executable and has no recognized interpreter: %w", scriptAbs, skillerrors.ErrPolicyViolation)
		}
		return scriptAbs, callerArgs, nil
	}
}

// buildEnv constructs the child environment from solely the allow-listed
// variable names, read from the parent process at call time, plus the two
// injected variables. It reports whether network isolation was actually
// achieved (this backend never claims it was).
func (r *Runner) buildEnv(skillName, skillRoot string) ([]string, bool) {
	env := make([]string, 0, len(r.policy.EnvAllowlist)+2)
	for name := range r.policy.EnvAllowlist {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	env = append(env, "SKILL_ROOT="+skillRoot, "SKILL_NAME="+skillName)

	networkEnforced := false // local_subprocess backend has no network-denying namespace
	return env, networkEnforced
}

// prepareWorkdir returns the child's working directory per WorkdirMode and
// a cleanup func. skill_root mode returns skillRoot itself with a no-op
// cleanup; tempdir mode stages references/, assets/, scripts/ via
// symlinks (falling back to copy) into a fresh temp directory removed on
// cleanup.
func (r *Runner) prepareWorkdir(skillRoot string) (string, func(), error) {
	if r.policy.WorkdirMode != policy.WorkdirTempdir {
		return skillRoot, func() {}, nil
	}

	tmp, err := os.MkdirTemp("", "skillrun-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { os.RemoveAll(tmp) }

	for _, sub := range []string{"references", "assets", "scripts"} {
		src := filepath.Join(skillRoot, sub)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		dst := filepath.Join(tmp, sub)
		if err := os.Symlink(src, dst); err != nil {
			if err := copyTree(src, dst); err != nil {
				cleanup()
				return "", nil, fmt.Errorf("stage %s: %w", sub, err)
			}
		}
	}
	return tmp, cleanup, nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if fi.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path)
		if err != nil {
			return err
		}
		defer in.Close()
		out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, fi.Mode())
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, in)
		return err
	})
}

// matchesAnyGlob reports whether relPath matches at least one pattern.
// "*" matches within a single path segment; "**" matches across segments.
// Matching happens on the caller's original relPath, prior to any
// tempdir staging.
func matchesAnyGlob(patterns []string, relPath string) bool {
	relPath = filepath.ToSlash(relPath)
	for _, p := range patterns {
		if globMatch(p, relPath) {
			return true
		}
	}
	return false
}

func globMatch(pattern, path string) bool {
	re := globToRegexp(pattern)
	return re.MatchString(path)
}

func globToRegexp(pattern string) *regexp.Regexp {
	pattern = filepath.ToSlash(pattern)
	var b strings.Builder
	b.WriteString("^")
	i := 0
	for i < len(pattern) {
		switch {
		case strings.HasPrefix(pattern[i:], "**"):
			b.WriteString(".*")
			i += 2
		case pattern[i] == '*':
			b.WriteString("[^/]*")
			i++
		default:
			b.WriteString(regexp.QuoteMeta(string(pattern[i])))
			i++
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}
