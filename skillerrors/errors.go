// Package skillerrors defines the sentinel error taxonomy shared by every
// core component. Components raise these (wrapped with context via
// fmt.Errorf("...: %w", err)) internally; only the envelope package is
// allowed to convert them into the outward ToolResponse shape.
package skillerrors

import "errors"

// Kind identifies the error taxonomy bucket. It is carried in
// AuditEvent.Detail and ToolResponse.Meta so callers never need to
// string-match an error message.
type Kind string

const (
	KindSkillNotFound           Kind = "skill_not_found"
	KindSkillParseError         Kind = "skill_parse_error"
	KindPolicyViolation         Kind = "policy_violation"
	KindPathTraversal           Kind = "path_traversal"
	KindResourceTooLarge        Kind = "resource_too_large"
	KindScriptExecutionDisabled Kind = "script_execution_disabled"
	KindScriptTimeout           Kind = "script_timeout"
	KindScriptFailed            Kind = "script_failed"
	KindInternalError           Kind = "internal_error"
)

var (
	// ErrSkillNotFound indicates the requested skill does not exist in the repository.
	ErrSkillNotFound = errors.New("skill not found")

	// ErrSkillParseError indicates SKILL.md frontmatter failed to parse or validate.
	ErrSkillParseError = errors.New("skill parse error")

	// ErrPolicyViolation is the generic policy-denial sentinel (extension not
	// allowed, skill not allow-listed, script glob mismatch, binary assets
	// disabled, and so on).
	ErrPolicyViolation = errors.New("policy violation")

	// ErrPathTraversal indicates a caller-supplied relative path escaped the
	// skill root, was absolute, targeted SKILL.md directly, or otherwise
	// failed validation.
	ErrPathTraversal = errors.New("path traversal")

	// ErrResourceTooLarge indicates a read exceeded policy limits and could
	// not be satisfied even by truncation.
	ErrResourceTooLarge = errors.New("resource too large")

	// ErrScriptExecutionDisabled indicates ExecutionPolicy.Enabled is false.
	ErrScriptExecutionDisabled = errors.New("script execution disabled")

	// ErrScriptTimeout indicates a script exceeded its deadline. Runner
	// implementations return an ExecutionResult (exit_code=-1, meta.timeout)
	// rather than this error; it exists for cancellation surfaces that need
	// a typed sentinel (e.g. context-cancellation translation).
	ErrScriptTimeout = errors.New("script timeout")

	// ErrScriptFailed marks a non-zero script exit explicitly surfaced by a
	// caller that chooses to treat it as an error rather than inspect the
	// ExecutionResult directly.
	ErrScriptFailed = errors.New("script failed")

	// ErrInvalidArgument indicates a caller supplied a missing/malformed argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSessionNotFound indicates the session id does not exist (evicted,
	// closed, or never allocated).
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionClosed indicates an operation was attempted on a closed session.
	ErrSessionClosed = errors.New("session closed")

	// ErrIllegalStateTransition indicates a requested session state
	// transition is not a member of the allowed-edge set.
	ErrIllegalStateTransition = errors.New("illegal session state transition")

	// ErrDuplicateArtifactKey indicates an artifact key already exists in
	// the session (artifact keys must be unique per session).
	ErrDuplicateArtifactKey = errors.New("duplicate artifact key")

	// ErrSkillAlreadyExists indicates a duplicate skill name within one scan.
	ErrSkillAlreadyExists = errors.New("skill already exists")

	// ErrInternalError is the catch-all sentinel for failures that don't
	// fit the rest of the taxonomy (e.g. a recovered panic at the envelope
	// boundary).
	ErrInternalError = errors.New("internal error")
)

// KindOf maps a sentinel (or an error wrapping one) to its taxonomy Kind.
// Unrecognized errors map to KindInternalError.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrSkillNotFound):
		return KindSkillNotFound
	case errors.Is(err, ErrSkillParseError):
		return KindSkillParseError
	case errors.Is(err, ErrPathTraversal):
		return KindPathTraversal
	case errors.Is(err, ErrResourceTooLarge):
		return KindResourceTooLarge
	case errors.Is(err, ErrScriptExecutionDisabled):
		return KindScriptExecutionDisabled
	case errors.Is(err, ErrScriptTimeout):
		return KindScriptTimeout
	case errors.Is(err, ErrScriptFailed):
		return KindScriptFailed
	case errors.Is(err, ErrPolicyViolation):
		return KindPolicyViolation
	default:
		return KindInternalError
	}
}

// classNames maps each Kind to the PascalCase error class name surfaced to
// callers (e.g. ToolResponse.Meta["error_type"]), distinct from the
// snake_case Kind string used internally for audit detail and comparisons.
var classNames = map[Kind]string{
	KindSkillNotFound:           "SkillNotFoundError",
	KindSkillParseError:         "SkillParseError",
	KindPolicyViolation:         "PolicyViolationError",
	KindPathTraversal:           "PathTraversalError",
	KindResourceTooLarge:        "ResourceTooLargeError",
	KindScriptExecutionDisabled: "ScriptExecutionDisabledError",
	KindScriptTimeout:           "ScriptTimeoutError",
	KindScriptFailed:            "ScriptFailedError",
	KindInternalError:           "InternalError",
}

// ClassName returns k's PascalCase error class name, e.g. KindPathTraversal
// -> "PathTraversalError". Unrecognized kinds return "InternalError".
func (k Kind) ClassName() string {
	if name, ok := classNames[k]; ok {
		return name
	}
	return classNames[KindInternalError]
}
