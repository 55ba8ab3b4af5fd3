// Package envelope implements the uniform ToolResponse shape every
// external operation returns, plus the Safe wrapper that guarantees no
// typed error or panic crosses the outward boundary.
package envelope

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/agentskills/skillrt/skillerrors"
)

// Type is the ToolResponse.Type discriminant.
type Type string

const (
	TypeMetadata        Type = "metadata"
	TypeInstructions    Type = "instructions"
	TypeReference       Type = "reference"
	TypeAsset           Type = "asset"
	TypeExecutionResult Type = "execution_result"
	TypeSearchResults   Type = "search_results"
	TypeError           Type = "error"
)

// Response is the outward ToolResponse shape.
type Response struct {
	OK        bool           `json:"ok"`
	Type      Type           `json:"type"`
	Skill     string         `json:"skill,omitempty"`
	Path      string         `json:"path,omitempty"`
	Content   any            `json:"content,omitempty"`
	Bytes     int64          `json:"bytes,omitempty"`
	SHA256    string         `json:"sha256,omitempty"`
	Truncated bool           `json:"truncated,omitempty"`
	Meta      map[string]any `json:"meta,omitempty"`
}

// Metadata builds a success envelope for skills.list catalog content,
// which is structured data rather than byte content.
// Bytes/sha256 are left zero since those fields only describe the content
// of an actual read.
func Metadata(skill string, content any, meta map[string]any) Response {
	return Response{OK: true, Type: TypeMetadata, Skill: skill, Content: content, Meta: meta}
}

// SearchResults builds a success envelope for skills.search.
func SearchResults(skill string, content any, meta map[string]any) Response {
	return Response{OK: true, Type: TypeSearchResults, Skill: skill, Content: content, Meta: meta}
}

// Instructions builds a success envelope for skills.activate, computing
// bytes/sha256 from the body text so a caller can verify it round-tripped
// intact.
func Instructions(skill, body string, meta map[string]any) Response {
	sum := sha256.Sum256([]byte(body))
	return Response{
		OK:      true,
		Type:    TypeInstructions,
		Skill:   skill,
		Content: body,
		Bytes:   int64(len(body)),
		SHA256:  hex.EncodeToString(sum[:]),
		Meta:    meta,
	}
}

// Reference builds a success envelope for a text read, reusing the
// reader's own sha256 (computed over the bytes actually returned) so the
// envelope's digest always matches the content it carries.
func Reference(skill, path string, content []byte, sha256Hex string, truncated bool, meta map[string]any) Response {
	return Response{
		OK:        true,
		Type:      TypeReference,
		Skill:     skill,
		Path:      path,
		Content:   string(content),
		Bytes:     int64(len(content)),
		SHA256:    sha256Hex,
		Truncated: truncated,
		Meta:      meta,
	}
}

// Asset builds a success envelope for a binary read, base64-encoding the
// content.
func Asset(skill, path string, content []byte, sha256Hex string, meta map[string]any) Response {
	return Response{
		OK:      true,
		Type:    TypeAsset,
		Skill:   skill,
		Path:    path,
		Content: base64.StdEncoding.EncodeToString(content),
		Bytes:   int64(len(content)),
		SHA256:  sha256Hex,
		Meta:    meta,
	}
}

// ExecutionResult builds a success envelope for skills.run. content is a
// structured map (exit_code, stdout, stderr, duration_ms); the runner
// package already owns that shape, so this builder accepts it as an
// opaque map built by the caller.
func ExecutionResult(skill string, content map[string]any, meta map[string]any) Response {
	return Response{OK: true, Type: TypeExecutionResult, Skill: skill, Content: content, Meta: meta}
}

// Error maps err to the standard error envelope shape: ok=false,
// type=error, content="<error class>: <message>". meta.error_type carries
// the PascalCase error class name (e.g. "PathTraversalError"), meta.kind
// carries the underlying snake_case taxonomy bucket, and any extraDetail
// is merged in on top of both.
func Error(skill string, err error, extraDetail map[string]any) Response {
	kind := skillerrors.KindOf(err)
	className := kind.ClassName()
	meta := map[string]any{
		"error_type": className,
		"kind":       string(kind),
	}
	for k, v := range extraDetail {
		meta[k] = v
	}
	return Response{
		OK:      false,
		Type:    TypeError,
		Skill:   skill,
		Content: fmt.Sprintf("%s: %s", className, err.Error()),
		Meta:    meta,
	}
}

// Safe wraps fn so that any panic escaping it is converted to an error
// envelope instead of propagating.
func Safe(skill string, fn func() (Response, error)) Response {
	var resp Response
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%w: panic: %v", skillerrors.ErrInternalError, r)
			}
		}()
		resp, err = fn()
	}()
	if err != nil {
		return Error(skill, err, nil)
	}
	return resp
}
