// Package toolsadapter converts the core tool surface into llmtools-go
// Tool objects and ToolFunc bindings. Framework-specific tool bindings are
// an external collaborator, not core, so this package exists purely to
// exercise that integration point; the core toolsurface/session/repository
// packages never import it and never return llmtools-go types.
//
// Grounded directly in the teacher's skilltool/tools.go and
// skilltool/registry.go.
package toolsadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/flexigpt/llmtools-go"
	llmtoolsgoSpec "github.com/flexigpt/llmtools-go/spec"

	"github.com/agentskills/skillrt/toolsurface"
)

const (
	funcIDSkillsList     llmtoolsgoSpec.FuncID = "github.com/agentskills/skillrt/toolsadapter.List"
	funcIDSkillsActivate llmtoolsgoSpec.FuncID = "github.com/agentskills/skillrt/toolsadapter.Activate"
	funcIDSkillsRead     llmtoolsgoSpec.FuncID = "github.com/agentskills/skillrt/toolsadapter.Read"
	funcIDSkillsRun      llmtoolsgoSpec.FuncID = "github.com/agentskills/skillrt/toolsadapter.Run"
	funcIDSkillsSearch   llmtoolsgoSpec.FuncID = "github.com/agentskills/skillrt/toolsadapter.Search"
)

// Tools returns the five llmtools-go Tool definitions for the skill
// surface.
func Tools() []llmtoolsgoSpec.Tool {
	return []llmtoolsgoSpec.Tool{
		SkillsListTool(),
		SkillsActivateTool(),
		SkillsReadTool(),
		SkillsRunTool(),
		SkillsSearchTool(),
	}
}

func SkillsListTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c41a0-0a01-7000-8000-000000000001",
		Slug:          "skills.list",
		Version:       "v1.0.0",
		DisplayName:   "Skills List",
		Description:   "List the discovered skill catalog.",
		Tags:          []string{"skills"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{},
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: funcIDSkillsList},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}

func SkillsActivateTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c41a0-0a01-7000-8000-000000000002",
		Slug:          "skills.activate",
		Version:       "v1.0.0",
		DisplayName:   "Skills Activate",
		Description:   "Select a skill and load its SKILL.md instructions.",
		Tags:          []string{"skills"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{"name":{"type":"string"}},
"required":["name"],
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: funcIDSkillsActivate},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}

func SkillsReadTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c41a0-0a01-7000-8000-000000000003",
		Slug:          "skills.read",
		Version:       "v1.0.0",
		DisplayName:   "Skills Read",
		Description:   "Read a reference or asset file relative to an active skill's root.",
		Tags:          []string{"skills", "fs", "read"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{"name":{"type":"string"},"path":{"type":"string"}},
"required":["name","path"],
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: funcIDSkillsRead},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}

func SkillsRunTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c41a0-0a01-7000-8000-000000000004",
		Slug:          "skills.run",
		Version:       "v1.0.0",
		DisplayName:   "Skills Run",
		Description:   "Execute a script from an active skill's scripts/ directory.",
		Tags:          []string{"skills", "exec"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{
	"name":{"type":"string"},
	"script":{"type":"string"},
	"args":{"type":"array","items":{"type":"string"}},
	"stdin":{"type":"string"},
	"timeout_s":{"type":"integer"}
},
"required":["name","script"],
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: funcIDSkillsRun},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}

func SkillsSearchTool() llmtoolsgoSpec.Tool {
	return llmtoolsgoSpec.Tool{
		SchemaVersion: llmtoolsgoSpec.SchemaVersion,
		ID:            "019c41a0-0a01-7000-8000-000000000005",
		Slug:          "skills.search",
		Version:       "v1.0.0",
		DisplayName:   "Skills Search",
		Description:   "Search the skill catalog by name and/or query substring.",
		Tags:          []string{"skills", "search"},
		ArgSchema: llmtoolsgoSpec.JSONSchema(`{
"$schema":"http://json-schema.org/draft-07/schema#",
"type":"object",
"properties":{"name":{"type":"string"},"query":{"type":"string"}},
"additionalProperties":false
}`),
		GoImpl:     llmtoolsgoSpec.GoToolImpl{FuncID: funcIDSkillsSearch},
		CreatedAt:  llmtoolsgoSpec.SchemaStartTime,
		ModifiedAt: llmtoolsgoSpec.SchemaStartTime,
	}
}

type activateArgs struct {
	Name string `json:"name"`
}

type readArgs struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type runArgs struct {
	Name     string   `json:"name"`
	Script   string   `json:"script"`
	Args     []string `json:"args,omitempty"`
	Stdin    string   `json:"stdin,omitempty"`
	TimeoutS int      `json:"timeout_s,omitempty"`
}

type searchArgs struct {
	Name  string `json:"name,omitempty"`
	Query string `json:"query,omitempty"`
}

// Bind returns the ToolFunc for each FuncID, bound to one surface and
// session (mirrors the teacher's skilltool.Bind: one registry per
// session).
func Bind(s *toolsurface.Surface, sessionID string) (map[llmtoolsgoSpec.FuncID]llmtoolsgoSpec.ToolFunc, error) {
	if s == nil {
		return nil, errors.New("toolsadapter: nil surface")
	}
	out := map[llmtoolsgoSpec.FuncID]llmtoolsgoSpec.ToolFunc{}

	out[funcIDSkillsList] = func(ctx context.Context, in json.RawMessage) ([]llmtoolsgoSpec.ToolStoreOutputUnion, error) {
		return textJSON(s.List(sessionID))
	}

	out[funcIDSkillsActivate] = func(ctx context.Context, in json.RawMessage) ([]llmtoolsgoSpec.ToolStoreOutputUnion, error) {
		args, err := decodeStrict[activateArgs](in)
		if err != nil {
			return nil, err
		}
		return textJSON(s.Activate(sessionID, args.Name))
	}

	out[funcIDSkillsRead] = func(ctx context.Context, in json.RawMessage) ([]llmtoolsgoSpec.ToolStoreOutputUnion, error) {
		args, err := decodeStrict[readArgs](in)
		if err != nil {
			return nil, err
		}
		return textJSON(s.Read(sessionID, args.Name, args.Path))
	}

	out[funcIDSkillsRun] = func(ctx context.Context, in json.RawMessage) ([]llmtoolsgoSpec.ToolStoreOutputUnion, error) {
		args, err := decodeStrict[runArgs](in)
		if err != nil {
			return nil, err
		}
		return textJSON(s.Run(ctx, sessionID, args.Name, toolsurface.RunArgs{
			Script:   args.Script,
			Args:     args.Args,
			Stdin:    []byte(args.Stdin),
			TimeoutS: args.TimeoutS,
		}))
	}

	out[funcIDSkillsSearch] = func(ctx context.Context, in json.RawMessage) ([]llmtoolsgoSpec.ToolStoreOutputUnion, error) {
		args, err := decodeStrict[searchArgs](in)
		if err != nil {
			return nil, err
		}
		return textJSON(s.Search(sessionID, args.Name, args.Query))
	}

	return out, nil
}

// Register registers every tool in Tools() against r, bound to one
// surface/session.
func Register(r *llmtools.Registry, s *toolsurface.Surface, sessionID string) error {
	if r == nil {
		return errors.New("toolsadapter: nil registry")
	}
	bound, err := Bind(s, sessionID)
	if err != nil {
		return err
	}
	for _, t := range Tools() {
		fn := bound[t.GoImpl.FuncID]
		if fn == nil {
			return fmt.Errorf("toolsadapter: missing bound tool func for %s", t.GoImpl.FuncID)
		}
		if err := r.RegisterTool(t, fn); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry creates a fresh llmtools-go Registry with only the skill
// tools registered into it, bound to one surface/session.
func NewRegistry(s *toolsurface.Surface, sessionID string, opts ...llmtools.RegistryOption) (*llmtools.Registry, error) {
	r, err := llmtools.NewRegistry(opts...)
	if err != nil {
		return nil, err
	}
	if err := Register(r, s, sessionID); err != nil {
		return nil, err
	}
	return r, nil
}

// textJSON encodes v (always an envelope.Response) as a single text tool
// output, matching the teacher's own textJSON helper.
func textJSON(v any) ([]llmtoolsgoSpec.ToolStoreOutputUnion, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("toolsadapter: encode output: %w", err)
	}
	return []llmtoolsgoSpec.ToolStoreOutputUnion{
		{
			Kind: llmtoolsgoSpec.ToolStoreOutputKindText,
			TextItem: &llmtoolsgoSpec.ToolStoreOutputText{
				Text: string(raw),
			},
		},
	}, nil
}

func decodeStrict[T any](raw json.RawMessage) (T, error) {
	var zero T
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var v T
	if err := dec.Decode(&v); err != nil {
		return zero, fmt.Errorf("toolsadapter: invalid input: %w", err)
	}
	var extra any
	if err := dec.Decode(&extra); err == nil {
		return zero, errors.New("toolsadapter: invalid input: trailing data")
	} else if !errors.Is(err, io.EOF) {
		return zero, errors.New("toolsadapter: invalid input: trailing data")
	}
	return v, nil
}
