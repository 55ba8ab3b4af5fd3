// Package frontmatter extracts the metadata block and body text from a
// SKILL.md document.
package frontmatter

import (
	"bufio"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentskills/skillrt/skillerrors"
)

const delimiter = "---"

// Result holds the parsed metadata map and the residual body text.
type Result struct {
	Metadata map[string]any
	Body     string
}

// Parse extracts the leading fenced `---` block (if any) from text and
// unmarshals it as YAML. If the first line is not a bare delimiter, the
// entire text is the body and Metadata is empty. Required keys name and
// description are validated here; callers get skillerrors.ErrSkillParseError
// wrapped on any failure.
func Parse(text string) (Result, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)

	if !scanner.Scan() {
		return Result{Metadata: map[string]any{}, Body: text}, nil
	}
	firstLine := scanner.Text()
	if strings.TrimSpace(firstLine) != delimiter {
		return Result{Metadata: map[string]any{}, Body: text}, nil
	}

	var block strings.Builder
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == delimiter {
			closed = true
			break
		}
		block.WriteString(line)
		block.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return Result{}, fmt.Errorf("frontmatter: read: %w: %w", skillerrors.ErrSkillParseError, err)
	}
	if !closed {
		return Result{}, fmt.Errorf("frontmatter: missing closing delimiter: %w", skillerrors.ErrSkillParseError)
	}

	var meta map[string]any
	if err := yaml.Unmarshal([]byte(block.String()), &meta); err != nil {
		return Result{}, fmt.Errorf("frontmatter: invalid yaml: %w: %w", skillerrors.ErrSkillParseError, err)
	}
	if meta == nil {
		meta = map[string]any{}
	}

	if err := validateRequired(meta); err != nil {
		return Result{}, err
	}

	// Everything the scanner has not yet consumed is the body. bufio.Scanner
	// doesn't expose an offset, so split text into lines again and keep
	// everything after the closing delimiter line.
	body := bodyAfterFrontmatter(text)
	return Result{Metadata: meta, Body: body}, nil
}

func bodyAfterFrontmatter(text string) string {
	lines := strings.SplitAfter(text, "\n")
	if len(lines) == 0 {
		return ""
	}
	if strings.TrimSpace(strings.TrimSuffix(lines[0], "\n")) != delimiter {
		return text
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(strings.TrimSuffix(lines[i], "\n")) == delimiter {
			return strings.Join(lines[i+1:], "")
		}
	}
	return ""
}

func validateRequired(meta map[string]any) error {
	name, _ := meta["name"].(string)
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("frontmatter: missing required key %q: %w", "name", skillerrors.ErrSkillParseError)
	}
	description, _ := meta["description"].(string)
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("frontmatter: missing required key %q: %w", "description", skillerrors.ErrSkillParseError)
	}
	return nil
}
