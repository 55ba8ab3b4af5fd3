package repository

import (
	"encoding/xml"
	"fmt"

	"github.com/agentskills/skillrt/descriptor"
)

// skillsXML is the claude_xml catalog shape: nested <skill> elements with
// an attribute-bearing name and nested <description>, <path>,
// <allowed_tools>. Matches the teacher's internal/promptxml and
// internal/catalog/promptxml.go choice of stdlib encoding/xml over a
// third-party XML library.
type skillsXML struct {
	XMLName xml.Name   `xml:"skills"`
	Skills  []skillXML `xml:"skill"`
}

type skillXML struct {
	Name         string       `xml:"name,attr"`
	Description  string       `xml:"description"`
	Path         string       `xml:"path"`
	AllowedTools allowedTools `xml:"allowed_tools"`
}

type allowedTools struct {
	Tools []string `xml:"tool"`
}

func claudeXML(sorted []descriptor.Descriptor) (string, error) {
	out := skillsXML{Skills: make([]skillXML, 0, len(sorted))}
	for _, d := range sorted {
		out.Skills = append(out.Skills, skillXML{
			Name:         d.Name,
			Description:  d.Description,
			Path:         d.Path,
			AllowedTools: allowedTools{Tools: d.AllowedTools},
		})
	}
	b, err := xml.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", fmt.Errorf("repository: marshal xml prompt: %w", err)
	}
	return string(b), nil
}
