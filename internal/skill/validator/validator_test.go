package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thoreinstein/skillkit/internal/skill"
	"github.com/thoreinstein/skillkit/internal/validator"
)

const okDescription = "Scaffold FastAPI projects with SQLModel and pytest"

func issueFor(r *validator.Result, sev validator.Severity, field string) *validator.Issue {
	for i := range r.Issues {
		if r.Issues[i].Severity == sev && r.Issues[i].Field == field {
			return &r.Issues[i]
		}
	}
	return nil
}

func TestValidator_Validate(t *testing.T) {
	tests := []struct {
		name      string
		skill     *skill.Skill
		opts      []Option
		wantErrs  int
		wantField string
		wantMsg   string
	}{
		{
			name: "valid with all fields",
			skill: &skill.Skill{
				Name:         "fastapi-scaffold",
				Description:  okDescription,
				AllowedTools: skill.ToolList{"Read", "Write", "Bash(uvicorn:*)"},
				Model:        "sonnet",
				Metadata:     map[string]string{"version": "1.0.0"},
				Instructions: "# FastAPI",
			},
			opts: []Option{WithStrict(true)},
		},
		{
			name:  "max length name",
			skill: &skill.Skill{Name: strings.Repeat("a", 64), Description: okDescription, Instructions: "x"},
		},
		{
			name:      "missing name",
			skill:     &skill.Skill{Description: okDescription, Instructions: "x"},
			wantErrs:  1,
			wantField: "name",
			wantMsg:   "name is required",
		},
		{
			name:      "name too long",
			skill:     &skill.Skill{Name: strings.Repeat("a", 65), Description: okDescription, Instructions: "x"},
			wantErrs:  1,
			wantField: "name",
			wantMsg:   "maximum length of 64",
		},
		{
			name:      "uppercase name",
			skill:     &skill.Skill{Name: "FastAPI", Description: okDescription, Instructions: "x"},
			wantErrs:  1,
			wantField: "name",
			wantMsg:   "must be lowercase",
		},
		{
			name:      "leading hyphen",
			skill:     &skill.Skill{Name: "-api", Description: okDescription, Instructions: "x"},
			wantErrs:  1,
			wantField: "name",
			wantMsg:   "cannot start or end with a hyphen",
		},
		{
			name:      "double hyphen",
			skill:     &skill.Skill{Name: "fast--api", Description: okDescription, Instructions: "x"},
			wantErrs:  1,
			wantField: "name",
			wantMsg:   "consecutive hyphens",
		},
		{
			name:      "underscore",
			skill:     &skill.Skill{Name: "fast_api", Description: okDescription, Instructions: "x"},
			wantErrs:  1,
			wantField: "name",
			wantMsg:   "single hyphens between segments",
		},
		{
			name:      "missing description",
			skill:     &skill.Skill{Name: "api", Instructions: "x"},
			wantErrs:  1,
			wantField: "description",
			wantMsg:   "description is required",
		},
		{
			name:      "whitespace description",
			skill:     &skill.Skill{Name: "api", Description: "  \n\t", Instructions: "x"},
			wantErrs:  1,
			wantField: "description",
			wantMsg:   "only whitespace",
		},
		{
			name:      "description too long",
			skill:     &skill.Skill{Name: "api", Description: strings.Repeat("d", 1025), Instructions: "x"},
			wantErrs:  1,
			wantField: "description",
			wantMsg:   "maximum length of 1024",
		},
		{
			name:      "strict rejects bad tool",
			skill:     &skill.Skill{Name: "api", Description: okDescription, AllowedTools: skill.ToolList{"read"}, Instructions: "x"},
			opts:      []Option{WithStrict(true)},
			wantErrs:  1,
			wantField: "allowed-tools",
			wantMsg:   "PascalCase",
		},
		{
			name:  "lenient ignores bad tool",
			skill: &skill.Skill{Name: "api", Description: okDescription, AllowedTools: skill.ToolList{"read"}, Instructions: "x"},
		},
		{
			name:      "bad metadata version",
			skill:     &skill.Skill{Name: "api", Description: okDescription, Metadata: map[string]string{"version": "one"}, Instructions: "x"},
			wantErrs:  1,
			wantField: "metadata.version",
			wantMsg:   "semantic version",
		},
		{
			name:      "name must match directory",
			skill:     &skill.Skill{Name: "api", Description: okDescription, Path: "/s/other/SKILL.md", Instructions: "x"},
			wantErrs:  1,
			wantField: "name",
			wantMsg:   "match directory name other",
		},
		{
			name:      "required section missing",
			skill:     &skill.Skill{Name: "api", Description: okDescription, Instructions: "# Overview\n\ntext"},
			opts:      []Option{WithRequiredSections([]string{"overview", "Quick Start"})},
			wantErrs:  1,
			wantField: "sections",
			wantMsg:   "missing required section",
		},
		{
			name:      "strict line limit",
			skill:     &skill.Skill{Name: "api", Description: okDescription, Instructions: "x", Lines: 11},
			opts:      []Option{WithStrict(true), WithMaxLines(10)},
			wantErrs:  1,
			wantField: "lines",
			wantMsg:   "11 lines, above the 10 line guideline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.opts...).Validate(tt.skill)
			errs := result.Errors()
			if !assert.Len(t, errs, tt.wantErrs, "issues: %v", result.Issues) || tt.wantErrs == 0 {
				return
			}
			assert.Equal(t, tt.wantField, errs[0].Field)
			assert.Contains(t, errs[0].Message, tt.wantMsg)
		})
	}
}

func TestValidator_Warnings(t *testing.T) {
	tests := []struct {
		name    string
		skill   *skill.Skill
		opts    []Option
		field   string
		wantMsg string
	}{
		{"short description", &skill.Skill{Name: "api", Description: "Does APIs", Instructions: "x"}, nil, "description", "too short"},
		{"xml in description", &skill.Skill{Name: "api", Description: okDescription + " <tool>", Instructions: "x"}, nil, "description", "XML tags"},
		{"unknown model", &skill.Skill{Name: "api", Description: okDescription, Model: "gpt-4", Instructions: "x"}, nil, "model", "haiku, inherit, opus, sonnet"},
		{"empty body", &skill.Skill{Name: "api", Description: okDescription}, nil, "body", "no instructions"},
		{"line guideline", &skill.Skill{Name: "api", Description: okDescription, Instructions: "x", Lines: 501}, nil, "lines", "501 lines"},
		{"reserved word", &skill.Skill{Name: "claude-helper", Description: okDescription, Instructions: "x"}, nil, "name", "reserved word"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := New(tt.opts...).Validate(tt.skill)
			assert.False(t, result.HasErrors(), "issues: %v", result.Issues)
			w := issueFor(result, validator.SeverityWarning, tt.field)
			if assert.NotNil(t, w, "issues: %v", result.Issues) {
				assert.Contains(t, w.Message, tt.wantMsg)
			}
		})
	}
}

func TestWithKnownModels(t *testing.T) {
	s := &skill.Skill{Name: "api", Description: okDescription, Model: "Sonnet-4", Instructions: "x"}

	assert.True(t, New().Validate(s).HasWarnings())
	assert.False(t, New(WithKnownModels([]string{"sonnet-4"})).Validate(s).HasWarnings())
	assert.True(t, New(WithKnownModels(nil)).Validate(s).HasWarnings(), "empty list keeps defaults")
}

func TestLocalTarget(t *testing.T) {
	tests := []struct {
		dest string
		want string
		ok   bool
	}{
		{"references/api.md", "references/api.md", true},
		{"./scripts/scaffold.sh#usage", "./scripts/scaffold.sh", true},
		{"references/my%20notes.md", "references/my notes.md", true},
		{"https://fastapi.tiangolo.com", "", false},
		{"mailto:team@example.com", "", false},
		{"#quick-start", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.dest, func(t *testing.T) {
			got, ok := localTarget(tt.dest)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanBody(t *testing.T) {
	body := "\n# FastAPI Scaffold\n\nSee [the API](references/api.md) and ![diagram](assets/arch.png).\n\n## Quick `Start`\n\n- [script](scripts/run.sh)\n"
	o := scanBody([]byte(body), 5)

	if assert.Len(t, o.Headings, 2) {
		assert.Equal(t, heading{Level: 1, Text: "FastAPI Scaffold", Line: 6}, o.Headings[0])
		assert.Equal(t, "Quick Start", o.Headings[1].Text)
		assert.Equal(t, 10, o.Headings[1].Line)
	}
	if assert.Len(t, o.Links, 3) {
		assert.Equal(t, link{Dest: "references/api.md", Line: 8}, o.Links[0])
		assert.Equal(t, "assets/arch.png", o.Links[1].Dest)
		assert.Equal(t, link{Dest: "scripts/run.sh", Line: 12}, o.Links[2])
	}
}
