// Package library holds the static wellness content served by the API: the
// check-in questionnaire and the resource library. The content is baked into
// the binary from content.yaml.
package library

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var contentYAML []byte

const (
	TestGAD7 = "GAD-7"
	TestPHQ9 = "PHQ-9"
)

// Question is one item of the combined GAD-7 / PHQ-9 check-in.
type Question struct {
	ID       int    `yaml:"id" json:"id"`
	Test     string `yaml:"test" json:"test"`
	Text     string `yaml:"text" json:"text"`
	SelfHarm bool   `yaml:"selfHarm" json:"-"`
}

type Recommendation struct {
	Title       string `yaml:"title" json:"title"`
	Description string `yaml:"description" json:"description"`
	Action      string `yaml:"action" json:"action"`
}

type Resource struct {
	Title       string `yaml:"title" json:"title"`
	Type        string `yaml:"type" json:"type"`
	Category    string `yaml:"category" json:"category"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Duration    string `yaml:"duration,omitempty" json:"duration,omitempty"`
	Thumbnail   string `yaml:"thumbnail,omitempty" json:"thumbnail,omitempty"`
	Featured    bool   `yaml:"featured,omitempty" json:"featured,omitempty"`
	URL         string `yaml:"url" json:"url"`
}

// Content is the parsed content.yaml.
type Content struct {
	Questions       []Question       `yaml:"questions"`
	AnswerScale     []string         `yaml:"answerScale"`
	Recommendations []Recommendation `yaml:"recommendations"`
	Resources       []Resource       `yaml:"resources"`
}

var (
	loadOnce sync.Once
	loaded   *Content
	loadErr  error
)

// Load parses the embedded content once and returns it.
func Load() (*Content, error) {
	loadOnce.Do(func() {
		loaded, loadErr = Parse(contentYAML)
	})
	return loaded, loadErr
}

// Parse decodes and validates library content.
func Parse(data []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse library content: %w", err)
	}

	seen := make(map[int]bool, len(c.Questions))
	for _, q := range c.Questions {
		if seen[q.ID] {
			return nil, fmt.Errorf("duplicate question id %d", q.ID)
		}
		seen[q.ID] = true
		if q.Test != TestGAD7 && q.Test != TestPHQ9 {
			return nil, fmt.Errorf("question %d: unknown test %q", q.ID, q.Test)
		}
	}
	return &c, nil
}

// MaxAnswer is the highest score a single answer can carry.
func (c *Content) MaxAnswer() int {
	return len(c.AnswerScale) - 1
}

// FilterResources returns resources matching category and type, case-insensitively.
// Empty filters match everything.
func (c *Content) FilterResources(category, kind string) []Resource {
	out := make([]Resource, 0, len(c.Resources))
	for _, r := range c.Resources {
		if category != "" && !strings.EqualFold(r.Category, category) {
			continue
		}
		if kind != "" && !strings.EqualFold(r.Type, kind) {
			continue
		}
		out = append(out, r)
	}
	return out
}
