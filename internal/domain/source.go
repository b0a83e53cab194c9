package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceType enumerates the kinds of content origins the pipeline understands.
type SourceType string

const (
	SourceGitHub  SourceType = "github"
	SourceDocs    SourceType = "docs"
	SourceBlog    SourceType = "blog"
	SourceAwesome SourceType = "awesome"
)

// Source is an external origin of code snippets (repository, docs page).
type Source struct {
	Type        SourceType  `json:"type" yaml:"type"`
	Name        string      `json:"name" yaml:"name"`
	URL         string      `json:"url" yaml:"url"`
	Tags        []string    `json:"tags" yaml:"tags"`
	Priority    int         `json:"priority" yaml:"priority"`
	LastChecked *time.Time  `json:"lastChecked,omitempty" yaml:"-"`
	GitHub      *GitHubInfo `json:"github,omitempty" yaml:"github,omitempty"`
}

// GitHubInfo carries the repository signals used for prioritization.
type GitHubInfo struct {
	Owner       string    `json:"owner" yaml:"owner"`
	Repo        string    `json:"repo" yaml:"repo"`
	Stars       int       `json:"stars" yaml:"stars"`
	Forks       int       `json:"forks" yaml:"forks"`
	Language    string    `json:"language" yaml:"language"`
	LastPushed  time.Time `json:"lastPushed" yaml:"-"`
	HasExamples bool      `json:"hasExamples" yaml:"hasExamples"`
	HasGoodDocs bool      `json:"hasGoodDocs" yaml:"hasGoodDocs"`
}

// FullName returns owner/repo for repositories, the URL otherwise.
func (s Source) FullName() string {
	if s.GitHub != nil && s.GitHub.Owner != "" && s.GitHub.Repo != "" {
		return s.GitHub.Owner + "/" + s.GitHub.Repo
	}
	return s.URL
}

// Key identifies a source for merge deduplication.
func (s Source) Key() string {
	return strings.ToLower(string(s.Type) + ":" + s.FullName())
}

// Validate checks the fields every stage relies on.
func (s Source) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("source name is empty")
	}
	if s.Priority < 1 || s.Priority > 10 {
		return fmt.Errorf("source %s: priority %d out of range", s.Name, s.Priority)
	}
	switch s.Type {
	case SourceGitHub, SourceAwesome:
		if s.GitHub == nil || s.GitHub.Owner == "" || s.GitHub.Repo == "" {
			return fmt.Errorf("source %s: repository coordinates missing", s.Name)
		}
	case SourceDocs, SourceBlog:
		if s.URL == "" {
			return fmt.Errorf("source %s: url missing", s.Name)
		}
	default:
		return fmt.Errorf("source %s: unknown type %q", s.Name, s.Type)
	}
	return nil
}

// Repository is a raw code-host search hit before it becomes a Source.
type Repository struct {
	Owner       string
	Name        string
	FullName    string
	HTMLURL     string
	Description string
	Topics      []string
	Stars       int
	Forks       int
	Language    string
	PushedAt    time.Time
}
