package domain

import "fmt"

// LineRange locates a snippet inside its file.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// SnippetMetadata records where a snippet came from.
type SnippetMetadata struct {
	SourceName  string     `json:"sourceName"`
	SourceURL   string     `json:"sourceUrl"`
	SourceType  SourceType `json:"sourceType"`
	FilePath    string     `json:"filePath,omitempty"`
	Context     string     `json:"context,omitempty"`
	LineNumbers *LineRange `json:"lineNumbers,omitempty"`
}

// CodeSnippet is a candidate code excerpt, addressed by the hash of its normalized code.
type CodeSnippet struct {
	Code     string          `json:"code"`
	Language string          `json:"language"`
	Metadata SnippetMetadata `json:"metadata"`
	Hash     string          `json:"hash"`
}

// Validate checks the snippet carries code, a language and a hash.
func (s CodeSnippet) Validate() error {
	if s.Code == "" {
		return fmt.Errorf("snippet from %s has no code", s.Metadata.SourceName)
	}
	if s.Language == "" {
		return fmt.Errorf("snippet %s has no language", s.Hash)
	}
	if s.Hash == "" {
		return fmt.Errorf("snippet from %s has no hash", s.Metadata.SourceName)
	}
	return nil
}
