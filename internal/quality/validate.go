package quality

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/net/html"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

var loaders = map[string]api.Loader{
	"javascript": api.LoaderJSX,
	"jsx":        api.LoaderJSX,
	"typescript": api.LoaderTS,
	"tsx":        api.LoaderTSX,
}

var lintRules = []struct {
	expr    *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`\bvar\s+\w`), "prefer let or const over var"},
	{regexp.MustCompile(`\bconsole\.log\(`), "console.log left in example"},
	{regexp.MustCompile(`\bdebugger\b`), "debugger statement"},
}

// Validate runs the language-specific syntax check. Unknown languages are assumed valid.
func Validate(code, language string) domain.ValidationResult {
	lang := strings.ToLower(language)
	if loader, ok := loaders[lang]; ok {
		return validateScript(code, loader)
	}
	switch lang {
	case "css", "scss":
		return validateCSS(code)
	case "html":
		return validateHTML(code)
	}
	return domain.ValidationResult{IsValid: true}
}

func validateScript(code string, loader api.Loader) domain.ValidationResult {
	res := api.Transform(code, api.TransformOptions{
		Loader:   loader,
		LogLevel: api.LogLevelSilent,
	})

	out := domain.ValidationResult{IsValid: len(res.Errors) == 0}
	for _, msg := range res.Errors {
		out.Errors = append(out.Errors, formatMessage(msg))
	}
	for _, msg := range res.Warnings {
		out.Warnings = append(out.Warnings, formatMessage(msg))
	}
	for _, rule := range lintRules {
		if rule.expr.MatchString(code) {
			out.Warnings = append(out.Warnings, rule.message)
		}
	}
	return out
}

func formatMessage(msg api.Message) string {
	if msg.Location == nil {
		return msg.Text
	}
	return fmt.Sprintf("%d:%d: %s", msg.Location.Line, msg.Location.Column, msg.Text)
}

var cssComment = regexp.MustCompile(`(?s)/\*.*?\*/`)

func validateCSS(code string) domain.ValidationResult {
	depth := 0
	var errs []string
	for i, line := range strings.Split(cssComment.ReplaceAllString(code, ""), "\n") {
		for _, r := range line {
			switch r {
			case '{':
				depth++
			case '}':
				depth--
				if depth < 0 {
					errs = append(errs, fmt.Sprintf("line %d: unexpected }", i+1))
					depth = 0
				}
			}
		}
	}
	if depth > 0 {
		errs = append(errs, fmt.Sprintf("%d unclosed {", depth))
	}
	return domain.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
	"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
}

var optionalClose = map[string]bool{
	"p": true, "li": true, "option": true, "tr": true, "td": true, "th": true, "dt": true, "dd": true,
}

func validateHTML(code string) domain.ValidationResult {
	var (
		stack []string
		errs  []string
	)
	z := html.NewTokenizer(strings.NewReader(code))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if z.Err() != io.EOF {
				errs = append(errs, z.Err().Error())
			}
			break
		}
		switch tt {
		case html.StartTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if !voidElements[tag] {
				stack = append(stack, tag)
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			idx := -1
			for i := len(stack) - 1; i >= 0; i-- {
				if stack[i] == tag {
					idx = i
					break
				}
			}
			if idx < 0 {
				errs = append(errs, fmt.Sprintf("unexpected </%s>", tag))
				continue
			}
			for _, open := range stack[idx+1:] {
				if !optionalClose[open] {
					errs = append(errs, fmt.Sprintf("<%s> closed by </%s>", open, tag))
				}
			}
			stack = stack[:idx]
		}
	}
	for _, open := range stack {
		if !optionalClose[open] {
			errs = append(errs, fmt.Sprintf("unclosed <%s>", open))
		}
	}
	return domain.ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
