package parser

import (
	"fmt"

	"github.com/willibrandon/stlog/core"
)

// Parse parses a message template string into a MessageTemplate.
// An empty template is rejected with core.ErrInvalidArgument.
func Parse(template string) (*MessageTemplate, error) {
	if template == "" {
		return nil, fmt.Errorf("%w: message template is empty", core.ErrInvalidArgument)
	}
	return &MessageTemplate{
		Raw:    template,
		Tokens: Tokenize(template),
	}, nil
}

// Tokenize splits a template into text and property tokens in a single
// left-to-right pass. A placeholder is '{', an optional '@', one or more
// word characters and '}'. Anything else, including unbalanced braces, is
// literal text. Concatenating the tokens' RawText reproduces the input.
func Tokenize(template string) []MessageTemplateToken {
	tokens := []MessageTemplateToken{}
	textStart := 0

	for i := 0; i < len(template); i++ {
		if template[i] != '{' {
			continue
		}
		end, ok := matchPlaceholder(template, i)
		if !ok {
			continue
		}

		if i > textStart {
			tokens = append(tokens, &TextToken{Text: template[textStart:i]})
		}

		raw := template[i:end]
		name := raw[1 : len(raw)-1]
		destructure := name[0] == '@'
		if destructure {
			name = name[1:]
		}
		tokens = append(tokens, &PropertyToken{
			PropertyName: name,
			Destructure:  destructure,
			Raw:          raw,
		})

		textStart = end
		i = end - 1
	}

	if textStart < len(template) {
		tokens = append(tokens, &TextToken{Text: template[textStart:]})
	}

	return tokens
}

// matchPlaceholder reports whether a placeholder starts at template[start]
// and returns the index just past its closing brace.
func matchPlaceholder(template string, start int) (int, bool) {
	j := start + 1
	if j < len(template) && template[j] == '@' {
		j++
	}
	nameStart := j
	for j < len(template) && isWordChar(template[j]) {
		j++
	}
	if j == nameStart || j >= len(template) || template[j] != '}' {
		return 0, false
	}
	return j + 1, true
}

func isWordChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
