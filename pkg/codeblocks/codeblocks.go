// Package codeblocks parses submitted message content into code, stripping
// surrounding markdown fences when present.
package codeblocks

import "strings"

// Codeblock is a block of source text with an optional language tag. It is
// parsed once from raw input and immutable afterwards.
type Codeblock struct {
	Language string
	Content  string
}

// Parse strips codeblock markdown from an argument.
//
// Triple-fenced blocks may carry a language tag on the opening line. Inline
// single-backtick spans are unwrapped without a language. Anything else is
// returned verbatim.
func Parse(argument string) Codeblock {
	if !strings.HasPrefix(argument, "`") {
		return Codeblock{Content: argument}
	}

	if strings.HasPrefix(argument, "```") && strings.HasSuffix(argument, "```") && len(argument) > 6 {
		inner := argument[3 : len(argument)-3]

		language := ""
		if idx := strings.IndexAny(inner, "\n\r"); idx >= 0 {
			first := inner[:idx]
			// A first line without spaces is a language tag, not code.
			if first != "" && !strings.ContainsAny(first, " \t`") {
				language = first
				inner = inner[idx+1:]
			}
		}

		return Codeblock{Language: language, Content: strings.Trim(inner, "\n")}
	}

	if strings.HasSuffix(argument, "`") && len(argument) > 2 {
		return Codeblock{Content: strings.Trim(argument, "`")}
	}

	return Codeblock{Content: argument}
}
