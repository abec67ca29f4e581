package paginator

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// ErrUndecodable reports that no text encoding could be determined for the
// input.
var ErrUndecodable = errors.New("could not determine the encoding of this content")

// LineSpan selects an inclusive 1-based line range.
type LineSpan struct {
	Start int
	End   int
}

// FileOptions configure NewFromReader.
type FileOptions struct {
	// MaxSize bounds each page; zero uses DefaultMaxSize.
	MaxSize int

	// Span restricts output to a line range.
	Span *LineSpan

	// Hints help encoding detection and syntax-highlight tagging: file
	// names, URLs or MIME content types, in decreasing priority.
	Hints []string
}

// NewFromReader decodes file or response content and splits it into
// syntax-highlighted pages. Content with no determinable text encoding is
// refused with ErrUndecodable.
func NewFromReader(r io.Reader, opts FileOptions) (*Paginator, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read content: %w", err)
	}

	text, err := decode(data, opts.Hints)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	if opts.Span != nil {
		start, end := opts.Span.Start, opts.Span.End
		if start < 1 || end < start || start > len(lines) {
			return nil, fmt.Errorf("line span %d-%d out of range (1-%d)", start, end, len(lines))
		}
		if end > len(lines) {
			end = len(lines)
		}
		lines = lines[start-1 : end]
	}

	p := New("```"+languageHint(opts.Hints), "```", opts.MaxSize)
	for _, line := range lines {
		// Backticks inside a code block page would terminate the fence.
		p.AddLine(strings.ReplaceAll(line, "`", "`​"))
	}
	return p, nil
}

func decode(data []byte, hints []string) (string, error) {
	if bytes.IndexByte(data, 0) >= 0 {
		return "", ErrUndecodable
	}
	if utf8.Valid(data) {
		return string(data), nil
	}

	contentType := ""
	for _, hint := range hints {
		if hintExtension(hint) == "" && mediaType(hint) != "" {
			contentType = hint
			break
		}
	}

	enc, _, certain := charset.DetermineEncoding(data, contentType)
	if !certain {
		return "", ErrUndecodable
	}

	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", ErrUndecodable
	}
	return string(decoded), nil
}

// languageHint derives a syntax-highlight tag from file extensions or MIME
// types. A file extension always wins over MIME parsing, since paths like
// cmd/bot/main.go would otherwise look like a type/subtype pair.
func languageHint(hints []string) string {
	for _, hint := range hints {
		hint = strings.TrimSpace(hint)
		if hint == "" {
			continue
		}

		if ext := hintExtension(hint); ext != "" {
			return ext
		}

		if mt := mediaType(hint); mt != "" {
			// MIME type: text/x-python, application/json, ...
			sub := strings.TrimPrefix(mt[strings.LastIndex(mt, "/")+1:], "x-")
			if sub != "" && sub != "plain" && sub != "octet-stream" {
				return sub
			}
		}
	}
	return ""
}

// hintExtension extracts the file extension from a path or URL hint, with
// query strings and fragments stripped.
func hintExtension(hint string) string {
	name := hint
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	// Parameters mark a content type, which never carries an extension.
	if strings.Contains(name, ";") {
		return ""
	}
	return strings.TrimPrefix(path.Ext(name), ".")
}

// mediaType reports the type/subtype of a well-formed MIME content type
// hint, with any parameters stripped; empty for file names and URLs.
func mediaType(hint string) string {
	mt, _, err := mime.ParseMediaType(hint)
	if err != nil || !strings.Contains(mt, "/") {
		return ""
	}
	return mt
}
