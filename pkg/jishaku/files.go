package jishaku

import (
	"bytes"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"net/http"
	"os"
	"reflect"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/Minion3665/jishaku/pkg/command"
	"github.com/Minion3665/jishaku/pkg/paginator"
)

// catSizeLimit refuses files whose upload would stall the bot.
const catSizeLimit = 50 * 1024 * 1024

var lineSpanPattern = regexp.MustCompile(`#L(\d+)(?:-L?(\d+))?$`)

var curlClient = &http.Client{Timeout: 30 * time.Second}

// catCommand displays a file as highlighted pages, honoring GitHub-style
// #L10-L20 spans.
func (c *Cog) catCommand(ctx *command.Context) error {
	arg := strings.TrimSpace(ctx.RawArgs)
	if arg == "" {
		_, err := ctx.Reply("What file do you want to display?")
		return err
	}

	path, span := parseLineSpan(arg)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not read `%s`: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("could not stat `%s`: %w", path, err)
	}
	if info.Size() == 0 {
		_, err := ctx.Reply(fmt.Sprintf("`%s` is empty.", path))
		return err
	}
	if info.Size() > catSizeLimit {
		_, err := ctx.Reply(fmt.Sprintf(
			"Cowardly refusing to read a file bigger than %s (`%s` is %s).",
			humanize.IBytes(catSizeLimit), path, humanize.IBytes(uint64(info.Size())),
		))
		return err
	}

	p, err := paginator.NewFromReader(f, paginator.FileOptions{
		Span:  span,
		Hints: []string{path},
	})
	if err != nil {
		return fmt.Errorf("`%s`: %w", path, err)
	}
	return c.sendPages(ctx, p)
}

// curlCommand downloads a URL and displays the body like cat, using the
// response content type and URL path as highlight hints.
func (c *Cog) curlCommand(ctx *command.Context) error {
	url := strings.TrimSpace(ctx.RawArgs)
	if url == "" {
		_, err := ctx.Reply("What URL do you want to fetch?")
		return err
	}
	url = strings.Trim(url, "<>")

	req, err := http.NewRequestWithContext(ctx.Ctx(), http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("bad URL: %w", err)
	}

	resp, err := curlClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, catSizeLimit))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if len(body) == 0 {
		_, err := ctx.Reply("No response content.")
		return err
	}

	p, err := paginator.NewFromReader(bytes.NewReader(body), paginator.FileOptions{
		Hints: []string{resp.Header.Get("Content-Type"), url},
	})
	if err != nil {
		return fmt.Errorf("`%s`: %w", url, err)
	}
	return c.sendPages(ctx, p)
}

// sourceCommand displays the Go source of a registered command's handler.
func (c *Cog) sourceCommand(ctx *command.Context) error {
	path := strings.TrimSpace(ctx.RawArgs)
	if path == "" {
		_, err := ctx.Reply("Which command do you want the source of?")
		return err
	}

	cmd := c.router.Find(path)
	if cmd == nil {
		_, err := ctx.Reply(fmt.Sprintf("Couldn't find a command called `%s`.", path))
		return err
	}

	file, span, err := sourceLocation(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("source for `%s` is not available here: %w", path, err)
	}
	defer f.Close()

	p, err := paginator.NewFromReader(f, paginator.FileOptions{
		Span:  span,
		Hints: []string{file},
	})
	if err != nil {
		return err
	}
	return c.sendPages(ctx, p)
}

// parseLineSpan splits a trailing #L10 or #L10-L20 selector off a path.
func parseLineSpan(arg string) (string, *paginator.LineSpan) {
	m := lineSpanPattern.FindStringSubmatch(arg)
	if m == nil {
		return arg, nil
	}

	start, _ := strconv.Atoi(m[1])
	end := start
	if m[2] != "" {
		end, _ = strconv.Atoi(m[2])
	}
	return strings.TrimSuffix(arg, m[0]), &paginator.LineSpan{Start: start, End: end}
}

// sourceLocation finds the file and line range of a command's handler,
// preferring a recorded SourcePath and falling back to runtime lookup of the
// handler's code pointer.
func sourceLocation(cmd *command.Command) (string, *paginator.LineSpan, error) {
	location := cmd.SourcePath
	if location == "" {
		if cmd.Run == nil {
			return "", nil, fmt.Errorf("`%s` has no handler to show", cmd.QualifiedName())
		}
		location = handlerSource(cmd.Run)
	}
	if location == "" {
		return "", nil, fmt.Errorf("could not locate the source of `%s`", cmd.QualifiedName())
	}

	file, line := splitLocation(location)
	if line == 0 {
		return file, nil, nil
	}

	span, err := enclosingFunction(file, line)
	if err != nil {
		// Fall back to the whole file when parsing fails.
		return file, nil, nil
	}
	return file, span, nil
}

// handlerSource resolves a handler func to "file:line" via the runtime.
func handlerSource(handler command.HandlerFunc) string {
	pc := reflect.ValueOf(handler).Pointer()
	fn := runtime.FuncForPC(pc)
	if fn == nil {
		return ""
	}
	file, line := fn.FileLine(pc)
	return fmt.Sprintf("%s:%d", file, line)
}

func splitLocation(location string) (string, int) {
	i := strings.LastIndexByte(location, ':')
	if i < 0 {
		return location, 0
	}
	line, err := strconv.Atoi(location[i+1:])
	if err != nil {
		return location, 0
	}
	return location[:i], line
}

// enclosingFunction parses file and returns the line span of the function
// declaration containing line.
func enclosingFunction(file string, line int) (*paginator.LineSpan, error) {
	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, file, nil, 0)
	if err != nil {
		return nil, err
	}

	for _, decl := range parsed.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		start := fset.Position(fn.Pos()).Line
		end := fset.Position(fn.End()).Line
		if line >= start && line <= end {
			return &paginator.LineSpan{Start: start, End: end}, nil
		}
	}
	return nil, fmt.Errorf("no function at %s:%d", file, line)
}
