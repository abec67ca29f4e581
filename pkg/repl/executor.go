package repl

import (
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/scanner"
	"go/token"
	"strings"
	"sync"
)

// Yield is one value produced by evaluation, tagged with the line of the
// originating statement in the submitted source.
type Yield struct {
	Value any
	Line  int

	resp chan any
}

// Respond posts the consumer's reply back into the execution, releasing the
// producer to run the next statement. Every yield must be responded to
// exactly once; nil is a valid reply.
func (y *Yield) Respond(v any) {
	select {
	case y.resp <- v:
	default:
	}
}

// statement is one executable chunk of the submitted source.
type statement struct {
	text   string
	line   int
	isExpr bool
}

// Executor evaluates one submitted source block against a scope, yielding
// one value per top-level expression statement as evaluation proceeds. The
// producer suspends after each yield until the consumer responds, forming
// the bidirectional rendezvous the reply path relies on.
type Executor struct {
	scope  *Scope
	source string

	mu   sync.Mutex
	sent any
	err  error
}

// NewExecutor prepares an executor for one source block.
func NewExecutor(scope *Scope, source string) *Executor {
	return &Executor{scope: scope, source: source}
}

// Sent returns the most recent consumer reply. Exposed to evaluated code via
// an injected accessor.
func (ex *Executor) Sent() any {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.sent
}

// Err reports the evaluation error, if any, once the yield channel closes.
// Values yielded before the failure remain valid.
func (ex *Executor) Err() error {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	return ex.err
}

func (ex *Executor) setErr(err error) {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	ex.err = err
}

// Run parses the source once and starts sequential evaluation. The returned
// channel closes when evaluation finishes, fails, or the context is
// cancelled; check Err afterwards.
func (ex *Executor) Run(ctx context.Context) <-chan *Yield {
	out := make(chan *Yield)

	stmts, err := splitStatements(ex.source)
	if err != nil {
		ex.setErr(err)
		close(out)
		return out
	}

	go func() {
		defer close(out)
		unlock := ex.scope.lock()
		defer unlock()

		for _, st := range stmts {
			if ctx.Err() != nil {
				ex.setErr(ctx.Err())
				return
			}

			v, err := ex.scope.eval(ctx, st.text)
			if err != nil {
				ex.setErr(fmt.Errorf("line %d: %w", st.line, err))
				return
			}

			if !st.isExpr || !v.IsValid() || !v.CanInterface() {
				continue
			}
			value := v.Interface()
			if value == nil {
				continue
			}

			y := &Yield{Value: value, Line: st.line, resp: make(chan any, 1)}
			select {
			case out <- y:
			case <-ctx.Done():
				ex.setErr(ctx.Err())
				return
			}

			select {
			case reply := <-y.resp:
				ex.mu.Lock()
				ex.sent = reply
				ex.mu.Unlock()
			case <-ctx.Done():
				ex.setErr(ctx.Err())
				return
			}
		}
	}()

	return out
}

// splitStatements parses the source once and cuts it into sequentially
// executable chunks with original line numbers.
//
// Leading import lines are split off first so REPL snippets can mix imports
// with statements. The remainder is parsed as a function body; if that
// fails, it is parsed as a set of top-level declarations (func, type, var),
// which never yield values.
func splitStatements(src string) ([]statement, error) {
	imports, rest, offset := extractImports(src)

	stmts := make([]statement, 0, len(imports)+4)
	stmts = append(stmts, imports...)
	if strings.TrimSpace(rest) == "" {
		return stmts, nil
	}

	body, bodyErr := parseAsBody(rest, offset)
	if bodyErr == nil {
		return append(stmts, body...), nil
	}

	decls, declErr := parseAsDecls(rest, offset)
	if declErr == nil {
		return append(stmts, decls...), nil
	}

	// Report the body error: plain statements are the common case.
	return nil, bodyErr
}

// parseAsBody wraps the source in a function literal and splits its
// top-level statements.
func parseAsBody(src string, lineOffset int) ([]statement, error) {
	fset := token.NewFileSet()
	wrapped := "package repl\nfunc _body() {\n" + src + "\n}"
	const wrapperLines = 2

	file, err := parser.ParseFile(fset, "", wrapped, parser.SkipObjectResolution)
	if err != nil {
		return nil, reposition(err, wrapperLines-lineOffset)
	}

	fn, ok := file.Decls[len(file.Decls)-1].(*ast.FuncDecl)
	if !ok || fn.Body == nil {
		return nil, fmt.Errorf("could not parse submitted code")
	}

	stmts := make([]statement, 0, len(fn.Body.List))
	for _, node := range fn.Body.List {
		text, err := renderNode(fset, node)
		if err != nil {
			return nil, err
		}
		_, isExpr := node.(*ast.ExprStmt)
		stmts = append(stmts, statement{
			text:   text,
			line:   fset.Position(node.Pos()).Line - wrapperLines + lineOffset,
			isExpr: isExpr,
		})
	}
	return stmts, nil
}

// parseAsDecls splits the source as top-level declarations.
func parseAsDecls(src string, lineOffset int) ([]statement, error) {
	fset := token.NewFileSet()
	wrapped := "package repl\n" + src
	const wrapperLines = 1

	file, err := parser.ParseFile(fset, "", wrapped, parser.SkipObjectResolution)
	if err != nil {
		return nil, reposition(err, wrapperLines-lineOffset)
	}

	stmts := make([]statement, 0, len(file.Decls))
	for _, decl := range file.Decls {
		text, err := renderNode(fset, decl)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, statement{
			text: text,
			line: fset.Position(decl.Pos()).Line - wrapperLines + lineOffset,
		})
	}
	return stmts, nil
}

// extractImports pulls leading import statements off the source so the rest
// can be treated as a function body. Returns the imports as statements, the
// remaining source, and how many lines were consumed.
func extractImports(src string) ([]statement, string, int) {
	lines := strings.Split(src, "\n")
	var stmts []statement

	i := 0
	for i < len(lines) {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			i++
			continue
		}

		if strings.HasPrefix(trimmed, "import (") || trimmed == "import (" {
			start := i
			for i < len(lines) && !strings.Contains(lines[i], ")") {
				i++
			}
			if i < len(lines) {
				i++
			}
			stmts = append(stmts, statement{
				text: strings.Join(lines[start:i], "\n"),
				line: start + 1,
			})
			continue
		}

		if strings.HasPrefix(trimmed, "import ") {
			stmts = append(stmts, statement{text: trimmed, line: i + 1})
			i++
			continue
		}

		break
	}

	return stmts, strings.Join(lines[i:], "\n"), i
}

func renderNode(fset *token.FileSet, node ast.Node) (string, error) {
	var b strings.Builder
	if err := printer.Fprint(&b, fset, node); err != nil {
		return "", fmt.Errorf("render statement: %w", err)
	}
	return b.String(), nil
}

// reposition rewrites parser error positions from wrapped-source lines back
// to submitted-source lines.
func reposition(err error, wrapperOffset int) error {
	list, ok := err.(scanner.ErrorList)
	if !ok || len(list) == 0 {
		return err
	}
	first := list[0]
	line := first.Pos.Line - wrapperOffset
	if line < 1 {
		line = 1
	}
	return fmt.Errorf("line %d: %s", line, first.Msg)
}
