// Package irlsp implements a language server for the textual IR format
// (internal/irtext): diagnostics pushed on open/change, hover with
// dominator information, and semantic tokens.
package irlsp

import (
	"fmt"
	"log"
	"net/url"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
	deadlock "github.com/sasha-s/go-deadlock"
	"github.com/segmentio/ksuid"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"ssaflow/internal/domtree"
	"ssaflow/internal/irtext"
	"ssaflow/internal/ssair"
)

// SemanticTokenTypes is the legend this server advertises (as required by
// the LSP spec), including the label and comment kinds the IR format
// needs.
var SemanticTokenTypes = []string{
	"namespace",
	"type",
	"typeParameter",
	"function",
	"variable",
	"parameter",
	"property",
	"keyword",
	"number",
	"operator",
	"modifier",
	"label",
	"comment",
}

// SemanticTokenModifiers is the modifier half of the legend.
var SemanticTokenModifiers = []string{
	"declaration",
	"definition",
	"readonly",
	"static",
	"deprecated",
	"abstract",
}

// Handler implements the LSP methods for the IR textual format.
type Handler struct {
	mu       deadlock.RWMutex
	content  map[string]string
	programs map[string]*ssair.Program

	sessionID string
	reader    *irtext.Reader
}

// NewHandler creates a Handler. Each handler mints its own ksuid session
// id, included in every log line so concurrent editor sessions talking to
// separate server processes are distinguishable in aggregated logs.
func NewHandler() *Handler {
	return &Handler{
		content:   make(map[string]string),
		programs:  make(map[string]*ssair.Program),
		sessionID: ksuid.New().String(),
		reader:    irtext.NewReader(),
	}
}

func (h *Handler) logf(format string, args ...any) {
	log.Printf("[%s] "+format, append([]any{h.sessionID}, args...)...)
}

// Initialize advertises this server's capabilities.
func (h *Handler) Initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	h.logf("initialize")

	return &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: ptrBool(true),
				Change:    ptrSyncKind(protocol.TextDocumentSyncKindFull),
			},
			HoverProvider: ptrBool(true),
			SemanticTokensProvider: &protocol.SemanticTokensOptions{
				Legend: protocol.SemanticTokensLegend{
					TokenTypes:     SemanticTokenTypes,
					TokenModifiers: SemanticTokenModifiers,
				},
				Full: ptrBool(true),
			},
		},
	}, nil
}

func (h *Handler) Initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	h.logf("initialized")
	return nil
}

func (h *Handler) Shutdown(ctx *glsp.Context) error {
	h.logf("shutdown")
	return nil
}

func (h *Handler) TextDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	h.logf("opened %s", params.TextDocument.URI)

	diagnostics, err := h.updateProgram(params.TextDocument.URI, params.TextDocument.Text)
	if err != nil {
		return errors.Wrap(err, "update program on open")
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (h *Handler) TextDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	h.logf("changed %s", params.TextDocument.URI)

	var text string
	for _, change := range params.ContentChanges {
		if full, ok := change.(protocol.TextDocumentContentChangeEventWhole); ok {
			text = full.Text
		}
	}

	diagnostics, err := h.updateProgram(params.TextDocument.URI, text)
	if err != nil {
		return errors.Wrap(err, "update program on change")
	}
	sendDiagnosticNotification(ctx, params.TextDocument.URI, diagnostics)
	return nil
}

func (h *Handler) TextDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	h.logf("closed %s", params.TextDocument.URI)

	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return errors.Wrapf(err, "convert URI %s", params.TextDocument.URI)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.content, path)
	delete(h.programs, path)
	return nil
}

// TextDocumentHover reports the block enclosing the cursor's dominator,
// post-dominator, and dominance frontier. updateProgram computes both
// trees right after a successful parse (a pure analysis, so the label-to-
// block mapping still matches the text), so this only reads them.
func (h *Handler) TextDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, errors.Wrapf(err, "convert URI %s", params.TextDocument.URI)
	}

	h.mu.RLock()
	prog := h.programs[path]
	text := h.content[path]
	h.mu.RUnlock()
	if prog == nil {
		return nil, nil
	}

	line := int(params.Position.Line)
	lines := strings.Split(text, "\n")
	if line < 0 || line >= len(lines) {
		return nil, nil
	}

	fn, blk := blockEnclosingLine(prog, lines, line)
	if blk == nil {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "block _%d in %s\n", blk.Num, fn.Name)
	if fn.DominatorsValid {
		if dom := blk.Dom(ssair.Forward); dom.Valid() {
			fmt.Fprintf(&b, "dominator: _%d\n", fn.Block(dom).Num)
		}
		if frontier := domtree.Frontier(fn, ssair.Forward, blk.ID()); len(frontier) > 0 {
			labels := make([]string, len(frontier))
			for i, id := range frontier {
				labels[i] = fmt.Sprintf("_%d", fn.Block(id).Num)
			}
			fmt.Fprintf(&b, "dominance frontier: %s\n", strings.Join(labels, ", "))
		}
	}
	if fn.PostDominatorsValid {
		if pdom := blk.Dom(ssair.Post); pdom.Valid() {
			fmt.Fprintf(&b, "post-dominator: _%d\n", fn.Block(pdom).Num)
		}
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindPlainText,
			Value: b.String(),
		},
	}, nil
}

// blockEnclosingLine finds the block whose label line is the nearest one
// at-or-before the given 0-based line number, within the function whose
// "fun NAME" header is the nearest one before that. Text labels are
// arbitrary `_N` tokens; the reader numbers blocks by first reference
// (entry = 1, exit = 2, labels from 3 up), so the scan replays that
// numbering rather than trusting the digits in the label.
func blockEnclosingLine(prog *ssair.Program, lines []string, line int) (*ssair.Function, *ssair.Block) {
	var curFn *ssair.Function
	labelNum := map[string]int{}
	nextNum := 3
	curBlockNum := -1
	var bestFn *ssair.Function
	bestNum := -1

	for i := 0; i <= line && i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, "fun ") {
			name := strings.TrimSpace(strings.TrimPrefix(trimmed, "fun "))
			curFn = prog.Function(name)
			labelNum = map[string]int{}
			nextNum = 3
			curBlockNum = -1
		} else if curFn != nil && !strings.HasPrefix(trimmed, "#") {
			for _, label := range labelTokens(trimmed) {
				if _, ok := labelNum[label]; !ok {
					labelNum[label] = nextNum
					nextNum++
				}
			}
			if strings.HasSuffix(trimmed, ":") {
				label := strings.TrimSpace(strings.TrimSuffix(trimmed, ":"))
				if n, ok := labelNum[label]; ok {
					curBlockNum = n
				}
			}
		}
		if curFn != nil && curBlockNum >= 0 {
			bestFn, bestNum = curFn, curBlockNum
		}
	}

	if bestFn == nil {
		return nil, nil
	}
	for _, blk := range bestFn.Blocks() {
		if blk.Num == bestNum {
			return bestFn, blk
		}
	}
	return nil, nil
}

// labelTokens extracts the `_<number>` label tokens of one source line, in
// order, ignoring any trailing comment.
func labelTokens(line string) []string {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	var out []string
	for i := 0; i < len(line); i++ {
		if line[i] != '_' {
			continue
		}
		if i > 0 && isIdentCont(line[i-1]) {
			continue
		}
		j := i + 1
		for j < len(line) && isDigit(line[j]) {
			j++
		}
		if j == i+1 || (j < len(line) && isIdentCont(line[j])) {
			i = j
			continue
		}
		out = append(out, line[i:j])
		i = j
	}
	return out
}

func (h *Handler) TextDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	path, err := uriToPath(params.TextDocument.URI)
	if err != nil {
		return nil, errors.Wrapf(err, "convert URI %s", params.TextDocument.URI)
	}

	h.mu.RLock()
	text, ok := h.content[path]
	h.mu.RUnlock()
	if !ok {
		return &protocol.SemanticTokens{Data: nil}, nil
	}

	tokens := collectSemanticTokens(text)

	var data []uint32
	var prevLine, prevStart uint32
	for _, token := range tokens {
		deltaLine := token.Line - prevLine
		var deltaStart uint32
		if deltaLine == 0 {
			deltaStart = token.StartChar - prevStart
		} else {
			deltaStart = token.StartChar
		}
		data = append(data, deltaLine, deltaStart, token.Length, uint32(token.TokenType), uint32(token.TokenModifiers))
		prevLine = token.Line
		prevStart = token.StartChar
	}

	return &protocol.SemanticTokens{Data: data}, nil
}

// updateProgram parses text and, on success, computes both dominator trees
// (so hover has them) and replaces the cached content and program for
// path; on failure it keeps the last-good program (so hover keeps working)
// and returns diagnostics describing the error.
func (h *Handler) updateProgram(rawURI protocol.DocumentUri, text string) ([]protocol.Diagnostic, error) {
	path, err := uriToPath(rawURI)
	if err != nil {
		return nil, errors.Wrapf(err, "convert URI %s", rawURI)
	}

	prog, parseErr := h.reader.ParseProgram(path, text)
	if parseErr == nil {
		for _, fn := range prog.Functions() {
			domtree.Update(fn)
			domtree.UpdatePost(fn)
		}
	}

	h.mu.Lock()
	h.content[path] = text
	if parseErr == nil {
		h.programs[path] = prog
	}
	h.mu.Unlock()

	if parseErr != nil {
		return ConvertParseError(parseErr), nil
	}
	return nil, nil
}

func uriToPath(rawURI string) (string, error) {
	u, err := url.Parse(rawURI)
	if err != nil {
		return "", fmt.Errorf("invalid URI %s: %w", rawURI, err)
	}

	path := u.Path
	if runtime.GOOS == "windows" && strings.HasPrefix(path, "/") && len(path) > 3 && path[2] == ':' {
		path = path[1:]
	}
	return filepath.FromSlash(path), nil
}

func sendDiagnosticNotification(ctx *glsp.Context, uri protocol.URI, diagnostics []protocol.Diagnostic) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

func ptrBool(b bool) *bool { return &b }

func ptrSyncKind(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind { return &k }
