package application

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"

	"github.com/ericfisherdev/revbot/internal/domain/model"
)

// ReviewParser turns raw model output into a structured review. Output that
// does not carry a complete review fails with model.ErrMalformedReview.
type ReviewParser interface {
	Parse(raw string) (model.ParsedReview, error)
}

// LineStripParser drops the first and last line of the output, the fence lines
// of the expected ```json block, and decodes the rest as one JSON document.
type LineStripParser struct{}

// Parse implements ReviewParser.
func (LineStripParser) Parse(raw string) (model.ParsedReview, error) {
	lines := splitLines(raw)
	if len(lines) < 2 {
		return model.ParsedReview{}, fmt.Errorf("output has %d lines: %w", len(lines), model.ErrMalformedReview)
	}
	return decodeReview(strings.Join(lines[1:len(lines)-1], ""))
}

// splitLines splits on "\n", strips a trailing "\r" from every line and drops
// the empty element after a final newline.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// MarkdownFenceParser decodes the content of the first fenced code block of the
// output, ignoring any prose the model wrote around it.
type MarkdownFenceParser struct {
	md goldmark.Markdown
}

// NewMarkdownFenceParser creates a MarkdownFenceParser that reads GitHub
// Flavored Markdown, the dialect models usually answer in.
func NewMarkdownFenceParser() *MarkdownFenceParser {
	return &MarkdownFenceParser{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

// Parse implements ReviewParser.
func (p *MarkdownFenceParser) Parse(raw string) (model.ParsedReview, error) {
	src := []byte(raw)
	doc := p.md.Parser().Parse(text.NewReader(src))

	var block *ast.FencedCodeBlock
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if fcb, ok := n.(*ast.FencedCodeBlock); ok {
			block = fcb
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return model.ParsedReview{}, fmt.Errorf("walk markdown: %w", err)
	}
	if block == nil {
		return model.ParsedReview{}, fmt.Errorf("no fenced code block: %w", model.ErrMalformedReview)
	}

	var b strings.Builder
	segments := block.Lines()
	for i := 0; i < segments.Len(); i++ {
		seg := segments.At(i)
		b.Write(seg.Value(src))
	}
	return decodeReview(b.String())
}

// reviewDocument mirrors the JSON the model is asked to produce. Pointers make
// every field required.
type reviewDocument struct {
	OverallExplanation *string            `json:"overall_explanation"`
	Findings           *[]findingDocument `json:"findings"`
}

type findingDocument struct {
	Body         *string `json:"body"`
	CodeLocation *struct {
		AbsoluteFilePath *string `json:"absolute_file_path"`
		Line             *uint32 `json:"line"`
	} `json:"code_location"`
}

func decodeReview(payload string) (model.ParsedReview, error) {
	var doc reviewDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return model.ParsedReview{}, fmt.Errorf("%w: %w", model.ErrMalformedReview, err)
	}
	if doc.OverallExplanation == nil {
		return model.ParsedReview{}, fmt.Errorf("missing overall_explanation: %w", model.ErrMalformedReview)
	}
	if doc.Findings == nil {
		return model.ParsedReview{}, fmt.Errorf("missing findings: %w", model.ErrMalformedReview)
	}

	review := model.ParsedReview{
		OverallExplanation: *doc.OverallExplanation,
		Findings:           make([]model.Finding, 0, len(*doc.Findings)),
	}
	for i, f := range *doc.Findings {
		switch {
		case f.Body == nil:
			return model.ParsedReview{}, fmt.Errorf("finding %d: missing body: %w", i, model.ErrMalformedReview)
		case f.CodeLocation == nil:
			return model.ParsedReview{}, fmt.Errorf("finding %d: missing code_location: %w", i, model.ErrMalformedReview)
		case f.CodeLocation.AbsoluteFilePath == nil:
			return model.ParsedReview{}, fmt.Errorf("finding %d: missing absolute_file_path: %w", i, model.ErrMalformedReview)
		case f.CodeLocation.Line == nil:
			return model.ParsedReview{}, fmt.Errorf("finding %d: missing line: %w", i, model.ErrMalformedReview)
		}
		review.Findings = append(review.Findings, model.Finding{
			Body: *f.Body,
			Location: model.CodeLocation{
				AbsoluteFilePath: *f.CodeLocation.AbsoluteFilePath,
				Line:             *f.CodeLocation.Line,
			},
		})
	}
	return review, nil
}
