package inliner

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"emogrify/internal/config"
	"emogrify/internal/css"
	"emogrify/internal/html"
	"emogrify/internal/resolver"
)

// ErrEmptyInput is returned when there is no HTML to process.
var ErrEmptyInput = errors.New("no HTML content to process")

// Inliner is the main CSS inlining engine for email HTML. An Inliner is not
// safe for concurrent use; create one per goroutine.
type Inliner struct {
	config        config.Config
	log           *zap.Logger
	parser        *css.Parser
	html          string
	css           string
	unprocessable []string
}

// New creates a new CSS inliner with the given configuration
func New(cfg config.Config, log *zap.Logger) *Inliner {
	if log == nil {
		log = zap.NewNop()
	}
	profile := cfg.Profile()

	i := &Inliner{
		config: cfg,
		log:    log.Named("inliner"),
		parser: css.NewParser(log,
			css.WithPreserveMedia(cfg.PreserveMediaQueries && profile.SupportsMediaQueries),
			css.WithPreservePseudo(cfg.PreservePseudoSelectors && profile.SupportsAnyPseudo()),
		),
	}
	for _, tag := range cfg.UnprocessableTags {
		i.AddUnprocessableTag(tag)
	}
	return i
}

// NewWithDefaults creates a new CSS inliner with default configuration
func NewWithDefaults() *Inliner {
	return New(config.Default(), nil)
}

// SetHTML sets the document to process.
func (i *Inliner) SetHTML(content string) {
	i.html = content
}

// SetCSS sets CSS applied in addition to the document's own <style>
// elements. It comes first in source order.
func (i *Inliner) SetCSS(content string) {
	i.css = content
}

// AddUnprocessableTag marks a tag name for removal. Such elements are removed
// only when they are empty.
func (i *Inliner) AddUnprocessableTag(tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag != "" && !slices.Contains(i.unprocessable, tag) {
		i.unprocessable = append(i.unprocessable, tag)
	}
}

// RemoveUnprocessableTag undoes AddUnprocessableTag.
func (i *Inliner) RemoveUnprocessableTag(tag string) {
	tag = strings.ToLower(strings.TrimSpace(tag))
	i.unprocessable = slices.DeleteFunc(i.unprocessable, func(t string) bool { return t == tag })
}

// UnprocessableTags returns the tag names currently marked for removal.
func (i *Inliner) UnprocessableTags() []string {
	return slices.Clone(i.unprocessable)
}

// Result contains the result of CSS inlining operation
type Result struct {
	HTML     string                       // Final HTML with inlined styles
	Stats    Stats                        // Processing statistics
	Issues   []error                      // Recoverable CSS problems, the offending parts were skipped
	Warnings []resolver.ValidationWarning // Email client compatibility warnings
}

// Stats contains metrics from the inlining process
type Stats struct {
	CSSRulesParsed        int   // Inlinable rules found
	PreservedBlocks       int   // Verbatim CSS fragments kept in <style>
	HTMLElementsProcessed int   // Elements matched against the rules
	ElementsStyled        int   // Elements whose style attribute was written
	SelectorsMatched      int   // Rule matches across all elements
	UnprocessableRemoved  int   // Empty unprocessable elements removed
	ProcessingTimeMs      int64 // Processing time in milliseconds
}

// Emogrify inlines the CSS into the HTML set with SetHTML. CSS is taken from
// SetCSS first and from the document's <style> elements after that; the
// <style> elements are removed.
func (i *Inliner) Emogrify() (*Result, error) {
	start := time.Now()

	if strings.TrimSpace(i.html) == "" {
		return nil, ErrEmptyInput
	}

	doc, err := html.ParseString(i.html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	removed, err := doc.RemoveEmpty(i.unprocessable)
	if err != nil {
		return nil, fmt.Errorf("failed to remove unprocessable tags: %w", err)
	}

	embedded := doc.ExtractStyles()
	sheet := i.parser.ParseSources(i.css, embedded)

	result := &Result{Issues: sheet.Warnings()}

	var onStyled func(*html.Node, resolver.Resolution)
	if i.config.EmailClientOptimizations {
		onStyled = func(n *html.Node, res resolver.Resolution) {
			result.Warnings = append(result.Warnings,
				resolver.ValidateStyles(n.TagName(), res.Declarations, i.config.TargetEmailClient)...)
		}
	}
	if result.Stats, err = apply(doc, sheet, i.log, onStyled); err != nil {
		return nil, err
	}
	result.Stats.UnprocessableRemoved = removed

	if preserved := sheet.PreservedCSS(); preserved != "" && i.config.EmailClientOptimizations {
		result.Warnings = append(result.Warnings,
			resolver.ValidateStylesheetSize(preserved, i.config.TargetEmailClient)...)
	}

	if result.HTML, err = doc.HTML(); err != nil {
		return nil, err
	}

	result.Stats.ProcessingTimeMs = time.Since(start).Milliseconds()
	i.log.Debug("Inlined document",
		zap.Int("rules", result.Stats.CSSRulesParsed),
		zap.Int("elements", result.Stats.HTMLElementsProcessed),
		zap.Int("styled", result.Stats.ElementsStyled),
		zap.Int("issues", len(result.Issues)),
		zap.Int64("ms", result.Stats.ProcessingTimeMs))
	return result, nil
}

// Inline processes HTML with embedded CSS (and CSS set with SetCSS) and
// inlines styles
func (i *Inliner) Inline(htmlContent string) (*Result, error) {
	i.SetHTML(htmlContent)
	return i.Emogrify()
}

// InlineString is a convenience method that inlines CSS in an HTML string
func (i *Inliner) InlineString(htmlContent string) (string, error) {
	result, err := i.Inline(htmlContent)
	if err != nil {
		return "", err
	}
	return result.HTML, nil
}

// ApplyTo writes the resolved style attribute of every element of doc
// matched by sheet or already carrying a style attribute, and appends the
// preserved CSS of sheet to <head>. A nil sheet is an empty one.
func ApplyTo(doc *html.Document, sheet *css.Stylesheet) (Stats, error) {
	return apply(doc, sheet, nil, nil)
}

func apply(doc *html.Document, sheet *css.Stylesheet, log *zap.Logger, onStyled func(*html.Node, resolver.Resolution)) (Stats, error) {
	if sheet == nil {
		sheet = &css.Stylesheet{}
	}
	r := resolver.New(sheet, log)
	stats := Stats{
		CSSRulesParsed:  len(sheet.Rules),
		PreservedBlocks: len(sheet.Preserved),
	}

	// resolve everything before writing, [style] tests see the original document
	elements := doc.Elements()
	resolutions := make([]resolver.Resolution, len(elements))
	resolved := make([]bool, len(elements))
	for n, e := range elements {
		resolutions[n], resolved[n] = r.Resolve(e)
	}

	stats.HTMLElementsProcessed = len(elements)
	for n, e := range elements {
		if !resolved[n] {
			continue
		}
		res := resolutions[n]
		e.SetAttr("style", res.Style)
		stats.ElementsStyled++
		stats.SelectorsMatched += res.Matches
		if onStyled != nil {
			onStyled(e, res)
		}
	}

	if preserved := sheet.PreservedCSS(); preserved != "" {
		if err := doc.AppendStyle(preserved); err != nil {
			return stats, fmt.Errorf("failed to preserve CSS: %w", err)
		}
	}
	return stats, nil
}

// InlineCSS is a convenience function that inlines CSS with default configuration
func InlineCSS(htmlContent string) (string, error) {
	return NewWithDefaults().InlineString(htmlContent)
}

// InlineCSSWithConfig is a convenience function that inlines CSS with custom configuration
func InlineCSSWithConfig(htmlContent string, cfg config.Config) (string, error) {
	return New(cfg, nil).InlineString(htmlContent)
}

// Err combines the recoverable problems of a result into one error, nil
// when there were none.
func (r *Result) Err() error {
	return multierr.Combine(r.Issues...)
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.CSSRulesParsed += o.CSSRulesParsed
	s.PreservedBlocks += o.PreservedBlocks
	s.HTMLElementsProcessed += o.HTMLElementsProcessed
	s.ElementsStyled += o.ElementsStyled
	s.SelectorsMatched += o.SelectorsMatched
	s.UnprocessableRemoved += o.UnprocessableRemoved
	s.ProcessingTimeMs += o.ProcessingTimeMs
}
