package resolver

import (
	"fmt"
	"strings"

	"emogrify/internal/config"
	"emogrify/internal/css"
)

// ValidationWarning represents a potential issue with computed styles
type ValidationWarning struct {
	Element  string
	Property string
	Value    string
	Message  string
	Severity string // "error", "warning", "info"
}

func (w ValidationWarning) String() string {
	if w.Property == "" {
		return fmt.Sprintf("%s: %s", w.Severity, w.Message)
	}
	return fmt.Sprintf("%s: <%s> %s:%s: %s", w.Severity, w.Element, w.Property, strings.TrimSpace(w.Value), w.Message)
}

// ValidateStyles checks the inlined declarations of an element against the
// target email client. It never changes the styles.
func ValidateStyles(element string, block css.DeclarationBlock, client string) []ValidationWarning {
	var warnings []ValidationWarning

	compatibility := config.GetCompatibilityProfile(client)
	warn := func(d css.Declaration, severity, message string) {
		warnings = append(warnings, ValidationWarning{
			Element:  element,
			Property: d.Property,
			Value:    d.Value,
			Message:  message,
			Severity: severity,
		})
	}

	for _, d := range block {
		value := strings.ToLower(d.Value)
		switch d.Key() {
		case "background-image":
			if strings.Contains(value, "url(") && strings.EqualFold(client, "outlook") {
				warn(d, "warning", "Background images may not render in Outlook desktop")
			}

		case "width", "height":
			if strings.Contains(value, "vw") || strings.Contains(value, "vh") {
				warn(d, "error", "Viewport units not supported in email clients")
			}

		case "position":
			if strings.TrimSpace(value) != "static" && compatibility.RequiresInlineStyles {
				warn(d, "warning", "Positioning not supported in this email client")
			}
		}
	}

	return warnings
}

// ValidateStylesheetSize warns when the CSS kept in <style> exceeds what the
// target client accepts.
func ValidateStylesheetSize(preserved string, client string) []ValidationWarning {
	limit := config.GetCompatibilityProfile(client).MaxStylesheetSize
	if limit == 0 || len(preserved) <= limit {
		return nil
	}
	return []ValidationWarning{{
		Element:  "style",
		Message:  fmt.Sprintf("preserved CSS is %d bytes, %s accepts at most %d", len(preserved), client, limit),
		Severity: "warning",
	}}
}
