package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/cbroglie/mustache"

	"longbox/internal/approval"
	"longbox/internal/textutil"
)

// DefaultExtension is appended to every preview.
const DefaultExtension = ".cbz"

// Resolver renders filenames from field snapshots.
type Resolver struct {
	template  *mustache.Template
	extension string
}

var _ approval.RenameResolver = (*Resolver)(nil)

// NewResolver parses template. Rendering is raw: no HTML escaping.
func NewResolver(template string) (*Resolver, error) {
	template = strings.TrimSpace(template)
	if template == "" {
		return nil, errors.New("naming template must not be empty")
	}
	tmpl, err := mustache.ParseStringRaw(template, true)
	if err != nil {
		return nil, fmt.Errorf("parse naming template: %w", err)
	}
	return &Resolver{template: tmpl, extension: DefaultExtension}, nil
}

// Preview renders the filename fields would produce.
func (r *Resolver) Preview(fields map[approval.FieldName]string) (string, error) {
	data := make(map[string]string, len(fields)+1)
	for name, value := range fields {
		data[string(name)] = strings.TrimSpace(value)
	}
	data["number_padded"] = PadNumber(data[string(approval.FieldNumber)])

	rendered, err := r.template.Render(data)
	if err != nil {
		return "", fmt.Errorf("render naming template: %w", err)
	}
	name := Clean(rendered)
	if name == "" {
		return "", errors.New("naming template rendered an empty filename")
	}
	return name + r.extension, nil
}

var (
	emptyGroup  = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	strayDashes = regexp.MustCompile(`(^[\s-]+)|([\s-]+$)`)
	leadingNum  = regexp.MustCompile(`^(\d+)(.*)$`)
)

// Clean sanitizes a rendered name and drops empty "()" and "[]" groups.
func Clean(name string) string {
	name = textutil.SanitizeFileName(name)
	for {
		next := emptyGroup.ReplaceAllString(name, "")
		if next == name {
			break
		}
		name = next
	}
	name = strayDashes.ReplaceAllString(name, "")
	return textutil.SanitizeFileName(name)
}

// PadNumber zero-pads the integer part of an issue number to three digits.
// Non-numeric numbers are returned unchanged.
func PadNumber(number string) string {
	number = strings.TrimSpace(number)
	match := leadingNum.FindStringSubmatch(number)
	if match == nil {
		return number
	}
	digits := strings.TrimLeft(match[1], "0")
	if digits == "" {
		digits = "0"
	}
	if len(digits) < 3 {
		digits = strings.Repeat("0", 3-len(digits)) + digits
	}
	return digits + match[2]
}
