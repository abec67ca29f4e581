// Package redaction masks registered secrets (such as the bot token) in
// user-facing replies and log output.
package redaction

import (
	"strings"
	"sync"
)

const defaultReplacement = "[TOKEN OMITTED]"

// Redactor replaces known secret values in arbitrary text.
type Redactor struct {
	mu          sync.RWMutex
	secrets     []string
	replacement string
}

// NewRedactor returns an empty redactor using the default replacement marker.
func NewRedactor() *Redactor {
	return &Redactor{replacement: defaultReplacement}
}

// SetReplacement overrides the marker substituted for secrets.
func (r *Redactor) SetReplacement(replacement string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if replacement != "" {
		r.replacement = replacement
	}
}

// AddSecret registers a value to be masked. Empty and very short values are
// ignored so the redactor can never blank out ordinary text.
func (r *Redactor) AddSecret(secret string) {
	if len(secret) < 6 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.secrets {
		if s == secret {
			return
		}
	}
	r.secrets = append(r.secrets, secret)
}

// Redact masks all registered secrets in text.
func (r *Redactor) Redact(text string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.secrets {
		text = strings.ReplaceAll(text, s, r.replacement)
	}
	return text
}

// RedactFields masks registered secrets in string-valued log fields.
func (r *Redactor) RedactFields(fields map[string]any) map[string]any {
	r.mu.RLock()
	n := len(r.secrets)
	r.mu.RUnlock()
	if n == 0 {
		return fields
	}

	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok {
			out[k] = r.Redact(s)
		} else {
			out[k] = v
		}
	}
	return out
}

var global = NewRedactor()

// Default returns the process-wide redactor shared by the logger and the
// command reply path.
func Default() *Redactor {
	return global
}

// AddSecret registers a secret with the process-wide redactor.
func AddSecret(secret string) {
	global.AddSecret(secret)
}

// Redact masks secrets using the process-wide redactor.
func Redact(text string) string {
	return global.Redact(text)
}

// RedactFields masks secrets in log fields using the process-wide redactor.
func RedactFields(fields map[string]any) map[string]any {
	return global.RedactFields(fields)
}
