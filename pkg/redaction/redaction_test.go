package redaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactorMasksSecrets(t *testing.T) {
	r := NewRedactor()
	r.AddSecret("super-secret-token")

	got := r.Redact("the token is super-secret-token, keep it safe")
	assert.Equal(t, "the token is [TOKEN OMITTED], keep it safe", got)
}

func TestRedactorIgnoresShortSecrets(t *testing.T) {
	r := NewRedactor()
	r.AddSecret("abc")

	assert.Equal(t, "abc is fine", r.Redact("abc is fine"))
}

func TestRedactorDeduplicatesSecrets(t *testing.T) {
	r := NewRedactor()
	r.AddSecret("duplicated-secret")
	r.AddSecret("duplicated-secret")

	got := r.Redact("duplicated-secret")
	assert.Equal(t, "[TOKEN OMITTED]", got)
}

func TestRedactFields(t *testing.T) {
	r := NewRedactor()
	r.AddSecret("super-secret-token")

	fields := map[string]any{
		"content": "sending super-secret-token",
		"count":   3,
	}
	got := r.RedactFields(fields)
	assert.Equal(t, "sending [TOKEN OMITTED]", got["content"])
	assert.Equal(t, 3, got["count"])
}

func TestRedactorCustomReplacement(t *testing.T) {
	r := NewRedactor()
	r.AddSecret("super-secret-token")
	r.SetReplacement("[NO_TOKEN]")

	assert.Equal(t, "[NO_TOKEN]", r.Redact("super-secret-token"))
}
