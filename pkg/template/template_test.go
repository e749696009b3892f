package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_NoTokensIsIdentity(t *testing.T) {
	ctx := map[string]any{"job": map[string]any{"status": "done"}}

	assert.Equal(t, "plain text, no tokens", Render("plain text, no tokens", ctx))
	assert.Equal(t, "", Render("", ctx))
}

func TestRender_SimplePath(t *testing.T) {
	ctx := map[string]any{"job": map[string]any{"status": "done"}}

	assert.Equal(t, "done", Render("{{job.status}}", ctx))
	assert.Equal(t, "Job is done.", Render("Job is {{job.status}}.", ctx))
}

func TestRender_UnresolvedPathRendersEmpty(t *testing.T) {
	ctx := map[string]any{"job": map[string]any{}}

	// Missing leaf, missing intermediate and non-map intermediate all
	// resolve to empty string, never the literal token.
	assert.Equal(t, "", Render("{{job.missing}}", ctx))
	assert.Equal(t, "", Render("{{invoice.total}}", ctx))
	assert.Equal(t, "Hi !", Render("Hi {{client.firstName}}!", ctx))
}

func TestRender_TraversalThroughNonMapFails(t *testing.T) {
	ctx := map[string]any{"job": map[string]any{"status": "done"}}

	assert.Equal(t, "", Render("{{job.status.code}}", ctx))
}

func TestRender_MultipleTokens(t *testing.T) {
	ctx := map[string]any{
		"client":  map[string]any{"firstName": "Sam", "lastName": "Reyes"},
		"company": map[string]any{"name": "Acme Plumbing"},
	}

	result := Render("Thanks {{client.firstName}} {{client.lastName}} - {{company.name}}", ctx)
	assert.Equal(t, "Thanks Sam Reyes - Acme Plumbing", result)
}

func TestRender_ValueCoercion(t *testing.T) {
	ctx := map[string]any{
		"invoice": map[string]any{
			"total":   199.5,
			"number":  int64(42),
			"overdue": true,
		},
	}

	assert.Equal(t, "199.5", Render("{{invoice.total}}", ctx))
	assert.Equal(t, "42", Render("{{invoice.number}}", ctx))
	assert.Equal(t, "true", Render("{{invoice.overdue}}", ctx))
}

func TestRender_WhitespaceInsideToken(t *testing.T) {
	ctx := map[string]any{"job": map[string]any{"status": "Scheduled"}}

	assert.Equal(t, "Scheduled", Render("{{ job.status }}", ctx))
}

func TestRender_UnterminatedTokenKeptAsLiteral(t *testing.T) {
	ctx := map[string]any{"job": map[string]any{"status": "done"}}

	assert.Equal(t, "{{job.status", Render("{{job.status", ctx))
}

func TestParse_Tokens(t *testing.T) {
	tmpl := Parse("Hello {{client.firstName}}, your {{job.title}} is booked")

	assert.Equal(t, []string{"client.firstName", "job.title"}, tmpl.Tokens())
}

func TestCompile_ReturnsCachedTemplate(t *testing.T) {
	first := Compile("cache-probe {{job.status}}")
	second := Compile("cache-probe {{job.status}}")

	assert.Same(t, first, second)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "7", Stringify(7))
	assert.Equal(t, "false", Stringify(false))
	assert.Equal(t, "3.25", Stringify(3.25))
}
