package resolver

import (
	"strings"

	"brickyard/internal/brick"
	"brickyard/internal/payload"
)

const synthesisSystemPrompt = `You are a software architect writing the contract and implementation spec for one brick of a larger module.
Respond with a single JSON object and nothing else.`

const synthesisSchemaHint = `Respond with JSON of this shape:
{
  "contract": "markdown text: the brick's externally visible behavior",
  "spec": "markdown text: internal design guiding code generation",
  "exports": ["every_public_symbol_the_brick_provides"]
}
Rules:
- The exports list must be complete: downstream consumers rely on name-exact availability.
- Every export must be named in the contract text.`

func buildSynthesisPrompt(bp brick.BrickPlan, fb payload.Feedback) string {
	var b strings.Builder

	b.WriteString("Write the contract and implementation spec for the brick ")
	b.WriteString(bp.Name)
	b.WriteString(" (kind: ")
	b.WriteString(bp.Kind)
	b.WriteString(").\n\nBrick description:\n")
	b.WriteString(payload.Isolate(bp.Description))

	if len(bp.Exports) > 0 {
		b.WriteString("\n\nThe contract must include at least these exports: ")
		b.WriteString(strings.Join(bp.Exports, ", "))
	}
	if len(bp.DependsOn) > 0 {
		b.WriteString("\nThe brick may use these earlier bricks: ")
		b.WriteString(strings.Join(bp.DependsOn, ", "))
	}

	b.WriteString("\n\n")
	b.WriteString(synthesisSchemaHint)

	if fb.HasPrior() {
		b.WriteString("\n\n")
		b.WriteString(fb.Instructions)
	}
	return b.String()
}
