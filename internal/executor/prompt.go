package executor

import (
	"strings"

	"brickyard/internal/brick"
	"brickyard/internal/payload"
)

const generateSystemPrompt = `You are a software engineer implementing one brick of a larger module.
Write complete, working code that satisfies the brick's contract exactly.
Respond with a single JSON object and nothing else.`

const generateSchemaHint = `Respond with JSON of this shape:
{
  "files": [
    {"path": "relative/path/within/the/brick.py", "content": "full file content"}
  ]
}
Rules:
- Paths are relative to the brick's own directory. Never use absolute paths or "..".
- Every file must be complete and non-empty. No placeholders, no elided sections.
- The code must define every export named in the contract, with matching names.`

func buildGeneratePrompt(bp brick.BrickPlan, contractText, specText string, fb payload.Feedback) string {
	var b strings.Builder

	b.WriteString("Implement the brick ")
	b.WriteString(bp.Name)
	b.WriteString(" (kind: ")
	b.WriteString(bp.Kind)
	b.WriteString(").\n\nContract:\n")
	b.WriteString(payload.Isolate(contractText))
	b.WriteString("\n\nImplementation spec:\n")
	b.WriteString(payload.Isolate(specText))

	if len(bp.Exports) > 0 {
		b.WriteString("\n\nRequired exports: ")
		b.WriteString(strings.Join(bp.Exports, ", "))
	}
	if len(bp.DependsOn) > 0 {
		b.WriteString("\nAlready-built bricks available for import: ")
		b.WriteString(strings.Join(bp.DependsOn, ", "))
	}

	b.WriteString("\n\n")
	b.WriteString(generateSchemaHint)

	if fb.HasPrior() {
		b.WriteString("\n\n")
		b.WriteString(fb.Instructions)
	}
	return b.String()
}
