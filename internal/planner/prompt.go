package planner

import (
	"strings"

	"brickyard/internal/payload"
)

const planSystemPrompt = `You are a software architect decomposing a module into independently buildable bricks.
Respond with a single JSON object and nothing else.`

const planSchemaHint = `Respond with JSON of this shape:
{
  "bricks": [
    {
      "name": "unique-brick-name",
      "description": "what the brick does and its public surface",
      "target_directory": "relative/output/dir",
      "kind": "python_module",
      "depends_on": ["earlier-brick-name"],
      "exports": ["public_symbol"]
    }
  ]
}
Rules:
- Brick order must be a valid dependency order: a brick may only depend on bricks listed before it.
- Brick names and target directories must each be unique.
- Every brick needs a non-empty description.`

// buildPlanPrompt assembles the planning prompt. Contract and spec text are
// untrusted input and are wrapped with boundary markers before embedding.
func buildPlanPrompt(moduleName, contractText, specText string, fb payload.Feedback) string {
	var b strings.Builder

	b.WriteString("Decompose the module ")
	b.WriteString(moduleName)
	b.WriteString(" into bricks.\n\n")

	b.WriteString("Module contract:\n")
	b.WriteString(payload.Isolate(contractText))
	b.WriteString("\n\nImplementation spec:\n")
	b.WriteString(payload.Isolate(specText))
	b.WriteString("\n\n")
	b.WriteString(planSchemaHint)

	if fb.HasPrior() {
		b.WriteString("\n\n")
		b.WriteString(fb.Instructions)
	}
	return b.String()
}
