package rules

import (
	"strings"
	"testing"

	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/types"
)

const testSchemas = `
source: test
enums:
  - name: Role
    members: [admin, user]
  - name: Level
    members: [1, 2, 3]
objects:
  - name: User
    fields:
      - {name: name, type: string}
      - {name: age, type: "Min<0> & Max<120>"}
  - name: Person
    fields:
      - {name: name, type: string}
      - {name: email, type: "string & Format<'email'>", optional: true}
  - name: Item
    fields:
      - {name: sku, type: string}
      - {name: qty, type: "number & Min<1>"}
  - name: Order
    fields:
      - {name: id, type: string}
      - {name: items, type: "Item[]"}
      - {name: buyer, type: Person}
  - name: Query
    fields:
      - {name: page, type: number, optional: true}
      - {name: active, type: boolean, optional: true}
      - {name: tags, type: "string[]", optional: true}
      - {name: ids, type: "number[]", optional: true}
      - {name: level, type: Level, optional: true}
  - name: Node
    fields:
      - {name: value, type: number}
      - {name: next, type: Node, optional: true}
`

func newTestCatalog(t *testing.T) *descriptor.Catalog {
	t.Helper()
	doc, err := descriptor.ParseDocument([]byte(testSchemas), descriptor.FormatYAML)
	if err != nil {
		t.Fatalf("ParseDocument() error = %v", err)
	}
	c := descriptor.NewCatalog()
	if err := doc.Declare(c); err != nil {
		t.Fatalf("Declare() error = %v", err)
	}
	return c
}

func compileExpr(t *testing.T, c *descriptor.Catalog, name, expr string) (types.FieldRule, error) {
	t.Helper()
	d, err := c.ParseType("test", expr)
	if err != nil {
		t.Fatalf("ParseType(%q) error = %v", expr, err)
	}
	return NewCompiler(c).CompileField(name, false, d)
}

func mustCompile(t *testing.T, c *descriptor.Catalog, name, expr string) types.FieldRule {
	t.Helper()
	fr, err := compileExpr(t, c, name, expr)
	if err != nil {
		t.Fatalf("CompileField(%q) error = %v", expr, err)
	}
	return fr
}

func keys(rules []types.RuleSetting) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Key
	}
	return out
}

func countContaining(msgs []string, sub string) int {
	n := 0
	for _, m := range msgs {
		if strings.Contains(m, sub) {
			n++
		}
	}
	return n
}
