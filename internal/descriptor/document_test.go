package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/swayhq/sway/internal/types"
)

const yamlDoc = `
source: shop
enums:
  - name: Role
    members: [admin, user]
objects:
  - name: Order
    fields:
      - {name: buyer, type: User}
      - {name: note, optional: true}
  - name: User
    fields:
      - {name: name, type: "string & MinLength<1>"}
      - {name: role, type: Role, optional: true}
`

const tomlDoc = `
source = "shop"

[[enums]]
name = "Role"
members = ["admin", "user"]

[[objects]]
name = "Order"

  [[objects.fields]]
  name = "buyer"
  type = "User"

  [[objects.fields]]
  name = "note"
  optional = true

[[objects]]
name = "User"

  [[objects.fields]]
  name = "name"
  type = "string & MinLength<1>"

  [[objects.fields]]
  name = "role"
  type = "Role"
  optional = true
`

const jsonDoc = `{
  "source": "shop",
  "enums": [{"name": "Role", "members": ["admin", "user"]}],
  "objects": [
    {"name": "Order", "fields": [
      {"name": "buyer", "type": "User"},
      {"name": "note", "optional": true}
    ]},
    {"name": "User", "fields": [
      {"name": "name", "type": "string & MinLength<1>"},
      {"name": "role", "type": "Role", "optional": true}
    ]}
  ]
}`

func TestParseDocument_AllFormats(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{FormatYAML, yamlDoc},
		{FormatTOML, tomlDoc},
		{FormatJSON, jsonDoc},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			doc, err := ParseDocument([]byte(tt.data), tt.format)
			if err != nil {
				t.Fatalf("ParseDocument() error = %v", err)
			}
			c := NewCatalog()
			if err := doc.Declare(c); err != nil {
				t.Fatalf("Declare() error = %v", err)
			}

			order, err := c.Fields(Ref{Source: "shop", Name: "Order"})
			if err != nil {
				t.Fatalf("Fields(Order) error = %v", err)
			}
			if len(order) != 2 {
				t.Fatalf("len(Order fields) = %v, want 2", len(order))
			}
			// Forward reference to User resolves to the object.
			if order[0].Type.Kind != KindObject || order[0].Type.Ref.Name != "User" {
				t.Errorf("buyer type = %s, want shop.User", order[0].Type.Text())
			}
			if order[1].Type.Kind != KindAny || !order[1].Optional {
				t.Errorf("note = %+v, want optional any", order[1])
			}

			user, _ := c.Fields(Ref{Source: "shop", Name: "User"})
			if user[1].Type.Kind != KindEnum {
				t.Errorf("role kind = %v, want enum", user[1].Type.Kind)
			}
			members, err := c.EnumMembers(Ref{Source: "shop", Name: "Role"})
			if err != nil || len(members) != 2 {
				t.Errorf("EnumMembers() = %v, %v", members, err)
			}
		})
	}
}

func TestParseDocument_UnknownKeys(t *testing.T) {
	tests := []struct {
		format Format
		data   string
	}{
		{FormatYAML, "objects:\n  - name: A\n    feilds: []\n"},
		{FormatTOML, "[[objects]]\nname = \"A\"\nfeilds = []\n"},
		{FormatJSON, `{"objects": [{"name": "A", "feilds": []}]}`},
	}
	for _, tt := range tests {
		if _, err := ParseDocument([]byte(tt.data), tt.format); err == nil {
			t.Errorf("ParseDocument(%s) error = nil, want unknown key error", tt.format)
		}
	}
}

func TestDeclare_Duplicate(t *testing.T) {
	doc := &Document{
		Source:  "shop",
		Enums:   []EnumDecl{{Name: "Thing", Members: []any{"a"}}},
		Objects: []ObjectDecl{{Name: "Thing"}},
	}
	err := doc.Declare(NewCatalog())
	if !errors.Is(err, types.ErrDuplicateDeclaration) {
		t.Errorf("Declare() error = %v, want ErrDuplicateDeclaration", err)
	}
}

func TestDeclare_BadFieldType(t *testing.T) {
	doc := &Document{
		Source:  "shop",
		Objects: []ObjectDecl{{Name: "A", Fields: []FieldDecl{{Name: "x", Type: "string |"}}}},
	}
	err := doc.Declare(NewCatalog())
	if !errors.Is(err, types.ErrInvalidTypeExpression) {
		t.Errorf("Declare() error = %v, want ErrInvalidTypeExpression", err)
	}
}

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "billing.yaml")
	data := "objects:\n  - name: Invoice\n    fields:\n      - {name: total, type: number}\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog() error = %v", err)
	}
	// Source defaults to the file name.
	if _, err := c.Fields(Ref{Source: "billing", Name: "Invoice"}); err != nil {
		t.Errorf("Fields(billing.Invoice) error = %v", err)
	}
	if ref, ok := c.FindObject("Invoice"); !ok || ref.Source != "billing" {
		t.Errorf("FindObject(Invoice) = %v, %v", ref, ok)
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := map[string]Format{"a.yml": FormatYAML, "a.YAML": FormatYAML, "a.toml": FormatTOML, "a.json": FormatJSON}
	for path, want := range tests {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %v, %v, want %v", path, got, err, want)
		}
	}
	if _, err := FormatFromPath("a.xml"); err == nil {
		t.Errorf("FormatFromPath(a.xml) error = nil, want error")
	}
}
