// internal/rules/compile_test.go
package rules

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/swayhq/sway/internal/descriptor"
	"github.com/swayhq/sway/internal/types"
	"gopkg.in/yaml.v3"
)

func TestCompile_Primitives(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		expr string
		key  string
		base types.BaseType
	}{
		{"string", "is-type-string", types.BaseString},
		{"number", "is-type-number", types.BaseNumber},
		{"boolean", "is-type-boolean", types.BaseBoolean},
		{"any", "is-type-any", types.BaseAny},
		{"unknown", "is-type-any", types.BaseAny},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fr := mustCompile(t, c, "v", tt.expr)
			if len(fr.Rules.And) != 1 || len(fr.Rules.Or) != 0 {
				t.Fatalf("Rules = %+v, want one AND rule", fr.Rules)
			}
			r := fr.Rules.And[0]
			if r.Key != tt.key {
				t.Errorf("Key = %v, want %v", r.Key, tt.key)
			}
			if r.Kind != types.RuleIsType {
				t.Errorf("Kind = %v, want IsType", r.Kind)
			}
			if r.BaseType != tt.base {
				t.Errorf("BaseType = %v, want %v", r.BaseType, tt.base)
			}
		})
	}
}

func TestCompile_FieldNameAndOptional(t *testing.T) {
	c := newTestCatalog(t)
	d, err := c.ParseType("test", "string")
	if err != nil {
		t.Fatal(err)
	}
	fr, err := NewCompiler(c).CompileField("query", true, d)
	if err != nil {
		t.Fatalf("CompileField() error = %v", err)
	}
	if fr.FieldName != "query" || !fr.Optional {
		t.Errorf("FieldRule = %+v, want name query, optional", fr)
	}
}

func TestCompile_Annotations(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		expr  string
		key   string
		kind  types.RuleKind
		value any
	}{
		{"Min<0>", "Min0", types.RuleMin, float64(0)},
		{"Max< 120 >", "Max120", types.RuleMax, float64(120)},
		{"Min<-1.5>", "Min-1.5", types.RuleMin, -1.5},
		{"MinLength<3>", "MinLength3", types.RuleMinLength, float64(3)},
		{"MaxLength<10>", "MaxLength10", types.RuleMaxLength, float64(10)},
		{"Contains<5>", "Contains5", types.RuleContains, float64(5)},
		{`Contains<"go">`, `Contains"go"`, types.RuleContains, "go"},
		{"Contains<true>", "Containstrue", types.RuleContains, true},
		{`Format<"email">`, "Formatemail", types.RuleFormat, "email"},
		{"Format<'uuid'>", "Formatuuid", types.RuleFormat, "uuid"},
		{`Format<"^[a-z]+$">`, "Format^[a-z]+$", types.RuleFormat, "^[a-z]+$"},
		{`Custom<"even">`, "Customeven", types.RuleCustom, "even"},
		{"ValidationRule.Min<2>", "Min2", types.RuleMin, float64(2)},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fr := mustCompile(t, c, "v", tt.expr)
			if len(fr.Rules.And) != 1 {
				t.Fatalf("len(And) = %v, want 1", len(fr.Rules.And))
			}
			r := fr.Rules.And[0]
			if r.Key != tt.key {
				t.Errorf("Key = %v, want %v", r.Key, tt.key)
			}
			if r.Kind != tt.kind {
				t.Errorf("Kind = %v, want %v", r.Kind, tt.kind)
			}
			if r.Value != tt.value {
				t.Errorf("Value = %#v, want %#v", r.Value, tt.value)
			}
		})
	}
}

func TestCompile_AnnotationErrors(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		expr    string
		wantErr error
	}{
		{"Min<abc>", types.ErrMalformedAnnotation},
		{"MinLength<-1>", types.ErrMalformedAnnotation},
		{"MaxLength<1.5>", types.ErrMalformedAnnotation},
		{"Format<email>", types.ErrMalformedAnnotation},
		{`Format<"">`, types.ErrMalformedAnnotation},
		{`Format<"(?=x)">`, types.ErrMalformedAnnotation},
		{"Contains<[1]>", types.ErrMalformedAnnotation},
		{"Between<1>", types.ErrUnknownAnnotation},
		{"IsType<1>", types.ErrUnknownAnnotation},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := compileExpr(t, c, "v", tt.expr)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CompileField(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestCompile_IntersectionConcatenatesAnd(t *testing.T) {
	c := newTestCatalog(t)
	fr := mustCompile(t, c, "v", "string & MinLength<3> & MaxLength<8>")

	want := []string{"is-type-string", "MinLength3", "MaxLength8"}
	if got := keys(fr.Rules.And); !reflect.DeepEqual(got, want) {
		t.Errorf("And keys = %v, want %v", got, want)
	}
	if len(fr.Rules.Or) != 0 {
		t.Errorf("len(Or) = %v, want 0", len(fr.Rules.Or))
	}
}

func TestCompile_UnionBecomesAlternatives(t *testing.T) {
	c := newTestCatalog(t)
	fr := mustCompile(t, c, "v", "string | number & Min<0>")

	if len(fr.Rules.And) != 0 {
		t.Errorf("len(And) = %v, want 0", len(fr.Rules.And))
	}
	if len(fr.Rules.Or) != 2 {
		t.Fatalf("len(Or) = %v, want 2", len(fr.Rules.Or))
	}
	if got := keys(fr.Rules.Or[0]); !reflect.DeepEqual(got, []string{"is-type-string"}) {
		t.Errorf("Or[0] = %v", got)
	}
	if got := keys(fr.Rules.Or[1]); !reflect.DeepEqual(got, []string{"is-type-number", "Min0"}) {
		t.Errorf("Or[1] = %v", got)
	}
}

func TestCompile_UnionInsideIntersectionKeepsAlternatives(t *testing.T) {
	c := newTestCatalog(t)
	fr := mustCompile(t, c, "v", "(string | number) & Custom<'ok'>")

	if got := keys(fr.Rules.And); !reflect.DeepEqual(got, []string{"Customok"}) {
		t.Errorf("And keys = %v, want [Customok]", got)
	}
	if len(fr.Rules.Or) != 2 {
		t.Errorf("len(Or) = %v, want 2", len(fr.Rules.Or))
	}
}

func TestCompile_IntersectionOfUnionsMultiplies(t *testing.T) {
	c := newTestCatalog(t)
	fr := mustCompile(t, c, "v", "(string | number) & (Min<1> | Custom<'x'>)")

	if len(fr.Rules.Or) != 4 {
		t.Fatalf("len(Or) = %v, want 4", len(fr.Rules.Or))
	}
	want := [][]string{
		{"is-type-string", "Min1"},
		{"is-type-string", "Customx"},
		{"is-type-number", "Min1"},
		{"is-type-number", "Customx"},
	}
	for i, alt := range fr.Rules.Or {
		if got := keys(alt); !reflect.DeepEqual(got, want[i]) {
			t.Errorf("Or[%d] = %v, want %v", i, got, want[i])
		}
	}
}

func TestCompile_NestedUnionFlattens(t *testing.T) {
	c := newTestCatalog(t)
	fr := mustCompile(t, c, "v", "string | (number | boolean)")
	if len(fr.Rules.Or) != 3 {
		t.Errorf("len(Or) = %v, want 3", len(fr.Rules.Or))
	}
}

func TestCompile_Enum(t *testing.T) {
	c := newTestCatalog(t)
	fr := mustCompile(t, c, "role", "Role")

	r := fr.Rules.And[0]
	if r.Kind != types.RuleIsType || r.BaseType != types.BaseEnum {
		t.Fatalf("rule = %+v, want IsType enum", r)
	}
	if r.Key != `is-type-enum["admin","user"]` {
		t.Errorf("Key = %v", r.Key)
	}
	if !reflect.DeepEqual(r.Value, []any{"admin", "user"}) {
		t.Errorf("Value = %#v", r.Value)
	}

	level := mustCompile(t, c, "level", "Level").Rules.And[0]
	if !reflect.DeepEqual(level.Value, []any{float64(1), float64(2), float64(3)}) {
		t.Errorf("numeric enum Value = %#v, want float64 members", level.Value)
	}
}

func TestCompile_Arrays(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		expr string
		key  string
		base types.BaseType
	}{
		{"string[]", "is-array-of-string", types.BaseString},
		{"Array<number>", "is-array-of-number", types.BaseNumber},
		{"boolean[]", "is-array-of-boolean", types.BaseBoolean},
		{"any[]", "is-array-of-any", types.BaseAny},
		{"Role[]", `is-array-of-enum["admin","user"]`, types.BaseEnum},
		{"number[][]", "is-array-of-is-array-of-number", types.BaseNone},
		{"Min<0>[]", "is-array-of-Min0", types.BaseNone},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			fr := mustCompile(t, c, "v", tt.expr)
			r := fr.Rules.And[0]
			if r.Kind != types.RuleIsArray {
				t.Fatalf("Kind = %v, want IsArray", r.Kind)
			}
			if r.Key != tt.key {
				t.Errorf("Key = %v, want %v", r.Key, tt.key)
			}
			if r.BaseType != tt.base {
				t.Errorf("BaseType = %v, want %v", r.BaseType, tt.base)
			}
		})
	}
}

func TestCompile_ArrayOfObjects(t *testing.T) {
	c := newTestCatalog(t)
	r := mustCompile(t, c, "items", "Item[]").Rules.And[0]

	if r.BaseType != types.BaseObject {
		t.Fatalf("BaseType = %v, want object", r.BaseType)
	}
	if !strings.HasPrefix(r.Key, "is-array-of-object#") {
		t.Errorf("Key = %v, want is-array-of-object# prefix", r.Key)
	}
	if len(r.NestedFields) != 2 || r.NestedFields[1].FieldName != "qty" {
		t.Errorf("NestedFields = %+v", r.NestedFields)
	}
}

func TestCompile_HeterogeneousArray(t *testing.T) {
	c := newTestCatalog(t)
	for _, expr := range []string{"(string | number)[]", "(string & MinLength<2>)[]"} {
		_, err := compileExpr(t, c, "v", expr)
		if !errors.Is(err, types.ErrHeterogeneousArray) {
			t.Errorf("CompileField(%q) error = %v, want ErrHeterogeneousArray", expr, err)
		}
	}
}

func TestCompile_Object(t *testing.T) {
	c := newTestCatalog(t)
	fr := mustCompile(t, c, "body", "User")

	r := fr.Rules.And[0]
	if r.Kind != types.RuleIsObject {
		t.Fatalf("Kind = %v, want IsObject", r.Kind)
	}
	if r.LiteralTypeName != "User" {
		t.Errorf("LiteralTypeName = %v, want User", r.LiteralTypeName)
	}
	if len(r.NestedFields) != 2 {
		t.Fatalf("len(NestedFields) = %v, want 2", len(r.NestedFields))
	}
	age := r.NestedFields[1]
	if got := keys(age.Rules.And); !reflect.DeepEqual(got, []string{"Min0", "Max120"}) {
		t.Errorf("age rules = %v", got)
	}
}

func TestCompile_ObjectKeysFollowStructure(t *testing.T) {
	c := newTestCatalog(t)
	user := mustCompile(t, c, "a", "User").Rules.And[0]
	person := mustCompile(t, c, "b", "Person").Rules.And[0]
	userAgain := mustCompile(t, c, "c", "test.User").Rules.And[0]

	if user.Key == person.Key {
		t.Errorf("User and Person share key %v", user.Key)
	}
	if user.Key != userAgain.Key {
		t.Errorf("User keys differ: %v vs %v", user.Key, userAgain.Key)
	}
}

func TestCompile_NestedObjects(t *testing.T) {
	c := newTestCatalog(t)
	r := mustCompile(t, c, "body", "Order").Rules.And[0]

	buyer := r.NestedFields[2]
	if buyer.FieldName != "buyer" || buyer.Rules.And[0].Kind != types.RuleIsObject {
		t.Fatalf("buyer = %+v", buyer)
	}
	email := buyer.Rules.And[0].NestedFields[1]
	if !email.Optional {
		t.Errorf("email.Optional = false, want true")
	}
}

func TestCompile_CyclicReference(t *testing.T) {
	c := newTestCatalog(t)
	_, err := compileExpr(t, c, "body", "Node")
	if !errors.Is(err, types.ErrCyclicReference) {
		t.Fatalf("error = %v, want ErrCyclicReference", err)
	}
	if !strings.Contains(err.Error(), "body.next") {
		t.Errorf("error = %v, want location body.next", err)
	}
}

func TestCompile_UnresolvedObject(t *testing.T) {
	c := newTestCatalog(t)
	_, err := compileExpr(t, c, "body", "Missing")
	if !errors.Is(err, types.ErrUnresolvedObject) {
		t.Errorf("error = %v, want ErrUnresolvedObject", err)
	}
}

func TestCompile_DepthLimit(t *testing.T) {
	d := descriptor.String()
	for i := 0; i < types.MaxDescriptorDepth+1; i++ {
		d = descriptor.Array(d)
	}
	_, err := NewCompiler(descriptor.NewCatalog()).CompileField("v", false, d)
	if !errors.Is(err, types.ErrDescriptorTooDeep) {
		t.Errorf("error = %v, want ErrDescriptorTooDeep", err)
	}
}

func TestCompile_TooManyAlternatives(t *testing.T) {
	c := newTestCatalog(t)
	// 4 * 4 * 4 * 4 * 4 = 1024 alternatives
	term := "(Min<1> | Min<2> | Min<3> | Min<4>)"
	expr := strings.Join([]string{term, term, term, term, term}, " & ")
	_, err := compileExpr(t, c, "v", expr)
	if !errors.Is(err, types.ErrTooManyAlternatives) {
		t.Errorf("error = %v, want ErrTooManyAlternatives", err)
	}
}

func TestCompile_NilDescriptorIsAny(t *testing.T) {
	rs, err := NewCompiler(descriptor.NewCatalog()).Compile(nil)
	if err != nil {
		t.Fatalf("Compile(nil) error = %v", err)
	}
	if got := keys(rs.And); !reflect.DeepEqual(got, []string{"is-type-any"}) {
		t.Errorf("And keys = %v, want [is-type-any]", got)
	}
}

func TestCompile_ObjectKeyTracksShape(t *testing.T) {
	c := newTestCatalog(t)

	first := mustCompile(t, c, "body", "Order").Rules.And[0].Key
	again := mustCompile(t, c, "body", "Order").Rules.And[0].Key
	if first != again {
		t.Errorf("Order key = %q then %q, want stable", first, again)
	}
	if !strings.HasPrefix(first, "is-type-object#") {
		t.Errorf("Order key = %q, want is-type-object# prefix", first)
	}

	user := mustCompile(t, c, "body", "User").Rules.And[0].Key
	person := mustCompile(t, c, "body", "Person").Rules.And[0].Key
	if user == person {
		t.Errorf("User and Person share key %q", user)
	}

	items := mustCompile(t, c, "items", "Item[]").Rules.And[0].Key
	if !strings.HasPrefix(items, "is-array-of-object#") {
		t.Errorf("Item[] key = %q, want is-array-of-object# prefix", items)
	}
}

func TestRuleTree_Encoding(t *testing.T) {
	c := newTestCatalog(t)
	order := mustCompile(t, c, "body", "Order")

	data, err := json.Marshal([]types.FieldRule{order})
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	text := string(data)
	for _, want := range []string{`"kind":"IsArray"`, `"literalTypeName":"Item"`, `"kind":"Min"`, `"value":1`, `"fieldName":"qty"`} {
		if !strings.Contains(text, want) {
			t.Errorf("json = %s, missing %s", text, want)
		}
	}

	var decoded []map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if len(decoded) != 1 || decoded[0]["fieldName"] != "body" {
		t.Errorf("decoded = %v", decoded)
	}

	out, err := yaml.Marshal(order)
	if err != nil {
		t.Fatalf("yaml.Marshal() error = %v", err)
	}
	for _, want := range []string{"kind: Min", "value: 1", "fieldName: email"} {
		if !strings.Contains(string(out), want) {
			t.Errorf("yaml = %s, missing %q", out, want)
		}
	}
}
