package descriptor

import (
	"errors"
	"reflect"
	"testing"

	"github.com/swayhq/sway/internal/types"
)

type level int

func TestCatalog_Resolve(t *testing.T) {
	c := NewCatalog()
	_ = c.DeclareObject(Ref{Source: "a", Name: "User"}, nil)
	_ = c.DeclareObject(Ref{Source: "b", Name: "User"}, nil)
	_ = c.DeclareObject(Ref{Source: "b", Name: "Invoice"}, nil)
	_ = c.DeclareEnum(Ref{Source: "b", Name: "State"}, []any{"open"})

	tests := []struct {
		source, name string
		want         *Descriptor
	}{
		{"a", "User", Object(Ref{Source: "a", Name: "User"})},
		{"b", "User", Object(Ref{Source: "b", Name: "User"})},
		{"a", "Invoice", Object(Ref{Source: "b", Name: "Invoice"})},
		{"a", "State", Enum(Ref{Source: "b", Name: "State"})},
		{"a", "b.User", Object(Ref{Source: "b", Name: "User"})},
		// ambiguous bare names stay local and fail later
		{"c", "User", Object(Ref{Source: "c", Name: "User"})},
	}
	for _, tt := range tests {
		if got := c.Resolve(tt.source, tt.name); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Resolve(%q, %q) = %s, want %s", tt.source, tt.name, got.Text(), tt.want.Text())
		}
	}
}

func TestCatalog_DeclareErrors(t *testing.T) {
	c := NewCatalog()
	ref := Ref{Name: "X"}
	if err := c.DeclareObject(ref, nil); err != nil {
		t.Fatal(err)
	}
	if err := c.DeclareObject(ref, nil); !errors.Is(err, types.ErrDuplicateDeclaration) {
		t.Errorf("second DeclareObject() error = %v", err)
	}
	if err := c.DeclareEnum(ref, []any{1}); !errors.Is(err, types.ErrDuplicateDeclaration) {
		t.Errorf("DeclareEnum() over object error = %v", err)
	}

	many := make([]any, types.MaxEnumMembers+1)
	if err := c.DeclareEnum(Ref{Name: "Big"}, many); !errors.Is(err, types.ErrTooManyEnumMembers) {
		t.Errorf("DeclareEnum(big) error = %v", err)
	}
}

func TestCatalog_PendingObjectIsUnresolved(t *testing.T) {
	c := NewCatalog()
	ref := Ref{Name: "Later"}
	if err := c.reserveObject(ref); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Fields(ref); !errors.Is(err, types.ErrUnresolvedObject) {
		t.Errorf("Fields(pending) error = %v, want ErrUnresolvedObject", err)
	}
	if len(c.Objects()) != 0 {
		t.Errorf("Objects() lists pending object")
	}
	if err := c.DeclareObject(ref, []Field{{Name: "x"}}); err != nil {
		t.Fatalf("DeclareObject(pending) error = %v", err)
	}
	if got := c.Objects(); len(got) != 1 || got[0] != ref {
		t.Errorf("Objects() = %v", got)
	}
}

func TestCatalog_EnumMembersMissing(t *testing.T) {
	if _, err := NewCatalog().EnumMembers(Ref{Name: "Nope"}); !errors.Is(err, types.ErrUnresolvedEnum) {
		t.Errorf("EnumMembers() error = %v, want ErrUnresolvedEnum", err)
	}
}

func TestNormalizeScalar(t *testing.T) {
	type name string
	tests := []struct {
		in, want any
	}{
		{1, float64(1)},
		{int64(2), float64(2)},
		{uint8(3), float64(3)},
		{float32(1.5), float64(1.5)},
		{level(4), float64(4)},
		{name("x"), "x"},
		{"y", "y"},
		{true, true},
		{nil, nil},
	}
	for _, tt := range tests {
		if got := NormalizeScalar(tt.in); got != tt.want {
			t.Errorf("NormalizeScalar(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
