package types

import "github.com/AnriaW/minipar/internal/ast"

// Type represents a type in the MiniPar type system.
type Type interface {
	String() string
	// IsType is a marker method to ensure type safety.
	IsType()
}

// PrimitiveKind represents the kind of a primitive type.
type PrimitiveKind string

const (
	Int    PrimitiveKind = "int"
	Float  PrimitiveKind = "float"
	Bool   PrimitiveKind = "bool"
	String PrimitiveKind = "string"
	Void   PrimitiveKind = "void"
)

// Primitive represents a primitive type.
type Primitive struct {
	Kind PrimitiveKind
}

func (p *Primitive) String() string { return string(p.Kind) }
func (p *Primitive) IsType()        {}

// Common primitive instances
var (
	TypeInt    = &Primitive{Kind: Int}
	TypeFloat  = &Primitive{Kind: Float}
	TypeBool   = &Primitive{Kind: Bool}
	TypeString = &Primitive{Kind: String}
	TypeVoid   = &Primitive{Kind: Void}
)

// List is List<Elem>.
type List struct {
	Elem Type
}

func (l *List) String() string { return "List<" + l.Elem.String() + ">" }
func (l *List) IsType()        {}

// Channel is the type of a declared channel name.
type Channel struct{}

func (*Channel) String() string { return "c_channel" }
func (*Channel) IsType()        {}

// Any is the wildcard type. It is given to call results, unannotated
// parameters and auto-declared receive targets, and is compatible with
// every other type.
type Any struct{}

func (*Any) String() string { return "any" }
func (*Any) IsType()        {}

// Unknown is the best-effort result of an expression that already produced
// an error. It is compatible with everything so one mistake is reported once.
type Unknown struct{}

func (*Unknown) String() string { return "unknown" }
func (*Unknown) IsType()        {}

var (
	TypeChannel = &Channel{}
	TypeAny     = &Any{}
	TypeUnknown = &Unknown{}
)

// FromAnnotation converts a parsed type annotation. A nil annotation is Any.
func FromAnnotation(t ast.TypeExpr) Type {
	switch n := t.(type) {
	case nil:
		return TypeAny
	case *ast.NamedType:
		switch PrimitiveKind(n.Name) {
		case Int:
			return TypeInt
		case Float:
			return TypeFloat
		case Bool:
			return TypeBool
		case String:
			return TypeString
		}
	case *ast.ListType:
		return &List{Elem: FromAnnotation(n.Elem)}
	}
	return TypeUnknown
}

// IsNumeric reports whether t is int or float.
func IsNumeric(t Type) bool {
	p, ok := t.(*Primitive)
	return ok && (p.Kind == Int || p.Kind == Float)
}

// IsWildcard reports whether t is Any or Unknown.
func IsWildcard(t Type) bool {
	switch t.(type) {
	case *Any, *Unknown:
		return true
	default:
		return false
	}
}

// Is reports whether t is the primitive of the given kind.
func Is(t Type, kind PrimitiveKind) bool {
	p, ok := t.(*Primitive)
	return ok && p.Kind == kind
}

// Equal reports structural equality.
func Equal(a, b Type) bool {
	switch x := a.(type) {
	case *Primitive:
		y, ok := b.(*Primitive)
		return ok && x.Kind == y.Kind
	case *List:
		y, ok := b.(*List)
		return ok && Equal(x.Elem, y.Elem)
	case *Channel:
		_, ok := b.(*Channel)
		return ok
	case *Any:
		_, ok := b.(*Any)
		return ok
	case *Unknown:
		_, ok := b.(*Unknown)
		return ok
	}
	return false
}

// AssignableTo reports whether a value of type value may be stored in a
// variable of type target. Wildcards match anything and int widens to float.
func AssignableTo(value, target Type) bool {
	if IsWildcard(value) || IsWildcard(target) {
		return true
	}
	if Is(value, Int) && Is(target, Float) {
		return true
	}
	if vl, ok := value.(*List); ok {
		if tl, ok := target.(*List); ok {
			return AssignableTo(vl.Elem, tl.Elem)
		}
	}
	return Equal(value, target)
}
