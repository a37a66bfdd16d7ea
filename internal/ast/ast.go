package ast

import "github.com/AnriaW/minipar/internal/lexer"

// Node represents any AST node with an associated source span.
type Node interface {
	Span() lexer.Span
}

// Expr represents an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt represents a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// TypeExpr represents a type annotation.
type TypeExpr interface {
	Node
	typeNode()
	String() string
}

// Program is the root of a parsed source file. Body is a *SeqBlock or *ParBlock.
type Program struct {
	Body Stmt
	span lexer.Span
}

// Span returns the span covering the entire program.
func (p *Program) Span() lexer.Span { return p.span }

// NewProgram constructs a program node.
func NewProgram(body Stmt, span lexer.Span) *Program {
	return &Program{Body: body, span: span}
}

// SeqBlock runs its statements one after another.
type SeqBlock struct {
	Stmts []Stmt
	span  lexer.Span
}

func (b *SeqBlock) Span() lexer.Span { return b.span }
func (*SeqBlock) stmtNode()          {}

// NewSeqBlock constructs a sequential block.
func NewSeqBlock(stmts []Stmt, span lexer.Span) *SeqBlock {
	return &SeqBlock{Stmts: stmts, span: span}
}

// ParBlock runs each of its statements concurrently and joins them.
type ParBlock struct {
	Stmts []Stmt
	span  lexer.Span
}

func (b *ParBlock) Span() lexer.Span { return b.span }
func (*ParBlock) stmtNode()          {}

// NewParBlock constructs a parallel block.
func NewParBlock(stmts []Stmt, span lexer.Span) *ParBlock {
	return &ParBlock{Stmts: stmts, span: span}
}

// Block is a brace-delimited statement list owned by if, while, for and def.
// Its statements run sequentially in a fresh scope.
type Block struct {
	Stmts []Stmt
	span  lexer.Span
}

func (b *Block) Span() lexer.Span { return b.span }
func (*Block) stmtNode()          {}

// NewBlock constructs a nested block.
func NewBlock(stmts []Stmt, span lexer.Span) *Block {
	return &Block{Stmts: stmts, span: span}
}

// VarDecl declares a typed variable with an optional initializer.
type VarDecl struct {
	Type  TypeExpr
	Name  *Ident
	Value Expr // nil when no initializer is given
	span  lexer.Span
}

func (s *VarDecl) Span() lexer.Span { return s.span }
func (*VarDecl) stmtNode()          {}

// NewVarDecl constructs a variable declaration.
func NewVarDecl(typ TypeExpr, name *Ident, value Expr, span lexer.Span) *VarDecl {
	return &VarDecl{Type: typ, Name: name, Value: value, span: span}
}

// ChannelRole selects how a declared channel obtains its connection.
type ChannelRole int

const (
	// RoleLocal is the descriptive form: two named endpoints, no socket.
	RoleLocal ChannelRole = iota
	RoleServer
	RoleClient
)

func (r ChannelRole) String() string {
	switch r {
	case RoleServer:
		return "server"
	case RoleClient:
		return "client"
	default:
		return "local"
	}
}

// ParseChannelRole maps the role word used in source to a ChannelRole.
func ParseChannelRole(word string) (ChannelRole, bool) {
	switch word {
	case "server":
		return RoleServer, true
	case "client":
		return RoleClient, true
	default:
		return RoleLocal, false
	}
}

// ChannelDecl declares a named channel.
//
// Role-bound form: `c_channel name = server "host" port;` sets Role, Host and Port.
// Descriptive form: `c_channel name a b;` sets Role to RoleLocal and Endpoints.
type ChannelDecl struct {
	Name      *Ident
	Role      ChannelRole
	Host      string
	Port      int
	Endpoints []*Ident
	span      lexer.Span
}

func (s *ChannelDecl) Span() lexer.Span { return s.span }
func (*ChannelDecl) stmtNode()          {}

// NewChannelDecl constructs a role-bound channel declaration.
func NewChannelDecl(name *Ident, role ChannelRole, host string, port int, span lexer.Span) *ChannelDecl {
	return &ChannelDecl{Name: name, Role: role, Host: host, Port: port, span: span}
}

// NewLocalChannelDecl constructs a descriptive channel declaration.
func NewLocalChannelDecl(name *Ident, endpoints []*Ident, span lexer.Span) *ChannelDecl {
	return &ChannelDecl{Name: name, Role: RoleLocal, Endpoints: endpoints, span: span}
}

// AssignStmt updates an existing variable.
type AssignStmt struct {
	Name  *Ident
	Value Expr
	span  lexer.Span
}

func (s *AssignStmt) Span() lexer.Span { return s.span }
func (*AssignStmt) stmtNode()          {}

// NewAssignStmt constructs an assignment.
func NewAssignStmt(name *Ident, value Expr, span lexer.Span) *AssignStmt {
	return &AssignStmt{Name: name, Value: value, span: span}
}

// SendStmt is `chan.send: args;`.
type SendStmt struct {
	Channel *Ident
	Args    []Expr
	span    lexer.Span
}

func (s *SendStmt) Span() lexer.Span { return s.span }
func (*SendStmt) stmtNode()          {}

// NewSendStmt constructs a send statement.
func NewSendStmt(channel *Ident, args []Expr, span lexer.Span) *SendStmt {
	return &SendStmt{Channel: channel, Args: args, span: span}
}

// ReceiveStmt is `chan.receive: targets;`. Targets must be identifiers; the
// semantic analyzer reports anything else.
type ReceiveStmt struct {
	Channel *Ident
	Targets []Expr
	span    lexer.Span
}

func (s *ReceiveStmt) Span() lexer.Span { return s.span }
func (*ReceiveStmt) stmtNode()          {}

// NewReceiveStmt constructs a receive statement.
func NewReceiveStmt(channel *Ident, targets []Expr, span lexer.Span) *ReceiveStmt {
	return &ReceiveStmt{Channel: channel, Targets: targets, span: span}
}

// IfStmt is a conditional. Else is nil, a *Block, or a nested *IfStmt.
type IfStmt struct {
	Cond Expr
	Then *Block
	Else Stmt
	span lexer.Span
}

func (s *IfStmt) Span() lexer.Span { return s.span }
func (*IfStmt) stmtNode()          {}

// NewIfStmt constructs a conditional.
func NewIfStmt(cond Expr, then *Block, els Stmt, span lexer.Span) *IfStmt {
	return &IfStmt{Cond: cond, Then: then, Else: els, span: span}
}

// WhileStmt repeats Body while Cond holds.
type WhileStmt struct {
	Cond Expr
	Body *Block
	span lexer.Span
}

func (s *WhileStmt) Span() lexer.Span { return s.span }
func (*WhileStmt) stmtNode()          {}

// NewWhileStmt constructs a while loop.
func NewWhileStmt(cond Expr, body *Block, span lexer.Span) *WhileStmt {
	return &WhileStmt{Cond: cond, Body: body, span: span}
}

// ForStmt is `for (v in iter) { ... }`.
type ForStmt struct {
	Var  *Ident
	Iter Expr
	Body *Block
	span lexer.Span
}

func (s *ForStmt) Span() lexer.Span { return s.span }
func (*ForStmt) stmtNode()          {}

// NewForStmt constructs a for-in loop.
func NewForStmt(v *Ident, iter Expr, body *Block, span lexer.Span) *ForStmt {
	return &ForStmt{Var: v, Iter: iter, Body: body, span: span}
}

// Param is a function parameter; Type is nil when unannotated.
type Param struct {
	Type TypeExpr
	Name *Ident
	span lexer.Span
}

func (p *Param) Span() lexer.Span { return p.span }

// NewParam constructs a parameter.
func NewParam(typ TypeExpr, name *Ident, span lexer.Span) *Param {
	return &Param{Type: typ, Name: name, span: span}
}

// FuncDef is `def name(params) { body }`.
type FuncDef struct {
	Name   *Ident
	Params []*Param
	Body   *Block
	span   lexer.Span
}

func (s *FuncDef) Span() lexer.Span { return s.span }
func (*FuncDef) stmtNode()          {}

// NewFuncDef constructs a function definition.
func NewFuncDef(name *Ident, params []*Param, body *Block, span lexer.Span) *FuncDef {
	return &FuncDef{Name: name, Params: params, Body: body, span: span}
}

// ReturnStmt returns from a function; Value may be nil.
type ReturnStmt struct {
	Value Expr
	span  lexer.Span
}

func (s *ReturnStmt) Span() lexer.Span { return s.span }
func (*ReturnStmt) stmtNode()          {}

// NewReturnStmt constructs a return statement.
func NewReturnStmt(value Expr, span lexer.Span) *ReturnStmt {
	return &ReturnStmt{Value: value, span: span}
}

// OutputStmt writes its arguments joined by a single space.
type OutputStmt struct {
	Args []Expr
	span lexer.Span
}

func (s *OutputStmt) Span() lexer.Span { return s.span }
func (*OutputStmt) stmtNode()          {}

// NewOutputStmt constructs an output statement.
func NewOutputStmt(args []Expr, span lexer.Span) *OutputStmt {
	return &OutputStmt{Args: args, span: span}
}

// InputStmt is `input name;`: read one line into name.
type InputStmt struct {
	Target *Ident
	span   lexer.Span
}

func (s *InputStmt) Span() lexer.Span { return s.span }
func (*InputStmt) stmtNode()          {}

// NewInputStmt constructs an input statement.
func NewInputStmt(target *Ident, span lexer.Span) *InputStmt {
	return &InputStmt{Target: target, span: span}
}

// ExprStmt evaluates an expression for effect (calls and input(...)).
type ExprStmt struct {
	Expr Expr
	span lexer.Span
}

func (s *ExprStmt) Span() lexer.Span { return s.span }
func (*ExprStmt) stmtNode()          {}

// NewExprStmt constructs an expression statement.
func NewExprStmt(expr Expr, span lexer.Span) *ExprStmt {
	return &ExprStmt{Expr: expr, span: span}
}

// Ident represents an identifier.
type Ident struct {
	Name string
	span lexer.Span
}

// Span returns the identifier span.
func (i *Ident) Span() lexer.Span { return i.span }

func (*Ident) exprNode() {}

// NewIdent constructs an identifier node.
func NewIdent(name string, span lexer.Span) *Ident {
	return &Ident{Name: name, span: span}
}

// IntLit is an integer literal.
type IntLit struct {
	Value int64
	Text  string
	span  lexer.Span
}

func (l *IntLit) Span() lexer.Span { return l.span }
func (*IntLit) exprNode()          {}

// NewIntLit constructs an integer literal node.
func NewIntLit(value int64, text string, span lexer.Span) *IntLit {
	return &IntLit{Value: value, Text: text, span: span}
}

// FloatLit is a floating-point literal.
type FloatLit struct {
	Value float64
	Text  string
	span  lexer.Span
}

func (l *FloatLit) Span() lexer.Span { return l.span }
func (*FloatLit) exprNode()          {}

// NewFloatLit constructs a float literal node.
func NewFloatLit(value float64, text string, span lexer.Span) *FloatLit {
	return &FloatLit{Value: value, Text: text, span: span}
}

// StringLit is a string literal with escapes already decoded.
type StringLit struct {
	Value string
	span  lexer.Span
}

func (l *StringLit) Span() lexer.Span { return l.span }
func (*StringLit) exprNode()          {}

// NewStringLit constructs a string literal node.
func NewStringLit(value string, span lexer.Span) *StringLit {
	return &StringLit{Value: value, span: span}
}

// BoolLit is true or false.
type BoolLit struct {
	Value bool
	span  lexer.Span
}

func (l *BoolLit) Span() lexer.Span { return l.span }
func (*BoolLit) exprNode()          {}

// NewBoolLit constructs a boolean literal node.
func NewBoolLit(value bool, span lexer.Span) *BoolLit {
	return &BoolLit{Value: value, span: span}
}

// ListLit is `[a, b, ...]`.
type ListLit struct {
	Elems []Expr
	span  lexer.Span
}

func (l *ListLit) Span() lexer.Span { return l.span }
func (*ListLit) exprNode()          {}

// NewListLit constructs a list literal node.
func NewListLit(elems []Expr, span lexer.Span) *ListLit {
	return &ListLit{Elems: elems, span: span}
}

// BinaryExpr covers arithmetic, comparison and logical operators.
type BinaryExpr struct {
	Op    lexer.TokenType
	Left  Expr
	Right Expr
	span  lexer.Span
}

func (e *BinaryExpr) Span() lexer.Span { return e.span }
func (*BinaryExpr) exprNode()          {}

// NewBinaryExpr constructs a binary expression.
func NewBinaryExpr(op lexer.TokenType, left, right Expr, span lexer.Span) *BinaryExpr {
	return &BinaryExpr{Op: op, Left: left, Right: right, span: span}
}

// UnaryExpr is `not x` or `-x`.
type UnaryExpr struct {
	Op      lexer.TokenType
	Operand Expr
	span    lexer.Span
}

func (e *UnaryExpr) Span() lexer.Span { return e.span }
func (*UnaryExpr) exprNode()          {}

// NewUnaryExpr constructs a unary expression.
func NewUnaryExpr(op lexer.TokenType, operand Expr, span lexer.Span) *UnaryExpr {
	return &UnaryExpr{Op: op, Operand: operand, span: span}
}

// CallExpr calls a named function.
type CallExpr struct {
	Callee *Ident
	Args   []Expr
	span   lexer.Span
}

func (e *CallExpr) Span() lexer.Span { return e.span }
func (*CallExpr) exprNode()          {}

// NewCallExpr constructs a call expression.
func NewCallExpr(callee *Ident, args []Expr, span lexer.Span) *CallExpr {
	return &CallExpr{Callee: callee, Args: args, span: span}
}

// InputExpr is `input(prompt...)`; it yields the line read as a string.
type InputExpr struct {
	Args []Expr
	span lexer.Span
}

func (e *InputExpr) Span() lexer.Span { return e.span }
func (*InputExpr) exprNode()          {}

// NewInputExpr constructs an input expression.
func NewInputExpr(args []Expr, span lexer.Span) *InputExpr {
	return &InputExpr{Args: args, span: span}
}

// NamedType is one of the scalar type names, normalized to lower case.
type NamedType struct {
	Name string
	span lexer.Span
}

func (t *NamedType) Span() lexer.Span { return t.span }
func (*NamedType) typeNode()          {}
func (t *NamedType) String() string   { return t.Name }

// NewNamedType constructs a named type.
func NewNamedType(name string, span lexer.Span) *NamedType {
	return &NamedType{Name: name, span: span}
}

// ListType is `List<T>`.
type ListType struct {
	Elem TypeExpr
	span lexer.Span
}

func (t *ListType) Span() lexer.Span { return t.span }
func (*ListType) typeNode()          {}
func (t *ListType) String() string   { return "List<" + t.Elem.String() + ">" }

// NewListType constructs a list type.
func NewListType(elem TypeExpr, span lexer.Span) *ListType {
	return &ListType{Elem: elem, span: span}
}
