package ast

// StmtVisitor has one method per statement kind. Implementations get a
// compile error when a statement kind is added here and not handled there.
// VisitOther is the fallback for statements without a dedicated method.
type StmtVisitor[R any] interface {
	VisitSeqBlock(*SeqBlock) R
	VisitParBlock(*ParBlock) R
	VisitBlock(*Block) R
	VisitVarDecl(*VarDecl) R
	VisitChannelDecl(*ChannelDecl) R
	VisitAssign(*AssignStmt) R
	VisitSend(*SendStmt) R
	VisitReceive(*ReceiveStmt) R
	VisitIf(*IfStmt) R
	VisitWhile(*WhileStmt) R
	VisitFor(*ForStmt) R
	VisitFuncDef(*FuncDef) R
	VisitReturn(*ReturnStmt) R
	VisitOutput(*OutputStmt) R
	VisitInput(*InputStmt) R
	VisitExprStmt(*ExprStmt) R
	VisitOther(Stmt) R
}

// VisitStmt dispatches s to the matching method of v.
func VisitStmt[R any](s Stmt, v StmtVisitor[R]) R {
	switch n := s.(type) {
	case *SeqBlock:
		return v.VisitSeqBlock(n)
	case *ParBlock:
		return v.VisitParBlock(n)
	case *Block:
		return v.VisitBlock(n)
	case *VarDecl:
		return v.VisitVarDecl(n)
	case *ChannelDecl:
		return v.VisitChannelDecl(n)
	case *AssignStmt:
		return v.VisitAssign(n)
	case *SendStmt:
		return v.VisitSend(n)
	case *ReceiveStmt:
		return v.VisitReceive(n)
	case *IfStmt:
		return v.VisitIf(n)
	case *WhileStmt:
		return v.VisitWhile(n)
	case *ForStmt:
		return v.VisitFor(n)
	case *FuncDef:
		return v.VisitFuncDef(n)
	case *ReturnStmt:
		return v.VisitReturn(n)
	case *OutputStmt:
		return v.VisitOutput(n)
	case *InputStmt:
		return v.VisitInput(n)
	case *ExprStmt:
		return v.VisitExprStmt(n)
	default:
		return v.VisitOther(s)
	}
}

// KindOf returns a short lower-case name for a statement, used in logs and
// metric labels.
func KindOf(s Stmt) string {
	switch s.(type) {
	case *SeqBlock:
		return "seq"
	case *ParBlock:
		return "par"
	case *Block:
		return "block"
	case *VarDecl:
		return "var_decl"
	case *ChannelDecl:
		return "channel_decl"
	case *AssignStmt:
		return "assign"
	case *SendStmt:
		return "send"
	case *ReceiveStmt:
		return "receive"
	case *IfStmt:
		return "if"
	case *WhileStmt:
		return "while"
	case *ForStmt:
		return "for"
	case *FuncDef:
		return "def"
	case *ReturnStmt:
		return "return"
	case *OutputStmt:
		return "output"
	case *InputStmt:
		return "input"
	case *ExprStmt:
		return "expr"
	default:
		return "other"
	}
}
