package syntax

// Node is any AST node.
type Node interface {
	Pos() int
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Module is a parsed source unit.
type Module struct {
	Name  string
	Stmts []Stmt
}

// ---------------------------------------------------------------------------
// Statements

type (
	// VarStmt declares a variable: var name = init.
	VarStmt struct {
		Init Expr
		Name string
		Line int
	}

	// ExprStmt evaluates an expression for its effect.
	ExprStmt struct {
		X    Expr
		Line int
	}

	// BlockStmt is a braced statement list with its own scope.
	BlockStmt struct {
		Stmts []Stmt
		Line  int
	}

	// IfStmt is if (cond) then else other.
	IfStmt struct {
		Cond Expr
		Then Stmt
		Else Stmt
		Line int
	}

	// WhileStmt is while (cond) body.
	WhileStmt struct {
		Cond Expr
		Body Stmt
		Line int
	}

	// ForStmt is for (name in seq) body.
	ForStmt struct {
		Seq  Expr
		Body Stmt
		Name string
		Line int
	}

	// BreakStmt exits the innermost loop.
	BreakStmt struct{ Line int }

	// ContinueStmt starts the next iteration of the innermost loop.
	ContinueStmt struct{ Line int }

	// ReturnStmt returns from the enclosing method. Value may be nil.
	ReturnStmt struct {
		Value Expr
		Line  int
	}

	// ImportStmt is import "module" for A, B.
	ImportStmt struct {
		Module string
		Names  []string
		Line   int
	}

	// ClassStmt declares a class.
	ClassStmt struct {
		Super   Expr
		Name    string
		Methods []*MethodDecl
		Foreign bool
		Line    int
	}
)

// MethodKind is the call shape of a method declaration.
type MethodKind uint8

const (
	MethodGetter MethodKind = iota
	MethodSetter
	MethodCall
	MethodSubscript
	MethodSubscriptSetter
	MethodPrefix
	MethodInfix
	MethodConstructor
)

// MethodDecl is one member of a class body.
type MethodDecl struct {
	// Body is the statement body, or nil for foreign methods and
	// single-expression bodies.
	Body *BlockStmt
	// ExprBody is set for single-line { expr } bodies.
	ExprBody Expr
	Name     string
	// Signature is the wire-format signature, for example "dot(_)".
	Signature string
	Params    []string
	Kind      MethodKind
	Static    bool
	Foreign   bool
	Line      int
}

func (s *VarStmt) Pos() int      { return s.Line }
func (s *ExprStmt) Pos() int     { return s.Line }
func (s *BlockStmt) Pos() int    { return s.Line }
func (s *IfStmt) Pos() int       { return s.Line }
func (s *WhileStmt) Pos() int    { return s.Line }
func (s *ForStmt) Pos() int      { return s.Line }
func (s *BreakStmt) Pos() int    { return s.Line }
func (s *ContinueStmt) Pos() int { return s.Line }
func (s *ReturnStmt) Pos() int   { return s.Line }
func (s *ImportStmt) Pos() int   { return s.Line }
func (s *ClassStmt) Pos() int    { return s.Line }
func (m *MethodDecl) Pos() int   { return m.Line }

func (*VarStmt) stmtNode()      {}
func (*ExprStmt) stmtNode()     {}
func (*BlockStmt) stmtNode()    {}
func (*IfStmt) stmtNode()       {}
func (*WhileStmt) stmtNode()    {}
func (*ForStmt) stmtNode()      {}
func (*BreakStmt) stmtNode()    {}
func (*ContinueStmt) stmtNode() {}
func (*ReturnStmt) stmtNode()   {}
func (*ImportStmt) stmtNode()   {}
func (*ClassStmt) stmtNode()    {}

// ---------------------------------------------------------------------------
// Expressions

type (
	// NumLit is a number literal.
	NumLit struct {
		Value float64
		Line  int
	}

	// StrLit is a string literal without interpolation.
	StrLit struct {
		Value string
		Line  int
	}

	// InterpExpr is an interpolated string. Parts has one more element than
	// Exprs; the result is Parts[0] Exprs[0] Parts[1] ... Parts[n].
	InterpExpr struct {
		Parts []string
		Exprs []Expr
		Line  int
	}

	// BoolLit is true or false.
	BoolLit struct {
		Value bool
		Line  int
	}

	// NullLit is null.
	NullLit struct{ Line int }

	// ThisExpr is this.
	ThisExpr struct{ Line int }

	// ListLit is [a, b, c].
	ListLit struct {
		Elems []Expr
		Line  int
	}

	// Ident is a bare name: a variable, or an implicit call on this.
	Ident struct {
		Name string
		Line int
	}

	// FieldExpr is an instance field (_x) or static field (__x).
	FieldExpr struct {
		Name   string
		Static bool
		Line   int
	}

	// CallExpr is a method call. Recv is nil for an implicit call on this.
	CallExpr struct {
		Recv      Expr
		Name      string
		Signature string
		Args      []Expr
		Kind      MethodKind
		Line      int
	}

	// SuperCall is super.name(args) or super(args).
	SuperCall struct {
		Name      string
		Signature string
		Args      []Expr
		Line      int
	}

	// UnaryExpr is a prefix operator call.
	UnaryExpr struct {
		X    Expr
		Op   string
		Line int
	}

	// BinaryExpr is an infix operator call.
	BinaryExpr struct {
		L    Expr
		R    Expr
		Op   string
		Line int
	}

	// IsExpr is x is Class.
	IsExpr struct {
		X     Expr
		Class Expr
		Line  int
	}

	// LogicalExpr is && or ||.
	LogicalExpr struct {
		L    Expr
		R    Expr
		And  bool
		Line int
	}

	// CondExpr is cond ? then : else.
	CondExpr struct {
		Cond Expr
		Then Expr
		Else Expr
		Line int
	}

	// AssignExpr assigns to a variable or field.
	AssignExpr struct {
		Target Expr
		Value  Expr
		Line   int
	}
)

func (e *NumLit) Pos() int      { return e.Line }
func (e *StrLit) Pos() int      { return e.Line }
func (e *InterpExpr) Pos() int  { return e.Line }
func (e *BoolLit) Pos() int     { return e.Line }
func (e *NullLit) Pos() int     { return e.Line }
func (e *ThisExpr) Pos() int    { return e.Line }
func (e *ListLit) Pos() int     { return e.Line }
func (e *Ident) Pos() int       { return e.Line }
func (e *FieldExpr) Pos() int   { return e.Line }
func (e *CallExpr) Pos() int    { return e.Line }
func (e *SuperCall) Pos() int   { return e.Line }
func (e *UnaryExpr) Pos() int   { return e.Line }
func (e *BinaryExpr) Pos() int  { return e.Line }
func (e *IsExpr) Pos() int      { return e.Line }
func (e *LogicalExpr) Pos() int { return e.Line }
func (e *CondExpr) Pos() int    { return e.Line }
func (e *AssignExpr) Pos() int  { return e.Line }

func (*NumLit) exprNode()      {}
func (*StrLit) exprNode()      {}
func (*InterpExpr) exprNode()  {}
func (*BoolLit) exprNode()     {}
func (*NullLit) exprNode()     {}
func (*ThisExpr) exprNode()    {}
func (*ListLit) exprNode()     {}
func (*Ident) exprNode()       {}
func (*FieldExpr) exprNode()   {}
func (*CallExpr) exprNode()    {}
func (*SuperCall) exprNode()   {}
func (*UnaryExpr) exprNode()   {}
func (*BinaryExpr) exprNode()  {}
func (*IsExpr) exprNode()      {}
func (*LogicalExpr) exprNode() {}
func (*CondExpr) exprNode()    {}
func (*AssignExpr) exprNode()  {}
