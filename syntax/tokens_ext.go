// Copyright (c) 2016, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package syntax

// token is an internal alias of Token used by the lexer and the arithmetic
// parser, which predate the exported constant names below and were never
// updated to use them directly.
type token = Token

// Operator is a convenience alias so that every *Operator type below shares
// the same underlying representation as Token: each syntax node stores its
// operator using whichever of these named types best documents the node it
// belongs to, even though the lexer only ever produces a plain Token.
type (
	RedirOperator    = Token
	BinCmdOperator   = Token
	ParExpOperator   = Token
	CaseOperator     = Token
	BinTestOperator  = Token
	UnTestOperator   = Token
	GlobOperator     = Token
	ProcOperator     = Token
	BinAritOperator  = Token
	UnAritOperator   = Token

	// ParNamesOperator distinguishes the two forms of ${!prefix*} and
	// ${!prefix@}; zero means "not a names-by-prefix expansion".
	ParNamesOperator = Token
)

// Tokens with no constant in tokens.go. illegalTok through _LitWord are used
// only inside the lexer and parser; the rest are also exported below as
// BitNegation, TsUsrOwn, TsGrpOwn, NamesPrefix and NamesPrefixWords.
const (
	illegalTok Token = iota + 200
	_EOF
	_Newl
	_Lit
	_LitWord

	bitNegTok // ~

	tsUsrOwn // -O
	tsGrpOwn // -G

	namesPrefix      // ${!prefix*}
	namesPrefixWords // ${!prefix@}
)

// The lowercase names below are exactly the punctuation already declared in
// the const block in tokens.go; they just spell out, at the lexer's call
// sites, which rune sequence produced the token. Giving them their own names
// rather than rewriting the lexer to use the exported constants keeps the
// hand-rolled state machine (next, regToken, dqToken, paramToken,
// arithmToken, testUnaryOp, testBinaryOp) exactly as it was written.
const (
	sglQuote = SQUOTE
	dblQuote = DQUOTE
	bckQuote = BQUOTE

	dollSglQuote = DOLLSQ
	dollDblQuote = DOLLDQ
	dollBrace    = DOLLBR
	dollBrack    = DOLLBK
	dollParen    = DOLLPR
	dollDblParen = DOLLDP
	dollar       = DOLLAR

	leftParen     = LPAREN
	rightParen    = RPAREN
	dblLeftParen  = DLPAREN
	dblRightParen = DRPAREN
	leftBrace     = LBRACE
	rightBrace   = RBRACE
	leftBrack    = LBRACK
	rightBrack   = RBRACK

	semicolon    = SEMICOLON
	dblSemicolon = DSEMICOLON
	semiFall     = SEMIFALL
	dblSemiFall  = DSEMIFALL
	colon        = COLON

	colPlus   = CADD
	colMinus  = CSUB
	colQuest  = CQUEST
	colAssgn  = CASSIGN
	plus      = ADD
	minus     = SUB
	quest     = QUEST
	assgn     = ASSIGN
	perc      = REM
	dblPerc   = DREM
	hash      = HASH
	dblHash   = DHASH
	caret     = XOR
	dblCaret  = DXOR
	comma     = COMMA
	dblComma  = DCOMMA
	slash     = QUO
	dblSlash  = DQUO
	exclMark  = NOT

	and    = AND
	andAnd = LAND
	or     = OR
	orOr   = LOR

	andAssgn = ANDASSGN
	orAssgn  = ORASSGN
	xorAssgn = XORASSGN
	shlAssgn = SHLASSGN
	shrAssgn = SHRASSGN
	addAssgn = ADDASSGN
	subAssgn = SUBASSGN
	mulAssgn = MULASSGN
	quoAssgn = QUOASSGN
	remAssgn = REMASSGN

	pipeAll  = PIPEALL
	rdrInOut = RDRINOUT
	dplIn    = DPLIN
	dplOut   = DPLOUT
	clbOut   = CLBOUT
	dashHdoc = DHEREDOC
	wordHdoc = WHEREDOC
	cmdIn    = CMDIN
	cmdOut   = CMDOUT
	rdrAll   = RDRALL
	appAll   = APPALL
	rdrIn    = LSS
	rdrOut   = GTR
	hdoc     = SHL
	appOut   = SHR

	equal   = EQL
	nequal  = NEQ
	lequal  = LEQ
	gequal  = GEQ
	addAdd  = INC
	subSub  = DEC
	power   = POW
	star    = MUL

	globQuest = GQUEST
	globStar  = GMUL
	globMul   = GMUL
	globPlus  = GADD
	globAdd   = GADD
	globAt    = GAT
	globExcl  = GNOT
	globNot   = GNOT

	dblQuo = DQUO
	dblXor = DXOR

	tsExists  = TEXISTS
	tsRegFile = TREGFILE
	tsDirect  = TDIRECT
	tsCharSp  = TCHARSP
	tsBlckSp  = TBLCKSP
	tsNmPipe  = TNMPIPE
	tsSocket  = TSOCKET
	tsSmbLink = TSMBLINK
	tsGIDSet  = TSGIDSET
	tsUIDSet  = TSUIDSET
	tsRead    = TREAD
	tsWrite   = TWRITE
	tsExec    = TEXEC
	tsNoEmpty = TNOEMPTY
	tsFdTerm  = TFDTERM
	tsEmpStr  = TEMPSTR
	tsNempStr = TNEMPSTR
	tsOptSet  = TOPTSET
	tsVarSet  = TVARSET
	tsRefVar  = TNRFVAR

	tsReMatch = TREMATCH
	tsNewer   = TNEWER
	tsOlder   = TOLDER
	tsDevIno  = TDEVIND
	tsEql     = TEQL
	tsNeq     = TNEQ
	tsLeq     = TLEQ
	tsGeq     = TGEQ
	tsLss     = TLSS
	tsGtr     = TGTR
)

// Exported, semantically-named constants used by the expand and interp
// packages. Most of these simply give a domain-appropriate name to a token
// already declared in tokens.go: the same rune sequence means "binary plus"
// in an arithmetic expression, "append this redirect" in a Redirect, or
// "keep the parameter if set" in a ParamExp, and each package calls it by
// the name that reads naturally in its own switch statements.
const (
	// Arithmetic unary operators.
	Not         = NOT
	BitNegation = bitNegTok
	Plus        = ADD
	Minus       = SUB
	Inc         = INC
	Dec         = DEC

	// Arithmetic binary operators.
	Add = ADD
	Sub = SUB
	Mul = MUL
	Quo = QUO
	Rem = REM
	Pow = POW
	Eql = EQL
	Neq = NEQ
	Leq = LEQ
	Geq = GEQ
	Lss = LSS
	Gtr = GTR
	And = AND
	Or  = OR
	Xor = XOR
	Shr = SHR
	Shl = SHL

	AndArit = LAND
	OrArit  = LOR
	Comma   = COMMA

	// A second naming convention for the same two logical operators, used
	// by the pretty-printer's binary arithmetic operator table.
	AndExpr = LAND
	OrExpr  = LOR

	// Bare names for ? and : as they appear outside of a parameter
	// expansion's ${...?...} or ${...:...} forms, e.g. in a ternary
	// arithmetic expression.
	Quest = QUEST
	Colon = COLON

	TernQuest = QUEST
	TernColon = COLON

	// Arithmetic and parameter assignment operators.
	Assgn    = ASSIGN
	AddAssgn = ADDASSGN
	SubAssgn = SUBASSGN
	MulAssgn = MULASSGN
	QuoAssgn = QUOASSGN
	RemAssgn = REMASSGN
	AndAssgn = ANDASSGN
	OrAssgn  = ORASSGN
	XorAssgn = XORASSGN
	ShlAssgn = SHLASSGN
	ShrAssgn = SHRASSGN

	// Parameter expansion operators (ParExpOperator).
	SubstPlus      = ADD
	SubstColPlus   = CADD
	SubstMinus     = SUB
	SubstColMinus  = CSUB
	SubstQuest     = QUEST
	SubstColQuest  = CQUEST
	SubstAssgn     = ASSIGN
	SubstColAssgn  = CASSIGN

	RemSmallPrefix = HASH
	RemLargePrefix = DHASH
	RemSmallSuffix = REM
	RemLargeSuffix = DREM

	UpperFirst = XOR
	UpperAll   = DXOR
	LowerFirst = COMMA
	LowerAll   = DCOMMA

	// OtherParamOps covers the ${var@Q}-style operators, which are
	// distinguished by the argument word rather than by a separate token.
	OtherParamOps = GAT

	// A second naming convention for the same four substitution operators,
	// used by the pretty-printer instead of the Plus/Minus-suffixed names
	// above.
	SubstAdd    = ADD
	SubstColAdd = CADD
	SubstSub    = SUB
	SubstColSub = CSUB

	// Redirect operators (RedirOperator).
	RdrIn    = LSS
	RdrOut   = GTR
	Hdoc     = SHL
	AppOut   = SHR
	RdrAll   = RDRALL
	AppAll   = APPALL
	DplIn    = DPLIN
	DplOut   = DPLOUT
	ClbOut   = CLBOUT
	RdrInOut = RDRINOUT
	DashHdoc = DHEREDOC
	WordHdoc = WHEREDOC

	// Process substitution operators (ProcOperator).
	CmdIn  = CMDIN
	CmdOut = CMDOUT

	// Binary command operators (BinCmdOperator).
	AndStmt = LAND
	OrStmt  = LOR
	Pipe    = OR
	PipeAll = PIPEALL

	// Case clause terminators (CaseOperator).
	DblSemicolon = DSEMICOLON
	SemiFall     = SEMIFALL
	DblSemiFall  = DSEMIFALL

	// Extended glob operators (GlobOperator).
	GlobZeroOrOne  = GQUEST
	GlobZeroOrMore = GMUL
	GlobOneOrMore  = GADD
	GlobOne        = GAT
	GlobExcept     = GNOT

	// Unary test operators (UnTestOperator).
	TsUsrOwn  = tsUsrOwn
	TsGrpOwn  = tsGrpOwn
	TsNot     = NOT
	TsExists  = TEXISTS
	TsRegFile = TREGFILE
	TsDirect  = TDIRECT
	TsCharSp  = TCHARSP
	TsBlckSp  = TBLCKSP
	TsNmPipe  = TNMPIPE
	TsSocket  = TSOCKET
	TsSmbLink = TSMBLINK
	TsGIDSet  = TSGIDSET
	TsUIDSet  = TSUIDSET
	TsRead    = TREAD
	TsWrite   = TWRITE
	TsExec    = TEXEC
	TsNoEmpty = TNOEMPTY
	TsFdTerm  = TFDTERM
	TsEmpStr  = TEMPSTR
	TsNempStr = TNEMPSTR
	TsOptSet  = TOPTSET
	TsVarSet  = TVARSET
	TsRefVar  = TNRFVAR

	// Binary test operators (BinTestOperator).
	AndTest  = LAND
	OrTest   = LOR
	TsAssgn  = ASSIGN
	TsEqual  = EQL
	TsNequal = NEQ
	TsReMatch = TREMATCH
	TsNewer   = TNEWER
	TsOlder   = TOLDER
	TsDevIno  = TDEVIND
	TsEql     = TEQL
	TsNeq     = TNEQ
	TsLeq     = TLEQ
	TsGeq     = TGEQ
	TsLss     = TLSS
	TsGtr     = TGTR
	TsBefore = LSS
	TsAfter  = GTR

	// Bare TitleCase alias for HASH, used by parser.go's length-expansion
	// parsing (${#name}).
	Hash = HASH

	// Names-by-prefix expansion forms (ParNamesOperator).
	NamesPrefix      = namesPrefix
	NamesPrefixWords = namesPrefixWords
)

func init() {
	tokNames[bitNegTok] = "~"
	tokNames[tsUsrOwn] = "-O"
	tokNames[tsGrpOwn] = "-G"
	tokNames[namesPrefix] = "${!prefix*}"
	tokNames[namesPrefixWords] = "${!prefix@}"
}
