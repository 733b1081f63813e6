package compiler

import (
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Parser: recursive descent parser for DECORATE
// ---------------------------------------------------------------------------

// Source is one definition text to compile.
type Source struct {
	Name string
	Text string
}

// bailout unwinds the parser to the nearest declaration after an error.
type bailout struct{}

// Parser parses DECORATE source into an AST. Errors go to the diagnostics
// sink; after an error the parser skips to the next top-level declaration.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	prevToken Token
	depth     int  // open braces
	lineBound bool // binary operators must stay on the current line
	diag      *Diagnostics
	name      string
}

// NewParser creates a parser for src.
func NewParser(src Source, diag *Diagnostics) *Parser {
	p := &Parser{
		lexer: NewLexer(src.Name, src.Text),
		diag:  diag,
		name:  src.Name,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// Parse parses a whole source.
func Parse(src Source, diag *Diagnostics) *SourceFile {
	return NewParser(src, diag).ParseSourceFile()
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	switch p.curToken.Type {
	case TokenLBrace:
		p.depth++
	case TokenRBrace:
		p.depth--
	}
	p.prevToken = p.curToken
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
	if p.peekToken.Type == TokenError {
		p.diag.Errorf(p.peekToken.Pos, "%s", p.peekToken.Literal)
		p.peekToken = p.lexer.NextToken()
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// curIsWord reports whether the current token is the identifier word,
// compared case-insensitively.
func (p *Parser) curIsWord(word string) bool {
	return p.curToken.Type == TokenIdentifier && strings.EqualFold(p.curToken.Literal, word)
}

// sameLine reports whether the current token starts on the line where the
// previous token ended.
func (p *Parser) sameLine() bool {
	return p.curToken.Type != TokenEOF && p.curToken.Pos.Line == p.prevToken.Pos.Line
}

// fail records an error at the current token and unwinds.
func (p *Parser) fail(format string, args ...any) {
	p.diag.Errorf(p.curToken.Pos, format, args...)
	panic(bailout{})
}

// expect consumes a token of type t or fails.
func (p *Parser) expect(t TokenType) Token {
	if !p.curTokenIs(t) {
		p.fail("Expected '%s' but got %s", t, p.curToken.Describe())
	}
	tok := p.curToken
	p.nextToken()
	return tok
}

// expectIdent consumes an identifier or fails.
func (p *Parser) expectIdent(what string) Token {
	if !p.curTokenIs(TokenIdentifier) {
		p.fail("Expected %s but got %s", what, p.curToken.Describe())
	}
	tok := p.curToken
	p.nextToken()
	return tok
}

// expectWord consumes the identifier word or fails.
func (p *Parser) expectWord(word string) {
	if !p.curIsWord(word) {
		p.fail("Expected '%s' but got %s", word, p.curToken.Describe())
	}
	p.nextToken()
}

// sync skips to the next top-level declaration.
func (p *Parser) sync() {
	for !p.curTokenIs(TokenEOF) {
		if p.depth <= 0 && (p.curIsWord("actor") || p.curIsWord("const")) {
			p.depth = 0
			return
		}
		p.nextToken()
	}
}

func (p *Parser) span(start Position) Span {
	return MakeSpan(start, p.prevToken.Pos)
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseSourceFile parses every declaration in the source.
func (p *Parser) ParseSourceFile() *SourceFile {
	file := &SourceFile{Name: p.name}
	start := p.curToken.Pos
	for !p.curTokenIs(TokenEOF) {
		if d := p.parseDecl(); d != nil {
			file.Decls = append(file.Decls, d)
		}
	}
	file.SpanVal = p.span(start)
	return file
}

func (p *Parser) parseDecl() (d Decl) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			d = nil
			p.lineBound = false
			p.nextToken()
			p.sync()
		}
	}()

	switch {
	case p.curIsWord("actor"):
		return p.parseActor()
	case p.curIsWord("const"):
		return p.parseConst()
	default:
		p.fail("Unexpected %s at top level", p.curToken.Describe())
	}
	return nil
}

// parseConst parses: const int|float NAME = expr ;
func (p *Parser) parseConst() *ConstDef {
	start := p.curToken.Pos
	p.expectWord("const")
	typTok := p.expectIdent("constant type")
	typ, ok := ParseValueType(typTok.Literal)
	if !ok || (typ != TypeInt && typ != TypeFloat) {
		p.diag.Errorf(typTok.Pos, "Constants must be int or float, not '%s'", typTok.Literal)
		typ = TypeInt
	}
	name := p.expectIdent("constant name")
	p.expect(TokenAssign)
	value := p.parseExpression()
	p.expect(TokenSemicolon)
	return &ConstDef{SpanVal: p.span(start), Type: typ, Name: name.Literal, Value: value}
}

// parseActor parses an actor header and body.
func (p *Parser) parseActor() *ActorDef {
	start := p.curToken.Pos
	p.expectWord("actor")
	def := &ActorDef{DoomEdNum: -1}
	def.Name = p.parseActorName()

	if p.curTokenIs(TokenColon) {
		p.nextToken()
		def.Parent = p.parseActorName()
	}
	if p.curIsWord("replaces") {
		p.nextToken()
		def.Replaces = p.parseActorName()
	}
	if p.curTokenIs(TokenInteger) {
		def.DoomEdNum = p.parseIntToken()
	}
	if p.curIsWord("native") {
		def.Native = true
		p.nextToken()
	}

	p.expect(TokenLBrace)
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			p.fail("Unexpected end of file in actor '%s'", def.Name)
		}
		if item := p.parseBodyItem(); item != nil {
			def.Body = append(def.Body, item)
		}
	}
	p.expect(TokenRBrace)
	def.SpanVal = p.span(start)
	return def
}

// parseActorName accepts identifiers and quoted names.
func (p *Parser) parseActorName() string {
	switch p.curToken.Type {
	case TokenIdentifier, TokenString, TokenName:
		name := p.curToken.Literal
		p.nextToken()
		return name
	}
	p.fail("Expected actor name but got %s", p.curToken.Describe())
	return ""
}

func (p *Parser) parseIntToken() int {
	tok := p.expect(TokenInteger)
	v, err := strconv.ParseInt(tok.Literal, 0, 64)
	if err != nil {
		p.diag.Errorf(tok.Pos, "Invalid integer '%s'", tok.Literal)
	}
	return int(v)
}

// parseDottedName parses ident { "." ident }.
func (p *Parser) parseDottedName(what string) string {
	parts := []string{p.expectIdent(what).Literal}
	for p.curTokenIs(TokenDot) && p.peekTokenIs(TokenIdentifier) {
		p.nextToken()
		parts = append(parts, p.curToken.Literal)
		p.nextToken()
	}
	return strings.Join(parts, ".")
}

// ---------------------------------------------------------------------------
// Actor body
// ---------------------------------------------------------------------------

func (p *Parser) parseBodyItem() BodyItem {
	start := p.curToken.Pos
	switch {
	case p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus):
		set := p.curTokenIs(TokenPlus)
		p.nextToken()
		name := p.parseDottedName("flag name")
		return &FlagItem{SpanVal: p.span(start), Name: name, Set: set}

	case p.curTokenIs(TokenSemicolon):
		p.nextToken()
		return nil

	case p.curIsWord("states") && p.peekTokenIs(TokenLBrace):
		return p.parseStates()

	case p.curIsWord("action"):
		return p.parseActionDecl()

	case p.curIsWord("const"):
		return p.parseConst()

	case p.curTokenIs(TokenIdentifier):
		return p.parseProperty()
	}
	p.fail("Unexpected %s in actor body", p.curToken.Describe())
	return nil
}

// parseProperty parses a property name followed by its arguments. The first
// argument must start on the property's line; later ones follow commas. An
// argument expression ends at a line break, so a flag on the next line is
// not taken for a binary operator.
func (p *Parser) parseProperty() *PropertyItem {
	start := p.curToken.Pos
	prop := &PropertyItem{Name: p.parseDottedName("property name")}

	if p.sameLine() && p.isArgStart() {
		p.lineBound = true
		prop.Args = append(prop.Args, p.parsePropertyArg())
		for p.curTokenIs(TokenComma) {
			p.nextToken()
			prop.Args = append(prop.Args, p.parsePropertyArg())
		}
		p.lineBound = false
	}
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
	prop.SpanVal = p.span(start)
	return prop
}

func (p *Parser) isArgStart() bool {
	switch p.curToken.Type {
	case TokenInteger, TokenFloat, TokenString, TokenName, TokenMinus, TokenLParen:
		return true
	case TokenIdentifier:
		// A new item on the same line is not legal, so any identifier here
		// is an argument.
		return true
	}
	return false
}

// parsePropertyArg parses one argument expression. A negated number is
// folded into its literal.
func (p *Parser) parsePropertyArg() Expr {
	x := p.parseExpression()
	u, ok := x.(*UnaryExpr)
	if !ok || u.Op != TokenMinus {
		return x
	}
	switch lit := u.X.(type) {
	case *IntLiteral:
		lit.Value = -lit.Value
		lit.SpanVal = u.SpanVal
		return lit
	case *FloatLiteral:
		lit.Value = -lit.Value
		lit.SpanVal = u.SpanVal
		return lit
	}
	return x
}

func (p *Parser) parseLiteral() Expr {
	tok := p.curToken
	span := MakeSpan(tok.Pos, tok.Pos)
	switch tok.Type {
	case TokenInteger:
		return &IntLiteral{SpanVal: span, Value: p.parseIntToken()}
	case TokenFloat:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.diag.Errorf(tok.Pos, "Invalid number '%s'", tok.Literal)
		}
		return &FloatLiteral{SpanVal: span, Value: v}
	case TokenString:
		p.nextToken()
		return &StringLiteral{SpanVal: span, Value: tok.Literal}
	case TokenName:
		p.nextToken()
		return &NameLiteral{SpanVal: span, Value: tok.Literal}
	}
	p.fail("Expected a value but got %s", tok.Describe())
	return nil
}

// parseActionDecl parses: action native NAME ( params ) ;
func (p *Parser) parseActionDecl() *ActionDecl {
	start := p.curToken.Pos
	p.expectWord("action")
	p.expectWord("native")
	decl := &ActionDecl{Name: p.expectIdent("action name").Literal}
	p.expect(TokenLParen)

	for !p.curTokenIs(TokenRParen) {
		if len(decl.Params) > 0 || decl.Variadic {
			p.expect(TokenComma)
		}
		if p.curTokenIs(TokenEllipsis) {
			p.nextToken()
			decl.Variadic = true
			break
		}
		if p.curIsWord("void") && p.peekTokenIs(TokenRParen) {
			p.nextToken()
			break
		}
		decl.Params = append(decl.Params, p.parseParamDecl())
	}
	p.expect(TokenRParen)
	p.expect(TokenSemicolon)
	decl.SpanVal = p.span(start)

	seenDefault := false
	for _, prm := range decl.Params {
		if prm.Default != nil {
			seenDefault = true
		} else if seenDefault {
			p.diag.Errorf(prm.SpanVal.Start, "Parameter '%s' of %s needs a default value", prm.Name, decl.Name)
		}
	}
	return decl
}

func (p *Parser) parseParamDecl() *ParamDecl {
	start := p.curToken.Pos
	if p.curIsWord("optional") {
		p.nextToken()
	}
	typTok := p.expectIdent("parameter type")
	typ, ok := ParseValueType(typTok.Literal)
	if !ok {
		p.diag.Errorf(typTok.Pos, "Unknown parameter type '%s'", typTok.Literal)
	}
	prm := &ParamDecl{Type: typ}
	if typ == TypeClass && p.curTokenIs(TokenLess) {
		p.nextToken()
		prm.ClassBase = p.expectIdent("class name").Literal
		p.expect(TokenGreater)
	}
	if p.curTokenIs(TokenIdentifier) {
		prm.Name = p.curToken.Literal
		p.nextToken()
	}
	if p.curTokenIs(TokenAssign) {
		p.nextToken()
		prm.Default = p.parseExpression()
	}
	prm.SpanVal = p.span(start)
	return prm
}

// ---------------------------------------------------------------------------
// States
// ---------------------------------------------------------------------------

func (p *Parser) parseStates() *StatesBlock {
	start := p.curToken.Pos
	p.expectWord("states")
	p.expect(TokenLBrace)
	block := &StatesBlock{}
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			p.fail("Unexpected end of file in states block")
		}
		if item := p.parseStateItem(); item != nil {
			block.Items = append(block.Items, item)
		}
	}
	p.expect(TokenRBrace)
	block.SpanVal = p.span(start)
	return block
}

func (p *Parser) parseStateItem() StateItem {
	start := p.curToken.Pos

	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		return nil
	}

	if p.curTokenIs(TokenIdentifier) {
		switch strings.ToLower(p.curToken.Literal) {
		case "goto":
			p.nextToken()
			return p.parseGoto(start)
		case "loop", "stop", "wait", "fail":
			kind := flowKeywords[strings.ToLower(p.curToken.Literal)]
			p.nextToken()
			return &StateFlow{SpanVal: p.span(start), Kind: kind}
		}

		// A label is a dotted name followed by a single colon.
		if p.peekTokenIs(TokenColon) || p.peekTokenIs(TokenDot) {
			name := p.parseDottedName("state label")
			if p.curTokenIs(TokenColon) {
				p.nextToken()
				return &StateLabel{SpanVal: p.span(start), Name: name}
			}
			p.fail("Expected ':' after state label '%s'", name)
		}
	}

	return p.parseFrames(start)
}

var flowKeywords = map[string]FlowKind{
	"loop": FlowLoop,
	"stop": FlowStop,
	"wait": FlowWait,
	"fail": FlowFail,
}

func (p *Parser) curIsFlowKeyword() bool {
	if p.curIsWord("goto") {
		return true
	}
	_, ok := flowKeywords[strings.ToLower(p.curToken.Literal)]
	return ok && p.curTokenIs(TokenIdentifier)
}

func (p *Parser) parseGoto(start Position) *StateFlow {
	label := p.parseDottedName("state label")
	if p.curTokenIs(TokenDoubleColon) {
		p.nextToken()
		label += "::" + p.parseDottedName("state label")
	}
	flow := &StateFlow{Kind: FlowGoto, Label: label}
	if p.curTokenIs(TokenPlus) {
		p.nextToken()
		flow.Offset = p.parseIntToken()
	}
	flow.SpanVal = p.span(start)
	return flow
}

// parseFrames parses: SPRITE FRAMES TICS {keyword} [ACTION [(args)]]
func (p *Parser) parseFrames(start Position) *StateFrames {
	sf := &StateFrames{}

	switch p.curToken.Type {
	case TokenIdentifier, TokenString:
		sf.Sprite = strings.ToUpper(p.curToken.Literal)
		p.nextToken()
	default:
		p.fail("Expected sprite name but got %s", p.curToken.Describe())
	}
	if len(sf.Sprite) != 4 {
		p.diag.Errorf(start, "Sprite names must be exactly 4 characters")
	}

	switch p.curToken.Type {
	case TokenIdentifier, TokenString:
		sf.Frames = strings.ToUpper(p.curToken.Literal)
		p.nextToken()
	default:
		p.fail("Expected frame letters but got %s", p.curToken.Describe())
	}
	for _, r := range sf.Frames {
		if (r < 'A' || r > 'Z') && r != '[' && r != '\\' && r != ']' && r != '#' {
			p.diag.Errorf(start, "Invalid frame character '%c'", r)
			break
		}
	}

	neg := false
	if p.curTokenIs(TokenMinus) {
		neg = true
		p.nextToken()
	}
	sf.Tics = p.parseIntToken()
	if neg {
		sf.Tics = -sf.Tics
	}

	// Frame keywords and the action must be on the same line as the tics.
	for p.sameLine() && p.curTokenIs(TokenIdentifier) {
		switch {
		case p.curIsWord("bright"):
			sf.Bright = true
			p.nextToken()
			continue
		case p.curIsWord("fast"):
			sf.Fast = true
			p.nextToken()
			continue
		case p.curIsWord("nodelay"), p.curIsWord("canraise"):
			p.nextToken()
			continue
		case (p.curIsWord("offset") || p.curIsWord("light")) && p.peekTokenIs(TokenLParen):
			// Rendering hints carry no compiled meaning.
			p.nextToken()
			p.nextToken()
			for !p.curTokenIs(TokenRParen) {
				if p.curTokenIs(TokenEOF) {
					p.fail("Unexpected end of file in frame modifier")
				}
				p.nextToken()
			}
			p.nextToken()
			continue
		}
		break
	}

	if p.sameLine() && p.curTokenIs(TokenIdentifier) && !p.curIsFlowKeyword() {
		sf.Action = p.parseActionCall()
	}
	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
	}
	sf.SpanVal = p.span(start)
	return sf
}

func (p *Parser) parseActionCall() *ActionCall {
	start := p.curToken.Pos
	call := &ActionCall{Name: p.expectIdent("action name").Literal}
	if p.curTokenIs(TokenLParen) {
		p.nextToken()
		for !p.curTokenIs(TokenRParen) {
			if len(call.Args) > 0 {
				p.expect(TokenComma)
			}
			call.Args = append(call.Args, p.parseExpression())
		}
		p.expect(TokenRParen)
	}
	call.SpanVal = p.span(start)
	return call
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpression()
}

func (p *Parser) parseExpression() Expr {
	return p.parseAdditive()
}

func (p *Parser) parseAdditive() Expr {
	start := p.curToken.Pos
	x := p.parseMultiplicative()
	for (p.curTokenIs(TokenPlus) || p.curTokenIs(TokenMinus)) && p.continuesExpr() {
		op := p.curToken.Type
		p.nextToken()
		y := p.parseMultiplicative()
		x = &BinaryExpr{SpanVal: p.span(start), Op: op, X: x, Y: y}
	}
	return x
}

func (p *Parser) parseMultiplicative() Expr {
	start := p.curToken.Pos
	x := p.parseUnary()
	for (p.curTokenIs(TokenStar) || p.curTokenIs(TokenSlash) || p.curTokenIs(TokenPercent)) && p.continuesExpr() {
		op := p.curToken.Type
		p.nextToken()
		y := p.parseUnary()
		x = &BinaryExpr{SpanVal: p.span(start), Op: op, X: x, Y: y}
	}
	return x
}

func (p *Parser) parseUnary() Expr {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenMinus:
		p.nextToken()
		x := p.parseUnary()
		return &UnaryExpr{SpanVal: p.span(start), Op: TokenMinus, X: x}
	case TokenPlus:
		p.nextToken()
		return p.parseUnary()
	}
	return p.parsePrimary()
}

// continuesExpr reports whether a binary operator at the current token
// extends the expression being parsed.
func (p *Parser) continuesExpr() bool {
	return !p.lineBound || p.sameLine()
}

func (p *Parser) parsePrimary() Expr {
	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenLParen:
		bound := p.lineBound
		p.lineBound = false
		p.nextToken()
		x := p.parseExpression()
		p.expect(TokenRParen)
		p.lineBound = bound
		return &ParenExpr{SpanVal: p.span(start), X: x}
	case TokenIdentifier:
		if p.curIsWord("random") && p.peekTokenIs(TokenLParen) {
			bound := p.lineBound
			p.lineBound = false
			p.nextToken()
			p.nextToken()
			lo := p.parseExpression()
			p.expect(TokenComma)
			hi := p.parseExpression()
			p.expect(TokenRParen)
			p.lineBound = bound
			return &RandomCall{SpanVal: p.span(start), Min: lo, Max: hi}
		}
		name := p.parseDottedName("identifier")
		return &Identifier{SpanVal: p.span(start), Name: name}
	}
	return p.parseLiteral()
}
