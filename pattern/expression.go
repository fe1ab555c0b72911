package pattern

// parseComparisonOr parses OR-joined comparison expressions inside brackets.
func (p *parser) parseComparisonOr() (ComparisonExpression, error) {
	left, err := p.parseComparisonAnd()
	if err != nil {
		return nil, err
	}
	for p.check(TokenOr) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparisonAnd()
		if err != nil {
			return nil, err
		}
		left = &CompositeComparison{Left: left, Op: BoolOr, Right: right}
	}
	return left, nil
}

// parseComparisonAnd parses AND-joined comparison expressions.
func (p *parser) parseComparisonAnd() (ComparisonExpression, error) {
	left, err := p.parseComparisonUnary()
	if err != nil {
		return nil, err
	}
	for p.check(TokenAnd) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseComparisonUnary()
		if err != nil {
			return nil, err
		}
		left = &CompositeComparison{Left: left, Op: BoolAnd, Right: right}
	}
	return left, nil
}

// parseComparisonUnary parses a parenthesized comparison expression or a
// single, possibly negated, comparison.
func (p *parser) parseComparisonUnary() (ComparisonExpression, error) {
	if p.check(TokenLParen) {
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseComparisonOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "closing a parenthesized comparison"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return p.parseComparison()
}

// parseComparison parses one of
//
//	[NOT] path [NOT] op operand
//	[NOT] path [NOT] EXISTS
//	[NOT] EXISTS path
func (p *parser) parseComparison() (*Comparison, error) {
	negated := false
	if p.check(TokenNot) {
		negated = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		switch p.tok.Type {
		case TokenLParen:
			return nil, p.errorf("object path", "NOT negates a single comparison, not a parenthesized group")
		case TokenNot:
			return nil, p.errorf("object path", "a comparison may be negated only once")
		}
	}

	if p.check(TokenExists) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		path, err := p.parseObjectPath()
		if err != nil {
			return nil, err
		}
		return &Comparison{Path: path, Op: OpExists, Negated: negated}, nil
	}

	path, err := p.parseObjectPath()
	if err != nil {
		return nil, err
	}

	if p.check(TokenNot) {
		if negated {
			return nil, p.errorf("comparison operator", "a comparison may be negated only once")
		}
		negated = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}

	if p.check(TokenExists) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &Comparison{Path: path, Op: OpExists, Negated: negated}, nil
	}

	op, ok := comparisonOps[p.tok.Type]
	if !ok {
		perr := p.errorf("comparison operator", "after object path "+path.String())
		if p.check(TokenIdent) {
			perr.Suggestion = suggestKeyword(p.tok.Text,
				TokenIn, TokenLike, TokenMatches, TokenIsSubset, TokenIsSuperset, TokenExists)
		}
		return nil, perr
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var operand Operand
	if op == OpIn {
		operand, err = p.parseConstantList()
	} else {
		if p.check(TokenLParen) {
			return nil, p.errorf("constant", "only IN takes a parenthesized list, "+op.String()+" takes a single value")
		}
		operand, err = p.parseConstant()
	}
	if err != nil {
		return nil, err
	}
	return &Comparison{Path: path, Op: op, Operand: operand, Negated: negated}, nil
}

// parseConstant consumes a single literal token.
func (p *parser) parseConstant() (Constant, error) {
	if !p.tok.isLiteral() {
		return nil, p.errorf("constant", "")
	}
	value := p.tok.Value
	return value, p.advance()
}

// parseConstantList parses "(c1, c2, ...)". The list must not be empty.
func (p *parser) parseConstantList() (ConstantList, error) {
	if _, err := p.expect(TokenLParen, "IN takes a parenthesized list of constants"); err != nil {
		return nil, err
	}
	if p.check(TokenRParen) {
		return nil, p.errorf("constant", "IN list must not be empty")
	}

	var list ConstantList
	for {
		c, err := p.parseConstant()
		if err != nil {
			return nil, err
		}
		list = append(list, c)
		more, err := p.accept(TokenComma)
		if err != nil {
			return nil, err
		}
		if !more {
			break
		}
	}
	if _, err := p.expect(TokenRParen, "closing the IN list"); err != nil {
		return nil, err
	}
	return list, nil
}

// parseObjectPath parses "type:prop(.prop|[index])*". Every index belongs
// to the property just before it, and each property takes at most one.
func (p *parser) parseObjectPath() (ObjectPath, error) {
	typeTok, err := p.expect(TokenIdent, "object type")
	if err != nil {
		return ObjectPath{}, err
	}
	if p.check(TokenLBracket) {
		return ObjectPath{}, p.errorf("':'", "the object type itself cannot be indexed")
	}
	if _, err := p.expect(TokenColon, "between object type and property"); err != nil {
		return ObjectPath{}, err
	}
	if p.check(TokenLBracket) {
		return ObjectPath{}, p.errorf("property name", "the object type itself cannot be indexed")
	}

	path := ObjectPath{ObjectType: typeTok.Text}
	first, err := p.parseProperty()
	if err != nil {
		return ObjectPath{}, err
	}
	path.PropertyPath = append(path.PropertyPath, PathComponent{Property: first})

	for {
		switch p.tok.Type {
		case TokenDot:
			if err := p.advance(); err != nil {
				return ObjectPath{}, err
			}
			prop, err := p.parseProperty()
			if err != nil {
				return ObjectPath{}, err
			}
			path.PropertyPath = append(path.PropertyPath, PathComponent{Property: prop})
		case TokenLBracket:
			last := &path.PropertyPath[len(path.PropertyPath)-1]
			if last.Index.IsSet() {
				return ObjectPath{}, p.errorf("'.' or comparison operator", "property "+last.Property+" is already indexed")
			}
			idx, err := p.parseIndex()
			if err != nil {
				return ObjectPath{}, err
			}
			last.Index = idx
		default:
			return path, nil
		}
	}
}

// parseProperty accepts an identifier, a quoted string, or a keyword
// spelling, since properties such as network-traffic:start share names
// with keywords.
func (p *parser) parseProperty() (string, error) {
	switch {
	case p.check(TokenString):
		name := string(p.tok.Value.(StringConstant))
		return name, p.advance()
	case p.check(TokenIdent), isWordToken(p.tok):
		name := p.tok.Text
		return name, p.advance()
	default:
		return "", p.errorf("property name", "")
	}
}

// parseIndex parses "[n]" or "[*]".
func (p *parser) parseIndex() (Index, error) {
	if err := p.advance(); err != nil {
		return Index{}, err
	}
	var idx Index
	switch p.tok.Type {
	case TokenStar:
		idx = WildcardIndex()
	case TokenInt:
		n := int64(p.tok.Value.(IntConstant))
		if n < 0 {
			return Index{}, p.errorf("non-negative list index", "")
		}
		idx = PositionIndex(int(n))
	default:
		return Index{}, p.errorf("list index or '*'", "")
	}
	if err := p.advance(); err != nil {
		return Index{}, err
	}
	if _, err := p.expect(TokenRBracket, "closing the list index"); err != nil {
		return Index{}, err
	}
	return idx, nil
}

// isWordToken reports whether tok is a keyword or boolean written as a bare
// word.
func isWordToken(tok Token) bool {
	if tok.Text == "" || !isIdentStart(tok.Text[0]) {
		return false
	}
	return isKeyword(tok.Text)
}
