package pattern

import (
	"time"
)

// parseObservationOr parses OR-joined observation expressions. OR binds
// loosest of the three observation operators.
func (p *parser) parseObservationOr() (PatternExpression, error) {
	return p.parseObservationLevel(TokenOr, ObsOr, p.parseObservationAnd)
}

// parseObservationAnd parses AND-joined observation expressions.
func (p *parser) parseObservationAnd() (PatternExpression, error) {
	return p.parseObservationLevel(TokenAnd, ObsAnd, p.parseObservationFollowedBy)
}

// parseObservationFollowedBy parses FOLLOWEDBY-joined observation units.
func (p *parser) parseObservationFollowedBy() (PatternExpression, error) {
	return p.parseObservationLevel(TokenFollowedBy, ObsFollowedBy, p.parseObservationUnit)
}

// parseObservationLevel folds operands joined by tt into a left-leaning
// chain of CompositePattern nodes.
func (p *parser) parseObservationLevel(tt TokenType, op ObservationOp, next func() (PatternExpression, error)) (PatternExpression, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.check(tt) {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &CompositePattern{Left: left, Op: op, Right: right}
	}
	return left, nil
}

// parseObservationUnit parses one bracketed observation expression or a
// parenthesized group, followed by its qualifiers.
func (p *parser) parseObservationUnit() (PatternExpression, error) {
	var unit PatternExpression
	switch p.tok.Type {
	case TokenLBracket, TokenLParen:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.leave()
	}
	switch p.tok.Type {
	case TokenLBracket:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseComparisonOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRBracket, "closing the observation expression"); err != nil {
			return nil, err
		}
		unit = inner
	case TokenLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseObservationOr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenRParen, "closing the observation group"); err != nil {
			return nil, err
		}
		unit = inner
	case TokenNot:
		return nil, p.errorf("'[' or '('", "NOT is only allowed inside an observation expression")
	default:
		return nil, p.errorf("'[' or '('", "")
	}
	return p.parseQualifiers(unit)
}

// qualifierSet accumulates the qualifiers written after one unit.
type qualifierSet struct {
	seen   map[TokenType]bool
	repeat int
	within float64
	start  time.Time
	stop   time.Time
}

// parseQualifiers reads any combination of REPEATS, WITHIN and START/STOP,
// each at most once, and wraps unit in a single QualifiedPattern when at
// least one is present.
func (p *parser) parseQualifiers(unit PatternExpression) (PatternExpression, error) {
	q := qualifierSet{seen: make(map[TokenType]bool)}
	for {
		kw := p.tok
		switch kw.Type {
		case TokenRepeats, TokenWithin, TokenStart:
		default:
			if len(q.seen) == 0 {
				return unit, nil
			}
			return &QualifiedPattern{
				Pattern: unit,
				Repeat:  q.repeat,
				Within:  q.within,
				Start:   q.start,
				Stop:    q.stop,
			}, nil
		}

		if q.seen[kw.Type] {
			return nil, p.errorAt(kw, "qualifier or operator", "duplicate "+kw.Type.String()+" qualifier")
		}
		q.seen[kw.Type] = true
		if err := p.advance(); err != nil {
			return nil, err
		}

		var err error
		switch kw.Type {
		case TokenRepeats:
			err = p.parseRepeats(&q)
		case TokenWithin:
			err = p.parseWithin(&q)
		case TokenStart:
			err = p.parseStartStop(&q)
		}
		if err != nil {
			return nil, err
		}
	}
}

// parseRepeats parses "<int> TIMES" after REPEATS.
func (p *parser) parseRepeats(q *qualifierSet) error {
	if !p.check(TokenInt) {
		return p.errorf("positive integer", "REPEATS count")
	}
	n := int64(p.tok.Value.(IntConstant))
	if n <= 0 {
		return p.errorf("positive integer", "REPEATS count must be at least 1")
	}
	q.repeat = int(n)
	if err := p.advance(); err != nil {
		return err
	}
	_, err := p.expect(TokenTimes, "REPEATS <n> TIMES")
	return err
}

// parseWithin parses "<number> SECONDS" after WITHIN.
func (p *parser) parseWithin(q *qualifierSet) error {
	var seconds float64
	switch p.tok.Type {
	case TokenInt:
		seconds = float64(p.tok.Value.(IntConstant))
	case TokenFloat:
		seconds = float64(p.tok.Value.(FloatConstant))
	default:
		return p.errorf("positive number", "WITHIN duration")
	}
	if seconds <= 0 {
		return p.errorf("positive number", "WITHIN duration must be greater than zero")
	}
	q.within = seconds
	if err := p.advance(); err != nil {
		return err
	}
	_, err := p.expect(TokenSeconds, "WITHIN <n> SECONDS")
	return err
}

// parseStartStop parses "t'...' STOP t'...'" after START.
func (p *parser) parseStartStop(q *qualifierSet) error {
	startTok, err := p.expect(TokenTimestamp, "START takes a timestamp")
	if err != nil {
		return err
	}
	if _, err := p.expect(TokenStop, "START <timestamp> STOP <timestamp>"); err != nil {
		return err
	}
	stopTok := p.tok
	if _, err := p.expect(TokenTimestamp, "STOP takes a timestamp"); err != nil {
		return err
	}

	start := startTok.Value.(TimestampConstant).Time()
	stop := stopTok.Value.(TimestampConstant).Time()
	if !start.Before(stop) {
		return p.errorAt(stopTok, "timestamp after "+startTok.Text, "STOP must be later than START")
	}
	q.start, q.stop = start, stop
	return nil
}
