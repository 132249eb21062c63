package usbdev

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/caddyglow/glovebox/pkg/gloverr"
)

// Predicate evaluates a boolean expression over a BlockDevice's attributes
// (spec §4.8 query language).
type Predicate func(d BlockDevice) bool

// ParseQuery compiles a query-language expression into a Predicate via a
// recursive-descent parser over `and`/`or`/`not`/parens and comparison
// atoms (spec §4.8).
func ParseQuery(q string) (Predicate, error) {
	if strings.TrimSpace(q) == "" {
		return func(BlockDevice) bool { return true }, nil
	}
	p := &queryParser{tokens: tokenize(q), query: q}
	pred, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, queryError(q, fmt.Sprintf("unexpected trailing input at token %q", p.tokens[p.pos]))
	}
	return pred, nil
}

func queryError(q, reason string) error {
	return &gloverr.ValidationError{Op: "parse_query", Path: q, Reason: reason}
}

type queryParser struct {
	tokens []string
	pos    int
	query  string
}

func (p *queryParser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *queryParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *queryParser) parseOr() (Predicate, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "or") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(d BlockDevice) bool { return l(d) || r(d) }
	}
	return left, nil
}

func (p *queryParser) parseAnd() (Predicate, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for strings.EqualFold(p.peek(), "and") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(d BlockDevice) bool { return l(d) && r(d) }
	}
	return left, nil
}

func (p *queryParser) parseNot() (Predicate, error) {
	if strings.EqualFold(p.peek(), "not") {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return func(d BlockDevice) bool { return !inner(d) }, nil
	}
	return p.parseAtomOrGroup()
}

func (p *queryParser) parseAtomOrGroup() (Predicate, error) {
	if p.peek() == "(" {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, queryError(p.query, "missing closing paren")
		}
		p.next()
		return inner, nil
	}
	tok := p.next()
	if tok == "" {
		return nil, queryError(p.query, "unexpected end of query")
	}
	return parseAtom(tok, p.query)
}

var atomPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)(!=|~=|<=|>=|=|<|>)(.*)$`)

func parseAtom(tok, fullQuery string) (Predicate, error) {
	m := atomPattern.FindStringSubmatch(tok)
	if m == nil {
		return nil, queryError(fullQuery, fmt.Sprintf("invalid atom %q", tok))
	}
	key, op, value := m[1], m[2], m[3]
	if value != "" && strings.ContainsRune("=!<>~", rune(value[0])) {
		return nil, queryError(fullQuery, fmt.Sprintf("invalid atom %q", tok))
	}

	switch op {
	case "=":
		return func(d BlockDevice) bool {
			v, ok := attr(d, key)
			return ok && v == value
		}, nil
	case "!=":
		return func(d BlockDevice) bool {
			v, ok := attr(d, key)
			return !ok || v != value
		}, nil
	case "~=":
		re, err := regexp.Compile(value)
		if err != nil {
			return nil, queryError(fullQuery, fmt.Sprintf("invalid regex %q: %s", value, err))
		}
		return func(d BlockDevice) bool {
			v, ok := attr(d, key)
			return ok && re.MatchString(v)
		}, nil
	case "<", "<=", ">", ">=":
		want, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, queryError(fullQuery, fmt.Sprintf("comparison %q requires a numeric value", op))
		}
		return func(d BlockDevice) bool {
			v, ok := attr(d, key)
			if !ok {
				return false
			}
			got, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return false
			}
			switch op {
			case "<":
				return got < want
			case "<=":
				return got <= want
			case ">":
				return got > want
			default:
				return got >= want
			}
		}, nil
	default:
		return nil, queryError(fullQuery, fmt.Sprintf("unsupported operator %q", op))
	}
}

// attr resolves a query key against the fixed BlockDevice fields, falling
// back to Attrs for vendor-supplied keys; ok is false for an absent
// attribute (spec: "unknown keys are treated as absent").
func attr(d BlockDevice, key string) (string, bool) {
	switch key {
	case "vendor":
		return d.Vendor, d.Vendor != ""
	case "product":
		return d.Product, d.Product != ""
	case "serial":
		return d.Serial, d.Serial != ""
	case "size":
		return strconv.FormatInt(d.Size, 10), true
	case "removable":
		return strconv.FormatBool(d.Removable), true
	default:
		v, ok := d.Attrs[key]
		return v, ok
	}
}

// tokenize splits a query string into atoms, parens, and keywords, treating
// parens as standalone tokens and everything else as whitespace-delimited.
func tokenize(q string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range q {
		switch r {
		case '(', ')':
			flush()
			tokens = append(tokens, string(r))
		case ' ', '\t', '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
