package layout

import (
	"fmt"
	"strconv"
	"strings"
)

// pathToken is either a mapping key or a sequence index, mirroring the
// dotted/bracketed notation from spec §4.3 ("layers[0]",
// "config_parameters[0].paramName", "variables.MOD").
type pathToken struct {
	key     string
	index   int
	isIndex bool
}

func (t pathToken) String() string {
	if t.isIndex {
		return fmt.Sprintf("[%d]", t.index)
	}
	return t.key
}

// parsePath splits a dotted/bracketed path into tokens.
func parsePath(path string) ([]pathToken, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty path")
	}
	var tokens []pathToken
	for _, segment := range strings.Split(path, ".") {
		if segment == "" {
			return nil, fmt.Errorf("path %q has an empty segment", path)
		}
		name := segment
		for {
			open := strings.IndexByte(name, '[')
			if open < 0 {
				if name != "" {
					tokens = append(tokens, pathToken{key: name})
				}
				break
			}
			if open > 0 {
				tokens = append(tokens, pathToken{key: name[:open]})
			}
			closeIdx := strings.IndexByte(name[open:], ']')
			if closeIdx < 0 {
				return nil, fmt.Errorf("path %q has an unterminated '['", path)
			}
			idxStr := name[open+1 : open+closeIdx]
			idx, err := strconv.Atoi(idxStr)
			if err != nil {
				return nil, fmt.Errorf("path %q has a non-numeric index %q", path, idxStr)
			}
			tokens = append(tokens, pathToken{index: idx, isIndex: true})
			name = name[open+closeIdx+1:]
		}
	}
	return tokens, nil
}

// mutation describes what to do with the value currently addressed by a
// path: replace it, or delete it (for sequences, delete shrinks the slice;
// for mappings, it removes the key).
type mutation struct {
	remove bool
	value  any
}

// applyPath walks node along tokens and applies fn to the addressed value,
// returning the (possibly new) node with the mutation applied. Because Go
// slices can't be resized through an interface{} held by a caller, mutation
// is expressed as "return the replacement for this level", rebuilt bottom-up
// through the recursion rather than mutated through stored pointers.
func applyPath(node any, tokens []pathToken, fn func(existing any, found bool) (mutation, error)) (any, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty path")
	}
	tok := tokens[0]
	rest := tokens[1:]

	switch container := node.(type) {
	case map[string]any:
		if tok.isIndex {
			return nil, fmt.Errorf("cannot index into a mapping with %s", tok)
		}
		existing, found := container[tok.key]
		if len(rest) == 0 {
			m, err := fn(existing, found)
			if err != nil {
				return nil, err
			}
			if m.remove {
				delete(container, tok.key)
			} else {
				container[tok.key] = m.value
			}
			return container, nil
		}
		if !found {
			return nil, fmt.Errorf("field %q not found", tok.key)
		}
		newChild, err := applyPath(existing, rest, fn)
		if err != nil {
			return nil, fmt.Errorf("%s.%w", tok.key, wrapErr(err))
		}
		container[tok.key] = newChild
		return container, nil

	case []any:
		if !tok.isIndex {
			return nil, fmt.Errorf("cannot select field %q on a sequence", tok.key)
		}
		if tok.index < 0 || tok.index >= len(container) {
			return nil, fmt.Errorf("index %d out of range (len %d)", tok.index, len(container))
		}
		if len(rest) == 0 {
			m, err := fn(container[tok.index], true)
			if err != nil {
				return nil, err
			}
			if m.remove {
				container = append(container[:tok.index], container[tok.index+1:]...)
			} else {
				container[tok.index] = m.value
			}
			return container, nil
		}
		newChild, err := applyPath(container[tok.index], rest, fn)
		if err != nil {
			return nil, fmt.Errorf("[%d].%w", tok.index, wrapErr(err))
		}
		container[tok.index] = newChild
		return container, nil

	default:
		return nil, fmt.Errorf("cannot navigate into %T at %s", node, tok)
	}
}

// wrapErr lets applyPath prefix nested errors without double-wrapping with
// fmt's %w verb requiring an error operand.
func wrapErr(err error) error { return err }

// getPath returns the value addressed by path without mutating anything.
func getPath(node any, tokens []pathToken) (any, error) {
	cur := node
	for _, tok := range tokens {
		switch container := cur.(type) {
		case map[string]any:
			if tok.isIndex {
				return nil, fmt.Errorf("cannot index into a mapping with %s", tok)
			}
			v, ok := container[tok.key]
			if !ok {
				return nil, fmt.Errorf("field %q not found", tok.key)
			}
			cur = v
		case []any:
			if !tok.isIndex {
				return nil, fmt.Errorf("cannot select field %q on a sequence", tok.key)
			}
			if tok.index < 0 || tok.index >= len(container) {
				return nil, fmt.Errorf("index %d out of range (len %d)", tok.index, len(container))
			}
			cur = container[tok.index]
		default:
			return nil, fmt.Errorf("cannot navigate into %T at %s", cur, tok)
		}
	}
	return cur, nil
}
