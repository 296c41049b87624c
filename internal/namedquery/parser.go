// Package namedquery parses stored query templates plus positional URL
// arguments into concrete asset filters and projection settings.
package namedquery

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"orchestrator/internal/domain"
)

// Template element keys. p1..pN on the right-hand side of an assignment bind
// positional URL arguments; "#=value" pairs append fixed arguments.
const (
	keyCanvas     = "canvas"
	keySpace      = "space"
	keySpaceName  = "spacename"
	keyString1    = "s1"
	keyString2    = "s2"
	keyString3    = "s3"
	keyNumber1    = "n1"
	keyNumber2    = "n2"
	keyNumber3    = "n3"
	keyObjectName = "objectname"
	keyCoverPage  = "coverpage"

	additionalArgMarker = "#"
	parameterPrefix     = "p"
)

// ParseError is a client error in the request arguments, distinct from an
// unknown query (404).
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return e.msg }

func (e *ParseError) Unwrap() error { return domain.ErrInvalidRequest }

func parseErrorf(format string, args ...any) error {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}

// ParsedQuery is the result of binding a template with request arguments.
type ParsedQuery struct {
	Customer     int
	QueryName    string
	Query        domain.AssetQuery
	Canvas       domain.QueryField
	ObjectName   string
	CoverPageURL string
	Args         []string
}

// Parse binds the named query nq with the positional args taken from the URL
// and optional query-string overrides. The number of positional arguments
// must exactly equal the number of distinct pN placeholders in the template;
// any mismatch is a client error, not a 404.
func Parse(nq *domain.NamedQuery, customer int, args []string, overrides url.Values) (*ParsedQuery, error) {
	template := strings.TrimSpace(nq.Template)
	if template == "" {
		return nil, parseErrorf("named query %q has an empty template", nq.Name)
	}
	pairs := splitPairs(template)

	// Template-appended "#=value" pairs count as additional positional args.
	effective := append([]string(nil), args...)
	maxPlaceholder := 0
	for _, p := range pairs {
		if p.key == additionalArgMarker {
			effective = append(effective, p.value)
			continue
		}
		if n, ok := placeholderIndex(p.value); ok && n > maxPlaceholder {
			maxPlaceholder = n
		}
	}
	if len(effective) != maxPlaceholder {
		return nil, parseErrorf("named query %q takes %d argument(s), got %d", nq.Name, maxPlaceholder, len(effective))
	}

	parsed := &ParsedQuery{
		Customer:  customer,
		QueryName: nq.Name,
		Query:     domain.AssetQuery{Customer: customer},
		Args:      effective,
	}
	for _, p := range pairs {
		if p.key == additionalArgMarker {
			continue
		}
		if err := applyPair(parsed, p, effective); err != nil {
			return nil, err
		}
	}
	if err := applyOverrides(parsed, overrides); err != nil {
		return nil, err
	}
	return parsed, nil
}

type pair struct {
	key, value string
}

func splitPairs(template string) []pair {
	var pairs []pair
	for _, raw := range strings.Split(template, "&") {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" || value == "" {
			continue
		}
		pairs = append(pairs, pair{key: key, value: value})
	}
	return pairs
}

// placeholderIndex reports the 1-based index of a pN placeholder, or false
// for literals.
func placeholderIndex(value string) (int, bool) {
	if !strings.HasPrefix(value, parameterPrefix) || len(value) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(value[1:])
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// resolveValue substitutes a pN placeholder with its positional argument, or
// passes a literal through unchanged.
func resolveValue(value string, args []string) (string, error) {
	n, ok := placeholderIndex(value)
	if !ok {
		return value, nil
	}
	if n > len(args) {
		return "", parseErrorf("not enough arguments to satisfy template element %q", value)
	}
	return args[n-1], nil
}

func applyPair(parsed *ParsedQuery, p pair, args []string) error {
	switch p.key {
	case keyCanvas:
		parsed.Canvas = queryFieldFor(p.value)
		return nil
	case keyObjectName:
		v, err := resolveValue(p.value, args)
		if err != nil {
			return err
		}
		parsed.ObjectName = v
		return nil
	case keyCoverPage:
		parsed.CoverPageURL = p.value
		return nil
	}

	v, err := resolveValue(p.value, args)
	if err != nil {
		return err
	}
	switch p.key {
	case keySpace:
		n, err := strconv.Atoi(v)
		if err != nil {
			return parseErrorf("space argument %q is not numeric", v)
		}
		parsed.Query.Space = &n
	case keySpaceName:
		parsed.Query.SpaceName = &v
	case keyString1:
		parsed.Query.String1 = &v
	case keyString2:
		parsed.Query.String2 = &v
	case keyString3:
		parsed.Query.String3 = &v
	case keyNumber1, keyNumber2, keyNumber3:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return parseErrorf("%s argument %q is not numeric", p.key, v)
		}
		switch p.key {
		case keyNumber1:
			parsed.Query.Number1 = &n
		case keyNumber2:
			parsed.Query.Number2 = &n
		default:
			parsed.Query.Number3 = &n
		}
	}
	return nil
}

// applyOverrides merges inline query-string constraints (e.g. &string2=v)
// with AND semantics, identical in effect to a positional substitution.
func applyOverrides(parsed *ParsedQuery, overrides url.Values) error {
	for key, field := range map[string]**string{
		"string1": &parsed.Query.String1,
		"string2": &parsed.Query.String2,
		"string3": &parsed.Query.String3,
	} {
		if v := overrides.Get(key); v != "" {
			value := v
			*field = &value
		}
	}
	for key, field := range map[string]**int64{
		"number1": &parsed.Query.Number1,
		"number2": &parsed.Query.Number2,
		"number3": &parsed.Query.Number3,
	} {
		if v := overrides.Get(key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return parseErrorf("override %s=%q is not numeric", key, v)
			}
			*field = &n
		}
	}
	return nil
}

func queryFieldFor(element string) domain.QueryField {
	switch element {
	case keyString1:
		return domain.QueryFieldString1
	case keyString2:
		return domain.QueryFieldString2
	case keyString3:
		return domain.QueryFieldString3
	case keyNumber1:
		return domain.QueryFieldNumber1
	case keyNumber2:
		return domain.QueryFieldNumber2
	case keyNumber3:
		return domain.QueryFieldNumber3
	default:
		return domain.QueryFieldUnset
	}
}
