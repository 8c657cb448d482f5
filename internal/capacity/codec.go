package capacity

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidConstraintToken is returned when persisted constraint text
// contains a token that cannot be parsed.
var ErrInvalidConstraintToken = errors.New("invalid constraint token")

// ErrUnencodableSpec is returned when a spec uses composition the text
// format cannot represent (anything other than an AND of leaves).
var ErrUnencodableSpec = errors.New("spec cannot be encoded as constraint text")

// tokenRule maps a token prefix to its leaf constructor. min is the smallest
// accepted value.
type tokenRule struct {
	prefix string
	min    int
	build  func(n int) Spec
}

// Longer prefixes first: "divisible_by_" and "per_field_" must not be
// shadowed by a shorter entry.
var tokenRules = []tokenRule{
	{prefix: "divisible_by_", min: 2, build: func(n int) Spec { return DivisibleBy{Divisor: n} }},
	{prefix: "per_field_", min: 1, build: func(n int) Spec { return PerField{PerField: n} }},
	{prefix: "exact_", min: 0, build: func(n int) Spec { return Exact{Limit: n} }},
	{prefix: "max_", min: 0, build: func(n int) Spec { return Max{Limit: n} }},
	{prefix: "min_", min: 0, build: func(n int) Spec { return Min{Limit: n} }},
}

// Decode parses comma-separated constraint text such as "max_18,min_12,even"
// into a left-to-right conjunction of leaves. Blank text means no
// constraints and decodes to a nil Spec. Decoding is all or nothing.
func Decode(text string) (Spec, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var leaves []Spec
	for _, raw := range strings.Split(text, ",") {
		leaf, err := decodeToken(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, leaf)
	}
	return AllOf(leaves...), nil
}

func decodeToken(tok string) (Spec, error) {
	if tok == "" {
		return nil, fmt.Errorf("%w: empty token", ErrInvalidConstraintToken)
	}
	if tok == "even" {
		return Even{}, nil
	}

	for _, rule := range tokenRules {
		digits, ok := strings.CutPrefix(tok, rule.prefix)
		if !ok {
			continue
		}
		n, err := strconv.ParseUint(digits, 10, 31)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: value must be a non-negative integer", ErrInvalidConstraintToken, tok)
		}
		if int(n) < rule.min {
			return nil, fmt.Errorf("%w: %q: value must be at least %d", ErrInvalidConstraintToken, tok, rule.min)
		}
		return rule.build(int(n)), nil
	}

	return nil, fmt.Errorf("%w: %q: unknown constraint", ErrInvalidConstraintToken, tok)
}

// Encode renders an AND-of-leaves spec back to constraint text. A nil spec
// encodes to "".
func Encode(spec Spec) (string, error) {
	var tokens []string
	if err := appendTokens(spec, &tokens); err != nil {
		return "", err
	}
	return strings.Join(tokens, ","), nil
}

func appendTokens(spec Spec, tokens *[]string) error {
	switch s := spec.(type) {
	case nil:
		return nil
	case And:
		if err := appendTokens(s.Left, tokens); err != nil {
			return err
		}
		return appendTokens(s.Right, tokens)
	case Max:
		return appendLeaf(tokens, "max_", s.Limit)
	case Min:
		return appendLeaf(tokens, "min_", s.Limit)
	case Exact:
		return appendLeaf(tokens, "exact_", s.Limit)
	case Even:
		*tokens = append(*tokens, "even")
	case DivisibleBy:
		return appendLeaf(tokens, "divisible_by_", s.Divisor)
	case PerField:
		return appendLeaf(tokens, "per_field_", s.PerField)
	default:
		return fmt.Errorf("%w: %s node", ErrUnencodableSpec, spec.Name())
	}
	return nil
}

// appendLeaf refuses values Decode would reject, so encoded text always
// decodes.
func appendLeaf(tokens *[]string, prefix string, n int) error {
	for _, rule := range tokenRules {
		if rule.prefix != prefix {
			continue
		}
		if n < rule.min {
			return fmt.Errorf("%w: %s%d: value must be at least %d", ErrUnencodableSpec, prefix, n, rule.min)
		}
		*tokens = append(*tokens, prefix+strconv.Itoa(n))
		return nil
	}
	return fmt.Errorf("%w: unknown prefix %q", ErrUnencodableSpec, prefix)
}
