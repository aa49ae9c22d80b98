package engine

import (
	"errors"
	"fmt"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/cellforge/pkg/vars"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites a variable script before it reaches zygomys:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//
//  2. Kebab-case to underscore: pitch-radius -> pitch_radius
//     zygomys reads a hyphen inside an identifier as subtraction.
//
// Line comments are turned into zygomys // comments. String literals are
// left alone.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Convert ; line comments to // comments for zygomys.
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			// Skip additional ; characters (;; style).
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Transform :keyword to "__kw_keyword".
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			// Check for keyword: colon followed by a letter.
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				kwName := string(b[i+1 : j])
				result = append(result, '"')
				result = append(result, []byte(kwPrefix)...)
				result = append(result, []byte(kwName)...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Transform kebab-case identifiers: alpha-alpha -> alpha_alpha.
		// Only when hyphen sits between identifier characters (not a minus operator).
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if ok {
			if i+1 < len(args) {
				result.kw[name] = args[i+1]
				i += 2
			} else {
				// Trailing keyword with no value.
				result.kw[name] = zygo.SexpNull
				i++
			}
		} else {
			result.positional = append(result.positional, args[i])
			i++
		}
	}
	return result
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_z) and plain strings ("z").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toValue converts a script value into something a vars.Store accepts.
func toValue(s zygo.Sexp) (any, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpStr:
		if strings.HasPrefix(v.S, kwPrefix) {
			return v.S[len(kwPrefix):], nil
		}
		return v.S, nil
	}
	return nil, fmt.Errorf("expected number, string or bool, got %T (%s)", s, s.SexpString(nil))
}

// fromValue is the inverse of toValue for values read back from the store.
func fromValue(v any) zygo.Sexp {
	switch x := v.(type) {
	case float64:
		return &zygo.SexpFloat{Val: x}
	case string:
		return &zygo.SexpStr{S: x}
	case bool:
		return &zygo.SexpBool{Val: x}
	}
	return zygo.SexpNull
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the variable builtins into env. They read and
// write store during evaluation.
//
// Source must go through preprocessSource first so that :keyword tokens
// arrive as recognizable string literals.
func registerBuiltins(env *zygo.Zlisp, store *vars.Store) {

	// -----------------------------------------------------------------------
	// (defvar :PitchRadius 7.5)  or  (defvar "PitchRadius" 7.5)
	// -----------------------------------------------------------------------
	env.AddFunction("defvar", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defvar requires a name and a value")
		}
		key, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defvar: name: %w", err)
		}
		v, err := toValue(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defvar %s: %w", key, err)
		}
		if err := store.Set(key, v); err != nil {
			return zygo.SexpNull, err
		}
		return args[1], nil
	})

	// -----------------------------------------------------------------------
	// (defvars "Flange" :NBolts 8 :PitchRadius 7.5)
	// defines FlangeNBolts and FlangePitchRadius.
	// -----------------------------------------------------------------------
	env.AddFunction("defvars", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("defvars requires one prefix before its keywords")
		}
		prefix, err := toKeywordString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defvars: prefix: %w", err)
		}
		if len(args)%2 != 1 {
			return zygo.SexpNull, fmt.Errorf("defvars %s: keyword without a value", prefix)
		}
		// Keyword order is lost in the map; walk the raw args to keep it.
		for i := 1; i+1 < len(args); i += 2 {
			key, ok := isKW(args[i])
			if !ok {
				return zygo.SexpNull, fmt.Errorf("defvars %s: expected keyword, got %s", prefix, args[i].SexpString(nil))
			}
			v, err := toValue(pa.kw[key])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("defvars %s%s: %w", prefix, key, err)
			}
			if err := store.Set(prefix+key, v); err != nil {
				return zygo.SexpNull, err
			}
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (getvar :PitchRadius)  or  (getvar :PitchRadius 7.5)
	// -----------------------------------------------------------------------
	env.AddFunction("getvar", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 1 || len(args) > 2 {
			return zygo.SexpNull, fmt.Errorf("getvar requires a name and an optional default")
		}
		key, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("getvar: name: %w", err)
		}
		v, err := store.Eval(key)
		var missing *vars.MissingVariableError
		switch {
		case errors.As(err, &missing) && len(args) == 2:
			return args[1], nil
		case err != nil:
			return zygo.SexpNull, err
		}
		return fromValue(v), nil
	})

	// -----------------------------------------------------------------------
	// (hasvar :PitchRadius)
	// -----------------------------------------------------------------------
	env.AddFunction("hasvar", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("hasvar requires a name")
		}
		key, err := toKeywordString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("hasvar: name: %w", err)
		}
		return &zygo.SexpBool{Val: store.Has(key)}, nil
	})
}
