// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package expand

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/smoosh-shell/smoosh/pattern"
	"github.com/smoosh-shell/smoosh/syntax"
)

func anyOfLit(v any, vals ...string) string {
	word, _ := v.(*syntax.Word)
	if word == nil || len(word.Parts) != 1 {
		return ""
	}
	lit, ok := word.Parts[0].(*syntax.Lit)
	if !ok {
		return ""
	}
	for _, val := range vals {
		if lit.Value == val {
			return val
		}
	}
	return ""
}

// UnsetParameterError is returned by parameter expansion when an explicit
// ${var?message} form is triggered, or when [Config.NoUnset] is set and an
// unset parameter is referenced without a default.
type UnsetParameterError struct {
	Expr    *syntax.ParamExp
	Message string
}

func (u UnsetParameterError) Error() string {
	return u.Message
}

func (cfg *Config) paramExp(pe *syntax.ParamExp) (string, error) {
	oldParam := cfg.curParam
	cfg.curParam = pe
	defer func() { cfg.curParam = oldParam }()

	name := pe.Param.Value
	index := pe.Index
	switch name {
	case "@", "*":
		index = &syntax.Word{Parts: []syntax.WordPart{
			&syntax.Lit{Value: name},
		}}
	}
	var vr Variable
	switch name {
	case "LINENO":
		// This is the only parameter expansion that the environment
		// interface cannot satisfy.
		line := uint64(cfg.curParam.Pos().Line())
		vr = Variable{Set: true, Kind: String, Str: strconv.FormatUint(line, 10)}
	default:
		vr = cfg.environ().Get(name)
	}
	set := vr.IsSet()
	str := cfg.varStr(vr, 0)
	if index != nil {
		str = cfg.varInd(vr, index, 0)
	}

	providesDefault := pe.Exp != nil && !pe.Excl
	if pe.Exp != nil {
		switch pe.Exp.Op {
		case SubstMinus, SubstColMinus, SubstAssgn, SubstColAssgn:
			providesDefault = true
		default:
			providesDefault = false
		}
	}
	if cfg.NoUnset && !set && !providesDefault && pe.Length == false && !pe.Excl {
		return "", UnsetParameterError{
			Expr:    pe,
			Message: fmt.Sprintf("%s: unbound variable", name),
		}
	}

	slicePos := func(expr syntax.ArithmExpr) (int, error) {
		p, err := Arithm(cfg, expr)
		if err != nil {
			return 0, err
		}
		if p < 0 {
			p = len(str) + p
			if p < 0 {
				p = len(str)
			}
		} else if p > len(str) {
			p = len(str)
		}
		return p, nil
	}
	elems := []string{str}
	if anyOfLit(index, "@", "*") != "" {
		switch vr.Kind {
		case Indexed:
			elems = vr.List
		case Associative:
			elems = nil
			keys := make([]string, 0, len(vr.Map))
			for k := range vr.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				elems = append(elems, vr.Map[k])
			}
		case Unknown:
			elems = nil
		}
	}
	switch {
	case pe.Length:
		n := len(elems)
		if anyOfLit(index, "@", "*") == "" {
			n = utf8.RuneCountInString(str)
		}
		str = strconv.Itoa(n)
	case pe.Excl:
		var strs []string
		switch {
		case pe.Names != 0:
			strs = cfg.namesByPrefix(pe.Param.Value)
		case vr.Kind == NameRef:
			strs = append(strs, vr.Str)
		case vr.Kind == Indexed:
			for i, e := range vr.List {
				if e != "" {
					strs = append(strs, strconv.Itoa(i))
				}
			}
		case vr.Kind == Associative:
			for k := range vr.Map {
				strs = append(strs, k)
			}
		case str != "":
			vr = cfg.environ().Get(str)
			strs = append(strs, cfg.varStr(vr, 0))
		}
		sort.Strings(strs)
		str = strings.Join(strs, " ")
	case pe.Slice != nil:
		if pe.Slice.Offset != nil {
			offset, err := slicePos(pe.Slice.Offset)
			if err != nil {
				return "", err
			}
			str = str[offset:]
		}
		if pe.Slice.Length != nil {
			length, err := slicePos(pe.Slice.Length)
			if err != nil {
				return "", err
			}
			str = str[:length]
		}
	case pe.Repl != nil:
		orig, err := Pattern(cfg, pe.Repl.Orig)
		if err != nil {
			return "", err
		}
		with, err := Literal(cfg, pe.Repl.With)
		if err != nil {
			return "", err
		}
		n := 1
		if pe.Repl.All {
			n = -1
		}
		locs := findAllIndex(orig, str, n)
		buf := cfg.strBuilder()
		last := 0
		for _, loc := range locs {
			buf.WriteString(str[last:loc[0]])
			buf.WriteString(with)
			last = loc[1]
		}
		buf.WriteString(str[last:])
		str = buf.String()
	case pe.Exp != nil:
		arg, err := Literal(cfg, pe.Exp.Word)
		if err != nil {
			return "", err
		}
		switch op := pe.Exp.Op; op {
		case SubstColPlus:
			if str == "" {
				break
			}
			fallthrough
		case SubstPlus:
			if set {
				str = arg
			}
		case SubstMinus:
			if set {
				break
			}
			fallthrough
		case SubstColMinus:
			if str == "" {
				str = arg
			}
		case SubstQuest:
			if set {
				break
			}
			fallthrough
		case SubstColQuest:
			if str == "" {
				return "", UnsetParameterError{
					Expr:    pe,
					Message: arg,
				}
			}
		case SubstAssgn:
			if set {
				break
			}
			fallthrough
		case SubstColAssgn:
			if str == "" {
				if err := cfg.envSet(name, arg); err != nil {
					return "", err
				}
				str = arg
			}
		case RemSmallPrefix, RemLargePrefix,
			RemSmallSuffix, RemLargeSuffix:
			suffix := op == RemSmallSuffix ||
				op == RemLargeSuffix
			large := op == RemLargePrefix ||
				op == RemLargeSuffix
			for i, elem := range elems {
				elems[i] = removePattern(elem, arg, suffix, large)
			}
			str = strings.Join(elems, " ")
		case UpperFirst, UpperAll,
			LowerFirst, LowerAll:

			caseFunc := unicode.ToLower
			if op == UpperFirst || op == UpperAll {
				caseFunc = unicode.ToUpper
			}
			all := op == UpperAll || op == LowerAll

			// empty string means '?'; nothing to do there
			expr, err := pattern.Regexp(arg, pattern.Shortest)
			if err != nil {
				return str, nil
			}
			rx, err := regexp.Compile(expr)
			if err != nil {
				return str, nil
			}

			for i, elem := range elems {
				rs := []rune(elem)
				for ri, r := range rs {
					if rx.MatchString(string(r)) {
						rs[ri] = caseFunc(r)
						if !all {
							break
						}
					}
				}
				elems[i] = string(rs)
			}
			str = strings.Join(elems, " ")
		case OtherParamOps:
			switch arg {
			case "Q":
				str = strconv.Quote(str)
			case "E":
				tail := str
				var rns []rune
				for tail != "" {
					var rn rune
					rn, _, tail, _ = strconv.UnquoteChar(tail, 0)
					rns = append(rns, rn)
				}
				str = string(rns)
			case "P", "A", "a":
				return "", fmt.Errorf("unhandled @%s param expansion", arg)
			default:
				return "", fmt.Errorf("unexpected @%s param expansion", arg)
			}
		}
	}
	return str, nil
}

// findAllIndex returns the start/end byte offsets of up to n non-overlapping
// matches of the shell pattern orig within str; n < 0 means all matches.
func findAllIndex(origPattern, str string, n int) [][]int {
	expr, err := pattern.Regexp(origPattern, 0)
	if err != nil {
		return nil
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return nil
	}
	return rx.FindAllStringIndex(str, n)
}

func removePattern(str, pat string, fromEnd, greedy bool) string {
	mode := pattern.Mode(0)
	if !greedy {
		mode |= pattern.Shortest
	}
	expr, err := pattern.Regexp(pat, mode)
	if err != nil {
		return str
	}
	switch {
	case fromEnd && !greedy:
		// use .* to get the right-most (shortest) match
		expr = ".*(" + expr + ")$"
	case fromEnd:
		// simple suffix
		expr = "(" + expr + ")$"
	default:
		// simple prefix
		expr = "^(" + expr + ")"
	}
	rx, err := regexp.Compile(expr)
	if err != nil {
		return str
	}
	if loc := rx.FindStringSubmatchIndex(str); loc != nil {
		// remove the original pattern (the submatch)
		str = str[:loc[2]] + str[loc[3]:]
	}
	return str
}

// varStr returns vr's value as a plain string, following name references up
// to maxNameRefDepth times.
func (cfg *Config) varStr(vr Variable, depth int) string {
	if depth > maxNameRefDepth {
		return ""
	}
	if vr.Kind == NameRef {
		return cfg.varStr(cfg.environ().Get(vr.Str), depth+1)
	}
	return vr.String()
}

func (cfg *Config) varInd(vr Variable, idx syntax.ArithmExpr, depth int) string {
	if depth > maxNameRefDepth {
		return ""
	}
	switch vr.Kind {
	case NameRef:
		return cfg.varInd(cfg.environ().Get(vr.Str), idx, depth+1)
	case Indexed:
		switch anyOfLit(idx, "@", "*") {
		case "@":
			return strings.Join(vr.List, " ")
		case "*":
			return cfg.ifsJoin(vr.List)
		}
		i, err := Arithm(cfg, idx)
		if err != nil || i < 0 || i >= len(vr.List) {
			return ""
		}
		return vr.List[i]
	case Associative:
		if lit := anyOfLit(idx, "@", "*"); lit != "" {
			keys := make([]string, 0, len(vr.Map))
			for k := range vr.Map {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			strs := make([]string, len(keys))
			for i, k := range keys {
				strs[i] = vr.Map[k]
			}
			if lit == "*" {
				return cfg.ifsJoin(strs)
			}
			return strings.Join(strs, " ")
		}
		w, _ := idx.(*syntax.Word)
		key, err := Literal(cfg, w)
		if err != nil {
			return ""
		}
		return vr.Map[key]
	default:
		if w, _ := idx.(*syntax.Word); w != nil {
			if i, err := Arithm(cfg, idx); err == nil && i == 0 {
				return vr.Str
			}
		}
		return ""
	}
}

func (cfg *Config) namesByPrefix(prefix string) []string {
	var names []string
	cfg.environ().Each(func(name string, vr Variable) bool {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return true
	})
	return names
}
