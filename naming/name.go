package naming

import (
	"strconv"
	"strings"
)

// A Name is a hierarchical name made of dot-separated tokens, for example
// "Pipeline.Transpose.In" names the port In of actor Transpose in the
// composite Pipeline.
type Name struct {
	Tokens []NameToken
}

// NameToken is one element of a name. Elements that belong to a series carry
// square-bracket indices, as in "Tile[1][2]".
type NameToken struct {
	ElemName string
	Index    []int
}

// ParseName parses a name string.
func ParseName(sname string) Name {
	tokens := strings.Split(sname, ".")
	name := Name{Tokens: make([]NameToken, len(tokens))}

	for i, token := range tokens {
		name.Tokens[i] = parseNameToken(token)
	}

	return name
}

// String joins the tokens back into a dotted name.
func (n Name) String() string {
	parts := make([]string, len(n.Tokens))

	for i, t := range n.Tokens {
		parts[i] = t.ElemName
		for _, idx := range t.Index {
			parts[i] += "[" + strconv.Itoa(idx) + "]"
		}
	}

	return strings.Join(parts, ".")
}

func parseNameToken(token string) NameToken {
	bracketMustMatch(token)

	ts := strings.Split(token, "[")
	elemName := ts[0]

	indices := make([]int, len(ts)-1)
	for i := 1; i < len(ts); i++ {
		index, err := strconv.Atoi(strings.TrimSuffix(ts[i], "]"))
		if err != nil {
			panic("name index must be an integer")
		}

		indices[i-1] = index
	}

	return NameToken{ElemName: elemName, Index: indices}
}

func bracketMustMatch(name string) {
	depth := 0

	for _, c := range name {
		switch c {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				panic("name brackets must match")
			}
		}
	}

	if depth != 0 {
		panic("name brackets must match")
	}
}

// NameMustBeValid panics if the name does not follow the naming convention:
//  1. Elements are separated by dots, and no element may be empty.
//  2. Elements start with a capital letter (CamelCase).
//  3. Elements do not contain underscores, dashes or quotes.
//  4. Elements of a series use square-bracket indices.
func NameMustBeValid(name string) {
	defer func() {
		if r := recover(); r != nil {
			panic("name " + name + " is not valid: " + r.(string))
		}
	}()

	n := ParseName(name)
	for _, token := range n.Tokens {
		tokenMustBeValid(token)
	}
}

func tokenMustBeValid(token NameToken) {
	if token.ElemName == "" {
		panic("name element must not be empty")
	}

	for _, c := range []string{"_", "\"", "'", "-"} {
		if strings.Contains(token.ElemName, c) {
			panic("name element must not contain " + c)
		}
	}

	if token.ElemName[0] < 'A' || token.ElemName[0] > 'Z' {
		panic("name element must start with a capital letter")
	}
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}

// Parent returns everything before the last dot, or "" for a top-level name.
func Parent(name string) string {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return ""
	}

	return name[:i]
}

// Leaf returns the last element of a name.
func Leaf(name string) string {
	return name[strings.LastIndex(name, ".")+1:]
}
