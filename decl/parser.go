package decl

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joeycumines/go-bindbridge/value"
)

// Annotation names that select the declaration kind.
const (
	AnnotationDictionary = "Dictionary"
	AnnotationMixin      = "Mixin"
)

// ParseFile reads and parses the declaration file at path.
func ParseFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(path, string(data))
}

// Parse parses declaration source. The name is used in error positions.
// On error the returned File is nil.
func Parse(name, src string) (*File, error) {
	l := newLexer(name, src)
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			break
		}
	}
	p := &parser{toks: toks, file: &File{Name: name}}
	if err := p.parseFile(); err != nil {
		return nil, err
	}
	return p.file, nil
}

type parser struct {
	file *File
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.peekN(0) }

func (p *parser) peekN(n int) token {
	if i := p.pos + n; i < len(p.toks) {
		return p.toks[i]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token {
	tok := p.peek()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, format string, args ...any) error {
	return &ParseError{Pos: tok.pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(punct string) (token, error) {
	tok := p.advance()
	if !tok.is(punct) {
		return tok, p.errorf(tok, "expected %q, found %s", punct, tok)
	}
	return tok, nil
}

func (p *parser) expectIdent() (token, error) {
	tok := p.advance()
	if tok.kind != tokIdent {
		return tok, p.errorf(tok, "expected identifier, found %s", tok)
	}
	return tok, nil
}

func (p *parser) accept(punct string) bool {
	if p.peek().is(punct) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) parseFile() error {
	for p.peek().kind != tokEOF {
		if p.accept(";") {
			continue
		}
		if err := p.parseTopLevel(); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) parseTopLevel() error {
	var annotations []string
	for p.peek().is("@") {
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return err
		}
		if p.accept("(") {
			if err := p.skipBalanced("(", ")"); err != nil {
				return err
			}
		}
		annotations = append(annotations, name.text)
	}

	for p.peek().isIdent("export") || p.peek().isIdent("declare") {
		p.advance()
	}

	tok := p.peek()
	switch {
	case tok.isIdent("interface"):
		return p.parseInterface(annotations)
	case tok.kind == tokIdent && p.peekN(1).isIdent("includes"):
		if len(annotations) != 0 {
			return p.errorf(tok, "annotations are not allowed on includes statements")
		}
		return p.parseIncludes()
	default:
		return p.errorf(tok, "expected declaration, found %s", tok)
	}
}

// skipBalanced consumes tokens up to and including the close matching an
// already consumed open.
func (p *parser) skipBalanced(open, close string) error {
	start := p.peek()
	for depth := 1; depth > 0; {
		tok := p.advance()
		switch {
		case tok.kind == tokEOF:
			return p.errorf(start, "unbalanced %q", open)
		case tok.is(open):
			depth++
		case tok.is(close):
			depth--
		}
	}
	return nil
}

func (p *parser) parseIncludes() error {
	target := p.advance()
	p.advance() // includes
	mixin, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expect(";"); err != nil {
		return err
	}
	p.file.Includes = append(p.file.Includes, &Include{
		Interface: target.text,
		Mixin:     mixin.text,
		Pos:       target.pos,
	})
	return nil
}

func hasAnnotation(annotations []string, name string) bool {
	for _, a := range annotations {
		if a == name {
			return true
		}
	}
	return false
}

func (p *parser) parseInterface(annotations []string) error {
	kw := p.advance() // interface
	name, err := p.expectIdent()
	if err != nil {
		return err
	}

	var bases []string
	if p.peek().isIdent("extends") {
		p.advance()
		for {
			base, err := p.expectIdent()
			if err != nil {
				return err
			}
			bases = append(bases, base.text)
			if !p.accept(",") {
				break
			}
		}
	}

	isDict := hasAnnotation(annotations, AnnotationDictionary)
	isMixin := hasAnnotation(annotations, AnnotationMixin)
	if isDict && isMixin {
		return p.errorf(kw, "interface %s cannot be both @%s and @%s", name.text, AnnotationDictionary, AnnotationMixin)
	}

	if _, err := p.expect("{"); err != nil {
		return err
	}

	if isDict {
		if len(bases) > 1 {
			return p.errorf(name, "dictionary %s may extend at most one dictionary", name.text)
		}
		d := &Dictionary{Name: name.text, Annotations: annotations, Pos: kw.pos}
		if len(bases) == 1 {
			d.Parent = bases[0]
		}
		for !p.accept("}") {
			field, err := p.parseField()
			if err != nil {
				return err
			}
			d.Fields = append(d.Fields, field)
		}
		p.file.Dictionaries = append(p.file.Dictionaries, d)
		return nil
	}

	var members []*Member
	var ctor *Member
	for !p.accept("}") {
		m, isCtor, err := p.parseMember()
		if err != nil {
			return err
		}
		if isCtor {
			if isMixin {
				return p.errorf(kw, "mixin %s cannot declare a constructor", name.text)
			}
			if ctor != nil {
				return &ParseError{Pos: m.Pos, Message: fmt.Sprintf("interface %s declares more than one constructor", name.text)}
			}
			ctor = m
			continue
		}
		members = append(members, m)
	}

	if isMixin {
		p.file.Mixins = append(p.file.Mixins, &Mixin{
			Name:        name.text,
			Bases:       bases,
			Annotations: annotations,
			Members:     members,
			Pos:         kw.pos,
		})
		return nil
	}
	p.file.Interfaces = append(p.file.Interfaces, &Interface{
		Name:        name.text,
		Bases:       bases,
		Annotations: annotations,
		Members:     members,
		Constructor: ctor,
		Pos:         kw.pos,
	})
	return nil
}

// endMember consumes an optional member separator.
func (p *parser) endMember() {
	if !p.accept(";") {
		p.accept(",")
	}
}

// isModifier reports whether the identifier at the cursor is used as a
// modifier rather than as a member name.
func (p *parser) isModifier(word string) bool {
	if !p.peek().isIdent(word) {
		return false
	}
	next := p.peekN(1)
	return next.kind == tokIdent || next.is("[")
}

func (p *parser) parseMember() (*Member, bool, error) {
	start := p.peek()
	m := &Member{Pos: start.pos}

	for {
		switch {
		case p.isModifier("readonly"):
			p.advance()
			m.ReadOnly = true
			continue
		case p.isModifier("static"):
			p.advance()
			m.Static = true
			continue
		}
		break
	}

	// constructor signature
	if p.peek().isIdent("new") && p.peekN(1).is("(") {
		if m.ReadOnly || m.Static {
			return nil, false, p.errorf(start, "constructor cannot be readonly or static")
		}
		p.advance()
		params, err := p.parseParams()
		if err != nil {
			return nil, false, err
		}
		if p.accept(":") {
			if _, err := p.parseType(); err != nil {
				return nil, false, err
			}
		}
		p.endMember()
		m.Name = "constructor"
		m.Kind = MemberMethod
		m.Params = params
		m.Type = Primitive(TypeVoid)
		return m, true, nil
	}

	if p.peek().is("[") {
		if err := p.parseBracketMember(m); err != nil {
			return nil, false, err
		}
		p.endMember()
		return m, false, nil
	}

	name := p.advance()
	switch name.kind {
	case tokIdent, tokString:
	default:
		return nil, false, p.errorf(name, "expected member name, found %s", name)
	}
	m.Name = name.text
	m.Optional = p.accept("?")

	if p.peek().is("(") {
		if m.ReadOnly {
			return nil, false, p.errorf(start, "method %s cannot be readonly", m.Name)
		}
		params, err := p.parseParams()
		if err != nil {
			return nil, false, err
		}
		m.Kind = MemberMethod
		m.Params = params
		m.Type = Primitive(TypeVoid)
		if p.accept(":") {
			if m.Type, err = p.parseType(); err != nil {
				return nil, false, err
			}
		}
		p.endMember()
		return m, false, nil
	}

	if _, err := p.expect(":"); err != nil {
		return nil, false, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, false, err
	}
	if typ.Kind == TypeVoid {
		return nil, false, p.errorf(name, "property %s cannot have type void", m.Name)
	}
	m.Type = typ
	m.Kind = MemberProperty
	if isEventHandler(typ) {
		if m.ReadOnly {
			return nil, false, p.errorf(start, "event accessor %s cannot be readonly", m.Name)
		}
		if !strings.HasPrefix(m.Name, "on") || len(m.Name) == 2 {
			return nil, false, p.errorf(name, "event accessor %s must be named on<event>", m.Name)
		}
		m.Kind = MemberEvent
	}
	p.endMember()
	return m, false, nil
}

func isEventHandler(t *TypeRef) bool {
	if t.Kind == TypeNullable {
		t = t.Elem
	}
	return t.Kind == TypeFunction && t.Name == EventHandlerType
}

// parseBracketMember handles [Symbol.x]() and [key: string]: T forms.
func (p *parser) parseBracketMember(m *Member) error {
	open := p.advance() // [
	if p.peek().isIdent("Symbol") && p.peekN(1).is(".") {
		p.advance()
		p.advance()
		sym, err := p.expectIdent()
		if err != nil {
			return err
		}
		if sym.text != SymbolIterator {
			return p.errorf(sym, "unsupported well-known symbol Symbol.%s", sym.text)
		}
		if _, err := p.expect("]"); err != nil {
			return err
		}
		if m.ReadOnly || m.Static {
			return p.errorf(open, "symbol member cannot be readonly or static")
		}
		params, err := p.parseParams()
		if err != nil {
			return err
		}
		if len(params) != 0 {
			return p.errorf(sym, "Symbol.%s takes no parameters", sym.text)
		}
		if _, err := p.expect(":"); err != nil {
			return err
		}
		typ, err := p.parseType()
		if err != nil {
			return err
		}
		if typ.Kind != TypeIterator {
			return p.errorf(sym, "Symbol.%s must return Iterator<T>, found %s", sym.text, typ)
		}
		m.Name = "[Symbol." + sym.text + "]"
		m.Symbol = sym.text
		m.Kind = MemberMethod
		m.Type = typ
		return nil
	}

	key, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expect(":"); err != nil {
		return err
	}
	keyType, err := p.parseType()
	if err != nil {
		return err
	}
	if keyType.Kind != TypeString {
		return p.errorf(key, "indexer key must be of type string, found %s", keyType)
	}
	if _, err := p.expect("]"); err != nil {
		return err
	}
	if _, err := p.expect(":"); err != nil {
		return err
	}
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if m.Static {
		return p.errorf(open, "indexer cannot be static")
	}
	m.Name = "[" + key.text + ": string]"
	m.Kind = MemberProperty
	m.Indexer = true
	m.KeyType = keyType
	m.Type = typ
	return nil
}

func (p *parser) parseParams() ([]*Param, error) {
	if _, err := p.expect("("); err != nil {
		return nil, err
	}
	var params []*Param
	seenOptional := false
	for !p.accept(")") {
		if len(params) != 0 {
			if _, err := p.expect(","); err != nil {
				return nil, err
			}
			if p.accept(")") {
				break
			}
		}
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		param := &Param{Name: name.text, Optional: p.accept("?")}
		if _, err := p.expect(":"); err != nil {
			return nil, err
		}
		if param.Type, err = p.parseType(); err != nil {
			return nil, err
		}
		if param.Type.Kind == TypeVoid {
			return nil, p.errorf(name, "parameter %s cannot have type void", name.text)
		}
		if param.Optional {
			seenOptional = true
		} else if seenOptional {
			return nil, p.errorf(name, "required parameter %s follows an optional parameter", name.text)
		}
		for _, prev := range params {
			if prev.Name == param.Name {
				return nil, p.errorf(name, "duplicate parameter %s", name.text)
			}
		}
		params = append(params, param)
	}
	return params, nil
}

func (p *parser) parseField() (*Field, error) {
	name := p.advance()
	switch name.kind {
	case tokIdent, tokString:
	default:
		return nil, p.errorf(name, "expected field name, found %s", name)
	}
	if p.peek().is("(") {
		return nil, p.errorf(name, "dictionary field %s cannot be a method", name.text)
	}
	f := &Field{Name: name.text, Pos: name.pos, Optional: p.accept("?")}
	if _, err := p.expect(":"); err != nil {
		return nil, err
	}
	var err error
	if f.Type, err = p.parseType(); err != nil {
		return nil, err
	}
	if f.Type.Kind == TypeVoid {
		return nil, p.errorf(name, "field %s cannot have type void", f.Name)
	}
	if p.accept("=") {
		lit := p.peek()
		if f.Default, err = p.parseLiteral(); err != nil {
			return nil, err
		}
		if !f.Optional {
			return nil, p.errorf(lit, "required field %s cannot have a default", f.Name)
		}
		f.HasDefault = true
	}
	p.endMember()
	return f, nil
}

func (p *parser) parseLiteral() (value.Value, error) {
	tok := p.advance()
	switch tok.kind {
	case tokString:
		return value.String(tok.text), nil
	case tokNumber:
		text := tok.text
		neg := strings.HasPrefix(text, "-")
		digits := strings.TrimPrefix(text, "-")
		if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
			u, err := strconv.ParseUint(digits[2:], 16, 53)
			if err != nil {
				return value.Value{}, p.errorf(tok, "invalid number literal %s", text)
			}
			if neg {
				return value.Number(-float64(u)), nil
			}
			return value.Number(float64(u)), nil
		}
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return value.Value{}, p.errorf(tok, "invalid number literal %s", text)
		}
		return value.Number(f), nil
	case tokIdent:
		switch tok.text {
		case "true":
			return value.Bool(true), nil
		case "false":
			return value.Bool(false), nil
		case "null":
			return value.Null(), nil
		case "undefined":
			return value.Undefined(), nil
		}
	case tokPunct:
		if tok.text == "[" && p.accept("]") {
			return value.ListOf(), nil
		}
	}
	return value.Value{}, p.errorf(tok, "expected literal, found %s", tok)
}

// parseType parses a type, including T | null unions.
func (p *parser) parseType() (*TypeRef, error) {
	start := p.peek()
	var (
		typ      *TypeRef
		nullable bool
	)
	for {
		if p.peek().isIdent("null") || p.peek().isIdent("undefined") {
			p.advance()
			nullable = true
		} else {
			t, err := p.parsePostfixType()
			if err != nil {
				return nil, err
			}
			if typ != nil {
				return nil, p.errorf(start, "union types other than T | null are not supported")
			}
			typ = t
		}
		if !p.accept("|") {
			break
		}
	}
	if typ == nil {
		return nil, p.errorf(start, "type cannot be only null or undefined")
	}
	if nullable {
		switch typ.Kind {
		case TypeVoid:
			return nil, p.errorf(start, "void cannot be nullable")
		case TypeAny:
			// any already admits null
			return typ, nil
		}
		return NullableOf(typ), nil
	}
	return typ, nil
}

func (p *parser) parsePostfixType() (*TypeRef, error) {
	typ, err := p.parsePrimaryType()
	if err != nil {
		return nil, err
	}
	for p.peek().is("[") && p.peekN(1).is("]") {
		p.advance()
		p.advance()
		typ = ArrayOf(typ)
	}
	return typ, nil
}

func (p *parser) parsePrimaryType() (*TypeRef, error) {
	if p.accept("(") {
		typ, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(")"); err != nil {
			return nil, err
		}
		return typ, nil
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	switch name.text {
	case "boolean":
		return Primitive(TypeBoolean), nil
	case "number":
		return Primitive(TypeNumber), nil
	case "double":
		return Primitive(TypeDouble), nil
	case "int64":
		return Primitive(TypeInt64), nil
	case "string":
		return Primitive(TypeString), nil
	case "any":
		return Primitive(TypeAny), nil
	case "void":
		return Primitive(TypeVoid), nil
	case "Function", EventHandlerType:
		return &TypeRef{Kind: TypeFunction, Name: name.text}, nil
	case "Array", "Iterator", "IterableIterator":
		if _, err := p.expect("<"); err != nil {
			return nil, err
		}
		elem, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(">"); err != nil {
			return nil, err
		}
		if elem.Kind == TypeVoid {
			return nil, p.errorf(name, "%s<void> is not a valid type", name.text)
		}
		if name.text == "Array" {
			return ArrayOf(elem), nil
		}
		return IteratorOf(elem), nil
	}
	return Named(name.text), nil
}
