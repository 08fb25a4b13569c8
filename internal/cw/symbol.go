// internal/cw/symbol.go
package cw

import (
	"fmt"
	"strings"
)

// Symbol is one token appended to the buffer for the character being formed.
type Symbol int

const (
	SymbolDit Symbol = iota
	SymbolDah
	SymbolIntraCharSpace
	SymbolInterCharSpace
	SymbolInterWordSpace
)

// Render returns the text the symbol contributes to the buffer.
func (s Symbol) Render() string {
	switch s {
	case SymbolDit:
		return SymbolDitText
	case SymbolDah:
		return SymbolDahText
	case SymbolIntraCharSpace:
		return SymbolIntraCharSpaceText
	case SymbolInterCharSpace:
		return SymbolInterCharSpaceText
	case SymbolInterWordSpace:
		return SymbolInterWordSpaceText
	}
	panic(fmt.Sprintf("cw: unknown symbol %d", int(s)))
}

// Unit is one decoded output: a character, a word space, or a diagnostic
// for a symbol string the code table does not know.
type Unit struct {
	// Text is what should be emitted downstream
	Text string
	// Symbols is the raw buffer content that produced Text
	Symbols string
	// Unknown is true when Symbols had no code table entry
	Unknown bool
}

func (u Unit) String() string {
	return u.Text
}

// unknownUnit embeds the unmatched symbols so failed decodes stay visible.
func unknownUnit(symbols string) Unit {
	return Unit{
		Text:    "?<" + symbols + ">",
		Symbols: symbols,
		Unknown: true,
	}
}

// SymbolBuffer accumulates the symbols of the character currently being formed.
type SymbolBuffer struct {
	b strings.Builder
}

// Append adds the rendered form of sym to the buffer.
func (sb *SymbolBuffer) Append(sym Symbol) {
	sb.b.WriteString(sym.Render())
}

// String returns the buffer content without clearing it.
func (sb *SymbolBuffer) String() string {
	return sb.b.String()
}

// Len returns the length of the rendered content.
func (sb *SymbolBuffer) Len() int {
	return sb.b.Len()
}

// Flush decodes and clears the buffer. An empty buffer yields ok == false.
func (sb *SymbolBuffer) Flush() (Unit, bool) {
	symbols := sb.b.String()
	sb.b.Reset()
	if symbols == "" {
		return Unit{}, false
	}
	if char, ok := Lookup(symbols); ok {
		return Unit{Text: char, Symbols: symbols}, true
	}
	return unknownUnit(symbols), true
}
