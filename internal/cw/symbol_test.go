package cw

import (
	"strings"
	"testing"
)

func TestSymbol_Render(t *testing.T) {
	tests := []struct {
		sym  Symbol
		want string
	}{
		{SymbolDit, "."},
		{SymbolDah, "-"},
		{SymbolIntraCharSpace, ""},
		{SymbolInterCharSpace, ""},
		{SymbolInterWordSpace, " "},
	}
	for _, tt := range tests {
		if got := tt.sym.Render(); got != tt.want {
			t.Errorf("Symbol(%d).Render() = %q, want %q", tt.sym, got, tt.want)
		}
	}
}

func TestSymbol_RenderUnknownPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Render() on unknown symbol did not panic")
		}
	}()
	Symbol(99).Render()
}

func TestSymbolBuffer_FlushEmpty(t *testing.T) {
	var sb SymbolBuffer
	if u, ok := sb.Flush(); ok {
		t.Errorf("Flush() on empty buffer = %+v, want none", u)
	}

	// Markers that render empty leave the buffer empty too.
	sb.Append(SymbolIntraCharSpace)
	sb.Append(SymbolInterCharSpace)
	if u, ok := sb.Flush(); ok {
		t.Errorf("Flush() with only empty markers = %+v, want none", u)
	}
}

func TestSymbolBuffer_FlushDecodes(t *testing.T) {
	var sb SymbolBuffer
	sb.Append(SymbolDit)
	sb.Append(SymbolIntraCharSpace)
	sb.Append(SymbolDah)
	if got := sb.String(); got != ".-" {
		t.Fatalf("String() = %q, want %q", got, ".-")
	}

	u, ok := sb.Flush()
	if !ok {
		t.Fatal("Flush() returned none")
	}
	if u.Text != "a" || u.Symbols != ".-" || u.Unknown {
		t.Errorf("Flush() = %+v, want a from .-", u)
	}
	if sb.Len() != 0 {
		t.Errorf("Len() after Flush() = %d, want 0", sb.Len())
	}
}

func TestSymbolBuffer_FlushUnknown(t *testing.T) {
	var sb SymbolBuffer
	for i := 0; i < 6; i++ {
		sb.Append(SymbolDit)
	}
	u, ok := sb.Flush()
	if !ok {
		t.Fatal("Flush() returned none for unknown symbols")
	}
	if !u.Unknown {
		t.Error("Unknown = false, want true")
	}
	if !strings.Contains(u.Text, "......") {
		t.Errorf("Text = %q, want it to contain the raw symbols", u.Text)
	}
	if u.String() != "?<......>" {
		t.Errorf("String() = %q, want %q", u.String(), "?<......>")
	}
}

func TestSymbolBuffer_WordSpace(t *testing.T) {
	var sb SymbolBuffer
	sb.Append(SymbolInterWordSpace)
	u, ok := sb.Flush()
	if !ok || u.Text != " " || u.Unknown {
		t.Errorf("Flush() = %+v, %v; want a space", u, ok)
	}
}
