// internal/cw/morse.go
// Package cw decodes an on/off keying line into Morse characters using only
// the relative durations of pulses and gaps at a configured speed.
package cw

// Rendered forms of the symbol tokens. The two character-internal spaces render
// as nothing and only mark intent in the buffer.
const (
	SymbolDitText            = "."
	SymbolDahText            = "-"
	SymbolIntraCharSpaceText = ""
	SymbolInterCharSpaceText = ""
	SymbolInterWordSpaceText = " "

	// SOS is the only prosign in the table and decodes to a bracketed name
	SOS = "<SOS>"
)

// codeTable maps rendered symbol strings to decoded characters.
// It is never written after package initialization.
var codeTable = map[string]string{
	SymbolInterWordSpaceText: " ",

	".-":   "a",
	"-...": "b",
	"-.-.": "c",
	"-..":  "d",
	".":    "e",
	"..-.": "f",
	"--.":  "g",
	"....": "h",
	"..":   "i",
	".---": "j",
	"-.-":  "k",
	".-..": "l",
	"--":   "m",
	"-.":   "n",
	"---":  "o",
	".--.": "p",
	"--.-": "q",
	".-.":  "r",
	"...":  "s",
	"-":    "t",
	"..-":  "u",
	"...-": "v",
	".--":  "w",
	"-..-": "x",
	"-.--": "y",
	"--..": "z",

	".----": "1",
	"..---": "2",
	"...--": "3",
	"....-": "4",
	".....": "5",
	"-....": "6",
	"--...": "7",
	"---..": "8",
	"----.": "9",
	"-----": "0",

	"...---...": SOS,
}

// Lookup returns the character for a rendered symbol string.
// It never invents output: unknown strings report ok == false.
func Lookup(symbols string) (char string, ok bool) {
	char, ok = codeTable[symbols]
	return char, ok
}

// tableSize returns the number of entries in the code table.
func tableSize() int {
	return len(codeTable)
}
