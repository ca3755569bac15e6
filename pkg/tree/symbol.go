package tree

import "sync"

// Symbol is an interned node type label. Two symbols are equal if and only if
// they were obtained for the same name, so comparisons are pointer compares.
// The zero value is [NoSymbol].
type Symbol struct {
	sym *symbol
}

type symbol struct {
	name string
}

// NoSymbol is the empty type label.
//
//nolint:gochecknoglobals // Canonical empty symbol.
var NoSymbol = Symbol{}

//nolint:gochecknoglobals // Process-wide symbol table.
var symbolTable sync.Map

// SymbolFor returns the canonical symbol for name.
func SymbolFor(name string) Symbol {
	if name == "" {
		return NoSymbol
	}

	if cached, ok := symbolTable.Load(name); ok {
		if sym, castOK := cached.(*symbol); castOK {
			return Symbol{sym: sym}
		}
	}

	actual, _ := symbolTable.LoadOrStore(name, &symbol{name: name})

	sym, _ := actual.(*symbol)

	return Symbol{sym: sym}
}

// IsEmpty reports whether s is [NoSymbol].
func (s Symbol) IsEmpty() bool {
	return s.sym == nil
}

// String returns the symbol name.
func (s Symbol) String() string {
	if s.sym == nil {
		return ""
	}

	return s.sym.name
}
