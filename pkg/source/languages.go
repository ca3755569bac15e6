// Package source turns source files into trees by parsing them with
// tree-sitter grammars. Languages are detected with enry.
package source

import (
	"path"
	"slices"
	"strings"
	"sync"
	"unsafe"

	golang "github.com/alexaandru/go-sitter-forest/go"
	"github.com/alexaandru/go-sitter-forest/java"
	"github.com/alexaandru/go-sitter-forest/javascript"
	"github.com/alexaandru/go-sitter-forest/python"
	sitter "github.com/alexaandru/go-tree-sitter-bare"
	"github.com/src-d/enry/v2"
)

// languageFuncs maps lower-cased enry language names to tree-sitter grammars.
var languageFuncs = map[string]func() unsafe.Pointer{
	"go":         golang.GetLanguage,
	"java":       java.GetLanguage,
	"javascript": javascript.GetLanguage,
	"python":     python.GetLanguage,
}

var languageCache sync.Map

// grammar returns the tree-sitter language for name, or nil if unsupported.
func grammar(name string) *sitter.Language {
	if cached, ok := languageCache.Load(name); ok {
		lang, castOK := cached.(*sitter.Language)
		if castOK {
			return lang
		}
	}

	fn, ok := languageFuncs[name]
	if !ok {
		return nil
	}

	lang := sitter.NewLanguage(fn())
	languageCache.Store(name, lang)

	return lang
}

// Languages returns the supported language names in sorted order.
func Languages() []string {
	names := make([]string, 0, len(languageFuncs))

	for name := range languageFuncs {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// IsSupported reports whether name is a supported language.
func IsSupported(name string) bool {
	_, ok := languageFuncs[name]

	return ok
}

// Detect returns the language of the named file, using content to
// disambiguate when the extension is not enough. It returns "" when the
// language cannot be parsed.
func Detect(filename string, content []byte) string {
	lang := strings.ToLower(enry.GetLanguage(path.Base(filename), content))
	if !IsSupported(lang) {
		return ""
	}

	return lang
}
