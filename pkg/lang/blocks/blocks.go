package blocks

import (
	"sync"

	"github.com/walteh/atncomplete/pkg/language"
	"github.com/walteh/atncomplete/pkg/lexer"
	"github.com/walteh/atncomplete/pkg/scope"
	"github.com/walteh/atncomplete/pkg/tree"
)

// Name is the registry name of the language.
const Name = "blocks"

var definition = sync.OnceValue(func() *language.Definition {
	vocab := newVocabulary()
	return &language.Definition{
		Name:       Name,
		Extensions: []string{".blk", ".blocks"},
		Network:    newNetwork(vocab),
		Tokenizer:  lexer.MustTokenizer(vocab, lexerRules),
		Trees:      NewParser(vocab),
		Scopes: scope.Rules{
			Scopes: map[tree.Kind]scope.Kind{
				KindBlock:    scope.KindBlock,
				KindFuncDecl: scope.KindFunction,
			},
			Declarations: map[tree.Kind]string{
				KindVarDecl:  "variable",
				KindFuncDecl: "function",
				KindParam:    "parameter",
			},
			Identifier: vocab.MustLookup(IDENT),
		},
		References: []tree.Kind{KindRef},
		Member:     vocab.MustLookup(DOT),
	}
})

// Language returns the shared, immutable definition of the language.
func Language() *language.Definition {
	return definition()
}
