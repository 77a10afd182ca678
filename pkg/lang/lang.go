// Package lang registers the languages that ship with atncomplete.
package lang

import (
	"context"

	"github.com/walteh/atncomplete/pkg/lang/blocks"
	"github.com/walteh/atncomplete/pkg/language"
)

// Builtin returns a registry holding every bundled language.
func Builtin(ctx context.Context) (*language.Registry, error) {
	return language.NewRegistry(ctx, blocks.Language())
}
