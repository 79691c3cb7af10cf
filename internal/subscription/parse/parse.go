// SPDX-License-Identifier: MIT

// Package parse implements the Parser plugin kind (spec §4.3): decoding raw
// subscription bytes into a []model.ParsedServer. Parsers must not raise on
// a malformed individual entry in tolerant mode; they record a *parse*
// PipelineError per entry and continue. In strict mode the first failure
// aborts the whole parse.
package parse

import (
	"github.com/sboxsync/sboxsync/internal/registry"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// Parser decodes raw bytes into a server list, recording per-entry failures
// on ctx according to ctx.Mode.
type Parser interface {
	Parse(raw []byte, ctx *model.PipelineContext) ([]model.ParsedServer, error)
}

// Constructor builds a stateless Parser.
type Constructor func() Parser

// Registry holds the parser namespace (spec §4.1), keyed by the names the
// detect package resolves a source-type hint to.
var Registry = registry.New[Constructor]("parser")

func init() {
	Registry.Register("base64", func() Parser { return NewURIListParser(true) })
	Registry.Register("uri_list", func() Parser { return NewURIListParser(false) })
	Registry.Register("json", func() Parser { return NewJSONParser() })
	Registry.Register("clash", func() Parser { return NewClashParser() })
}

// recordOrAbort is the shared tolerant/strict decision every parser makes
// per malformed entry: in tolerant mode it records the error on ctx and
// tells the caller to keep going; in strict mode it returns the error so
// the caller aborts immediately.
func recordOrAbort(ctx *model.PipelineContext, stage, message string, aux map[string]any) error {
	err := model.NewError(model.KindParse, stage, message)
	if aux != nil {
		err.Aux = aux
	}
	if ctx.Mode == model.ModeStrict {
		return err
	}
	ctx.AddError(err)
	return nil
}
