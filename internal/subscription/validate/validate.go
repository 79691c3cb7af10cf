// SPDX-License-Identifier: MIT

// Package validate implements the two validator plugin kinds of spec §4.4:
// raw validators (pre-parse sanity on the fetched bytes) and parsed
// validators (post-parse, protocol-specific required-fields checks).
package validate

import (
	"github.com/sboxsync/sboxsync/internal/registry"
	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// RawValidator sanity-checks the fetched bytes before detection/parsing.
type RawValidator interface {
	ValidateRaw(raw []byte, ctx *model.PipelineContext) error
}

// RawConstructor builds a stateless RawValidator.
type RawConstructor func() RawValidator

// RawRegistry holds the raw-validator namespace.
var RawRegistry = registry.New[RawConstructor]("raw_validator")

func init() {
	RawRegistry.Register("noop", func() RawValidator { return NoopRaw{} })
	RawRegistry.Register("size_magic", func() RawValidator { return NewSizeMagicValidator(0, 0) })
}

// NoopRaw is the default raw validator: it accepts anything (spec §4.4).
type NoopRaw struct{}

// ValidateRaw implements RawValidator.
func (NoopRaw) ValidateRaw(_ []byte, _ *model.PipelineContext) error { return nil }

// Result is the parsed-validator outcome (spec §4.4): "{valid, errors,
// valid_servers}".
type Result struct {
	Valid        bool
	Errors       []*model.PipelineError
	ValidServers []model.ParsedServer
}

// ParsedValidator checks protocol-specific required fields after parsing.
type ParsedValidator interface {
	ValidateParsed(servers []model.ParsedServer, ctx *model.PipelineContext) Result
}

// ParsedConstructor builds a stateless ParsedValidator.
type ParsedConstructor func() ParsedValidator

// ParsedRegistry holds the parsed-validator namespace.
var ParsedRegistry = registry.New[ParsedConstructor]("parsed_validator")

func init() {
	ParsedRegistry.Register("required_fields", func() ParsedValidator { return RequiredFieldsValidator{} })
}

// RequiredFieldsValidator enforces ParsedServer.RequiredFieldsOK() per
// server, applying the strict/tolerant policy of spec §4.4: strict mode
// keeps every server (valid and invalid) plus the full error list for
// diagnostics; tolerant mode keeps only the servers that passed and
// mirrors the errors into ctx.Metadata["errors"].
type RequiredFieldsValidator struct{}

// ValidateParsed implements ParsedValidator.
func (RequiredFieldsValidator) ValidateParsed(servers []model.ParsedServer, ctx *model.PipelineContext) Result {
	var errs []*model.PipelineError
	var valid []model.ParsedServer

	for i, s := range servers {
		if s.RequiredFieldsOK() {
			valid = append(valid, s)
			continue
		}
		err := model.NewError(model.KindParsedValidate, "validate.parsed",
			"server missing required fields for type "+s.Type)
		err.Aux = map[string]any{"index": i, "type": s.Type, "address": s.Address}
		errs = append(errs, err)
	}

	if ctx.Mode == model.ModeStrict {
		for _, err := range errs {
			ctx.AddError(err)
		}
		return Result{Valid: len(errs) == 0, Errors: errs, ValidServers: servers}
	}

	for _, err := range errs {
		ctx.AddError(err)
	}
	return Result{Valid: len(errs) == 0, Errors: errs, ValidServers: valid}
}
