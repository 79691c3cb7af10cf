// SPDX-License-Identifier: MIT

package validate

import (
	"fmt"

	"github.com/sboxsync/sboxsync/internal/subscription/model"
)

// SizeMagicValidator enforces a raw byte-size bound (spec §4.4's raw
// validator tier). It checks only the payload length; leading ("magic")
// bytes and the encoding are not inspected. A zero maxBytes disables the
// upper bound.
type SizeMagicValidator struct {
	minBytes int
	maxBytes int
}

// NewSizeMagicValidator builds a SizeMagicValidator. maxBytes == 0 means
// unbounded.
func NewSizeMagicValidator(minBytes, maxBytes int) *SizeMagicValidator {
	return &SizeMagicValidator{minBytes: minBytes, maxBytes: maxBytes}
}

// ValidateRaw implements RawValidator.
func (v *SizeMagicValidator) ValidateRaw(raw []byte, ctx *model.PipelineContext) error {
	n := len(raw)
	if n < v.minBytes {
		return v.record(ctx, fmt.Sprintf("payload too small: %d bytes (minimum %d)", n, v.minBytes))
	}
	if v.maxBytes > 0 && n > v.maxBytes {
		return v.record(ctx, fmt.Sprintf("payload too large: %d bytes (maximum %d)", n, v.maxBytes))
	}
	return nil
}

func (v *SizeMagicValidator) record(ctx *model.PipelineContext, message string) error {
	err := model.NewError(model.KindRawValidate, "validate.raw", message)
	// Fatal in strict, non-fatal in tolerant (spec §7): caller decides by
	// mode, but since a raw-validate failure here means "don't even try to
	// parse", we surface the error either way and let the coordinator act
	// on ctx.Mode.
	ctx.AddError(err)
	if ctx.Mode == model.ModeStrict {
		return err
	}
	return nil
}
