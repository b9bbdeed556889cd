package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndHasCode(t *testing.T) {
	cause := errors.New("boom")
	inner := Wrap(cause, CodeMapping, "unmapped product")
	outer := Wrap(fmt.Errorf("condense: %w", inner), CodeInternal, "barcode generation failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeMapping))
	assert.False(t, HasCode(outer, CodeValidation))
	assert.True(t, Is(outer, CodeInternal))
	assert.False(t, Is(outer, CodeMapping))
	assert.ErrorIs(t, outer, cause)
	assert.Equal(t, "barcode generation failed: condense: unmapped product: boom", outer.Error())
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "ignored"))
}

func TestCodeOfUncoded(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad subject")))
}
