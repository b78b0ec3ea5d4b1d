package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatorRejectsMissingBuffer(t *testing.T) {
	v := NewValidator()

	assert.False(t, v.Validate(nil))
	assert.False(t, v.Validate(&Frame{Width: 100, Height: 100}))
}

func TestValidatorRejectsSmallFrames(t *testing.T) {
	v := NewValidator()

	assert.False(t, v.Validate(noiseFrame(49, 100)))
	assert.False(t, v.Validate(noiseFrame(100, 49)))
	assert.True(t, v.Validate(noiseFrame(50, 50)))
}

func TestValidatorRejectsBlackFrames(t *testing.T) {
	v := NewValidator()

	// Средняя интенсивность < 1 — отказ независимо от прочих свойств
	assert.False(t, v.Validate(uniformFrame(100, 100, 0)))

	almostBlack := uniformFrame(100, 100, 0)
	almostBlack.Set(0, 0, 200, 200, 200)
	assert.False(t, v.Validate(almostBlack))
}

func TestValidatorRejectsUniformFrames(t *testing.T) {
	v := NewValidator()

	// Яркий, но полностью однородный сигнал (крышка на объективе)
	assert.False(t, v.Validate(uniformFrame(100, 100, 128)))
}

func TestValidatorAcceptsNormalFrames(t *testing.T) {
	v := NewValidator()

	assert.True(t, v.Validate(noiseFrame(640, 480)))
}
