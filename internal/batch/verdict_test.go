package batch

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerdictConstructors(t *testing.T) {
	v := Valid([]int{1, 2})
	assert.Equal(t, VerdictValid, v.Kind)
	assert.Equal(t, []int{1, 2}, v.Value)
	assert.NoError(t, v.Err)

	cause := errors.New("missing field")
	v = Correctable(cause)
	assert.Equal(t, VerdictCorrectable, v.Kind)
	assert.ErrorIs(t, v.Err, cause)

	v = Exhausted(ErrFormatExhausted)
	assert.Equal(t, VerdictExhausted, v.Kind)
	assert.ErrorIs(t, v.Err, ErrFormatExhausted)
	assert.Nil(t, v.Value)
}
