package result

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructors(t *testing.T) {
	t.Parallel()

	ok := Success(42)
	assert.True(t, ok.IsSuccess())
	assert.Equal(t, 42, ok.Value)
	assert.Equal(t, "success", ok.Status.String())

	nf := NotFound[int]("task not found")
	assert.False(t, nf.IsSuccess())
	assert.Equal(t, StatusNotFound, nf.Status)
	assert.Equal(t, "task not found", nf.Message)
	assert.Zero(t, nf.Value)

	inv := Invalid[string](ValidationError{Identifier: "NewStatus", Message: "bad"})
	assert.Equal(t, StatusInvalid, inv.Status)
	assert.Equal(t, []ValidationError{{Identifier: "NewStatus", Message: "bad"}}, inv.Errors)

	assert.True(t, Ok().IsSuccess())
	assert.Equal(t, "unknown", Status(99).String())
}
