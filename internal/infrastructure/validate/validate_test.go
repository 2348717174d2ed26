package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequired(t *testing.T) {
	v := Required()
	assert.Error(t, v(""))
	assert.Error(t, v("   "))
	assert.NoError(t, v("ok"))
}

func TestFieldNamesTheError(t *testing.T) {
	v := Field("status", Required())
	err := v("")
	assert.ErrorContains(t, err, "status")
}

func TestCompose(t *testing.T) {
	v := Compose(Required(), MinLength(3), MaxLength(5))
	assert.Error(t, v(""))
	assert.Error(t, v("ab"))
	assert.Error(t, v("toolong"))
	assert.NoError(t, v("four"))
}

func TestOneOf(t *testing.T) {
	v := OneOf("OPEN", "RESOLVED")
	assert.NoError(t, v("OPEN"))
	assert.Error(t, v("open"))
	assert.Error(t, v("CLOSED"))
}

func TestNoSpaces(t *testing.T) {
	v := NoSpaces()
	assert.NoError(t, v("project-1"))
	assert.Error(t, v("project 1"))
}
