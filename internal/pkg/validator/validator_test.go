package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

func TestValidateUsesJSONNames(t *testing.T) {
	errs := Validate(sample{Email: "not-an-email"})
	assert.Equal(t, map[string]string{"name": "required", "email": "email"}, errs)

	assert.Nil(t, Validate(sample{Name: "A", Email: "a@x.com"}))
}
