package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFieldErrorsCollectsEveryRule(t *testing.T) {
	var fe FieldErrors

	fe.Required("name", "  ")
	fe.Email("email", "not-an-email")
	fe.MinLen("password", "abc", 6)
	fe.MaxLen("category", "abcdef", 3)
	fe.NonNegativeFloat("price", -1)
	fe.NonNegativeInt("stockQuantity", -2)
	fe.OneOf("sortOrder", "up", "asc", "desc")

	assert.False(t, fe.Empty())

	rules := map[string]string{}
	for _, e := range fe {
		rules[e.Field] = e.Rule
		assert.NotEmpty(t, e.Message)
	}

	assert.Equal(t, map[string]string{
		"name":          "required",
		"email":         "email",
		"password":      "min",
		"category":      "max",
		"price":         "gte",
		"stockQuantity": "gte",
		"sortOrder":     "oneof",
	}, rules)
}

func TestFieldErrorsPassingValues(t *testing.T) {
	var fe FieldErrors

	fe.Required("name", "Widget")
	fe.Email("email", "ada@example.com")
	fe.MinLen("password", "secret", 6)
	fe.MaxLen("category", "abc", 3)
	fe.NonNegativeFloat("price", 0)
	fe.NonNegativeInt("stockQuantity", 0)
	fe.OneOf("sortOrder", "asc", "asc", "desc")

	assert.True(t, fe.Empty())
	assert.Equal(t, "", fe.Error())
}

func TestMessage(t *testing.T) {
	assert.Equal(t, "must be one of asc, desc", Message("oneof", "asc desc"))
	assert.Equal(t, "failed uuid validation", Message("uuid", ""))
}
