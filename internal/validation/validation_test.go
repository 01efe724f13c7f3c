package validation

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/blog-api/internal/httperror"
)

type sample struct {
	Email  string `json:"email" validate:"required,email"`
	Title  string `form:"title" validate:"max=5"`
	Status string `json:"status" validate:"omitempty,oneof=draft published"`
	Limit  int    `query:"limit" validate:"omitempty,min=1,max=50"`
}

func TestValidatePasses(t *testing.T) {
	err := New().Validate(&sample{Email: "a@b.io", Title: "ok", Status: "draft", Limit: 10})
	assert.NoError(t, err)
}

func TestValidateReportsFieldsByTagName(t *testing.T) {
	err := New().Validate(&sample{Email: "nope", Title: "too long", Status: "archived", Limit: 99})
	require.Error(t, err)

	var he *httperror.Error
	require.True(t, errors.As(err, &he))
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, httperror.CodeValidation, he.Code)
	assert.Equal(t, "Email must be a valid email address.", he.Fields["email"])
	assert.Equal(t, "Title must be less than 5 characters.", he.Fields["title"])
	assert.Equal(t, "Status must be one of: draft, published.", he.Fields["status"])
	assert.Equal(t, "Limit must be at most 50.", he.Fields["limit"])
	assert.Equal(t, he.Fields["email"], he.Message)
}

func TestValidateRequired(t *testing.T) {
	err := New().Validate(&sample{})
	var he *httperror.Error
	require.True(t, errors.As(err, &he))
	assert.Equal(t, "Email is required.", he.Fields["email"])
}
