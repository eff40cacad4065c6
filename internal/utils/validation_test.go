package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/fleet-manager/backend/internal/domain"
)

type sampleRequest struct {
	Name   string `json:"name" validate:"required"`
	Role   string `json:"role" validate:"oneof=admin manager driver"`
	Amount int64  `json:"amount" validate:"gt=0"`
}

func TestValidatorStruct(t *testing.T) {
	v, err := NewValidator()
	require.NoError(t, err)

	require.NoError(t, v.Struct(sampleRequest{Name: "张三", Role: "driver", Amount: 1}))

	err = v.Struct(sampleRequest{Role: "boss"})
	var errs domain.Errors
	require.ErrorAs(t, err, &errs)
	require.Len(t, errs, 3)

	byField := map[string]domain.FieldError{}
	for _, fe := range errs {
		byField[fe.Field] = fe
	}
	assert.Equal(t, domain.CodeBlank, byField["name"].Code)
	assert.Equal(t, domain.CodeInclusion, byField["role"].Code)
	assert.Equal(t, domain.CodeGreaterThan, byField["amount"].Code)
	assert.NotEmpty(t, byField["name"].Message)
}

func TestGenerateRandomOTP(t *testing.T) {
	otp := GenerateRandomOTP()
	assert.Len(t, otp, 6)
	for _, r := range otp {
		assert.True(t, r >= '0' && r <= '9')
	}
}
