package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_WrappedFailure(t *testing.T) {
	err := fmt.Errorf("save basket: %w", StorageFailure("disk full", errors.New("ENOSPC")))

	got := Classify(err)
	assert.Equal(t, ErrStorageFailure, got.Type)
	assert.Equal(t, "disk full", got.Message)
	assert.True(t, got.Retryable)
}

func TestClassify_ValidationKeepsField(t *testing.T) {
	got := Classify(ValidationFailure("quantity", "not a whole number"))

	assert.Equal(t, ErrValidationFailure, got.Type)
	assert.Equal(t, "quantity", got.Field)
	assert.False(t, got.Retryable)
}

func TestClassify_UntypedIsNetwork(t *testing.T) {
	got := Classify(errors.New("connection refused"))
	assert.Equal(t, ErrNetworkFailure, got.Type)
	assert.True(t, got.Retryable)

	got = Classify(fmt.Errorf("load: %w", context.DeadlineExceeded))
	assert.Equal(t, ErrNetworkFailure, got.Type)
	assert.Equal(t, "request timed out", got.Message)
}

func TestFailure_Error(t *testing.T) {
	assert.Equal(t, "NOT_FOUND: product p9", NotFoundFailure("product p9").Error())
	assert.Equal(t, "NETWORK_FAILURE: catalog: refused",
		NetworkFailure("catalog", errors.New("refused")).Error())
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("wrap: %w", AuthenticationRequired("sign in to check out"))
	assert.True(t, IsType(err, ErrAuthenticationRequired))
	assert.False(t, IsType(err, ErrNotFound))
	assert.False(t, IsType(errors.New("plain"), ErrNotFound))
}
