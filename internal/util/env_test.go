package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetenvFallback(t *testing.T) {
	assert.Equal(t, "fallback", Getenv("ZYNQ_DOES_NOT_EXIST", "fallback"))
}

func TestGetenvSet(t *testing.T) {
	t.Setenv("ZYNQ_TEST_VAR", "value")
	assert.Equal(t, "value", Getenv("ZYNQ_TEST_VAR", "fallback"))
}
