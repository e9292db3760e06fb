package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("ORCH_TEST_HOST", "memory.internal")
	t.Setenv("ORCH_TEST_PORT", "9000")

	in := []byte("url: ${ORCH_TEST_HOST}:$ORCH_TEST_PORT\nmissing: ${ORCH_TEST_UNSET}")
	out := ExpandEnv(in)

	assert.Equal(t, "url: memory.internal:9000\nmissing: ", string(out))
}
