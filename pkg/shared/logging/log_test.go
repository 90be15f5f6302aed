package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContext(t *testing.T) {
	l := NewNopLogger().Named("test")
	ctx := WithLogger(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestNewLoggerDebug(t *testing.T) {
	t.Setenv(envDebug, "true")
	assert.NotNil(t, NewLogger())
}
