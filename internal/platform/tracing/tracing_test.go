package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSpanHelpersWithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.span", attribute.String("application_id", "APP-1"))
	assert.NotNil(t, ctx)

	assert.NotPanics(t, func() {
		EndSpan(span, errors.New("boom"))
	})
}
