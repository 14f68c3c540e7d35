package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAttributeKeyIsNamespacedByPresentation(t *testing.T) {
	assert.Equal(t, "p-1_activity_id", AttributeKey("p-1", FieldActivityID))
	assert.Equal(t, "p-1_session_start_timestamp", AttributeKey("p-1", FieldSessionStartTimestamp))
}

func TestAttributeFieldsIncludeColorComponents(t *testing.T) {
	fields := AttributeFields()

	assert.Len(t, fields, 3+3*4+4)
	assert.Contains(t, fields, "background_color_red")
	assert.Contains(t, fields, "button_color_alpha")
	assert.Contains(t, fields, FieldPadding)
	assert.Equal(t, FieldActivityID, fields[0])
}

func TestSessionAttributesElapsed(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	attrs := SessionAttributes{SessionStartEpochMillis: start.UnixMilli()}

	assert.Equal(t, 90*time.Second, attrs.Elapsed(start.Add(90*time.Second)))
	assert.Equal(t, time.Duration(0), attrs.Elapsed(start.Add(-time.Minute)), "clock skew must not go negative")
}

func TestColorComponentsRoundTrip(t *testing.T) {
	c := Color{Red: 0.1, Green: 0.2, Blue: 0.3, Alpha: 1}
	assert.Equal(t, c, ColorFromComponents(c.Components()))
}
