package application

import (
	"context"
	"testing"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresentationDirectoryPublishThenRead(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	directory := NewPresentationDirectory(store)

	want := domain.SessionAttributes{
		PresentationID:          "p-1",
		ActivityID:              "sess-1",
		ActivityName:            "Running",
		SessionStartEpochMillis: 1_760_000_000_123,
		Theme:                   domain.DefaultTheme(),
	}
	require.NoError(t, directory.Publish(context.Background(), want))

	got, err := directory.AttributesFor(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	value, ok, err := store.ReadValue(context.Background(), "p-1_session_start_timestamp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1760000000123", value)
}

func TestPresentationDirectoryMissingRecord(t *testing.T) {
	t.Parallel()

	directory := NewPresentationDirectory(newMemoryStore())

	_, err := directory.AttributesFor(context.Background(), "p-unknown")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingAttributes)

	var missing *domain.MissingAttributesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, domain.PresentationID("p-unknown"), missing.PresentationID)
	assert.Equal(t, domain.AttributeFields(), missing.Fields)
}

func TestPresentationDirectoryNeverDefaultsStartTimestamp(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	publishAttributes(store, "p-1", "sess-1")
	require.NoError(t, store.DeleteKeys(context.Background(), "p-1_session_start_timestamp"))

	_, err := NewPresentationDirectory(store).AttributesFor(context.Background(), "p-1")

	var missing *domain.MissingAttributesError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{domain.FieldSessionStartTimestamp}, missing.Fields)
}

func TestPresentationDirectoryUnparsableNumbersCountAsMissing(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	publishAttributes(store, "p-1", "sess-1")
	require.NoError(t, store.WriteValues(context.Background(), map[string]string{
		"p-1_timer_font_size":         "large",
		"p-1_session_start_timestamp": "yesterday",
	}))

	_, err := NewPresentationDirectory(store).AttributesFor(context.Background(), "p-1")

	var missing *domain.MissingAttributesError
	require.ErrorAs(t, err, &missing)
	assert.ElementsMatch(t, []string{domain.FieldSessionStartTimestamp, domain.FieldTimerFontSize}, missing.Fields)
}

func TestPresentationDirectoryEmptyActivityIDIsMissing(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	publishAttributes(store, "p-1", "sess-1")
	require.NoError(t, store.WriteValues(context.Background(), map[string]string{"p-1_activity_id": ""}))

	_, err := NewPresentationDirectory(store).AttributesFor(context.Background(), "p-1")
	assert.ErrorIs(t, err, domain.ErrMissingAttributes)
}

func TestPresentationDirectoryStoreFailureIsNotMissing(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.readErr = errStoreDown

	_, err := NewPresentationDirectory(store).AttributesFor(context.Background(), "p-1")
	require.ErrorIs(t, err, errStoreDown)
	assert.NotErrorIs(t, err, domain.ErrMissingAttributes)
}

func TestPresentationDirectoryPublishValidates(t *testing.T) {
	t.Parallel()

	directory := NewPresentationDirectory(newMemoryStore())

	err := directory.Publish(context.Background(), domain.SessionAttributes{PresentationID: "p-1"})
	assert.ErrorIs(t, err, domain.ErrInvalidActivityID)

	err = directory.Publish(context.Background(), domain.SessionAttributes{ActivityID: "sess-1"})
	assert.ErrorContains(t, err, "presentation id is required")
}

func TestPresentationDirectoryAttributeKeys(t *testing.T) {
	t.Parallel()

	keys := NewPresentationDirectory(newMemoryStore()).AttributeKeys("p-1")

	assert.Len(t, keys, len(domain.AttributeFields()))
	assert.Contains(t, keys, "p-1_activity_id")
	assert.Contains(t, keys, "p-1_text_color_alpha")
}
