package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bnema/activity-ledger/internal/domain"
	"github.com/bnema/activity-ledger/internal/ports"
)

// A missing attribute field is never defaulted.
type PresentationDirectory struct {
	store ports.SharedStore
}

func NewPresentationDirectory(store ports.SharedStore) *PresentationDirectory {
	return &PresentationDirectory{store: store}
}

func (d *PresentationDirectory) AttributesFor(ctx context.Context, id domain.PresentationID) (domain.SessionAttributes, error) {
	r := attributeReader{ctx: ctx, store: d.store, id: id}

	attrs := domain.SessionAttributes{
		PresentationID:          id,
		ActivityID:              domain.ActivityID(r.text(domain.FieldActivityID)),
		ActivityName:            r.text(domain.FieldActivityName),
		SessionStartEpochMillis: r.integer(domain.FieldSessionStartTimestamp),
		Theme: domain.Theme{
			BackgroundColor:   r.color(domain.ColorBackground),
			TextColor:         r.color(domain.ColorText),
			ButtonColor:       r.color(domain.ColorButton),
			BackgroundOpacity: r.float(domain.FieldBackgroundOpacity),
			NameFontSize:      r.float(domain.FieldNameFontSize),
			TimerFontSize:     r.float(domain.FieldTimerFontSize),
			Padding:           r.float(domain.FieldPadding),
		},
	}

	if r.err != nil {
		return domain.SessionAttributes{}, fmt.Errorf("read attributes for presentation %q: %w", id, r.err)
	}
	if len(r.missing) > 0 {
		return domain.SessionAttributes{}, &domain.MissingAttributesError{PresentationID: id, Fields: r.missing}
	}

	return attrs, nil
}

// Publish writes every attribute field in one store write. Only the session
// start path calls it.
func (d *PresentationDirectory) Publish(ctx context.Context, attrs domain.SessionAttributes) error {
	if err := attrs.ActivityID.Validate(); err != nil {
		return err
	}
	if attrs.PresentationID == "" {
		return fmt.Errorf("publish attributes: presentation id is required")
	}

	id := attrs.PresentationID
	values := map[string]string{
		domain.AttributeKey(id, domain.FieldActivityID):            string(attrs.ActivityID),
		domain.AttributeKey(id, domain.FieldActivityName):          attrs.ActivityName,
		domain.AttributeKey(id, domain.FieldSessionStartTimestamp): strconv.FormatInt(attrs.SessionStartEpochMillis, 10),
		domain.AttributeKey(id, domain.FieldBackgroundOpacity):     formatFloat(attrs.Theme.BackgroundOpacity),
		domain.AttributeKey(id, domain.FieldNameFontSize):          formatFloat(attrs.Theme.NameFontSize),
		domain.AttributeKey(id, domain.FieldTimerFontSize):         formatFloat(attrs.Theme.TimerFontSize),
		domain.AttributeKey(id, domain.FieldPadding):               formatFloat(attrs.Theme.Padding),
	}
	for name, color := range map[string]domain.Color{
		domain.ColorBackground: attrs.Theme.BackgroundColor,
		domain.ColorText:       attrs.Theme.TextColor,
		domain.ColorButton:     attrs.Theme.ButtonColor,
	} {
		components := color.Components()
		for i, field := range domain.ColorFields(name) {
			values[domain.AttributeKey(id, field)] = formatFloat(components[i])
		}
	}

	if err := d.store.WriteValues(ctx, values); err != nil {
		return fmt.Errorf("publish attributes for presentation %q: %w", id, err)
	}

	return nil
}

func (d *PresentationDirectory) Unpublish(ctx context.Context, id domain.PresentationID) error {
	if err := d.store.DeleteKeys(ctx, d.AttributeKeys(id)...); err != nil {
		return fmt.Errorf("delete attributes for presentation %q: %w", id, err)
	}

	return nil
}

func (d *PresentationDirectory) AttributeKeys(id domain.PresentationID) []string {
	fields := domain.AttributeFields()
	keys := make([]string, 0, len(fields))
	for _, field := range fields {
		keys = append(keys, domain.AttributeKey(id, field))
	}

	return keys
}

// attributeReader collects missing fields instead of stopping at the first
// one so the error names all of them.
type attributeReader struct {
	ctx     context.Context
	store   ports.SharedStore
	id      domain.PresentationID
	missing []string
	err     error
}

func (r *attributeReader) raw(field string) (string, bool) {
	if r.err != nil {
		return "", false
	}

	value, ok, err := r.store.ReadValue(r.ctx, domain.AttributeKey(r.id, field))
	if err != nil {
		r.err = err
		return "", false
	}
	if !ok {
		r.missing = append(r.missing, field)
		return "", false
	}

	return value, true
}

func (r *attributeReader) text(field string) string {
	value, ok := r.raw(field)
	if ok && value == "" && field == domain.FieldActivityID {
		r.missing = append(r.missing, field)
	}

	return value
}

func (r *attributeReader) integer(field string) int64 {
	value, ok := r.raw(field)
	if !ok {
		return 0
	}

	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		r.missing = append(r.missing, field)
		return 0
	}

	return parsed
}

func (r *attributeReader) float(field string) float64 {
	value, ok := r.raw(field)
	if !ok {
		return 0
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.missing = append(r.missing, field)
		return 0
	}

	return parsed
}

func (r *attributeReader) color(name string) domain.Color {
	var components [4]float64
	for i, field := range domain.ColorFields(name) {
		components[i] = r.float(field)
	}

	return domain.ColorFromComponents(components)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
