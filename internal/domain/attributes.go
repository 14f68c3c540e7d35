package domain

import "time"

const (
	FieldActivityID            = "activity_id"
	FieldActivityName          = "activity_name"
	FieldSessionStartTimestamp = "session_start_timestamp"
	FieldBackgroundOpacity     = "background_opacity"
	FieldNameFontSize          = "name_font_size"
	FieldTimerFontSize         = "timer_font_size"
	FieldPadding               = "padding"
)

// Color names; each is stored as four float components.
const (
	ColorBackground = "background_color"
	ColorText       = "text_color"
	ColorButton     = "button_color"
)

var colorComponents = [...]string{"red", "green", "blue", "alpha"}

type Color struct {
	Red   float64
	Green float64
	Blue  float64
	Alpha float64
}

func (c Color) Components() [4]float64 {
	return [4]float64{c.Red, c.Green, c.Blue, c.Alpha}
}

func ColorFromComponents(v [4]float64) Color {
	return Color{Red: v[0], Green: v[1], Blue: v[2], Alpha: v[3]}
}

type Theme struct {
	BackgroundColor   Color
	TextColor         Color
	ButtonColor       Color
	BackgroundOpacity float64
	NameFontSize      float64
	TimerFontSize     float64
	Padding           float64
}

func DefaultTheme() Theme {
	return Theme{
		BackgroundColor:   Color{Red: 0.11, Green: 0.11, Blue: 0.12, Alpha: 1},
		TextColor:         Color{Red: 1, Green: 1, Blue: 1, Alpha: 1},
		ButtonColor:       Color{Red: 0.90, Green: 0.22, Blue: 0.21, Alpha: 1},
		BackgroundOpacity: 0.85,
		NameFontSize:      17,
		TimerFontSize:     28,
		Padding:           12,
	}
}

type SessionAttributes struct {
	PresentationID          PresentationID
	ActivityID              ActivityID
	ActivityName            string
	SessionStartEpochMillis int64
	Theme                   Theme
}

func (a SessionAttributes) StartedAt() time.Time {
	return time.UnixMilli(a.SessionStartEpochMillis)
}

func (a SessionAttributes) Elapsed(now time.Time) time.Duration {
	elapsed := now.Sub(a.StartedAt())
	if elapsed < 0 {
		return 0
	}

	return elapsed
}

// AttributeKey namespaces a field under a presentation instance id.
func AttributeKey(id PresentationID, field string) string {
	return string(id) + "_" + field
}

// ColorFields lists the four component field names of a color.
func ColorFields(color string) [4]string {
	var fields [4]string
	for i, component := range colorComponents {
		fields[i] = color + "_" + component
	}

	return fields
}

// AttributeFields lists every field a presentation record must carry.
func AttributeFields() []string {
	fields := []string{
		FieldActivityID,
		FieldActivityName,
		FieldSessionStartTimestamp,
	}
	for _, color := range []string{ColorBackground, ColorText, ColorButton} {
		components := ColorFields(color)
		fields = append(fields, components[:]...)
	}

	return append(fields,
		FieldBackgroundOpacity,
		FieldNameFontSize,
		FieldTimerFontSize,
		FieldPadding,
	)
}
