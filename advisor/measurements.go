package advisor

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Measurements are the soil and climate readings of one ranking request.
type Measurements struct {
	Nitrogen    float64 `json:"nitrogen" validate:"gte=0,lte=200"`
	Phosphorus  float64 `json:"phosphorus" validate:"gte=0,lte=200"`
	Potassium   float64 `json:"potassium" validate:"gte=0,lte=200"`
	Temperature float64 `json:"temperature" validate:"gte=0,lte=50"`
	Humidity    float64 `json:"humidity" validate:"gte=0,lte=100"`
	PH          float64 `json:"ph" validate:"gte=0,lte=14"`
	Rainfall    float64 `json:"rainfall" validate:"gte=0,lte=500"`
}

// Field describes one input of the measurement form.
type Field struct {
	Key     string  `json:"key"`
	Label   string  `json:"label"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
	Integer bool    `json:"integer"`
}

// Fields lists the inputs in classifier feature order.
var Fields = []Field{
	{Key: "nitrogen", Label: "Nitrogen (N)", Min: 0, Max: 200, Default: 50, Integer: true},
	{Key: "phosphorus", Label: "Phosphorus (P)", Min: 0, Max: 200, Default: 50, Integer: true},
	{Key: "potassium", Label: "Potassium (K)", Min: 0, Max: 200, Default: 50, Integer: true},
	{Key: "temperature", Label: "Temperature (°C)", Min: 0, Max: 50, Default: 25.0},
	{Key: "humidity", Label: "Humidity (%)", Min: 0, Max: 100, Default: 60.0},
	{Key: "ph", Label: "pH Level", Min: 0, Max: 14, Default: 6.5},
	{Key: "rainfall", Label: "Rainfall (mm)", Min: 0, Max: 500, Default: 100.0},
}

// DefaultMeasurements returns the form defaults.
func DefaultMeasurements() Measurements {
	m, _ := MeasurementsFromValues(defaultValues())
	return m
}

func defaultValues() []float64 {
	out := make([]float64, len(Fields))
	for i, f := range Fields {
		out[i] = f.Default
	}
	return out
}

// MeasurementsFromValues builds Measurements from values in Fields order.
func MeasurementsFromValues(values []float64) (Measurements, error) {
	if len(values) != len(Fields) {
		return Measurements{}, fmt.Errorf("expected %d values, got %d", len(Fields), len(values))
	}
	return Measurements{
		Nitrogen:    values[0],
		Phosphorus:  values[1],
		Potassium:   values[2],
		Temperature: values[3],
		Humidity:    values[4],
		PH:          values[5],
		Rainfall:    values[6],
	}, nil
}

// Values returns the readings in Fields order.
func (m Measurements) Values() []float64 {
	return []float64{m.Nitrogen, m.Phosphorus, m.Potassium, m.Temperature, m.Humidity, m.PH, m.Rainfall}
}

// Features returns the classifier input vector: N, P, K, temperature,
// humidity, pH, rainfall.
func (m Measurements) Features() []float32 {
	vals := m.Values()
	out := make([]float32, len(vals))
	for i, v := range vals {
		out[i] = float32(v)
	}
	return out
}

// Clamp pulls every reading into its allowed range. Integer fields are rounded.
// NaN readings fall back to the field default.
func (m Measurements) Clamp() Measurements {
	vals := m.Values()
	for i, f := range Fields {
		vals[i] = f.Clamp(vals[i])
	}
	out, _ := MeasurementsFromValues(vals)
	return out
}

// Clamp pulls v into [Min, Max].
func (f Field) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return f.Default
	}
	if f.Integer {
		v = math.Round(v)
	}
	return math.Max(f.Min, math.Min(f.Max, v))
}

// Format renders v the way the form shows it: integers without a fraction,
// decimals with at least one fractional digit.
func (f Field) Format(v float64) string {
	if f.Integer {
		return strconv.FormatFloat(math.Round(v), 'f', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Parse reads a form value and clamps it into range.
func (f Field) Parse(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return f.Default, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", f.Label, raw)
	}
	return f.Clamp(v), nil
}

// FieldByKey looks up a field by its key.
func FieldByKey(key string) (Field, int, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for i, f := range Fields {
		if f.Key == key {
			return f, i, true
		}
	}
	return Field{}, -1, false
}

// Fingerprint is a stable textual key for the readings.
func (m Measurements) Fingerprint() string {
	vals := m.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, "|")
}
