package model

// Feature names produced by the feature builder and consumed by the
// recursive forecaster.
const (
	FeatureHour         = "hour"
	FeatureLag1         = "lag_1"
	FeatureLag24        = "lag_24"
	FeatureRollingMean3 = "rolling_mean_3"
	FeatureDayOfWeek    = "day_of_week"
	FeatureIsWeekend    = "is_weekend"

	// StationFeaturePrefix prefixes one-hot station columns, e.g. "station_id_S1".
	StationFeaturePrefix = "station_id_"
)

// FeatureVector is an ordered name to value mapping whose order matches a
// predictor schema. The zero value is an empty vector.
type FeatureVector struct {
	names  []string
	values []float64
	index  map[string]int
}

// NewFeatureVector returns a zero-filled vector for the given schema.
// Duplicate names keep their first position.
func NewFeatureVector(schema []string) FeatureVector {
	v := FeatureVector{
		names:  make([]string, 0, len(schema)),
		values: make([]float64, 0, len(schema)),
		index:  make(map[string]int, len(schema)),
	}
	for _, n := range schema {
		if _, ok := v.index[n]; ok {
			continue
		}
		v.index[n] = len(v.names)
		v.names = append(v.names, n)
		v.values = append(v.values, 0)
	}
	return v
}

// Len returns the number of features.
func (v FeatureVector) Len() int { return len(v.names) }

// Has reports whether the feature is part of the schema.
func (v FeatureVector) Has(name string) bool {
	_, ok := v.index[name]
	return ok
}

// Get returns the feature value and whether it exists.
func (v FeatureVector) Get(name string) (float64, bool) {
	i, ok := v.index[name]
	if !ok {
		return 0, false
	}
	return v.values[i], true
}

// Set updates an existing feature. Names outside the schema are ignored and
// reported with false.
func (v FeatureVector) Set(name string, value float64) bool {
	i, ok := v.index[name]
	if !ok {
		return false
	}
	v.values[i] = value
	return true
}

// Names returns a copy of the schema order.
func (v FeatureVector) Names() []string {
	cp := make([]string, len(v.names))
	copy(cp, v.names)
	return cp
}

// Values returns a copy of the values in schema order.
func (v FeatureVector) Values() []float64 {
	cp := make([]float64, len(v.values))
	copy(cp, v.values)
	return cp
}

// Map returns the vector as a plain map.
func (v FeatureVector) Map() map[string]float64 {
	m := make(map[string]float64, len(v.names))
	for i, n := range v.names {
		m[n] = v.values[i]
	}
	return m
}

// Clone returns a deep copy. The names and index are shared since they are
// never mutated after construction.
func (v FeatureVector) Clone() FeatureVector {
	vals := make([]float64, len(v.values))
	copy(vals, v.values)
	return FeatureVector{names: v.names, values: vals, index: v.index}
}
