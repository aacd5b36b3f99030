package model

// ForecastPoint is one step of a multi-hour forecast with its band.
type ForecastPoint struct {
	HourOffset int     `json:"hour_offset"`
	Value      float64 `json:"predicted_value"`
	Upper      float64 `json:"upper_bound"`
	Lower      float64 `json:"lower_bound"`
}
