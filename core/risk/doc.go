// Package risk classifies forecast peaks against the historical demand
// distribution and against rated station capacity, and maps single demand
// values to operating decisions.
//
// The three rule sets are independent and configured separately: demand
// risk compares against history, infrastructure risk uses percentage
// utilization thresholds (70/90 by default) and decisions use a plain
// demand/capacity ratio (0.7/1.0 by default).
package risk
