// Package prediction defines the Predictor capability consumed by the
// forecasting engine. A Predictor is a trained single-step model: it maps an
// ordered feature vector to the energy expected in the next hour. The engine
// never trains models; concrete predictors are loaded from artifacts or
// reached over the network.
package prediction
