// Package predictor contains predictors backed by remote model servers.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kilianp07/evload/auth"
	"github.com/kilianp07/evload/core/factory"
	"github.com/kilianp07/evload/core/model"
	"github.com/kilianp07/evload/core/prediction"
	"github.com/kilianp07/evload/infra/logger"
)

// ErrRemote is returned when the model server answers with an unexpected
// status.
var ErrRemote = errors.New("remote predictor error")

// Config configures an HTTPPredictor.
type Config struct {
	URL       string    `json:"url"`
	TimeoutMS int       `json:"timeout_ms"`
	Batch     bool      `json:"batch"`
	Auth      auth.Conf `json:"auth"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = 5000
	}
	c.URL = strings.TrimRight(c.URL, "/")
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("http predictor: url is required")
	}
	return nil
}

type schemaResponse struct {
	Features    []string           `json:"features"`
	Importances map[string]float64 `json:"importances,omitempty"`
}

type predictRequest struct {
	Features map[string]float64 `json:"features"`
}

type predictResponse struct {
	Prediction float64 `json:"prediction"`
}

type batchRequest struct {
	Rows []map[string]float64 `json:"rows"`
}

type batchResponse struct {
	Predictions []float64 `json:"predictions"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPPredictor calls a model server:
//
//	GET  /schema         -> {"features": [...], "importances": {...}}
//	POST /predict        <- {"features": {...}} -> {"prediction": x}
//	POST /predict/batch  <- {"rows": [{...}]}   -> {"predictions": [...]}
//
// The schema is fetched once when the predictor is created.
type HTTPPredictor struct {
	cfg         Config
	client      *http.Client
	creds       *auth.ClientCred
	schema      []string
	importances map[string]float64
	log         logger.Logger
}

// New creates the predictor and loads its feature schema.
func New(ctx context.Context, cfg Config) (*HTTPPredictor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p := &HTTPPredictor{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		log:    logger.New("http-predictor"),
	}
	if cfg.Auth.Enabled() {
		p.creds = auth.NewClientCred(cfg.Auth)
	}
	var sr schemaResponse
	if err := p.do(ctx, http.MethodGet, "/schema", nil, &sr); err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if len(sr.Features) == 0 {
		return nil, fmt.Errorf("%w: empty schema from %s", prediction.ErrSchemaMismatch, cfg.URL)
	}
	p.schema = sr.Features
	p.importances = sr.Importances
	p.log.Infof("loaded schema with %d features from %s", len(p.schema), cfg.URL)
	return p, nil
}

// FeatureSchema returns the schema announced by the server.
func (p *HTTPPredictor) FeatureSchema() []string {
	out := make([]string, len(p.schema))
	copy(out, p.schema)
	return out
}

// FeatureImportances returns the importances announced by the server, if any.
func (p *HTTPPredictor) FeatureImportances() (map[string]float64, bool) {
	if len(p.importances) == 0 {
		return nil, false
	}
	out := make(map[string]float64, len(p.importances))
	for k, v := range p.importances {
		out[k] = v
	}
	return out, true
}

// Predict sends one feature vector.
func (p *HTTPPredictor) Predict(ctx context.Context, v model.FeatureVector) (float64, error) {
	if err := prediction.CheckSchema(p.schema, v); err != nil {
		return 0, err
	}
	var resp predictResponse
	if err := p.do(ctx, http.MethodPost, "/predict", predictRequest{Features: v.Map()}, &resp); err != nil {
		return 0, err
	}
	return resp.Prediction, nil
}

// PredictBatch sends all rows in one request when batching is enabled and
// falls back to one request per row otherwise.
func (p *HTTPPredictor) PredictBatch(ctx context.Context, rows []model.FeatureVector) ([]float64, error) {
	req := batchRequest{Rows: make([]map[string]float64, len(rows))}
	for i, r := range rows {
		if err := prediction.CheckSchema(p.schema, r); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		req.Rows[i] = r.Map()
	}
	if !p.cfg.Batch {
		out := make([]float64, len(rows))
		for i, r := range rows {
			y, err := p.Predict(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			out[i] = y
		}
		return out, nil
	}
	var resp batchResponse
	if err := p.do(ctx, http.MethodPost, "/predict/batch", req, &resp); err != nil {
		return nil, err
	}
	return resp.Predictions, nil
}

func (p *HTTPPredictor) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = b
	}
	resp, err := p.send(ctx, method, path, body, false)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusUnauthorized && p.creds != nil {
		_ = resp.Body.Close()
		if resp, err = p.send(ctx, method, path, body, true); err != nil {
			return err
		}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", prediction.ErrSchemaMismatch, readError(resp.Body))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: %s %s: status %d: %s", ErrRemote, method, path, resp.StatusCode, readError(resp.Body))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrRemote, path, err)
	}
	return nil
}

func (p *HTTPPredictor) send(ctx context.Context, method, path string, body []byte, refresh bool) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, p.cfg.URL+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.creds != nil {
		if refresh {
			if _, err := p.creds.ForceRefresh(ctx); err != nil {
				return nil, err
			}
		}
		if err := p.creds.SetAuthHeader(ctx, req); err != nil {
			return nil, err
		}
	}
	return p.client.Do(req)
}

func readError(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 4096))
	var er errorResponse
	if json.Unmarshal(b, &er) == nil && er.Error != "" {
		return er.Error
	}
	return strings.TrimSpace(string(b))
}

func init() {
	_ = prediction.Register("http", func(conf map[string]any) (prediction.Predictor, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		p, err := New(ctx, c)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}
