package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/evload/core/fleet"
	"github.com/kilianp07/evload/core/model"
	coremon "github.com/kilianp07/evload/core/monitoring"
	coremqtt "github.com/kilianp07/evload/core/mqtt"
	"github.com/kilianp07/evload/infra/logger"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker       string          `json:"broker"`
	ClientID     string          `json:"client_id"`
	Username     string          `json:"username"`
	Password     string          `json:"password"`
	TopicPrefix  string          `json:"topic_prefix"`
	RefreshTopic string          `json:"refresh_topic"`
	RetainRisk   bool            `json:"retain_risk"`
	UseTLS       bool            `json:"use_tls"`
	ClientCert   string          `json:"client_cert"`
	ClientKey    string          `json:"client_key"`
	CABundle     string          `json:"ca_bundle"`
	AuthMethod   string          `json:"auth_method"`
	QoS          map[string]byte `json:"qos"`
	LWTTopic     string          `json:"lwt_topic"`
	LWTPayload   string          `json:"lwt_payload"`
	LWTQoS       byte            `json:"lwt_qos"`
	LWTRetain    bool            `json:"lwt_retain"`
	MaxRetries   int             `json:"max_retries"`
	BackoffMS    int             `json:"backoff_ms"`
	TLSConfig    *tls.Config     `json:"-"`
}

// Enabled reports whether a broker is configured.
func (c Config) Enabled() bool { return c.Broker != "" }

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TopicPrefix == "" {
		c.TopicPrefix = "evload"
	}
	if c.RefreshTopic == "" {
		c.RefreshTopic = c.TopicPrefix + "/commands/refresh"
	}
	if c.ClientID == "" {
		c.ClientID = "evload-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

// Validate checks mandatory fields when MQTT is enabled.
func (c Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if c.UseTLS && c.TLSConfig == nil && (c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "") {
		return fmt.Errorf("mqtt tls requires client_cert, client_key and ca_bundle")
	}
	return nil
}

// RiskTopic returns the topic carrying the risk of one station.
func (c Config) RiskTopic(stationID string) string {
	return fmt.Sprintf("%s/stations/%s/risk", c.TopicPrefix, stationID)
}

// AlertTopic returns the topic carrying overload alerts.
func (c Config) AlertTopic() string { return c.TopicPrefix + "/alerts" }

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient publishes fleet risk with Eclipse Paho and listens for refresh
// requests.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	logger  logger.Logger
	backoff time.Duration

	mu        sync.Mutex
	onRefresh func()
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the MQTT broker and subscribes to the refresh
// topic.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.RefreshTopic, pc.qos("refresh"), pc.onRefreshMessage); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

func (p *PahoClient) qos(kind string) byte {
	if q, ok := p.cfg.QoS[kind]; ok {
		return q
	}
	return 0
}

// OnRefresh registers the callback run when a refresh request arrives.
func (p *PahoClient) OnRefresh(fn func()) {
	p.mu.Lock()
	p.onRefresh = fn
	p.mu.Unlock()
}

func (p *PahoClient) onRefreshMessage(_ paho.Client, msg paho.Message) {
	p.mu.Lock()
	fn := p.onRefresh
	p.mu.Unlock()
	if fn == nil {
		return
	}
	p.logger.Infof("refresh requested on %s", msg.Topic())
	fn()
}

// PublishSnapshot publishes the risk of every station and an alert for each
// overloaded one. Publishing continues past failing stations; the last error
// is returned wrapped in ErrPublish.
func (p *PahoClient) PublishSnapshot(ctx context.Context, snap *fleet.Snapshot) (int, error) {
	var lastErr error
	alerts := 0
	for _, rec := range snap.Records {
		if err := ctx.Err(); err != nil {
			return alerts, err
		}
		msg := coremqtt.NewRiskMessage(rec, snap.GeneratedAt)
		if err := p.publishJSON(p.cfg.RiskTopic(rec.StationID), p.qos("risk"), p.cfg.RetainRisk, msg); err != nil {
			lastErr = p.fail(rec.StationID, err)
			continue
		}
		if rec.Risk != model.InfraOverload {
			continue
		}
		alert := coremqtt.Alert{AlertID: uuid.NewString(), RiskMessage: msg}
		if err := p.publishJSON(p.cfg.AlertTopic(), p.qos("alert"), false, alert); err != nil {
			lastErr = p.fail(rec.StationID, err)
			continue
		}
		alerts++
	}
	if lastErr != nil {
		return alerts, fmt.Errorf("%w: %v", coremqtt.ErrPublish, lastErr)
	}
	return alerts, nil
}

func (p *PahoClient) fail(stationID string, err error) error {
	coremon.CaptureException(err, map[string]string{"station": stationID, "module": "mqtt"})
	return err
}

func (p *PahoClient) publishJSON(topic string, qos byte, retain bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published to %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	return publishErr
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
