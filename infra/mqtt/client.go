package mqtt

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/lazyload/core/events"
	coremon "github.com/kilianp07/lazyload/core/monitoring"
	coremqtt "github.com/kilianp07/lazyload/core/mqtt"
	"github.com/kilianp07/lazyload/infra/logger"
	"github.com/kilianp07/lazyload/internal/eventbus"
)

const (
	DefaultRouteTopic  = "lazyload/routes"
	DefaultEventsTopic = "lazyload/events"
)

// Config defines the connection parameters for the Paho MQTT client.
type Config struct {
	Broker      string          `json:"broker"`
	ClientID    string          `json:"client_id"`
	Username    string          `json:"username"`
	Password    string          `json:"password"`
	RouteTopic  string          `json:"route_topic"`
	EventsTopic string          `json:"events_topic"`
	UseTLS      bool            `json:"use_tls"`
	ClientCert  string          `json:"client_cert"`
	ClientKey   string          `json:"client_key"`
	CABundle    string          `json:"ca_bundle"`
	AuthMethod  string          `json:"auth_method"`
	QoS         map[string]byte `json:"qos"`
	LWTTopic    string          `json:"lwt_topic"`
	LWTPayload  string          `json:"lwt_payload"`
	LWTQoS      byte            `json:"lwt_qos"`
	LWTRetain   bool            `json:"lwt_retain"`
	MaxRetries  int             `json:"max_retries"`
	BackoffMS   int             `json:"backoff_ms"`
	TLSConfig   *tls.Config     `json:"-"`
}

// SetDefaults fills topics, client id and retry policy.
func (c *Config) SetDefaults() {
	if c.RouteTopic == "" {
		c.RouteTopic = DefaultRouteTopic
	}
	if c.EventsTopic == "" {
		c.EventsTopic = DefaultEventsTopic
	}
	if c.ClientID == "" {
		c.ClientID = "lazyload-" + uuid.NewString()[:8]
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BackoffMS <= 0 {
		c.BackoffMS = 100
	}
}

func (c Config) qos(kind string) byte {
	if q, ok := c.QoS[kind]; ok {
		return q
	}
	return 0
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// Option configures a PahoClient.
type Option func(*PahoClient)

// WithRouteHandler subscribes to the route topic and calls h for every route.
func WithRouteHandler(h coremqtt.RouteHandler) Option {
	return func(p *PahoClient) { p.onRouteFn = h }
}

// WithMonitor reports publish failures to m.
func WithMonitor(m coremon.Monitor) Option {
	return func(p *PahoClient) { p.mon = coremon.OrNop(m) }
}

var _ coremqtt.EventPublisher = (*PahoClient)(nil)

// PahoClient listens for route changes and publishes loading events using
// Eclipse Paho.
type PahoClient struct {
	cli       pahoClient
	cfg       Config
	onRouteFn coremqtt.RouteHandler
	mon       coremon.Monitor
	logger    logger.Logger
	backoff   time.Duration
}

// NewPahoClient connects to the MQTT broker. When a route handler is set the
// route topic is (re)subscribed on every connect.
func NewPahoClient(cfg Config, opts ...Option) (*PahoClient, error) {
	cfg.SetDefaults()
	popts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		mon:     coremon.NopMonitor{},
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(pc)
		}
	}

	popts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if pc.onRouteFn == nil {
			return
		}
		if token := c.Subscribe(cfg.RouteTopic, cfg.qos("route"), pc.onRoute); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
	}
	popts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	popts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(popts)
	pc.cli = c
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
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
	cfg := &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}
	return cfg, nil
}

// ParseRoute accepts either {"route":"..."} or the bare route as payload.
func ParseRoute(payload []byte) (string, error) {
	raw := strings.TrimSpace(string(payload))
	if strings.HasPrefix(raw, "{") {
		var m struct {
			Route string `json:"route"`
		}
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return "", fmt.Errorf("decode route: %w", err)
		}
		raw = strings.TrimSpace(m.Route)
	}
	if raw == "" {
		return "", coremqtt.ErrEmptyRoute
	}
	return raw, nil
}

func (p *PahoClient) onRoute(_ paho.Client, msg paho.Message) {
	defer p.mon.Recover()
	route, err := ParseRoute(msg.Payload())
	if err != nil {
		p.logger.Warnw("ignoring route message", map[string]any{"topic": msg.Topic(), "error": err})
		return
	}
	p.logger.Debugw("route received", map[string]any{"route": route})
	p.onRouteFn(route)
}

// PublishEvent sends ev as JSON to <events_topic>/<kind>, retrying with
// exponential backoff.
func (p *PahoClient) PublishEvent(ev events.Event) error {
	if !p.cli.IsConnected() {
		return coremqtt.ErrNotConnected
	}
	if ev.Err != nil && ev.Error == "" {
		ev.Error = ev.Err.Error()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	topic := fmt.Sprintf("%s/%s", p.cfg.EventsTopic, ev.Kind)
	qos := p.cfg.qos("event")

	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, false, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	p.mon.CaptureException(publishErr, map[string]string{"module": "mqtt", "feature": ev.Feature, "kind": ev.Kind.String()})
	return publishErr
}

// Forward publishes every event from bus until ctx ends or the bus closes.
func (p *PahoClient) Forward(ctx context.Context, bus *eventbus.TypedBus[events.Event]) <-chan struct{} {
	done := make(chan struct{})
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := p.PublishEvent(ev); err != nil {
					p.logger.Warnw("event not published", map[string]any{"kind": ev.Kind.String(), "feature": ev.Feature, "error": err})
				}
			}
		}
	}()
	return done
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
