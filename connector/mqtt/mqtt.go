package mqtt

// MQTT source/sink glue. Options are parsed into a Config plus a Table, and
// the pair serializes into the operator configuration the runtime consumes.

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/rivulet-io/rivulet/connector"
)

const (
	OperatorSource = "mqtt_source"
	OperatorSink   = "mqtt_sink"

	defaultClientPrefix = "rivulet-mqtt"
	connectTimeout      = 10 * time.Second
)

type TLSConfig struct {
	CA   string `json:"ca,omitempty" yaml:"ca,omitempty"`
	Cert string `json:"cert,omitempty" yaml:"cert,omitempty"`
	Key  string `json:"key,omitempty" yaml:"key,omitempty"`
}

type Config struct {
	URL          string     `json:"url" yaml:"url"`
	Username     string     `json:"username,omitempty" yaml:"username,omitempty"`
	Password     string     `json:"password,omitempty" yaml:"password,omitempty"`
	ClientPrefix string     `json:"clientPrefix,omitempty" yaml:"clientPrefix,omitempty"`
	TLS          *TLSConfig `json:"tls,omitempty" yaml:"tls,omitempty"`
}

type Table struct {
	Type   int    `json:"type" yaml:"type"`
	Topic  string `json:"topic" yaml:"topic"`
	QoS    byte   `json:"qos" yaml:"qos"`
	Retain bool   `json:"retain,omitempty" yaml:"retain,omitempty"`
}

// ConfigFromOptions consumes the connection level options. The url option is
// required and its scheme decides whether the broker connection uses TLS.
func ConfigFromOptions(opts connector.Options) (*Config, error) {
	rawURL, err := opts.PullRequired("url")
	if err != nil {
		return nil, err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %s", err)
	}
	switch u.Scheme {
	case "mqtt", "tcp", "mqtts", "ssl":
		break
	default:
		return nil, fmt.Errorf("unsupported url scheme %q, expect mqtt, tcp, mqtts or ssl", u.Scheme)
	}

	out := &Config{
		URL:          rawURL,
		ClientPrefix: defaultClientPrefix,
	}

	if v, ok := opts.Pull("username"); ok {
		out.Username = v
	}
	if v, ok := opts.Pull("password"); ok {
		out.Password = v
	}
	if v, ok := opts.Pull("client_prefix"); ok {
		out.ClientPrefix = v
	}

	ca, hasCA := opts.Pull("tls.ca")
	cert, hasCert := opts.Pull("tls.cert")
	key, hasKey := opts.Pull("tls.key")
	if hasCA || hasCert || hasKey {
		if hasCert != hasKey {
			return nil, fmt.Errorf("tls.cert and tls.key must be given together")
		}
		out.TLS = &TLSConfig{
			CA:   ca,
			Cert: cert,
			Key:  key,
		}
	}

	return out, nil
}

// UsesTLS reports whether the url scheme requests a TLS session.
func (self *Config) UsesTLS() bool {
	u, err := url.Parse(self.URL)
	if err != nil {
		return false
	}
	return u.Scheme == "mqtts" || u.Scheme == "ssl"
}

// TableFromOptions consumes the table level options. The type option decides
// source vs sink, topic is required, qos defaults to 0.
func TableFromOptions(opts connector.Options) (*Table, error) {
	ty, err := opts.PullRequired("type")
	if err != nil {
		return nil, err
	}

	out := &Table{}

	switch ty {
	case "source":
		out.Type = connector.ConnectionSource
		break
	case "sink":
		out.Type = connector.ConnectionSink
		break
	default:
		return nil, fmt.Errorf("invalid type %q, expect source or sink", ty)
	}

	topic, err := opts.PullRequired("topic")
	if err != nil {
		return nil, err
	}
	out.Topic = topic

	if v, ok := opts.Pull("qos"); ok {
		qos, err := strconv.Atoi(v)
		if err != nil || qos < 0 || qos > 2 {
			return nil, fmt.Errorf("invalid qos %q, expect 0, 1 or 2", v)
		}
		out.QoS = byte(qos)
	}

	if v, ok := opts.Pull("sink.retain"); ok {
		if out.Type != connector.ConnectionSink {
			return nil, fmt.Errorf("sink.retain is only valid on a sink table")
		}
		retain, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid sink.retain %q, expect a boolean", v)
		}
		out.Retain = retain
	}

	return out, nil
}

// FromOptions resolves a full Connection out of the raw options, pulling the
// connection options first and the table options after.
func FromOptions(name string, opts connector.Options) (*connector.Connection, error) {
	config, err := ConfigFromOptions(opts)
	if err != nil {
		return nil, err
	}
	table, err := TableFromOptions(opts)
	if err != nil {
		return nil, err
	}

	format, _ := opts.Pull("format")

	return FromConfig(name, config, table, format)
}

func FromConfig(
	name string,
	config *Config,
	table *Table,
	format string,
) (*connector.Connection, error) {
	connJSON, err := json.Marshal(config)
	if err != nil {
		return nil, err
	}
	tableJSON, err := json.Marshal(table)
	if err != nil {
		return nil, err
	}

	opConfig := connector.OperatorConfig{
		Connection: connJSON,
		Table:      tableJSON,
		Format:     format,
	}
	configJSON, err := json.Marshal(&opConfig)
	if err != nil {
		return nil, err
	}

	operator := OperatorSource
	description := fmt.Sprintf("MqttSource<%s>", table.Topic)
	if table.Type == connector.ConnectionSink {
		operator = OperatorSink
		description = fmt.Sprintf("MqttSink<%s>", table.Topic)
	}

	return &connector.Connection{
		Name:        name,
		Type:        table.Type,
		Operator:    operator,
		Config:      string(configJSON),
		Description: description,
	}, nil
}

func (self *Config) tlsConfig() (*tls.Config, error) {
	out := &tls.Config{}

	if self.TLS == nil {
		return out, nil
	}

	if self.TLS.CA != "" {
		pem, err := os.ReadFile(self.TLS.CA)
		if err != nil {
			return nil, fmt.Errorf("cannot read tls.ca: %s", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("tls.ca does not contain a valid certificate")
		}
		out.RootCAs = pool
	}

	if self.TLS.Cert != "" {
		cert, err := tls.LoadX509KeyPair(self.TLS.Cert, self.TLS.Key)
		if err != nil {
			return nil, fmt.Errorf("cannot load tls.cert/tls.key: %s", err)
		}
		out.Certificates = []tls.Certificate{cert}
	}

	return out, nil
}

func (self *Config) clientOptions() (*pahomqtt.ClientOptions, error) {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(self.URL)
	opts.SetClientID(fmt.Sprintf("%s-%s", self.ClientPrefix, uuid.NewString()[:8]))
	opts.SetConnectTimeout(connectTimeout)

	if self.Username != "" {
		opts.SetUsername(self.Username)
	}
	if self.Password != "" {
		opts.SetPassword(self.Password)
	}

	if self.UsesTLS() {
		tlsConfig, err := self.tlsConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts, nil
}

// Test probes the broker: connect, then subscribe or publish depending on
// the table type. Progress is reported over out, the last message carries
// Done and, on failure, Error.
func Test(
	config *Config,
	table *Table,
	out chan<- connector.TestSourceMessage,
) {
	out <- connector.InfoMessage("constructing MQTT client for %s", config.URL)

	clientOpts, err := config.clientOptions()
	if err != nil {
		out <- connector.FailMessage("invalid configuration: %s", err)
		return
	}

	client := pahomqtt.NewClient(clientOpts)
	defer client.Disconnect(250)

	out <- connector.InfoMessage("connecting to broker")
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		out <- connector.FailMessage("timed out connecting to %s", config.URL)
		return
	}
	if err := token.Error(); err != nil {
		out <- connector.FailMessage("cannot connect to %s: %s", config.URL, err)
		return
	}

	if table.Type == connector.ConnectionSource {
		out <- connector.InfoMessage("subscribing to topic %s", table.Topic)
		token := client.Subscribe(table.Topic, table.QoS, func(pahomqtt.Client, pahomqtt.Message) {})
		if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
			out <- connector.FailMessage("cannot subscribe to %s", table.Topic)
			return
		}
	} else {
		out <- connector.InfoMessage("publishing probe message to topic %s", table.Topic)
		token := client.Publish(table.Topic, table.QoS, false, []byte("{}"))
		if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
			out <- connector.FailMessage("cannot publish to %s", table.Topic)
			return
		}
	}

	out <- connector.DoneMessage("connection test successful")
}
