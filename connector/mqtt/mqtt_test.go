package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rivulet-io/rivulet/connector"
)

func TestConfigFromOptions(t *testing.T) {
	assert := assert.New(t)

	{
		cfg, err := ConfigFromOptions(connector.Options{
			"url": "mqtt://broker:1883",
		})
		assert.NoError(err)
		assert.Equal("mqtt://broker:1883", cfg.URL)
		assert.Equal(defaultClientPrefix, cfg.ClientPrefix)
		assert.Nil(cfg.TLS)
		assert.False(cfg.UsesTLS())
	}

	{
		cfg, err := ConfigFromOptions(connector.Options{
			"url":           "mqtts://broker:8883",
			"username":      "u",
			"password":      "p",
			"client_prefix": "probe",
			"tls.ca":        "/etc/ca.pem",
		})
		assert.NoError(err)
		assert.True(cfg.UsesTLS())
		assert.Equal("u", cfg.Username)
		assert.Equal("p", cfg.Password)
		assert.Equal("probe", cfg.ClientPrefix)
		assert.NotNil(cfg.TLS)
		assert.Equal("/etc/ca.pem", cfg.TLS.CA)
	}

	{
		// url is required
		_, err := ConfigFromOptions(connector.Options{})
		assert.Error(err)
	}

	{
		// unsupported scheme
		_, err := ConfigFromOptions(connector.Options{
			"url": "http://broker",
		})
		assert.Error(err)
	}

	{
		// client cert without key
		_, err := ConfigFromOptions(connector.Options{
			"url":      "mqtts://broker:8883",
			"tls.cert": "/etc/cert.pem",
		})
		assert.Error(err)
	}
}

func TestTableFromOptions(t *testing.T) {
	assert := assert.New(t)

	{
		table, err := TableFromOptions(connector.Options{
			"type":  "source",
			"topic": "events",
		})
		assert.NoError(err)
		assert.Equal(connector.ConnectionSource, table.Type)
		assert.Equal("events", table.Topic)
		assert.Equal(byte(0), table.QoS)
	}

	{
		table, err := TableFromOptions(connector.Options{
			"type":        "sink",
			"topic":       "out",
			"qos":         "2",
			"sink.retain": "true",
		})
		assert.NoError(err)
		assert.Equal(connector.ConnectionSink, table.Type)
		assert.Equal(byte(2), table.QoS)
		assert.True(table.Retain)
	}

	{
		// topic is required
		_, err := TableFromOptions(connector.Options{"type": "source"})
		assert.Error(err)
	}

	{
		// type must be source or sink
		_, err := TableFromOptions(connector.Options{
			"type":  "lookup",
			"topic": "t",
		})
		assert.Error(err)
	}

	{
		// qos out of range
		_, err := TableFromOptions(connector.Options{
			"type":  "source",
			"topic": "t",
			"qos":   "3",
		})
		assert.Error(err)
	}

	{
		// retain is a sink only option
		_, err := TableFromOptions(connector.Options{
			"type":        "source",
			"topic":       "t",
			"sink.retain": "true",
		})
		assert.Error(err)
	}
}

func TestFromOptions(t *testing.T) {
	assert := assert.New(t)

	conn, err := FromOptions("events", connector.Options{
		"url":    "mqtt://broker:1883",
		"type":   "source",
		"topic":  "sensor/+/reading",
		"qos":    "1",
		"format": "json",
	})
	assert.NoError(err)
	assert.Equal("events", conn.Name)
	assert.Equal(connector.ConnectionSource, conn.Type)
	assert.Equal(OperatorSource, conn.Operator)
	assert.Equal("MqttSource<sensor/+/reading>", conn.Description)

	opConfig := connector.OperatorConfig{}
	assert.NoError(json.Unmarshal([]byte(conn.Config), &opConfig))
	assert.Equal("json", opConfig.Format)

	table := Table{}
	assert.NoError(json.Unmarshal(opConfig.Table, &table))
	assert.Equal("sensor/+/reading", table.Topic)
	assert.Equal(byte(1), table.QoS)

	sink, err := FromOptions("out", connector.Options{
		"url":   "mqtt://broker:1883",
		"type":  "sink",
		"topic": "alerts",
	})
	assert.NoError(err)
	assert.Equal(OperatorSink, sink.Operator)
	assert.Equal("MqttSink<alerts>", sink.Description)
}
