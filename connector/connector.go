package connector

// External system glue. A Connector turns a bag of user supplied options
// into a Connection: the operator name plus the serialized configuration the
// dataflow runtime needs to instantiate the source or sink.

import (
	"encoding/json"
	"fmt"
	"sort"
)

const (
	ConnectionSource = iota
	ConnectionSink
)

func ConnectionTypeName(ty int) string {
	switch ty {
	case ConnectionSource:
		return "source"
	case ConnectionSink:
		return "sink"
	default:
		return "unknown"
	}
}

// Connection is the fully resolved attachment of a table to an external
// system. Config is the JSON serialized OperatorConfig.
type Connection struct {
	Name        string
	Type        int
	Operator    string
	Config      string
	Description string
}

// OperatorConfig is what the runtime operator deserializes at startup. The
// Connection and Table members hold the connector specific profile and table
// settings.
type OperatorConfig struct {
	Connection json.RawMessage `json:"connection"`
	Table      json.RawMessage `json:"table"`
	Format     string          `json:"format,omitempty"`
	Framing    string          `json:"framing,omitempty"`
}

// TestSourceMessage is one progress report emitted while probing a
// connection. Done marks the last message of the probe, Error marks the probe
// as failed.
type TestSourceMessage struct {
	Error   bool   `json:"error"`
	Done    bool   `json:"done"`
	Message string `json:"message"`
}

func InfoMessage(f string, args ...interface{}) TestSourceMessage {
	return TestSourceMessage{
		Message: fmt.Sprintf(f, args...),
	}
}

func DoneMessage(f string, args ...interface{}) TestSourceMessage {
	return TestSourceMessage{
		Done:    true,
		Message: fmt.Sprintf(f, args...),
	}
}

func FailMessage(f string, args ...interface{}) TestSourceMessage {
	return TestSourceMessage{
		Error:   true,
		Done:    true,
		Message: fmt.Sprintf(f, args...),
	}
}

// Options is the raw key/value table settings, as written in a WITH clause
// or a catalog file. Connectors consume entries as they parse them so that
// leftovers can be diagnosed.
type Options map[string]string

func (self Options) Pull(name string) (string, bool) {
	v, ok := self[name]
	if ok {
		delete(self, name)
	}
	return v, ok
}

func (self Options) PullRequired(name string) (string, error) {
	v, ok := self.Pull(name)
	if !ok {
		return "", fmt.Errorf("missing required option %q", name)
	}
	return v, nil
}

// Leftover returns the keys no connector consumed, sorted. A non empty
// result after resolution means the user wrote an option nothing understands.
func (self Options) Leftover() []string {
	if len(self) == 0 {
		return nil
	}
	keys := []string{}
	for k := range self {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
