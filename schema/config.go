package schema

// Catalog files. A YAML catalog declares connector tables up front so that
// a query can reference external systems without carrying DDL. The same
// resolution path also serves CREATE TABLE ... WITH (...) statements.

import (
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rivulet-io/rivulet/cerrors"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/connector/mqtt"
	"github.com/rivulet-io/rivulet/types"
)

type CatalogField struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable bool   `yaml:"nullable"`
}

type CatalogTable struct {
	Name      string            `yaml:"name"`
	Connector string            `yaml:"connector"`
	Options   map[string]string `yaml:"options"`
	EventTime string            `yaml:"eventTime"`
	Watermark string            `yaml:"watermark"`
	Fields    []CatalogField    `yaml:"fields"`
}

// Udfs holds Go function sources, each registered the same way the API
// level RegisterUdf call would.
type Catalog struct {
	Tables []CatalogTable `yaml:"tables"`
	Udfs   []string       `yaml:"udfs"`
}

func catalogFields(in []CatalogField) ([]types.StructField, error) {
	out := []types.StructField{}
	for _, f := range in {
		td, ok := types.FromSQLName(f.Type)
		if !ok {
			return nil, cerrors.New(
				cerrors.UnsupportedType, f.Name,
				"unknown column type %q for column %s", f.Type, f.Name,
			)
		}
		td.Nullable = f.Nullable
		out = append(out, types.NewStructField(f.Name, "", td))
	}
	return out, nil
}

// ResolveConnectorTable dispatches on the connector name and builds the
// fully resolved table, with operator and serialized config attached.
func ResolveConnectorTable(
	name string,
	connectorName string,
	fields []types.StructField,
	opts connector.Options,
	eventTime string,
	watermark string,
) (*ConnectorTable, error) {
	var conn *connector.Connection

	switch connectorName {
	case "mqtt":
		c, err := mqtt.FromOptions(name, opts)
		if err != nil {
			return nil, cerrors.New(
				cerrors.PlanError, name, "invalid options for table %s: %s", name, err,
			)
		}
		conn = c
		break

	default:
		return nil, cerrors.New(
			cerrors.UnsupportedConstruct, connectorName,
			"unknown connector %q for table %s", connectorName, name,
		)
	}

	return &ConnectorTable{
		Name:           name,
		Type:           conn.Type,
		Connector:      connectorName,
		Operator:       conn.Operator,
		Config:         conn.Config,
		Description:    conn.Description,
		Def:            types.NewStructDef(name, fields),
		EventTimeField: eventTime,
		WatermarkField: watermark,
	}, nil
}

// LoadCatalog reads a YAML catalog and registers every table it declares,
// along with the resolved connection, into the provider.
func (self *Provider) LoadCatalog(r io.Reader) error {
	catalog := Catalog{}

	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&catalog); err != nil {
		return cerrors.New(cerrors.PlanError, "", "cannot parse catalog: %s", err)
	}

	for _, entry := range catalog.Tables {
		fields, err := catalogFields(entry.Fields)
		if err != nil {
			return err
		}

		opts := connector.Options{}
		for k, v := range entry.Options {
			opts[k] = v
		}

		table, err := ResolveConnectorTable(
			entry.Name,
			entry.Connector,
			fields,
			opts,
			entry.EventTime,
			entry.Watermark,
		)
		if err != nil {
			return err
		}

		if leftover := opts.Leftover(); leftover != nil {
			return cerrors.New(
				cerrors.PlanError, entry.Name,
				"unknown options for table %s: %s",
				entry.Name, strings.Join(leftover, ", "),
			)
		}

		self.AddConnectorTable(table)
		self.AddConnection(&connector.Connection{
			Name:        table.Name,
			Type:        table.Type,
			Operator:    table.Operator,
			Config:      table.Config,
			Description: table.Description,
		})
	}

	for _, udf := range catalog.Udfs {
		if _, err := self.RegisterUdf(udf); err != nil {
			return err
		}
	}

	return nil
}

func (self *Provider) LoadCatalogFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return self.LoadCatalog(f)
}
