package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/rivulet-io/rivulet/compile"
	"github.com/rivulet-io/rivulet/connector"
	"github.com/rivulet-io/rivulet/connector/mqtt"
	"github.com/rivulet-io/rivulet/schema"
)

var (
	fCatalog     string
	fInput       string
	fOutput      string
	fDump        bool
	fParallelism int
)

func oops(stage string, err error) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "ERROR [%s] ", stage)
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

func readQuery() string {
	if fInput != "" {
		data, err := os.ReadFile(fInput)
		if err != nil {
			oops("read sql", err)
		}
		return string(data)
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		oops("read sql", err)
	}
	return string(data)
}

func runCompile(cmd *cobra.Command, args []string) {
	provider := schema.NewProvider()
	if fCatalog != "" {
		if err := provider.LoadCatalogFile(fCatalog); err != nil {
			oops("catalog", err)
		}
	}

	config := compile.DefaultConfig()
	if fParallelism > 0 {
		config.DefaultParallelism = fParallelism
	}

	program, outputs, err := compile.ParseAndGetProgram(
		readQuery(), provider, config,
	)
	if err != nil {
		oops("compile", err)
	}

	if fDump {
		fmt.Print(program.Dump())
		return
	}

	data, err := json.MarshalIndent(program, "", "  ")
	if err != nil {
		oops("encode", err)
	}

	if fOutput == "" {
		fmt.Printf("%s\n", data)
	} else {
		if err := os.WriteFile(fOutput, data, 0644); err != nil {
			oops("save", err)
		}
	}

	color.New(color.FgGreen).Fprintf(
		os.Stderr, "compiled %d statements into %d operators, outputs: %s\n",
		len(outputs), len(program.Nodes), strings.Join(outputs, ", "),
	)
}

func runTestConnection(cmd *cobra.Command, args []string) {
	opts := connector.Options{}
	for _, a := range args {
		k, v, found := strings.Cut(a, "=")
		if !found {
			oops("options", fmt.Errorf("expect key=value, got %q", a))
		}
		opts[k] = v
	}

	name, _ := opts.Pull("connector")
	if name != "" && name != "mqtt" {
		oops("options", fmt.Errorf("unknown connector %q", name))
	}

	config, err := mqtt.ConfigFromOptions(opts)
	if err != nil {
		oops("options", err)
	}
	table, err := mqtt.TableFromOptions(opts)
	if err != nil {
		oops("options", err)
	}

	out := make(chan connector.TestSourceMessage)
	go func() {
		mqtt.Test(config, table, out)
		close(out)
	}()

	failed := false
	for msg := range out {
		switch {
		case msg.Error:
			color.New(color.FgRed).Printf("FAIL %s\n", msg.Message)
			failed = true
		case msg.Done:
			color.New(color.FgGreen).Printf("OK   %s\n", msg.Message)
		default:
			fmt.Printf("     %s\n", msg.Message)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func main() {
	root := &cobra.Command{
		Use:   "rivulet",
		Short: "compile streaming SQL into an operator dataflow",
	}

	compileCmd := &cobra.Command{
		Use:   "compile",
		Short: "compile SQL statements into a program",
		Run:   runCompile,
	}
	compileCmd.Flags().StringVarP(
		&fCatalog, "catalog", "c", "", "YAML catalog file seeding tables and UDFs",
	)
	compileCmd.Flags().StringVarP(
		&fInput, "file", "f", "", "read SQL from a file instead of STDIN",
	)
	compileCmd.Flags().StringVarP(
		&fOutput, "output", "o", "", "write the program JSON to a file",
	)
	compileCmd.Flags().BoolVar(
		&fDump, "dump", false, "print the operator graph instead of JSON",
	)
	compileCmd.Flags().IntVar(
		&fParallelism, "parallelism", 0, "operator parallelism, 0 for the default",
	)
	root.AddCommand(compileCmd)

	testCmd := &cobra.Command{
		Use:   "test-connection [key=value ...]",
		Short: "probe a connector with the given options",
		Args:  cobra.MinimumNArgs(1),
		Run:   runTestConnection,
	}
	root.AddCommand(testCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
