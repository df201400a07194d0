package cli

import (
	"flag"
	"io"

	"github.com/eshaffer321/buybox-analyzer/internal/infrastructure/config"
)

// AnalyzeFlags are the flags of the analyze command
type AnalyzeFlags struct {
	ASINs   string
	File    string
	Output  string
	Verbose bool
	NoDB    bool

	// Args are positional identifiers
	Args []string
}

// ParseAnalyzeFlags parses analyze flags from args
func ParseAnalyzeFlags(args []string, errOut io.Writer) (*AnalyzeFlags, error) {
	flags := &AnalyzeFlags{}
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&flags.ASINs, "asins", "", "Comma or space separated ASINs")
	fs.StringVar(&flags.File, "file", "", "File with one ASIN per line (# starts a comment)")
	fs.StringVar(&flags.Output, "output", "", "Output workbook path or directory (default: timestamped file in the output dir)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&flags.NoDB, "no-db", false, "Do not record the run in the database")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	flags.Args = fs.Args()
	return flags, nil
}

// ServeFlags holds the CLI flags for the serve command.
type ServeFlags struct {
	Port    int
	Verbose bool
}

// ParseServeFlags parses command line flags for the serve command.
// defaultPort comes from configuration.
func ParseServeFlags(args []string, defaultPort int, errOut io.Writer) (*ServeFlags, error) {
	flags := &ServeFlags{}
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.IntVar(&flags.Port, "port", defaultPort, "Port to listen on")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// ConfigureFlags are the flags of the configure command
type ConfigureFlags struct {
	EnvFile string
}

// ParseConfigureFlags parses configure flags from args
func ParseConfigureFlags(args []string, errOut io.Writer) (*ConfigureFlags, error) {
	flags := &ConfigureFlags{}
	fs := flag.NewFlagSet("configure", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.StringVar(&flags.EnvFile, "env-file", config.DefaultEnvFile, "Env file to write credentials to")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// TestConnectionFlags are the flags of the test-connection command
type TestConnectionFlags struct {
	Verbose bool
}

// ParseTestConnectionFlags parses test-connection flags from args
func ParseTestConnectionFlags(args []string, errOut io.Writer) (*TestConnectionFlags, error) {
	flags := &TestConnectionFlags{}
	fs := flag.NewFlagSet("test-connection", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.BoolVar(&flags.Verbose, "verbose", false, "Verbose output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}
