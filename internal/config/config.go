// Package config builds the sntpc run configuration from the command line.
//
// There is no configuration file and no environment input: the flags are
// the whole interface.
//
//   -b            allow stepping the clock backwards
//   -h            show usage
//   -n            dry run, never set the clock
//   -p port       server UDP port
//   -s server     server name or IPv4 address
//   -t threshold  maximum absolute offset in seconds
//   -v            verbose diagnostics on stdout
//   -o format     final report format (text|yaml)
//   -m file       write Prometheus textfile metrics
//   -V            show version
//
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ghewgill/sntpc/internal/ntp"
)

// ErrVersion is returned by Parse when -V was given
var ErrVersion = errors.New("version requested")

// ErrUsage marks a command line that could not be turned into a Config
var ErrUsage = errors.New("usage")

// Config is the complete configuration of one run
type Config struct {
	Server         string `yaml:"server"`
	Port           int    `yaml:"port"`
	Threshold      int64  `yaml:"threshold"`
	AllowBackwards bool   `yaml:"allow_backwards"`
	SetClock       bool   `yaml:"set_clock"`
	Verbose        bool   `yaml:"verbose"`
	OutputFormat   string `yaml:"output_format"`
	MetricsFile    string `yaml:"metrics_file,omitempty"`
}

// Parse builds a Config from args (without the program name). Parse errors
// and usage are written to output. It returns flag.ErrHelp for -h and
// ErrVersion for -V; any other error wraps ErrUsage.
func Parse(args []string, output io.Writer) (*Config, error) {
	cfg := DefaultConfig()

	fs := flag.NewFlagSet("sntpc", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.Usage = func() {}

	var help, dryRun, version bool
	fs.BoolVar(&cfg.AllowBackwards, "b", cfg.AllowBackwards, "Allow time shift backwards")
	fs.BoolVar(&help, "h", false, "Show this help message")
	fs.BoolVar(&dryRun, "n", false, "No set time (dry run)")
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Set server port number")
	fs.StringVar(&cfg.Server, "s", cfg.Server, "Set server name or IPv4 address")
	fs.Int64Var(&cfg.Threshold, "t", cfg.Threshold, "Set maximum time offset threshold")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "Verbose")
	fs.StringVar(&cfg.OutputFormat, "o", cfg.OutputFormat, "Report format")
	fs.StringVar(&cfg.MetricsFile, "m", cfg.MetricsFile, "Metrics textfile")
	fs.BoolVar(&version, "V", false, "Show version")

	if err := fs.Parse(splitClusters(args)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		Usage(output)
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	if help {
		return nil, flag.ErrHelp
	}
	if version {
		return nil, ErrVersion
	}

	if fs.NArg() > 0 {
		err := fmt.Errorf("unexpected argument %q", fs.Arg(0))
		fmt.Fprintln(output, err)
		Usage(output)
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	cfg.SetClock = !dryRun

	if err := Validate(cfg); err != nil {
		fmt.Fprintln(output, err)
		Usage(output)
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	return cfg, nil
}

// switches are the single letter flags that take no value
const switches = "bhnvV"

// splitClusters expands grouped switches such as -bnv into -b -n -v. The
// last letter of a group may be a flag that takes a value, which is then
// read from the next argument. Values and everything after the first
// positional argument or "--" are passed through untouched.
func splitClusters(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" || !strings.HasPrefix(arg, "-") || arg == "-" {
			return append(out, args[i:]...)
		}
		name := strings.TrimPrefix(arg, "-")
		if strings.HasPrefix(name, "-") || strings.Contains(name, "=") || len(name) < 2 || !isCluster(name) {
			out = append(out, arg)
			if !strings.Contains(name, "=") && takesValue(strings.TrimPrefix(name, "-")) && i+1 < len(args) {
				i++
				out = append(out, args[i])
			}
			continue
		}
		for _, c := range name {
			out = append(out, "-"+string(c))
		}
		if takesValue(name[len(name)-1:]) && i+1 < len(args) {
			i++
			out = append(out, args[i])
		}
	}
	return out
}

func isCluster(name string) bool {
	for i, c := range name {
		if strings.ContainsRune(switches, c) {
			continue
		}
		if i == len(name)-1 && takesValue(string(c)) {
			continue
		}
		return false
	}
	return true
}

func takesValue(name string) bool {
	switch name {
	case "p", "s", "t", "o", "m":
		return true
	}
	return false
}

// Usage writes the help text
func Usage(w io.Writer) {
	fmt.Fprint(w, `Usage: sntpc [-b] [-h] [-n] [-v] [-V] [-p port] [-s server] [-t threshold]
             [-o format] [-m file]

        -b  Allow time shift backwards (default forward only)
        -h  Show this help message
        -n  No set time (dry run)
        -p  Set server port number (default 123)
        -s  Set server name or IPv4 address (default pool.ntp.org)
        -t  Set maximum time offset threshold (default 300 seconds)
        -v  Verbose (default silent)
        -o  Report format, text or yaml (default text)
        -m  Write Prometheus textfile metrics to file
        -V  Show version
`)
}

// Options returns the client options for this configuration
func (c *Config) Options() ntp.Options {
	return ntp.Options{
		Server: c.Server,
		Port:   c.Port,
		Policy: ntp.Policy{
			AllowBackwards: c.AllowBackwards,
			MaxOffset:      c.Threshold,
		},
		SetClock: c.SetClock,
	}
}

// String renders the configuration as a single line YAML flow mapping
func (c *Config) String() string {
	data, err := yaml.MarshalWithOptions(c, yaml.Flow(true))
	if err != nil {
		return fmt.Sprintf("%+v", *c)
	}
	return strings.TrimSpace(string(data))
}
