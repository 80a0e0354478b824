package options

import (
	"time"

	"github.com/spf13/pflag"
)

// Options holds the bridge's command-line configuration: a flat struct
// with an AddFlags method (§6 CLI: --config/-c, --csv, --reload).
type Options struct {
	ConfigFile string
	CSV        bool
	Reload     bool
	StatusPort int
	Wait       time.Duration
}

const (
	defaultConfigFile = "plc_data.json"
	defaultStatusPort = 8089
	defaultWait       = 2 * time.Second
)

// NewDefaultOptions returns an Options with every flag at its documented
// default (§6).
func NewDefaultOptions() *Options {
	return &Options{
		ConfigFile: defaultConfigFile,
		CSV:        false,
		Reload:     false,
		StatusPort: defaultStatusPort,
		Wait:       defaultWait,
	}
}

// AddFlags registers the bridge's flags on fs.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&o.ConfigFile, "config", "c", o.ConfigFile, "Path to the PLC configuration file")
	fs.BoolVar(&o.CSV, "csv", o.CSV, "Always mirror samples to CSV, in addition to OPC UA")
	fs.BoolVar(&o.Reload, "reload", o.Reload, "Passed through opaquely to the node-map sidecar; this process does not act on it directly")
	fs.IntVar(&o.StatusPort, "status-port", o.StatusPort, "Port for the read-only status/health HTTP server, 0 disables it")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "Grace period allowed for acquisition loops to drain before a second signal forces exit")
}
