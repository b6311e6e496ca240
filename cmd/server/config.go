package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the server's runtime configuration. Values come from (in
// increasing precedence) the YAML config file, environment variables
// prefixed LUDO_, and command-line flags.
type Config struct {
	bind       string
	port       int
	configFile string

	tlsCert string
	tlsKey  string

	dbHost     string
	dbPort     string
	dbUser     string
	dbPassword string
	dbName     string

	verbose bool
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return fmt.Errorf("both --tls-cert and --tls-key must be provided together")
	}
	return nil
}

// scheme reports the URI scheme the server will actually be reachable
// on, driving both the listener choice and the Strict-Transport-
// Security header.
func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// fileOverrides is the shape of the optional YAML config file,
// following the teacher's server.yaml layout.
type fileOverrides struct {
	Server struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		TLSCert string `yaml:"tls_cert"`
		TLSKey  string `yaml:"tls_key"`
	} `yaml:"server"`
	Database struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		Database string `yaml:"database"`
	} `yaml:"database"`
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LUDO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "ludo-server",
		Short:         "Authoritative realtime Ludo game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.configFile != "" {
				// Flags set on the command line or through LUDO_* variables
				// take precedence over the file: remember and re-apply them.
				set := map[string]string{}
				cmd.Flags().Visit(func(f *pflag.Flag) { set[f.Name] = f.Value.String() })
				if err := applyConfigFile(cfg, cfg.configFile); err != nil {
					return err
				}
				for name, value := range set {
					_ = cmd.Flags().Set(name, value)
				}
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: LUDO_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: LUDO_PORT)")
	fs.StringVar(&cfg.configFile, "config", "configs/server.yaml", "path to a YAML config file, if present (env: LUDO_CONFIG)")

	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: LUDO_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: LUDO_TLS_KEY)")

	fs.StringVar(&cfg.dbHost, "db-host", "localhost", "database host (env: LUDO_DB_HOST)")
	fs.StringVar(&cfg.dbPort, "db-port", "3306", "database port (env: LUDO_DB_PORT)")
	fs.StringVar(&cfg.dbUser, "db-user", "ludo_user", "database user (env: LUDO_DB_USER)")
	fs.StringVar(&cfg.dbPassword, "db-password", "", "database password (env: LUDO_DB_PASSWORD)")
	fs.StringVar(&cfg.dbName, "db-name", "ludo_server", "database name (env: LUDO_DB_NAME)")

	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: LUDO_VERBOSE)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

// applyConfigFile decodes path into cfg, overwriting every field the
// file sets; the caller re-applies flags set on the command line or
// through the environment afterwards. Missing file is not an error:
// the flag default ("configs/server.yaml") is meant to be optional.
func applyConfigFile(cfg *Config, path string) error {
	data, err := readFileIfExists(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if data == nil {
		return nil
	}

	var ov fileOverrides
	if err := yaml.Unmarshal(data, &ov); err != nil {
		return fmt.Errorf("decode config file: %w", err)
	}

	if ov.Server.Host != "" {
		cfg.bind = ov.Server.Host
	}
	if ov.Server.Port != 0 {
		cfg.port = ov.Server.Port
	}
	if ov.Server.TLSCert != "" {
		cfg.tlsCert = ov.Server.TLSCert
	}
	if ov.Server.TLSKey != "" {
		cfg.tlsKey = ov.Server.TLSKey
	}
	if ov.Database.Host != "" {
		cfg.dbHost = ov.Database.Host
	}
	if ov.Database.Port != "" {
		cfg.dbPort = ov.Database.Port
	}
	if ov.Database.Username != "" {
		cfg.dbUser = ov.Database.Username
	}
	if ov.Database.Password != "" {
		cfg.dbPassword = ov.Database.Password
	}
	if ov.Database.Database != "" {
		cfg.dbName = ov.Database.Database
	}
	return nil
}
