package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/molgenis/biobesu/internal/gene"
	"github.com/molgenis/biobesu/internal/pipeline"
)

// configKey is a setting read by biobesu. parse validates a value given on
// the command line and converts it to the stored type.
type configKey struct {
	name  string
	desc  string
	parse func(string) (any, error)
}

var configKeys = []configKey{
	{"gene.dir", "directory holding " + gene.FileName, parseString},
	{"gene.url", "download URL of the gene ID/symbol file", parseString},
	{"lirical.jar", "LIRICAL jar file", parseString},
	{"lirical.data", "LIRICAL data directory", parseString},
	{"lirical.java", "java executable", parseString},
	{"lirical.timeout", "timeout per case, e.g. 45m", parseDuration},
	{"pipeline.workers", "concurrent LIRICAL runs, 0 for one per CPU", parseWorkers},
	{"pipeline.mode", "alias or omim", parseMode},
	{"pipeline.on_existing", "abort or reuse", parsePolicy},
	{"pipeline.include_na", "write NA for genes that could not be converted", parseBool},
	{"store.path", "DuckDB file to record results in", parseString},
}

func lookupConfigKey(name string) (configKey, bool) {
	i := slices.IndexFunc(configKeys, func(k configKey) bool { return k.name == name })
	if i < 0 {
		return configKey{}, false
	}
	return configKeys[i], true
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage biobesu configuration",
		Long: `Show, get, or set configuration values. Config is stored in ~/.biobesu.yaml
and every key can be overridden with a BIOBESU_ environment variable, e.g.
BIOBESU_LIRICAL_JAR for lirical.jar.`,
		Example: `  biobesu config                                  # show all config
  biobesu config set lirical.jar /opt/LIRICAL.jar  # set the LIRICAL jar
  biobesu config get pipeline.workers              # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	var keys strings.Builder
	for _, k := range configKeys {
		fmt.Fprintf(&keys, "  %-22s %s\n", k.name, k.desc)
	}

	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long:  "Set a configuration value. Known keys:\n\n" + keys.String(),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	}
}

// runConfigShow prints the effective value of every known key, followed by
// any other keys found in the config file.
func runConfigShow(w io.Writer) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	if cfgFile := viper.ConfigFileUsed(); cfgFile != "" {
		doc.HeadComment = "Config file: " + cfgFile
	} else {
		doc.HeadComment = "No config file found, showing defaults. Config file: ~/.biobesu.yaml"
	}

	sections := make(map[string]*yaml.Node)
	add := func(name, comment string) error {
		var val yaml.Node
		if err := val.Encode(viper.Get(name)); err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		val.LineComment = comment

		parent := doc
		section, key, nested := strings.Cut(name, ".")
		if nested {
			if parent = sections[section]; parent == nil {
				parent = &yaml.Node{Kind: yaml.MappingNode}
				sections[section] = parent
				doc.Content = append(doc.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: section}, parent)
			}
		} else {
			key = name
		}
		parent.Content = append(parent.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, &val)
		return nil
	}

	for _, k := range configKeys {
		if err := add(k.name, k.desc); err != nil {
			return err
		}
	}
	extra := viper.AllKeys()
	slices.Sort(extra)
	for _, name := range extra {
		if _, known := lookupConfigKey(name); !known {
			if err := add(name, "not used by biobesu"); err != nil {
				return err
			}
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprint(w, string(out))
	return nil
}

func runConfigSet(w io.Writer, name, value string) error {
	key, ok := lookupConfigKey(name)
	if !ok {
		return usagef("unknown config key %q, see 'biobesu config set --help'", name)
	}
	parsed, err := key.parse(value)
	if err != nil {
		return usagef("invalid value for %s: %v", name, err)
	}
	viper.Set(name, parsed)

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, configName+".yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(w, "Set %s = %v in %s\n", name, parsed, cfgFile)
	return nil
}

func runConfigGet(w io.Writer, key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(w, val)
	return nil
}

func parseString(s string) (any, error) {
	return s, nil
}

// parseDuration keeps the text so the config file stays readable.
func parseDuration(s string) (any, error) {
	if _, err := time.ParseDuration(s); err != nil {
		return nil, err
	}
	return s, nil
}

func parseWorkers(s string) (any, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%q is not a worker count", s)
	}
	return n, nil
}

func parseBool(s string) (any, error) {
	switch s {
	case "true", "yes", "on":
		return true, nil
	case "false", "no", "off":
		return false, nil
	}
	return nil, fmt.Errorf("%q is not a boolean", s)
}

func parseMode(s string) (any, error) {
	m, err := pipeline.ParseMode(s)
	return string(m), err
}

func parsePolicy(s string) (any, error) {
	p, err := pipeline.ParseExistingPolicy(s)
	return string(p), err
}
