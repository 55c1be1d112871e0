package main

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"github.com/scarlet-home/scarletdash/internal/config"
	"github.com/spf13/cobra"
)

var validateDump bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the scarletdash configuration file for syntax and semantic errors.`,
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with non-default values highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "❌ Configuration validation failed: %v\n", err)
		return err
	}

	var unknownKeys []string
	if configPath != "" {
		unknownKeys, err = config.UnknownKeys(configPath)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠️  Warning: Could not check for unknown keys: %v\n", err)
		}
	}

	source := configPath
	if source == "" {
		source = "(defaults and environment)"
	}
	fmt.Fprintf(out, "✅ Configuration is valid: %s\n", source)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		fmt.Fprintln(out)
		red.Fprintf(out, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			red.Fprintf(out, "   - %s\n", key)
		}
		fmt.Fprintln(out, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
		fmt.Fprintln(out, "FULL CONFIGURATION (values different from defaults are highlighted)")
		fmt.Fprintln(out, strings.Repeat("=", 80))
		dumpConfig(out, cfg, config.Defaults())
		fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
	}

	return nil
}

// dumpConfig prints every section of cfg, highlighting values that differ
// from defaults.
func dumpConfig(out io.Writer, cfg, defaults *config.Config) {
	dumpSection(out, "", reflect.ValueOf(*cfg), reflect.ValueOf(*defaults))
}

func dumpSection(out io.Writer, prefix string, value, defaults reflect.Value) {
	cyan := color.New(color.FgCyan, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)

	depth := strings.Count(prefix, ".")
	indent := strings.Repeat("  ", depth)
	t := value.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Tag.Get("mapstructure")
		if name == "" {
			continue
		}
		field, def := value.Field(i), defaults.Field(i)
		if field.Kind() == reflect.Struct {
			cyan.Fprintf(out, "\n%s[%s%s]\n", indent, prefix, name)
			dumpSection(out, prefix+name+".", field, def)
			continue
		}

		v, d := field.Interface(), def.Interface()
		if name == "password" {
			v, d = redactPassword(fmt.Sprint(v)), redactPassword(fmt.Sprint(d))
		}
		line := fmt.Sprintf("%s  %s = %v", indent, name, v)
		if reflect.DeepEqual(v, d) {
			green.Fprintln(out, line)
		} else {
			yellow.Fprintf(out, "%s  (default: %v)\n", line, d)
		}
	}
}

func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "********"
}
