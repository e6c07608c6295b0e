// Package config provides centralized management for application settings, defaults, and the Viper-based configuration engine.
package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/anigrab-cli/anigrab/color"
	"github.com/anigrab-cli/anigrab/constant"
	"github.com/anigrab-cli/anigrab/key"
	"github.com/anigrab-cli/anigrab/style"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Field represents a configuration field definition.
type Field struct {
	Key         string
	Value       any
	Description string
}

// Pretty returns a colored string representation of the field for display.
func (f Field) Pretty() string {
	var b strings.Builder
	lo.Must0(prettyTemplate.Execute(&b, f))
	return b.String()
}

// Env returns the environment variable name for this field.
func (f Field) Env() string {
	env := strings.ToUpper(EnvKeyReplacer.Replace(f.Key))
	prefix := strings.ToUpper(constant.Anigrab + "_")
	if strings.HasPrefix(env, prefix) {
		return env
	}
	return prefix + env
}

// MarshalJSON customizes JSON output to include current and default values.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key         string `json:"key"`
		Value       any    `json:"value"`
		Default     any    `json:"default"`
		Description string `json:"description"`
	}{
		Key:         f.Key,
		Value:       viper.Get(f.Key),
		Default:     f.Value,
		Description: f.Description,
	})
}

// Default holds the map of all configuration fields.
var Default = make(map[string]Field)

// EnvExposed lists the configuration keys bound to environment variables.
var EnvExposed []string

func register(k string, value any, description string) {
	Default[k] = Field{
		Key:         k,
		Value:       value,
		Description: description,
	}
	EnvExposed = append(EnvExposed, k)
}

func init() {
	register(key.DownloadParallelism, 4, "Number of concurrent segment download and decrypt workers")
	register(key.DownloadRetries, 3, "Maximum retry attempts for a failed network transfer")
	register(key.DownloadRetryDelay, 2, "Initial retry delay in seconds. Doubles on every attempt")
	register(key.DownloadSegmentTimeout, 0, "Per-segment timeout in seconds. 0 disables the bound")
	register(key.DownloadRetainWorkdir, false, "Keep the per-episode working directory after completion (debugging)")
	register(key.DownloadSkipExisting, true, "Skip episodes whose output file already exists")
	register(key.DownloadResolution, 0, "Preferred stream resolution (e.g. 1080). 0 picks the best available")
	register(key.DownloadAudio, "", "Preferred audio track (e.g. jpn, eng). Empty ignores the filter")
	register(key.DownloadPath, "", "Root directory for downloaded episodes. Empty uses <user videos>/anigrab")
	register(key.ProviderHost, "https://animepahe.ru", "Base URL of the content provider")
	register(key.ProviderCatalogList, "", "Path of the master catalog list file. Empty uses the cache directory")
	register(key.ResolverScriptTimeout, 10, "Hard timeout in seconds for embedded script evaluation")
	register(key.SearchShowQuerySuggestions, true, "Show query suggestions when searching")
	register(key.IconsVariant, "plain", "Icons variant.\nAvailable options are: emoji, kaomoji, plain, squares, nerd (nerd-font required)")
	register(key.LogsWrite, false, "Write logs")
	register(key.LogsLevel, "info", "Available options are: (from less to most verbose)\npanic, fatal, error, warn, info, debug, trace")
	register(key.LogsJson, false, "Use json format for logs")
	register(key.CliColored, true, "Enable colored CLI output")
	register(key.CliVersionCheck, true, "Enable automatic version check")
}

var prettyTemplate = lo.Must(template.New("pretty").Funcs(template.FuncMap{
	"faint":  style.Faint,
	"bold":   style.Bold,
	"purple": style.Fg(color.Purple),
	"blue":   style.Fg(color.Blue),
	"cyan":   style.Fg(color.Cyan),
	"value":  func(k string) any { return viper.Get(k) },
	"hl": func(v any) string {
		switch value := v.(type) {
		case bool:
			b := strconv.FormatBool(value)
			if value {
				return style.Fg(color.Green)(b)
			}
			return style.Fg(color.Red)(b)
		case string:
			return style.Fg(color.Yellow)(value)
		default:
			return fmt.Sprint(value)
		}
	},
}).Parse(`{{ faint .Description }}
{{ blue "Key:" }}     {{ purple .Key }}
{{ blue "Env:" }}     {{ .Env }}
{{ blue "Value:" }}   {{ hl (value .Key) }}
{{ blue "Default:" }} {{ hl (.Value) }}`))
