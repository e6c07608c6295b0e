// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount represents the total cardinality of the application configuration schema.
const DefinedFieldsCount = 19

// Download Pipeline - these keys govern segment acquisition, decryption and final assembly.
const (
	DownloadParallelism    = "download.parallelism"
	DownloadRetries        = "download.retries"
	DownloadRetryDelay     = "download.retry_delay"
	DownloadSegmentTimeout = "download.segment_timeout"
	DownloadRetainWorkdir  = "download.retain_workdir"
	DownloadSkipExisting   = "download.skip_existing"
	DownloadResolution     = "download.resolution"
	DownloadAudio          = "download.audio"
	DownloadPath           = "download.path"
)

// Provider Catalog - these keys configure communication with the remote content catalog.
const (
	ProviderHost        = "provider.host"
	ProviderCatalogList = "provider.catalog_list"
)

// Stream Resolution - these keys bound the embedded script evaluation used for playlist discovery.
const (
	ResolverScriptTimeout = "resolver.script_timeout"
)

// Search Interaction - these keys define behavior of catalog search discovery.
const (
	SearchShowQuerySuggestions = "search.show_query_suggestions"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics and auditing system.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment - these flags and settings govern application behavior outside the pipeline.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
