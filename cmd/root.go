// Package cmd implements the command-line interface for anigrab.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/anigrab-cli/anigrab/color"
	"github.com/anigrab-cli/anigrab/constant"
	"github.com/anigrab-cli/anigrab/downloader"
	"github.com/anigrab-cli/anigrab/icon"
	"github.com/anigrab-cli/anigrab/key"
	"github.com/anigrab-cli/anigrab/log"
	"github.com/anigrab-cli/anigrab/network"
	"github.com/anigrab-cli/anigrab/provider"
	"github.com/anigrab-cli/anigrab/query"
	"github.com/anigrab-cli/anigrab/resolver"
	"github.com/anigrab-cli/anigrab/selection"
	"github.com/anigrab-cli/anigrab/style"
	"github.com/anigrab-cli/anigrab/util"
	"github.com/anigrab-cli/anigrab/version"
	"github.com/anigrab-cli/anigrab/where"
	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, plain)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	rootCmd.Flags().StringP("episodes", "e", "", "Episode selection expression (e.g. '1-8,!5', '*', 'L3')")
	rootCmd.Flags().IntP("resolution", "r", 0, "Preferred vertical resolution (e.g. 1080)")
	rootCmd.Flags().StringP("audio", "a", "", "Preferred audio language (e.g. jpn, eng)")
	lo.Must0(viper.BindPFlag(key.DownloadResolution, rootCmd.Flags().Lookup("resolution")))
	lo.Must0(viper.BindPFlag(key.DownloadAudio, rootCmd.Flags().Lookup("audio")))

	rootCmd.Flags().IntP("parallelism", "p", 0, "Concurrent segment download workers")
	lo.Must0(viper.BindPFlag(key.DownloadParallelism, rootCmd.Flags().Lookup("parallelism")))

	rootCmd.Flags().BoolP("link-only", "L", false, "Resolve and print playlist URLs without downloading")
	rootCmd.Flags().Bool("retain", false, "Keep per-episode working directories after completion")
	lo.Must0(viper.BindPFlag(key.DownloadRetainWorkdir, rootCmd.Flags().Lookup("retain")))
	rootCmd.Flags().Bool("skip-existing", true, "Skip episodes whose output file already exists")
	lo.Must0(viper.BindPFlag(key.DownloadSkipExisting, rootCmd.Flags().Lookup("skip-existing")))

	rootCmd.Flags().BoolP("best", "b", false, "Take the closest search match without prompting")

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	// Initialize cleanup of localized temporary files on application startup.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for the anigrab application.
var rootCmd = &cobra.Command{
	Use:   constant.Anigrab + " [query]",
	Short: "A command-line HLS downloader for anime episodes",
	Long: style.New().Italic(true).Foreground(color.HiPurple).
		Render("Search a provider catalog, pick episodes and save them as local video files."),
	Args: cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		if !lo.Must(cmd.Flags().GetBool("link-only")) {
			CheckDependencies()
		}

		handleErr(runDownload(cmd, args))
	},
}

// runDownload drives the full search, selection and download flow.
func runDownload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		prompt := &survey.Input{
			Message: "Search anime",
			Suggest: query.SuggestMany,
		}
		if err := survey.AskOne(prompt, &q, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}
	_ = query.Remember(q, 1)

	client := provider.New(network.NewSession(viper.GetString(key.ProviderHost)))

	erase := util.PrintErasable(fmt.Sprintf("%s Searching for %s...", icon.Get(icon.Progress), style.Bold(q)))
	results, err := client.Search(ctx, q)
	erase()
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no series found for %s", style.Bold(q))
	}

	series, err := chooseSeries(cmd, q, results)
	if err != nil {
		return err
	}

	erase = util.PrintErasable(fmt.Sprintf("%s Fetching episode list for %s...", icon.Get(icon.Progress), style.Bold(series.Title)))
	records, err := client.Episodes(ctx, series)
	erase()
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("%s has no released episodes", style.Bold(series.Title))
	}

	available := lo.Map(records, func(r provider.EpisodeRecord, _ int) int {
		return r.Episode
	})

	expression := lo.Must(cmd.Flags().GetString("episodes"))
	if expression == "" {
		prompt := &survey.Input{
			Message: fmt.Sprintf("Which episodes? %s available, e.g. '1-8,!5', '*', 'L3'", util.Quantify(len(available), "episode", "episodes")),
		}
		if err := survey.AskOne(prompt, &expression, survey.WithValidator(survey.Required)); err != nil {
			return err
		}
	}

	episodes, err := selection.Evaluate(expression, available)
	if err != nil {
		return err
	}
	log.Infof("selected %s of %d available", util.Quantify(len(episodes), "episode", "episodes"), len(available))

	report := downloader.Run(ctx, client, series, records, episodes, downloadOptions(cmd))
	printSummary(report)

	if report.Failed() > 0 {
		os.Exit(1)
	}

	return nil
}

// chooseSeries resolves the search results to a single series, interactively
// unless --best short-circuits to the closest title match.
func chooseSeries(cmd *cobra.Command, q string, results []provider.Series) (provider.Series, error) {
	if lo.Must(cmd.Flags().GetBool("best")) || len(results) == 1 {
		return provider.Closest(q, results).OrElse(results[0]), nil
	}

	options := lo.Map(results, func(s provider.Series, _ int) string {
		return fmt.Sprintf("%s (%s, %d, %s)", s.Title, s.Type, s.Year, util.Quantify(s.Episodes, "episode", "episodes"))
	})

	var index int
	prompt := &survey.Select{
		Message: "Which series?",
		Options: options,
		Default: options[lo.IndexOf(results, provider.Closest(q, results).OrElse(results[0]))],
	}
	if err := survey.AskOne(prompt, &index); err != nil {
		return provider.Series{}, err
	}

	return results[index], nil
}

// downloadOptions assembles the orchestrator options from flags and config.
func downloadOptions(cmd *cobra.Command) downloader.Options {
	preferences := resolver.Preferences{}
	if resolution := viper.GetInt(key.DownloadResolution); resolution > 0 {
		preferences.Resolution = mo.Some(resolution)
	}
	if audio := viper.GetString(key.DownloadAudio); audio != "" {
		preferences.Audio = mo.Some(audio)
	}

	return downloader.Options{
		Preferences:    preferences,
		Parallelism:    viper.GetInt(key.DownloadParallelism),
		SegmentTimeout: time.Duration(viper.GetInt(key.DownloadSegmentTimeout)) * time.Second,
		Retain:         viper.GetBool(key.DownloadRetainWorkdir),
		SkipExisting:   viper.GetBool(key.DownloadSkipExisting),
		LinkOnly:       lo.Must(cmd.Flags().GetBool("link-only")),
	}
}

func printSummary(report downloader.Report) {
	if report.Failed() == 0 {
		fmt.Printf("%s %s downloaded\n", icon.Get(icon.Success), util.Quantify(report.Succeeded(), "episode", "episodes"))
		return
	}

	fmt.Printf(
		"%s %s downloaded, %s\n",
		icon.Get(icon.Fail),
		util.Quantify(report.Succeeded(), "episode", "episodes"),
		style.Fg(color.Red)(fmt.Sprintf("%d failed", report.Failed())),
	)
	for _, failure := range report.Failures() {
		fmt.Printf("  E%d failed while %s: %v\n", failure.Episode, failure.State, failure.Err)
	}
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
