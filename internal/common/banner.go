package common

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/banner"
)

// PrintBanner displays the application startup banner
func PrintBanner(config *Config, logger arbor.ILogger) {
	version := GetVersion()
	build := GetBuild()

	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(80)

	fmt.Printf("\n")
	b.PrintTopLine()
	b.PrintCenteredText("LEADFORGE")
	b.PrintCenteredText("Judicial Auction Document Intelligence Pipeline")
	b.PrintSeparatorLine()
	b.PrintKeyValue("Version", version, 20)
	b.PrintKeyValue("Build", build, 20)
	b.PrintKeyValue("Environment", config.Environment, 20)
	b.PrintKeyValue("Object Store", config.ObjectStore.Backend, 20)
	b.PrintKeyValue("Badger Path", config.Storage.Badger.Path, 20)
	b.PrintBottomLine()
	fmt.Printf("\n")

	logger.Info().
		Str("version", version).
		Str("build", build).
		Str("environment", config.Environment).
		Str("object_store_backend", config.ObjectStore.Backend).
		Msg("Application started")

	logFilePath := ""
	if loggerWithPath, ok := interface{}(logger).(interface{ GetLogFilePath() string }); ok {
		logFilePath = loggerWithPath.GetLogFilePath()
	}

	printCapabilities(config, logger)
	logger.Info().
		Str("log_file", logFilePath).
		Int("chunk_size_pages", config.Pipeline.ChunkSizePages).
		Int("overlap_pages", config.Pipeline.OverlapPages).
		Int64("max_upload_size_bytes", config.Pipeline.MaxUploadSizeBytes).
		Msg("Pipeline configuration loaded")
	fmt.Printf("\n")
}

// printCapabilities prints the pipeline stages and schedules this process
// will run, so an operator reading the startup log can see what's active
// without cross-referencing the config file.
func printCapabilities(config *Config, logger arbor.ILogger) {
	fmt.Printf("Pipeline stages:\n")
	fmt.Printf("   - PDF validation and chunk planning (%d pages/chunk, %d page overlap)\n",
		config.Pipeline.ChunkSizePages, config.Pipeline.OverlapPages)
	fmt.Printf("   - Content analysis (judicial/financial pattern extraction)\n")
	fmt.Printf("   - Ensemble scoring (random forest + gradient boosting)\n")
	fmt.Printf("   - Object storage: %s\n", config.ObjectStore.Backend)
	fmt.Printf("\nScheduled jobs:\n")
	fmt.Printf("   - Uncertainty sweep:    %s\n", config.Scheduler.UncertaintySweepSchedule)
	fmt.Printf("   - Feedback batch:       %s\n", config.Scheduler.FeedbackBatchSchedule)
	fmt.Printf("   - Stale job reaper:     %s\n", config.Scheduler.StaleJobReaperSchedule)

	logger.Info().
		Str("uncertainty_sweep_schedule", config.Scheduler.UncertaintySweepSchedule).
		Str("feedback_batch_schedule", config.Scheduler.FeedbackBatchSchedule).
		Str("stale_job_reaper_schedule", config.Scheduler.StaleJobReaperSchedule).
		Msg("Scheduled jobs registered")
}

// PrintShutdownBanner displays the application shutdown banner
func PrintShutdownBanner(logger arbor.ILogger) {
	b := banner.New().
		SetStyle(banner.StyleDouble).
		SetBorderColor(banner.ColorGreen).
		SetTextColor(banner.ColorWhite).
		SetBold(true).
		SetWidth(42)

	b.PrintTopLine()
	b.PrintCenteredText("SHUTTING DOWN")
	b.PrintCenteredText("LEADFORGE")
	b.PrintBottomLine()
	fmt.Println()

	logger.Info().Msg("Application shutting down")
}

// PrintColorizedMessage prints a message with specified color to stdout. It
// does not log; the logger argument is unused (the Print* helpers log separately).
func PrintColorizedMessage(color, message string, logger arbor.ILogger) {
	fmt.Printf("%s%s%s\n", color, message, banner.ColorReset)
}

// PrintSuccess prints a success message in green and logs it
func PrintSuccess(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorGreen, fmt.Sprintf("✓ %s", message), logger)
	logger.Info().Str("type", "success").Msg(message)
}

// PrintError prints an error message in red and logs it
func PrintError(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorRed, fmt.Sprintf("✗ %s", message), logger)
	logger.Error().Str("type", "error").Msg(message)
}

// PrintWarning prints a warning message in yellow and logs it
func PrintWarning(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorYellow, fmt.Sprintf("⚠ %s", message), logger)
	logger.Warn().Str("type", "warning").Msg(message)
}

// PrintInfo prints an info message in cyan and logs it
func PrintInfo(message string) {
	logger := GetLogger()
	PrintColorizedMessage(banner.ColorCyan, fmt.Sprintf("ℹ %s", message), logger)
	logger.Info().Str("type", "info").Msg(message)
}
