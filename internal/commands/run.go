// ABOUTME: The run command, which starts the appliance
// ABOUTME: Binds the common tuning flags into viper and blocks until signaled
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cambox-project/cambox-go/internal/app"
	"github.com/cambox-project/cambox-go/internal/config"
)

// runCmd represents the run command.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the appliance",
	Args:  cobra.MaximumNArgs(0),
	Run:   runAppliance,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("stream", "", "VBAN stream name")
	runCmd.Flags().String("target", "", "intercom peer host")
	runCmd.Flags().String("backend", "", "audio backend (malgo, oto, sim)")
	runCmd.Flags().String("video-device", "", "capture device, or auto")
	runCmd.Flags().Bool("no-intercom", false, "disable the intercom")
	runCmd.Flags().Bool("no-monitor", false, "disable the status endpoint")

	// Expose to the application via viper.
	_ = viper.BindPFlag("intercom.stream", runCmd.Flags().Lookup("stream"))
	_ = viper.BindPFlag("intercom.target", runCmd.Flags().Lookup("target"))
	_ = viper.BindPFlag("audio.backend", runCmd.Flags().Lookup("backend"))
	_ = viper.BindPFlag("video.device", runCmd.Flags().Lookup("video-device"))
}

func runAppliance(cmd *cobra.Command, _ []string) {
	// The disable flags invert enabled keys, so they only apply when
	// actually passed.
	if cmd.Flags().Changed("no-intercom") {
		viper.Set("intercom.enabled", false)
	}
	if cmd.Flags().Changed("no-monitor") {
		viper.Set("monitor.enabled", false)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	appliance, err := app.New(cfg, app.Options{})
	if err != nil {
		logrus.WithError(err).Fatal("failed to wire appliance")
	}

	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := appliance.Run(ctx); err != nil {
		logrus.WithError(err).Fatal("appliance failed")
	}
}
