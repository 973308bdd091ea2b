// ABOUTME: CLI setup and the commands exposed to the user
// ABOUTME: Root command wires flags, logging, and config loading
package commands

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cambox-project/cambox-go/internal/config"
)

var (
	// ConfigFile is the --config value; empty means search the
	// standard paths.
	ConfigFile string

	verbose bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cambox",
	Short: "USB camera to NDI appliance with a VBAN intercom",
	Long: `cambox turns a small Linux box with a USB camera and headset into a
network camera: video goes out as an NDI stream and a full-duplex VBAN
intercom connects the operator to the mixing desk.`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	// Config loads after flags parse, so --config wins over the
	// search paths.
	cobra.OnInitialize(func() {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
		if err := config.Init(ConfigFile); err != nil {
			logrus.WithError(err).Fatal("failed to load config")
		}
	})

	rootCmd.PersistentFlags().StringVar(&ConfigFile, "config", "", "config file (default searches /etc/cambox, then the working directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
