// ABOUTME: The monitor command, a terminal dashboard for a running appliance
// ABOUTME: Takes an address or finds one over mDNS, then hands off to the TUI
package commands

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/cambox-project/cambox-go/internal/discovery"
	"github.com/cambox-project/cambox-go/internal/tui"
)

// monitorCmd represents the monitor command.
var monitorCmd = &cobra.Command{
	Use:   "monitor [addr]",
	Short: "Watch a running appliance from the terminal",
	Args:  cobra.MaximumNArgs(1),
	Run:   runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
}

func runMonitor(_ *cobra.Command, args []string) {
	var addr string
	if len(args) == 1 {
		addr = args[0]
	} else {
		logrus.Info("browsing for appliances")
		appliances, err := discovery.Browse(0)
		if err != nil {
			logrus.WithError(err).Fatal("mdns browse failed")
		}
		if len(appliances) == 0 {
			logrus.Fatal("no appliance found, pass an address")
		}
		found := appliances[0]
		logrus.WithFields(logrus.Fields{
			"name": found.Name,
			"addr": found.Addr(),
		}).Info("found appliance")
		addr = found.Addr()
	}

	// The TUI owns the terminal; stray log lines would tear the screen.
	logOut := logrus.StandardLogger().Out
	logrus.SetOutput(io.Discard)

	err := tui.Run(addr)
	logrus.SetOutput(logOut)
	if err != nil {
		logrus.WithError(err).Fatal("monitor failed")
	}
}
