package cmd

import (
	"fmt"

	"github.com/ColonelBlimp/keydecoder/internal/audio"
	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio capture devices",
	Long:  `Lists the capture devices usable with input: tone. Pass the index as device_index.`,
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

// listDevices is replaced in tests.
var listDevices = func() ([]audio.Device, error) {
	capture := audio.New(audio.DefaultConfig())
	if err := capture.Init(); err != nil {
		return nil, err
	}
	defer capture.Close()
	return capture.Devices()
}

func runDevices(cmd *cobra.Command, _ []string) error {
	devices, err := listDevices()
	if err != nil {
		return fmt.Errorf("audio: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(devices) == 0 {
		fmt.Fprintln(out, "no capture devices found")
		return nil
	}
	for _, d := range devices {
		fmt.Fprintf(out, "%3d  %s\n", d.Index, d.Name)
	}
	return nil
}
