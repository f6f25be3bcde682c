package cmd

import (
	"github.com/matheuskafuri/xupdate/internal/tui"
	"github.com/spf13/cobra"
)

func runTUI(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	return tui.Run(tui.RunOpts{
		Loader:       s.loader,
		APIBase:      s.cfg.APIBase,
		PollInterval: s.cfg.PollDuration(),
		Location:     s.cfg.Location(),
	})
}
