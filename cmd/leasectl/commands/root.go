package commands

import (
	"github.com/spf13/cobra"
)

var (
	baseURL string
	account string
)

func Execute() error {
	root := &cobra.Command{
		Use:   "leasectl",
		Short: "Operate a rental agreement from the command line",
	}

	root.PersistentFlags().StringVar(&baseURL, "base-url", "http://localhost:8091", "rental service base URL")
	root.PersistentFlags().StringVar(&account, "account", "", "acting account id")

	root.AddCommand(
		createCmd(),
		statusCmd(),
		registerCmd(),
		payCmd(),
		chargesCmd(),
		extendCmd(),
		terminateCmd(),
		collectCmd(),
		eventsCmd(),
	)
	return root.Execute()
}
