package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func createCmd() *cobra.Command {
	var monthlyRent, deposit, period int64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an inactive agreement owned by --account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(); err != nil {
				return err
			}
			return call("POST", "/rental/v1/agreements", map[string]any{
				"owner":          account,
				"monthly_rent":   monthlyRent,
				"deposit":        deposit,
				"initial_period": period,
			})
		},
	}
	cmd.Flags().Int64Var(&monthlyRent, "monthly-rent", 0, "monthly rent in the smallest currency unit")
	cmd.Flags().Int64Var(&deposit, "deposit", 0, "required deposit in the smallest currency unit")
	cmd.Flags().Int64Var(&period, "period", 0, "initial agreement period in seconds")
	_ = cmd.MarkFlagRequired("monthly-rent")
	_ = cmd.MarkFlagRequired("deposit")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <agreement-id>",
		Short: "Show the agreement's current state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GET", "/rental/v1/agreements/"+args[0], nil)
		},
	}
}

func registerCmd() *cobra.Command {
	var payment int64
	cmd := &cobra.Command{
		Use:   "register <agreement-id>",
		Short: "Register --account as tenant, attaching the deposit payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(); err != nil {
				return err
			}
			return call("POST", "/rental/v1/agreements/"+args[0]+":register",
				map[string]any{"account": account, "payment": payment})
		},
	}
	cmd.Flags().Int64Var(&payment, "payment", 0, "attached payment")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func payCmd() *cobra.Command {
	var payment int64
	cmd := &cobra.Command{
		Use:   "pay <agreement-id>",
		Short: "Pay the current rent cycle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(); err != nil {
				return err
			}
			return call("POST", "/rental/v1/agreements/"+args[0]+":payRent",
				map[string]any{"account": account, "payment": payment})
		},
	}
	cmd.Flags().Int64Var(&payment, "payment", 0, "attached payment")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func chargesCmd() *cobra.Command {
	var extra int64
	cmd := &cobra.Command{
		Use:   "charges <agreement-id>",
		Short: "Open the next rent cycle with extra charges",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(); err != nil {
				return err
			}
			return call("POST", "/rental/v1/agreements/"+args[0]+":setCharges",
				map[string]any{"account": account, "extra": extra})
		},
	}
	cmd.Flags().Int64Var(&extra, "extra", 0, "extra charges on top of the monthly rent")
	return cmd
}

func extendCmd() *cobra.Command {
	var delta int64
	cmd := &cobra.Command{
		Use:   "extend <agreement-id>",
		Short: "Extend the rental period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(); err != nil {
				return err
			}
			return call("POST", "/rental/v1/agreements/"+args[0]+":extend",
				map[string]any{"account": account, "delta": delta})
		},
	}
	cmd.Flags().Int64Var(&delta, "delta", 0, "extension in seconds (at most 365 days)")
	_ = cmd.MarkFlagRequired("delta")
	return cmd
}

func terminateCmd() *cobra.Command {
	var payment int64
	cmd := &cobra.Command{
		Use:   "terminate <agreement-id>",
		Short: "Terminate the tenancy, attaching the exact refund",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(); err != nil {
				return err
			}
			return call("POST", "/rental/v1/agreements/"+args[0]+":terminate",
				map[string]any{"account": account, "payment": payment})
		},
	}
	cmd.Flags().Int64Var(&payment, "payment", 0, "attached refund payment")
	_ = cmd.MarkFlagRequired("payment")
	return cmd
}

func collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect <rent|change> <agreement-id>",
		Short: "Pull funds a failed push left behind",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireAccount(); err != nil {
				return err
			}
			var op string
			switch args[0] {
			case "rent":
				op = ":collectRent"
			case "change":
				op = ":collectChange"
			default:
				return fmt.Errorf("collect target must be rent or change")
			}
			return call("POST", "/rental/v1/agreements/"+args[1]+op,
				map[string]any{"account": account})
		},
	}
}

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events <agreement-id>",
		Short: "Show the agreement's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call("GET", "/rental/v1/agreements/"+args[0]+"/events", nil)
		},
	}
}
