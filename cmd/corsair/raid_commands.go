package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newRaidCommand(ctx *commandContext) *cobra.Command {
	raidCmd := &cobra.Command{
		Use:   "raid",
		Short: "Raid session operations",
	}

	raidCmd.AddCommand(newRaidStartCommand(ctx))
	raidCmd.AddCommand(newRaidResetCommand(ctx))
	raidCmd.AddCommand(newRaidJoinCommand(ctx))
	raidCmd.AddCommand(newRaidInvestCommand(ctx))
	raidCmd.AddCommand(newRaidHistoryCommand(ctx))

	return raidCmd
}

func newRaidStartCommand(ctx *commandContext) *cobra.Command {
	var viewers int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start a raid session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.StartRaid(cmd.Context(), viewers)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Raid started: %s (crew needed %d, recruiting for %s)\n",
				status.ShipType, status.RequiredCrew, formatSeconds(status.SecondsRemaining))
			return nil
		},
	}
	cmd.Flags().IntVar(&viewers, "viewers", 0, "Current audience size")
	_ = cmd.MarkFlagRequired("viewers")
	return cmd
}

func newRaidResetCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Cancel the current session and refund participants",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			message, err := client.ResetRaid(cmd.Context(), reason)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded with the cancellation")
	return cmd
}

func newRaidJoinCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join <user> <amount>",
		Short: "Join the recruiting raid as a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			message, err := client.Join(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}
	return cmd
}

func newRaidInvestCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invest <user> <amount>",
		Short: "Raise a participant's stake during the milestone window",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid amount %q", args[1])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			message, err := client.Invest(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), message)
			return nil
		},
	}
	return cmd
}

func newRaidHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List finished raids",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			raids, err := client.History(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(raids) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No finished raids yet")
				return nil
			}

			rows := make([][]string, 0, len(raids))
			for _, raid := range raids {
				rows = append(rows, []string{
					formatTimestamp(raid.EndTime),
					raid.ShipType,
					displayStatus(raid.Status),
					fmt.Sprintf("%d/%d", raid.Crew, raid.RequiredCrew),
					formatMultiplier(raid.FinalMultiplier),
					strconv.Itoa(raid.TotalInvested),
					strconv.Itoa(raid.TotalRewards),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Ended", "Ship", "Outcome", "Crew", "Multiplier", "Invested", "Rewards"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum raids to list")
	return cmd
}
