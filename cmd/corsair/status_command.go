package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and raid status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				{"Running", yesNo(status.Running)},
				{"PID", strconv.Itoa(status.PID)},
				{"Data dir", status.DataDir},
				{"Raid state", displayStatus(status.Raid.State)},
			}
			if status.Raid.ShipType != "" {
				rows = append(rows,
					[]string{"Ship", status.Raid.ShipType},
					[]string{"Crew", fmt.Sprintf("%d/%d", status.Raid.CurrentCrew, status.Raid.RequiredCrew)},
					[]string{"Multiplier", formatMultiplier(status.Raid.CurrentMultiplier)},
					[]string{"Invested", strconv.Itoa(status.Raid.TotalInvested)},
					[]string{"Time left", formatSeconds(status.Raid.SecondsRemaining)},
				)
			}
			rows = append(rows,
				[]string{"Scheduler", yesNo(status.Scheduler.Enabled)},
				[]string{"Start chance", formatPercent(status.Scheduler.Probability)},
				[]string{"Forced start in", formatSeconds(status.Scheduler.SecondsUntilForce)},
			)

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"}, rows,
				[]columnAlignment{alignLeft, alignLeft}))
			return nil
		},
	}
}
