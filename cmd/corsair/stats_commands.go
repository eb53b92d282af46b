package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats <user>",
		Short: "Show a player's raid record and balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			stats, err := client.PlayerStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			name := stats.Username
			if name == "" {
				name = stats.UserID
			}
			rows := [][]string{
				{"Player", name},
				{"Balance", strconv.Itoa(stats.Balance)},
				{"Raids joined", strconv.Itoa(stats.RaidsJoined)},
				{"Raids won", strconv.Itoa(stats.RaidsWon)},
				{"Total invested", strconv.Itoa(stats.TotalInvested)},
				{"Total rewarded", strconv.Itoa(stats.TotalRewarded)},
				{"Last raid", formatTimestamp(stats.LastRaidAt)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Field", "Value"}, rows,
				[]columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func newLeaderboardCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Show the top raid earners",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			players, err := client.Leaderboard(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(players) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No raid activity recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(players))
			for i, player := range players {
				name := player.Username
				if name == "" {
					name = player.UserID
				}
				rows = append(rows, []string{
					strconv.Itoa(i + 1),
					name,
					strconv.Itoa(player.RaidsJoined),
					strconv.Itoa(player.RaidsWon),
					strconv.Itoa(player.TotalInvested),
					strconv.Itoa(player.TotalRewarded),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"#", "Player", "Joined", "Won", "Invested", "Rewarded"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignRight}))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum players to list")
	return cmd
}
