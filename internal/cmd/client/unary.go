package client

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPingCommand(conn *connOptions) *cobra.Command {
	var count int32
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Round-trip a ping to the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			got, err := conn.transport().Ping(cmd.Context(), count)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "pong:", got)
			return nil
		},
	}
	cmd.Flags().Int32Var(&count, "count", 1, "Value echoed by the server")
	return cmd
}

func newSlotCommand(conn *connOptions) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "slot",
		Short: "Print the highest slot at a commitment level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := parseCommitment(level)
			if err != nil {
				return err
			}
			slot, err := conn.transport().GetSlot(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), slot)
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "commitment", "processed", "Commitment: processed|confirmed|finalized")
	return cmd
}

func newBlockHeightCommand(conn *connOptions) *cobra.Command {
	var level string
	cmd := &cobra.Command{
		Use:   "block-height",
		Short: "Print the latest block height at a commitment level",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := parseCommitment(level)
			if err != nil {
				return err
			}
			h, err := conn.transport().GetBlockHeight(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "commitment", "processed", "Commitment: processed|confirmed|finalized")
	return cmd
}

func newBlockhashCommand(conn *connOptions) *cobra.Command {
	var level, check string
	cmd := &cobra.Command{
		Use:   "blockhash",
		Short: "Print the latest blockhash, or check one with --check",
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := parseCommitment(level)
			if err != nil {
				return err
			}
			t := conn.transport()
			if check != "" {
				valid, slot, err := t.IsBlockhashValid(cmd.Context(), check, l)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "valid: %t slot: %d\n", valid, slot)
				return nil
			}
			ref, err := t.GetLatestBlockhash(cmd.Context(), l)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "slot: %d blockhash: %s last_valid_block_height: %d\n",
				ref.Slot, ref.Blockhash, ref.LastValidBlockHeight)
			return nil
		},
	}
	cmd.Flags().StringVar(&level, "commitment", "processed", "Commitment: processed|confirmed|finalized")
	cmd.Flags().StringVar(&check, "check", "", "Blockhash to validate")
	return cmd
}

func newVersionCommand(conn *connOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "server-version",
		Short: "Print the server version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			v, err := conn.transport().GetVersion(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		},
	}
}
