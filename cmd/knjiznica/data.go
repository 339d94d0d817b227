package main

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/erazemk/knjiznica/internal/store"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newResetCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the demo dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, f, func(ctx context.Context, s *store.Store) error {
				snap, err := s.ResetDemoState(ctx)
				if err != nil {
					return fmt.Errorf("resetting dataset: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Demo data restored: %d books, %d members, %d loans.\n",
					len(snap.Books), len(snap.Members), len(snap.Loans))
				return nil
			})
		},
	}
}

func newSnapshotCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current dataset as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd, f, func(ctx context.Context, s *store.Store) error {
				snap, err := s.GetSnapshot(ctx)
				if err != nil {
					return fmt.Errorf("reading dataset: %w", err)
				}
				out, err := json.MarshalIndent(snap, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding dataset: %w", err)
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return err
			})
		},
	}
}
