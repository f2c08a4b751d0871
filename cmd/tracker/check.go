package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func runCheck(cmd *cobra.Command, args []string) error {
	wallet := args[0]
	dsn, _ := cmd.Flags().GetString("pg-dsn")
	path, _ := cmd.Flags().GetString("blacklist")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, storeClose, err := openStore(ctx, dsn, path)
	if err != nil {
		return err
	}
	defer storeClose()

	entry, found, err := store.Get(ctx, wallet)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(os.Stdout, "%s is not blacklisted\n", wallet)
		return nil
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entry)
}
