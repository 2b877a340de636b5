package main

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/gorilla/securecookie"
	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "Generate ADMIN_SESSION_HASH_KEY and ADMIN_SESSION_BLOCK_KEY values (hex)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			hash := securecookie.GenerateRandomKey(64)
			block := securecookie.GenerateRandomKey(32)
			if hash == nil || block == nil {
				return errors.New("could not read random bytes")
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "export ADMIN_SESSION_HASH_KEY=%s\n", hex.EncodeToString(hash))
			fmt.Fprintf(out, "export ADMIN_SESSION_BLOCK_KEY=%s\n", hex.EncodeToString(block))
			return nil
		},
	}
}
