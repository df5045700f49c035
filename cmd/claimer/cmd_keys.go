package main

import (
	"fmt"

	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/spf13/cobra"
)

func newKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List the addresses behind the key list without opening a browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := readSettings(gf)
			if err != nil {
				return err
			}
			keys, err := claimcore.ReadKeyFile(st.KeysFile)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				return fmt.Errorf("%s: %w", st.KeysFile, claimcore.ErrEmptyKeyList)
			}
			out := cmd.OutOrStdout()
			for _, line := range describeKeys(keys) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func describeKeys(keys []string) []string {
	lines := make([]string, 0, len(keys))
	for i, raw := range keys {
		k, err := claimcore.ParsePrivateKey(raw)
		if err != nil {
			lines = append(lines, fmt.Sprintf("[%d] invalid (%s)", i+1, claimcore.MaskHex(raw)))
			continue
		}
		lines = append(lines, fmt.Sprintf("[%d] %s", i+1, k.Address.Hex()))
	}
	return lines
}
