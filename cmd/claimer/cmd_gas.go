package main

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ligun0805/airdrop-claimer/internal/chain"
	"github.com/ligun0805/airdrop-claimer/internal/claimcore"
	"github.com/ligun0805/airdrop-claimer/internal/config"
	"github.com/spf13/cobra"
)

func newGasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gas",
		Short: "Print chain id, network fees and the quote the claim would use",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := readSettings(gf)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			ec, err := chain.Dial(ctx, st.RPCURL, st.RPCRPS)
			if err != nil {
				return err
			}
			defer ec.Close()
			return printNetworkState(ctx, cmd.OutOrStdout(), ec, st)
		},
	}
}

// printNetworkState reports the same inputs the processor feeds into the gas policy.
func printNetworkState(ctx context.Context, w io.Writer, r claimcore.ChainReader, st config.Settings) error {
	id, err := r.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chainId: %s: %w", claimcore.ClassifyRPCError(err), err)
	}
	mark := "ok"
	if id.Cmp(big.NewInt(st.ChainID)) != 0 {
		mark = fmt.Sprintf("expected %d", st.ChainID)
	}
	fmt.Fprintf(w, "[net] chainId: %s (%s)\n", id, mark)

	if common.IsHexAddress(st.ClaimContract) {
		addr := common.HexToAddress(st.ClaimContract)
		code, err := r.CodeAt(ctx, addr, nil)
		switch {
		case err != nil:
			fmt.Fprintf(w, "[net] contract %s: %s\n", addr.Hex(), claimcore.ClassifyRPCError(err))
		case len(code) == 0:
			fmt.Fprintf(w, "[net] contract %s: no bytecode\n", addr.Hex())
		default:
			fmt.Fprintf(w, "[net] contract %s: %d bytes\n", addr.Hex(), len(code))
		}
	}

	snap, err := claimcore.FetchFeeSnapshot(ctx, r)
	if err != nil {
		fmt.Fprintln(w, "[net] fee data error:", err)
	}
	fmt.Fprintf(w, "[net] gasPrice: %s gwei\n", claimcore.FormatGwei(snap.GasPrice))
	if snap.MaxFeePerGas != nil {
		fmt.Fprintf(w, "[net] maxFee: %s gwei, tip: %s gwei\n", claimcore.FormatGwei(snap.MaxFeePerGas), claimcore.FormatGwei(snap.MaxPriorityFeePerGas))
	}
	q := claimcore.NewGasPolicy(st.FixedGasPriceGwei, st.GasMultiplier, st.MaxGasPriceGwei).Quote(snap)
	fmt.Fprintf(w, "[net] quote: %s\n", q)
	return nil
}
