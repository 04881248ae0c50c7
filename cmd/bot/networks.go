package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/airswap/airswap-bot/internal/chain"
	"github.com/airswap/airswap-bot/internal/listener"
)

func runNetworks(cmd *cobra.Command, _ []string) error {
	bindings, err := listener.DefaultBindings(nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CHAIN\tNAME\tEXPLORER\tCONTRACTS")
	for _, id := range chain.KnownChainIDs() {
		network, _ := chain.LookupNetwork(id)
		deployed := 0
		for _, b := range bindings {
			if _, ok := b.Address(id); ok {
				deployed++
			}
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%d/%d\n", id, network.Name, network.ExplorerURL, deployed, len(bindings))
	}
	return w.Flush()
}
