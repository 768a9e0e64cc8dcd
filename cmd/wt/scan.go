package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zamorano/wiptrack/internal/scan"
)

func newScanCmd() *cobra.Command {
	var (
		configPath string
		actor      uint
		device     uint
		lot        string
		part       string
		qty        uint
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Report a scan for a lot",
		Long: `Validates a scan against the lot's expected position and advances it.
A quantity of zero scraps the lot. The first scan of an unknown lot creates
its work order and WIP record on the product's active route.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			res, err := scan.Scan(gormDB, scan.Input{
				ActorID:    actor,
				DeviceID:   device,
				Lot:        lot,
				PartNumber: part,
				Qty:        qty,
			})
			if err != nil {
				return err
			}
			printScanResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().UintVar(&actor, "actor", 0, "operator ID (required)")
	cmd.Flags().UintVar(&device, "device", 0, "scanner device ID (required)")
	cmd.Flags().StringVar(&lot, "lot", "", "lot / work order number (required)")
	cmd.Flags().StringVar(&part, "part", "", "part number (required)")
	cmd.Flags().UintVar(&qty, "qty", 0, "quantity entering the station")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagRequired("lot")
	cmd.MarkFlagRequired("part")
	return cmd
}

func printScanResult(cmd *cobra.Command, res *scan.Result) {
	out := cmd.OutOrStdout()

	if !res.Ok {
		fmt.Fprintf(out, "REJECTED: %s (status %s)\n", res.Reason, res.Status)
		if res.ExpectedLocation != "" {
			fmt.Fprintf(out, "Expected station: %s (step %d)\n", res.ExpectedLocation, res.CurrentStep)
		}
		if res.PreviousQty != nil {
			fmt.Fprintf(out, "Previous quantity: %d\n", *res.PreviousQty)
		}
		return
	}

	fmt.Fprintf(out, "OK: status %s\n", res.Status)
	if res.Scrap > 0 {
		fmt.Fprintf(out, "Scrap recorded: %d\n", res.Scrap)
	}
	if res.NextStep > 0 {
		fmt.Fprintf(out, "Next: step %d at %s\n", res.NextStep, res.NextLocation)
	}
}

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status <lot>",
		Short: "Show where a lot is and what happens next",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			qs, err := scan.GetStatus(gormDB, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if qs == nil {
				fmt.Fprintf(out, "Lot %s is unknown.\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "Lot:     %s\n", qs.WoNumber)
			fmt.Fprintf(out, "Status:  %s\n", qs.Status)
			if qs.CurrentStep > 0 {
				fmt.Fprintf(out, "Step:    %d\n", qs.CurrentStep)
			}
			if qs.ExpectedLocation != "" {
				fmt.Fprintf(out, "Station: %s\n", qs.ExpectedLocation)
			}
			if qs.QtyMax != nil {
				fmt.Fprintf(out, "Max qty: %d\n", *qs.QtyMax)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	return cmd
}
