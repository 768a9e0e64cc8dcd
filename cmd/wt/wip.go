package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zamorano/wiptrack/internal/wip"
)

func newReworkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rework",
		Short: "Rework hold commands",
	}

	cmd.AddCommand(newReworkStartCmd())
	cmd.AddCommand(newReworkReleaseCmd())
	return cmd
}

func newReworkStartCmd() *cobra.Command {
	var (
		configPath string
		actor      uint
		device     uint
		location   uint
		lot        string
		part       string
		qty        uint
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Place a lot on rework hold",
		Long:  "Puts the lot's WIP record on HOLD and logs the rework request. Scans against the lot are rejected until it is released.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			res, err := wip.StartRework(gormDB, wip.StartReworkOpts{
				Lot:        lot,
				PartNumber: part,
				ActorID:    actor,
				DeviceID:   device,
				LocationID: location,
				Qty:        qty,
				Reason:     reason,
			})
			if err != nil {
				return err
			}
			printOpResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().UintVar(&actor, "actor", 0, "operator ID (required)")
	cmd.Flags().UintVar(&device, "device", 0, "scanner device ID")
	cmd.Flags().UintVar(&location, "location", 0, "station where the defect was found")
	cmd.Flags().StringVar(&lot, "lot", "", "lot / work order number (required)")
	cmd.Flags().StringVar(&part, "part", "", "part number (required)")
	cmd.Flags().UintVar(&qty, "qty", 0, "quantity sent to rework")
	cmd.Flags().StringVar(&reason, "reason", "", "why the lot needs rework")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("lot")
	cmd.MarkFlagRequired("part")
	return cmd
}

func newReworkReleaseCmd() *cobra.Command {
	var (
		configPath string
		lot        string
		part       string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Release a lot from rework hold",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			res, err := wip.ReleaseRework(gormDB, lot, part)
			if err != nil {
				return err
			}
			printOpResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().StringVar(&lot, "lot", "", "lot / work order number (required)")
	cmd.Flags().StringVar(&part, "part", "", "part number (required)")
	cmd.MarkFlagRequired("lot")
	cmd.MarkFlagRequired("part")
	return cmd
}

func newCancelCmd() *cobra.Command {
	var (
		configPath string
		actor      uint
		device     uint
		lot        string
		part       string
		reason     string
	)

	cmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel a lot, scrapping its WIP record",
		Long:  "Forces the lot's WIP record to SCRAPPED and writes a manual audit event at its current step. Already closed lots are refused.",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			res, err := wip.Cancel(gormDB, wip.CancelOpts{
				Lot:        lot,
				PartNumber: part,
				ActorID:    actor,
				DeviceID:   device,
				Reason:     reason,
			})
			if err != nil {
				return err
			}
			printOpResult(cmd, res)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().UintVar(&actor, "actor", 0, "operator ID (required)")
	cmd.Flags().UintVar(&device, "device", 0, "scanner device ID (required)")
	cmd.Flags().StringVar(&lot, "lot", "", "lot / work order number (required)")
	cmd.Flags().StringVar(&part, "part", "", "part number (required)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the lot is cancelled")
	cmd.MarkFlagRequired("actor")
	cmd.MarkFlagRequired("device")
	cmd.MarkFlagRequired("lot")
	cmd.MarkFlagRequired("part")
	return cmd
}

func printOpResult(cmd *cobra.Command, res *wip.OpResult) {
	out := cmd.OutOrStdout()
	if res.Ok {
		fmt.Fprintf(out, "OK: status %s\n", res.Status)
		return
	}
	fmt.Fprintf(out, "REJECTED: %s", res.Reason)
	if res.Status != "" {
		fmt.Fprintf(out, " (status %s)", res.Status)
	}
	fmt.Fprintln(out)
}
