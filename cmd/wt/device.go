package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/zamorano/wiptrack/internal/models"
)

func newDeviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "device",
		Short: "Scanner device commands",
	}

	cmd.AddCommand(newDeviceAddCmd())
	cmd.AddCommand(newDeviceListCmd())
	return cmd
}

func newDeviceAddCmd() *cobra.Command {
	var (
		configPath string
		location   uint
		name       string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register a scanner device at a station",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			var loc models.Location
			if err := gormDB.First(&loc, location).Error; err != nil {
				return fmt.Errorf("device: location %d: %w", location, err)
			}

			dev := models.Device{
				LocationID: loc.ID,
				Name:       name,
				Token:      uuid.NewString(),
				Active:     true,
			}
			if err := gormDB.Create(&dev).Error; err != nil {
				return fmt.Errorf("device: create: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered device %d (%s) at %s\n", dev.ID, dev.Name, loc.Name)
			fmt.Fprintf(out, "Token: %s\n", dev.Token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().UintVar(&location, "location", 0, "station location ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "device name (required)")
	cmd.MarkFlagRequired("location")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newDeviceListCmd() *cobra.Command {
	var (
		configPath string
		showAll    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered scanner devices",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}

			q := gormDB.Preload("Location").Order("id")
			if !showAll {
				q = q.Where("active = ?", true)
			}
			var devices []models.Device
			if err := q.Find(&devices).Error; err != nil {
				return fmt.Errorf("device: list: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(devices) == 0 {
				fmt.Fprintln(out, "No devices found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tSTATION\tTOKEN\tACTIVE")
			for _, d := range devices {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n",
					d.ID, d.Name, d.Location.Name, truncate(d.Token, 12), d.Active)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().BoolVar(&showAll, "all", false, "include deactivated devices")
	return cmd
}
