package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zamorano/wiptrack/internal/route"
)

func newRouteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "route",
		Short: "Route management commands",
	}

	cmd.AddCommand(newRouteSaveCmd())
	cmd.AddCommand(newRouteActivateCmd())
	cmd.AddCommand(newRouteListCmd())
	cmd.AddCommand(newRouteShowCmd())
	return cmd
}

func newRouteSaveCmd() *cobra.Command {
	var (
		configPath string
		routeID    uint
		subfamily  uint
		name       string
		steps      []uint
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Create a route version or edit an existing route",
		Long: `Creates a new route version for a subfamily, or edits the route named by
--id. Steps are location IDs in process order; the first --step is station 1.
A new version deactivates its siblings and becomes the subfamily's active
route. Changes are refused while lots are in flight on the active route.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRouteSave(cmd, configPath, routeID, subfamily, name, steps)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().UintVar(&routeID, "id", 0, "route ID to edit (omit to create a new version)")
	cmd.Flags().UintVar(&subfamily, "subfamily", 0, "subfamily ID (required)")
	cmd.Flags().StringVar(&name, "name", "", "route name (required)")
	cmd.Flags().UintSliceVar(&steps, "step", nil, "location ID of a station, repeatable, in process order")
	cmd.MarkFlagRequired("subfamily")
	cmd.MarkFlagRequired("name")
	return cmd
}

func runRouteSave(cmd *cobra.Command, configPath string, routeID, subfamily uint, name string, stepLocs []uint) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	steps := make([]route.StepInput, len(stepLocs))
	for i, loc := range stepLocs {
		steps[i] = route.StepInput{StepNumber: i + 1, LocationID: loc}
	}

	r, err := route.Save(gormDB, route.SaveOpts{
		RouteID:     routeID,
		SubfamilyID: subfamily,
		Name:        name,
		Steps:       steps,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if routeID == 0 {
		fmt.Fprintf(out, "Created route %d (version %d) for subfamily %d\n", r.ID, r.Version, r.SubfamilyID)
	} else {
		fmt.Fprintf(out, "Updated route %d (version %d)\n", r.ID, r.Version)
	}
	if r.Active {
		fmt.Fprintln(out, "Route is now the subfamily's active route.")
	}
	return nil
}

func newRouteActivateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "activate <route-id>",
		Short: "Activate a historical route version",
		Long:  "Makes the named route the subfamily's active version. Refused while lots are in flight on the currently active route.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid route ID %q", args[0])
			}
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			if err := route.Activate(gormDB, uint(id)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Route %d is now active\n", id)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	return cmd
}

func newRouteListCmd() *cobra.Command {
	var (
		configPath string
		subfamily  uint
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List routes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRouteList(cmd, configPath, subfamily, all)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	cmd.Flags().UintVar(&subfamily, "subfamily", 0, "filter by subfamily ID")
	cmd.Flags().BoolVar(&all, "all", false, "include inactive versions")
	return cmd
}

func runRouteList(cmd *cobra.Command, configPath string, subfamily uint, all bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	routes, err := route.List(gormDB, route.ListFilters{SubfamilyID: subfamily, ShowInactive: all})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(routes) == 0 {
		fmt.Fprintln(out, "No routes found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSUBFAMILY\tNAME\tVERSION\tACTIVE\tSTEPS")
	for _, r := range routes {
		active := "-"
		if r.Active {
			active = "yes"
		}
		fmt.Fprintf(w, "%d\t%d\t%s\t%d\t%s\t%d\n",
			r.ID, r.SubfamilyID, truncate(r.Name, 40), r.Version, active, len(r.Steps))
	}
	w.Flush()
	return nil
}

func newRouteShowCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "show <route-id>",
		Short: "Show a route and its step sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid route ID %q", args[0])
			}
			return runRouteShow(cmd, configPath, uint(id))
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to wiptrack config file")
	return cmd
}

func runRouteShow(cmd *cobra.Command, configPath string, id uint) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	r, err := route.Get(gormDB, id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:        %d\n", r.ID)
	fmt.Fprintf(out, "Name:      %s\n", r.Name)
	fmt.Fprintf(out, "Subfamily: %d\n", r.SubfamilyID)
	fmt.Fprintf(out, "Version:   %d\n", r.Version)
	fmt.Fprintf(out, "Active:    %t\n", r.Active)
	fmt.Fprintln(out)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tSTATION")
	for _, s := range r.Steps {
		fmt.Fprintf(w, "%d\t%s\n", s.StepNumber, s.Location.Name)
	}
	w.Flush()
	return nil
}
