package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/jurisdiction-cli/internal/config"
	"github.com/sells-group/jurisdiction-cli/internal/jurisdiction"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup NAME",
	Short: "Show FIPS code, postal code and area for one jurisdiction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if shp, _ := cmd.Flags().GetString("shapefile"); shp != "" {
			cfg.Source.Kind = config.SourceShapefile
			cfg.Source.Path = shp
		}
		if err := cfg.Validate("lookup"); err != nil {
			return err
		}

		ws, err := openWorkspace(cmd.Context(), cfg)
		if err != nil {
			return eris.Wrap(err, "lookup")
		}
		defer ws.close()

		return printJurisdiction(os.Stdout, ws.repo, args[0])
	},
}

func init() {
	lookupCmd.Flags().String("shapefile", "", "TIGER state shapefile (sets source.kind=shapefile)")
	rootCmd.AddCommand(lookupCmd)
}

func printJurisdiction(w io.Writer, repo *jurisdiction.Repository, name string) error {
	j, ok := repo.FindByName(name)
	if !ok {
		return eris.Wrapf(jurisdiction.ErrNotFound, "lookup: %q", name)
	}

	fmt.Fprintf(w, "\n=== Information for %s ===\n", j.Name)
	fmt.Fprintf(w, "FIPS Code: %s\n", j.FIPS)
	fmt.Fprintf(w, "Postal Code: %s\n", j.PostalCode)
	fmt.Fprintf(w, "Region: %s\n", j.Region)
	fmt.Fprintf(w, "Division: %s\n", j.Division)
	fmt.Fprintf(w, "Area (km²): %.2f\n", j.LandAreaKM2())
	return nil
}
