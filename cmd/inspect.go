package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how the surveillance table was prepared",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		ds, err := loadDataset(c)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		st := ds.Stats()
		fmt.Fprintf(out, "source: %s\n", c.DataPath)
		fmt.Fprintf(out, "raw rows: %d\n", ds.RawRows())
		fmt.Fprintf(out, "cross-sectional rows: %d (dropped %d)\n", ds.Rows(), st.Dropped)
		fmt.Fprintf(out, "integer columns: %s\n", strings.Join(ds.Coerced(), ", "))
		if !ds.CountsTyped() {
			warnf(out, "count columns %q/%q are not all integers; aggregation will fail", c.Columns.Positive, c.Columns.Sampled)
		}
		if st.MissingSpecies > 0 {
			warnf(out, "%d rows have no bat species after the genus", st.MissingSpecies)
		}
		if st.UnknownYears > 0 {
			warnf(out, "%d rows have no four-digit year in the citation", st.UnknownYears)
		}

		type tally struct{ rows, positive, sampled int }
		byGenus := map[string]*tally{}
		for _, o := range ds.Observations() {
			k := strings.ToLower(o.VirusGenus)
			t := byGenus[k]
			if t == nil {
				t = &tally{}
				byGenus[k] = t
			}
			t.rows++
			t.positive += o.Positive
			t.sampled += o.Sampled
		}
		keys := make([]string, 0, len(byGenus))
		for k := range byGenus {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			t := byGenus[k]
			rows = append(rows, []string{k, strconv.Itoa(t.rows), strconv.Itoa(t.positive), strconv.Itoa(t.sampled)})
		}
		renderTable(out, []string{"Virus genus", "rows", "+", "#"}, rows)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
