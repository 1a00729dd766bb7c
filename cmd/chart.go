package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/batcov/internal/chart"
	"github.com/KaramelBytes/batcov/internal/prevalence"
	"github.com/KaramelBytes/batcov/internal/utils"
)

var (
	chartGenus  string
	chartBy     string
	chartOutput string
	chartWidth  int
	chartHeight int
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render a prevalence bar chart with standard-error bars to PNG",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := requireConfig()
		if err != nil {
			return err
		}
		q, err := prevalence.ParseQuery(chartGenus, chartBy)
		if err != nil {
			return err
		}
		width, height := c.ChartWidth, c.ChartHeight
		if cmd.Flags().Changed("width") {
			width = chartWidth
		}
		if cmd.Flags().Changed("height") {
			height = chartHeight
		}
		out := chartOutput
		if out == "" {
			out = fmt.Sprintf("%s_%s.png", utils.Slug(q.Genus.String()), utils.Slug(q.GroupBy.String()))
		}

		ds, err := loadDataset(c)
		if err != nil {
			return err
		}
		tbl, err := prevalence.Aggregate(ds, q, prevalence.Options{MinSampled: c.MinSampled})
		if err != nil {
			return err
		}
		if len(tbl.Rows) == 0 {
			warnf(cmd.ErrOrStderr(), "no group has more than %d sampled; chart will be empty", c.MinSampled)
		}
		var buf bytes.Buffer
		if err := chart.RenderPNG(chart.Build(tbl), &buf, width, height); err != nil {
			return err
		}
		if err := utils.SafeWriteFile(out, buf.Bytes()); err != nil {
			return err
		}
		successf(cmd.OutOrStdout(), "Wrote chart (%s, %d bars) to %s", q, len(tbl.Rows), out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVarP(&chartGenus, "genus", "g", "", "Alphacoronavirus | Betacoronavirus | Compare | Any")
	chartCmd.Flags().StringVarP(&chartBy, "by", "b", "", "Year | Country | Bat genus | Sample tissue")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "PNG path (default <genus>_<field>.png)")
	chartCmd.Flags().IntVar(&chartWidth, "width", 900, "chart width in points (overrides config)")
	chartCmd.Flags().IntVar(&chartHeight, "height", 500, "chart height in points (overrides config)")
	_ = chartCmd.MarkFlagRequired("genus")
	_ = chartCmd.MarkFlagRequired("by")
}
