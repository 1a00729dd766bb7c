package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const fixtureCSV = "Study,Study type,Bat species,Country,Sample type,Virus genus,+,#,🔗\n" +
	"Smith et al. 2015,cross-sectional,Myotis lucifugus,USA,feces,betacoronavirus,15,50,http://a\n" +
	"Jones et al. 2016,cross-sectional,Myotis velifer,USA,feces,alphacoronavirus,5,60,http://b\n" +
	"Lee et al. 2019,longitudinal,Rhinolophus sinicus,China,swab,betacoronavirus,7,90,http://c\n" +
	"Ng 2017,cross-sectional,Pteropus,Kenya,swab,betacoronavirus,2,8,\n"

// resetFlags clears values and Changed state that persist between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns stdout.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	cfg = nil
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCmd(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

// setupHome isolates config in a temp HOME and writes the fixture table.
func setupHome(t *testing.T) (home, data string) {
	t.Helper()
	home = t.TempDir()
	t.Setenv("HOME", home)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(home); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	data = filepath.Join(home, "exported-table.csv")
	if err := os.WriteFile(data, []byte(fixtureCSV), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return home, data
}

func TestCLI_AggregateCSV(t *testing.T) {
	_, data := setupHome(t)
	out := mustRun(t, "aggregate", "--data", data, "--genus", "Betacoronavirus", "--by", "Country", "--format", "csv")
	want := "Country,+,#,proportion,prop_error\nUSA,15,50,0.3000,0.0648\n"
	if out != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", out, want)
	}
}

func TestCLI_AggregateCompareTableAndJSON(t *testing.T) {
	_, data := setupHome(t)
	out := mustRun(t, "aggregate", "--data", data, "-g", "Compare them!", "-b", "Country")
	for _, s := range []string{"Virus genus", "betacoronavirus", "alphacoronavirus", "USA"} {
		if !strings.Contains(out, s) {
			t.Fatalf("table output missing %q:\n%s", s, out)
		}
	}

	out = mustRun(t, "aggregate", "--data", data, "-g", "any", "-b", "year", "-f", "json", "--min-sampled", "0")
	var got struct {
		Rows []struct {
			Group   string `json:"group"`
			Sampled int    `json:"sampled"`
		} `json:"rows"`
		Summary struct {
			Groups int `json:"groups"`
		} `json:"summary"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("json output: %v\n%s", err, out)
	}
	if got.Summary.Groups != 3 || len(got.Rows) != 3 {
		t.Fatalf("expected 3 year groups with min-sampled 0, got %+v", got)
	}
}

func TestCLI_AggregateMarkdownToFile(t *testing.T) {
	home, data := setupHome(t)
	outPath := filepath.Join(home, "report.md")
	mustRun(t, "aggregate", "--data", data, "-g", "Alphacoronavirus", "-b", "Bat Genus", "-f", "markdown", "-o", outPath)
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(b), "[PREVALENCE SUMMARY]") || !strings.Contains(string(b), "- Myotis: 5/60") {
		t.Fatalf("unexpected report:\n%s", b)
	}
}

func TestCLI_AggregateInvalidSelection(t *testing.T) {
	_, data := setupHome(t)
	if _, err := runCmd(t, "aggregate", "--data", data, "-g", "Gammacoronavirus", "-b", "Country"); err == nil {
		t.Fatalf("expected invalid genus error")
	}
	if _, err := runCmd(t, "aggregate", "--data", data, "-g", "Any", "-b", "Continent"); err == nil {
		t.Fatalf("expected invalid field error")
	}
	if _, err := runCmd(t, "aggregate", "--data", data, "-g", "Any", "-b", "Year", "-f", "yaml"); err == nil {
		t.Fatalf("expected invalid format error")
	}
}

func TestCLI_ChartWritesPNG(t *testing.T) {
	home, data := setupHome(t)
	outPath := filepath.Join(home, "chart.png")
	out := mustRun(t, "chart", "--data", data, "-g", "Compare", "-b", "Year", "-o", outPath, "--width", "400", "--height", "300")
	if !strings.Contains(out, "✓ Wrote chart") {
		t.Fatalf("unexpected output: %s", out)
	}
	b, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read chart: %v", err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Fatalf("not a PNG")
	}
}

func TestCLI_ExportAndInspect(t *testing.T) {
	home, data := setupHome(t)
	dir := filepath.Join(home, "exports")
	db := filepath.Join(home, "batcov.db")
	out := mustRun(t, "export", "--data", data, "--dir", dir, "--format", "csv", "--db", db, "-q")
	if !strings.Contains(out, "✓ Export run") {
		t.Fatalf("unexpected output: %s", out)
	}
	runs, err := os.ReadDir(dir)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run dir, got %v (%v)", runs, err)
	}
	if _, err := os.Stat(filepath.Join(dir, runs[0].Name(), "manifest.json")); err != nil {
		t.Fatalf("manifest missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, runs[0].Name(), "compare_country.csv")); err != nil {
		t.Fatalf("compare csv missing: %v", err)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("database missing: %v", err)
	}

	out = mustRun(t, "inspect", "--data", data)
	for _, s := range []string{"raw rows: 4", "cross-sectional rows: 3 (dropped 1)", "integer columns: #, +, Year", "Warning: 1 rows have no bat species"} {
		if !strings.Contains(out, s) {
			t.Fatalf("inspect output missing %q:\n%s", s, out)
		}
	}
}

func TestCLI_InitConfigSetShow(t *testing.T) {
	home, data := setupHome(t)
	mustRun(t, "init", "--data-path", data)
	cfgPath := filepath.Join(home, ".batcov", "config.yaml")
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := runCmd(t, "init"); err == nil {
		t.Fatalf("expected init to refuse overwrite")
	}

	mustRun(t, "config", "set", "min_sampled", "5")
	mustRun(t, "config", "set", "columns.sample_tissue", "Sample type")
	if _, err := runCmd(t, "config", "set", "min_sampled", "-1"); err == nil {
		t.Fatalf("expected negative min_sampled to be rejected")
	}
	if _, err := runCmd(t, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}

	out := mustRun(t, "config", "show")
	for _, s := range []string{"min_sampled: 5", "data_path: " + data, "columns.sample_tissue: Sample type"} {
		if !strings.Contains(out, s) {
			t.Fatalf("config show missing %q:\n%s", s, out)
		}
	}

	// data_path from the saved config is used when --data is absent
	out = mustRun(t, "aggregate", "-g", "Betacoronavirus", "-b", "Country", "-f", "csv")
	if !strings.Contains(out, "USA,15,50") {
		t.Fatalf("expected configured data path to be used:\n%s", out)
	}
}
