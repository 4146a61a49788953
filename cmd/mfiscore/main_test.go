package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TechnoServe/mfiscore/internal/backend"
	"github.com/TechnoServe/mfiscore/internal/score"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MFI_SOURCE", "MFI_CYCLE", "MFI_PROFILE", "MFI_DB_DRIVER", "MFI_DB_DSN"} {
		t.Setenv(k, "")
	}
}

// uniform scores every category of every source at pct percent of its maximum.
func uniform(id, name string, tier score.Tier, pct float64) score.Record {
	var entries []score.Entry
	for _, c := range score.Categories {
		entries = append(entries, score.Entry{Category: c, Score: score.Float(c.Max() * pct / 100)})
	}
	return score.Record{
		CompanyID: id, Name: name, Tier: tier, CycleID: "2024",
		Self: entries, Validated: entries, Expert: entries,
		ProductTest: score.Float(pct / 5),
	}
}

func sampleRecords() []score.Record {
	outlier := uniform("c4", "Delta Foods", score.Tier3, 50)
	outlier.Validated = uniform("", "", score.Tier3, 70).Validated
	return []score.Record{
		uniform("c1", "Acme Mills", score.Tier1, 85),
		uniform("c2", "Bakery Co", score.Tier3, 90),
		uniform("c3", "Corn Flour Ltd", score.Tier1, 60),
		outlier,
	}
}

func mockFlags(src *backend.MockSource, format string) (commonFlags, *bytes.Buffer) {
	var buf bytes.Buffer
	return commonFlags{format: format, src: src, stdout: &buf}, &buf
}

func assertExitCode(t *testing.T, err error, wantCode int) {
	t.Helper()
	if wantCode == 0 {
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		return
	}
	if err == nil {
		t.Fatalf("expected exit code %d, got nil error", wantCode)
	}
	var ee *exitErr
	if !errors.As(err, &ee) {
		t.Fatalf("expected *exitErr, got %T: %v", err, err)
	}
	if ee.code != wantCode {
		t.Errorf("exit code = %d, want %d (msg: %s)", ee.code, wantCode, ee.msg)
	}
}

const recordYAML = `cycle: "2024"
companies:
  - id: c1
    name: Acme Mills
    tier: TIER_3
    self:
      - {category: Personnel, score: 20}
    validated:
      - {category: Personnel, score: 23}
    expert:
      - {category: Personnel, score: 23}
    product_test: 10
  - id: c2
    name: Bakery Co
    tier: TIER_1
`

func writeTempRecords(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// --- score ---

func TestRunScoreJSON(t *testing.T) {
	clearEnv(t)
	src := &backend.MockSource{Data: sampleRecords()}
	cf, out := mockFlags(src, "json")
	cf.cycle = "2024"

	err := runScore(context.Background(), &scoreFlags{commonFlags: cf})
	assertExitCode(t, err, 0)

	var got scoreOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got.Profile != "default" || got.Cycle != "2024" {
		t.Errorf("unexpected metadata: %+v", got)
	}
	if len(got.Companies) != 4 {
		t.Fatalf("expected 4 companies, got %d", len(got.Companies))
	}
	if v := got.Companies[1].OverallWeightedScore; v == nil || *v < 89.999 || *v > 90.001 {
		t.Errorf("c2 overall = %v, want 90", v)
	}
	if len(src.Cycles) != 1 || src.Cycles[0] != "2024" {
		t.Errorf("source called with cycles %v", src.Cycles)
	}
}

func TestRunScoreCompany(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "md")
	err := runScore(context.Background(), &scoreFlags{commonFlags: cf, company: "c3"})
	assertExitCode(t, err, 0)
	if !strings.Contains(out.String(), "Corn Flour Ltd") || strings.Contains(out.String(), "Bakery Co") {
		t.Errorf("unexpected markdown:\n%s", out.String())
	}

	cf, _ = mockFlags(&backend.MockSource{Data: sampleRecords()}, "json")
	err = runScore(context.Background(), &scoreFlags{commonFlags: cf, company: "nobody"})
	assertExitCode(t, err, exitInput)
}

func TestRunScoreCSV(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "csv")
	err := runScore(context.Background(), &scoreFlags{commonFlags: cf})
	assertExitCode(t, err, 0)
	rows, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(out.String(), "\ufeff"))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 5 {
		t.Errorf("expected header + 4 rows, got %d", len(rows))
	}
}

func TestRunScoreFormatUnknown(t *testing.T) {
	clearEnv(t)
	cf, _ := mockFlags(&backend.MockSource{}, "xml")
	err := runScore(context.Background(), &scoreFlags{commonFlags: cf})
	assertExitCode(t, err, exitInput)
}

func TestRunScoreUnknownProfile(t *testing.T) {
	clearEnv(t)
	cf, _ := mockFlags(&backend.MockSource{}, "json")
	cf.profileName = "nonexistent-profile-xyz"
	err := runScore(context.Background(), &scoreFlags{commonFlags: cf})
	assertExitCode(t, err, exitInput)
}

func TestRunScoreSourceError(t *testing.T) {
	clearEnv(t)
	cf, _ := mockFlags(&backend.MockSource{Err: errors.New("backend down")}, "json")
	err := runScore(context.Background(), &scoreFlags{commonFlags: cf})
	assertExitCode(t, err, exitSource)
}

func TestRunScoreValidationError(t *testing.T) {
	clearEnv(t)
	records := sampleRecords()
	records[1].CompanyID = "c1"
	cf, _ := mockFlags(&backend.MockSource{Data: records}, "json")
	err := runScore(context.Background(), &scoreFlags{commonFlags: cf})
	assertExitCode(t, err, exitValidation)
	if err.Error() != "1 validation errors" {
		t.Errorf("message = %q, want the error count", err.Error())
	}
}

func TestRunScoreNoSource(t *testing.T) {
	clearEnv(t)
	err := runScore(context.Background(), &scoreFlags{commonFlags: commonFlags{format: "json"}})
	assertExitCode(t, err, exitInput)
}

func TestRunScoreFromFile(t *testing.T) {
	clearEnv(t)
	path := writeTempRecords(t, recordYAML)
	outPath := filepath.Join(t.TempDir(), "scores.json")

	err := runScore(context.Background(), &scoreFlags{commonFlags: commonFlags{format: "json", source: path, out: outPath}})
	assertExitCode(t, err, 0)

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	var got scoreOutput
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Companies) != 2 {
		t.Fatalf("expected 2 companies, got %d", len(got.Companies))
	}
	// 10 + 23/100*20 + 23/100*60
	if v := got.Companies[0].OverallWeightedScore; v == nil || *v < 28.399 || *v > 28.401 {
		t.Errorf("c1 overall = %v, want 28.4", v)
	}
}

func TestRunScoreMissingFile(t *testing.T) {
	clearEnv(t)
	err := runScore(context.Background(), &scoreFlags{commonFlags: commonFlags{format: "json", source: "/nonexistent/records.yaml"}})
	assertExitCode(t, err, exitInput)
}

// --- variance ---

func TestRunVarianceFailOnOutliers(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "json")
	err := runVariance(context.Background(), &varianceFlags{commonFlags: cf, failOnOutliers: true})
	assertExitCode(t, err, exitOutliers)

	var got varianceOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output should be written before failing: %v", err)
	}
	if got.Outliers != 1 || got.Threshold != 5 {
		t.Errorf("unexpected output: %+v", got)
	}
}

func TestRunVarianceThresholdOverride(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "md")
	err := runVariance(context.Background(), &varianceFlags{
		commonFlags: cf, threshold: 30, hasThreshold: true, failOnOutliers: true,
	})
	assertExitCode(t, err, 0)
	if !strings.Contains(out.String(), "**Outliers:** 0 of 4") {
		t.Errorf("unexpected markdown:\n%s", out.String())
	}
}

func TestRunVarianceOutliersOnly(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "json")
	err := runVariance(context.Background(), &varianceFlags{commonFlags: cf, outliersOnly: true})
	assertExitCode(t, err, 0)
	var got varianceOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 1 || got.Rows[0].CompanyID != "c4" {
		t.Errorf("expected only c4, got %+v", got.Rows)
	}
}

// --- rank ---

func TestRunRankJSON(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "json")
	err := runRank(context.Background(), &rankFlags{commonFlags: cf, tier: "T1", sortKey: "overall_average", dir: "desc"})
	assertExitCode(t, err, 0)

	var got rankOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Rows) != 2 {
		t.Fatalf("expected 2 T1 rows, got %d", len(got.Rows))
	}
	if got.Rows[0].Row.View.CompanyID != "c1" || got.Rows[0].Rank != 1 {
		t.Errorf("unexpected first row: %+v", got.Rows[0])
	}
	if len(got.Rows[0].Awards) == 0 || got.Rows[0].Awards[0] != "OverallExcellence" {
		t.Errorf("awards = %v", got.Rows[0].Awards)
	}
}

func TestRunRankTopMarkdown(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "md")
	err := runRank(context.Background(), &rankFlags{
		commonFlags: cf, component: "Governance", top: 1, rankBy: "validated", dir: "desc", sortKey: "overall_average",
	})
	assertExitCode(t, err, 0)
	md := out.String()
	if !strings.Contains(md, "| 1 | Bakery Co |") || strings.Contains(md, "Acme Mills") {
		t.Errorf("unexpected markdown:\n%s", md)
	}
}

func TestRunRankContradictoryCriteria(t *testing.T) {
	clearEnv(t)
	cf, out := mockFlags(&backend.MockSource{Data: sampleRecords()}, "json")
	err := runRank(context.Background(), &rankFlags{commonFlags: cf, tier: "T3", award: "OverallExcellence", search: "acme", sortKey: "name", dir: "asc"})
	assertExitCode(t, err, 0)
	var got rankOutput
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Rows == nil || len(got.Rows) != 0 {
		t.Errorf("expected empty rows, got %+v", got.Rows)
	}
}

func TestRunRankBadInput(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name string
		f    rankFlags
	}{
		{"unknown sort key", rankFlags{sortKey: "shoe_size", dir: "asc"}},
		{"bad direction", rankFlags{sortKey: "name", dir: "sideways"}},
		{"rank-by without component", rankFlags{sortKey: "name", dir: "asc", rankBy: "validated"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cf, _ := mockFlags(&backend.MockSource{Data: sampleRecords()}, "json")
			f := tt.f
			f.commonFlags = cf
			assertExitCode(t, runRank(context.Background(), &f), exitInput)
		})
	}
}

// --- export ---

func TestRunExport(t *testing.T) {
	clearEnv(t)
	dir := filepath.Join(t.TempDir(), "out")
	err := runExport(context.Background(), &exportFlags{
		commonFlags: commonFlags{src: &backend.MockSource{Data: sampleRecords()}},
		dir:         dir,
	})
	assertExitCode(t, err, 0)

	for _, name := range []string{"scores.csv", "variance.csv", "rankings.csv"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
		if !strings.HasPrefix(string(data), "\ufeff") {
			t.Errorf("%s missing BOM", name)
		}
	}
}

// --- import ---

func TestRunImportThenScoreFromSQLite(t *testing.T) {
	clearEnv(t)
	path := writeTempRecords(t, recordYAML)
	dbPath := filepath.Join(t.TempDir(), "mfi.db")

	err := runImport(context.Background(), path, &importFlags{driver: "sqlite", dsn: dbPath})
	assertExitCode(t, err, 0)

	var buf bytes.Buffer
	err = runScore(context.Background(), &scoreFlags{commonFlags: commonFlags{
		format: "json", source: "sqlite:" + dbPath, cycle: "2024", stdout: &buf,
	}})
	assertExitCode(t, err, 0)

	var got scoreOutput
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got.Companies) != 2 || got.Companies[0].CompanyID != "c1" {
		t.Errorf("unexpected companies: %+v", got.Companies)
	}
}

func TestRunImportValidationFailure(t *testing.T) {
	clearEnv(t)
	path := writeTempRecords(t, recordYAML+"  - id: c3\n    tier: TIER_2\n")
	err := runImport(context.Background(), path, &importFlags{driver: "sqlite", dsn: filepath.Join(t.TempDir(), "mfi.db")})
	assertExitCode(t, err, exitValidation)
}

func TestRunImportMissingFile(t *testing.T) {
	clearEnv(t)
	err := runImport(context.Background(), "/nonexistent/records.yaml", &importFlags{})
	assertExitCode(t, err, exitInput)
}

// --- profiles ---

func TestProfilesCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"profiles"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "default") || !strings.Contains(out.String(), "audit") {
		t.Errorf("unexpected profile list: %q", out.String())
	}

	out.Reset()
	root.SetArgs([]string{"profiles", "show", "audit"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "## Profile: audit") {
		t.Errorf("unexpected profile description:\n%s", out.String())
	}
}

func TestExitErrorMessage(t *testing.T) {
	err := exitError(exitOutliers, "%d companies flagged", 3)
	if err.Error() != "3 companies flagged" {
		t.Errorf("Error() = %q", err.Error())
	}
}
