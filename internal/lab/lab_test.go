package lab

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fill writes rows of values starting at (row, 1).
func fill(t *testing.T, wb *sheetrange.Workbook, sheet string, row int, rows ...[]any) {
	t.Helper()
	ws, err := wb.EnsureSheet(sheet)
	require.NoError(t, err)
	for i, cells := range rows {
		for j, c := range cells {
			require.NoError(t, ws.SetCell(row+i, j+1, sheetrange.Of(c)))
		}
	}
}

func save(t *testing.T, wb *sheetrange.Workbook, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, wb.SaveAs(path))
	require.NoError(t, wb.Close())
	return path
}

func TestReagentFromRecord(t *testing.T) {
	tests := []struct {
		name       string
		rec        *sheetrange.Record
		wantLot    string
		wantName   string
		wantExpiry string
		noExpiry   bool
		wantField  string
	}{
		{
			name:       "Text date",
			rec:        sheetrange.RecordOf("reagent_role", "Lysis Buffer", "name", "LB", "lot", "ab12", "expiry", "2027-01-31"),
			wantLot:    "AB12",
			wantName:   "LB",
			wantExpiry: "2027-01-31",
		},
		{
			name:     "NA expiry",
			rec:      sheetrange.RecordOf("role", "Ethanol", "lot", "e1", "expiry", "na"),
			wantLot:  "E1",
			wantName: "Ethanol",
			noExpiry: true,
		},
		{
			name:     "Blank expiry",
			rec:      sheetrange.RecordOf("role", "Water", "lot", "w1"),
			wantLot:  "W1",
			wantName: "Water",
			noExpiry: true,
		},
		{
			name:     "Epoch expiry",
			rec:      sheetrange.RecordOf("role", "Water", "lot", "w1", "expiry", time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)),
			wantLot:  "W1",
			wantName: "Water",
			noExpiry: true,
		},
		{
			name:      "Missing lot",
			rec:       sheetrange.RecordOf("role", "Water"),
			wantField: "Lot",
		},
		{
			name:      "Unparseable expiry",
			rec:       sheetrange.RecordOf("role", "Water", "lot", "w1", "expiry", "soon"),
			wantField: "expiry",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ReagentFromRecord("procedure_reagents", tt.rec)
			if tt.wantField != "" {
				var convErr *ConversionError
				require.ErrorAs(t, err, &convErr)
				assert.Equal(t, tt.wantField, convErr.Field)
				assert.Equal(t, "procedure_reagents", convErr.Region)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLot, r.Lot)
			assert.Equal(t, tt.wantName, r.Name)
			assert.Equal(t, tt.noExpiry, r.NoExpiry)
			if tt.wantExpiry != "" {
				assert.Equal(t, tt.wantExpiry, r.Expiry.Format(time.DateOnly))
			}
		})
	}
}

func TestReagentsFromRecordsKeepsGoodRows(t *testing.T) {
	records := []*sheetrange.Record{
		sheetrange.RecordOf("role", "A", "lot", "1"),
		sheetrange.RecordOf("role", "B"),
		sheetrange.RecordOf("role", "C", "lot", "3"),
	}
	got, err := ReagentsFromRecords("r", records)
	require.Error(t, err)
	assert.Len(t, got, 2)
	var convErr *ConversionError
	assert.ErrorAs(t, err, &convErr)
}

func TestSkipTransforms(t *testing.T) {
	keep, err := SkipUnlotted(0, sheetrange.RecordOf("role", "Ethanol"))
	require.NoError(t, err)
	assert.False(t, keep)
	keep, _ = SkipUnlotted(0, sheetrange.RecordOf("lot", "x"))
	assert.True(t, keep)

	keep, _ = SkipUnnamed(0, sheetrange.RecordOf("role", "Extractor"))
	assert.False(t, keep)
	keep, _ = SkipUnnamed(0, sheetrange.RecordOf("name", "KingFisher"))
	assert.True(t, keep)
}

func TestNormalizeSampleRow(t *testing.T) {
	rec := sheetrange.RecordOf("sample_id", "S1", "row", "c")
	keep, err := NormalizeSampleRow(4, rec)
	require.NoError(t, err)
	assert.True(t, keep)
	assert.Equal(t, sheetrange.Number(3), rec.Value("row"))
	assert.Equal(t, sheetrange.Number(5), rec.Value(RankField))

	ranked := sheetrange.RecordOf("sample_id", "S2", RankField, 40)
	_, _ = NormalizeSampleRow(0, ranked)
	assert.Equal(t, sheetrange.Number(40), ranked.Value(RankField))
}

func TestSampleFromRecord(t *testing.T) {
	s, err := SampleFromRecord("samples", sheetrange.RecordOf(
		"sample_id", " S1 ", "row", 2, "column", 7, RankField, 1, "volume", 200))
	require.NoError(t, err)
	assert.Equal(t, "S1", s.SampleID)
	assert.Equal(t, "B7", s.Well())
	assert.Equal(t, sheetrange.Number(200), s.Extra.Value("volume"))

	_, err = SampleFromRecord("samples", sheetrange.RecordOf("sample_id", "S1", "column", "x", RankField, 1))
	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "column", convErr.Field)

	_, err = SampleFromRecord("samples", sheetrange.RecordOf("sample_id", "S1", "row", 9, RankField, 1))
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "Row", convErr.Field)
}

func TestSamplesFromRecordsSkipsPlaceholders(t *testing.T) {
	records := []*sheetrange.Record{
		sheetrange.RecordOf("sample_id", "S1", RankField, 1),
		sheetrange.Placeholder(RankField, 2),
		sheetrange.RecordOf("submitter_id", "S3", RankField, 3),
	}
	got, err := SamplesFromRecords("samples", records)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "S3", got[1].SampleID)
}

func TestPCRResults(t *testing.T) {
	groups := []sheetrange.Group{
		{Entity: "S1", Members: []sheetrange.Member{
			{Key: "N1", Fields: sheetrange.RecordOf("ct", 24.5)},
			{Key: "N2", Fields: sheetrange.RecordOf("ct", "Undetermined")},
		}},
		{Entity: "S2", Members: []sheetrange.Member{
			{Key: "N1", Fields: sheetrange.RecordOf("ct", "31.2")},
		}},
		{Entity: "S3"},
	}
	results, err := PCRResultsFromGroups("pcr_samples", groups)
	require.Error(t, err)
	require.Len(t, results, 2)

	ct, ok := results[0].Ct("N1")
	assert.True(t, ok)
	assert.InDelta(t, 24.5, ct, 1e-9)
	_, ok = results[0].Ct("N2")
	assert.False(t, ok)
	ct, ok = results[1].Ct("N1")
	assert.True(t, ok)
	assert.InDelta(t, 31.2, ct, 1e-9)

	rows := PCRRecords(results)
	require.Len(t, rows, 3)
	assert.Equal(t, "S1", rows[1].Text("sample"))
	assert.Equal(t, "N2", rows[1].Text("target"))
}

func TestFromFilename(t *testing.T) {
	d := TypeDetector{Known: []string{"Culture", "Bacterial Culture", "Wastewater"}}
	tests := []struct {
		path string
		want string
	}{
		{"/in/RSL-bacterial_culture-2024.xlsx", "Bacterial Culture"},
		{"BacterialCulture.xlsx", "Bacterial Culture"},
		{"culture.xlsx", "Culture"},
		{"WASTEWATER 12.xlsx", "Wastewater"},
		{"plate.xlsx", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := d.FromFilename(tt.path)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want != "", ok)
		})
	}
}

func TestDetectFallsBackThroughSources(t *testing.T) {
	info, err := layout.Defaults().Region(layout.ClientInfo)
	require.NoError(t, err)
	d := TypeDetector{Known: []string{"Wastewater", "Bacterial Culture"}, Info: info}

	wb := sheetrange.NewWorkbook()
	fill(t, wb, "Sample List", 2, []any{"Submission Type:", "wastewater"})
	path := save(t, wb, "anything.xlsx")
	require.NoError(t, sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
		got, err := d.Detect(wb)
		require.NoError(t, err)
		assert.Equal(t, "Wastewater", got)
		return nil
	}))

	wb = sheetrange.NewWorkbook()
	_, err = wb.EnsureSheet("Sample List")
	require.NoError(t, err)
	path = save(t, wb, "bacterial-culture-07.xlsx")
	require.NoError(t, sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
		got, err := d.Detect(wb)
		require.NoError(t, err)
		assert.Equal(t, "Bacterial Culture", got)
		return nil
	}))

	wb = sheetrange.NewWorkbook()
	path = save(t, wb, "plate.xlsx")
	require.NoError(t, sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
		_, err := d.Detect(wb)
		assert.ErrorIs(t, err, ErrUnknownSubmissionType)
		return nil
	}))
}

func procedureWorkbook(t *testing.T) string {
	t.Helper()
	wb := sheetrange.NewWorkbook()
	fill(t, wb, "Extraction", 1,
		[]any{"Plate:", "RSL-1"},
		[]any{"Technician:", "AB"},
		[]any{"Reagent:", "see below"},
	)
	fill(t, wb, "Extraction", 17,
		[]any{"Reagent Role", "Name", "Lot", "Expiry"},
		[]any{"Lysis Buffer", "LB", "ab12", "2027-01-31"},
		[]any{"Ethanol", "", "", "NA"},
		[]any{"Proteinase", "PK", "pk9", "NA"},
	)
	fill(t, wb, "Extraction", 32,
		[]any{"Equipment Role", "Name", "Asset Number", "Tips"},
		[]any{"Extractor", "KingFisher", "A-100", "T1; T2"},
	)
	fill(t, wb, "Extraction", 41,
		[]any{"Sample ID", "Row", "Column"},
		[]any{"S1", "A", 1},
		[]any{"S2", "B", 1},
	)
	return save(t, wb, "procedure.xlsx")
}

func TestImportExportProcedure(t *testing.T) {
	src := procedureWorkbook(t)
	im := NewImporter(layout.Defaults(), nil, nil)

	proc, err := im.ImportProcedure(src, "Extraction")
	require.NoError(t, err)
	assert.Equal(t, "RSL-1", proc.Info.Text("plate"))

	require.Len(t, proc.Reagents, 2)
	assert.Equal(t, "AB12", proc.Reagents[0].Lot)
	assert.Equal(t, "2027-01-31", proc.Reagents[0].Expiry.Format(time.DateOnly))
	assert.True(t, proc.Reagents[1].NoExpiry)

	require.Len(t, proc.Equipment, 1)
	assert.Equal(t, []string{"T1", "T2"}, proc.Equipment[0].Tips)
	assert.Equal(t, "Extractor", proc.Equipment[0].Role)

	require.Len(t, proc.Samples, 2)
	assert.Equal(t, "A1", proc.Samples[0].Well())
	assert.Equal(t, "B1", proc.Samples[1].Well())
	assert.Equal(t, 2, proc.Samples[1].Rank)

	dst := filepath.Join(t.TempDir(), "quality.xlsx")
	require.NoError(t, NewExporter(layout.Defaults(), nil).ExportProcedure(dst, proc))

	l := layout.Defaults().Bind(map[string]string{layout.ProcedureVar: "Extraction"})
	require.NoError(t, sheetrange.ReadFile(dst, func(wb *sheetrange.Workbook) error {
		info, err := l.Region(layout.QualityInfo)
		require.NoError(t, err)
		res, err := info.Parse(wb)
		require.NoError(t, err)
		got := InfoFromResult(res)
		assert.Equal(t, "RSL-1", got.Text("plate"))
		_, ok := got.Get("reagent")
		assert.False(t, ok)

		reg, err := l.Region(layout.QualityReagents)
		require.NoError(t, err)
		res, err = reg.Parse(wb)
		require.NoError(t, err)
		reagents, err := ReagentsFromRecords(reg.Name, res.Records)
		require.NoError(t, err)
		require.Len(t, reagents, 2)
		assert.Equal(t, "2027-01-31", reagents[0].Expiry.Format(time.DateOnly))
		assert.True(t, reagents[1].NoExpiry)

		smp, err := l.Region(layout.QualitySamples)
		require.NoError(t, err)
		res, err = smp.Parse(wb)
		require.NoError(t, err)
		require.Len(t, res.Records, 96)
		assert.Equal(t, "S1", res.Records[0].Text("sample_id"))
		assert.True(t, sheetrange.IsPlaceholder(res.Records[2], RankField))
		return nil
	}))
}

func TestImportProcedureMissingSheet(t *testing.T) {
	src := procedureWorkbook(t)
	_, err := NewImporter(layout.Defaults(), nil, nil).ImportProcedure(src, "Quantification")
	assert.ErrorIs(t, err, sheetrange.ErrSheetNotFound)
}

func TestImportExportPCR(t *testing.T) {
	wb := sheetrange.NewWorkbook()
	fill(t, wb, "Results", 1, []any{"Run Name:", "run-7"})
	fill(t, wb, "Results", 25,
		[]any{"Sample", "Target", "Ct"},
		[]any{"S1", "N1", 24.5},
		[]any{"S1", "N2", "Undetermined"},
		[]any{"S2", "N1", 30.1},
	)
	src := save(t, wb, "pcr.xlsx")

	imp, err := NewImporter(layout.Defaults(), nil, nil).ImportPCR(src)
	require.NoError(t, err)
	assert.Equal(t, "run-7", imp.Info.Text("run_name"))
	require.Len(t, imp.Results, 2)
	assert.Len(t, imp.Results[0].Targets, 2)

	dst := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, NewExporter(layout.Defaults(), nil).ExportPCR(dst, "Wastewater", imp))

	require.NoError(t, sheetrange.ReadFile(dst, func(wb *sheetrange.Workbook) error {
		assert.True(t, wb.HasSheet("Wastewater Results"))
		r, err := layout.Defaults().Region(layout.ResultsSamples)
		require.NoError(t, err)
		res, err := r.Bind(map[string]string{layout.ProcedureVar: "Wastewater"}).Parse(wb)
		require.NoError(t, err)
		got, err := PCRResultsFromResult(res)
		require.NoError(t, err)
		require.Len(t, got, 2)
		ct, ok := got[1].Ct("N1")
		assert.True(t, ok)
		assert.InDelta(t, 30.1, ct, 1e-9)
		return nil
	}))
}

func TestImportPCRReportsRowsWithoutSample(t *testing.T) {
	wb := sheetrange.NewWorkbook()
	fill(t, wb, "Results", 25,
		[]any{"Sample", "Target", "Ct"},
		[]any{"S1", "N1", 24.5},
		[]any{"", "N1", 27.0},
		[]any{"S2", "N1", 30.1},
	)
	src := save(t, wb, "pcr.xlsx")

	imp, err := NewImporter(layout.Defaults(), nil, nil).ImportPCR(src)
	require.NotNil(t, imp)
	require.Len(t, imp.Results, 2)
	assert.Equal(t, "S2", imp.Results[1].SampleID)

	var convErr *ConversionError
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, 27, convErr.Row)
	assert.Equal(t, "sample", convErr.Field)
	assert.Equal(t, layout.PCRSamples, convErr.Region)
}

func TestImportExportSubmission(t *testing.T) {
	wb := sheetrange.NewWorkbook()
	fill(t, wb, "Sample List", 2,
		[]any{"Submission Type:", "Wastewater"},
		[]any{"Submitter Plate Number:", "SP-1"},
	)
	fill(t, wb, "Sample List", 20,
		[]any{"Sample ID", "Sample Type", "Row"},
		[]any{"W1", "influent", "C"},
		[]any{"W2", "effluent", ""},
	)
	src := save(t, wb, "submission.xlsx")

	sub, err := NewImporter(layout.Defaults(), []string{"Wastewater"}, nil).ImportSubmission(src)
	require.NoError(t, err)
	assert.Equal(t, "Wastewater", sub.Type)
	assert.NotEqual(t, sub.ImportID.String(), "")
	require.Len(t, sub.Samples, 2)
	assert.Equal(t, 3, sub.Samples[0].Row)
	assert.Equal(t, 2, sub.Samples[1].Rank)

	dst := filepath.Join(t.TempDir(), "copy.xlsx")
	require.NoError(t, NewExporter(layout.Defaults(), nil).ExportSubmission(dst, sub))

	again, err := NewImporter(layout.Defaults(), []string{"Wastewater"}, nil).ImportSubmission(dst)
	require.NoError(t, err)
	assert.Equal(t, "SP-1", again.Info.Text("submitter_plate_number"))
	require.Len(t, again.Samples, 2)
	assert.Equal(t, "effluent", again.Samples[1].SampleType)
}
