package layout

import "github.com/nconklindev/labsheets/internal/sheetrange"

// Region names of the built-in layout.
const (
	ClientInfo         = "client_info"
	ClientSamples      = "client_samples"
	ProcedureInfo      = "procedure_info"
	ProcedureReagents  = "procedure_reagents"
	ProcedureEquipment = "procedure_equipment"
	ProcedureSamples   = "procedure_samples"
	PCRInfo            = "pcr_info"
	PCRSamples         = "pcr_samples"
	QualityInfo        = "quality_info"
	QualityReagents    = "quality_reagents"
	QualityEquipment   = "quality_equipment"
	QualitySamples     = "quality_samples"
	ResultsInfo        = "results_info"
	ResultsSamples     = "results_samples"
)

// ProcedureVar is the placeholder bound to a procedure type name.
const ProcedureVar = "procedure"

const (
	sampleSheet   = "Sample List"
	pcrSheet      = "Results"
	procedureTab  = "{procedure}"
	qualityTab    = "{procedure} Quality"
	resultsTab    = "{procedure} Results"
	plateSlots    = 96
	rankField     = "submission_rank"
	sampleField   = "sample"
	targetField   = "target"
	kvKeyColumn   = 1
	kvValueColumn = 2
)

func kv(sheet string, start, end int) []sheetrange.Range {
	return []sheetrange.Range{{Sheet: sheet, StartRow: start, EndRow: end, KeyColumn: kvKeyColumn, ValueColumn: kvValueColumn}}
}

func table(sheet string, header, end int) []sheetrange.Range {
	return []sheetrange.Range{{Sheet: sheet, HeaderRow: header, EndRow: end}}
}

// Defaults returns the regions of the lab's standard workbooks. Procedure regions
// carry a {procedure} sheet placeholder that must be bound before use.
func Defaults() Layout {
	return Layout{Regions: []Region{
		{Name: ClientInfo, Kind: KeyValue, Ranges: kv(sampleSheet, 2, 18)},
		{Name: ClientSamples, Kind: Table, Ranges: table(sampleSheet, 20, 116),
			Slots: plateSlots, SlotField: rankField, SkipColumns: []string{"well", "row", "column"}},

		{Name: ProcedureInfo, Kind: KeyValue, Ranges: kv(procedureTab, 1, 6)},
		{Name: ProcedureReagents, Kind: Table, Ranges: table(procedureTab, 17, 29)},
		{Name: ProcedureEquipment, Kind: Table, Ranges: table(procedureTab, 32, 39)},
		{Name: ProcedureSamples, Kind: Table, Ranges: table(procedureTab, 41, 0)},

		{Name: PCRInfo, Kind: KeyValue, Ranges: kv(pcrSheet, 1, 24)},
		{Name: PCRSamples, Kind: Table, Ranges: table(pcrSheet, 25, 0),
			GroupBy: &Grouping{Entity: sampleField, Member: targetField}, Protocol: []string{sampleField, targetField}},

		{Name: QualityInfo, Kind: KeyValue, Ranges: kv(qualityTab, 1, 6)},
		{Name: QualityReagents, Kind: Table, Ranges: table(qualityTab, 8, 13)},
		{Name: QualityEquipment, Kind: Table, Ranges: table(qualityTab, 14, 20)},
		{Name: QualitySamples, Kind: Table, Ranges: table(qualityTab, 21, 0),
			Slots: plateSlots, SlotField: rankField, Protocol: []string{rankField}, SkipColumns: []string{"well"}},

		{Name: ResultsInfo, Kind: KeyValue, Ranges: kv(resultsTab, 1, 24)},
		{Name: ResultsSamples, Kind: Table, Ranges: table(resultsTab, 25, 0),
			GroupBy: &Grouping{Entity: sampleField, Member: targetField}, Protocol: []string{sampleField, targetField}},
	}}
}
