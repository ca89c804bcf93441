package lab

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"

	"github.com/google/uuid"
)

// Submission is a client sample list.
type Submission struct {
	ImportID uuid.UUID
	Source   string
	Type     string
	Info     Info
	Samples  []Sample
}

// Procedure is one procedure sheet of a run.
type Procedure struct {
	ImportID  uuid.UUID
	Source    string
	Type      string
	Info      Info
	Reagents  []Reagent
	Equipment []Equipment
	Samples   []Sample
}

// PCRImport is an instrument results export.
type PCRImport struct {
	ImportID uuid.UUID
	Source   string
	Info     Info
	Results  []PCRResult
}

// Keys of the procedure form that hold nested lists and never go on the quality sheet.
var qualityExcluded = []string{
	"control", "equipment", "excluded", "id", "misc_info", "plate_map", "possible_kits",
	"reagent", "reagentrole", "results", "sample", "tips",
}

// Importer reads lab workbooks through a layout. Every import opens the file once
// and closes it before returning.
type Importer struct {
	layout layout.Layout
	known  []string
	logger *slog.Logger
}

// NewImporter returns an Importer; knownTypes feed submission type detection.
func NewImporter(l layout.Layout, knownTypes []string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{layout: l, known: knownTypes, logger: logger}
}

func (im *Importer) parse(wb *sheetrange.Workbook, name string, vars map[string]string, opts ...sheetrange.Option) (layout.Result, error) {
	r, err := im.layout.Region(name)
	if err != nil {
		return layout.Result{}, err
	}
	if vars != nil {
		r = r.Bind(vars)
	}
	opts = append([]sheetrange.Option{sheetrange.WithLogger(im.logger)}, opts...)
	return r.Parse(wb, opts...)
}

// ImportSubmission reads a client sample list. Rows that fail conversion are left
// out and reported through the returned error alongside the submission.
func (im *Importer) ImportSubmission(path string) (*Submission, error) {
	sub := &Submission{ImportID: uuid.New(), Source: path}
	var convErr error
	err := sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
		infoRegion, err := im.layout.Region(layout.ClientInfo)
		if err != nil {
			return err
		}
		det := TypeDetector{Known: im.known, Info: infoRegion, Logger: im.logger}
		if sub.Type, err = det.Detect(wb); err != nil {
			im.logger.Warn("submission type undetermined", "path", path, "err", err)
		}

		info, err := im.parse(wb, layout.ClientInfo, nil)
		if err != nil {
			return err
		}
		sub.Info = InfoFromResult(info)

		samples, err := im.parse(wb, layout.ClientSamples, nil, sheetrange.WithTransform(NormalizeSampleRow))
		if err != nil {
			return err
		}
		sub.Samples, convErr = SamplesFromRecords(layout.ClientSamples, samples.Records)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import submission: %w", err)
	}
	im.logger.Info("submission imported", "import_id", sub.ImportID, "type", sub.Type, "samples", len(sub.Samples))
	return sub, convErr
}

// ImportProcedure reads the sheet named after procedureType.
func (im *Importer) ImportProcedure(path, procedureType string) (*Procedure, error) {
	proc := &Procedure{ImportID: uuid.New(), Source: path, Type: procedureType}
	vars := map[string]string{layout.ProcedureVar: procedureType}
	var convErrs []error
	err := sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
		info, err := im.parse(wb, layout.ProcedureInfo, vars)
		if err != nil {
			return err
		}
		proc.Info = InfoFromResult(info)

		reagents, err := im.parse(wb, layout.ProcedureReagents, vars, sheetrange.WithTransform(SkipUnlotted))
		if err != nil {
			return err
		}
		var cerr error
		proc.Reagents, cerr = ReagentsFromRecords(layout.ProcedureReagents, reagents.Records)
		convErrs = append(convErrs, cerr)

		equipment, err := im.parse(wb, layout.ProcedureEquipment, vars, sheetrange.WithTransform(SkipUnnamed))
		if err != nil {
			return err
		}
		proc.Equipment, cerr = EquipmentFromRecords(layout.ProcedureEquipment, equipment.Records)
		convErrs = append(convErrs, cerr)

		samples, err := im.parse(wb, layout.ProcedureSamples, vars, sheetrange.WithTransform(NormalizeSampleRow))
		if err != nil {
			return err
		}
		proc.Samples, cerr = SamplesFromRecords(layout.ProcedureSamples, samples.Records)
		convErrs = append(convErrs, cerr)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import procedure %s: %w", procedureType, err)
	}
	im.logger.Info("procedure imported", "import_id", proc.ImportID, "type", procedureType,
		"reagents", len(proc.Reagents), "equipment", len(proc.Equipment), "samples", len(proc.Samples))
	return proc, errors.Join(convErrs...)
}

// ImportPCR reads an instrument results export.
func (im *Importer) ImportPCR(path string) (*PCRImport, error) {
	imp := &PCRImport{ImportID: uuid.New(), Source: path}
	var convErr error
	err := sheetrange.ReadFile(path, func(wb *sheetrange.Workbook) error {
		info, err := im.parse(wb, layout.PCRInfo, nil)
		if err != nil {
			return err
		}
		imp.Info = InfoFromResult(info)

		samples, err := im.parse(wb, layout.PCRSamples, nil)
		if err != nil {
			return err
		}
		imp.Results, convErr = PCRResultsFromResult(samples)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("import pcr: %w", err)
	}
	im.logger.Info("pcr results imported", "import_id", imp.ImportID, "samples", len(imp.Results))
	return imp, convErr
}

// Exporter writes validated objects back into workbooks. Target files are created
// when missing and sheets outside the written regions are preserved.
type Exporter struct {
	layout layout.Layout
	logger *slog.Logger
}

// NewExporter returns an Exporter writing through l.
func NewExporter(l layout.Layout, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{layout: l, logger: logger}
}

func (ex *Exporter) region(name string, vars map[string]string) (layout.Region, error) {
	r, err := ex.layout.Region(name)
	if err != nil {
		return layout.Region{}, err
	}
	return r.Bind(vars), nil
}

// ExportSubmission writes the info form and the plate-aligned sample list.
func (ex *Exporter) ExportSubmission(path string, sub *Submission) error {
	return sheetrange.UpdateFile(path, func(wb *sheetrange.Workbook) error {
		info, err := ex.region(layout.ClientInfo, nil)
		if err != nil {
			return err
		}
		if err := info.WriteRecord(wb, sub.Info.Record(), sheetrange.WithLogger(ex.logger)); err != nil {
			return err
		}
		samples, err := ex.region(layout.ClientSamples, nil)
		if err != nil {
			return err
		}
		return samples.WriteRecords(wb, SampleRecords(sub.Samples), sheetrange.WithLogger(ex.logger))
	})
}

// ExportProcedure fills the "<type> Quality" sheet.
func (ex *Exporter) ExportProcedure(path string, proc *Procedure) error {
	vars := map[string]string{layout.ProcedureVar: proc.Type}
	err := sheetrange.UpdateFile(path, func(wb *sheetrange.Workbook) error {
		opt := sheetrange.WithLogger(ex.logger)
		info, err := ex.region(layout.QualityInfo, vars)
		if err != nil {
			return err
		}
		if err := info.WriteRecord(wb, proc.Info.Record(qualityExcluded...), opt); err != nil {
			return err
		}

		reagents := make([]*sheetrange.Record, len(proc.Reagents))
		for i, r := range proc.Reagents {
			reagents[i] = r.Record()
		}
		if err := ex.writeTable(wb, layout.QualityReagents, vars, reagents, opt); err != nil {
			return err
		}

		equipment := make([]*sheetrange.Record, len(proc.Equipment))
		for i, e := range proc.Equipment {
			equipment[i] = e.Record()
		}
		if err := ex.writeTable(wb, layout.QualityEquipment, vars, equipment, opt); err != nil {
			return err
		}
		return ex.writeTable(wb, layout.QualitySamples, vars, SampleRecords(proc.Samples), opt)
	})
	if err != nil {
		return fmt.Errorf("export procedure %s: %w", proc.Type, err)
	}
	ex.logger.Info("procedure exported", "path", path, "type", proc.Type)
	return nil
}

// ExportPCR writes results onto the "<procedureType> Results" sheet.
func (ex *Exporter) ExportPCR(path, procedureType string, imp *PCRImport) error {
	vars := map[string]string{layout.ProcedureVar: procedureType}
	err := sheetrange.UpdateFile(path, func(wb *sheetrange.Workbook) error {
		info, err := ex.region(layout.ResultsInfo, vars)
		if err != nil {
			return err
		}
		if err := info.WriteRecord(wb, imp.Info.Record(), sheetrange.WithLogger(ex.logger)); err != nil {
			return err
		}
		return ex.writeTable(wb, layout.ResultsSamples, vars, PCRRecords(imp.Results), sheetrange.WithLogger(ex.logger))
	})
	if err != nil {
		return fmt.Errorf("export pcr: %w", err)
	}
	ex.logger.Info("pcr results exported", "path", path, "samples", len(imp.Results))
	return nil
}

func (ex *Exporter) writeTable(wb *sheetrange.Workbook, name string, vars map[string]string, records []*sheetrange.Record, opts ...sheetrange.Option) error {
	r, err := ex.region(name, vars)
	if err != nil {
		return err
	}
	return r.WriteRecords(wb, records, opts...)
}
