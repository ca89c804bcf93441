package lab

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/nconklindev/labsheets/internal/layout"
	"github.com/nconklindev/labsheets/internal/sheetrange"
)

// TypeDetector works out which submission type a client workbook belongs to.
type TypeDetector struct {
	Known  []string
	Info   layout.Region
	Logger *slog.Logger
}

func (d TypeDetector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d TypeDetector) match(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, k := range d.Known {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

// Detect tries, in order, the workbook category property, the submission type
// entry of the info region, and finally the file name.
func (d TypeDetector) Detect(wb *sheetrange.Workbook) (string, error) {
	for _, c := range wb.Categories() {
		if t, ok := d.match(c); ok {
			return t, nil
		}
	}
	d.logger().Warn("submission type not in file properties, falling back on info region", "path", wb.Path())

	if res, err := d.Info.Parse(wb); err == nil {
		info := InfoFromResult(res)
		for _, key := range []string{"submission_type", "submissiontype"} {
			if t, ok := d.match(info.Text(key)); ok {
				return t, nil
			}
		}
	} else {
		d.logger().Debug("info region unreadable", "err", err)
	}
	d.logger().Warn("submission type not in info region, falling back on file name", "path", wb.Path())

	if t, ok := d.FromFilename(wb.Path()); ok {
		return t, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSubmissionType, filepath.Base(wb.Path()))
}

// FromFilename matches known type names against the file name, treating spaces,
// dashes and underscores alike. The longest match wins.
func (d TypeDetector) FromFilename(path string) (string, bool) {
	base := filepath.Base(path)
	best := ""
	for _, k := range d.Known {
		parts := strings.Fields(k)
		for i, p := range parts {
			parts[i] = regexp.QuoteMeta(p)
		}
		re, err := regexp.Compile(`(?i)` + strings.Join(parts, `[-_ ]?`))
		if err != nil {
			continue
		}
		if re.MatchString(base) && len(k) > len(best) {
			best = k
		}
	}
	return best, best != ""
}
