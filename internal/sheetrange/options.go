package sheetrange

import "log/slog"

// Transform rewrites a parsed table row in place. Returning false drops the row.
// index counts kept rows from zero.
type Transform func(index int, rec *Record) (keep bool, err error)

type settings struct {
	logger        *slog.Logger
	keyName       func(string) string
	headerName    func(string) string
	label         func(string) string
	transforms    []Transform
	skipBlankRows bool
	protocol      []string
	skipColumns   map[string]bool
	slots         int
	slotField     string
}

// Option configures parsers and writers. Options that do not apply to a given
// parser or writer are ignored.
type Option func(*settings)

func newSettings(opts []Option) settings {
	s := settings{
		logger:     slog.Default(),
		keyName:    FieldName,
		headerName: HeaderName,
		label:      Prettify,
	}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// WithLogger sets the logger parsers and writers report to. A nil logger keeps
// slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithKeyName replaces the label-to-key normalization of the key-value parser.
func WithKeyName(fn func(string) string) Option {
	return func(s *settings) { s.keyName = fn }
}

// WithHeaderName replaces the header-to-field normalization of the table parser.
func WithHeaderName(fn func(string) string) Option {
	return func(s *settings) { s.headerName = fn }
}

// WithLabel replaces the key-to-label rendering used by writers.
func WithLabel(fn func(string) string) Option {
	return func(s *settings) { s.label = fn }
}

// WithTransform adds a per-row hook to the table parser. Hooks run in order.
func WithTransform(t Transform) Option {
	return func(s *settings) { s.transforms = append(s.transforms, t) }
}

// SkipBlankRows makes the table parser step over fully blank rows instead of
// treating the first one as the end of the table. The range must set end_row.
func SkipBlankRows() Option {
	return func(s *settings) { s.skipBlankRows = true }
}

// WithProtocolColumns pins the identity and category columns to the front of a
// written table.
func WithProtocolColumns(cols ...string) Option {
	return func(s *settings) { s.protocol = append([]string(nil), cols...) }
}

// WithSkipColumns keeps the table writer from writing the named fields.
func WithSkipColumns(cols ...string) Option {
	return func(s *settings) {
		if s.skipColumns == nil {
			s.skipColumns = make(map[string]bool)
		}
		for _, c := range cols {
			s.skipColumns[c] = true
		}
	}
}

// WithSlots aligns written rows to n positional slots numbered by field.
func WithSlots(n int, field string) Option {
	return func(s *settings) {
		s.slots = n
		s.slotField = field
	}
}
