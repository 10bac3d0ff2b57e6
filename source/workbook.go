package source

import (
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the worksheet holding the STB rows.
const DefaultSheet = "STB april 2014"

// Source errors.
var (
	// ErrSheetNotFound is returned when the workbook has no sheet of the requested name.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrUnsupportedFormat is returned for files that are not .xls or .xlsx workbooks.
	ErrUnsupportedFormat = errors.New("unsupported workbook format")
)

// Workbook streams the rows of a spreadsheet.
type Workbook interface {
	// Rows streams the rows of the named sheet in order. Each row is the
	// ordered list of cell values; trailing empty cells may be absent.
	Rows(sheet string) iter.Seq2[[]Value, error]

	// Sheets lists the sheet names in workbook order.
	Sheets() []string

	// Close releases the underlying file.
	Close() error
}

// OpenWorkbook opens path with the reader matching its extension.
func OpenWorkbook(path string) (Workbook, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return openXLSX(path)
	case ".xls":
		return openXLS(path)
	default:
		return nil, errors.WithHint(
			errors.Wrapf(ErrUnsupportedFormat, "open %s", path),
			"source.path must point at an .xls or .xlsx workbook")
	}
}

// xlsxWorkbook reads Office Open XML workbooks.
type xlsxWorkbook struct {
	f *excelize.File
}

func openXLSX(path string) (*xlsxWorkbook, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", path)
	}
	return &xlsxWorkbook{f: f}, nil
}

func (w *xlsxWorkbook) Sheets() []string {
	return w.f.GetSheetList()
}

func (w *xlsxWorkbook) Rows(sheet string) iter.Seq2[[]Value, error] {
	return func(yield func([]Value, error) bool) {
		if !slices.Contains(w.f.GetSheetList(), sheet) {
			yield(nil, errors.Wrapf(ErrSheetNotFound, "sheet %q", sheet))
			return
		}

		rows, err := w.f.Rows(sheet)
		if err != nil {
			yield(nil, errors.Wrapf(err, "read sheet %q", sheet))
			return
		}
		defer rows.Close()

		for n := 1; rows.Next(); n++ {
			cells, err := rows.Columns(excelize.Options{RawCellValue: true})
			if err != nil {
				yield(nil, errors.Wrapf(err, "read row of sheet %q", sheet))
				return
			}
			vals, err := w.values(sheet, n, cells)
			if err != nil {
				yield(nil, errors.Wrapf(err, "read row %d of sheet %q", n, sheet))
				return
			}
			if !yield(vals, nil) {
				return
			}
		}
		if err := rows.Error(); err != nil {
			yield(nil, errors.Wrapf(err, "read sheet %q", sheet))
		}
	}
}

// values types the raw cells of row n. Cells stored as numbers become
// numeric values; everything else stays text.
func (w *xlsxWorkbook) values(sheet string, n int, cells []string) ([]Value, error) {
	vals := make([]Value, len(cells))
	for c, text := range cells {
		vals[c] = TextValue(text)
		if text == "" {
			continue
		}
		name, err := excelize.CoordinatesToCellName(c+1, n)
		if err != nil {
			return nil, err
		}
		typ, err := w.f.GetCellType(sheet, name)
		if err != nil {
			return nil, err
		}
		if typ != excelize.CellTypeUnset && typ != excelize.CellTypeNumber {
			continue
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			vals[c] = NumberValue(f)
		}
	}
	return vals, nil
}

func (w *xlsxWorkbook) Close() error {
	return w.f.Close()
}

// xlsWorkbook reads legacy BIFF (.xls) workbooks.
type xlsWorkbook struct {
	file *os.File
	wb   *xls.WorkBook
}

func openXLS(path string) (*xlsWorkbook, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open workbook %s", path)
	}

	wb, err := xls.OpenReader(file, "utf-8")
	if err == nil && wb == nil {
		err = errors.New("no workbook stream in file")
	}
	if err != nil {
		_ = file.Close()
		return nil, errors.Wrapf(err, "parse workbook %s", path)
	}
	return &xlsWorkbook{file: file, wb: wb}, nil
}

func (w *xlsWorkbook) Sheets() []string {
	names := make([]string, 0, w.wb.NumSheets())
	for i := 0; i < w.wb.NumSheets(); i++ {
		if s := w.wb.GetSheet(i); s != nil {
			names = append(names, s.Name)
		}
	}
	return names
}

func (w *xlsWorkbook) Rows(sheet string) iter.Seq2[[]Value, error] {
	return func(yield func([]Value, error) bool) {
		var ws *xls.WorkSheet
		for i := 0; i < w.wb.NumSheets(); i++ {
			if s := w.wb.GetSheet(i); s != nil && s.Name == sheet {
				ws = s
				break
			}
		}
		if ws == nil {
			yield(nil, errors.Wrapf(ErrSheetNotFound, "sheet %q", sheet))
			return
		}

		for i := 0; i <= int(ws.MaxRow); i++ {
			row, ok := xlsRow(ws, i)
			if !ok {
				continue
			}
			cells := make([]Value, row.LastCol())
			for c := range cells {
				cells[c] = xlsValue(row.Col(c))
			}
			if !yield(cells, nil) {
				return
			}
		}
	}
}

// xlsRow returns row i of ws. The xls reader panics on rows that have no
// record in the file (fully blank rows), so those are reported as absent.
func xlsRow(ws *xls.WorkSheet, i int) (row *xls.Row, ok bool) {
	defer func() {
		if recover() != nil {
			row, ok = nil, false
		}
	}()
	row = ws.Row(i)
	return row, row != nil
}

// xlsValue types a rendered .xls cell. The reader only exposes cell text, so
// a cell counts as numeric when its text is a number in canonical form: "7"
// and "1.5" are numbers, "0101" and "1e3" stay text.
func xlsValue(text string) Value {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || FormatNumber(f) != text {
		return TextValue(text)
	}
	return NumberValue(f)
}

func (w *xlsWorkbook) Close() error {
	return w.file.Close()
}
