package dataset

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

var (
	ErrMissingColumn     = errors.New("missing column")
	ErrDuplicateDistrict = errors.New("duplicate district in rent table")
	ErrEmptyTable        = errors.New("table has no rows")
)

// RentTable maps a district name to its annual rent per 평.
type RentTable map[string]float64

// ReadSales parses the sales CSV. Numeric columns are typed as floats so that
// blank cells become NaN instead of failing the whole load.
func ReadSales(r io.Reader, enc string) (dataframe.DataFrame, error) {
	decoded, err := decodingReader(r, enc)
	if err != nil {
		return dataframe.DataFrame{}, err
	}

	types := make(map[string]series.Type)
	for _, col := range salesNumericColumns() {
		types[col] = series.Float
	}

	df := dataframe.ReadCSV(decoded,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("parse sales csv: %w", df.Err)
	}
	if err := requireColumns(df, salesRequiredColumns()); err != nil {
		return dataframe.DataFrame{}, err
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, fmt.Errorf("sales: %w", ErrEmptyTable)
	}

	return df, nil
}

// ReadRent parses the rent CSV. The district column is the first column,
// whatever its header says; the source leaves it unnamed.
func ReadRent(r io.Reader, enc string) (RentTable, error) {
	decoded, err := decodingReader(r, enc)
	if err != nil {
		return nil, err
	}

	df := dataframe.ReadCSV(decoded,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(map[string]series.Type{ColAnnualRent: series.Float}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("parse rent csv: %w", df.Err)
	}
	if err := requireColumns(df, []string{ColAnnualRent}); err != nil {
		return nil, err
	}
	if df.Nrow() == 0 {
		return nil, fmt.Errorf("rent: %w", ErrEmptyTable)
	}

	districts := df.Col(df.Names()[0]).Records()
	rents := df.Col(ColAnnualRent).Float()

	table := make(RentTable, len(districts))
	for i, name := range districts {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := table[name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateDistrict, name)
		}
		table[name] = rents[i]
	}
	return table, nil
}

// Lookup returns the district's rent, or NaN and false when it is absent.
func (t RentTable) Lookup(district string) (float64, bool) {
	v, ok := t[district]
	if !ok {
		return math.NaN(), false
	}
	return v, true
}

func ReadSalesFile(path, enc string) (dataframe.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("open sales file: %w", err)
	}
	defer f.Close()

	return ReadSales(f, enc)
}

func ReadRentFile(path, enc string) (RentTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rent file: %w", err)
	}
	defer f.Close()

	return ReadRent(f, enc)
}

func requireColumns(df dataframe.DataFrame, required []string) error {
	names := df.Names()
	for _, col := range required {
		if !slices.Contains(names, col) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, col)
		}
	}
	return nil
}
