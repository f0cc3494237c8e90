// Package export writes contiguity result tables to CSV and XLSX files.
package export

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
)

// summaryHeader builds the parcel summary column list: parcel id and
// developable area, then {Stat}_Contiguity and optionally {Stat}_Scaled_Area
// per requested statistic.
func summaryHeader(stats []contiguity.Stat, areaScaling bool) []string {
	header := []string{"parcel_id", "developable_area"}
	for _, s := range stats {
		header = append(header, title(s)+"_Contiguity")
	}
	if areaScaling {
		for _, s := range stats {
			header = append(header, title(s)+"_Scaled_Area")
		}
	}
	return header
}

func summaryRecord(r contiguity.ParcelSummary, stats []contiguity.Stat, areaScaling bool) []string {
	rec := []string{r.ParcelID, formatFloat(r.DevelopableArea)}
	for _, s := range stats {
		rec = append(rec, formatFloat(r.Contiguity[s]))
	}
	if areaScaling {
		for _, s := range stats {
			rec = append(rec, formatFloat(r.ScaledArea[s]))
		}
	}
	return rec
}

// WriteSummaryCSV writes the parcel summary table.
func WriteSummaryCSV(path string, rows []contiguity.ParcelSummary, stats []contiguity.Stat, areaScaling bool) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader(stats, areaScaling)); err != nil {
		return eris.Wrap(err, "export: write summary header")
	}
	for _, r := range rows {
		if err := w.Write(summaryRecord(r, stats, areaScaling)); err != nil {
			return eris.Wrapf(err, "export: write summary row %s", r.ParcelID)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush summary csv")
}

var polygonHeader = []string{"poly_id", "parcel_id", "chunk_id", "contiguity", "developable_area"}

// WritePolygonCSV writes the unaggregated polygon-level audit table.
func WritePolygonCSV(path string, rows []contiguity.PolygonResult) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(polygonHeader); err != nil {
		return eris.Wrap(err, "export: write polygon header")
	}
	for _, r := range rows {
		rec := []string{
			strconv.FormatInt(int64(r.PolyID), 10),
			r.ParcelID,
			strconv.Itoa(r.ChunkID),
			formatFloat(r.Contiguity),
			formatFloat(r.DevelopableArea),
		}
		if err := w.Write(rec); err != nil {
			return eris.Wrapf(err, "export: write polygon row %d", r.PolyID)
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush polygon csv")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// title uppercases the first letter of a statistic name for column naming
// (min -> Min_Contiguity).
func title(s contiguity.Stat) string {
	str := string(s)
	if str == "" {
		return str
	}
	return strings.ToUpper(str[:1]) + str[1:]
}
