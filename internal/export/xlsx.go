package export

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/renaissanceplanning/pmt-cli/internal/contiguity"
)

// WriteSummaryXLSX writes the parcel summary table to a spreadsheet with one
// sheet named "parcel_summary".
func WriteSummaryXLSX(path string, rows []contiguity.ParcelSummary, stats []contiguity.Stat, areaScaling bool) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("parcel_summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	header := sheet.AddRow()
	for _, col := range summaryHeader(stats, areaScaling) {
		header.AddCell().SetString(col)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetString(r.ParcelID)
		row.AddCell().SetFloat(r.DevelopableArea)
		for _, s := range stats {
			row.AddCell().SetFloat(r.Contiguity[s])
		}
		if areaScaling {
			for _, s := range stats {
				row.AddCell().SetFloat(r.ScaledArea[s])
			}
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// WritePolygonXLSX writes the polygon-level audit table to a spreadsheet with
// one sheet named "polygon_contiguity".
func WritePolygonXLSX(path string, rows []contiguity.PolygonResult) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("polygon_contiguity")
	if err != nil {
		return eris.Wrap(err, "export: add polygon sheet")
	}

	header := sheet.AddRow()
	for _, col := range polygonHeader {
		header.AddCell().SetString(col)
	}

	for _, r := range rows {
		row := sheet.AddRow()
		row.AddCell().SetInt(int(r.PolyID))
		row.AddCell().SetString(r.ParcelID)
		row.AddCell().SetInt(r.ChunkID)
		row.AddCell().SetFloat(r.Contiguity)
		row.AddCell().SetFloat(r.DevelopableArea)
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}
