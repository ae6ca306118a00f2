package utils

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"helplink/internal/pipeline"
)

const (
	sheetSummary      = "Summary"
	sheetDonations    = "Donations"
	sheetStatus       = "Status"
	sheetTimeline     = "Timeline"
	sheetInstitutions = "Institutions"
	sheetItems        = "Items"
	sheetImpact       = "Impact"
	sheetHeatmap      = "Heatmap"
)

// InfoRow is one key/value line of the summary sheet.
type InfoRow struct {
	Key   string
	Value interface{}
}

// CreateExcelReport writes the filtered donations and every aggregate to
// an xlsx workbook, one sheet per table, with charts for the status
// histogram and the timeline.
func CreateExcelReport(filepath string, rows []pipeline.DonationRow, res pipeline.Result, info []InfoRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return err
	}
	writeSummary(f, res, info)

	index, err := f.NewSheet(sheetDonations)
	if err != nil {
		return err
	}
	writeHeader(f, sheetDonations, "ID", "Status", "Requested At", "Confirmed At", "User", "Institution")
	for i, r := range rows {
		setRow(f, sheetDonations, i+2,
			r.ID, r.Status, r.RequestedAt.String(), r.ConfirmedAt.String(), r.UserName, r.InstitutionName)
	}
	setWidths(f, sheetDonations, 6, 22)

	if err := writeStatusSheet(f, res); err != nil {
		return err
	}
	if err := writeTimelineSheet(f, res); err != nil {
		return err
	}
	if err := writeRankingSheet(f, sheetInstitutions, "Institution", "Donations", res.InstitutionRanking); err != nil {
		return err
	}
	if err := writeRankingSheet(f, sheetItems, "Item", "Quantity", res.ItemRanking); err != nil {
		return err
	}
	if err := writeImpactSheet(f, res); err != nil {
		return err
	}
	if err := writeHeatmapSheet(f, res); err != nil {
		return err
	}

	f.SetActiveSheet(index)

	if err := f.SaveAs(filepath); err != nil {
		return err
	}
	return nil
}

func writeSummary(f *excelize.File, res pipeline.Result, info []InfoRow) {
	lines := append([]InfoRow{}, info...)
	lines = append(lines,
		InfoRow{"Outcome", string(res.Outcome)},
		InfoRow{"Filtered Donations", res.Metrics.Total},
		InfoRow{"Completed Donations", res.Metrics.Completed},
		InfoRow{"Completion Rate (%)", res.Metrics.CompletionRate},
		InfoRow{"Items Donated", res.Metrics.ItemQuantity},
		InfoRow{"Avg Items per Donation", res.Metrics.AvgItemsPerDonation},
		InfoRow{"Avg Impact Score", res.Metrics.AvgImpactScore},
		InfoRow{"Unparsable Timestamps", res.Quality.UnparsableTimestamps},
	)

	for i, line := range lines {
		setRow(f, sheetSummary, i+1, line.Key, line.Value)
	}
	f.SetColWidth(sheetSummary, "A", "A", 28)
	f.SetColWidth(sheetSummary, "B", "B", 32)
}

func writeStatusSheet(f *excelize.File, res pipeline.Result) error {
	if _, err := f.NewSheet(sheetStatus); err != nil {
		return err
	}
	writeHeader(f, sheetStatus, "Status", "Count")

	statuses := SortedStatuses(res.StatusHistogram)
	for i, status := range statuses {
		setRow(f, sheetStatus, i+2, status, res.StatusHistogram[status])
	}
	setWidths(f, sheetStatus, 2, 18)

	if len(statuses) == 0 {
		return nil
	}
	return f.AddChart(sheetStatus, "D2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{
			{
				Name:       "Donations",
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheetStatus, len(statuses)+1),
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", sheetStatus, len(statuses)+1),
			},
		},
		Title: []excelize.RichTextRun{
			{
				Text: "Donations by Status",
			},
		},
		Dimension: excelize.ChartDimension{
			Width:  480,
			Height: 300,
		},
	})
}

func writeTimelineSheet(f *excelize.File, res pipeline.Result) error {
	if _, err := f.NewSheet(sheetTimeline); err != nil {
		return err
	}
	writeHeader(f, sheetTimeline, "Date", "Donations")
	for i, p := range res.TimeSeries {
		setRow(f, sheetTimeline, i+2, p.Date, p.Count)
	}
	setWidths(f, sheetTimeline, 2, 16)

	if len(res.TimeSeries) < 2 {
		return nil
	}
	last := len(res.TimeSeries) + 1
	return f.AddChart(sheetTimeline, "D2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{
			{
				Name:       "Donations",
				Categories: fmt.Sprintf("%s!$A$2:$A$%d", sheetTimeline, last),
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", sheetTimeline, last),
			},
		},
		Title: []excelize.RichTextRun{
			{
				Text: "Donations over Time",
			},
		},
		XAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		Dimension: excelize.ChartDimension{
			Width:  600,
			Height: 320,
		},
	})
}

func writeRankingSheet(f *excelize.File, sheet, labelHeader, countHeader string, entries []pipeline.RankEntry) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}
	writeHeader(f, sheet, "Rank", labelHeader, countHeader)
	for i, e := range entries {
		setRow(f, sheet, i+2, i+1, e.Label, e.Count)
	}
	f.SetColWidth(sheet, "A", "A", 8)
	f.SetColWidth(sheet, "B", "C", 24)
	return nil
}

func writeImpactSheet(f *excelize.File, res pipeline.Result) error {
	if _, err := f.NewSheet(sheetImpact); err != nil {
		return err
	}
	writeHeader(f, sheetImpact, "Donation ID", "Score")
	for i, p := range res.ImpactSeries {
		setRow(f, sheetImpact, i+2, p.DonationID, p.Score)
	}
	setWidths(f, sheetImpact, 2, 16)

	if len(res.ImpactSeries) == 0 {
		return nil
	}
	cells := fmt.Sprintf("B2:B%d", len(res.ImpactSeries)+1)
	if style := getNumberStyle(f, "0.00"); style != 0 {
		f.SetCellStyle(sheetImpact, "B2", fmt.Sprintf("B%d", len(res.ImpactSeries)+1), style)
	}
	// Green for high scores, red for low ones
	if err := f.SetConditionalFormat(sheetImpact, cells, []excelize.ConditionalFormatOptions{
		{
			Type:     "cell",
			Criteria: ">=",
			Value:    "70",
			Format:   getConditionalFormatStyle(f, "#C6EFCE"),
		},
	}); err != nil {
		return err
	}
	return f.SetConditionalFormat(sheetImpact, cells, []excelize.ConditionalFormatOptions{
		{
			Type:     "cell",
			Criteria: "<",
			Value:    "30",
			Format:   getConditionalFormatStyle(f, "#FFCCCC"),
		},
	})
}

func writeHeatmapSheet(f *excelize.File, res pipeline.Result) error {
	if _, err := f.NewSheet(sheetHeatmap); err != nil {
		return err
	}

	header := make([]interface{}, 0, 25)
	header = append(header, "Day")
	for h := 0; h < 24; h++ {
		header = append(header, h)
	}
	if err := f.SetSheetRow(sheetHeatmap, "A1", &header); err != nil {
		return err
	}

	for d, label := range pipeline.Weekdays {
		row := make([]interface{}, 0, 25)
		row = append(row, label)
		for _, v := range res.HeatMatrix[d] {
			row = append(row, v)
		}
		cell, err := excelize.CoordinatesToCellName(1, d+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetHeatmap, cell, &row); err != nil {
			return err
		}
	}

	last, _ := excelize.CoordinatesToCellName(25, 8)
	return f.SetConditionalFormat(sheetHeatmap, "B2:"+last, []excelize.ConditionalFormatOptions{
		{
			Type:     "2_color_scale",
			Criteria: "=",
			MinType:  "min",
			MaxType:  "max",
			MinColor: "#FFFFFF",
			MaxColor: "#F8696B",
		},
	})
}

func writeHeader(f *excelize.File, sheet string, headers ...string) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
}

func setRow(f *excelize.File, sheet string, row int, values ...interface{}) {
	for i, v := range values {
		cell, _ := excelize.CoordinatesToCellName(i+1, row)
		f.SetCellValue(sheet, cell, v)
	}
}

func setWidths(f *excelize.File, sheet string, cols int, width float64) {
	for i := 1; i <= cols; i++ {
		colName, _ := excelize.ColumnNumberToName(i)
		f.SetColWidth(sheet, colName, colName, width)
	}
}

func getNumberStyle(f *excelize.File, format string) int {
	style, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: &format,
	})
	if err != nil {
		return 0
	}
	return style
}

func getConditionalFormatStyle(f *excelize.File, color string) *int {
	style, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil
	}
	return &style
}
