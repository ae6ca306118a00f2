package utils

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"sort"
	"strconv"

	"helplink/internal/pipeline"
)

var donationHeader = []string{"id_doacao", "status", "data_solicitacao", "data_confirmacao", "usuario", "instituicao"}

// WriteDonationsCSV writes the joined donation rows, one line per donation.
func WriteDonationsCSV(filepath string, rows []pipeline.DonationRow) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(donationHeader); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.Status,
			r.RequestedAt.String(),
			r.ConfirmedAt.String(),
			r.UserName,
			r.InstitutionName,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// SaveAsJSON writes data as indented JSON.
func SaveAsJSON(filepath string, data interface{}) error {
	file, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// SortedStatuses returns the histogram keys in a stable order: highest
// count first, then alphabetically.
func SortedStatuses(histogram map[string]int) []string {
	statuses := make([]string, 0, len(histogram))
	for status := range histogram {
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool {
		ci, cj := histogram[statuses[i]], histogram[statuses[j]]
		if ci != cj {
			return ci > cj
		}
		return statuses[i] < statuses[j]
	})
	return statuses
}
