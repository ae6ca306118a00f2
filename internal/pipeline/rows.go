package pipeline

import "helplink/internal/models"

// DonationRow is a donation left-joined to its user and institution names,
// the shape the donations table is displayed and exported in.
type DonationRow struct {
	models.Donation
	UserName        string `json:"user_name"`
	InstitutionName string `json:"institution_name"`
}

func JoinNames(s *models.Snapshot, donations []models.Donation) []DonationRow {
	rows := make([]DonationRow, 0, len(donations))
	if len(donations) == 0 {
		return rows
	}

	var users, institutions map[int64]string
	if s != nil {
		users = make(map[int64]string, len(s.Users))
		for _, u := range s.Users {
			users[u.ID] = u.Name
		}
		institutions = make(map[int64]string, len(s.Institutions))
		for _, inst := range s.Institutions {
			institutions[inst.ID] = inst.Name
		}
	}

	for _, d := range donations {
		row := DonationRow{Donation: d, UserName: UnknownUser, InstitutionName: UnknownInstitution}
		if name, ok := users[d.UserID]; ok {
			row.UserName = name
		}
		if name, ok := institutions[d.InstitutionID]; ok {
			row.InstitutionName = name
		}
		rows = append(rows, row)
	}
	return rows
}
