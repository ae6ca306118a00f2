package models

import "time"

// Snapshot is one read of the HelpLink tables. It is never mutated once
// handed to the pipeline.
type Snapshot struct {
	Source        string         `json:"source"`
	LoadedAt      time.Time      `json:"loaded_at"`
	Users         []User         `json:"users"`
	Institutions  []Institution  `json:"institutions"`
	Categories    []Category     `json:"categories"`
	Items         []Item         `json:"items"`
	Donations     []Donation     `json:"donations"`
	DonationItems []DonationItem `json:"donation_items"`
	Impacts       []Impact       `json:"impacts"`
	// Unavailable lists tables that could not be read and were left empty.
	Unavailable []string `json:"unavailable,omitempty"`
}

func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.Users) == 0 && len(s.Institutions) == 0 && len(s.Categories) == 0 &&
		len(s.Items) == 0 && len(s.Donations) == 0 && len(s.DonationItems) == 0 && len(s.Impacts) == 0)
}
