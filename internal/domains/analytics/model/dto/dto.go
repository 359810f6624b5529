package dto

type SummaryResponse struct {
	Lots           int            `json:"lots"`
	SlotsTotal     int            `json:"slotsTotal"`
	SlotsAvailable int            `json:"slotsAvailable"`
	Bookings       map[string]int `json:"bookings"`
	Timestamp      string         `json:"timestamp"`
}
