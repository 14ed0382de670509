package models

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}

// DateRange is an inclusive optional date window.
type DateRange struct {
	From *Date
	To   *Date
}
