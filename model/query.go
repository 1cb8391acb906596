package model

// ActivityQuery holds the pagination query parameters of the activity endpoint
type ActivityQuery struct {
	Page    int `form:"page,default=1"`
	PerPage int `form:"perPage,default=30"`
}
