package types

// Filter — унифицированные параметры списочных запросов (?limit, ?page, ?sort, ?filter).
type Filter struct {
	Filter         map[string]interface{}
	Sort           map[string]string
	Search         string
	Limit          int
	Offset         int
	Page           int
	WithPagination bool
}
