package util

import "strconv"

// PageSize is the fixed page size for all list endpoints.
const PageSize = 10

// Skip parses an explicit skip offset supplied by the caller.
func Skip(raw string) int {
	skip, err := strconv.Atoi(raw)
	if err != nil || skip < 0 {
		return 0
	}
	return skip
}

// Calculate converts page/size parameters into an offset and a bounded
// limit, used by the search endpoint.
func Calculate(page, size int) (from, limit int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = PageSize
	}
	from = (page - 1) * size
	return from, size
}
