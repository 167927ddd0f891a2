package sqlstore

import "strconv"

// Dialect adapts statements to a database driver.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// Schema creates the checkpoint table when absent.
	Schema string
}

// Question renders "?" placeholders (sqlite, mysql).
func Question(int) string { return "?" }

// Dollar renders "$n" placeholders (postgres).
func Dollar(n int) string { return "$" + strconv.Itoa(n) }
