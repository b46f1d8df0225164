package core

// CategoryAmount is an amount aggregated under a category display name. It is
// only produced at presentation time, after joining category identifiers
// against the category collection.
type CategoryAmount struct {
	Name   string
	Amount Money
}
