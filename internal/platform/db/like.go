package db

import "strings"

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern turns user input into an ILIKE pattern matching it as a
// literal substring.
func ContainsPattern(q string) string {
	return "%" + likeEscaper.Replace(q) + "%"
}
