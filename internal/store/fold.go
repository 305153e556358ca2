package store

import (
	"database/sql/driver"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"modernc.org/sqlite"
)

// foldFunc is the SQL name of Fold. SQLite's own LIKE and lower() only
// fold ASCII, so name searches compare folded text with instr instead.
const foldFunc = "kdex_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case string:
				return Fold(v), nil
			case []byte:
				return Fold(string(v)), nil
			default:
				return v, nil
			}
		})
}

// Fold returns s in NFC with full Unicode case folding applied, so
// "Épik" and "ÉPIK" compare equal
func Fold(s string) string {
	return cases.Fold().String(norm.NFC.String(s))
}

// containsClause matches column against a folded, literal substring
func containsClause(column string) string {
	return "instr(" + foldFunc + "(" + column + "), ?) > 0"
}
