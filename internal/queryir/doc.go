// Package queryir is the SQL abstract syntax the data-view compiler builds
// before anything is rendered to text.
//
// The compiler never concatenates SQL directly. It assembles a Query made of
// common table expressions and one main Select, then hands it to the
// querysql renderer. Keeping a tree in between lets us validate structure
// (unique CTE names, mandatory ORDER BY, join conditions) and lets tests
// assert on shape rather than on substrings.
//
// SEALED INTERFACES:
//
// Relation, TableRef, Predicate and Operand are sealed with marker methods.
// Only types in this package implement them, so the renderer can switch
// over them exhaustively:
//
//	switch r := rel.(type) {
//	case Select:
//	    // SELECT ... FROM ...
//	case Union:
//	    // SELECT ... UNION ALL SELECT ...
//	}
//
// TRUST BOUNDARY:
//
// Expression strings (column expressions, GROUP BY terms, predicate left
// sides) come from the column catalog and are trusted. Everything a caller
// can influence reaches SQL as an Operand: String and Number literals are
// escaped or checked by the renderer.
package queryir
