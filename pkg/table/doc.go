// Package table turns Polymarket JSON payloads into column-ordered record
// tables and coerces well-known columns into typed values.
//
// A payload that is a single object becomes a one-row table, an array of
// objects becomes one row per element. Column order follows the order in
// which keys first appear in the payload.
//
//	t, err := table.Decode(body)
//	if err != nil {
//		return err
//	}
//	t = table.DefaultSchema().Apply(t)
//
//	for _, r := range t.Records {
//		price := r["price"].(decimal.NullDecimal)
//		...
//	}
//
// Schema coercion mirrors what the APIs actually send: numbers as strings,
// millisecond timestamps, ISO dates with assorted offsets, and the
// clobTokenIds field as a JSON-encoded string array.
package table
