//go:build ruleguard

package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// RecordNotFoundComparison flags direct equality checks against
// gorm.ErrRecordNotFound. GORM wraps errors, only errors.Is sees through
// the wrapping.
func RecordNotFoundComparison(m dsl.Matcher) {
	m.Match(
		`$err == gorm.ErrRecordNotFound`,
		`$err != gorm.ErrRecordNotFound`,
	).
		Report("use errors.Is($err, gorm.ErrRecordNotFound), wrapped errors never compare equal")
}

// RawAccountFilter flags string-concatenated account filters. Owner
// scoping must go through parameter binding.
func RawAccountFilter(m dsl.Matcher) {
	m.Match(
		`$db.Where("account_id = " + $id)`,
		`$db.Where(fmt.Sprintf("account_id = %d", $id))`,
	).
		Report("bind the account id with a placeholder instead of string concatenation")
}
