package domain

// Record is a typed row from the structured store. One shape serves all
// categories as a tagged union: the category discriminates which optional
// fields are meaningful (billing rows carry Amount, benefit and device rows
// carry Covered and rule text, formulary rows carry Covered and Requirement).
type Record struct {
	category    Category
	key         string // billing code, drug name, device category, or service name
	description string
	amount      *float64
	covered     *bool
	requirement string
	ruleText    string
	source      string
	loc         string
	page        int
}

// ReconstructRecord hydrates a record from the structured store.
func ReconstructRecord(
	category Category, key, description string,
	amount *float64, covered *bool,
	requirement, ruleText, source, loc string, page int,
) Record {
	return Record{
		category: category, key: key, description: description,
		amount: amount, covered: covered,
		requirement: requirement, ruleText: ruleText,
		source: source, loc: loc, page: page,
	}
}

// Category returns the domain category the record belongs to.
func (r *Record) Category() Category { return r.category }

// Key returns the record's primary identifier.
func (r *Record) Key() string { return r.key }

// Description returns the human-readable description.
func (r *Record) Description() string { return r.description }

// Amount returns the fee amount, or nil if the category has none.
func (r *Record) Amount() *float64 { return r.amount }

// Covered returns the coverage flag, or nil if the category has none.
func (r *Record) Covered() *bool { return r.covered }

// Requirement returns the coverage requirement (e.g. prior authorization).
func (r *Record) Requirement() string { return r.requirement }

// RuleText returns the plan rule text backing the record.
func (r *Record) RuleText() string { return r.ruleText }

// Source returns the originating table or document name.
func (r *Record) Source() string { return r.source }

// Loc returns the most specific location string the store provides.
// Falls back to the key when the store stored none.
func (r *Record) Loc() string {
	if r.loc != "" {
		return r.loc
	}
	return r.key
}

// Page returns the source page number, 0 when unknown.
func (r *Record) Page() int { return r.page }
