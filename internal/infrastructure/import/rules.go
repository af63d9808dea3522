package csvimport

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FieldType is the expected type of a column
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeDecimal FieldType = "decimal"
	TypeDate    FieldType = "date"
)

// FieldRule describes how one column is validated
type FieldRule struct {
	Column     string
	Type       FieldType
	Required   bool
	MaxLength  int
	MinValue   *decimal.Decimal
	MaxValue   *decimal.Decimal
	MinExcl    bool
	DateLayout string
	CustomFunc func(value string) error
}

// FieldRuleBuilder builds field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field starts a rule for column
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{rule: FieldRule{Column: column, Type: TypeString, DateLayout: "2006-01-02"}}
}

// Required marks the column as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Decimal expects a decimal number
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// Date expects a date in layout
func (b *FieldRuleBuilder) Date(layout string) *FieldRuleBuilder {
	b.rule.Type = TypeDate
	if layout != "" {
		b.rule.DateLayout = layout
	}
	return b
}

// MaxLength limits the value length in bytes
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Between bounds a decimal value to (min, max] when minExclusive is set,
// otherwise to [min, max]
func (b *FieldRuleBuilder) Between(minValue, maxValue decimal.Decimal, minExclusive bool) *FieldRuleBuilder {
	b.rule.MinValue = &minValue
	b.rule.MaxValue = &maxValue
	b.rule.MinExcl = minExclusive
	return b
}

// Custom adds a custom check
func (b *FieldRuleBuilder) Custom(fn func(value string) error) *FieldRuleBuilder {
	b.rule.CustomFunc = fn
	return b
}

// Build returns the rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// Validator checks rows against a fixed rule set
type Validator struct {
	rules []FieldRule
}

// NewValidator creates a validator. Rules are applied in the given order.
func NewValidator(rules ...FieldRule) *Validator {
	return &Validator{rules: rules}
}

// Columns returns the columns the rules cover
func (v *Validator) Columns() []string {
	out := make([]string, len(v.rules))
	for i, r := range v.rules {
		out[i] = r.Column
	}
	return out
}

// ValidateRow returns every rule violation in row; nil means the row is valid
func (v *Validator) ValidateRow(row *Row) []RowError {
	var errs []RowError
	for _, rule := range v.rules {
		if err := checkField(rule, row.Get(rule.Column)); err != nil {
			err.Row = row.LineNumber
			errs = append(errs, *err)
		}
	}
	return errs
}

func checkField(rule FieldRule, value string) *RowError {
	fail := func(code, msg string) *RowError {
		return &RowError{Column: rule.Column, Code: code, Message: msg, Value: value}
	}

	if value == "" {
		if rule.Required {
			return fail(ErrCodeRequired, fmt.Sprintf("field '%s' is required", rule.Column))
		}
		return nil
	}
	if rule.MaxLength > 0 && len(value) > rule.MaxLength {
		return fail(ErrCodeInvalidLength, fmt.Sprintf("length must be at most %d", rule.MaxLength))
	}

	switch rule.Type {
	case TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return fail(ErrCodeInvalidType, "expected decimal")
		}
		if rule.MinValue != nil && (d.LessThan(*rule.MinValue) || (rule.MinExcl && d.Equal(*rule.MinValue))) {
			bound := "at least"
			if rule.MinExcl {
				bound = "greater than"
			}
			return fail(ErrCodeInvalidRange, fmt.Sprintf("value must be %s %s", bound, rule.MinValue))
		}
		if rule.MaxValue != nil && d.GreaterThan(*rule.MaxValue) {
			return fail(ErrCodeInvalidRange, fmt.Sprintf("value must be at most %s", rule.MaxValue))
		}
	case TypeDate:
		if _, err := time.Parse(rule.DateLayout, value); err != nil {
			return fail(ErrCodeInvalidType, fmt.Sprintf("expected date as %s", rule.DateLayout))
		}
	}

	if rule.CustomFunc != nil {
		if err := rule.CustomFunc(value); err != nil {
			return fail(ErrCodeValidation, err.Error())
		}
	}
	return nil
}
