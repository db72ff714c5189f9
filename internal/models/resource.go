package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Resource is a priced input (material, labour, plant) referenced by the
// analysis of rates. Codes may embed a library prefix as "LIB:LOCAL";
// absence of ':' marks the resource project-local.
type Resource struct {
	ID          uint            `gorm:"primaryKey"`
	Code        string          `gorm:"uniqueIndex;not null"`
	Description string          `gorm:"not null"`
	Unit        string          `gorm:"not null"`
	Rate        decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Vat         decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Discount    decimal.Decimal `gorm:"type:decimal(15,2);not null;default:0"`
	Reference   *string         `gorm:"column:reference"`
	CategoryID  uint            `gorm:"not null;index"`
	Order       int             `gorm:"column:order_;not null"`

	Category ResourceCategory `gorm:"foreignKey:CategoryID;constraint:OnDelete:CASCADE"`
}

func (Resource) TableName() string {
	return "ResourceTable"
}

// SplitLibraryCode splits a resource code into its library prefix and
// local part. The prefix is empty for project-local codes.
func SplitLibraryCode(code string) (library, local string) {
	if i := strings.IndexByte(code, ':'); i >= 0 {
		return code[:i], code[i+1:]
	}
	return "", code
}

// JoinLibraryCode builds a prefixed code; an empty library yields the
// bare local code.
func JoinLibraryCode(library, local string) string {
	if library == "" {
		return local
	}
	return library + ":" + local
}
