package exporter

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// formatDecimal formats a money value with exactly 2 decimal places so 13.4
// appears as 13.40.
func formatDecimal(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// formatInt formats an int value for CSV output
func formatInt(i int) string {
	return fmt.Sprintf("%d", i)
}

// formatCell renders one table cell as CSV text.
func formatCell(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case int:
		return formatInt(x)
	case decimal.Decimal:
		return formatDecimal(x)
	case civil.Date:
		return x.String()
	case nil:
		return ""
	default:
		return fmt.Sprint(x)
	}
}

// cellValue converts a table cell to the value stored in a workbook cell.
// Money is written as a number so spreadsheets can sum it.
func cellValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.InexactFloat64()
	case civil.Date:
		return x.String()
	default:
		return x
	}
}
