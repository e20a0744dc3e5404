package value

import "fmt"

func formatFloat(f float64) string {
	return fmt.Sprintf("%f", f)
}

func formatInt(i int64) string {
	return fmt.Sprintf("%d", i)
}
