package exchange

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RoundToStep усекает значение вниз до кратного шагу и форматирует его
// без экспоненты и лишних нулей. Пустой или нулевой шаг оставляет
// значение как есть.
func RoundToStep(value float64, step string) (string, error) {
	d := decimal.NewFromFloat(value)
	if step == "" {
		return d.String(), nil
	}

	st, err := decimal.NewFromString(step)
	if err != nil {
		return "", fmt.Errorf("некорректный шаг точности %q: %w", step, err)
	}
	if st.IsZero() {
		return d.String(), nil
	}

	return trimZeros(d.Div(st).Floor().Mul(st).String()), nil
}

// trimZeros убирает хвостовые нули дробной части: биржа принимает
// "0.45", а не "0.4500"
func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
