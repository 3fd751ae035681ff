package strategy

import (
	"fmt"
)

// New создает стратегию по имени из конфигурации
func New(name string) (Strategy, error) {
	switch name {
	case "kd50":
		return NewKD50(), nil
	case "impulse_macd":
		return NewImpulseMACD(), nil
	default:
		return nil, fmt.Errorf("неизвестная стратегия: %s", name)
	}
}
