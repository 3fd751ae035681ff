// Package strategy содержит торговые стратегии: преобразование окна
// баров в направленные сигналы с подавлением повторов.
package strategy

import (
	"github.com/DoubleChuang/ccxt-bot/pkg/models"
)

// Strategy стратегия с двумя точками входа: живой прогон по последнему
// закрытому бару и бэктест по всей серии. Состояние стратегии
// (дедупликация, знак позиции) живет внутри экземпляра и мутируется
// только им самим; экземпляр не предназначен для параллельного вызова.
type Strategy interface {
	Name() string
	Run(bars []models.Bar) []models.StrategyResult
	Backtest(bars []models.Bar) []models.StrategyResult
}
