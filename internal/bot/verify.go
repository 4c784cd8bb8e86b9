package bot

import (
	"deltarb/internal/exchange"
	"deltarb/internal/models"
	"deltarb/pkg/utils"
)

// PositionVerification - чисто производное значение сверки позиций.
// Строится из уже полученных снимков, само не делает I/O и не берёт
// блокировок адаптеров, поэтому свободно от их порядка захвата.
type PositionVerification struct {
	PriceA         float64 // цена входа на площадке A, 0 если позиции нет
	PriceB         float64 // цена входа на площадке B, 0 если позиции нет
	CapturedSpread float64 // % по той же направленной формуле, что при обнаружении
}

// Verify сверяет снимки двух ног. Отсутствующая позиция или неудачный
// fetch дают цену 0.0; функция сама никогда не возвращает ошибку,
// captured spread при нулевой цене конечен.
func Verify(snapshotA, snapshotB *exchange.Position, direction models.Direction) PositionVerification {
	var priceA, priceB float64
	if snapshotA != nil {
		priceA = snapshotA.EntryPrice
	}
	if snapshotB != nil {
		priceB = snapshotB.EntryPrice
	}

	return PositionVerification{
		PriceA:         priceA,
		PriceB:         priceB,
		CapturedSpread: utils.DirectionalSpread(priceA, priceB, direction == models.DirectionAOverB),
	}
}

// LogVerificationSummary пишет структурированную сводку сверки.
// Побочный эффект отделён от чистого вычисления.
func LogVerificationSummary(v PositionVerification, pair string, detectedSpread, exitTarget float64) {
	utils.Info("position verification",
		utils.Pair(pair),
		utils.Float64("price_a", v.PriceA),
		utils.Float64("price_b", v.PriceB),
		utils.Float64("captured_spread", v.CapturedSpread),
		utils.Spread(detectedSpread),
		utils.Float64("exit_target", exitTarget),
	)
}
