package utils

import (
	"math"
)

// math.go - математические утилиты для дельта-нейтральной торговли
//
// Все функции являются чистыми (pure functions) без побочных эффектов
// и безопасны при нулевых/отрицательных входах: деление на ноль
// не допускается, вместо него возвращается 0.

// RoundToLotSize округляет значение ВНИЗ до ближайшего кратного lotSize.
//
// Используется для округления объёма ордера до минимального шага биржи.
// Округление вниз гарантирует, что мы не превысим доступные средства.
//
// Примеры:
//   - RoundToLotSize(0.123456, 0.001) = 0.123
//   - RoundToLotSize(1.999, 0.01) = 1.99
func RoundToLotSize(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Floor(value/lotSize) * lotSize
}

// RoundToLotSizeUp округляет значение ВВЕРХ до ближайшего кратного lotSize.
// Используется когда нужно гарантировать минимальный объём (minQty).
func RoundToLotSizeUp(value, lotSize float64) float64 {
	if lotSize <= 0 {
		return value
	}
	return math.Ceil(value/lotSize) * lotSize
}

// CalculateSpread расчитывает спред между двумя ценами в процентах.
//
// Формула:
//
//	Спред (%) = ((P_высокая - P_низкая) / P_низкая) × 100
//
// Возвращает 0 если любая из цен <= 0 — спред по неполным данным
// не имеет смысла, но и ронять расчёт из-за него нельзя. Без защиты
// по priceHigh отсутствующая нога выглядела бы как спред -100%.
//
// Примеры:
//   - CalculateSpread(101.0, 100.0) = 1.0 (1%)
//   - CalculateSpread(42100.0, 42000.0) ≈ 0.238 (0.238%)
func CalculateSpread(priceHigh, priceLow float64) float64 {
	if priceHigh <= 0 || priceLow <= 0 {
		return 0
	}
	return (priceHigh - priceLow) / priceLow * 100
}

// DirectionalSpread расчитывает спред между ценами двух площадок
// с учётом направления: aOverB=true означает что площадка A котируется выше.
//
// Одна и та же формула используется и при детекции возможности, и при
// пересчёте captured spread по реальным ценам исполнения — иначе
// значения нельзя сравнивать между собой.
func DirectionalSpread(priceA, priceB float64, aOverB bool) float64 {
	if aOverB {
		return CalculateSpread(priceA, priceB)
	}
	return CalculateSpread(priceB, priceA)
}

// SpreadToBps переводит разницу двух спредов (в процентах) в базисные пункты.
//
// 1% = 100 bps. Положительное значение = исполнение хуже детекции (slippage),
// отрицательное = исполнение лучше детекции.
//
// Пример: SpreadToBps(0.10, 0.02) = 8.0
func SpreadToBps(detectedPct, executedPct float64) float64 {
	return (detectedPct - executedPct) * 100
}

// SaturatingElapsed возвращает неотрицательную разность двух unix-millis
// меток времени. Часы могут прыгнуть назад (NTP-коррекция, перенос VM) -
// отрицательная длительность фазы бессмысленна и ломает сумму латентности,
// поэтому вычитание насыщающее.
func SaturatingElapsed(fromMs, toMs int64) int64 {
	if toMs <= fromMs {
		return 0
	}
	return toMs - fromMs
}

// CalculatePNL расчитывает нереализованный PNL одной ноги.
//
// Для long: (current - entry) × qty
// Для short: (entry - current) × qty
func CalculatePNL(side string, entryPrice, currentPrice, quantity float64) float64 {
	switch side {
	case "long":
		return (currentPrice - entryPrice) * quantity
	case "short":
		return (entryPrice - currentPrice) * quantity
	default:
		return 0
	}
}

// CalculateTotalPNL суммирует PNL обеих ног дельта-нейтральной позиции
func CalculateTotalPNL(longEntry, longCurrent, shortEntry, shortCurrent, quantity float64) float64 {
	return CalculatePNL("long", longEntry, longCurrent, quantity) +
		CalculatePNL("short", shortEntry, shortCurrent, quantity)
}

// Abs абсолютное значение
func Abs(x float64) float64 {
	return math.Abs(x)
}

// Clamp ограничивает значение диапазоном [min, max]
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// AlmostEqual сравнивает float64 с допуском (для тестов и сверки цен)
func AlmostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) <= epsilon
}
