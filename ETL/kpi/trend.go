package kpi

import (
	"fmt"
	"math"
)

// ForecastMonths горизонт прогноза выручки в месяцах
const ForecastMonths = 3

// MonthForecast прогноз выручки на месяц с 95% интервалом
type MonthForecast struct {
	Year    int     `json:"ano"`
	Month   int     `json:"mes"`
	Revenue float64 `json:"receita_prevista"`
	Lower   float64 `json:"limite_inferior"`
	Upper   float64 `json:"limite_superior"`
}

// Trend линейный тренд месячной выручки: receita = A*x + B, x = номер месяца от начала периода
type Trend struct {
	A         float64         `json:"a"`
	B         float64         `json:"b"`
	R         float64         `json:"r"`
	R2        float64         `json:"r2"`
	Forecasts []MonthForecast `json:"previsao"`
}

type point struct {
	x, y float64
}

// RevenueTrend строит тренд по помесячной выручке (месяцы упорядочены по возрастанию).
// Пропущенные месяцы учитываются через номер месяца, а не порядковый индекс.
func RevenueTrend(months []MonthKPI, horizon int) (*Trend, error) {
	if len(months) < 3 {
		return nil, fmt.Errorf("для расчета тренда требуется минимум 3 месяца, получено: %d", len(months))
	}

	first := monthIndex(months[0])
	points := make([]point, len(months))
	for i, m := range months {
		points[i] = point{x: float64(monthIndex(m) - first), y: m.Revenue}
	}

	// Коэффициенты методом наименьших квадратов:
	// a = (n*sum(x*y) - sum(x)*sum(y)) / (n*sum(x^2) - (sum(x))^2)
	// b = (sum(y) - a*sum(x)) / n
	n := float64(len(points))
	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for _, p := range points {
		sumX += p.x
		sumY += p.y
		sumXY += p.x * p.y
		sumX2 += p.x * p.x
		sumY2 += p.y * p.y
	}

	denominator := n*sumX2 - sumX*sumX
	if math.Abs(denominator) < 1e-10 {
		return nil, fmt.Errorf("все месяцы совпадают, невозможно вычислить наклон")
	}
	a := (n*sumXY - sumX*sumY) / denominator
	b := (sumY - a*sumX) / n

	// Коэффициент корреляции Пирсона
	var r float64
	if d := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY)); d >= 1e-10 {
		r = (n*sumXY - sumX*sumY) / d
	}

	meanX := sumX / n
	var sumSqDevX, sumSqResiduals float64
	for _, p := range points {
		residual := p.y - (a*p.x + b)
		sumSqDevX += (p.x - meanX) * (p.x - meanX)
		sumSqResiduals += residual * residual
	}
	standardError := math.Sqrt(sumSqResiduals / (n - 2))

	trend := &Trend{A: round3(a), B: round3(b), R: round3(r), R2: round3(r * r)}

	last := points[len(points)-1].x
	lastMonth := months[len(months)-1]
	for i := 1; i <= horizon; i++ {
		x := last + float64(i)
		y := a*x + b
		// t ≈ 2 для 95% интервала
		margin := 2.0 * standardError * math.Sqrt(1+1/n+(x-meanX)*(x-meanX)/sumSqDevX)

		idx := monthIndex(lastMonth) + i
		trend.Forecasts = append(trend.Forecasts, MonthForecast{
			Year:    idx / 12,
			Month:   idx%12 + 1,
			Revenue: round2(y),
			Lower:   round2(y - margin),
			Upper:   round2(y + margin),
		})
	}
	return trend, nil
}

// monthIndex сквозной номер месяца: год*12 + (месяц-1)
func monthIndex(m MonthKPI) int {
	return m.Year*12 + m.Month - 1
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
