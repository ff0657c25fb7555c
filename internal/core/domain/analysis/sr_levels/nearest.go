// internal/core/domain/analysis/sr_levels/nearest.go
package sr_levels

import "math"

// NearestAbove - ближайший уровень типа typ строго выше цены
func NearestAbove(levels []Level, price float64, typ LevelType) (Level, bool) {
	var best Level
	found := false
	for _, l := range levels {
		if l.Type != typ || l.Price <= price {
			continue
		}
		if !found || l.Price < best.Price {
			best, found = l, true
		}
	}
	return best, found
}

// NearestBelow - ближайший уровень типа typ строго ниже цены
func NearestBelow(levels []Level, price float64, typ LevelType) (Level, bool) {
	var best Level
	found := false
	for _, l := range levels {
		if l.Type != typ || l.Price >= price {
			continue
		}
		if !found || l.Price > best.Price {
			best, found = l, true
		}
	}
	return best, found
}

// NearestByDistance - ближайший по модулю расстояния уровень, прошедший фильтр
func NearestByDistance(levels []Level, price float64, keep func(Level) bool) (Level, bool) {
	var best Level
	bestDist := math.Inf(1)
	found := false
	for _, l := range levels {
		if keep != nil && !keep(l) {
			continue
		}
		if d := math.Abs(l.Price - price); d < bestDist {
			best, bestDist, found = l, d, true
		}
	}
	return best, found
}

// OfType - фильтр по типу уровня
func OfType(typ LevelType) func(Level) bool {
	return func(l Level) bool { return l.Type == typ }
}
