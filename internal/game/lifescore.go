package game

// LifeScore bounds
const (
	MinLifeScore     = 0
	MaxLifeScore     = 100
	InitialLifeScore = 50
)

// ClampLifeScore keeps a LifeScore inside [MinLifeScore, MaxLifeScore]
func ClampLifeScore(v int) int {
	if v < MinLifeScore {
		return MinLifeScore
	}
	if v > MaxLifeScore {
		return MaxLifeScore
	}
	return v
}

// ApplyLifeScore adds delta to current and clamps the result
func ApplyLifeScore(current, delta int) int {
	return ClampLifeScore(current + delta)
}
