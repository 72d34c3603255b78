package points

// BalancePoints 余额档位积分，阈值取左闭右开：100 属于 1 分档
func BalancePoints(balance float64) int {
	switch {
	case balance < 100:
		return 0
	case balance < 1_000:
		return 1
	case balance < 10_000:
		return 2
	case balance < 100_000:
		return 3
	default:
		return 4
	}
}

// VolumePoints 交易量积分：从 2 开始逐次翻倍，统计不超过 volume 的档位数。
// 用整数翻倍而不是 log2，避免 2 的幂边界上的浮点误差。
func VolumePoints(volume float64) int {
	if volume < 2 {
		return 0
	}
	points := 0
	for base := 2.0; base <= volume; base *= 2 {
		points++
	}
	return points
}

// Total 当日总积分，利润不计入
func Total(balancePoints, volumePoints int, bonus, deducted float64) float64 {
	return float64(balancePoints+volumePoints) + bonus - deducted
}

const (
	minVolumeOption = 1024
	maxVolumeOption = 2097152
)

// VolumeOptions 编辑器中的预设交易量
func VolumeOptions() []float64 {
	var opts []float64
	for v := float64(minVolumeOption); v < maxVolumeOption; v *= 2 {
		opts = append(opts, v)
	}
	return append(opts, maxVolumeOption)
}

// BalanceOptions 编辑器中的预设余额，每档的下限
func BalanceOptions() []float64 {
	return []float64{100, 1_000, 10_000, 100_000}
}
