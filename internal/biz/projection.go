package biz

import "sort"

// AvailableCredits 账户当前可用信用点
// 所有账户类型统一为 Total - Used（consumer 的 Used 恒为 0）
func AvailableCredits(b *Balance) int {
	return b.Total - b.Used
}

// ConsumptionPercent 消耗百分比，取整并截断到 [0, 100]
// Total 为 0 时返回 0
func ConsumptionPercent(b *Balance) int {
	if b.Total <= 0 {
		return 0
	}
	percent := b.Used * 100 / b.Total
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// StyleCount 风格使用次数
type StyleCount struct {
	StyleID string `json:"style_id"`
	Count   int    `json:"count"`
}

// TopStyles 统计生成记录中各风格的使用次数，按次数降序取前 limit 个。
// 次数相同按首次出现顺序排（records 按创建顺序传入时即按最早使用排）
func TopStyles(records []*GenerationRecord, limit int) []StyleCount {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)
	order := 0
	for _, r := range records {
		if _, seen := counts[r.StyleID]; !seen {
			firstSeen[r.StyleID] = order
			order++
		}
		counts[r.StyleID]++
	}

	result := make([]StyleCount, 0, len(counts))
	for styleID, count := range counts {
		result = append(result, StyleCount{StyleID: styleID, Count: count})
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return firstSeen[result[i].StyleID] < firstSeen[result[j].StyleID]
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}
