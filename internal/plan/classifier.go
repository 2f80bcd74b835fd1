package plan

import "strings"

// Intent 是目标意图的分类结果。
type Intent string

const (
	IntentObby     Intent = "obby"
	IntentTycoon   Intent = "tycoon"
	IntentBuilding Intent = "building"
	IntentScript   Intent = "script"
	IntentGeneric  Intent = "generic"
)

// Classifier 把目标文本映射为意图,实现可以替换为更精细的模型,
// 执行核心不感知具体实现。
type Classifier interface {
	Classify(goal string) Intent
}

// KeywordClassifier 是默认实现,按固定关键词集合做词面匹配,
// 首个命中的规则生效。
type KeywordClassifier struct{}

// NewKeywordClassifier 创建默认的关键词分类器。
func NewKeywordClassifier() KeywordClassifier {
	return KeywordClassifier{}
}

// Classify 依次检查跑酷、tycoon、建筑、脚本类关键词。
func (KeywordClassifier) Classify(goal string) Intent {
	lower := strings.ToLower(goal)

	for _, word := range []string{"obby", "obstacle course", "parkour"} {
		if strings.Contains(lower, word) {
			return IntentObby
		}
	}
	if strings.Contains(lower, "tycoon") {
		return IntentTycoon
	}
	for _, word := range []string{"build", "house", "tower", "shop", "map"} {
		if strings.Contains(lower, word) {
			return IntentBuilding
		}
	}
	if strings.Contains(lower, "create") {
		for _, word := range []string{"script", "code", "system"} {
			if strings.Contains(lower, word) {
				return IntentScript
			}
		}
	}
	return IntentGeneric
}
