package compare

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriber/fundcompare/internal/answer"
)

func prospectusAnswer(serial int, label string, withData bool) *answer.Answer {
	schema := fmt.Sprintf("%03d%s", serial, label)
	ans := &answer.Answer{
		Key:    fmt.Sprintf(`["华夏营销部-招募说明书V1:0","%s:0"]`, schema),
		Schema: schema,
	}
	if withData {
		ans.Data = []*answer.Payload{{Text: label}}
	}
	return ans
}

func prospectusNode(answers ...*answer.Answer) *answer.Groups {
	return answer.GroupByLabel(&answer.Node{Name: "华夏营销部-招募说明书V1", Items: answers})
}

func TestFilterInvisibleAnswerBothPresent(t *testing.T) {
	groups := prospectusNode(
		prospectusAnswer(39, "基金名称", true),
		prospectusAnswer(45, "管理人", true),
		prospectusAnswer(51, "基金名称", true),
		prospectusAnswer(60, "托管人", true),
	)
	FilterInvisibleAnswer(groups)

	assert.Len(t, groups.Get("基金名称"), 2)
	assert.Len(t, groups.Get("管理人"), 1)
	assert.Len(t, groups.Get("托管人"), 1)
}

func TestFilterInvisibleAnswerNo039(t *testing.T) {
	groups := prospectusNode(
		prospectusAnswer(1, "基金名称", true),
		prospectusAnswer(39, "基金名称", false), // 存在但提取为空
		prospectusAnswer(45, "管理人", true),
		prospectusAnswer(51, "基金名称", true),
		prospectusAnswer(60, "托管人", true),
	)
	FilterInvisibleAnswer(groups)

	// 39-64 全部剔除，区间外保留
	require.Len(t, groups.Get("基金名称"), 1)
	assert.Contains(t, groups.Get("基金名称")[0].Key, "001基金名称")
	assert.Empty(t, groups.Get("管理人"))
	assert.Empty(t, groups.Get("托管人"))
}

func TestFilterInvisibleAnswerNo051(t *testing.T) {
	groups := prospectusNode(
		prospectusAnswer(39, "基金名称", true),
		prospectusAnswer(45, "管理人", true),
		prospectusAnswer(50, "注册地址", true),
		prospectusAnswer(51, "基金名称", false),
		prospectusAnswer(60, "托管人", true),
		prospectusAnswer(64, "存续期", true),
	)
	FilterInvisibleAnswer(groups)

	// 39-50 保留，51-64 剔除
	assert.Len(t, groups.Get("基金名称"), 1)
	assert.Len(t, groups.Get("管理人"), 1)
	assert.Len(t, groups.Get("注册地址"), 1)
	assert.Empty(t, groups.Get("托管人"))
	assert.Empty(t, groups.Get("存续期"))
}
