package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/diff"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

func TestNewDiffItemTypes(t *testing.T) {
	payload := []*answer.Payload{{Text: "章节内容"}}

	// 任一侧无答案为不适用
	item := newDiffItem("争议解决方式", nil, payload, nil)
	assert.Equal(t, ChapterNA, item.Type)
	item = newDiffItem("争议解决方式", payload, nil, nil)
	assert.Equal(t, ChapterNA, item.Type)

	// 两侧有答案且无差异为一致
	item = newDiffItem("争议解决方式", payload, payload, nil)
	assert.Equal(t, ChapterEqual, item.Type)

	// equal 操作不算差异
	item = newDiffItem("争议解决方式", payload, payload, []*diff.Op{{Type: diff.OpEqual}})
	assert.Equal(t, ChapterEqual, item.Type)

	// 有差异则不一致，且只保留定位信息
	ops := []*diff.Op{
		{Type: diff.OpModify,
			Left:  []*pdfreader.Element{{Page: 3, Outline: []float64{1, 2, 3, 4}}},
			Right: []*pdfreader.Element{{Page: 5, Outline: []float64{5, 6, 7, 8}}}},
		{Type: diff.OpDelete, Left: []*pdfreader.Element{{Page: 4, Outline: []float64{9, 9, 9, 9}}}},
	}
	item = newDiffItem("争议解决方式", payload, payload, ops)
	assert.Equal(t, ChapterUnequal, item.Type)
	require.Len(t, item.Diffs, 2)
	assert.Equal(t, 0, item.Diffs[0].ID)
	assert.Equal(t, 3, item.Diffs[0].LeftBox.Page)
	assert.Equal(t, []float64{5, 6, 7, 8}, item.Diffs[0].RightOutline)
	assert.Nil(t, item.Diffs[1].RightBox)
}

func TestConvChapterAnswerRouting(t *testing.T) {
	cfg := config.GetSelfConfig()
	diffs := make(map[string][]*DiffItem)
	for _, cp := range cfg.CheckPoints {
		item := &DiffItem{Name: cp.Name, Type: ChapterEqual}
		if cp.RightMold == config.ChapterMoldCustody {
			item.Type = ChapterUnequal
		}
		diffs[cp.Name] = append(diffs[cp.Name], item)
	}

	result := convChapterAnswer(cfg, diffs)
	assert.Len(t, result.FundContract, 9)
	assert.Len(t, result.CustodyAgreement, 8)

	// 同名审核点（争议解决方式）按出入方向各取其一
	for _, item := range result.FundContract {
		assert.Equal(t, ChapterEqual, item.Type)
	}
	for _, item := range result.CustodyAgreement {
		assert.Equal(t, ChapterUnequal, item.Type)
	}
}

func TestChapterDiffAnswersMissingMold(t *testing.T) {
	metas := map[string]*ChapterMeta{
		config.ChapterMoldProspectus: {},
		config.ChapterMoldFund:       {},
	}
	_, err := ChapterDiffAnswers(metas)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ChapterMoldCustody)
}

func TestChapterDiffAnswersAllNA(t *testing.T) {
	// 三个章节 schema 都有预测结果但答案为空，全部不适用
	empty := func() *ChapterMeta {
		return &ChapterMeta{
			Answers:  map[string][]*answer.Payload{},
			Elements: map[string]*pdfreader.Interdoc{},
		}
	}
	metas := map[string]*ChapterMeta{
		config.ChapterMoldProspectus: empty(),
		config.ChapterMoldFund:       empty(),
		config.ChapterMoldCustody:    empty(),
	}

	result, err := ChapterDiffAnswers(metas)
	require.NoError(t, err)
	require.Len(t, result.FundContract, 9)
	require.Len(t, result.CustodyAgreement, 8)
	for _, item := range append(result.FundContract, result.CustodyAgreement...) {
		assert.Equal(t, ChapterNA, item.Type)
	}
}

func TestNewChapterMeta(t *testing.T) {
	reader := pdfreader.NewReaderFromDocument(contractDocument())
	node := &answer.Node{Name: config.ChapterMoldFund, Items: []*answer.Answer{
		{
			Key:  `["标注章节对比 基金合同V1:0","008争议解决方式:0"]`,
			Data: []*answer.Payload{{Boxes: []*answer.Box{{Page: 1, Box: []float64{100, 100, 500, 130}}}}},
		},
		{
			// 审核点之外的章节不收
			Key:  `["标注章节对比 基金合同V1:0","099其他章节:0"]`,
			Data: []*answer.Payload{{Boxes: []*answer.Box{{Page: 1, Box: []float64{100, 150, 500, 180}}}}},
		},
	}}

	keys := config.GetSelfConfig().CheckPointsMolds()[config.ChapterMoldFund]
	meta := NewChapterMeta(node, reader, keys)

	assert.Len(t, meta.Answers, 1)
	require.Contains(t, meta.Answers, "008争议解决方式")
	require.Contains(t, meta.Elements, "008争议解决方式")
	assert.Equal(t, "基金管理人：华夏基金管理有限公司", meta.Elements["008争议解决方式"].Text())
}
