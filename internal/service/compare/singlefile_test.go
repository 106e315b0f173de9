package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

// 四页样例：封面、正文两页、落款页
func contractDocument() *pdfreader.Document {
	return &pdfreader.Document{
		Pages: 4,
		Elements: []*pdfreader.Element{
			{Index: 0, Page: 0, Class: pdfreader.ClassParagraph, Text: "华夏成长混合型证券投资基金基金合同", Outline: []float64{100, 100, 500, 130}},
			{Index: 1, Page: 1, Class: pdfreader.ClassPageHeader, Text: "华夏成长 基金合同", Outline: []float64{50, 20, 550, 40}},
			{Index: 2, Page: 1, Class: pdfreader.ClassParagraph, Text: "基金管理人：华夏基金管理有限公司", Outline: []float64{100, 100, 500, 130}},
			{Index: 3, Page: 1, Class: pdfreader.ClassParagraph, Text: "基金托管人：中国银行股份有限公司", Outline: []float64{100, 150, 500, 180}},
			{Index: 4, Page: 2, Class: pdfreader.ClassParagraph, Text: "基金管理人：华夏基金管理有限公司", Outline: []float64{100, 100, 500, 130}},
			{Index: 5, Page: 2, Class: pdfreader.ClassParagraph, Text: "基金托管人：建设银行股份有限公司", Outline: []float64{100, 150, 500, 180}},
			{Index: 6, Page: 3, Class: pdfreader.ClassParagraph, Text: "（本页无正文）", Outline: []float64{100, 100, 400, 130}},
		},
		Syllabuses: []*pdfreader.Syllabus{
			{Title: "基金合同", Level: 0, Index: 0, EndIndex: 6},
			{Title: "当事人", Level: 1, Index: 2, EndIndex: 5},
		},
	}
}

func contractAnswer(serial string, label string, boxes ...*answer.Box) *answer.Answer {
	ans := &answer.Answer{
		Key:    `["华夏营销部-基金合同V1:0","` + serial + label + `:0"]`,
		Fid:    1,
		Schema: serial + label,
	}
	if len(boxes) > 0 {
		ans.Data = []*answer.Payload{{Boxes: boxes}}
	}
	return ans
}

func TestSingleQuestionDiff(t *testing.T) {
	reader := pdfreader.NewReaderFromDocument(contractDocument())
	node := &answer.Node{Name: "华夏营销部-基金合同V1", Items: []*answer.Answer{
		contractAnswer("001", "基金名称", &answer.Box{Page: 0, Box: []float64{100, 100, 500, 130}}),
		contractAnswer("002", "管理人", &answer.Box{Page: 1, Box: []float64{100, 100, 500, 130}}),
		contractAnswer("010", "管理人", &answer.Box{Page: 2, Box: []float64{100, 100, 500, 130}}),
		contractAnswer("003", "托管人", &answer.Box{Page: 1, Box: []float64{100, 150, 500, 180}}),
		contractAnswer("011", "托管人", &answer.Box{Page: 2, Box: []float64{100, 150, 500, 180}}),
	}}

	groups, items, err := SingleQuestionDiff(node, "基金合同", reader)
	require.NoError(t, err)
	assert.Equal(t, []string{"基金名称", "管理人", "托管人"}, groups.Labels())
	require.Len(t, items, 3)

	// 字段只有一个提取答案时按照不一致处理
	name := items[0]
	assert.Equal(t, "基金名称", name.Key)
	assert.False(t, name.Equal)
	assert.Equal(t, []string{"封面"}, name.Items[0].Positions)

	// 两处提取文本一致
	manager := items[1]
	assert.True(t, manager.Equal)
	require.Len(t, manager.Items, 2)
	assert.Equal(t, []string{"基金合同", "当事人"}, manager.Items[0].Positions)
	require.Len(t, manager.Items[1].Diffs, 1)
	assert.True(t, manager.Items[1].Diffs[0].Equal)

	// 托管人两处不一致
	custodian := items[2]
	assert.False(t, custodian.Equal)
	require.Len(t, custodian.Items[1].Diffs, 1)
	assert.False(t, custodian.Items[1].Diffs[0].Equal)
	assert.Contains(t, custodian.Items[1].Diffs[0].HTMLDiffContent, "<u>")
}

func TestSingleQuestionDiffEmptyOther(t *testing.T) {
	reader := pdfreader.NewReaderFromDocument(contractDocument())
	node := &answer.Node{Name: "华夏营销部-基金合同V1", Items: []*answer.Answer{
		contractAnswer("002", "管理人", &answer.Box{Page: 1, Box: []float64{100, 100, 500, 130}}),
		contractAnswer("010", "管理人"), // 提取为空
	}}

	_, items, err := SingleQuestionDiff(node, "基金合同", reader)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.False(t, items[0].Equal)
}

func TestSortDiffAnswers(t *testing.T) {
	empty := contractAnswer("020", "费率")
	unequal := contractAnswer("012", "费率", &answer.Box{Page: 1, Box: []float64{0, 0, 1, 1}})
	unequal.Diffs = []*answer.DiffRecord{{Equal: false}}
	equal := contractAnswer("005", "费率", &answer.Box{Page: 1, Box: []float64{0, 0, 1, 1}})
	equal.Diffs = []*answer.DiffRecord{{Equal: true}}

	answers := []*answer.Answer{equal, unequal, empty}
	sortDiffAnswers(answers)

	assert.Same(t, empty, answers[0])
	assert.Same(t, unequal, answers[1])
	assert.Same(t, equal, answers[2])
}

func TestSignPage(t *testing.T) {
	reader := pdfreader.NewReaderFromDocument(contractDocument())
	page, ok := SignPage(reader)
	require.True(t, ok)
	assert.Equal(t, 3, page)

	// 末页没有落款标志
	doc := contractDocument()
	doc.Elements = doc.Elements[:6]
	doc.Pages = 3
	_, ok = SignPage(pdfreader.NewReaderFromDocument(doc))
	assert.False(t, ok)
}
