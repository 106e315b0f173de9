package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

func prospectusDocument() *pdfreader.Document {
	return &pdfreader.Document{
		Pages: 2,
		Elements: []*pdfreader.Element{
			{Index: 0, Page: 0, Class: pdfreader.ClassParagraph, Text: "华夏成长混合型证券投资基金招募说明书", Outline: []float64{100, 100, 500, 130}},
			{Index: 1, Page: 1, Class: pdfreader.ClassParagraph, Text: "基金管理人：华夏基金管理有限公司", Outline: []float64{100, 100, 500, 130}},
			{Index: 2, Page: 1, Class: pdfreader.ClassParagraph, Text: "基金托管人：交通银行股份有限公司", Outline: []float64{100, 150, 500, 180}},
		},
		Syllabuses: []*pdfreader.Syllabus{
			{Title: "招募说明书", Level: 0, Index: 0, EndIndex: 2},
		},
	}
}

func crossAnswer(fid uint, mold, serial, label string, boxes ...*answer.Box) *answer.Answer {
	ans := &answer.Answer{
		Key:    `["` + mold + `:0","` + serial + label + `:0"]`,
		Fid:    fid,
		Schema: serial + label,
	}
	if len(boxes) > 0 {
		ans.Data = []*answer.Payload{{Boxes: boxes}}
	}
	return ans
}

func TestConsistencyDiff(t *testing.T) {
	readers := map[uint]*pdfreader.Reader{
		1: pdfreader.NewReaderFromDocument(contractDocument()),
		2: pdfreader.NewReaderFromDocument(prospectusDocument()),
	}

	fund := answer.GroupByLabel(&answer.Node{Name: "华夏营销部-基金合同V1", Items: []*answer.Answer{
		crossAnswer(1, "华夏营销部-基金合同V1", "002", "管理人", &answer.Box{Page: 1, Box: []float64{100, 100, 500, 130}}),
		crossAnswer(1, "华夏营销部-基金合同V1", "003", "托管人", &answer.Box{Page: 1, Box: []float64{100, 150, 500, 180}}),
		crossAnswer(1, "华夏营销部-基金合同V1", "004", "注册地址", &answer.Box{Page: 0, Box: []float64{100, 100, 500, 130}}),
	}})
	prospectus := answer.GroupByLabel(&answer.Node{Name: "华夏营销部-招募说明书V1", Items: []*answer.Answer{
		crossAnswer(2, "华夏营销部-招募说明书V1", "002", "管理人", &answer.Box{Page: 1, Box: []float64{100, 100, 500, 130}}),
		crossAnswer(2, "华夏营销部-招募说明书V1", "003", "托管人", &answer.Box{Page: 1, Box: []float64{100, 150, 500, 180}}),
	}})

	diffAnswer, err := ConsistencyDiff([]SourceAnswers{
		{Source: "招募说明书", Groups: prospectus},
		{Source: "基金合同", Groups: fund},
	}, readers)
	require.NoError(t, err)
	require.Len(t, diffAnswer, 3)

	// 管理人两份文档一致
	manager := diffAnswer[0]
	assert.Equal(t, "管理人", manager.Key)
	assert.True(t, manager.Equal)
	require.Len(t, manager.Items, 2)
	assert.Equal(t, uint(1), manager.Items[0].Fid)
	assert.Equal(t, uint(2), manager.Items[1].Fid)

	// 托管人两份文档不一致
	custodian := diffAnswer[1]
	assert.False(t, custodian.Equal)
	require.Len(t, custodian.Items[1].Diffs, 1)
	assert.False(t, custodian.Items[1].Diffs[0].Equal)

	// 只有基准有答案的字段按照不一致处理
	address := diffAnswer[2]
	assert.Equal(t, "注册地址", address.Key)
	assert.False(t, address.Equal)
	assert.Len(t, address.Items, 1)
}

func TestConsistencyDiffMissingBase(t *testing.T) {
	_, err := ConsistencyDiff([]SourceAnswers{
		{Source: "招募说明书", Groups: answer.GroupByLabel(nil)},
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "基金合同")
}
