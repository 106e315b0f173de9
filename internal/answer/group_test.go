package answer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leafAnswer(key, schema string, payloads ...*Payload) *Answer {
	return &Answer{Key: key, Schema: schema, Data: payloads}
}

func payload(text string, boxes ...*Box) *Payload {
	return &Payload{Text: text, Boxes: boxes}
}

func TestParsePath(t *testing.T) {
	segs, err := ParsePath(`["基金合同V1:0","001基金名称:2"]`)
	require.NoError(t, err)
	require.Len(t, segs, 2)
	assert.Equal(t, PathSeg{Name: "基金合同V1", Index: 0}, segs[0])
	assert.Equal(t, PathSeg{Name: "001基金名称", Index: 2}, segs[1])

	_, err = ParsePath(`["缺序号"]`)
	assert.Error(t, err)
	_, err = ParsePath(`not json`)
	assert.Error(t, err)
}

func TestConvKeyAndSerial(t *testing.T) {
	assert.Equal(t, "001基金名称", ConvKey(`["基金合同V1:0","001基金名称:0"]`))
	assert.Equal(t, "", ConvKey(`[]`))
	assert.Equal(t, 39, GetSerial("039基金名称"))
	assert.Equal(t, 0, GetSerial("管理人"))
	assert.Equal(t, "基金名称", StripSerial("001基金名称"))
}

func TestGroupByLabel(t *testing.T) {
	node := &Node{
		Name: "基金合同V1",
		Items: []*Answer{
			leafAnswer(`["基金合同V1:0","001基金名称:0"]`, "001基金名称"),
			leafAnswer(`["基金合同V1:0","002管理人:0"]`, "002管理人"),
			leafAnswer(`["基金合同V1:0","013基金名称:0"]`, "013基金名称"),
		},
	}

	groups := GroupByLabel(node)
	// 去序号后同名标签归并，顺序按首次出现
	assert.Equal(t, []string{"基金名称", "管理人"}, groups.Labels())
	assert.Len(t, groups.Get("基金名称"), 2)
	assert.Len(t, groups.Get("管理人"), 1)

	assert.Empty(t, GroupByLabel(nil).Labels())
}

func TestMergeGroups(t *testing.T) {
	base := GroupByLabel(&Node{Items: []*Answer{
		leafAnswer(`["基金合同V1:0","001基金名称:0"]`, "001基金名称"),
	}})
	other := GroupByLabel(&Node{Items: []*Answer{
		leafAnswer(`["托管协议V1:0","001基金名称:0"]`, "001基金名称"),
		leafAnswer(`["托管协议V1:0","002托管人:0"]`, "002托管人"),
	}})

	merged := Merge(base, other)
	// 只并入基准已有的标签，基准没有的标签不引入
	assert.Equal(t, []string{"基金名称"}, merged.Labels())
	assert.Len(t, merged.Get("基金名称"), 2)
	assert.Empty(t, merged.Get("托管人"))
}

func TestMergeAnswer(t *testing.T) {
	ans := leafAnswer(`["基金合同V1:0","001基金名称:0"]`, "001基金名称",
		payload("华夏成长", &Box{Page: 0, Text: "华夏"}, &Box{Page: 0, Text: "成长"}),
		payload("证券投资基金", &Box{Page: 1, Text: "证券投资基金"}),
	)

	MergeAnswer(ans)
	require.Len(t, ans.Data, 1)
	// 所有来源框并入第一组，数量不变
	assert.Len(t, ans.Data[0].Boxes, 3)
	assert.Equal(t, "华夏成长", ans.Data[0].Text)
}

func TestMergeAnswerPerPageForRequestLetter(t *testing.T) {
	ans := leafAnswer(`["承诺函V1:0","001基金名称:0"]`, "001基金名称",
		payload("华夏成长", &Box{Page: 0, Text: "华夏成长"}),
		payload("华夏成长", &Box{Page: 1, Text: "华夏成长"}),
		payload("基金", &Box{Page: 0, Text: "基金"}),
	)

	MergeAnswer(ans)
	// 承诺函的基金名称按页各留一组
	require.Len(t, ans.Data, 2)
	assert.Len(t, ans.Data[0].Boxes, 2)
	assert.Equal(t, 0, ans.Data[0].Boxes[0].Page)
	assert.Len(t, ans.Data[1].Boxes, 1)
	assert.Equal(t, 1, ans.Data[1].Boxes[0].Page)
}

func TestParseNode(t *testing.T) {
	raw := []byte(`{"items":[{"key":"[\"基金合同V1:0\",\"001基金名称:0\"]","data":[{"text":"华夏成长","boxes":[]}]}]}`)

	node, err := ParseNode(raw, 7, "基金合同V1")
	require.NoError(t, err)
	require.Len(t, node.Items, 1)
	assert.Equal(t, uint(7), node.Items[0].Fid)
	assert.Equal(t, "001基金名称", node.Items[0].Schema)

	empty, err := ParseNode(nil, 7, "基金合同V1")
	require.NoError(t, err)
	assert.Nil(t, empty)

	_, err = ParseNode([]byte(`{`), 7, "基金合同V1")
	assert.Error(t, err)
}
