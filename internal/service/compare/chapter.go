package compare

import (
	"fmt"

	"github.com/scriber/fundcompare/config"
	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/diff"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

// 章节比对结论
const (
	ChapterEqual   = "一致"
	ChapterUnequal = "不一致"
	ChapterNA      = "不适用"
)

// ChapterMeta 一个章节 schema 的预测答案与定位好的元素块
type ChapterMeta struct {
	MoldName string
	Answers  map[string][]*answer.Payload
	Elements map[string]*pdfreader.Interdoc
}

// NewChapterMeta 只收审核点涉及的章节答案，并一次性定位元素块
func NewChapterMeta(node *answer.Node, reader *pdfreader.Reader, keys []string) *ChapterMeta {
	keySet := make(map[string]struct{}, len(keys))
	for _, key := range keys {
		keySet[key] = struct{}{}
	}

	meta := &ChapterMeta{
		MoldName: node.Name,
		Answers:  make(map[string][]*answer.Payload),
	}
	var picked []*answer.Answer
	for _, ans := range node.Items {
		key := answer.ConvKey(ans.Key)
		if _, ok := keySet[key]; !ok {
			continue
		}
		meta.Answers[key] = ans.Data
		picked = append(picked, ans)
	}
	meta.Elements = reader.FakeInterdocs(picked, answer.ConvKey)
	return meta
}

// ChapterDiff 章节内一处差异的定位信息，精简入库
type ChapterDiff struct {
	ID           int         `json:"id"`
	LeftBox      *answer.Box `json:"left_box,omitempty"`
	RightBox     *answer.Box `json:"right_box,omitempty"`
	LeftOutline  []float64   `json:"left_outline,omitempty"`
	RightOutline []float64   `json:"right_outline,omitempty"`
}

// DiffItem 一个审核点的章节比对结果
type DiffItem struct {
	Name  string            `json:"name"`
	Left  []*answer.Payload `json:"left"`
	Right []*answer.Payload `json:"right"`
	Diffs []*ChapterDiff    `json:"diffs"`
	Type  string            `json:"type"`
}

// newDiffItem 差异定位来自段落比对的非 equal 操作
// 任一侧无答案为不适用，有答案且无差异为一致
func newDiffItem(name string, left, right []*answer.Payload, ops []*diff.Op) *DiffItem {
	item := &DiffItem{Name: name, Left: left, Right: right, Diffs: []*ChapterDiff{}, Type: ChapterUnequal}
	for _, op := range ops {
		if op.Type == diff.OpEqual {
			continue
		}
		cd := &ChapterDiff{ID: len(item.Diffs)}
		if len(op.Left) > 0 {
			cd.LeftBox = &answer.Box{Page: op.Left[0].Page, Box: op.Left[0].Outline}
			cd.LeftOutline = op.Left[0].Outline
		}
		if len(op.Right) > 0 {
			cd.RightBox = &answer.Box{Page: op.Right[0].Page, Box: op.Right[0].Outline}
			cd.RightOutline = op.Right[0].Outline
		}
		item.Diffs = append(item.Diffs, cd)
	}

	if len(left) == 0 || len(right) == 0 {
		item.Type = ChapterNA
		return item
	}
	if len(item.Diffs) == 0 {
		item.Type = ChapterEqual
	}
	return item
}

// DiffResult 章节比对入库结构：按右侧文档归类
type DiffResult struct {
	FundContract     []*DiffItem `json:"fund_contract"`
	CustodyAgreement []*DiffItem `json:"custody_agreement"`
}

// ChapterDiffAnswers 按审核点表执行章节比对
// metas 的 key 为章节 schema 名；审核点引用的 schema 缺预测结果时整体失败
func ChapterDiffAnswers(metas map[string]*ChapterMeta) (*DiffResult, error) {
	cfg := config.GetSelfConfig()
	diffs := make(map[string][]*DiffItem)
	for _, cp := range cfg.CheckPoints {
		leftMeta, ok := metas[cp.LeftMold]
		if !ok {
			return nil, fmt.Errorf("审核点 %s 缺少预测结果: %s", cp.Name, cp.LeftMold)
		}
		rightMeta, ok := metas[cp.RightMold]
		if !ok {
			return nil, fmt.Errorf("审核点 %s 缺少预测结果: %s", cp.Name, cp.RightMold)
		}

		var left, right []*answer.Payload
		var leftDoc, rightDoc *pdfreader.Interdoc
		if leftMeta != nil {
			leftDoc = leftMeta.Elements[cp.LeftKey]
			left = leftMeta.Answers[cp.LeftKey]
		}
		if rightMeta != nil {
			rightDoc = rightMeta.Elements[cp.RightKey]
			right = rightMeta.Answers[cp.RightKey]
		}

		var ops []*diff.Op
		if leftDoc != nil && rightDoc != nil {
			ops = diff.Calliper(leftDoc, rightDoc, chapterParams())
		}
		diffs[cp.Name] = append(diffs[cp.Name], newDiffItem(cp.Name, left, right, ops))
	}
	return convChapterAnswer(cfg, diffs), nil
}

func chapterParams() diff.Params {
	params := diff.DefaultParams()
	params.IncludeEqual = false
	return params
}

// convChapterAnswer 按审核点表路由结果：
// 右侧是基金合同的先进先出，右侧是托管协议的后进先出
// 同名审核点（争议解决方式出现两次）靠出入方向各取其一
func convChapterAnswer(cfg *config.SelfConfig, diffs map[string][]*DiffItem) *DiffResult {
	result := &DiffResult{FundContract: []*DiffItem{}, CustodyAgreement: []*DiffItem{}}
	for _, cp := range cfg.CheckPoints {
		items := diffs[cp.Name]
		if len(items) == 0 {
			continue
		}
		switch cp.RightMold {
		case config.ChapterMoldFund:
			result.FundContract = append(result.FundContract, items[0])
			diffs[cp.Name] = items[1:]
		case config.ChapterMoldCustody:
			result.CustodyAgreement = append(result.CustodyAgreement, items[len(items)-1])
			diffs[cp.Name] = items[:len(items)-1]
		}
	}
	return result
}
