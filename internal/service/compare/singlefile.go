package compare

import (
	"sort"

	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

// DiffGroup 一个字段标签下的比对结果：基准答案在前，其余按差异排序
type DiffGroup struct {
	Key   string           `json:"key"`
	Equal bool             `json:"equal"`
	Items []*answer.Answer `json:"items"`
}

// SingleQuestionDiff 单文档一致性比对：同一字段的多个提取答案互相比
// 以首个答案为基准，招募说明书先应用可见性规则
func SingleQuestionDiff(node *answer.Node, source string, reader *pdfreader.Reader) (*answer.Groups, []*DiffGroup, error) {
	groups := answer.GroupByLabel(node)
	if source == "招募说明书" {
		FilterInvisibleAnswer(groups)
	}

	readerOf := func(uint) (*pdfreader.Reader, error) { return reader, nil }
	var items []*DiffGroup
	for _, label := range groups.Labels() {
		answers := groups.Get(label)
		if len(answers) == 0 {
			continue
		}
		group, err := diffGroup(label, answers, readerOf, false)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, group)
	}
	return groups, items, nil
}

// diffGroup 同一标签下的答案互比：首个为基准，其余逐个与基准比
// sortRecords 为真时把每个答案内部的 payload 按是否一致重排（不一致在前）
func diffGroup(label string, answers []*answer.Answer, readerOf func(fid uint) (*pdfreader.Reader, error), sortRecords bool) (*DiffGroup, error) {
	base, others := answers[0], answers[1:]
	for _, ans := range answers {
		answer.MergeAnswer(ans)
	}
	// 字段只有一个提取答案时按照不一致处理
	equal := len(others) > 0

	baseReader, err := readerOf(base.Fid)
	if err != nil {
		return nil, err
	}
	locL := simpleInterdocFromAnswer(baseReader, headPayloads(base.Data))
	base.Positions = locL.positions
	base.Diffs = nil
	for _, item := range base.Data {
		locR := simpleInterdocFromAnswer(baseReader, []*answer.Payload{item})
		eq, html := simpleInterdocDiff(locL.doc, locR.doc)
		base.Diffs = append(base.Diffs, &answer.DiffRecord{HTMLDiffContent: html, Equal: eq})
	}

	for _, other := range others {
		if len(other.Data) == 0 {
			equal = false
			continue
		}
		otherReader, err := readerOf(other.Fid)
		if err != nil {
			return nil, err
		}
		other.Diffs = nil
		posSet := false
		for _, item := range other.Data {
			locR := simpleInterdocFromAnswer(otherReader, []*answer.Payload{item})
			if !posSet {
				other.Positions = locR.positions
				posSet = true
			}
			eq, html := simpleInterdocDiff(locL.doc, locR.doc)
			equal = equal && eq
			other.Diffs = append(other.Diffs, &answer.DiffRecord{HTMLDiffContent: html, Equal: eq})
		}
		if sortRecords {
			sortRecordsByEqual(other)
		}
	}

	sorted := make([]*answer.Answer, len(others))
	copy(sorted, others)
	sortDiffAnswers(sorted)
	return &DiffGroup{Key: label, Equal: equal, Items: append([]*answer.Answer{base}, sorted...)}, nil
}

func headPayloads(data []*answer.Payload) []*answer.Payload {
	if len(data) > 1 {
		return data[:1]
	}
	return data
}

// sortRecordsByEqual 不一致的 payload 排到前面，保持原相对顺序
func sortRecordsByEqual(ans *answer.Answer) {
	if len(ans.Data) != len(ans.Diffs) {
		return
	}
	type record struct {
		data *answer.Payload
		diff *answer.DiffRecord
	}
	records := make([]record, len(ans.Data))
	for i := range ans.Data {
		records[i] = record{data: ans.Data[i], diff: ans.Diffs[i]}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return !records[i].diff.Equal && records[j].diff.Equal
	})
	for i, r := range records {
		ans.Data[i], ans.Diffs[i] = r.data, r.diff
	}
}

// sortDiffAnswers 提取为空 < 存在不一致 < 全部一致，同级按标签序号
func sortDiffAnswers(answers []*answer.Answer) {
	rank := func(ans *answer.Answer) int {
		if len(ans.Data) == 0 {
			return 0
		}
		for _, d := range ans.Diffs {
			if !d.Equal {
				return 1
			}
		}
		return 2
	}
	sort.SliceStable(answers, func(i, j int) bool {
		ri, rj := rank(answers[i]), rank(answers[j])
		if ri != rj {
			return ri < rj
		}
		return answer.GetSerial(answers[i].Schema) < answer.GetSerial(answers[j].Schema)
	})
}
