package compare

import (
	"fmt"

	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

// SourceAnswers 一个文档类型的答案组，按任务成员顺序传入
type SourceAnswers struct {
	Source string
	Groups *answer.Groups
}

// ConsistencyDiff 多文档一致性比对：以基金合同为基准，其余文档同标签字段逐一比
func ConsistencyDiff(sources []SourceAnswers, readerByFid map[uint]*pdfreader.Reader) ([]*DiffGroup, error) {
	var base *answer.Groups
	var others []*answer.Groups
	for _, src := range sources {
		switch src.Source {
		case "招募说明书":
			FilterInvisibleAnswer(src.Groups)
			others = append(others, src.Groups)
		case "基金合同":
			base = src.Groups
		default:
			others = append(others, src.Groups)
		}
	}
	if base == nil {
		return nil, fmt.Errorf("缺少基金合同的提取答案")
	}

	merged := answer.Merge(base, others...)
	readerOf := func(fid uint) (*pdfreader.Reader, error) {
		reader, ok := readerByFid[fid]
		if !ok {
			return nil, fmt.Errorf("文件 %d 缺少解析结果", fid)
		}
		return reader, nil
	}

	var diffAnswer []*DiffGroup
	for _, label := range merged.Labels() {
		answers := merged.Get(label)
		if len(answers) == 0 {
			continue
		}
		group, err := diffGroup(label, answers, readerOf, true)
		if err != nil {
			return nil, err
		}
		diffAnswer = append(diffAnswer, group)
	}
	return diffAnswer, nil
}
