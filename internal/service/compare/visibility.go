package compare

import (
	"strings"

	"github.com/scriber/fundcompare/internal/answer"
)

// FilterInvisibleAnswer 招募说明书的可见性规则
//
// 当039基金名称存在时，
//   039-050字段参与比对
//   051基金名称存在则051-064字段参与比对，不存在则051-064字段剔除
// 当039基金名称不存在时，039-064字段全部剔除
func FilterInvisibleAnswer(groups *answer.Groups) {
	exists039, exists051 := false, false
	for _, ans := range groups.Get("基金名称") {
		if len(ans.Data) == 0 {
			continue
		}
		if strings.Contains(ans.Key, "039基金名称") {
			exists039 = true
		}
		if strings.Contains(ans.Key, "051基金名称") {
			exists051 = true
		}
	}
	if exists039 && exists051 {
		return
	}

	low, high := 0, 0
	if !exists039 {
		low, high = 39, 64
	} else {
		low, high = 51, 64
	}

	toDel := make(map[*answer.Answer]struct{})
	for _, label := range groups.Labels() {
		for _, ans := range groups.Get(label) {
			serial := answer.GetSerial(ans.Schema)
			if low <= serial && serial <= high {
				toDel[ans] = struct{}{}
			}
		}
	}

	for _, label := range groups.Labels() {
		answers := groups.Get(label)
		kept := answers[:0]
		for _, ans := range answers {
			if _, ok := toDel[ans]; !ok {
				kept = append(kept, ans)
			}
		}
		groups.Set(label, kept)
	}
}
