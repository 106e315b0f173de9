package compare

import (
	"regexp"

	"github.com/scriber/fundcompare/internal/answer"
	"github.com/scriber/fundcompare/internal/pdfreader"
)

// 落款页标志：末页出现"本页无正文"或"本页无内容"
var (
	pNoContent   = regexp.MustCompile(`本页无(?:正文|内容)`)
	pWhitespaces = regexp.MustCompile(`\s+`)
)

func cleanText(text string) string {
	return pWhitespaces.ReplaceAllString(text, "")
}

// SignPage 末页是落款页时返回 (末页页码, true)
// 从尾部段落往前找，一旦翻过末页即停止
func SignPage(r *pdfreader.Reader) (int, bool) {
	last := r.LastPage()
	paras := r.Paragraphs()
	for i := len(paras) - 1; i >= 0; i-- {
		if paras[i].Page < last {
			break
		}
		if pNoContent.MatchString(cleanText(paras[i].Text)) {
			return last, true
		}
	}
	return 0, false
}

// located 一组答案定位后的文档视图与位置描述
type located struct {
	doc       *pdfreader.Interdoc
	positions []string
}

// simpleInterdocFromAnswer 定位答案元素并分类位置：
// 封面、落款页、页眉互斥优先，否则取首个元素的章节链标题
func simpleInterdocFromAnswer(r *pdfreader.Reader, items []*answer.Payload) *located {
	doc := r.InterdocFromPayloads(items)
	loc := &located{doc: doc}

	signPage, hasSign := SignPage(r)
	onPage := func(page int) bool {
		for _, elt := range doc.OrigElements {
			if elt.Page == page {
				return true
			}
		}
		return false
	}
	hasHeader := func() bool {
		for _, elt := range doc.OrigElements {
			if elt.Class == pdfreader.ClassPageHeader {
				return true
			}
		}
		return false
	}

	switch {
	case onPage(0):
		loc.positions = append(loc.positions, "封面")
	case hasSign && onPage(signPage):
		loc.positions = append(loc.positions, "落款页")
	case hasHeader():
		loc.positions = append(loc.positions, "页眉")
	default:
		if len(doc.OrigElements) > 0 {
			for _, syl := range r.FindSyllabusesByIndex(doc.OrigElements[0].Index) {
				loc.positions = append(loc.positions, syl.Title)
			}
		}
	}
	return loc
}
